package escrow

import "fmt"

// ValidationError marks malformed input: percentages that do not sum to 100,
// non-positive amounts, out-of-range progress values.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// StateError marks an operation that is illegal in the current project or
// milestone state. The state is left unchanged.
type StateError struct {
	Msg string
}

func (e *StateError) Error() string { return e.Msg }

func statef(format string, args ...any) error {
	return &StateError{Msg: fmt.Sprintf(format, args...)}
}

// AuthorizationError marks an actor lacking the required role or ownership.
type AuthorizationError struct {
	Msg string
}

func (e *AuthorizationError) Error() string { return e.Msg }

func authorizationf(format string, args ...any) error {
	return &AuthorizationError{Msg: fmt.Sprintf(format, args...)}
}

// InsufficientEscrowError is the one non-fatal failure: a milestone release
// approved while contributions have not yet covered it. The payout is owed,
// not lost, and settles when more funding arrives.
type InsufficientEscrowError struct {
	MilestoneID int64
	Amount      int64
	Shortfall   int64
}

func (e *InsufficientEscrowError) Error() string {
	return fmt.Sprintf("escrow short %d cents for milestone %d release of %d cents",
		e.Shortfall, e.MilestoneID, e.Amount)
}
