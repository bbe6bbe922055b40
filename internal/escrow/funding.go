package escrow

import (
	"time"

	"crowdvault/internal/model"
)

// ApplyContribution records a backer's funding against the project
// aggregate. Funding can never exceed the goal, so a contribution that
// would overshoot is rejected outright rather than partially applied.
// It never changes project status; reaching the goal is only
// stamped so the lifecycle controller and notifications can react.
// Returns whether this contribution is the one that reached the goal.
func ApplyContribution(p *model.Project, amount int64, newBacker bool, now time.Time) (bool, error) {
	if amount <= 0 {
		return false, validationf("contribution amount must be positive, got %d", amount)
	}
	if !p.AcceptingFunds() {
		return false, statef("project %d is %s and not accepting contributions", p.ID, p.Status)
	}
	if remaining := p.FundingGoal - p.CurrentFunding; amount > remaining {
		return false, validationf("contribution of %d exceeds remaining funding capacity %d", amount, remaining)
	}
	p.CurrentFunding += amount
	if newBacker {
		p.Backers++
	}
	p.UpdatedAt = now

	if p.GoalReachedAt == nil && p.CurrentFunding >= p.FundingGoal {
		t := now
		p.GoalReachedAt = &t
		return true, nil
	}
	return false, nil
}

// ReleaseAmount decides the escrow release for an approved milestone.
// releasedToDate is the sum of payouts already made or owed for this
// project. When contributions collected so far cannot cover the cumulative
// release the payout is deferred, reported via InsufficientEscrowError with
// the shortfall - the caller records it as owed, never drops it.
func ReleaseAmount(p *model.Project, m *model.Milestone, releasedToDate int64) (int64, error) {
	if m.Status != model.MilestoneCompleted {
		return 0, statef("milestone %d is %s, escrow releases only on completed milestones", m.ID, m.Status)
	}
	cumulative := releasedToDate + m.ReleasableAmount
	if cumulative > p.CurrentFunding {
		return 0, &InsufficientEscrowError{
			MilestoneID: m.ID,
			Amount:      m.ReleasableAmount,
			Shortfall:   cumulative - p.CurrentFunding,
		}
	}
	return m.ReleasableAmount, nil
}

// CanSettle reports whether an owed payout is now covered by contributions.
// paidToDate excludes the owed payout itself.
func CanSettle(p *model.Project, payout model.Payout, paidToDate int64) bool {
	return paidToDate+payout.Amount <= p.CurrentFunding
}

// RefundShare computes a backer's pro-rata share of un-released escrow for a
// failed project: backerTotal * unreleased / currentFunding, integer cents.
func RefundShare(p *model.Project, backerTotal, releasedTotal int64) (int64, error) {
	if p.Status != model.ProjectFailed {
		return 0, statef("project %d is %s, refunds are only legal on failed projects", p.ID, p.Status)
	}
	if backerTotal <= 0 || p.CurrentFunding <= 0 {
		return 0, nil
	}
	unreleased := p.CurrentFunding - releasedTotal
	if unreleased <= 0 {
		return 0, nil
	}
	return backerTotal * unreleased / p.CurrentFunding, nil
}
