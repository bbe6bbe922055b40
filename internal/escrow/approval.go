package escrow

import (
	"math"
	"time"

	"crowdvault/internal/model"
)

// ApprovalPolicy configures the voting protocol. Quorum and window are
// deployment inputs, not law: see config.yaml.
type ApprovalPolicy struct {
	// QuorumFraction is the minimum fraction of eligible backers who must
	// vote before a tally can approve.
	QuorumFraction float64
	// VotingWindow is how long votes are accepted, measured from the
	// moment the creator requested completion.
	VotingWindow time.Duration
}

// Tally summarizes the votes currently on record for a milestone in review.
// Eligible counts distinct backers who contributed at least one cent.
type Tally struct {
	Confirm  int
	Reject   int
	Eligible int
}

func (t Tally) votesCast() int {
	return t.Confirm + t.Reject
}

func (t Tally) quorumMet(pol ApprovalPolicy) bool {
	need := int(math.Ceil(pol.QuorumFraction * float64(t.Eligible)))
	return t.votesCast() >= need
}

// ValidateVote checks that a backer may vote on the milestone right now.
// contributed is the backer's total contribution to the project in cents.
func ValidateVote(p *model.Project, milestoneID, backerID, contributed int64, value model.VoteValue) error {
	if value != model.VoteConfirm && value != model.VoteReject {
		return validationf("vote must be %q or %q, got %q", model.VoteConfirm, model.VoteReject, value)
	}
	if contributed < 1 {
		return authorizationf("backer %d has not contributed to project %d and cannot vote", backerID, p.ID)
	}
	m := p.MilestoneByID(milestoneID)
	if m == nil {
		return statef("milestone %d not found on project %d", milestoneID, p.ID)
	}
	if !m.InReview() {
		return statef("milestone %d is %s, votes are only accepted pending approval", milestoneID, m.Status)
	}
	return nil
}

// EvaluateTally decides whether a milestone in review resolves now.
//
// Before the window closes the tally resolves early only when the outcome
// can no longer change: a confirm lead bigger than all outstanding votes
// (and quorum met) approves; a reject count the outstanding confirms cannot
// beat disputes. Once the window expires: below quorum disputes - there is
// no silent timeout-to-approve - and at quorum a strict confirm majority
// approves, anything else (including an exact tie) disputes.
func EvaluateTally(m *model.Milestone, t Tally, pol ApprovalPolicy, now time.Time) (Outcome, bool) {
	if !m.InReview() || m.ReviewStartedAt == nil {
		return "", false
	}

	expired := now.After(m.ReviewStartedAt.Add(pol.VotingWindow))
	if expired {
		if !t.quorumMet(pol) {
			return OutcomeDisputed, true
		}
		if t.Confirm > t.Reject {
			return OutcomeApproved, true
		}
		return OutcomeDisputed, true
	}

	remaining := t.Eligible - t.votesCast()
	if remaining < 0 {
		remaining = 0
	}
	if t.Confirm > t.Reject+remaining && t.quorumMet(pol) {
		return OutcomeApproved, true
	}
	if remaining == 0 && t.Reject >= t.Confirm {
		// Everyone voted and confirms did not win; favor caution.
		return OutcomeDisputed, true
	}
	return "", false
}

// ValidateOverride checks the admin escape hatch: a forced verdict is legal
// while the milestone is pending approval or already disputed.
func ValidateOverride(p *model.Project, milestoneID int64, actor model.Role, decision Outcome) error {
	if actor != model.RoleAdmin {
		return authorizationf("only an admin can override a milestone vote")
	}
	if decision != OutcomeApproved && decision != OutcomeDisputed {
		return validationf("override decision must be %q or %q, got %q", OutcomeApproved, OutcomeDisputed, decision)
	}
	m := p.MilestoneByID(milestoneID)
	if m == nil {
		return statef("milestone %d not found on project %d", milestoneID, p.ID)
	}
	if m.Status != model.MilestonePendingApproval && m.Status != model.MilestoneDisputed {
		return statef("milestone %d is %s, override applies to pending-approval or disputed milestones", milestoneID, m.Status)
	}
	if m.Status == model.MilestoneDisputed && decision == OutcomeDisputed {
		return statef("milestone %d is already disputed", milestoneID)
	}
	return nil
}
