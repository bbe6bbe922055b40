package escrow

import (
	"time"

	"crowdvault/internal/model"
)

// LifecyclePolicy holds the controller's timer policy.
type LifecyclePolicy struct {
	// DisputeGrace is how long a disputed milestone may sit unresolved
	// before the whole project fails.
	DisputeGrace time.Duration
}

// SubmitForReview is the entry point from project creation. The creator must
// have passed KYC and the milestone schedule must already hold the 100%-sum
// invariant (enforced by NewMilestoneSchedule).
func SubmitForReview(p *model.Project, kyc model.KycStatus, now time.Time) error {
	if kyc != model.KycApproved {
		return authorizationf("creator %d KYC status is %s, verification is required to launch projects", p.CreatorID, kyc)
	}
	if p.Status != "" && p.Status != model.ProjectPending {
		return statef("project %d is %s and cannot be re-submitted", p.ID, p.Status)
	}
	if len(p.Milestones) == 0 {
		return validationf("project has no milestone schedule")
	}
	if now.After(p.Deadline) {
		return validationf("project funding deadline is in the past")
	}
	p.Status = model.ProjectPending
	p.UpdatedAt = now
	return nil
}

// AdminVerify approves a pending project for fundraising.
func AdminVerify(p *model.Project, actor model.Role, now time.Time) error {
	if actor != model.RoleAdmin {
		return authorizationf("only an admin can verify a project")
	}
	if p.Status != model.ProjectPending {
		return statef("project %d is %s, only pending projects can be verified", p.ID, p.Status)
	}
	p.Status = model.ProjectVerified
	p.UpdatedAt = now
	return nil
}

// AdminFlag rejects a pending project. The reason is mandatory and persists
// with the transition.
func AdminFlag(p *model.Project, actor model.Role, adminID int64, reason string, now time.Time) error {
	if actor != model.RoleAdmin {
		return authorizationf("only an admin can flag a project")
	}
	if reason == "" {
		return validationf("flag reason is required")
	}
	if p.Status != model.ProjectPending {
		return statef("project %d is %s, only pending projects can be flagged", p.ID, p.Status)
	}
	p.Status = model.ProjectFlagged
	p.FlagReason = reason
	p.FlaggedBy = &adminID
	t := now
	p.FlaggedAt = &t
	p.UpdatedAt = now
	return nil
}

// Activate promotes a verified project whose goal has been met into active
// execution. Contributions themselves never change status; the scheduler
// calls this.
func Activate(p *model.Project, now time.Time) error {
	if p.Status != model.ProjectVerified {
		return statef("project %d is %s, only verified projects activate", p.ID, p.Status)
	}
	if p.CurrentFunding < p.FundingGoal {
		return statef("project %d funding %d has not reached goal %d", p.ID, p.CurrentFunding, p.FundingGoal)
	}
	p.Status = model.ProjectActive
	p.UpdatedAt = now
	return nil
}

// EvaluateDeadline is the idempotent scheduler check for the fundraising
// window. Past the deadline with funding below goal the project fails and
// backers get refunds. Past the deadline with the goal met nothing happens:
// the deadline bounds fundraising, not milestone execution.
// Returns whether this call transitioned the project to failed.
func EvaluateDeadline(p *model.Project, now time.Time) bool {
	if p.Status != model.ProjectVerified && p.Status != model.ProjectActive {
		return false
	}
	if !now.After(p.Deadline) {
		return false
	}
	if p.CurrentFunding >= p.FundingGoal {
		return false
	}
	fail(p, now)
	return true
}

// EvaluateDisputeGrace fails a project whose disputed milestone has sat
// unresolved past the grace period. Idempotent; safe on every tick.
func EvaluateDisputeGrace(p *model.Project, pol LifecyclePolicy, now time.Time) bool {
	if !p.Executing() {
		return false
	}
	for i := range p.Milestones {
		m := &p.Milestones[i]
		if m.Status == model.MilestoneDisputed && m.DisputedAt != nil &&
			now.After(m.DisputedAt.Add(pol.DisputeGrace)) {
			fail(p, now)
			return true
		}
	}
	return false
}

func fail(p *model.Project, now time.Time) {
	p.Status = model.ProjectFailed
	t := now
	p.FailedAt = &t
	p.UpdatedAt = now
}
