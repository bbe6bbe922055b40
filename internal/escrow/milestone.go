package escrow

import (
	"time"

	"crowdvault/internal/model"
)

// MilestoneAllocation is the creator's input for one milestone when a
// project is created.
type MilestoneAllocation struct {
	Title             string
	Description       string
	Deadline          time.Time
	FundingPercentage int
}

// Outcome is the approval protocol's verdict on a milestone in review.
type Outcome string

const (
	OutcomeApproved Outcome = "approved"
	OutcomeDisputed Outcome = "disputed"
)

// NewMilestoneSchedule validates the allocations and builds the owned
// milestone sequence. Percentages must each be in [1,100] and sum to exactly
// 100 - no rounding tolerance. Milestone 0 starts in-progress, the rest
// pending. Releasable amounts are snapshotted here in cents; the final
// milestone absorbs the integer-division remainder so the snapshots sum to
// the funding goal.
func NewMilestoneSchedule(fundingGoal int64, allocs []MilestoneAllocation, now time.Time) ([]model.Milestone, error) {
	if fundingGoal <= 0 {
		return nil, validationf("funding goal must be positive, got %d", fundingGoal)
	}
	if len(allocs) == 0 {
		return nil, validationf("at least one milestone is required")
	}

	sum := 0
	for i, a := range allocs {
		if a.FundingPercentage < 1 || a.FundingPercentage > 100 {
			return nil, validationf("milestone %d funding percentage %d out of range [1,100]", i, a.FundingPercentage)
		}
		sum += a.FundingPercentage
	}
	if sum != 100 {
		return nil, validationf("milestone funding percentages must total 100, got %d", sum)
	}

	milestones := make([]model.Milestone, 0, len(allocs))
	var allocated int64
	for i, a := range allocs {
		releasable := fundingGoal * int64(a.FundingPercentage) / 100
		if i == len(allocs)-1 {
			releasable = fundingGoal - allocated
		}
		allocated += releasable

		status := model.MilestonePending
		if i == 0 {
			status = model.MilestoneInProgress
		}
		milestones = append(milestones, model.Milestone{
			PhaseOrder:        i,
			Title:             a.Title,
			Description:       a.Description,
			Deadline:          a.Deadline,
			FundingPercentage: a.FundingPercentage,
			ReleasableAmount:  releasable,
			Status:            status,
			CreatedAt:         now,
			UpdatedAt:         now,
		})
	}
	return milestones, nil
}

// ReportProgress records creator-declared progress on the in-progress
// milestone. Progress is informational; it gates nothing except the explicit
// completion declaration required by RequestCompletion.
func ReportProgress(p *model.Project, milestoneID, actorID int64, percentage int) error {
	if actorID != p.CreatorID {
		return authorizationf("only the project creator can report milestone progress")
	}
	if percentage < 0 || percentage > 100 {
		return validationf("completion percentage %d out of range [0,100]", percentage)
	}
	m := p.MilestoneByID(milestoneID)
	if m == nil {
		return statef("milestone %d not found on project %d", milestoneID, p.ID)
	}
	if m.Status != model.MilestoneInProgress {
		return statef("milestone %d is %s, progress can only be reported in-progress", milestoneID, m.Status)
	}
	m.CompletionPercentage = percentage
	return nil
}

// RequestCompletion moves an in-progress milestone into review. The creator
// must have explicitly declared 100% completion first; reaching the deadline
// or any implicit signal does not qualify.
func RequestCompletion(p *model.Project, milestoneID, actorID int64, now time.Time) error {
	if actorID != p.CreatorID {
		return authorizationf("only the project creator can request milestone completion")
	}
	if !p.Executing() {
		return statef("project %d is %s, milestones cannot enter review", p.ID, p.Status)
	}
	m := p.MilestoneByID(milestoneID)
	if m == nil {
		return statef("milestone %d not found on project %d", milestoneID, p.ID)
	}
	if m.Status != model.MilestoneInProgress {
		return statef("milestone %d is %s, only an in-progress milestone can request completion", milestoneID, m.Status)
	}
	if m.CompletionPercentage != 100 {
		return statef("milestone %d completion is %d%%, declare 100%% before requesting approval", milestoneID, m.CompletionPercentage)
	}
	m.Status = model.MilestonePendingApproval
	t := now
	m.ReviewStartedAt = &t
	m.UpdatedAt = now
	p.UpdatedAt = now
	return nil
}

// ResolveMilestone applies the approval protocol's verdict. Approval
// completes the milestone and advances the next pending one; when none
// remain, the project itself completes. A dispute parks the milestone for
// admin intervention. The disputed -> completed path exists only for the
// admin override.
func ResolveMilestone(p *model.Project, milestoneID int64, outcome Outcome, now time.Time) error {
	m := p.MilestoneByID(milestoneID)
	if m == nil {
		return statef("milestone %d not found on project %d", milestoneID, p.ID)
	}

	switch outcome {
	case OutcomeApproved:
		if m.Status != model.MilestonePendingApproval && m.Status != model.MilestoneDisputed {
			return statef("milestone %d is %s, cannot approve", milestoneID, m.Status)
		}
		m.Status = model.MilestoneCompleted
		m.CompletionPercentage = 100
		m.DisputedAt = nil
		m.UpdatedAt = now
		advanceNext(p, now)
	case OutcomeDisputed:
		if m.Status != model.MilestonePendingApproval {
			return statef("milestone %d is %s, cannot dispute", milestoneID, m.Status)
		}
		m.Status = model.MilestoneDisputed
		t := now
		m.DisputedAt = &t
		m.UpdatedAt = now
	default:
		return validationf("unknown milestone outcome %q", outcome)
	}
	p.UpdatedAt = now
	return nil
}

// advanceNext promotes the next pending milestone, or completes the project
// when every milestone is done.
func advanceNext(p *model.Project, now time.Time) {
	for i := range p.Milestones {
		if p.Milestones[i].Status == model.MilestonePending {
			p.Milestones[i].Status = model.MilestoneInProgress
			p.Milestones[i].UpdatedAt = now
			return
		}
	}
	for i := range p.Milestones {
		if p.Milestones[i].Status != model.MilestoneCompleted {
			return
		}
	}
	if p.Executing() {
		p.Status = model.ProjectCompleted
	}
}
