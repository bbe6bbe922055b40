package model

import "time"

type ProjectStatus string

const (
	ProjectPending   ProjectStatus = "pending"
	ProjectVerified  ProjectStatus = "verified"
	ProjectFlagged   ProjectStatus = "flagged"
	ProjectActive    ProjectStatus = "active"
	ProjectCompleted ProjectStatus = "completed"
	ProjectFailed    ProjectStatus = "failed"
)

// Project is the per-project aggregate. All monetary amounts are in cents.
// Version backs the optimistic-concurrency contract: every save is
// conditional on the version the aggregate was loaded at.
type Project struct {
	ID             int64         `json:"id"`
	CreatorID      int64         `json:"creator_id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	Category       string        `json:"category"`
	FundingGoal    int64         `json:"funding_goal"`
	CurrentFunding int64         `json:"current_funding"`
	Backers        int           `json:"backers"`
	Deadline       time.Time     `json:"deadline"`
	Status         ProjectStatus `json:"status"`
	FlagReason     string        `json:"flag_reason,omitempty"`
	FlaggedBy      *int64        `json:"flagged_by,omitempty"`
	FlaggedAt      *time.Time    `json:"flagged_at,omitempty"`
	GoalReachedAt  *time.Time    `json:"goal_reached_at,omitempty"`
	FailedAt       *time.Time    `json:"failed_at,omitempty"`
	Milestones     []Milestone   `json:"milestones"`
	Version        int64         `json:"version"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// AcceptingFunds reports whether contributions may be recorded.
func (p *Project) AcceptingFunds() bool {
	return p.Status == ProjectVerified || p.Status == ProjectActive
}

// Executing reports whether milestone work may progress.
func (p *Project) Executing() bool {
	return p.Status == ProjectVerified || p.Status == ProjectActive
}

// MilestoneByID returns the owned milestone with the given id, or nil.
func (p *Project) MilestoneByID(id int64) *Milestone {
	for i := range p.Milestones {
		if p.Milestones[i].ID == id {
			return &p.Milestones[i]
		}
	}
	return nil
}
