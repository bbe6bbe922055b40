package model

import "time"

type MilestoneStatus string

const (
	MilestonePending         MilestoneStatus = "pending"
	MilestoneInProgress      MilestoneStatus = "in-progress"
	MilestonePendingApproval MilestoneStatus = "pending-approval"
	MilestoneCompleted       MilestoneStatus = "completed"
	MilestoneDisputed        MilestoneStatus = "disputed"
)

// Milestone is a percentage-weighted deliverable owned by its project.
// ReleasableAmount is snapshotted in cents when the schedule is built and
// never recomputed, so later edits elsewhere cannot change past payouts.
type Milestone struct {
	ID                   int64           `json:"id"`
	ProjectID            int64           `json:"project_id"`
	PhaseOrder           int             `json:"phase_order"`
	Title                string          `json:"title"`
	Description          string          `json:"description"`
	Deadline             time.Time       `json:"deadline"`
	FundingPercentage    int             `json:"funding_percentage"`
	ReleasableAmount     int64           `json:"releasable_amount"`
	Status               MilestoneStatus `json:"status"`
	CompletionPercentage int             `json:"completion_percentage"`
	ReviewStartedAt      *time.Time      `json:"review_started_at,omitempty"`
	DisputedAt           *time.Time      `json:"disputed_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// InReview reports whether the milestone is awaiting backer approval.
func (m *Milestone) InReview() bool {
	return m.Status == MilestonePendingApproval
}
