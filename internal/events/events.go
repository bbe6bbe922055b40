// Package events defines the routing keys and payload shapes published to
// the "events" exchange through the outbox.
package events

import "time"

// Routing keys. Worker queues bind to these on the topic exchange.
const (
	ProjectSubmitted   = "project.submitted"
	ProjectVerified    = "project.verified"
	ProjectFlagged     = "project.flagged"
	ProjectActivated   = "project.activated"
	ProjectGoalHit     = "project.goal_reached"
	ProjectCompleted   = "project.completed"
	ProjectFailed      = "project.failed"
	ContributionMade   = "contribution.recorded"
	ContributionRefund = "contribution.refunded"
	MilestoneProgress  = "milestone.progress_reported"
	MilestoneReview    = "milestone.review_requested"
	MilestoneVoteCast  = "milestone.vote_cast"
	MilestoneReleased  = "milestone.released"
	MilestoneDeferred  = "milestone.release_deferred"
	MilestoneDisputed  = "milestone.disputed"
)

// ProjectEvent covers every project.* key.
type ProjectEvent struct {
	ProjectID  int64     `json:"project_id"`
	CreatorID  int64     `json:"creator_id"`
	Title      string    `json:"title"`
	Status     string    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	AdminID    int64     `json:"admin_id,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// ContributionEvent covers contribution.recorded and contribution.refunded.
type ContributionEvent struct {
	ProjectID   int64     `json:"project_id"`
	BackerID    int64     `json:"backer_id"`
	Amount      int64     `json:"amount"`
	GoalReached bool      `json:"goal_reached,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// MilestoneEvent covers every milestone.* key.
type MilestoneEvent struct {
	ProjectID   int64     `json:"project_id"`
	MilestoneID int64     `json:"milestone_id"`
	PhaseOrder  int       `json:"phase_order"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Amount      int64     `json:"amount,omitempty"`
	Shortfall   int64     `json:"shortfall,omitempty"`
	ActorID     int64     `json:"actor_id,omitempty"`
	OccurredAt  time.Time `json:"occurred_at"`
}
