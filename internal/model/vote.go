package model

import "time"

type VoteValue string

const (
	VoteConfirm VoteValue = "confirm"
	VoteReject  VoteValue = "reject"
)

// ApprovalVote is one backer's verdict on a milestone in review. The pair
// (milestone_id, backer_id) is unique: a later vote replaces the earlier one
// while the milestone is still pending approval.
type ApprovalVote struct {
	ID          int64     `json:"id"`
	MilestoneID int64     `json:"milestone_id"`
	ProjectID   int64     `json:"project_id"`
	BackerID    int64     `json:"backer_id"`
	Value       VoteValue `json:"value"`
	Feedback    string    `json:"feedback,omitempty"`
	EvidenceRef string    `json:"evidence_ref,omitempty"`
	CastAt      time.Time `json:"cast_at"`
}
