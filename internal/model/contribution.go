package model

import "time"

// Contribution is an immutable funding entry. Refunds are separate
// compensating records, never mutations of the original contribution.
type Contribution struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	BackerID  int64     `json:"backer_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// Refund is the compensating entry written when a failed project pays a
// backer their pro-rata share of unreleased escrow.
type Refund struct {
	ID        int64     `json:"id"`
	ProjectID int64     `json:"project_id"`
	BackerID  int64     `json:"backer_id"`
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

type PayoutStatus string

const (
	// PayoutOwed marks a release that was approved while the project was
	// under-funded. It settles once enough contributions arrive.
	PayoutOwed PayoutStatus = "owed"
	PayoutPaid PayoutStatus = "paid"
)

// Payout records escrow moved (or owed) to the creator for a completed
// milestone.
type Payout struct {
	ID          int64        `json:"id"`
	ProjectID   int64        `json:"project_id"`
	MilestoneID int64        `json:"milestone_id"`
	Amount      int64        `json:"amount"`
	Status      PayoutStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
	PaidAt      *time.Time   `json:"paid_at,omitempty"`
}
