package model

// UserStats and ProjectStats back the admin platform overview.
type UserStats struct {
	Total      int `json:"total"`
	Creators   int `json:"creators"`
	Backers    int `json:"backers"`
	Admins     int `json:"admins"`
	PendingKyc int `json:"pending_kyc"`
}

type ProjectStats struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Verified  int `json:"verified"`
	Flagged   int `json:"flagged"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	// TotalFunding counts escrow held or disbursed by projects that got
	// past review. Failed projects are excluded once refunds run.
	TotalFunding int64 `json:"total_funding"`
}
