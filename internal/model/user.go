package model

import "time"

type Role string

const (
	RoleCreator Role = "creator"
	RoleBacker  Role = "backer"
	RoleAdmin   Role = "admin"
)

type KycStatus string

const (
	KycNone     KycStatus = "none"
	KycPending  KycStatus = "pending"
	KycApproved KycStatus = "approved"
	KycRejected KycStatus = "rejected"
)

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	KycStatus    KycStatus `json:"kyc_status"`
	Banned       bool      `json:"banned"`
	CreatedAt    time.Time `json:"created_at"`
}
