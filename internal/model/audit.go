package model

import (
	"encoding/json"
	"time"
)

// AuditLog is a structured record of one state transition, written for
// compliance review. It is never consulted for decisions.
type AuditLog struct {
	ID         int64           `json:"id"`
	ActorID    int64           `json:"actor_id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"` // project / milestone / contribution / user
	EntityID   int64           `json:"entity_id"`
	Details    json.RawMessage `json:"details,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}
