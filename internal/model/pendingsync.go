package model

import (
	"database/sql"
	"encoding/json"
)

// Pending-sync payload types.
const (
	PendingTypeInspection = "inspection"
)

// PendingSync is a durable work item representing a payload that must
// reach the remote service. An entry exists exactly as long as its
// delivery has neither succeeded nor been abandoned.
type PendingSync struct {
	ID             int64           `db:"id" json:"id"`
	Type           string          `db:"type" json:"type"`
	Data           json.RawMessage `db:"data" json:"data"`
	Attempts       int             `db:"attempts" json:"attempts"`
	LastAttempt    sql.NullInt64   `db:"last_attempt" json:"lastAttempt"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotencyKey"`
	CreatedAt      int64           `db:"created_at" json:"createdAt"`
}

// TableName returns the table name for PendingSync.
func (PendingSync) TableName() string {
	return "pending_syncs"
}
