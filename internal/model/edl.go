// Package model provides data model definitions for the edlsync core.
package model

import "time"

// EDL status values.
const (
	EDLStatusActive   = "active"
	EDLStatusInactive = "inactive"
)

// EDL identifies a physical inspection point and its metadata.
// The EDL number is globally unique and immutable once created.
type EDL struct {
	EDLNumber   string `db:"edl_number" json:"edlNumber"`
	Location    string `db:"location" json:"location"`
	Responsible string `db:"responsible" json:"responsible"`
	Description string `db:"description" json:"description"`
	Status      string `db:"status" json:"status"`
	CreatedAt   int64  `db:"created_at" json:"createdAt"`
	UpdatedAt   int64  `db:"updated_at" json:"updatedAt"`
}

// TableName returns the table name for EDL.
func (EDL) TableName() string {
	return "edls"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (e *EDL) CreatedAtTime() time.Time {
	return time.Unix(e.CreatedAt, 0)
}

// EDLPatch holds the mutable EDL attributes for partial updates.
// Nil fields are left untouched.
type EDLPatch struct {
	Location    *string
	Responsible *string
	Description *string
	Status      *string
}
