package model

import "time"

// Inspection status values. Draft and in-progress records are created by
// the form collaborator; pending_sync and synced are managed by the sync
// engine.
const (
	InspectionStatusDraft       = "draft"
	InspectionStatusInProgress  = "in_progress"
	InspectionStatusCompleted   = "completed"
	InspectionStatusPendingSync = "pending_sync"
	InspectionStatusSynced      = "synced"
)

// Inspection represents one completed or in-progress inspection event.
// The EDL reference is informational only; an inspection may reference an
// EDL that does not exist locally.
type Inspection struct {
	ID               int64  `db:"id" json:"id"`
	EDLNumber        string `db:"edl_number" json:"edlNumber"`
	InspectorID      string `db:"inspector_id" json:"inspectorId"`
	InstallationSite string `db:"installation_site" json:"installationSite"`
	Address          string `db:"address" json:"address"`
	Responsible      string `db:"responsible" json:"responsible"`
	ExchangeType     string `db:"exchange_type" json:"exchangeType"`
	WaterLevel       string `db:"water_level" json:"waterLevel"`
	OccurrenceType   string `db:"occurrence_type" json:"occurrenceType"`
	Observations     string `db:"observations" json:"observations"`
	Status           string `db:"status" json:"status"`
	CreatedAt        int64  `db:"created_at" json:"createdAt"`
	UpdatedAt        int64  `db:"updated_at" json:"updatedAt"`
}

// TableName returns the table name for Inspection.
func (Inspection) TableName() string {
	return "inspections"
}

// CreatedAtTime returns the CreatedAt as time.Time.
func (i *Inspection) CreatedAtTime() time.Time {
	return time.Unix(i.CreatedAt, 0)
}

// Synced reports whether the inspection has been confirmed by the remote
// service.
func (i *Inspection) Synced() bool {
	return i.Status == InspectionStatusSynced
}
