package store

import (
	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

// CleanOldData prunes synced inspections older than retentionDays and
// returns the number of records removed. Unsynced inspections are never
// pruned regardless of age: a record that failed to sync keeps its only
// copy here.
func (s *Store) CleanOldData(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, apperr.New(apperr.ErrValidation, "retention days must be positive")
	}

	cutoff := s.now() - int64(retentionDays)*24*60*60

	res, err := s.db.Exec(
		"DELETE FROM inspections WHERE status = ? AND created_at < ?",
		model.InspectionStatusSynced, cutoff)
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrStore, "failed to clean old data", err)
	}

	pruned, err := res.RowsAffected()
	if err != nil {
		return 0, apperr.Wrap(apperr.ErrStore, "failed to count pruned rows", err)
	}
	return pruned, nil
}
