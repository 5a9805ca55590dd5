package store

import (
	"database/sql"
	"encoding/json"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

const pendingColumns = "id, type, data, attempts, last_attempt, idempotency_key, created_at"

// InsertPendingSync appends a new pending-sync entry with zero attempts
// and returns it with the assigned id.
func (s *Store) InsertPendingSync(entryType string, data json.RawMessage, idempotencyKey string) (*model.PendingSync, error) {
	entry := &model.PendingSync{
		Type:           entryType,
		Data:           data,
		Attempts:       0,
		IdempotencyKey: idempotencyKey,
		CreatedAt:      s.now(),
	}

	res, err := s.db.Exec(`
	INSERT INTO pending_syncs (type, data, attempts, idempotency_key, created_at)
	VALUES (?, ?, 0, ?, ?)`,
		entry.Type, string(entry.Data), entry.IdempotencyKey, entry.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to insert pending sync", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to read pending sync id", err)
	}
	entry.ID = id

	return entry, nil
}

// GetPendingSync returns the entry with the given id, or (nil, nil) when
// it has already been removed.
func (s *Store) GetPendingSync(id int64) (*model.PendingSync, error) {
	row := s.db.QueryRow(
		"SELECT "+pendingColumns+" FROM pending_syncs WHERE id = ?", id)

	entry, err := scanPendingSync(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to get pending sync", err)
	}
	return entry, nil
}

// ListPendingSyncs returns all pending entries in creation order.
func (s *Store) ListPendingSyncs() ([]*model.PendingSync, error) {
	rows, err := s.db.Query(
		"SELECT " + pendingColumns + " FROM pending_syncs ORDER BY id")
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to list pending syncs", err)
	}
	defer rows.Close()

	var entries []*model.PendingSync
	for rows.Next() {
		entry, err := scanPendingSync(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrStore, "failed to scan pending sync", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// IncrementPendingAttempts bumps the attempt counter and stamps
// last_attempt. An entry already removed by a concurrent success is a
// silent no-op.
func (s *Store) IncrementPendingAttempts(id int64) error {
	_, err := s.db.Exec(
		"UPDATE pending_syncs SET attempts = attempts + 1, last_attempt = ? WHERE id = ?",
		s.now(), id)
	if err != nil {
		return apperr.Wrap(apperr.ErrStore, "failed to increment pending attempts", err)
	}
	return nil
}

// DeletePendingSync removes an entry. Deleting an already-removed id is
// not an error.
func (s *Store) DeletePendingSync(id int64) error {
	if _, err := s.db.Exec("DELETE FROM pending_syncs WHERE id = ?", id); err != nil {
		return apperr.Wrap(apperr.ErrStore, "failed to delete pending sync", err)
	}
	return nil
}

// CountPendingSyncs returns the number of queued entries.
func (s *Store) CountPendingSyncs() (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM pending_syncs").Scan(&n); err != nil {
		return 0, apperr.Wrap(apperr.ErrStore, "failed to count pending syncs", err)
	}
	return n, nil
}

func scanPendingSync(row rowScanner) (*model.PendingSync, error) {
	var entry model.PendingSync
	var data string
	err := row.Scan(&entry.ID, &entry.Type, &data, &entry.Attempts,
		&entry.LastAttempt, &entry.IdempotencyKey, &entry.CreatedAt)
	if err != nil {
		return nil, err
	}
	entry.Data = json.RawMessage(data)
	return &entry, nil
}
