package store

import (
	"database/sql"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

const edlColumns = "edl_number, location, responsible, description, status, created_at, updated_at"

// PutEDL inserts or replaces an EDL keyed by its number. The stored
// creation timestamp survives re-puts; everything else reflects the
// latest call. Status defaults to active when empty.
func (s *Store) PutEDL(edl *model.EDL) (*model.EDL, error) {
	if edl.EDLNumber == "" {
		return nil, apperr.New(apperr.ErrValidation, "edl number is required")
	}
	if edl.Status == "" {
		edl.Status = model.EDLStatusActive
	}

	now := s.now()
	edl.CreatedAt = now
	edl.UpdatedAt = now

	query := `
	INSERT INTO edls (` + edlColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(edl_number) DO UPDATE SET
		location    = excluded.location,
		responsible = excluded.responsible,
		description = excluded.description,
		status      = excluded.status,
		updated_at  = excluded.updated_at
	`
	if _, err := s.db.Exec(query, edl.EDLNumber, edl.Location, edl.Responsible,
		edl.Description, edl.Status, edl.CreatedAt, edl.UpdatedAt); err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to put edl", err)
	}

	return s.GetEDL(edl.EDLNumber)
}

// GetEDL returns the EDL with the given number, or (nil, nil) when absent.
func (s *Store) GetEDL(edlNumber string) (*model.EDL, error) {
	row := s.db.QueryRow(
		"SELECT "+edlColumns+" FROM edls WHERE edl_number = ?", edlNumber)

	edl, err := scanEDL(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to get edl", err)
	}
	return edl, nil
}

// ListEDLs returns all EDLs in insertion order.
func (s *Store) ListEDLs() ([]*model.EDL, error) {
	return s.queryEDLs("SELECT " + edlColumns + " FROM edls ORDER BY rowid")
}

// ListEDLsByStatus returns EDLs with the given status in insertion order.
func (s *Store) ListEDLsByStatus(status string) ([]*model.EDL, error) {
	return s.queryEDLs(
		"SELECT "+edlColumns+" FROM edls WHERE status = ? ORDER BY rowid", status)
}

// ListEDLsByLocation returns EDLs at the given location in insertion order.
func (s *Store) ListEDLsByLocation(location string) ([]*model.EDL, error) {
	return s.queryEDLs(
		"SELECT "+edlColumns+" FROM edls WHERE location = ? ORDER BY rowid", location)
}

// UpdateEDL merges patch into an existing EDL and stamps updated_at.
// Returns an EDL_NOT_FOUND error when the number is unknown. The
// read-merge-write runs in one transaction so concurrent updates to the
// same key cannot produce a lost update.
func (s *Store) UpdateEDL(edlNumber string, patch model.EDLPatch) (*model.EDL, error) {
	var updated *model.EDL

	err := s.execTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			"SELECT "+edlColumns+" FROM edls WHERE edl_number = ?", edlNumber)
		edl, err := scanEDL(row)
		if err == sql.ErrNoRows {
			return apperr.Newf(apperr.ErrEDLNotFound, "edl %s not found", edlNumber)
		}
		if err != nil {
			return err
		}

		if patch.Location != nil {
			edl.Location = *patch.Location
		}
		if patch.Responsible != nil {
			edl.Responsible = *patch.Responsible
		}
		if patch.Description != nil {
			edl.Description = *patch.Description
		}
		if patch.Status != nil {
			edl.Status = *patch.Status
		}
		edl.UpdatedAt = s.now()

		_, err = tx.Exec(`
			UPDATE edls SET location = ?, responsible = ?, description = ?, status = ?, updated_at = ?
			WHERE edl_number = ?`,
			edl.Location, edl.Responsible, edl.Description, edl.Status, edl.UpdatedAt, edlNumber)
		if err != nil {
			return err
		}

		updated = edl
		return nil
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.ErrStore, "failed to update edl", err)
	}

	return updated, nil
}

// DeleteEDL removes an EDL. Deleting an unknown number is not an error.
func (s *Store) DeleteEDL(edlNumber string) error {
	if _, err := s.db.Exec("DELETE FROM edls WHERE edl_number = ?", edlNumber); err != nil {
		return apperr.Wrap(apperr.ErrStore, "failed to delete edl", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEDL(row rowScanner) (*model.EDL, error) {
	var edl model.EDL
	err := row.Scan(&edl.EDLNumber, &edl.Location, &edl.Responsible,
		&edl.Description, &edl.Status, &edl.CreatedAt, &edl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &edl, nil
}

func (s *Store) queryEDLs(query string, args ...interface{}) ([]*model.EDL, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to list edls", err)
	}
	defer rows.Close()

	var edls []*model.EDL
	for rows.Next() {
		edl, err := scanEDL(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrStore, "failed to scan edl", err)
		}
		edls = append(edls, edl)
	}
	return edls, rows.Err()
}
