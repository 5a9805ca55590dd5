package store

import (
	"database/sql"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

const inspectionColumns = `id, edl_number, inspector_id, installation_site, address,
	responsible, exchange_type, water_level, occurrence_type, observations,
	status, created_at, updated_at`

// CreateInspection stores a new inspection with an auto-assigned id.
// Every new inspection starts in pending_sync status regardless of what
// the caller filled in; only the sync engine advances it to synced.
func (s *Store) CreateInspection(insp *model.Inspection) (*model.Inspection, error) {
	now := s.now()
	insp.Status = model.InspectionStatusPendingSync
	insp.CreatedAt = now
	insp.UpdatedAt = now

	res, err := s.db.Exec(`
	INSERT INTO inspections (edl_number, inspector_id, installation_site, address,
		responsible, exchange_type, water_level, occurrence_type, observations,
		status, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		insp.EDLNumber, insp.InspectorID, insp.InstallationSite, insp.Address,
		insp.Responsible, insp.ExchangeType, insp.WaterLevel, insp.OccurrenceType,
		insp.Observations, insp.Status, insp.CreatedAt, insp.UpdatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to create inspection", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to read inspection id", err)
	}
	insp.ID = id

	return insp, nil
}

// GetInspection returns the inspection with the given id, or (nil, nil)
// when absent.
func (s *Store) GetInspection(id int64) (*model.Inspection, error) {
	row := s.db.QueryRow(
		"SELECT "+inspectionColumns+" FROM inspections WHERE id = ?", id)

	insp, err := scanInspection(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to get inspection", err)
	}
	return insp, nil
}

// ListInspections returns all inspections in insertion order.
func (s *Store) ListInspections() ([]*model.Inspection, error) {
	return s.queryInspections(
		"SELECT " + inspectionColumns + " FROM inspections ORDER BY id")
}

// ListInspectionsByEDL returns the inspections referencing an EDL number.
func (s *Store) ListInspectionsByEDL(edlNumber string) ([]*model.Inspection, error) {
	return s.queryInspections(
		"SELECT "+inspectionColumns+" FROM inspections WHERE edl_number = ? ORDER BY id", edlNumber)
}

// ListInspectionsByInspector returns the inspections filed by an inspector.
func (s *Store) ListInspectionsByInspector(inspectorID string) ([]*model.Inspection, error) {
	return s.queryInspections(
		"SELECT "+inspectionColumns+" FROM inspections WHERE inspector_id = ? ORDER BY id", inspectorID)
}

// ListInspectionsByStatus returns the inspections in the given status.
func (s *Store) ListInspectionsByStatus(status string) ([]*model.Inspection, error) {
	return s.queryInspections(
		"SELECT "+inspectionColumns+" FROM inspections WHERE status = ? ORDER BY id", status)
}

// UpdateInspectionStatus advances an inspection's lifecycle status and
// stamps updated_at. Returns INSPECTION_NOT_FOUND when the id is unknown.
func (s *Store) UpdateInspectionStatus(id int64, status string) (*model.Inspection, error) {
	var updated *model.Inspection

	err := s.execTx(func(tx *sql.Tx) error {
		row := tx.QueryRow(
			"SELECT "+inspectionColumns+" FROM inspections WHERE id = ?", id)
		insp, err := scanInspection(row)
		if err == sql.ErrNoRows {
			return apperr.Newf(apperr.ErrInspectionNotFound, "inspection %d not found", id)
		}
		if err != nil {
			return err
		}

		insp.Status = status
		insp.UpdatedAt = s.now()

		if _, err := tx.Exec(
			"UPDATE inspections SET status = ?, updated_at = ? WHERE id = ?",
			insp.Status, insp.UpdatedAt, id); err != nil {
			return err
		}

		updated = insp
		return nil
	})
	if err != nil {
		if apperr.IsNotFound(err) {
			return nil, err
		}
		return nil, apperr.Wrap(apperr.ErrStore, "failed to update inspection status", err)
	}

	return updated, nil
}

// DeleteInspection removes an inspection. Unknown ids are not an error.
func (s *Store) DeleteInspection(id int64) error {
	if _, err := s.db.Exec("DELETE FROM inspections WHERE id = ?", id); err != nil {
		return apperr.Wrap(apperr.ErrStore, "failed to delete inspection", err)
	}
	return nil
}

func scanInspection(row rowScanner) (*model.Inspection, error) {
	var insp model.Inspection
	err := row.Scan(&insp.ID, &insp.EDLNumber, &insp.InspectorID,
		&insp.InstallationSite, &insp.Address, &insp.Responsible,
		&insp.ExchangeType, &insp.WaterLevel, &insp.OccurrenceType,
		&insp.Observations, &insp.Status, &insp.CreatedAt, &insp.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &insp, nil
}

func (s *Store) queryInspections(query string, args ...interface{}) ([]*model.Inspection, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to list inspections", err)
	}
	defer rows.Close()

	var insps []*model.Inspection
	for rows.Next() {
		insp, err := scanInspection(rows)
		if err != nil {
			return nil, apperr.Wrap(apperr.ErrStore, "failed to scan inspection", err)
		}
		insps = append(insps, insp)
	}
	return insps, rows.Err()
}
