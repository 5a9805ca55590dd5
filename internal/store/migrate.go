package store

import (
	"crypto/sha256"
	"database/sql"
	"embed"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/rpacode/edlsync/internal/apperr"
)

//go:embed migrations/*.up.sql
var migrationFS embed.FS

// Migration records one applied schema migration.
type Migration struct {
	Version     int
	AppliedAt   int64
	Description string
	Checksum    string
}

// migrate brings the schema up to the latest embedded version. Upgrades
// are additive only; an existing database never has records altered or
// dropped by a migration.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version     INTEGER PRIMARY KEY CHECK(version > 0),
		applied_at  INTEGER NOT NULL CHECK(applied_at > 0),
		description TEXT NOT NULL CHECK(length(description) > 0),
		checksum    TEXT NOT NULL CHECK(length(checksum) = 64)
	);`); err != nil {
		return apperr.Wrap(apperr.ErrMigration, "failed to create schema_migrations", err)
	}

	applied, err := s.AppliedMigrations()
	if err != nil {
		return apperr.Wrap(apperr.ErrMigration, "failed to read applied migrations", err)
	}
	appliedVersions := make(map[int]bool, len(applied))
	for _, m := range applied {
		appliedVersions[m.Version] = true
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return apperr.Wrap(apperr.ErrMigration, "failed to read embedded migrations", err)
	}

	type pending struct {
		version int
		name    string
	}
	var pendings []pending
	for _, entry := range entries {
		name := entry.Name()
		version, ok := parseMigrationVersion(name)
		if !ok {
			continue
		}
		if appliedVersions[version] {
			continue
		}
		pendings = append(pendings, pending{version, name})
	}

	sort.Slice(pendings, func(i, j int) bool {
		return pendings[i].version < pendings[j].version
	})

	for _, p := range pendings {
		if err := s.applyMigration(p.version, p.name); err != nil {
			return apperr.Wrap(apperr.ErrMigration,
				fmt.Sprintf("failed to apply migration V%d", p.version), err)
		}
	}

	return nil
}

// SchemaVersion returns the current schema version (0 for a fresh database
// before any migration ran).
func (s *Store) SchemaVersion() (int, error) {
	var version int
	err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version)
	return version, err
}

// AppliedMigrations returns all applied migrations in version order.
func (s *Store) AppliedMigrations() ([]Migration, error) {
	rows, err := s.db.Query("SELECT version, applied_at, description, checksum FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var migrations []Migration
	for rows.Next() {
		var m Migration
		if err := rows.Scan(&m.Version, &m.AppliedAt, &m.Description, &m.Checksum); err != nil {
			return nil, err
		}
		migrations = append(migrations, m)
	}
	return migrations, rows.Err()
}

func (s *Store) applyMigration(version int, name string) error {
	script, err := migrationFS.ReadFile("migrations/" + name)
	if err != nil {
		return err
	}

	sum := sha256.Sum256(script)
	checksum := hex.EncodeToString(sum[:])
	description := migrationDescription(name)

	return s.execTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(string(script)); err != nil {
			return err
		}
		_, err := tx.Exec(
			"INSERT INTO schema_migrations (version, applied_at, description, checksum) VALUES (?, ?, ?, ?)",
			version, s.now(), description, checksum,
		)
		return err
	})
}

// parseMigrationVersion extracts N from "VN__description.up.sql".
func parseMigrationVersion(name string) (int, bool) {
	if !strings.HasSuffix(name, ".up.sql") {
		return 0, false
	}
	parts := strings.SplitN(strings.TrimSuffix(name, ".up.sql"), "__", 2)
	if len(parts) < 2 || !strings.HasPrefix(parts[0], "V") {
		return 0, false
	}
	version, err := strconv.Atoi(strings.TrimPrefix(parts[0], "V"))
	if err != nil || version <= 0 {
		return 0, false
	}
	return version, true
}

func migrationDescription(name string) string {
	parts := strings.SplitN(strings.TrimSuffix(name, ".up.sql"), "__", 2)
	if len(parts) < 2 {
		return name
	}
	return strings.ReplaceAll(parts[1], "_", " ")
}
