package store

import (
	"database/sql"
	"encoding/json"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

// SetSetting stores value (JSON-marshaled) under key, replacing any
// previous value.
func (s *Store) SetSetting(key string, value interface{}) error {
	if key == "" {
		return apperr.New(apperr.ErrValidation, "setting key is required")
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return apperr.Wrap(apperr.ErrInvalid, "failed to marshal setting value", err)
	}

	_, err = s.db.Exec(`
	INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, string(raw), s.now())
	if err != nil {
		return apperr.Wrap(apperr.ErrStore, "failed to set setting", err)
	}
	return nil
}

// GetSetting unmarshals the value stored under key into dest. The second
// return value reports whether the key existed; an absent key is not an
// error.
func (s *Store) GetSetting(key string, dest interface{}) (bool, error) {
	var raw string
	err := s.db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&raw)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, apperr.Wrap(apperr.ErrStore, "failed to get setting", err)
	}

	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, apperr.Wrap(apperr.ErrInvalid, "failed to unmarshal setting value", err)
	}
	return true, nil
}

// DeleteSetting removes a setting. Unknown keys are not an error.
func (s *Store) DeleteSetting(key string) error {
	if _, err := s.db.Exec("DELETE FROM settings WHERE key = ?", key); err != nil {
		return apperr.Wrap(apperr.ErrStore, "failed to delete setting", err)
	}
	return nil
}

// AllSettings returns every stored setting as a key to raw JSON value map.
func (s *Store) AllSettings() (map[string]json.RawMessage, error) {
	rows, err := s.db.Query("SELECT key, value FROM settings ORDER BY key")
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrStore, "failed to list settings", err)
	}
	defer rows.Close()

	settings := make(map[string]json.RawMessage)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, apperr.Wrap(apperr.ErrStore, "failed to scan setting", err)
		}
		settings[key] = json.RawMessage(raw)
	}
	return settings, rows.Err()
}

// APIConfig returns the persisted remote API configuration merged over
// the built-in defaults.
func (s *Store) APIConfig() (model.APIConfig, error) {
	cfg := model.DefaultAPIConfig()
	if _, err := s.GetSetting(model.SettingAPIConfig, &cfg); err != nil {
		return cfg, err
	}
	if cfg.TimeoutMs <= 0 {
		cfg.TimeoutMs = model.DefaultAPIConfig().TimeoutMs
	}
	if cfg.RetryAttempts <= 0 {
		cfg.RetryAttempts = model.DefaultAPIConfig().RetryAttempts
	}
	if cfg.RetryDelayMs <= 0 {
		cfg.RetryDelayMs = model.DefaultAPIConfig().RetryDelayMs
	}
	return cfg, nil
}

// AuthToken returns the stored bearer token, or "" when logged out.
func (s *Store) AuthToken() (string, error) {
	var token string
	ok, err := s.GetSetting(model.SettingAuthToken, &token)
	if err != nil || !ok {
		return "", err
	}
	return token, nil
}
