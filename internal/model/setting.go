package model

import "encoding/json"

// Well-known settings keys. Free-form preference keys are allowed beside
// these.
const (
	SettingAPIConfig         = "apiConfig"
	SettingAuthToken         = "authToken"
	SettingUserInfo          = "userInfo"
	SettingAppVersion        = "appVersion"
	SettingAutoSync          = "autoSync"
	SettingNotifications     = "notifications"
	SettingOfflineMode       = "offlineMode"
	SettingDataRetentionDays = "dataRetentionDays"
)

// Setting is a generic key/value pair. Values are stored as JSON so a
// key can hold anything from a string token to a config object.
type Setting struct {
	Key       string          `db:"key" json:"key"`
	Value     json.RawMessage `db:"value" json:"value"`
	UpdatedAt int64           `db:"updated_at" json:"updatedAt"`
}

// TableName returns the table name for Setting.
func (Setting) TableName() string {
	return "settings"
}

// APIConfig holds the remote API connection parameters, persisted under
// the apiConfig settings key.
type APIConfig struct {
	BaseURL       string `json:"baseUrl"`
	TimeoutMs     int    `json:"timeout"`
	RetryAttempts int    `json:"retryAttempts"`
	RetryDelayMs  int    `json:"retryDelay"`
}

// DefaultAPIConfig returns the built-in remote API defaults.
func DefaultAPIConfig() APIConfig {
	return APIConfig{
		TimeoutMs:     30000,
		RetryAttempts: 3,
		RetryDelayMs:  1000,
	}
}

// UserInfo is the cached remote user identity returned by the auth
// endpoint.
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
