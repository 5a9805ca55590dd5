package remote

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rpacode/edlsync/internal/apperr"
	"github.com/rpacode/edlsync/internal/model"
)

// CheckStatus probes GET /health. Any 2xx means the remote service is
// reachable.
func (c *Client) CheckStatus(ctx context.Context) bool {
	return c.Send(ctx, http.MethodGet, "/health", nil, nil).Success
}

// Credentials are the login parameters for the auth endpoint.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string          `json:"token"`
	User  *model.UserInfo `json:"user"`
}

// Authenticate logs in against POST /auth/login and persists the bearer
// token and user info into settings on success.
func (c *Client) Authenticate(ctx context.Context, creds Credentials) (*model.UserInfo, error) {
	res := c.Send(ctx, http.MethodPost, "/auth/login", creds, nil)
	if !res.Success {
		return nil, apperr.New(apperr.ErrAuthFailed, res.Error)
	}

	var auth authResponse
	if err := json.Unmarshal(res.Data, &auth); err != nil {
		return nil, apperr.Wrap(apperr.ErrAuthFailed, "malformed auth response", err)
	}
	if auth.Token == "" {
		return nil, apperr.New(apperr.ErrAuthFailed, "invalid credentials")
	}

	if err := c.settings.SetSetting(model.SettingAuthToken, auth.Token); err != nil {
		return nil, err
	}
	if auth.User != nil {
		if err := c.settings.SetSetting(model.SettingUserInfo, auth.User); err != nil {
			return nil, err
		}
	}

	return auth.User, nil
}

// Logout discards the stored token and cached user info.
func (c *Client) Logout() error {
	if err := c.settings.DeleteSetting(model.SettingAuthToken); err != nil {
		return err
	}
	return c.settings.DeleteSetting(model.SettingUserInfo)
}

// GetEDL looks an EDL up on the remote service.
func (c *Client) GetEDL(ctx context.Context, edlNumber string) (*model.EDL, error) {
	res := c.Send(ctx, http.MethodGet, "/edls/"+url.PathEscape(edlNumber), nil, nil)
	if !res.Success {
		return nil, apperr.New(apperr.ErrRemoteStatus, res.Error)
	}

	var edl model.EDL
	if err := json.Unmarshal(res.Data, &edl); err != nil {
		return nil, apperr.Wrap(apperr.ErrRemoteStatus, "malformed edl response", err)
	}
	return &edl, nil
}

// SubmitInspection delivers an inspection snapshot to POST /inspections.
// The idempotency key rides along as a header so the remote side can
// drop duplicates.
func (c *Client) SubmitInspection(ctx context.Context, data json.RawMessage, idempotencyKey string) Result {
	var headers http.Header
	if idempotencyKey != "" {
		headers = http.Header{HeaderIdempotencyKey: []string{idempotencyKey}}
	}
	return c.Send(ctx, http.MethodPost, "/inspections", data, headers)
}

// GetReports fetches GET /reports with the given filters as query
// parameters.
func (c *Client) GetReports(ctx context.Context, filters map[string]string) (json.RawMessage, error) {
	path := "/reports"
	if len(filters) > 0 {
		values := url.Values{}
		for k, v := range filters {
			values.Set(k, v)
		}
		path += "?" + values.Encode()
	}

	res := c.Send(ctx, http.MethodGet, path, nil, nil)
	if !res.Success {
		return nil, apperr.New(apperr.ErrRemoteStatus, res.Error)
	}
	return res.Data, nil
}

// Feedback is a user report delivered to POST /feedback.
type Feedback struct {
	Message   string `json:"message"`
	Category  string `json:"category,omitempty"`
	Timestamp string `json:"timestamp"`
}

// SendFeedback delivers feedback, stamping the submission time.
func (c *Client) SendFeedback(ctx context.Context, fb Feedback) bool {
	fb.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return c.Send(ctx, http.MethodPost, "/feedback", fb, nil).Success
}

// UpdateInfo describes the result of an app-version check.
type UpdateInfo struct {
	HasUpdate      bool            `json:"hasUpdate"`
	CurrentVersion string          `json:"currentVersion,omitempty"`
	LatestVersion  string          `json:"latestVersion,omitempty"`
	ReleaseInfo    json.RawMessage `json:"releaseInfo,omitempty"`
}

type versionResponse struct {
	Version string `json:"version"`
}

// CheckForUpdates compares GET /app/version against the locally stored
// app version.
func (c *Client) CheckForUpdates(ctx context.Context) (*UpdateInfo, error) {
	res := c.Send(ctx, http.MethodGet, "/app/version", nil, nil)
	if !res.Success {
		return nil, apperr.New(apperr.ErrRemoteStatus, res.Error)
	}

	var vr versionResponse
	if err := json.Unmarshal(res.Data, &vr); err != nil {
		return nil, apperr.Wrap(apperr.ErrRemoteStatus, "malformed version response", err)
	}

	current := "1.0.0"
	if _, err := c.settings.GetSetting(model.SettingAppVersion, &current); err != nil {
		return nil, err
	}

	if isNewerVersion(vr.Version, current) {
		return &UpdateInfo{
			HasUpdate:      true,
			CurrentVersion: current,
			LatestVersion:  vr.Version,
			ReleaseInfo:    res.Data,
		}, nil
	}
	return &UpdateInfo{HasUpdate: false, CurrentVersion: current}, nil
}

// isNewerVersion compares dotted numeric versions segment by segment;
// missing segments count as zero.
func isNewerVersion(latest, current string) bool {
	latestParts := strings.Split(latest, ".")
	currentParts := strings.Split(current, ".")

	n := len(latestParts)
	if len(currentParts) > n {
		n = len(currentParts)
	}

	for i := 0; i < n; i++ {
		lp := versionPart(latestParts, i)
		cp := versionPart(currentParts, i)
		if lp > cp {
			return true
		}
		if lp < cp {
			return false
		}
	}
	return false
}

func versionPart(parts []string, i int) int {
	if i >= len(parts) {
		return 0
	}
	n, _ := strconv.Atoi(parts[i])
	return n
}
