package gizmo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ActiveSession is one logged-in computer session reported by the
// center-management system.
type ActiveSession struct {
	UserSessionID int64 `json:"userSessionId"`
	UserID        int64 `json:"userId"`
	HostID        int64 `json:"hostId"`
}

// SessionSource reports which accounts currently hold an active computer
// session. Implemented by Client; faked in tests.
type SessionSource interface {
	ActiveSessions(ctx context.Context) ([]ActiveSession, error)
}

// Config holds the Gizmo API client configuration
type Config struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Client talks to the Gizmo center-management REST API
type Client struct {
	baseURL  string
	username string
	password string
	client   *http.Client
}

// NewClient creates a new Gizmo API client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:  cfg.BaseURL,
		username: cfg.Username,
		password: cfg.Password,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// activeSessionsResponse is the Gizmo envelope for the active-sessions call
type activeSessionsResponse struct {
	Result         []ActiveSession `json:"result"`
	HTTPStatusCode int             `json:"httpStatusCode"`
	Message        string          `json:"message"`
}

// ActiveSessions returns all currently active computer sessions
func (c *Client) ActiveSessions(ctx context.Context) ([]ActiveSession, error) {
	url := fmt.Sprintf("%s/api/usersessions/activeinfo", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create sessions request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch active sessions: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read sessions response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("sessions request failed with status %d", resp.StatusCode)
	}

	var parsed activeSessionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse sessions response: %w", err)
	}

	return parsed.Result, nil
}
