package webpush

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Payload is the notification body handed to the push-delivery service
type Payload struct {
	Title   string                 `json:"title"`
	Body    string                 `json:"body"`
	Tag     string                 `json:"tag,omitempty"`
	Data    map[string]interface{} `json:"data,omitempty"`
	Actions []Action               `json:"actions,omitempty"`
}

// Action is one notification action button
type Action struct {
	Action string `json:"action"`
	Title  string `json:"title"`
}

// Subscription identifies one browser push endpoint
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Sender delivers a payload to a single push endpoint. Errors are reported
// to the caller for counting; a Sender never panics.
type Sender interface {
	Send(ctx context.Context, sub Subscription, payload Payload) error
}

// Config holds the push relay configuration
type Config struct {
	GatewayURL      string
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subject         string
	Timeout         time.Duration
}

// Client delivers web-push messages through the push relay service
type Client struct {
	gatewayURL   string
	vapidPublic  string
	vapidPrivate string
	subject      string
	client       *http.Client
}

// NewClient creates a new push relay client
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		gatewayURL:   cfg.GatewayURL,
		vapidPublic:  cfg.VAPIDPublicKey,
		vapidPrivate: cfg.VAPIDPrivateKey,
		subject:      cfg.Subject,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// sendRequest is the relay wire format
type sendRequest struct {
	Subscription Subscription `json:"subscription"`
	Payload      Payload      `json:"payload"`
	VAPIDPublic  string       `json:"vapid_public_key"`
	VAPIDPrivate string       `json:"vapid_private_key"`
	Subject      string       `json:"subject"`
}

// sendResponse is the relay reply envelope
type sendResponse struct {
	Status  string `json:"status"`
	Comment string `json:"comment,omitempty"`
}

// Send delivers one payload to one endpoint through the relay
func (c *Client) Send(ctx context.Context, sub Subscription, payload Payload) error {
	body, err := json.Marshal(sendRequest{
		Subscription: sub,
		Payload:      payload,
		VAPIDPublic:  c.vapidPublic,
		VAPIDPrivate: c.vapidPrivate,
		Subject:      c.subject,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push request: %w", err)
	}

	url := fmt.Sprintf("%s/send", c.gatewayURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("push endpoint gone: status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("push request failed with status %d", resp.StatusCode)
	}

	var parsed sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		// Some push services reply with an empty body on success
		return nil
	}
	if parsed.Status != "" && parsed.Status != "success" && parsed.Status != "ok" {
		return fmt.Errorf("push delivery rejected: %s", parsed.Comment)
	}

	return nil
}

// NoopSender is used when push delivery is disabled. Every send silently
// succeeds, keeping notification triggers harmless in development.
type NoopSender struct{}

// Send implements Sender
func (NoopSender) Send(ctx context.Context, sub Subscription, payload Payload) error {
	return nil
}
