package webpush

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSend(t *testing.T) {
	sub := Subscription{
		Endpoint: "https://push.example/endpoint",
		P256dh:   "pub-key",
		Auth:     "auth-secret",
	}
	payload := Payload{
		Title: "You're next!",
		Body:  "Head to the front desk.",
		Tag:   "queue-next",
	}

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/send", r.URL.Path)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

			var req sendRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, sub.Endpoint, req.Subscription.Endpoint)
			assert.Equal(t, "queue-next", req.Payload.Tag)
			assert.Equal(t, "vapid-pub", req.VAPIDPublic)
			assert.Equal(t, "mailto:info@pixelarena.gg", req.Subject)

			json.NewEncoder(w).Encode(sendResponse{Status: "success"})
		}))
		defer server.Close()

		client := NewClient(Config{
			GatewayURL:      server.URL,
			VAPIDPublicKey:  "vapid-pub",
			VAPIDPrivateKey: "vapid-priv",
			Subject:         "mailto:info@pixelarena.gg",
		})

		err := client.Send(context.Background(), sub, payload)
		assert.NoError(t, err)
	})

	t.Run("Empty Body Counts As Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := NewClient(Config{GatewayURL: server.URL})

		err := client.Send(context.Background(), sub, payload)
		assert.NoError(t, err)
	})

	t.Run("Endpoint Gone", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusGone)
		}))
		defer server.Close()

		client := NewClient(Config{GatewayURL: server.URL})

		err := client.Send(context.Background(), sub, payload)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "push endpoint gone")
	})

	t.Run("Relay Rejection", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(sendResponse{Status: "error", Comment: "bad VAPID keys"})
		}))
		defer server.Close()

		client := NewClient(Config{GatewayURL: server.URL})

		err := client.Send(context.Background(), sub, payload)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "bad VAPID keys")
	})

	t.Run("Server Error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		client := NewClient(Config{GatewayURL: server.URL})

		err := client.Send(context.Background(), sub, payload)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "status 500")
	})
}

func TestNoopSender(t *testing.T) {
	err := NoopSender{}.Send(context.Background(), Subscription{}, Payload{Title: "ignored"})
	assert.NoError(t, err)
}
