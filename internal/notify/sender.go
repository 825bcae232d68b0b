package notify

import (
	"bytes"         // Request body buffer
	"context"       // Context for transport calls
	"encoding/json" // Payload encoding
	"fmt"           // Error wrapping
	"net/http"      // Push provider HTTP API
)

// Message is the payload handed to the push transport.
type Message struct {
	Title string `json:"title"` // Notification title
	Body  string `json:"body"`  // Notification body
	Link  string `json:"link"`  // Link opened on tap
}

// Sender delivers one message to one device endpoint. Implementations must
// treat delivery failure as a per-endpoint outcome, never a panic.
type Sender interface {
	Send(ctx context.Context, token string, msg Message) error
}

// FCMSender posts messages to the Firebase Cloud Messaging HTTP API.
type FCMSender struct {
	Endpoint  string       // Provider URL
	ServerKey string       // Authorization key
	Client    *http.Client // HTTP client with per-call timeout
}

// fcmRequest is the provider wire format.
type fcmRequest struct {
	To           string  `json:"to"`           // Device token
	Notification Message `json:"notification"` // Display payload
}

// Send posts the message for a single device token. A non-2xx status is a
// delivery failure.
func (s *FCMSender) Send(ctx context.Context, token string, msg Message) error {
	payload, err := json.Marshal(fcmRequest{To: token, Notification: msg})
	if err != nil {
		return fmt.Errorf("encode push payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build push request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "key="+s.ServerKey)
	resp, err := s.Client.Do(req)
	if err != nil {
		return fmt.Errorf("push transport: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push transport: provider status %d", resp.StatusCode)
	}
	return nil
}
