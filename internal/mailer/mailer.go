// Package mailer contains the relay transports behind the dispatch engine.
//
// Implementations are split into individual files:
//   - smtp.go: pooled SMTP connections to the relay (default vendor)
//   - ses.go:  AWS SES v2 (vendor "ses")
//   - mime.go: raw RFC 5322 message assembly shared by both
package mailer

import (
	"context"
	"fmt"
)

// Mailer delivers a single message to the relay. Implementations are safe
// for concurrent use; delivery failures are reported per call and never
// retried internally; retry policy belongs to the relay's own queueing.
type Mailer interface {
	Deliver(ctx context.Context, msg *Message) (*Receipt, error)
	// HealthCheck performs a lightweight protocol handshake without
	// sending a message. Used by the readiness probe.
	HealthCheck(ctx context.Context) error
}

// PoolStats is implemented by pooled transports that can report
// connection counts for the queue status endpoint.
type PoolStats interface {
	OpenConnections() int
	MaxConnections() int
}

// Message is a fully rendered email ready for delivery.
type Message struct {
	From        string
	To          []string
	Subject     string
	TextBody    string
	HTMLBody    string
	Attachments []Attachment
}

// Attachment is a binary blob attached to a message.
type Attachment struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Receipt is returned for an accepted delivery: the message identifier and
// the relay's raw final response line.
type Receipt struct {
	MessageID string
	Response  string
}

// TransportError reports a pool or relay failure: connection refused, auth
// rejected, or the message rejected by the relay.
type TransportError struct {
	Op     string // "connect", "auth", "deliver", "healthcheck"
	Reason string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s", e.Op, e.Reason)
}
