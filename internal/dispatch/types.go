package dispatch

import (
	"time"

	"github.com/ignite/relay-gateway/internal/mailer"
	"github.com/ignite/relay-gateway/internal/report"
)

// SendRequest is a validated single-send payload.
type SendRequest struct {
	From        string
	To          []string
	Subject     string
	Text        string
	HTML        string
	Attachments []mailer.Attachment
}

// Recipient is one bulk-send target with its substitution values.
// Request-scoped: built from the request body, discarded after the
// response.
type Recipient struct {
	Email string            `json:"email"`
	Data  map[string]string `json:"data,omitempty"`
}

// BulkJob is a validated bulk-send payload. Recipients are processed
// independently; no recipient's outcome affects another's.
type BulkJob struct {
	From       string
	Subject    string // subject template ({{key}} placeholders)
	Template   string // body template
	SharedData map[string]string
	Recipients []Recipient
}

// Outcome is the per-recipient result of a bulk send: exactly one per
// input recipient, in either the success or the failed list.
type Outcome struct {
	Email     string `json:"email"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// BatchResult aggregates a bulk send. Successful + Failed == Total always
// holds; list order is completion order, not input order.
type BatchResult struct {
	Total      int           `json:"total"`
	Successful int           `json:"successful"`
	Failed     int           `json:"failed"`
	Results    BatchOutcomes `json:"results"`
}

// BatchOutcomes partitions bulk outcomes for the response body.
type BatchOutcomes struct {
	Success []Outcome `json:"success"`
	Failed  []Outcome `json:"failed"`
}

// ReportRequest is a validated report-send payload.
type ReportRequest struct {
	ReportType  string
	Cluster     string
	Recipients  []string
	Data        report.Data
	Subject     string // optional; defaulted from type/cluster/date
	From        string // optional; defaulted to the system sender
	Attachments []mailer.Attachment
}

// ReportReceipt is returned for an accepted report send.
type ReportReceipt struct {
	MessageID   string
	Response    string
	ReportType  string
	Cluster     string
	GeneratedAt time.Time
}

// PoolStatus is the queue status query result. A failing health check is
// reported as a degraded status value, never as an operation error.
type PoolStatus struct {
	Status         string `json:"status"`
	Error          string `json:"error,omitempty"`
	PoolSize       int    `json:"poolSize"`
	MaxConnections int    `json:"maxConnections"`
}
