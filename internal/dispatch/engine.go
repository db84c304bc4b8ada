// Package dispatch orchestrates the send workflows on top of the mailer
// pool and the renderers: single send, templated bulk send with
// per-recipient failure isolation, and report send.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ignite/relay-gateway/internal/mailer"
	"github.com/ignite/relay-gateway/internal/pkg/logger"
	"github.com/ignite/relay-gateway/internal/report"
	"github.com/ignite/relay-gateway/internal/template"
)

// Recorder receives one call per delivery outcome for the delivery log.
// Implementations must be best-effort: a recording failure never fails a
// send.
type Recorder interface {
	RecordDelivery(ctx context.Context, kind, recipient, messageID, status, reason string)
}

// Engine is stateless between invocations; all shared state lives in the
// injected mailer.
type Engine struct {
	mailer     mailer.Mailer
	recorder   Recorder
	systemFrom string
	workers    int
}

// NewEngine creates a dispatch engine. workers bounds bulk-send fan-out
// and usually matches the mailer pool size.
func NewEngine(m mailer.Mailer, systemFrom string, workers int) *Engine {
	if workers <= 0 {
		workers = mailer.DefaultPoolSize
	}
	return &Engine{mailer: m, systemFrom: systemFrom, workers: workers}
}

// SetRecorder attaches the delivery log sink.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// Send delivers one fully specified message. A TransportError surfaces as
// the operation failure; there is no partial state to clean up.
func (e *Engine) Send(ctx context.Context, req *SendRequest) (*mailer.Receipt, error) {
	receipt, err := e.mailer.Deliver(ctx, &mailer.Message{
		From:        req.From,
		To:          req.To,
		Subject:     req.Subject,
		TextBody:    req.Text,
		HTMLBody:    req.HTML,
		Attachments: req.Attachments,
	})
	recipients := strings.Join(req.To, ",")
	if err != nil {
		e.record(ctx, "single", recipients, "", "failed", failureReason(err))
		return nil, err
	}
	e.record(ctx, "single", recipients, receipt.MessageID, "sent", "")
	return receipt, nil
}

// SendBulk fans the job out across recipients, up to `workers` deliveries
// in flight at once. Every input recipient produces exactly one outcome;
// a failing recipient never aborts the rest. Outcome lists are in
// completion order.
func (e *Engine) SendBulk(ctx context.Context, job *BulkJob) *BatchResult {
	outcomes := make(chan Outcome, len(job.Recipients))
	sem := make(chan struct{}, e.workers)
	var wg sync.WaitGroup

	for _, rcpt := range job.Recipients {
		wg.Add(1)
		go func(rcpt Recipient) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				// Abandoned before dispatch; still accounted for so the
				// partition invariant holds.
				outcomes <- Outcome{Email: rcpt.Email, Error: "canceled before dispatch"}
				return
			}
			defer func() { <-sem }()
			outcomes <- e.sendOne(ctx, job, rcpt)
		}(rcpt)
	}
	wg.Wait()
	close(outcomes)

	result := &BatchResult{
		Total:   len(job.Recipients),
		Results: BatchOutcomes{Success: []Outcome{}, Failed: []Outcome{}},
	}
	for outcome := range outcomes {
		if outcome.Error == "" {
			result.Successful++
			result.Results.Success = append(result.Results.Success, outcome)
		} else {
			result.Failed++
			result.Results.Failed = append(result.Results.Failed, outcome)
		}
	}
	logger.Info("bulk send complete",
		"total", result.Total,
		"successful", result.Successful,
		"failed", result.Failed)
	return result
}

// sendOne renders and delivers to a single recipient. Rendering is total,
// so only delivery can fail.
func (e *Engine) sendOne(ctx context.Context, job *BulkJob, rcpt Recipient) Outcome {
	data := template.Merge(job.SharedData, rcpt.Data)
	receipt, err := e.mailer.Deliver(ctx, &mailer.Message{
		From:     job.From,
		To:       []string{rcpt.Email},
		Subject:  template.Render(job.Subject, data),
		HTMLBody: template.Render(job.Template, data),
	})
	if err != nil {
		reason := failureReason(err)
		e.record(ctx, "bulk", rcpt.Email, "", "failed", reason)
		return Outcome{Email: rcpt.Email, Error: reason}
	}
	e.record(ctx, "bulk", rcpt.Email, receipt.MessageID, "sent", "")
	return Outcome{Email: rcpt.Email, MessageID: receipt.MessageID}
}

// SendReport formats the report document and delivers it to all
// recipients in one message. From and subject fall back to configured
// defaults when the request omits them.
func (e *Engine) SendReport(ctx context.Context, req *ReportRequest) (*ReportReceipt, error) {
	generatedAt := time.Now()

	from := req.From
	if from == "" {
		from = e.systemFrom
	}
	subject := req.Subject
	if subject == "" {
		subject = fmt.Sprintf("%s Report - %s - %s",
			req.ReportType, req.Cluster, generatedAt.Format("2006-01-02"))
	}

	receipt, err := e.mailer.Deliver(ctx, &mailer.Message{
		From:        from,
		To:          req.Recipients,
		Subject:     subject,
		HTMLBody:    report.Format(req.ReportType, req.Cluster, req.Data, generatedAt),
		Attachments: req.Attachments,
	})
	recipients := strings.Join(req.Recipients, ",")
	if err != nil {
		e.record(ctx, "report", recipients, "", "failed", failureReason(err))
		return nil, err
	}
	e.record(ctx, "report", recipients, receipt.MessageID, "sent", "")

	return &ReportReceipt{
		MessageID:   receipt.MessageID,
		Response:    receipt.Response,
		ReportType:  req.ReportType,
		Cluster:     req.Cluster,
		GeneratedAt: generatedAt,
	}, nil
}

// QueueStatus probes the mailer and reports pool occupancy. A transport
// failure degrades the status instead of propagating.
func (e *Engine) QueueStatus(ctx context.Context) PoolStatus {
	status := PoolStatus{Status: "operational", PoolSize: e.workers, MaxConnections: e.workers}
	if stats, ok := e.mailer.(mailer.PoolStats); ok {
		status.PoolSize = stats.OpenConnections()
		status.MaxConnections = stats.MaxConnections()
	}
	if err := e.mailer.HealthCheck(ctx); err != nil {
		status.Status = "error"
		status.Error = failureReason(err)
	}
	return status
}

func (e *Engine) record(ctx context.Context, kind, recipient, messageID, status, reason string) {
	if e.recorder == nil {
		return
	}
	e.recorder.RecordDelivery(ctx, kind, recipient, messageID, status, reason)
}

// failureReason extracts the relay's textual reason from a transport
// error; other errors pass through as-is.
func failureReason(err error) string {
	var terr *mailer.TransportError
	if errors.As(err, &terr) {
		return terr.Reason
	}
	return err.Error()
}
