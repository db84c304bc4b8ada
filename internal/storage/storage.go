// Package storage persists the delivery log in PostgreSQL. One row per
// delivery outcome; writes are best-effort so a database problem never
// fails a send.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/relay-gateway/internal/pkg/logger"
)

// Storage is the Postgres-backed delivery log.
type Storage struct{ db *sql.DB }

// DeliveryRecord is one logged delivery outcome.
type DeliveryRecord struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"` // "single", "bulk", "report"
	Recipient string    `json:"recipient"`
	MessageID string    `json:"messageId,omitempty"`
	Status    string    `json:"status"` // "sent" or "failed"
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// DeliveryStats aggregates the log over a time window.
type DeliveryStats struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// New opens the delivery log database and verifies connectivity.
func New(databaseURL string) (*Storage, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open delivery log db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping delivery log db: %w", err)
	}
	s := &Storage{db: db}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDB wraps an existing connection (used by tests).
func NewWithDB(db *sql.DB) *Storage { return &Storage{db: db} }

func (s *Storage) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS deliveries (
			id         UUID PRIMARY KEY,
			kind       TEXT NOT NULL,
			recipient  TEXT NOT NULL,
			message_id TEXT,
			status     TEXT NOT NULL,
			reason     TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return fmt.Errorf("ensure deliveries schema: %w", err)
	}
	return nil
}

// RecordDelivery implements dispatch.Recorder. Failures are logged and
// swallowed; the delivery log is advisory, not transactional.
func (s *Storage) RecordDelivery(ctx context.Context, kind, recipient, messageID, status, reason string) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deliveries (id, kind, recipient, message_id, status, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, uuid.New().String(), kind, recipient, messageID, status, reason)
	if err != nil {
		logger.Warn("delivery log write failed", "kind", kind, "recipient", recipient, "error", err.Error())
	}
}

// RecentDeliveries returns the newest log rows, newest first.
func (s *Storage) RecentDeliveries(ctx context.Context, limit int) ([]DeliveryRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, recipient, COALESCE(message_id, ''), status, COALESCE(reason, ''), created_at
		FROM deliveries
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list deliveries: %w", err)
	}
	defer rows.Close()

	var out []DeliveryRecord
	for rows.Next() {
		var r DeliveryRecord
		if err := rows.Scan(&r.ID, &r.Kind, &r.Recipient, &r.MessageID, &r.Status, &r.Reason, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates outcomes since the given time.
func (s *Storage) Stats(ctx context.Context, since time.Time) (*DeliveryStats, error) {
	var stats DeliveryStats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'sent'),
		       COUNT(*) FILTER (WHERE status = 'failed')
		FROM deliveries
		WHERE created_at >= $1
	`, since).Scan(&stats.Total, &stats.Sent, &stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("delivery stats: %w", err)
	}
	return &stats, nil
}

// Close closes the underlying database handle.
func (s *Storage) Close() error { return s.db.Close() }
