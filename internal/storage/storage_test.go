package storage

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestRecordDelivery(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewWithDB(db)

	mock.ExpectExec("INSERT INTO deliveries").
		WithArgs(sqlmock.AnyArg(), "bulk", "user@example.com", "msg-1", "sent", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	s.RecordDelivery(context.Background(), "bulk", "user@example.com", "msg-1", "sent", "")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecordDeliverySwallowsErrors(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewWithDB(db)

	mock.ExpectExec("INSERT INTO deliveries").
		WillReturnError(context.DeadlineExceeded)

	// Must not panic or propagate; the delivery log is advisory.
	s.RecordDelivery(context.Background(), "single", "user@example.com", "", "failed", "mailbox full")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRecentDeliveries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewWithDB(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "kind", "recipient", "message_id", "status", "reason", "created_at"}).
		AddRow("id-2", "single", "b@example.com", "msg-2", "sent", "", now).
		AddRow("id-1", "bulk", "a@example.com", "", "failed", "mailbox full", now.Add(-time.Minute))

	mock.ExpectQuery("SELECT id, kind, recipient").
		WithArgs(50).
		WillReturnRows(rows)

	got, err := s.RecentDeliveries(context.Background(), 50)
	if err != nil {
		t.Fatalf("RecentDeliveries: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(got))
	}
	if got[1].Reason != "mailbox full" || got[1].Status != "failed" {
		t.Errorf("row = %+v", got[1])
	}
}

func TestStats(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()
	s := NewWithDB(db)

	since := time.Now().Add(-24 * time.Hour)
	mock.ExpectQuery("SELECT COUNT").
		WithArgs(since).
		WillReturnRows(sqlmock.NewRows([]string{"count", "sent", "failed"}).AddRow(10, 8, 2))

	stats, err := s.Stats(context.Background(), since)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Total != 10 || stats.Sent != 8 || stats.Failed != 2 {
		t.Errorf("stats = %+v", stats)
	}
}
