//go:build integration

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func parsedFixture(t *testing.T) *chatparse.Result {
	t.Helper()
	p := &chatparse.Parser{Now: func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) }}
	res, err := p.ParseImportFile(chatparse.RawImportInput{
		DeclaredSourceApp: "whatsapp",
		FilePath:          "chat.txt",
		FileBytes: []byte("[13/02/2026, 09:00:00] Alex: morning\n" +
			"[13/02/2026, 09:01:00] Sam: hey\n" +
			"[13/02/2026, 09:02:00] Alex: coffee?\n"),
	})
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return res
}

func TestIntegration_WriteAndGetImport(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	if err := s.CreateImport(ctx, id, "whatsapp", "/tmp/chat.txt"); err != nil {
		t.Fatalf("CreateImport failed: %v", err)
	}

	res := parsedFixture(t)
	if err := s.WriteImport(ctx, id, "whatsapp", res); err != nil {
		t.Fatalf("WriteImport failed: %v", err)
	}
	// Re-running must replace, not duplicate, the messages.
	if err := s.WriteImport(ctx, id, "whatsapp", res); err != nil {
		t.Fatalf("second WriteImport failed: %v", err)
	}

	rec, err := s.GetImportReport(ctx, id)
	if err != nil {
		t.Fatalf("GetImportReport failed: %v", err)
	}
	if rec.Status != StatusParsed || rec.MessageCount != 3 || rec.Format != "whatsapp_txt" {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.FilePath != "/tmp/chat.txt" {
		t.Errorf("expected file path to survive the upsert, got %q", rec.FilePath)
	}

	var report chatparse.ParseReport
	if err := json.Unmarshal(rec.Report, &report); err != nil {
		t.Fatalf("report is not valid JSON: %v", err)
	}
	if report.ParsedCount != 3 {
		t.Errorf("expected parsedCount 3, got %d", report.ParsedCount)
	}

	var count int
	err = s.pool.QueryRow(ctx, "SELECT count(*) FROM chat_messages WHERE import_id = $1", id).Scan(&count)
	if err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if count != 3 {
		t.Errorf("expected 3 message rows, got %d", count)
	}
}

func TestIntegration_MarkImportFailed(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	id := uuid.New()

	payload := chatparse.FailurePayload{
		Error:          "ParseFailed",
		DetectedFormat: chatparse.FormatWhatsAppText,
		Reason:         "Only 1 message(s) could be parsed; at least 3 are required",
	}
	if err := s.MarkImportFailed(ctx, id, "whatsapp", string(payload.DetectedFormat), payload); err != nil {
		t.Fatalf("MarkImportFailed failed: %v", err)
	}

	rec, err := s.GetImportReport(ctx, id)
	if err != nil {
		t.Fatalf("GetImportReport failed: %v", err)
	}
	if rec.Status != StatusFailed {
		t.Errorf("expected failed status, got %s", rec.Status)
	}

	var got chatparse.FailurePayload
	if err := json.Unmarshal(rec.Failure, &got); err != nil {
		t.Fatalf("failure is not valid JSON: %v", err)
	}
	if got.Reason != payload.Reason {
		t.Errorf("expected reason %q, got %q", payload.Reason, got.Reason)
	}
}

func TestIntegration_GetImportReportNotFound(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetImportReport(context.Background(), uuid.New())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
