package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
)

// Import statuses.
const (
	StatusPending = "pending"
	StatusParsed  = "parsed"
	StatusFailed  = "failed"
)

// ErrNotFound is returned when an import id has no row.
var ErrNotFound = errors.New("import not found")

// ImportRecord is one chat_imports row.
type ImportRecord struct {
	ID           uuid.UUID       `json:"id"`
	SourceApp    string          `json:"source_app"`
	FilePath     string          `json:"file_path"`
	Format       string          `json:"format"`
	Status       string          `json:"status"`
	MessageCount int             `json:"message_count"`
	Report       json.RawMessage `json:"report,omitempty"`
	Failure      json.RawMessage `json:"failure,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// CreateImport records an accepted upload before it is parsed.
func (s *Store) CreateImport(ctx context.Context, id uuid.UUID, sourceApp, filePath string) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_imports (id, source_app, file_path, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING`,
		id, sourceApp, filePath, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("insert import: %w", err)
	}
	return nil
}

// WriteImport stores a parse result and its messages in one transaction.
// Messages from an earlier attempt for the same import are replaced.
func (s *Store) WriteImport(ctx context.Context, id uuid.UUID, sourceApp string, res *chatparse.Result) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO chat_imports (id, source_app, format, status, message_count, report, failure, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, now())
		ON CONFLICT (id) DO UPDATE SET
			source_app = EXCLUDED.source_app,
			format = EXCLUDED.format,
			status = EXCLUDED.status,
			message_count = EXCLUDED.message_count,
			report = EXCLUDED.report,
			failure = NULL,
			updated_at = now()`,
		id, sourceApp, string(res.Report.DetectedFormat), StatusParsed, len(res.CanonicalMessages), res.Report,
	)
	if err != nil {
		return fmt.Errorf("upsert import: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM chat_messages WHERE import_id = $1`, id); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}

	rows := make([][]any, len(res.CanonicalMessages))
	for i, m := range res.CanonicalMessages {
		var sentAt time.Time
		if m.Timestamp != nil {
			sentAt = *m.Timestamp
		}
		rows[i] = []any{
			id, i + 1, m.ID, m.ConversationID, m.SenderDisplay, sentAt,
			m.Text, string(m.MessageType), m.TimestampDerived(), res.DBMessages[i].Meta,
		}
	}

	_, err = tx.CopyFrom(ctx,
		pgx.Identifier{"chat_messages"},
		[]string{"import_id", "seq", "msg_id", "conversation_id", "sender", "sent_at", "text", "message_type", "timestamp_derived", "meta"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("copy messages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MarkImportFailed records why an import could not be parsed. failure is
// stored as JSON; for parse failures it is the chatparse.FailurePayload.
func (s *Store) MarkImportFailed(ctx context.Context, id uuid.UUID, sourceApp, format string, failure any) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO chat_imports (id, source_app, format, status, failure, updated_at)
		VALUES ($1, $2, $3, $4, $5, now())
		ON CONFLICT (id) DO UPDATE SET
			format = EXCLUDED.format,
			status = EXCLUDED.status,
			failure = EXCLUDED.failure,
			updated_at = now()`,
		id, sourceApp, format, StatusFailed, failure,
	)
	if err != nil {
		return fmt.Errorf("mark import failed: %w", err)
	}
	return nil
}

// GetImportReport fetches an import with its report or failure payload.
func (s *Store) GetImportReport(ctx context.Context, id uuid.UUID) (*ImportRecord, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, source_app, file_path, format, status, message_count, report, failure, created_at, updated_at
		FROM chat_imports WHERE id = $1`, id)

	var r ImportRecord
	var report, failure []byte
	err := row.Scan(&r.ID, &r.SourceApp, &r.FilePath, &r.Format, &r.Status, &r.MessageCount, &report, &failure, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Report = report
	r.Failure = failure
	return &r, nil
}
