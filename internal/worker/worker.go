// Package worker runs chat imports end to end: read the upload, parse it,
// persist the outcome and announce it on NATS.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
	"github.com/MikeSquared-Agency/chatsift/internal/hermes"
)

// ReportFileName is the side-file written next to an upload that failed to parse.
const ReportFileName = "parse-report.json"

// Failure kinds carried in ImportFailed.Error.
const (
	ErrKindReadFailed    = "ReadFailed"
	ErrKindInvalidFormat = "InvalidFormat"
	ErrKindParseFailed   = "ParseFailed"
)

const persistTimeout = 30 * time.Second

// ImportStore is the persistence the worker needs.
type ImportStore interface {
	WriteImport(ctx context.Context, id uuid.UUID, sourceApp string, res *chatparse.Result) error
	MarkImportFailed(ctx context.Context, id uuid.UUID, sourceApp, format string, failure any) error
}

// Worker processes import requests. Store and publisher are optional.
type Worker struct {
	store  ImportStore
	hermes hermes.Publisher
	parser *chatparse.Parser
	logger *slog.Logger
}

func New(s ImportStore, h hermes.Publisher, p *chatparse.Parser, logger *slog.Logger) *Worker {
	if p == nil {
		p = chatparse.New()
	}
	return &Worker{store: s, hermes: h, parser: p, logger: logger}
}

// HandleImportRequested is the NATS handler for chat.import.requested.
func (w *Worker) HandleImportRequested(subject string, data []byte) {
	var evt hermes.ImportRequested
	if err := json.Unmarshal(data, &evt); err != nil {
		w.logger.Error("failed to parse import request", "error", err)
		return
	}

	id, err := uuid.Parse(evt.ImportID)
	if err != nil {
		w.logger.Error("invalid import id", "import_id", evt.ImportID, "error", err)
		return
	}

	// Failures are already logged, stored and published by Process.
	_, _ = w.Process(context.Background(), id, evt.SourceApp, evt.FilePath)
}

// Process reads and parses one upload. Parse failures are returned unchanged
// (*chatparse.ParseFailedError or *chatparse.StructuralError) after being
// recorded; persistence errors are returned wrapped.
func (w *Worker) Process(ctx context.Context, id uuid.UUID, sourceApp, filePath string) (*chatparse.Result, error) {
	w.logger.Info("processing import",
		"import_id", id,
		"source_app", sourceApp,
		"file", filepath.Base(filePath),
	)

	data, err := os.ReadFile(filePath)
	if err != nil {
		failure := hermes.ImportFailed{
			ImportID: id.String(),
			Error:    ErrKindReadFailed,
			Reason:   err.Error(),
		}
		w.fail(ctx, id, sourceApp, "", failure)
		w.publishFailure(failure)
		return nil, fmt.Errorf("read upload: %w", err)
	}

	start := time.Now()
	res, err := w.parser.ParseImportFile(chatparse.RawImportInput{
		DeclaredSourceApp: sourceApp,
		FilePath:          filePath,
		FileBytes:         data,
	})
	if err != nil {
		w.handleParseError(ctx, id, sourceApp, filePath, err)
		return nil, err
	}

	if w.store != nil {
		pctx, cancel := context.WithTimeout(ctx, persistTimeout)
		defer cancel()
		if err := w.store.WriteImport(pctx, id, sourceApp, res); err != nil {
			w.logger.Error("persistence failed", "import_id", id, "error", err)
			return nil, fmt.Errorf("write import: %w", err)
		}
	}

	w.publish(hermes.SubjectImportParsed, hermes.ImportParsed{
		ImportID:     id.String(),
		SourceApp:    string(res.Report.SourceAppGuess),
		Format:       string(res.Report.DetectedFormat),
		MessageCount: len(res.CanonicalMessages),
		Participants: res.Report.Participants,
	})

	w.logger.Info("import parsed",
		"import_id", id,
		"format", res.Report.DetectedFormat,
		"messages", len(res.CanonicalMessages),
		"ignored", res.Report.IgnoredCount,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}

func (w *Worker) handleParseError(ctx context.Context, id uuid.UUID, sourceApp, filePath string, err error) {
	if pf, ok := chatparse.AsParseFailed(err); ok {
		reportPath := filepath.Join(filepath.Dir(filePath), ReportFileName)
		if werr := WriteJSONFile(reportPath, pf.Payload); werr != nil {
			w.logger.Error("failed to write parse report", "import_id", id, "path", reportPath, "error", werr)
		}
		w.fail(ctx, id, sourceApp, string(pf.Payload.DetectedFormat), pf.Payload)
		w.publishFailure(hermes.ImportFailed{
			ImportID:       id.String(),
			Error:          ErrKindParseFailed,
			DetectedFormat: string(pf.Payload.DetectedFormat),
			Reason:         pf.Payload.Reason,
		})
		return
	}

	failure := hermes.ImportFailed{
		ImportID: id.String(),
		Error:    ErrKindInvalidFormat,
		Reason:   err.Error(),
	}
	var se *chatparse.StructuralError
	if errors.As(err, &se) {
		failure.DetectedFormat = string(se.Format)
	}
	w.fail(ctx, id, sourceApp, failure.DetectedFormat, failure)
	w.publishFailure(failure)
}

// fail logs and stores a failed import. Read and structural failures store
// the ImportFailed event; parse failures store the FailurePayload.
func (w *Worker) fail(ctx context.Context, id uuid.UUID, sourceApp, format string, payload any) {
	switch evt := payload.(type) {
	case hermes.ImportFailed:
		w.logger.Warn("import failed", "import_id", id, "error", evt.Error, "reason", evt.Reason)
	case chatparse.FailurePayload:
		w.logger.Warn("import failed", "import_id", id, "error", evt.Error, "format", format, "reason", evt.Reason)
	}

	if w.store == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()
	if err := w.store.MarkImportFailed(pctx, id, sourceApp, format, payload); err != nil {
		w.logger.Error("failed to mark import failed", "import_id", id, "error", err)
	}
}

func (w *Worker) publishFailure(evt hermes.ImportFailed) {
	w.publish(hermes.SubjectImportFailed, evt)
}

func (w *Worker) publish(subject string, evt any) {
	if w.hermes == nil {
		return
	}
	if err := w.hermes.Publish(subject, evt); err != nil {
		w.logger.Error("publish failed", "subject", subject, "error", err)
	}
}

// WriteJSONFile writes v as indented JSON, replacing path atomically.
func WriteJSONFile(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*.json")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
