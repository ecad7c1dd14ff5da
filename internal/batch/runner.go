// Package batch parses chat exports from disk in bulk and writes the results
// next to them.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
	"github.com/MikeSquared-Agency/chatsift/internal/transcript"
	"github.com/MikeSquared-Agency/chatsift/internal/worker"
)

// Output file suffixes.
const (
	MessagesSuffix   = ".messages.json"
	ReportSuffix     = ".parse-report.json"
	TranscriptSuffix = ".transcript.txt"
)

// Config holds the batch command configuration.
type Config struct {
	Files       []string
	SourceApp   string // declared source app for every file (optional)
	OutDir      string // defaults to each input's directory
	Concurrency int
	Transcript  bool // also write plain-text transcript chunks
}

// Summary counts outcomes across a run.
type Summary struct {
	Parsed   int
	Failed   int
	Invalid  int
	Messages int
}

// Runner parses files concurrently.
type Runner struct {
	cfg    Config
	parser *chatparse.Parser
	logger *slog.Logger

	mu      sync.Mutex
	summary Summary
}

// NewRunner creates a batch runner.
func NewRunner(cfg Config, p *chatparse.Parser, logger *slog.Logger) *Runner {
	if p == nil {
		p = chatparse.New()
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	return &Runner{cfg: cfg, parser: p, logger: logger}
}

// Run parses every file. Parse failures are recorded per file and do not stop
// the run; read and write errors do.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, path := range r.cfg.Files {
		path := path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			return r.processFile(path)
		})
	}

	err := g.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summary, err
}

func (r *Runner) processFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	res, err := r.parser.ParseImportFile(chatparse.RawImportInput{
		DeclaredSourceApp: r.cfg.SourceApp,
		FilePath:          path,
		FileBytes:         data,
	})
	if pf, ok := chatparse.AsParseFailed(err); ok {
		r.logger.Warn("parse failed", "file", path, "reason", pf.Payload.Reason)
		r.count(func(s *Summary) { s.Failed++ })
		return worker.WriteJSONFile(r.outPath(path, ReportSuffix), pf.Payload)
	}
	var se *chatparse.StructuralError
	if errors.As(err, &se) {
		r.logger.Warn("invalid export", "file", path, "format", se.Format, "error", err)
		r.count(func(s *Summary) { s.Invalid++ })
		return nil
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	if err := worker.WriteJSONFile(r.outPath(path, MessagesSuffix), res.CanonicalMessages); err != nil {
		return err
	}
	if r.cfg.Transcript {
		if err := r.writeTranscript(path, res.CanonicalMessages); err != nil {
			return err
		}
	}

	r.logger.Info("parsed",
		"file", path,
		"format", res.Report.DetectedFormat,
		"messages", len(res.CanonicalMessages),
		"ignored", res.Report.IgnoredCount,
	)
	r.count(func(s *Summary) {
		s.Parsed++
		s.Messages += len(res.CanonicalMessages)
	})
	return nil
}

func (r *Runner) writeTranscript(path string, msgs []chatparse.CanonicalMessage) error {
	ref := filepath.Base(path)
	var sb strings.Builder
	for i, chunk := range transcript.ChunkConversation(msgs, ref) {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "## %s (%s)\n", chunk.Ref, chunk.ConversationID)
		sb.WriteString(transcript.FormatTranscript(chunk))
	}
	out := r.outPath(path, TranscriptSuffix)
	if err := os.WriteFile(out, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	return nil
}

// outPath maps an input like exports/chat.txt to <out>/chat<suffix>.
func (r *Runner) outPath(input, suffix string) string {
	dir := r.cfg.OutDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	base := filepath.Base(input)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+suffix)
}

func (r *Runner) count(fn func(*Summary)) {
	r.mu.Lock()
	fn(&r.summary)
	r.mu.Unlock()
}
