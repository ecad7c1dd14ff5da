// Package chatparse turns chat exports from WhatsApp, Telegram, Instagram,
// Messenger, Snapchat and iMessage into one canonical, time-ordered message
// stream with a diagnostic report.
//
// Parsing is synchronous and keeps no state between calls, so callers may run
// any number of parses concurrently.
package chatparse

import (
	"fmt"
	"path"
	"path/filepath"
	"strings"
	"time"
)

// MinMessages is the fewest canonical messages a successful import may have.
const MinMessages = 3

// Parser runs imports. Now supplies the base for synthetic timestamps.
type Parser struct {
	Now func() time.Time
}

// New returns a Parser using the wall clock.
func New() *Parser {
	return &Parser{Now: time.Now}
}

// ParseImportFile parses one upload with the wall clock.
func ParseImportFile(in RawImportInput) (*Result, error) {
	return New().ParseImportFile(in)
}

func (p *Parser) now() time.Time {
	if p.Now == nil {
		return time.Now().UTC()
	}
	return p.Now().UTC()
}

// ParseImportFile detects, decodes, parses and canonicalises one upload.
//
// Structurally invalid input (bad JSON, CSV without the required columns) is
// returned as a *StructuralError. Input that parses but yields fewer than
// MinMessages messages, or where a line-oriented format matched no lines at
// all, is returned as a *ParseFailedError carrying the full report.
func (p *Parser) ParseImportFile(in RawImportInput) (*Result, error) {
	det := Detect(in.DeclaredSourceApp, in.FilePath, in.FileBytes)

	if strings.EqualFold(filepath.Ext(in.FilePath), ".zip") {
		return p.parseArchive(det, in.FileBytes)
	}

	det, out, err := parseDecoded(det, DecodeText(in.FileBytes))
	if err != nil {
		return nil, err
	}
	return p.finish(det, out, nil)
}

// parseDecoded runs the parser for det.Format. WhatsApp text in which no
// timestamped line matched is retried as a generic paste.
func parseDecoded(det DetectionResult, text string) (DetectionResult, ParseOutput, error) {
	out, err := parseText(det.Format, text)
	if err != nil {
		return det, ParseOutput{}, err
	}

	if det.Format == FormatWhatsAppText && out.MatchedLines == 0 {
		if alt := ParseGenericPaste(text); alt.MatchedLines > 0 {
			det.Format = FormatGenericPaste
			det.Confidence = 0.5
			det.Reasons = append(append([]string(nil), det.Reasons...), "no WhatsApp timestamps matched; fell back to generic paste")
			alt.Warnings = append(alt.Warnings, "No WhatsApp-style timestamps found; parsed as plain \"Sender: text\" lines")
			out = alt
		}
	}
	return det, out, nil
}

func parseText(f Format, text string) (ParseOutput, error) {
	switch f {
	case FormatWhatsAppText:
		return ParseWhatsAppText(text), nil
	case FormatTelegramJSON:
		return ParseTelegramJSON([]byte(text))
	case FormatTelegramHTML:
		return ParseTelegramHTML(text), nil
	case FormatMetaJSON:
		return ParseMetaJSON([]byte(text))
	case FormatSnapchatJSON:
		return ParseSnapchatJSON([]byte(text))
	case FormatIMessageCSV:
		return ParseIMessageCSV(text)
	default:
		return ParseGenericPaste(text), nil
	}
}

// finish canonicalises parser output, builds the report and applies the
// failure policy. failTips are added to the report only on failure.
func (p *Parser) finish(det DetectionResult, out ParseOutput, failTips []string) (*Result, error) {
	msgs := Canonicalize(det.SourceAppGuess, out.Messages, p.now())

	in := ReportInput{
		Detection:      det,
		Messages:       msgs,
		Ignored:        out.Ignored,
		TotalLines:     out.TotalLines,
		MatchedLines:   out.MatchedLines,
		Warnings:       out.Warnings,
		SelectedThread: out.SelectedThread,
	}

	if reason := failureReason(det.Format, out, len(msgs)); reason != "" {
		in.ExtraTips = failTips
		return nil, newParseFailed(BuildReport(in), reason)
	}

	return &Result{
		DBMessages:        ToDBMessages(msgs),
		CanonicalMessages: msgs,
		Report:            BuildReport(in),
	}, nil
}

func failureReason(f Format, out ParseOutput, count int) string {
	if f.lineOriented() && out.MatchedLines == 0 && len(out.Ignored) > 0 {
		return fmt.Sprintf("No lines matched the expected %s format", f)
	}
	if count < MinMessages {
		return fmt.Sprintf("Only %d message(s) could be parsed; at least %d are required", count, MinMessages)
	}
	return ""
}

func newParseFailed(r ParseReport, reason string) *ParseFailedError {
	return &ParseFailedError{Payload: FailureFromReport(r, reason), Report: r}
}

func (p *Parser) parseArchive(det DetectionResult, data []byte) (*Result, error) {
	tips := archiveTips(det.Format)
	fail := func(out ParseOutput, reason string) error {
		r := BuildReport(ReportInput{
			Detection:      det,
			Ignored:        out.Ignored,
			TotalLines:     out.TotalLines,
			MatchedLines:   out.MatchedLines,
			Warnings:       out.Warnings,
			SelectedThread: out.SelectedThread,
			ExtraTips:      tips,
		})
		return newParseFailed(r, reason)
	}

	zr, err := openArchive(data)
	if err != nil {
		return nil, fail(ParseOutput{}, "ZIP archive could not be opened")
	}

	var out ParseOutput
	switch det.Format {
	case FormatTelegramJSON, FormatSnapchatJSON:
		match, entry := isTelegramResult, "result.json"
		parse := ParseTelegramJSON
		if det.Format == FormatSnapchatJSON {
			match, entry = isSnapchatHistory, "chat_history.json"
			parse = ParseSnapchatJSON
		}
		f := findEntry(zr, match)
		if f == nil {
			return nil, fail(ParseOutput{}, fmt.Sprintf("ZIP archive is missing %s", entry))
		}
		raw, err := readEntry(f)
		if err != nil {
			return nil, fail(ParseOutput{}, fmt.Sprintf("ZIP entry %s could not be read", f.Name))
		}
		if out, err = parse(raw); err != nil {
			return nil, err
		}
	case FormatMetaJSON:
		var ok bool
		if out, ok = parseMetaArchive(metaThreads(zr)); !ok {
			return nil, fail(out, "ZIP archive has no readable messages/inbox thread files")
		}
	default:
		return nil, fail(ParseOutput{}, "ZIP archive does not contain a recognised chat export")
	}

	if len(out.Messages) == 0 {
		return nil, fail(out, "No messages could be parsed from the selected thread")
	}
	return p.finish(det, out, tips)
}

// parseMetaArchive parses every thread folder and keeps the one with the most
// messages. ok is false when no thread file could be decoded.
func parseMetaArchive(groups []metaThreadGroup) (ParseOutput, bool) {
	type thread struct {
		name string
		msgs []metaMessage
	}

	var out ParseOutput
	var threads []thread
	for _, g := range groups {
		t := thread{name: path.Base(g.Dir)}
		decoded := false
		for _, f := range g.Files {
			raw, err := readEntry(f)
			if err != nil {
				out.Warnings = append(out.Warnings, fmt.Sprintf("Skipped unreadable thread file %s", f.Name))
				continue
			}
			export, err := decodeMetaExport(raw)
			if err != nil {
				out.Warnings = append(out.Warnings, fmt.Sprintf("Skipped invalid thread file %s", f.Name))
				continue
			}
			decoded = true
			if export.Title != "" {
				t.name = fixMetaEncoding(export.Title)
			}
			t.msgs = append(t.msgs, export.Messages...)
		}
		if decoded {
			threads = append(threads, t)
		}
	}
	if len(threads) == 0 {
		return out, false
	}

	best := 0
	for i, t := range threads {
		if len(t.msgs) > len(threads[best].msgs) {
			best = i
		}
	}
	chosen := threads[best]
	if len(threads) > 1 {
		out.Warnings = append(out.Warnings, fmt.Sprintf(
			"Archive contains %d threads; auto-selected the largest: %s (%d messages)",
			len(threads), chosen.name, len(chosen.msgs)))
	}

	out.Messages = metaMessages(chosen.msgs, 0)
	out.TotalLines = len(chosen.msgs)
	out.MatchedLines = len(out.Messages)
	out.SelectedThread = chosen.name
	return out, true
}
