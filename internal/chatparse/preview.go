package chatparse

// DefaultPreviewLimit caps preview output when the caller passes no limit.
const DefaultPreviewLimit = 50

// PreviewResult is a partial parse of pasted text.
type PreviewResult struct {
	Messages []CanonicalMessage `json:"messages"`
	Total    int                `json:"total"`
	Report   ParseReport        `json:"report"`
}

// Preview parses pasted text for display before upload. It never fails with a
// *ParseFailedError; too-small or unmatched input is reported through the
// report instead. Structural errors are still returned.
func (p *Parser) Preview(app, text string, limit int) (*PreviewResult, error) {
	if limit <= 0 {
		limit = DefaultPreviewLimit
	}

	in := PasteInput(app, text)
	det := Detect(in.DeclaredSourceApp, in.FilePath, in.FileBytes)

	det, out, err := parseDecoded(det, text)
	if err != nil {
		return nil, err
	}

	msgs := Canonicalize(det.SourceAppGuess, out.Messages, p.now())
	report := BuildReport(ReportInput{
		Detection:      det,
		Messages:       msgs,
		Ignored:        out.Ignored,
		TotalLines:     out.TotalLines,
		MatchedLines:   out.MatchedLines,
		Warnings:       out.Warnings,
		SelectedThread: out.SelectedThread,
	})
	if reason := failureReason(det.Format, out, len(msgs)); reason != "" {
		report.Warnings = append(report.Warnings, reason)
	}

	total := len(msgs)
	if len(msgs) > limit {
		msgs = msgs[:limit]
	}
	return &PreviewResult{Messages: msgs, Total: total, Report: report}, nil
}
