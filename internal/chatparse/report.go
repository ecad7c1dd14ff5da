package chatparse

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// maxIgnoredSample bounds the ignored lines surfaced in a report.
const maxIgnoredSample = 8

// ExpectedExamples are shown with every report so users can compare their
// file against formats we understand.
var ExpectedExamples = []string{
	"[10/02/2026, 01:21:27] Mehak: hey",
	"10/02/2026, 1:21 am - Mehak: hey",
	"Telegram Desktop export: result.json (JSON) or messages.html (HTML)",
	"Instagram/Messenger: messages/inbox/<thread>/message_1.json",
	"Snapchat: chat_history.json",
	"iMessage CSV with date, sender and text columns",
	"Alex: hello there",
}

// Tips are general remediation hints attached to every report.
var Tips = []string{
	"Export the chat from the app's own export feature instead of copying from screenshots.",
	"Choose \"Without media\" when exporting; attachments are not needed.",
	"Each message should start on its own line with a date/time or a sender name.",
	"Upload ZIP archives exactly as downloaded, without unpacking or re-zipping them.",
}

// archiveTips are added to failures that came from a ZIP upload.
func archiveTips(f Format) []string {
	switch f {
	case FormatTelegramJSON:
		return []string{"Telegram Desktop ZIP exports must contain result.json; pick JSON as the export format."}
	case FormatSnapchatJSON:
		return []string{"Snapchat data downloads must include json/chat_history.json; request your data with JSON enabled."}
	case FormatMetaJSON:
		return []string{"Instagram/Messenger downloads must be in JSON format and include messages/inbox/<thread>/message_1.json."}
	default:
		return []string{"The ZIP did not contain a recognised chat export; upload the exported .txt, .json, .html or .csv file directly."}
	}
}

// ReportInput collects everything BuildReport aggregates.
type ReportInput struct {
	Detection      DetectionResult
	Messages       []CanonicalMessage
	Ignored        []IgnoredLine
	TotalLines     int
	MatchedLines   int
	Warnings       []string
	SelectedThread string
	ExtraTips      []string
}

// BuildReport aggregates detection, parse statistics and fixed guidance into
// a ParseReport.
func BuildReport(in ReportInput) ParseReport {
	sample := in.Ignored
	if len(sample) > maxIgnoredSample {
		sample = sample[:maxIgnoredSample]
	}

	tips := make([]string, 0, len(in.ExtraTips)+len(Tips))
	tips = append(tips, in.ExtraTips...)
	tips = append(tips, Tips...)

	return ParseReport{
		DetectedFormat:    in.Detection.Format,
		SourceAppGuess:    in.Detection.SourceAppGuess,
		Confidence:        in.Detection.Confidence,
		Reasons:           nonNil(in.Detection.Reasons),
		Warnings:          nonNil(in.Warnings),
		ParsedCount:       len(in.Messages),
		IgnoredCount:      len(in.Ignored),
		TotalLines:        in.TotalLines,
		MatchedLines:      in.MatchedLines,
		Participants:      participants(in.Messages),
		ExpectedExamples:  append([]string(nil), ExpectedExamples...),
		FirstIgnoredLines: append([]IgnoredLine{}, sample...),
		Tips:              tips,
		SelectedThread:    in.SelectedThread,
	}
}

// FailureFromReport derives the parse-report.json payload from a report.
func FailureFromReport(r ParseReport, reason string) FailurePayload {
	return FailurePayload{
		Error:            "ParseFailed",
		DetectedFormat:   r.DetectedFormat,
		Reason:           reason,
		ExpectedExamples: r.ExpectedExamples,
		Stats: ParseStats{
			TotalLines:   r.TotalLines,
			MatchedLines: r.MatchedLines,
			IgnoredLines: r.IgnoredCount,
		},
		FirstIgnoredLines: r.FirstIgnoredLines,
		Tips:              r.Tips,
	}
}

// participants lists distinct senders in order of first appearance. Names are
// compared in Unicode NFC so composed and decomposed spellings collapse.
func participants(msgs []CanonicalMessage) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, m := range msgs {
		name := strings.TrimSpace(m.SenderDisplay)
		if name == "" {
			continue
		}
		key := norm.NFC.String(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, name)
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
