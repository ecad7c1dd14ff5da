package chatparse

import (
	"regexp"
	"strings"
	"time"
)

// WhatsApp exports come in two shapes:
//   - iOS:     [DD/MM/YYYY, HH:MM:SS] Sender: Text
//   - Android: DD/MM/YYYY, HH:MM - Sender: Text
//
// Lines with the same prefix but no "Sender:" are system lines. A sender with
// nothing after the colon starts a message whose body is on the next lines.
const (
	waDate  = `(\d{1,4}[./-]\d{1,2}[./-]\d{1,4})`
	waClock = `(\d{1,2}[:.]\d{2}(?:[:.]\d{2})?(?:\s?[AaPp]\.?\s?[Mm]\.?)?)`
)

var (
	waBracketRe = regexp.MustCompile(`^\[` + waDate + `,?\s+` + waClock + `\]\s*(.*)$`)
	waDashRe    = regexp.MustCompile(`^` + waDate + `,?\s+` + waClock + `\s+[-\x{2013}]\s+(.*)$`)
	waSenderRe  = regexp.MustCompile(`^([^:]{1,80}?):(?:\s(.*))?$`)
	waMediaRe   = regexp.MustCompile(`(?i)^<(media omitted|attached: [^>]+|[a-z ]+ omitted)>$|^(image|video|audio|sticker|gif|document) omitted$`)
)

// ParseWhatsAppText parses a WhatsApp "Export chat" text file.
func ParseWhatsAppText(text string) ParseOutput {
	return scanLines(text, classifyWhatsAppLine)
}

// waPrefix splits a WhatsApp line into its date, clock and remainder.
func waPrefix(line string) (date, clock, rest string, ok bool) {
	line = strings.TrimSpace(normalizeSpaces(line))
	if m := waBracketRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2], m[3], true
	}
	if m := waDashRe.FindStringSubmatch(line); m != nil {
		return m[1], m[2], m[3], true
	}
	return "", "", "", false
}

func classifyWhatsAppLine(line string) (IntermediateMessage, bool) {
	date, clock, rest, ok := waPrefix(line)
	if !ok {
		return IntermediateMessage{}, false
	}

	var ts *time.Time
	if t, ok := ParseDateTime(date, clock); ok {
		ts = &t
	}

	msg := IntermediateMessage{Timestamp: ts, Type: TypeText}
	if m := waSenderRe.FindStringSubmatch(rest); m != nil {
		msg.SenderDisplay = strings.TrimSpace(m[1])
		msg.Text = m[2]
		if waMediaRe.MatchString(strings.TrimSpace(msg.Text)) {
			msg.Type = TypeMediaStub
		}
	} else {
		msg.Text = rest
		msg.Type = TypeSystem
	}
	if ts == nil {
		msg.Metadata = map[string]any{"rawTimestamp": date + " " + clock}
	}
	return msg, true
}

// countWhatsAppLines counts lines with a WhatsApp timestamp prefix, stopping
// early once limit is reached.
func countWhatsAppLines(text string, limit int) int {
	n := 0
	for _, line := range splitLines(text) {
		if _, _, _, ok := waPrefix(line); ok {
			n++
			if n >= limit {
				break
			}
		}
	}
	return n
}
