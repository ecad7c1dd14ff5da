package chatparse

import (
	"regexp"
	"strings"
	"time"
)

var (
	// [timestamp] Sender: text, with any timestamp spelling inside the brackets.
	genericBracketRe = regexp.MustCompile(`^\[([^\]]{4,40})\]\s*([^:\[\]]{1,60}?):\s(.*)$`)
	// Sender: text, with no timestamp at all. The text may start on the next line.
	genericSenderRe = regexp.MustCompile(`^([^:\[\]<>]{1,48}?):(?:\s+(.*))?$`)
)

// ParseGenericPaste parses loosely formatted pasted chat text. WhatsApp-style
// lines are recognised first, then bracketed timestamps, then bare
// "Sender: text" lines; anything else continues the previous message.
func ParseGenericPaste(text string) ParseOutput {
	return scanLines(text, classifyGenericLine)
}

func classifyGenericLine(line string) (IntermediateMessage, bool) {
	if msg, ok := classifyWhatsAppLine(line); ok {
		return msg, true
	}

	clean := strings.TrimSpace(normalizeSpaces(line))
	if m := genericBracketRe.FindStringSubmatch(clean); m != nil {
		var ts *time.Time
		if t, ok := parseLooseTimestamp(m[1]); ok {
			ts = &t
		}
		return IntermediateMessage{
			SenderDisplay: strings.TrimSpace(m[2]),
			Timestamp:     ts,
			Text:          m[3],
			Type:          TypeText,
		}, true
	}

	if m := genericSenderRe.FindStringSubmatch(clean); m != nil {
		return IntermediateMessage{
			SenderDisplay: strings.TrimSpace(m[1]),
			Text:          m[2],
			Type:          TypeText,
		}, true
	}

	return IntermediateMessage{}, false
}
