package chatparse

import (
	"strings"
)

const (
	noOpenMessage   = -1
	ignoredTextMax  = 180
	reasonNoPattern = "No message-start pattern match"
)

// lineState is the scanner state between lines: either no message is open,
// or open indexes the message that continuation lines attach to.
type lineState struct {
	open int
}

// lineResult accumulates what the line scanner has found so far.
type lineResult struct {
	messages []IntermediateMessage
	ignored  []IgnoredLine
	total    int
	matched  int
}

// lineClassifier recognises a message-start line. It returns false for lines
// that should continue the open message or be ignored.
type lineClassifier func(line string) (IntermediateMessage, bool)

// step consumes one input line and returns the next state.
func step(st lineState, acc *lineResult, lineNo int, line string, classify lineClassifier) lineState {
	if strings.TrimSpace(line) == "" {
		return st
	}
	acc.total++

	if msg, ok := classify(line); ok {
		msg.Order = len(acc.messages)
		acc.messages = append(acc.messages, msg)
		acc.matched++
		return lineState{open: len(acc.messages) - 1}
	}

	if st.open != noOpenMessage {
		m := &acc.messages[st.open]
		if m.Text == "" {
			m.Text = line
		} else {
			m.Text += "\n" + line
		}
		return st
	}

	acc.ignored = append(acc.ignored, IgnoredLine{
		Line:   lineNo,
		Text:   truncateRunes(line, ignoredTextMax),
		Reason: reasonNoPattern,
	})
	return st
}

// scanLines folds step over every line of text.
func scanLines(text string, classify lineClassifier) ParseOutput {
	acc := &lineResult{}
	st := lineState{open: noOpenMessage}
	for i, line := range splitLines(text) {
		st = step(st, acc, i+1, line, classify)
	}

	out := ParseOutput{
		Ignored:      acc.ignored,
		TotalLines:   acc.total,
		MatchedLines: acc.matched,
	}
	for _, m := range acc.messages {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		out.Messages = append(out.Messages, m)
	}
	return out
}

// splitLines splits on any newline convention and drops a leading BOM.
func splitLines(text string) []string {
	text = strings.TrimPrefix(text, "\ufeff")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t")
	}
	return lines
}
