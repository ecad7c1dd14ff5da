// Package transcript renders canonical chat messages as plain-text chunks for
// the downstream insight generator.
package transcript

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
)

const (
	maxChunkMessages = 200
	maxChunkRunes    = 24000
	sessionGap       = 6 * time.Hour
)

// Chunk is a run of consecutive messages from one conversation.
type Chunk struct {
	Messages       []chatparse.CanonicalMessage
	Ref            string // import ref + chunk index
	ConversationID string
	StartTime      time.Time
	EndTime        time.Time
}

// ChunkConversation splits messages into chunks. It breaks when the
// conversation changes, on gaps longer than six hours between real
// timestamps, and on message count and size boundaries.
func ChunkConversation(msgs []chatparse.CanonicalMessage, ref string) []Chunk {
	if len(msgs) == 0 {
		return nil
	}

	var chunks []Chunk
	var current []chatparse.CanonicalMessage
	size := 0

	flush := func() {
		if len(current) > 0 {
			chunks = append(chunks, buildChunk(current, ref, len(chunks)))
		}
		current, size = nil, 0
	}

	for _, msg := range msgs {
		if len(current) > 0 {
			prev := current[len(current)-1]
			switch {
			case prev.ConversationID != msg.ConversationID:
				flush()
			case realTime(prev) && realTime(msg) && msg.Timestamp.Sub(*prev.Timestamp) > sessionGap:
				flush()
			case len(current) >= maxChunkMessages, size+len([]rune(msg.Text)) > maxChunkRunes:
				flush()
			}
		}

		current = append(current, msg)
		size += len([]rune(msg.Text))
	}
	flush()

	return chunks
}

func realTime(m chatparse.CanonicalMessage) bool {
	return m.Timestamp != nil && !m.TimestampDerived()
}

func buildChunk(msgs []chatparse.CanonicalMessage, ref string, idx int) Chunk {
	c := Chunk{
		Messages:       make([]chatparse.CanonicalMessage, len(msgs)),
		Ref:            fmt.Sprintf("%s#chunk-%d", ref, idx),
		ConversationID: msgs[0].ConversationID,
	}
	copy(c.Messages, msgs)

	for _, m := range msgs {
		if realTime(m) {
			if c.StartTime.IsZero() {
				c.StartTime = *m.Timestamp
			}
			c.EndTime = *m.Timestamp
		}
	}
	return c
}

// FormatTranscript renders a chunk one message per line:
//
//	[2026-02-13 09:00] Alex: morning
//	[2026-02-13 09:01] * Alex pinned a message
//
// Synthetic timestamps are left out.
func FormatTranscript(chunk Chunk) string {
	var sb strings.Builder
	for _, msg := range chunk.Messages {
		if realTime(msg) {
			sb.WriteString("[")
			sb.WriteString(msg.Timestamp.UTC().Format("2006-01-02 15:04"))
			sb.WriteString("] ")
		}

		switch {
		case msg.MessageType == chatparse.TypeSystem:
			sb.WriteString("* ")
		case msg.SenderDisplay != "":
			sb.WriteString(msg.SenderDisplay)
			sb.WriteString(": ")
		}

		// Keep continuation lines visually attached to their message.
		sb.WriteString(strings.ReplaceAll(msg.Text, "\n", "\n    "))
		sb.WriteString("\n")
	}
	return sb.String()
}
