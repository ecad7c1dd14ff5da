package chatparse

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// metaExport is one message_N.json file from an Instagram or Messenger
// "Download your information" archive.
type metaExport struct {
	Title        string `json:"title"`
	ThreadPath   string `json:"thread_path"`
	Participants []struct {
		Name string `json:"name"`
	} `json:"participants"`
	Messages []metaMessage `json:"messages"`
}

type metaMessage struct {
	SenderName   string            `json:"sender_name"`
	TimestampMS  int64             `json:"timestamp_ms"`
	Content      *string           `json:"content"`
	Photos       []json.RawMessage `json:"photos"`
	Videos       []json.RawMessage `json:"videos"`
	AudioFiles   []json.RawMessage `json:"audio_files"`
	Gifs         []json.RawMessage `json:"gifs"`
	Sticker      *struct {
		URI string `json:"uri"`
	} `json:"sticker"`
	Share *struct {
		Link string `json:"link"`
	} `json:"share"`
	Reactions []struct {
		Reaction string `json:"reaction"`
		Actor    string `json:"actor"`
	} `json:"reactions"`
	CallDuration *int   `json:"call_duration"`
	IsUnsent     bool   `json:"is_unsent"`
	Type         string `json:"type"`
}

func (e *metaExport) matches() bool {
	return len(e.Messages) > 0 && e.Messages[0].SenderName != "" && e.Messages[0].TimestampMS != 0
}

// ParseMetaJSON parses a single Instagram/Messenger thread file.
func ParseMetaJSON(data []byte) (ParseOutput, error) {
	export, err := decodeMetaExport(data)
	if err != nil {
		return ParseOutput{}, err
	}

	out := ParseOutput{SelectedThread: fixMetaEncoding(export.Title)}
	out.Messages = metaMessages(export.Messages, 0)
	out.TotalLines = len(export.Messages)
	out.MatchedLines = len(out.Messages)
	if len(out.Messages) == 0 {
		out.Warnings = append(out.Warnings, "No messages found in Meta export")
	}
	return out, nil
}

func decodeMetaExport(data []byte) (*metaExport, error) {
	var export metaExport
	if err := json.Unmarshal(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), &export); err != nil {
		return nil, structural(FormatMetaJSON, "Invalid Meta messages JSON", err)
	}
	return &export, nil
}

// metaMessages converts raw Meta messages, numbering them from startOrder.
func metaMessages(raw []metaMessage, startOrder int) []IntermediateMessage {
	var msgs []IntermediateMessage
	for i, m := range raw {
		text := ""
		if m.Content != nil {
			text = strings.TrimSpace(fixMetaEncoding(*m.Content))
		}

		msgType := TypeText
		switch {
		case m.CallDuration != nil && text != "":
			msgType = TypeCall
		case text == "":
			if stub := metaMediaPlaceholder(m); stub != "" {
				text, msgType = stub, TypeMediaStub
			} else {
				msgType = TypeUnknown
			}
		}
		if text == "" {
			continue
		}

		meta := map[string]any{}
		if len(m.Reactions) > 0 {
			reactions := make([]map[string]string, 0, len(m.Reactions))
			for _, r := range m.Reactions {
				reactions = append(reactions, map[string]string{
					"reaction": fixMetaEncoding(r.Reaction),
					"actor":    fixMetaEncoding(r.Actor),
				})
			}
			meta["reactions"] = reactions
		}
		if m.Share != nil && m.Share.Link != "" {
			meta["shareLink"] = m.Share.Link
		}
		if m.IsUnsent {
			meta["unsent"] = true
		}

		var ts *time.Time
		if m.TimestampMS > 0 {
			t := time.UnixMilli(m.TimestampMS).UTC()
			ts = &t
		}

		msgs = append(msgs, IntermediateMessage{
			Order:         startOrder + i,
			SenderDisplay: fixMetaEncoding(m.SenderName),
			Timestamp:     ts,
			Text:          text,
			Type:          msgType,
			Metadata:      meta,
		})
	}
	return msgs
}

func metaMediaPlaceholder(m metaMessage) string {
	switch {
	case len(m.Photos) > 0:
		return fmt.Sprintf("[photo x%d]", len(m.Photos))
	case len(m.Videos) > 0:
		return fmt.Sprintf("[video x%d]", len(m.Videos))
	case len(m.AudioFiles) > 0:
		return "[audio]"
	case len(m.Gifs) > 0:
		return "[gif]"
	case m.Sticker != nil:
		return "[sticker]"
	}
	return ""
}

// fixMetaEncoding undoes Meta's habit of writing UTF-8 bytes as individual
// \u00XX escapes. Strings that do not round-trip are returned unchanged.
func fixMetaEncoding(s string) string {
	needs := false
	for _, r := range s {
		if r >= 0x80 {
			needs = true
			break
		}
	}
	if !needs {
		return s
	}
	raw, err := charmap.ISO8859_1.NewEncoder().String(s)
	if err != nil || !utf8.ValidString(raw) {
		return s
	}
	return raw
}
