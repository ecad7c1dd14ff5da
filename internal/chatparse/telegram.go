package chatparse

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// telegramExport is the shape of a Telegram Desktop result.json. A single-chat
// export has messages at the root; a full account export nests them under
// chats.list.
type telegramExport struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Messages []telegramMessage `json:"messages"`
	Chats    *struct {
		List []telegramChat `json:"list"`
	} `json:"chats"`
}

type telegramChat struct {
	Name     string            `json:"name"`
	Type     string            `json:"type"`
	Messages []telegramMessage `json:"messages"`
}

type telegramMessage struct {
	Type         string          `json:"type"`
	Date         string          `json:"date"`
	DateUnixtime flexUnix        `json:"date_unixtime"`
	From         *string         `json:"from"`
	FromID       string          `json:"from_id"`
	Actor        string          `json:"actor"`
	Action       string          `json:"action"`
	Text         json.RawMessage `json:"text"`
	MediaType    string          `json:"media_type"`
}

// flexUnix accepts a Unix timestamp encoded as a JSON string or number.
type flexUnix struct {
	set   bool
	value float64
}

func (u *flexUnix) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	u.set, u.value = true, n
	return nil
}

// thread returns the conversation to import: root messages, or the first
// chats.list entry that has any.
func (e *telegramExport) thread() (name string, msgs []telegramMessage) {
	if len(e.Messages) > 0 {
		return e.Name, e.Messages
	}
	if e.Chats != nil {
		for _, c := range e.Chats.List {
			if len(c.Messages) > 0 {
				return c.Name, c.Messages
			}
		}
	}
	return "", nil
}

func (e *telegramExport) matches() bool {
	_, msgs := e.thread()
	if len(msgs) == 0 {
		return false
	}
	m := msgs[0]
	return m.From != nil || m.DateUnixtime.set || len(m.Text) > 0
}

// ParseTelegramJSON parses a Telegram Desktop JSON export. Malformed JSON is a
// *StructuralError; an export with no messages only produces a warning.
func ParseTelegramJSON(data []byte) (ParseOutput, error) {
	var export telegramExport
	if err := json.Unmarshal(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")), &export); err != nil {
		return ParseOutput{}, structural(FormatTelegramJSON, "Invalid Telegram JSON", err)
	}

	name, entries := export.thread()
	out := ParseOutput{SelectedThread: name}
	if len(entries) == 0 {
		out.Warnings = append(out.Warnings, "No messages found in Telegram export")
		return out, nil
	}
	if export.Chats != nil && len(export.Messages) == 0 && len(export.Chats.List) > 1 {
		out.Warnings = append(out.Warnings, "Telegram export contains several chats; imported the first one with messages: "+name)
	}

	for _, e := range entries {
		text := strings.TrimSpace(flattenTelegramText(e.Text))
		if text == "" {
			continue
		}

		sender := e.Actor
		if e.From != nil && *e.From != "" {
			sender = *e.From
		}
		if sender == "" {
			sender = "Unknown"
		}

		msgType := TypeText
		if e.Type == "service" {
			msgType = TypeSystem
		}

		meta := map[string]any{}
		if e.FromID != "" {
			meta["fromId"] = e.FromID
		}
		if e.MediaType != "" {
			meta["mediaType"] = e.MediaType
		}
		if e.Action != "" {
			meta["action"] = e.Action
		}

		out.Messages = append(out.Messages, IntermediateMessage{
			Order:         len(out.Messages),
			SenderDisplay: sender,
			Timestamp:     telegramTime(e),
			Text:          text,
			Type:          msgType,
			Metadata:      meta,
		})
	}

	out.TotalLines = len(entries)
	out.MatchedLines = len(out.Messages)
	if len(out.Messages) == 0 {
		out.Warnings = append(out.Warnings, "Telegram export has no text messages")
	}
	return out, nil
}

// telegramTime prefers the ISO date field and falls back to date_unixtime.
func telegramTime(e telegramMessage) *time.Time {
	if e.Date != "" {
		if t, err := time.Parse("2006-01-02T15:04:05", e.Date); err == nil {
			return &t
		}
		if t, err := time.Parse(time.RFC3339, e.Date); err == nil {
			t = t.UTC()
			return &t
		}
	}
	if e.DateUnixtime.set {
		if t, ok := unixAuto(e.DateUnixtime.value); ok {
			return &t
		}
	}
	return nil
}

// flattenTelegramText joins Telegram's text field, which is either a plain
// string or an array mixing strings and {"type":..,"text":..} entities.
func flattenTelegramText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return ""
	}

	var sb strings.Builder
	for _, p := range parts {
		var str string
		if err := json.Unmarshal(p, &str); err == nil {
			sb.WriteString(str)
			continue
		}
		var ent struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(p, &ent); err == nil {
			sb.WriteString(ent.Text)
		}
	}
	return sb.String()
}
