package chatparse

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// snapchatRoot is only used to recognise Snapchat JSON during detection; the
// parser itself walks the document without assuming a shape.
type snapchatRoot struct {
	ChatHistory      json.RawMessage `json:"chat_history"`
	ChatHistoryCamel json.RawMessage `json:"chatHistory"`
}

func (r *snapchatRoot) matches() bool {
	return len(r.ChatHistory) > 0 || len(r.ChatHistoryCamel) > 0
}

var (
	snapTextKeys   = []string{"content", "message", "chat_message", "text"}
	snapTimeKeys   = []string{"created", "created_at", "timestamp", "timestamp_ms", "sent_at", "date", "created(microseconds)"}
	snapSenderKeys = []string{"from", "sender", "sender_name", "author", "username"}
	snapMediaKeys  = []string{"media_type", "media type"}
)

// jsonField is one key/value pair of an object, in document order.
type jsonField struct {
	Key   string
	Value any
}

// jsonObject preserves key order, which map[string]any does not.
type jsonObject []jsonField

// get looks a key up case-insensitively.
func (o jsonObject) get(key string) (any, bool) {
	for _, f := range o {
		if strings.EqualFold(f.Key, key) {
			return f.Value, true
		}
	}
	return nil, false
}

func (o jsonObject) first(keys []string) (string, any, bool) {
	for _, k := range keys {
		if v, ok := o.get(k); ok && v != nil {
			return k, v, true
		}
	}
	return "", nil, false
}

// ParseSnapchatJSON walks a Snapchat chat_history.json of any shape and
// collects every object that looks like a chat message.
func ParseSnapchatJSON(data []byte) (ParseOutput, error) {
	dec := json.NewDecoder(bytes.NewReader(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))))
	dec.UseNumber()
	root, err := decodeOrdered(dec)
	if err != nil {
		return ParseOutput{}, structural(FormatSnapchatJSON, "Invalid Snapchat JSON", err)
	}

	var out ParseOutput
	walkSnapchat(root, "", &out)
	out.MatchedLines = len(out.Messages)
	if len(out.Messages) == 0 {
		out.Warnings = append(out.Warnings, "No messages found in Snapchat export")
	}
	return out, nil
}

func walkSnapchat(v any, conversation string, out *ParseOutput) {
	switch node := v.(type) {
	case []any:
		for _, item := range node {
			walkSnapchat(item, conversation, out)
		}
	case jsonObject:
		_, _, hasText := node.first(snapTextKeys)
		_, _, hasTime := node.first(snapTimeKeys)
		if hasText || hasTime {
			out.TotalLines++
			if msg, ok := snapchatMessage(node, conversation); ok {
				msg.Order = len(out.Messages)
				out.Messages = append(out.Messages, msg)
			}
			return
		}
		for _, f := range node {
			child := conversation
			if _, isList := f.Value.([]any); isList && !isSnapContainerKey(f.Key) {
				child = f.Key
			}
			walkSnapchat(f.Value, child, out)
		}
	}
}

// isSnapContainerKey reports keys that group chats rather than name a friend.
func isSnapContainerKey(k string) bool {
	switch strings.ToLower(k) {
	case "chat_history", "chathistory", "received saved chat history", "sent saved chat history",
		"received chat history", "sent chat history", "messages":
		return true
	}
	return false
}

func snapchatMessage(o jsonObject, conversation string) (IntermediateMessage, bool) {
	text := ""
	if _, v, ok := o.first(snapTextKeys); ok {
		text = strings.TrimSpace(scalarString(v))
	}

	msgType := TypeText
	mediaType := ""
	if _, v, ok := o.first(snapMediaKeys); ok {
		mediaType = scalarString(v)
	}
	if text == "" {
		if mediaType == "" || strings.EqualFold(mediaType, "TEXT") {
			return IntermediateMessage{}, false
		}
		text = fmt.Sprintf("[%s]", strings.ToLower(mediaType))
		msgType = TypeMediaStub
	}

	sender := ""
	if _, v, ok := o.first(snapSenderKeys); ok {
		sender = scalarString(v)
	}
	if sender == "" {
		if v, ok := o.get("issender"); ok && v == true {
			sender = "me"
		} else if conversation != "" {
			sender = conversation
		} else {
			sender = "Unknown"
		}
	}

	var ts *time.Time
	if key, v, ok := o.first(snapTimeKeys); ok {
		if t, ok := snapchatTime(key, v); ok {
			ts = &t
		}
	}

	meta := map[string]any{}
	if mediaType != "" {
		meta["mediaType"] = mediaType
	}
	convID := conversation
	if v, ok := o.get("conversation_title"); ok && scalarString(v) != "" {
		convID = scalarString(v)
	}

	return IntermediateMessage{
		ConversationID: convID,
		SenderDisplay:  sender,
		Timestamp:      ts,
		Text:           text,
		Type:           msgType,
		Metadata:       meta,
	}, true
}

func snapchatTime(key string, v any) (time.Time, bool) {
	if n, ok := v.(json.Number); ok {
		f, err := n.Float64()
		if err != nil {
			return time.Time{}, false
		}
		if strings.Contains(strings.ToLower(key), "microseconds") {
			f /= 1000
		}
		return unixAuto(f)
	}
	return parseLooseTimestamp(scalarString(v))
}

func scalarString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		if x {
			return "true"
		}
		return "false"
	}
	return ""
}

// decodeOrdered decodes the next JSON value, keeping object key order.
func decodeOrdered(dec *json.Decoder) (any, error) {
	tok, err := dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			var obj jsonObject
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				obj = append(obj, jsonField{Key: key, Value: val})
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return obj, nil
		case '[':
			arr := []any{}
			for dec.More() {
				val, err := decodeOrdered(dec)
				if err != nil {
					return nil, err
				}
				arr = append(arr, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return arr, nil
		}
		return nil, fmt.Errorf("unexpected delimiter %v", t)
	default:
		return tok, nil
	}
}
