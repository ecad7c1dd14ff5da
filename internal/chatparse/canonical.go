package chatparse

import (
	"fmt"
	"maps"
	"sort"
	"time"
)

const (
	defaultConversationID = "default"
	directionUnknown      = "unknown"
	fallbackStep          = 1000 * time.Millisecond
)

// Canonicalize orders messages chronologically and converts them to the
// canonical schema. Messages with real timestamps are ordered by time; ties,
// and messages without a timestamp, keep encounter order. A message without a
// timestamp sorts directly after the nearest earlier-encountered message that
// has one. Missing timestamps are then filled with now + index*1s and flagged
// timestampDerived.
func Canonicalize(app SourceApp, msgs []IntermediateMessage, now time.Time) []CanonicalMessage {
	type keyed struct {
		msg    IntermediateMessage
		anchor *time.Time
	}

	items := make([]keyed, len(msgs))
	byOrder := make([]int, len(msgs))
	for i := range msgs {
		byOrder[i] = i
	}
	sort.SliceStable(byOrder, func(a, b int) bool { return msgs[byOrder[a]].Order < msgs[byOrder[b]].Order })

	var last *time.Time
	for pos, idx := range byOrder {
		m := msgs[idx]
		if m.Timestamp != nil {
			last = m.Timestamp
		}
		items[pos] = keyed{msg: m, anchor: last}
	}

	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i].anchor, items[j].anchor
		switch {
		case a == nil && b == nil:
		case a == nil:
			return true
		case b == nil:
			return false
		case !a.Equal(*b):
			return a.Before(*b)
		}
		return items[i].msg.Order < items[j].msg.Order
	})

	out := make([]CanonicalMessage, len(items))
	for i, it := range items {
		m := it.msg

		meta := make(map[string]any, len(m.Metadata)+1)
		maps.Copy(meta, m.Metadata)

		ts := m.Timestamp
		if ts == nil {
			t := now.Add(time.Duration(i) * fallbackStep).UTC()
			ts = &t
			meta["timestampDerived"] = true
		} else {
			t := ts.UTC()
			ts = &t
			meta["timestampDerived"] = false
		}

		conv := m.ConversationID
		if conv == "" {
			conv = defaultConversationID
		}
		msgType := m.Type
		if msgType == "" {
			msgType = TypeUnknown
		}

		out[i] = CanonicalMessage{
			ID:             fmt.Sprintf("msg_%d", i+1),
			SourceApp:      app,
			ConversationID: conv,
			SenderDisplay:  m.SenderDisplay,
			Direction:      directionUnknown,
			Timestamp:      ts,
			Text:           m.Text,
			MessageType:    msgType,
			Metadata:       meta,
			Raw:            m.Raw,
		}
	}
	return out
}

// ToDBMessages flattens canonical messages into persistence rows.
func ToDBMessages(msgs []CanonicalMessage) []DBMessage {
	rows := make([]DBMessage, len(msgs))
	for i, m := range msgs {
		var ts time.Time
		if m.Timestamp != nil {
			ts = *m.Timestamp
		}
		rows[i] = DBMessage{
			Timestamp: ts,
			Sender:    m.SenderDisplay,
			Text:      m.Text,
			Meta: map[string]any{
				"id":               m.ID,
				"sourceApp":        m.SourceApp,
				"conversationId":   m.ConversationID,
				"messageType":      m.MessageType,
				"timestampDerived": m.TimestampDerived(),
			},
		}
	}
	return rows
}
