package chatparse

import (
	"fmt"
	"testing"
	"time"
)

func at(h, m int) *time.Time {
	t := time.Date(2026, 2, 10, h, m, 0, 0, time.UTC)
	return &t
}

func TestCanonicalize_SortsByTimeThenEncounterOrder(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	in := []IntermediateMessage{
		{Order: 0, SenderDisplay: "A", Timestamp: at(10, 0), Text: "a"},
		{Order: 1, SenderDisplay: "B", Text: "b"},
		{Order: 2, SenderDisplay: "C", Timestamp: at(9, 0), Text: "c"},
		{Order: 3, SenderDisplay: "D", Timestamp: at(10, 0), Text: "d"},
		{Order: 4, SenderDisplay: "E", Text: "e"},
	}

	out := Canonicalize(AppWhatsApp, in, now)

	var got string
	for _, m := range out {
		got += m.Text
	}
	if got != "cabde" {
		t.Fatalf("order = %q, want %q", got, "cabde")
	}

	for i, m := range out {
		if want := fmt.Sprintf("msg_%d", i+1); m.ID != want {
			t.Errorf("id[%d] = %q, want %q", i, m.ID, want)
		}
		if m.Direction != "unknown" || m.ConversationID != "default" || m.SourceApp != AppWhatsApp {
			t.Errorf("msg %d defaults = %+v", i, m)
		}
	}

	if !out[2].TimestampDerived() || !out[2].Timestamp.Equal(now.Add(2*time.Second)) {
		t.Errorf("b timestamp = %v derived=%v, want now+2s", out[2].Timestamp, out[2].TimestampDerived())
	}
	if !out[4].TimestampDerived() || !out[4].Timestamp.Equal(now.Add(4*time.Second)) {
		t.Errorf("e timestamp = %v, want now+4s", out[4].Timestamp)
	}
	if out[0].TimestampDerived() {
		t.Error("real timestamp flagged as derived")
	}
}

func TestCanonicalize_RealTimestampsAreMonotonic(t *testing.T) {
	in := []IntermediateMessage{
		{Order: 0, Timestamp: at(11, 0), Text: "x"},
		{Order: 1, Timestamp: at(9, 30), Text: "y"},
		{Order: 2, Timestamp: at(10, 15), Text: "z"},
		{Order: 3, Timestamp: at(9, 30), Text: "w"},
	}
	out := Canonicalize(AppTelegram, in, time.Now())

	for i := 1; i < len(out); i++ {
		if out[i].Timestamp.Before(*out[i-1].Timestamp) {
			t.Errorf("message %d (%v) sorts after later message %d (%v)", i, out[i].Timestamp, i-1, out[i-1].Timestamp)
		}
	}
	if out[0].Text != "y" || out[1].Text != "w" {
		t.Errorf("tie not broken by encounter order: %q then %q", out[0].Text, out[1].Text)
	}
}

func TestCanonicalize_LeadingUntimedMessagesStayFirst(t *testing.T) {
	in := []IntermediateMessage{
		{Order: 0, Text: "first"},
		{Order: 1, Timestamp: at(8, 0), Text: "second"},
	}
	out := Canonicalize(AppUnknown, in, time.Now())
	if out[0].Text != "first" || out[1].Text != "second" {
		t.Errorf("order = %q, %q", out[0].Text, out[1].Text)
	}
}

func TestCanonicalize_DoesNotMutateInputMetadata(t *testing.T) {
	meta := map[string]any{"fromId": "user1"}
	in := []IntermediateMessage{{Order: 0, Text: "x", Metadata: meta, Type: TypeText}}

	out := Canonicalize(AppTelegram, in, time.Now())
	if _, ok := meta["timestampDerived"]; ok {
		t.Error("input metadata was modified")
	}
	if out[0].Metadata["fromId"] != "user1" {
		t.Errorf("metadata not copied: %v", out[0].Metadata)
	}
}

func TestToDBMessages(t *testing.T) {
	in := []IntermediateMessage{
		{Order: 0, SenderDisplay: "Alex", Timestamp: at(9, 0), Text: "hi", Type: TypeText, ConversationID: "sam"},
	}
	rows := ToDBMessages(Canonicalize(AppSnapchat, in, time.Now()))

	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	r := rows[0]
	if r.Sender != "Alex" || r.Text != "hi" || !r.Timestamp.Equal(*at(9, 0)) {
		t.Errorf("row = %+v", r)
	}
	if r.Meta["id"] != "msg_1" || r.Meta["sourceApp"] != AppSnapchat || r.Meta["conversationId"] != "sam" ||
		r.Meta["messageType"] != TypeText || r.Meta["timestampDerived"] != false {
		t.Errorf("meta = %v", r.Meta)
	}
}
