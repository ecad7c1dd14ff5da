package chatparse

import (
	"errors"
	"testing"
	"time"
)

const telegramFixture = `{
  "name": "Alex",
  "type": "personal_chat",
  "id": 42,
  "messages": [
    {"id": 1, "type": "message", "date": "2026-02-10T09:05:00", "date_unixtime": "1770714300", "from": "Alex", "from_id": "user1", "text": "hello"},
    {"id": 2, "type": "message", "date": "2026-02-10T09:06:00", "from": "Sam", "from_id": "user2", "text": ["see ", {"type": "link", "text": "https://example.com"}, " now"]},
    {"id": 3, "type": "service", "date": "2026-02-10T09:07:00", "actor": "Alex", "actor_id": "user1", "action": "pin_message", "text": "pinned a message"},
    {"id": 4, "type": "message", "date": "2026-02-10T09:08:00", "from": "Sam", "text": "", "media_type": "sticker"}
  ]
}`

func TestParseTelegramJSON(t *testing.T) {
	out, err := ParseTelegramJSON([]byte(telegramFixture))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(out.Messages))
	}
	if out.TotalLines != 4 || out.MatchedLines != 3 {
		t.Errorf("total=%d matched=%d, want 4 and 3", out.TotalLines, out.MatchedLines)
	}
	if out.SelectedThread != "Alex" {
		t.Errorf("selected thread = %q", out.SelectedThread)
	}

	first := out.Messages[0]
	want := time.Date(2026, 2, 10, 9, 5, 0, 0, time.UTC)
	if first.Timestamp == nil || !first.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", first.Timestamp, want)
	}
	if first.Metadata["fromId"] != "user1" {
		t.Errorf("fromId = %v", first.Metadata["fromId"])
	}

	if got := out.Messages[1].Text; got != "see https://example.com now" {
		t.Errorf("entity text = %q", got)
	}

	svc := out.Messages[2]
	if svc.Type != TypeSystem || svc.SenderDisplay != "Alex" || svc.Metadata["action"] != "pin_message" {
		t.Errorf("service message = %+v", svc)
	}
}

func TestParseTelegramJSON_ChatsListPicksFirstNonEmpty(t *testing.T) {
	data := `{"chats": {"list": [
	  {"name": "Empty", "messages": []},
	  {"name": "Work", "messages": [{"type": "message", "date_unixtime": 1770714300, "from": "Alex", "text": "standup?"}]},
	  {"name": "Other", "messages": [{"type": "message", "from": "Sam", "text": "ignored"}]}
	]}}`

	out, err := ParseTelegramJSON([]byte(data))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.SelectedThread != "Work" {
		t.Errorf("selected thread = %q, want Work", out.SelectedThread)
	}
	if len(out.Messages) != 1 || out.Messages[0].Text != "standup?" {
		t.Fatalf("messages = %+v", out.Messages)
	}
	if len(out.Warnings) == 0 {
		t.Error("expected a warning about multiple chats")
	}
	want := time.Unix(1770714300, 0).UTC()
	if ts := out.Messages[0].Timestamp; ts == nil || !ts.Equal(want) {
		t.Errorf("timestamp = %v, want %v", ts, want)
	}
}

func TestParseTelegramJSON_Malformed(t *testing.T) {
	_, err := ParseTelegramJSON([]byte("{not valid json"))
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StructuralError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StructuralError, got %T", err)
	}
	if se.Format != FormatTelegramJSON || se.Msg != "Invalid Telegram JSON" {
		t.Errorf("error = %+v", se)
	}
	if IsParseFailed(err) {
		t.Error("structural error must not be a ParseFailedError")
	}
}

func TestParseTelegramJSON_NoMessagesWarns(t *testing.T) {
	out, err := ParseTelegramJSON([]byte(`{"name": "Nobody", "messages": []}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out.Messages) != 0 || len(out.Warnings) != 1 {
		t.Errorf("messages=%d warnings=%v", len(out.Messages), out.Warnings)
	}
}

const telegramHTMLFixture = `<!DOCTYPE html>
<html><body><div class="history">
<div class="message service" id="message-1"><div class="body details">10 February 2026</div></div>
<div class="message default clearfix" id="message2"><div class="pull_left userpic_wrap"></div><div class="body"><div class="pull_right date details" title="10.02.2026 09:05:00 UTC+02:00">09:05</div><div class="from_name">Alex</div><div class="text">hello &amp; welcome<br>second line</div></div></div>
<div class="message default clearfix joined" id="message3"><div class="body"><div class="pull_right date details" title="10.02.2026 09:06:00">09:06</div><div class="text">again</div></div></div>
<div class="message default clearfix" id="message4"><div class="body"><div class="pull_right date details" title="10.02.2026 09:07:00">09:07</div><div class="from_name">Sam</div><div class="media_wrap"></div></div></div>
</div></body></html>`

func TestParseTelegramHTML(t *testing.T) {
	out := ParseTelegramHTML(telegramHTMLFixture)

	if out.TotalLines != 4 {
		t.Errorf("total = %d, want 4 blocks", out.TotalLines)
	}
	if len(out.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d: %+v", len(out.Messages), out.Messages)
	}

	svc := out.Messages[0]
	if svc.Type != TypeSystem || svc.Text != "10 February 2026" || svc.SenderDisplay != "" {
		t.Errorf("service = %+v", svc)
	}

	hello := out.Messages[1]
	if hello.SenderDisplay != "Alex" || hello.Text != "hello & welcome\nsecond line" {
		t.Errorf("hello = %q %q", hello.SenderDisplay, hello.Text)
	}
	want := time.Date(2026, 2, 10, 7, 5, 0, 0, time.UTC)
	if hello.Timestamp == nil || !hello.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v (offset applied)", hello.Timestamp, want)
	}

	joined := out.Messages[2]
	if joined.SenderDisplay != "Alex" {
		t.Errorf("joined message sender = %q, want inherited Alex", joined.SenderDisplay)
	}
}

func TestParseTelegramTitle(t *testing.T) {
	got, ok := parseTelegramTitle("15.01.2023 10:20:30 UTC-05:00")
	if !ok {
		t.Fatal("expected title to parse")
	}
	want := time.Date(2023, 1, 15, 15, 20, 30, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if _, ok := parseTelegramTitle("yesterday"); ok {
		t.Error("expected garbage title to fail")
	}
}
