package chatparse

import (
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Telegram's HTML export is split on message div boundaries before any HTML
// parsing, so truncated or hand-edited files still yield whatever messages
// are intact. Each block is then read on its own.
var (
	tgBlockSplitRe = regexp.MustCompile(`<div class="message`)
	tgDateTitleRe  = regexp.MustCompile(`^(\d{2}\.\d{2}\.\d{4} \d{2}:\d{2}:\d{2})(?: UTC([+-]\d{2}):?(\d{2}))?`)
)

// ParseTelegramHTML parses a Telegram Desktop messages.html export.
func ParseTelegramHTML(text string) ParseOutput {
	blocks := tgBlockSplitRe.Split(text, -1)

	var out ParseOutput
	lastSender := ""
	for _, block := range blocks[1:] {
		out.TotalLines++

		doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<div class="message` + block))
		if err != nil {
			continue
		}
		root := doc.Find("div").First()
		service := root.HasClass("service")

		if name := blockText(root.Find("div.from_name").First()); name != "" {
			lastSender = name
		}

		var body string
		if service {
			body = blockText(root.Find("div.body.details").First())
		} else {
			body = blockText(root.Find("div.text").First())
		}
		if body == "" {
			continue
		}

		msg := IntermediateMessage{
			Order: len(out.Messages),
			Text:  body,
			Type:  TypeText,
		}
		if service {
			msg.Type = TypeSystem
		} else {
			// Consecutive messages from one sender omit from_name.
			msg.SenderDisplay = lastSender
		}
		if title, ok := root.Find("div.date[title]").First().Attr("title"); ok {
			if t, ok := parseTelegramTitle(title); ok {
				msg.Timestamp = &t
			}
		}

		out.Messages = append(out.Messages, msg)
		out.MatchedLines++
	}

	if len(out.Messages) == 0 {
		out.Warnings = append(out.Warnings, "No messages found in Telegram HTML export")
	}
	return out
}

// parseTelegramTitle reads "15.01.2023 10:20:30 UTC+03:00" style titles.
func parseTelegramTitle(s string) (time.Time, bool) {
	m := tgDateTitleRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, false
	}
	t, err := time.Parse("02.01.2006 15:04:05", m[1])
	if err != nil {
		return time.Time{}, false
	}
	if m[2] != "" {
		offset, err := time.Parse("-0700", m[2]+m[3])
		if err == nil {
			_, secs := offset.Zone()
			t = t.Add(-time.Duration(secs) * time.Second)
		}
	}
	return t.UTC(), true
}

// blockText returns the plain text of sel with <br> as newlines. Entities are
// decoded by the HTML parser.
func blockText(sel *goquery.Selection) string {
	if sel.Length() == 0 {
		return ""
	}
	sel.Find("br").ReplaceWithHtml("\n")
	s := strings.ReplaceAll(sel.Text(), "\u00a0", " ")
	return strings.TrimSpace(s)
}
