package chatparse

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Header synonyms, compared case-insensitively after trimming.
var (
	csvDateColumns   = []string{"date", "timestamp", "datetime", "message date", "message_date", "date sent", "sent", "sent at"}
	csvSenderColumns = []string{"sender", "from", "sender name", "sender_name", "author", "handle", "contact", "sender id"}
	csvTextColumns   = []string{"text", "message", "body", "content", "message text", "message_text"}
	csvTimeColumns   = []string{"time", "message time", "time sent"}
	csvFromMeColumns = []string{"is_from_me", "is from me", "from me"}
)

// ParseIMessageCSV parses a CSV export of iMessage conversations. The header
// row decides which columns hold the date, sender and text; a file without
// sender and text columns is rejected outright.
func ParseIMessageCSV(text string) (ParseOutput, error) {
	r := csv.NewReader(strings.NewReader(strings.TrimPrefix(text, "\ufeff")))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return ParseOutput{}, structural(FormatIMessageCSV, "CSV is empty", nil)
		}
		return ParseOutput{}, structural(FormatIMessageCSV, "Invalid CSV", err)
	}

	dateCol := findColumn(header, csvDateColumns)
	timeCol := findColumn(header, csvTimeColumns)
	if dateCol < 0 {
		dateCol, timeCol = timeCol, -1
	}
	senderCol := findColumn(header, csvSenderColumns)
	textCol := findColumn(header, csvTextColumns)
	fromMeCol := findColumn(header, csvFromMeColumns)

	var missing []string
	if senderCol < 0 && fromMeCol < 0 {
		missing = append(missing, "sender")
	}
	if textCol < 0 {
		missing = append(missing, "text")
	}
	if len(missing) > 0 {
		return ParseOutput{}, structural(FormatIMessageCSV,
			fmt.Sprintf("CSV is missing required columns: %s", strings.Join(missing, ", ")), nil)
	}

	var out ParseOutput
	if dateCol < 0 {
		out.Warnings = append(out.Warnings, "CSV has no date column; message times will be derived")
	}

	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return ParseOutput{}, structural(FormatIMessageCSV, "Invalid CSV", err)
		}
		if rowBlank(row) {
			continue
		}
		out.TotalLines++

		body := strings.TrimSpace(cell(row, textCol))
		if body == "" {
			continue
		}

		sender := strings.TrimSpace(cell(row, senderCol))
		if sender == "" && isTruthy(cell(row, fromMeCol)) {
			sender = "Me"
		}
		if sender == "" {
			sender = "Unknown"
		}

		var ts *time.Time
		raw := strings.TrimSpace(cell(row, dateCol))
		if clock := strings.TrimSpace(cell(row, timeCol)); raw != "" && clock != "" {
			raw += " " + clock
		}
		if raw != "" {
			if t, ok := parseLooseTimestamp(raw); ok {
				ts = &t
			}
		}

		out.Messages = append(out.Messages, IntermediateMessage{
			Order:         len(out.Messages),
			SenderDisplay: sender,
			Timestamp:     ts,
			Text:          body,
			Type:          TypeText,
		})
		out.MatchedLines++
	}

	if len(out.Messages) == 0 {
		out.Warnings = append(out.Warnings, "No messages found in CSV")
	}
	return out, nil
}

func findColumn(header []string, names []string) int {
	for _, name := range names {
		for i, h := range header {
			if strings.EqualFold(strings.TrimSpace(h), name) {
				return i
			}
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

func rowBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isTruthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}
