package chatparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	datePartsRe = regexp.MustCompile(`^(\d{1,4})[./-](\d{1,2})[./-](\d{1,4})$`)
	clockRe     = regexp.MustCompile(`(?i)^(\d{1,2})[:.](\d{2})(?:[:.](\d{2}))?\s*([ap])?\.?\s*(?:m\.?)?$`)
)

// ParseDateTime combines a numeric chat date and a clock string into a UTC
// time. With two ambiguous leading components the first is read as the day
// when it exceeds 12, the second as the day when it exceeds 12, and month-first
// otherwise. 12-hour clocks are converted with the usual AM/PM rules.
func ParseDateTime(date, clock string) (time.Time, bool) {
	year, month, day, ok := parseChatDate(strings.TrimSpace(date))
	if !ok {
		return time.Time{}, false
	}
	hour, minute, second, ok := parseClock(clock)
	if !ok {
		return time.Time{}, false
	}

	t := time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
	// Reject dates time.Date had to normalise, e.g. 31/02.
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, false
	}
	return t, true
}

func parseChatDate(s string) (year, month, day int, ok bool) {
	m := datePartsRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	a, _ := strconv.Atoi(m[1])
	b, _ := strconv.Atoi(m[2])
	c, _ := strconv.Atoi(m[3])

	if len(m[1]) == 4 {
		// ISO order: YYYY-MM-DD.
		year, month, day = a, b, c
	} else {
		year = c
		if len(m[3]) <= 2 {
			year += 2000
		}
		switch {
		case a > 12:
			day, month = a, b
		case b > 12:
			month, day = a, b
		default:
			month, day = a, b
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

func parseClock(s string) (hour, minute, second int, ok bool) {
	s = strings.TrimSpace(normalizeSpaces(s))
	m := clockRe.FindStringSubmatch(s)
	if m == nil {
		return 0, 0, 0, false
	}
	hour, _ = strconv.Atoi(m[1])
	minute, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		second, _ = strconv.Atoi(m[3])
	}

	switch strings.ToLower(m[4]) {
	case "a":
		if hour == 12 {
			hour = 0
		}
	case "p":
		if hour != 12 {
			hour += 12
		}
	}

	if hour > 23 || minute > 59 || second > 59 {
		return 0, 0, 0, false
	}
	return hour, minute, second, true
}

// looseLayouts are tried in order by parseLooseTimestamp.
var looseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"Jan 2, 2006 3:04:05 PM",
	"Jan 2, 2006 at 3:04:05 PM",
	"Jan 2, 2006 3:04 PM",
	"02.01.2006 15:04:05",
	"2006-01-02",
}

// parseLooseTimestamp handles the assorted timestamp spellings found in JSON
// and CSV exports: ISO strings, Unix seconds or milliseconds, and chat-style
// "date, time" pairs.
func parseLooseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(normalizeSpaces(s))
	if s == "" {
		return time.Time{}, false
	}
	if n, err := strconv.ParseFloat(s, 64); err == nil {
		return unixAuto(n)
	}
	for _, layout := range looseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	if date, clock, found := strings.Cut(s, ","); found {
		return ParseDateTime(date, clock)
	}
	if date, clock, found := strings.Cut(s, " "); found {
		return ParseDateTime(date, clock)
	}
	return time.Time{}, false
}

// unixAuto treats values above 10,000,000,000 as milliseconds and smaller
// values as seconds.
func unixAuto(n float64) (time.Time, bool) {
	if n <= 0 {
		return time.Time{}, false
	}
	if n > 10_000_000_000 {
		return time.UnixMilli(int64(n)).UTC(), true
	}
	return time.Unix(int64(n), 0).UTC(), true
}

// normalizeSpaces folds the invisible and non-breaking characters that chat
// exports sprinkle around timestamps.
func normalizeSpaces(s string) string {
	return invisibleReplacer.Replace(s)
}

var invisibleReplacer = strings.NewReplacer(
	"\u200e", "",
	"\u200f", "",
	"\u202a", "",
	"\u202c", "",
	"\u00a0", " ",
	"\u202f", " ",
	"\u2009", " ",
)
