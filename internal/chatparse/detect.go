package chatparse

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
)

// whatsappLineThreshold is how many timestamped lines make text "WhatsApp".
const whatsappLineThreshold = 3

// Detect guesses the app and format of an export from its name and content.
// It never fails; unrecognised input is reported as generic_paste.
func Detect(sourceAppHint, filePath string, data []byte) DetectionResult {
	hint := NormalizeSourceApp(sourceAppHint)
	ext := strings.ToLower(filepath.Ext(filePath))

	var res DetectionResult
	if ext == ".zip" {
		res = detectArchive(hint, data)
	} else {
		res = detectText(hint, ext, filePath, DecodeText(data))
	}

	if res.SourceAppGuess == AppUnknown && hint != AppUnknown {
		res.SourceAppGuess = hint
		res.Reasons = append(res.Reasons, fmt.Sprintf("source app taken from declared app %q", hint))
	}
	return res
}

func detected(f Format, app SourceApp, confidence float64, reasons ...string) DetectionResult {
	return DetectionResult{SourceAppGuess: app, Format: f, Confidence: confidence, Reasons: reasons}
}

func detectArchive(hint SourceApp, data []byte) DetectionResult {
	r, err := openArchive(data)
	if err != nil {
		return detected(FormatGenericPaste, AppUnknown, 0.4, "zip archive could not be opened")
	}
	names := entryNames(r)

	for _, n := range names {
		if isTelegramResult(n) {
			return detected(FormatTelegramJSON, AppTelegram, 0.9, "zip contains result.json")
		}
	}
	for _, n := range names {
		if isSnapchatHistory(n) {
			return detected(FormatSnapchatJSON, AppSnapchat, 0.9, "zip contains chat_history.json")
		}
	}

	var metaNames []string
	for _, n := range names {
		if isMetaThreadFile(n) {
			metaNames = append(metaNames, n)
		}
	}
	if len(metaNames) > 0 {
		app := hint
		if app == AppUnknown {
			app = metaAppFromPath(metaNames...)
		}
		return detected(FormatMetaJSON, app, 0.82, "zip contains messages/inbox/*/message_N.json")
	}

	return detected(FormatGenericPaste, AppUnknown, 0.4, "zip has no recognised chat export entry")
}

func detectText(hint SourceApp, ext, filePath, text string) DetectionResult {
	if ext == ".csv" {
		return detected(FormatIMessageCSV, AppIMessage, 0.75, "csv extension")
	}

	if ext == ".html" || ext == ".htm" {
		if hasTelegramHTMLMarkers(text) {
			return detected(FormatTelegramHTML, AppTelegram, 0.86, "html contains Telegram message markup")
		}
		if hint == AppTelegram {
			return detected(FormatTelegramHTML, AppTelegram, 0.66, "declared telegram; html markers not found")
		}
	}

	trimmed := strings.TrimSpace(strings.TrimPrefix(text, "\ufeff"))
	if ext == ".json" || strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		if res, ok := probeJSON(hint, filePath, []byte(trimmed)); ok {
			return res
		}
		if ext == ".json" {
			if f, ok := hintedJSONFormat(hint); ok {
				return detected(f, hint, 0.5, "json extension with declared app; content not recognised")
			}
		}
	}

	waLines := countWhatsAppLines(text, whatsappLineThreshold)
	if waLines >= whatsappLineThreshold {
		return detected(FormatWhatsAppText, AppWhatsApp, 0.84,
			fmt.Sprintf("at least %d lines match WhatsApp timestamp patterns", whatsappLineThreshold))
	}
	if ext == ".txt" {
		return detected(FormatWhatsAppText, AppWhatsApp, 0.65, "txt extension")
	}

	return detected(FormatGenericPaste, AppUnknown, 0.5, "fallback")
}

// hintedJSONFormat maps a declared app to the JSON format it exports, so that
// broken JSON reaches the parser that can report it.
func hintedJSONFormat(hint SourceApp) (Format, bool) {
	switch hint {
	case AppTelegram:
		return FormatTelegramJSON, true
	case AppInstagram, AppMessenger:
		return FormatMetaJSON, true
	case AppSnapchat:
		return FormatSnapchatJSON, true
	}
	return "", false
}

func hasTelegramHTMLMarkers(text string) bool {
	return strings.Contains(text, `<div class="message`) &&
		strings.Contains(text, "from_name") &&
		strings.Contains(text, `class="text"`)
}

// schemaProbe is implemented by each JSON export schema that detection can
// recognise. matches reports whether a successfully decoded value really has
// that schema's shape.
type schemaProbe interface {
	matches() bool
}

type jsonCandidate struct {
	format     Format
	app        SourceApp
	confidence float64
	reason     string
	schema     func() schemaProbe
}

// jsonCandidates are tried in priority order; a decode error or a false
// matches() moves on to the next candidate.
var jsonCandidates = []jsonCandidate{
	{FormatMetaJSON, AppUnknown, 0.9, "json messages carry sender_name and timestamp_ms",
		func() schemaProbe { return &metaExport{} }},
	{FormatTelegramJSON, AppTelegram, 0.85, "json messages carry from/date_unixtime/text",
		func() schemaProbe { return &telegramExport{} }},
	{FormatSnapchatJSON, AppSnapchat, 0.82, "json root has chat_history",
		func() schemaProbe { return &snapchatRoot{} }},
}

func probeJSON(hint SourceApp, filePath string, data []byte) (DetectionResult, bool) {
	if !json.Valid(data) {
		return DetectionResult{}, false
	}
	for _, c := range jsonCandidates {
		v := c.schema()
		if err := json.Unmarshal(data, v); err != nil || !v.matches() {
			continue
		}
		app := c.app
		if c.format == FormatMetaJSON {
			app = hint
			if app == AppUnknown {
				app = metaAppFromPath(filePath)
			}
		}
		return detected(c.format, app, c.confidence, c.reason), true
	}
	return DetectionResult{}, false
}
