package chatparse

import (
	"strings"
	"time"
)

// SourceApp is the messaging app an export came from.
type SourceApp string

const (
	AppWhatsApp  SourceApp = "whatsapp"
	AppTelegram  SourceApp = "telegram"
	AppInstagram SourceApp = "instagram"
	AppMessenger SourceApp = "messenger"
	AppIMessage  SourceApp = "imessage"
	AppSnapchat  SourceApp = "snapchat"
	AppUnknown   SourceApp = "unknown"
)

// NormalizeSourceApp maps a declared app name onto a known SourceApp.
// Anything unrecognised becomes AppUnknown so detection falls back to content.
func NormalizeSourceApp(s string) SourceApp {
	switch app := SourceApp(strings.ToLower(strings.TrimSpace(s))); app {
	case AppWhatsApp, AppTelegram, AppInstagram, AppMessenger, AppIMessage, AppSnapchat:
		return app
	default:
		return AppUnknown
	}
}

// Format identifies the concrete export encoding.
type Format string

const (
	FormatWhatsAppText Format = "whatsapp_txt"
	FormatTelegramJSON Format = "telegram_json"
	FormatTelegramHTML Format = "telegram_html"
	FormatMetaJSON     Format = "meta_messages_json"
	FormatSnapchatJSON Format = "snapchat_json"
	FormatIMessageCSV  Format = "imessage_csv"
	FormatGenericPaste Format = "generic_paste"
)

// lineOriented reports whether ignored-line statistics are meaningful for f.
func (f Format) lineOriented() bool {
	switch f {
	case FormatTelegramJSON, FormatMetaJSON, FormatSnapchatJSON:
		return false
	default:
		return true
	}
}

// MessageType classifies a message body.
type MessageType string

const (
	TypeText      MessageType = "text"
	TypeSystem    MessageType = "system"
	TypeMediaStub MessageType = "media_stub"
	TypeReaction  MessageType = "reaction"
	TypeCall      MessageType = "call"
	TypeUnknown   MessageType = "unknown"
)

// RawImportInput is one upload or paste.
type RawImportInput struct {
	DeclaredSourceApp string
	FilePath          string
	FileBytes         []byte
}

// PasteInput wraps pasted text as an import input.
func PasteInput(app, text string) RawImportInput {
	return RawImportInput{DeclaredSourceApp: app, FilePath: "paste.txt", FileBytes: []byte(text)}
}

// DetectionResult is the detector's best guess about an input.
type DetectionResult struct {
	SourceAppGuess SourceApp `json:"sourceAppGuess"`
	Format         Format    `json:"format"`
	Confidence     float64   `json:"confidence"`
	Reasons        []string  `json:"reasons"`
}

// IntermediateMessage is a message as found by a format parser, before sorting.
type IntermediateMessage struct {
	Order          int
	ConversationID string
	SenderDisplay  string
	Timestamp      *time.Time
	Text           string
	Type           MessageType
	Metadata       map[string]any
	Raw            map[string]any
}

// CanonicalMessage is the app-agnostic message record every parser converges to.
type CanonicalMessage struct {
	ID             string         `json:"id"`
	SourceApp      SourceApp      `json:"sourceApp"`
	ConversationID string         `json:"conversationId"`
	SenderDisplay  string         `json:"senderDisplay"`
	Direction      string         `json:"direction"`
	Timestamp      *time.Time     `json:"timestamp"`
	Text           string         `json:"text"`
	MessageType    MessageType    `json:"messageType"`
	Metadata       map[string]any `json:"metadata"`
	Raw            map[string]any `json:"raw,omitempty"`
}

// TimestampDerived reports whether the timestamp was synthesised.
func (m CanonicalMessage) TimestampDerived() bool {
	v, _ := m.Metadata["timestampDerived"].(bool)
	return v
}

// DBMessage is the flattened row handed to persistence.
type DBMessage struct {
	Timestamp time.Time      `json:"timestamp"`
	Sender    string         `json:"sender"`
	Text      string         `json:"text"`
	Meta      map[string]any `json:"meta"`
}

// IgnoredLine records an input line that no pattern matched.
type IgnoredLine struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// ParseOutput is what every format parser returns.
type ParseOutput struct {
	Messages       []IntermediateMessage
	Warnings       []string
	Ignored        []IgnoredLine
	TotalLines     int
	MatchedLines   int
	SelectedThread string
}

// ParseReport is the diagnostic payload built for every parse attempt.
type ParseReport struct {
	DetectedFormat    Format        `json:"detectedFormat"`
	SourceAppGuess    SourceApp     `json:"sourceAppGuess"`
	Confidence        float64       `json:"confidence"`
	Reasons           []string      `json:"reasons"`
	Warnings          []string      `json:"warnings"`
	ParsedCount       int           `json:"parsedCount"`
	IgnoredCount      int           `json:"ignoredCount"`
	TotalLines        int           `json:"totalLines"`
	MatchedLines      int           `json:"matchedLines"`
	Participants      []string      `json:"participants"`
	ExpectedExamples  []string      `json:"expectedExamples"`
	FirstIgnoredLines []IgnoredLine `json:"firstIgnoredLines"`
	Tips              []string      `json:"tips"`
	SelectedThread    string        `json:"selectedThread,omitempty"`
}

// Result is the successful output of ParseImportFile.
type Result struct {
	DBMessages        []DBMessage        `json:"dbMessages"`
	CanonicalMessages []CanonicalMessage `json:"canonicalMessages"`
	Report            ParseReport        `json:"report"`
}
