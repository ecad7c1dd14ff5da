package hermes

// Import lifecycle subjects.
const (
	SubjectImportRequested = "chat.import.requested"
	SubjectImportParsed    = "chat.import.parsed"
	SubjectImportFailed    = "chat.import.failed"
)

// QueueWorkers is the queue group import workers join.
const QueueWorkers = "chatsift-workers"

// ImportRequested asks a worker to parse an uploaded export.
type ImportRequested struct {
	ImportID  string `json:"import_id"`
	SourceApp string `json:"source_app"`
	FilePath  string `json:"file_path"`
}

// ImportParsed announces a successfully stored import.
type ImportParsed struct {
	ImportID     string   `json:"import_id"`
	SourceApp    string   `json:"source_app"`
	Format       string   `json:"format"`
	MessageCount int      `json:"message_count"`
	Participants []string `json:"participants"`
}

// ImportFailed announces an import that could not be parsed.
type ImportFailed struct {
	ImportID       string `json:"import_id"`
	Error          string `json:"error"`
	DetectedFormat string `json:"detected_format,omitempty"`
	Reason         string `json:"reason"`
}
