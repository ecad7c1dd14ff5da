package hermes

import (
	"encoding/json"
	"testing"
)

func TestImportRequestedParsing(t *testing.T) {
	raw := `{
		"import_id": "7b0c2f3e-1111-4c1a-9d55-000000000001",
		"source_app": "whatsapp",
		"file_path": "/data/uploads/7b0c/chat.txt"
	}`

	var req ImportRequested
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		t.Fatalf("failed to parse ImportRequested: %v", err)
	}

	if req.ImportID != "7b0c2f3e-1111-4c1a-9d55-000000000001" {
		t.Errorf("expected import_id, got '%s'", req.ImportID)
	}
	if req.SourceApp != "whatsapp" {
		t.Errorf("expected source_app 'whatsapp', got '%s'", req.SourceApp)
	}
	if req.FilePath != "/data/uploads/7b0c/chat.txt" {
		t.Errorf("expected file_path, got '%s'", req.FilePath)
	}
}

func TestImportFailedOmitsEmptyFormat(t *testing.T) {
	data, err := json.Marshal(ImportFailed{ImportID: "x", Error: "ReadFailed", Reason: "no such file"})
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if _, ok := fields["detected_format"]; ok {
		t.Errorf("expected detected_format to be omitted, got %s", data)
	}
	if fields["reason"] != "no such file" {
		t.Errorf("expected reason, got %v", fields["reason"])
	}
}

func TestSubjectConstants(t *testing.T) {
	subjects := map[string]string{
		SubjectImportRequested: "chat.import.requested",
		SubjectImportParsed:    "chat.import.parsed",
		SubjectImportFailed:    "chat.import.failed",
	}
	for got, want := range subjects {
		if got != want {
			t.Errorf("expected subject '%s', got '%s'", want, got)
		}
	}
}
