package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsift/internal/chatparse"
	"github.com/MikeSquared-Agency/chatsift/internal/store"
)

const multipartMemory = 8 << 20

type uploadRequest struct {
	SourceApp string `json:"source_app" validate:"omitempty,oneof=whatsapp telegram instagram messenger imessage snapchat unknown"`
	FileName  string `json:"file" validate:"required,max=255"`
}

type previewRequest struct {
	SourceApp string `json:"source_app" validate:"omitempty,oneof=whatsapp telegram instagram messenger imessage snapchat unknown"`
	Text      string `json:"text" validate:"required,max=2000000"`
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=500"`
}

type importResponse struct {
	ImportID     string                `json:"import_id"`
	MessageCount int                   `json:"message_count"`
	Report       chatparse.ParseReport `json:"report"`
}

type failureResponse struct {
	ImportID string `json:"import_id"`
	chatparse.FailurePayload
}

type structuralResponse struct {
	ImportID       string `json:"import_id,omitempty"`
	Error          string `json:"error"`
	DetectedFormat string `json:"detected_format,omitempty"`
	Reason         string `json:"reason"`
}

func (s *Server) createImport(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", tooLarge.Limit))
			return
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is a required field")
		return
	}
	defer file.Close()

	req := uploadRequest{
		SourceApp: strings.ToLower(strings.TrimSpace(r.FormValue("source_app"))),
		FileName:  filepath.Base(header.Filename),
	}
	if err := checkStruct(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := uuid.New()
	path, err := s.saveUpload(id, req.FileName, file)
	if err != nil {
		s.logger.Error("failed to store upload", "import_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	if s.imports != nil {
		if err := s.imports.CreateImport(r.Context(), id, req.SourceApp, path); err != nil {
			s.logger.Error("failed to record import", "import_id", id, "error", err)
			writeError(w, http.StatusInternalServerError, "failed to record import")
			return
		}
	}

	res, err := s.processor.Process(r.Context(), id, req.SourceApp, path)
	if err != nil {
		s.writeParseError(w, id.String(), err)
		return
	}

	writeJSON(w, http.StatusCreated, importResponse{
		ImportID:     id.String(),
		MessageCount: len(res.CanonicalMessages),
		Report:       res.Report,
	})
}

// saveUpload copies the upload to <uploadDir>/<id>/<name>.
func (s *Server) saveUpload(id uuid.UUID, name string, src io.Reader) (string, error) {
	dir := filepath.Join(s.uploadDir, id.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		f.Close()
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, f.Close()
}

func (s *Server) writeParseError(w http.ResponseWriter, importID string, err error) {
	if pf, ok := chatparse.AsParseFailed(err); ok {
		writeJSON(w, http.StatusUnprocessableEntity, failureResponse{ImportID: importID, FailurePayload: pf.Payload})
		return
	}
	var se *chatparse.StructuralError
	if errors.As(err, &se) {
		writeJSON(w, http.StatusBadRequest, structuralResponse{
			ImportID:       importID,
			Error:          "InvalidFormat",
			DetectedFormat: string(se.Format),
			Reason:         se.Error(),
		})
		return
	}
	s.logger.Error("import failed", "import_id", importID, "error", err)
	writeError(w, http.StatusInternalServerError, "import failed")
}

func (s *Server) preview(w http.ResponseWriter, r *http.Request) {
	req, err := decodeJSON[previewRequest](r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := req.Limit
	if limit == 0 {
		limit = s.previewLimit
	}
	res, err := s.parser.Preview(req.SourceApp, req.Text, limit)
	if err != nil {
		s.writeParseError(w, "", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) getImport(w http.ResponseWriter, r *http.Request) {
	if s.imports == nil {
		writeError(w, http.StatusServiceUnavailable, "import storage is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid import id")
		return
	}

	rec, err := s.imports.GetImportReport(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "import not found")
		return
	}
	if err != nil {
		s.logger.Error("failed to load import", "import_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load import")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}
