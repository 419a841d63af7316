package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/shp2pg/internal/core"
	"github.com/JonMunkholm/shp2pg/internal/web/templates"
	"github.com/go-chi/chi/v5"
)

// maxFormBytes caps request bodies; a submission is seven short fields.
const maxFormBytes = 64 << 10

// ImportResponse is the JSON answer to POST /api/import.
type ImportResponse struct {
	ID         string       `json:"id"`
	Outcome    core.Outcome `json:"outcome"`
	Title      string       `json:"title"`
	Message    string       `json:"message"`
	Action     string       `json:"action,omitempty"`
	Code       string       `json:"code,omitempty"`
	Detail     string       `json:"detail,omitempty"`
	Field      string       `json:"field,omitempty"`
	DurationMS int64        `json:"duration_ms"`
}

func newImportResponse(rep core.Report) ImportResponse {
	return ImportResponse{
		ID:         rep.ID,
		Outcome:    rep.Outcome,
		Title:      rep.Title,
		Message:    rep.Message,
		Action:     rep.Action,
		Code:       rep.Code,
		Detail:     rep.Detail,
		Field:      rep.Field,
		DurationMS: rep.Duration.Milliseconds(),
	}
}

// ValidateResponse is the JSON answer to POST /api/validate.
type ValidateResponse struct {
	Valid   bool                `json:"valid"`
	Request *core.ImportRequest `json:"request,omitempty"`
	Field   string              `json:"field,omitempty"`
	Message string              `json:"message,omitempty"`
	Code    string              `json:"code,omitempty"`
}

// apiImportRequest accepts srid and port as JSON numbers or strings.
type apiImportRequest struct {
	ShapefilePath string     `json:"shapefile_path"`
	SRID          flexString `json:"srid"`
	Database      string     `json:"database"`
	Table         string     `json:"table"`
	Host          string     `json:"host"`
	Port          flexString `json:"port"`
	Username      string     `json:"username"`
}

func (a apiImportRequest) formInput() core.FormInput {
	return core.FormInput{
		ShapefilePath: a.ShapefilePath,
		SRID:          string(a.SRID),
		Database:      a.Database,
		Table:         a.Table,
		Host:          a.Host,
		Port:          string(a.Port),
		Username:      a.Username,
	}
}

type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString(n.String())
	return nil
}

func decodeImportRequest(w http.ResponseWriter, r *http.Request) (core.FormInput, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)

	var req apiImportRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		return core.FormInput{}, fmt.Errorf("%w: %v", errBadBody, err)
	}
	return req.formInput(), nil
}

func formInputFromRequest(r *http.Request) core.FormInput {
	return core.FormInput{
		ShapefilePath: r.PostFormValue(core.FieldShapefilePath),
		SRID:          r.PostFormValue(core.FieldSRID),
		Database:      r.PostFormValue(core.FieldDatabase),
		Table:         r.PostFormValue(core.FieldTable),
		Host:          r.PostFormValue(core.FieldHost),
		Port:          r.PostFormValue(core.FieldPort),
		Username:      r.PostFormValue(core.FieldUsername),
	}
}

func (s *Server) formParams(in core.FormInput) templates.FormParams {
	return templates.FormParams{
		Input:    in,
		Platform: s.service.Platform().String(),
	}
}

// handleIndex renders an empty form with the default SRID and port filled in.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	srid, port := s.service.Defaults()
	in := core.FormInput{SRID: strconv.Itoa(srid), Port: strconv.Itoa(port)}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.ImportPage(templates.PageParams{Form: s.formParams(in)}).Render(r.Context(), w)
}

// handleImportForm runs an import submitted from the HTML form. The request
// blocks until the pipeline finishes, then the form is shown again with the
// result above it. HTMX requests get only the result panel.
func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseForm(); err != nil {
		s.respondError(w, r, fmt.Errorf("%w: %v", errBadBody, err), http.StatusBadRequest)
		return
	}

	in := formInputFromRequest(r)
	rep := s.service.Submit(WithRequestMetadata(r.Context(), r), in)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if isHTMX(r) {
		w.WriteHeader(reportStatus(rep))
		templates.ResultPanel(rep).Render(r.Context(), w)
		return
	}

	form := s.formParams(in)
	form.ErrorField = rep.Field
	templates.ImportPage(templates.PageParams{Form: form, Result: &rep}).Render(r.Context(), w)
}

// handleHistoryPage renders recent imports.
func (s *Server) handleHistoryPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.HistoryPage(s.service.History()).Render(r.Context(), w)
}

// handleAPIImport runs an import from a JSON body.
func (s *Server) handleAPIImport(w http.ResponseWriter, r *http.Request) {
	in, err := decodeImportRequest(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	rep := s.service.Submit(WithRequestMetadata(r.Context(), r), in)
	writeJSON(w, reportStatus(rep), newImportResponse(rep))
}

// handleAPIValidate checks a request without touching the database.
func (s *Server) handleAPIValidate(w http.ResponseWriter, r *http.Request) {
	in, err := decodeImportRequest(w, r)
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	req, err := s.service.Validate(in)
	if err != nil {
		var verr *core.ValidationError
		if !errors.As(err, &verr) {
			s.respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusUnprocessableEntity, ValidateResponse{
			Field:   verr.Field,
			Message: verr.Message,
			Code:    core.MapError(err).Code,
		})
		return
	}

	writeJSON(w, http.StatusOK, ValidateResponse{Valid: true, Request: &req})
}

// handleAPIHistory lists recent imports, newest first.
func (s *Server) handleAPIHistory(w http.ResponseWriter, r *http.Request) {
	records := s.service.History()
	if records == nil {
		records = []core.ImportRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// handleAPIHistoryEntry returns one import by ID.
func (s *Server) handleAPIHistoryEntry(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "importID")
	rec, ok := s.service.Record(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Error:   "import not found",
			Message: "No import with this ID is in the recent history",
			Code:    "NF001",
		})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleHealth reports liveness and pipeline slot usage.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"platform": s.service.Platform().String(),
		"imports":  s.service.LimiterStatus(),
	})
}
