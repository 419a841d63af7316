package web

// errors.go provides unified error response handling for the web layer.
//
// Errors that stop a request before an import runs (bad form encoding,
// malformed JSON, unknown history ID) go through respondError. Import
// outcomes are already user-facing core.Reports and are rendered directly.
//
// The error flow:
//  1. Handler encounters an error
//  2. Calls respondError(w, r, err, statusCode)
//  3. Error is mapped via core.MapError to get user-friendly message
//  4. Technical error + context is logged with request ID for correlation
//  5. User message is rendered in appropriate format for the client

import (
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/shp2pg/internal/core"
	"github.com/JonMunkholm/shp2pg/internal/logging"
	"github.com/JonMunkholm/shp2pg/internal/web/templates"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// errBadBody marks request bodies that cannot be decoded at all.
var errBadBody = errors.New("invalid request body")

var msgBadBody = core.UserMessage{
	Message: "The request could not be read",
	Action:  "Send the import fields as form data or a JSON object",
	Code:    "REQ001",
}

// respondError handles error responses with user-friendly messages.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)
	if errors.Is(err, errBadBody) {
		userMsg = msgBadBody
	}

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isHTMX(r):
		renderErrorPartial(w, r, userMsg, statusCode)
	case wantsJSON(r):
		writeJSON(w, statusCode, ErrorResponse{
			Error:   userMsg.Message,
			Message: userMsg.Message,
			Action:  userMsg.Action,
			Code:    userMsg.Code,
		})
	default:
		http.Error(w, userMsg.Message+" ("+userMsg.Code+")", statusCode)
	}
}

// renderErrorPartial renders an HTMX-compatible error fragment.
func renderErrorPartial(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// reportStatus picks the HTTP status for an import report.
func reportStatus(rep core.Report) int {
	switch {
	case rep.Outcome == core.OutcomeSuccess:
		return http.StatusOK
	case rep.Outcome == core.OutcomeWarning:
		return http.StatusConflict
	case strings.HasPrefix(rep.Code, "VAL"):
		return http.StatusUnprocessableEntity
	case rep.Code == "IMP001":
		return http.StatusTooManyRequests
	case rep.Code == "IMP002":
		return http.StatusGatewayTimeout
	case rep.Code == "DB001":
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// isHTMX checks if the request is an HTMX request.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
