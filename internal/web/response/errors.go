// Package response writes the JSON bodies returned by the export routes.
package response

import (
	"encoding/json"
	"net/http"
	"strings"

	webcontext "github.com/conduit-lang/metastore/internal/web/context"
)

// Error is the body of every non-2xx export response
type Error struct {
	// Code is the status text in snake case, e.g. "not_found"
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// RenderError writes err under status. The request id set by the RequestID
// middleware is echoed so clients can quote it.
func RenderError(w http.ResponseWriter, r *http.Request, status int, err error) {
	body := Error{Code: StatusCode(status), Message: err.Error()}
	if r != nil {
		body.RequestID = webcontext.GetRequestID(r.Context())
	}
	RenderJSON(w, status, body)
}

// RenderJSON writes v as a JSON body with the given status
func RenderJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatusCode turns a status into its error code, "error" when unknown
func StatusCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ToLower(strings.NewReplacer(" ", "_", "-", "_", "'", "").Replace(text))
}
