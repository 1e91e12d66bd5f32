package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/BearBump/CargoBox/internal/apperr"
)

type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps the error kind onto the status code. Internal and
// downstream details stay in the log.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal || kind == apperr.KindDownstream {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, kind.HTTPStatus(), apiError{
		Error:   kind.String(),
		Message: apperr.PublicMessage(err),
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		writeError(w, r, apperr.Wrap(apperr.KindValidation, err, "invalid json body"))
		return false
	}
	if err := dec.Decode(&struct{}{}); err != nil && !stderrors.Is(err, io.EOF) {
		writeError(w, r, apperr.Validation("extra data after json"))
		return false
	}
	return true
}
