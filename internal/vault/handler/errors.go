package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"custodia/internal/vault/validation"
	dErrors "custodia/pkg/domain-errors"
)

var statusByCode = map[dErrors.Code]int{
	dErrors.CodeValidation:  http.StatusBadRequest,
	dErrors.CodeNotFound:    http.StatusNotFound,
	dErrors.CodeForbidden:   http.StatusForbidden,
	dErrors.CodeConflict:    http.StatusConflict,
	dErrors.CodeIneligible:  http.StatusUnprocessableEntity,
	dErrors.CodeUnavailable: http.StatusBadGateway,
	dErrors.CodeInternal:    http.StatusInternalServerError,
}

// writeError centralizes domain error translation so every endpoint returns
// the same JSON error envelope.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":  string(dErrors.CodeValidation),
			"fields": verr.Fields,
		})
		return
	}

	code := dErrors.CodeOf(err)
	status := statusByCode[code]
	if status == 0 {
		status = http.StatusInternalServerError
	}

	body := map[string]any{"error": string(code)}
	var de *dErrors.Error
	if errors.As(err, &de) {
		if code != dErrors.CodeInternal {
			body["message"] = de.Message
		}
		for k, v := range de.Details {
			body[k] = v
		}
	}
	if status >= http.StatusInternalServerError {
		h.logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
