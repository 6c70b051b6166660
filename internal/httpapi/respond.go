// Package httpapi is the thin chi-routed JSON binding for every operator
// operation named in spec §6: it marshals requests/responses and calls
// straight into internal/pipeline, internal/routegen, and internal/store.
// The HTTP surface itself carries no business logic.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"logistics/pkg/apperror"
	"logistics/pkg/logger"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("encode response failed", "error", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.Error
	if errors.As(err, &appErr) {
		writeJSON(w, appErr.HTTPStatus(), map[string]any{
			"error": appErr.Message,
			"code":  string(appErr.Code),
			"field": appErr.Field,
		})
		return
	}
	logger.Error("unhandled operator API error", "error", err)
	writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error": "internal error",
		"code":  string(apperror.CodeInternal),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return apperror.New(apperror.CodeValidation, "request body required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperror.Wrap(err, apperror.CodeValidation, "invalid request body")
	}
	return nil
}
