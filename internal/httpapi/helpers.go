package httpapi

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// maxSubmissionBodyBytes caps a POST /v1/ingestions body (spec.md §6).
const maxSubmissionBodyBytes = 1 << 20 // 1 MiB

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()

	lr := io.LimitReader(r.Body, maxSubmissionBodyBytes+1)
	body, err := io.ReadAll(lr)
	if err != nil {
		return errors.New("failed to read body")
	}
	if int64(len(body)) > maxSubmissionBodyBytes {
		return errors.New("payload too large")
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if dec.More() {
		return errors.New("invalid JSON: multiple JSON values")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeValidationError(w http.ResponseWriter, fields map[string][]string) {
	writeJSON(w, http.StatusBadRequest, map[string]any{"errors": fields})
}
