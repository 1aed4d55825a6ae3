// Package httputil holds the JSON helpers shared by all HTTP handlers:
// response writing, error envelope translation, and request decoding.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "repute/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies so a hostile client cannot exhaust
// memory with an oversized payload.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request types that validate and parse
// themselves after decoding.
type Validatable interface {
	Validate() error
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorEnvelope is the wire shape of every error response.
type errorEnvelope struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

// WriteError translates a domain error into its HTTP status and JSON
// envelope. Internal errors keep their description out of the response so
// infrastructure details never reach clients.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	envelope := errorEnvelope{Error: string(code)}
	if code != dErrors.CodeInternal {
		envelope.Description = dErrors.MessageOf(err)
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), envelope)
}

// DecodeAndPrepare decodes the request body into T, validates it, and writes
// the error response itself on failure. The second return value reports
// whether the handler should proceed.
func DecodeAndPrepare[T any, PT interface {
	Validatable
	*T
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (PT, bool) {
	req := PT(new(T))
	if err := DecodeBody(r, req); err != nil {
		logger.WarnContext(ctx, "failed to decode request body",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		logger.WarnContext(ctx, "request validation failed",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}

// DecodeBody decodes the request body into v, enforcing the size limit and
// rejecting unknown fields.
func DecodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}

// DecodeRaw validates and decodes a pre-read body. Handlers that must hash
// the exact payload bytes (webhook signature checks) read the body first and
// decode from the captured slice.
func DecodeRaw(payload []byte, v any) error {
	if len(payload) > maxBodyBytes {
		return dErrors.New(dErrors.CodeBadRequest, "request body too large")
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	return nil
}
