package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"food-kart/internal/middleware"
	"food-kart/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// IdempotencyKeyHeader deduplicates retried order creation.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// The status line is already sent; an encode failure only truncates the body.
	_ = json.NewEncoder(w).Encode(data)
}

// statusFor maps an error kind to its HTTP status.
func statusFor(kind model.ErrorKind) int {
	switch kind {
	case model.KindNotFound:
		return http.StatusNotFound
	case model.KindInvalidRequest, model.KindInsufficientStock:
		return http.StatusBadRequest
	case model.KindUnauthorised:
		return http.StatusUnauthorized
	case model.KindForbidden:
		return http.StatusForbidden
	case model.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError maps a service error onto the error envelope. Internal errors
// are logged and never echoed to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error, logger zerolog.Logger) {
	resp := model.ErrorResponse{CorrelationID: middleware.RequestIDFromContext(r.Context())}
	kind := model.KindOf(err)
	status := statusFor(kind)

	var stockErr *model.StockError
	var domainErr *model.DomainError
	switch {
	case errors.As(err, &stockErr):
		available := stockErr.Available()
		resp.Error = model.ErrCodeInsufficientStock
		resp.Message = stockErr.Error()
		resp.Available = &available
	case errors.As(err, &domainErr):
		resp.Error = domainErr.Code
		resp.Message = domainErr.Message
	default:
		resp.Error = model.ErrCodeInternalError
		resp.Message = "internal server error"
	}

	event := logger.Warn()
	if status >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).
		Int("status", status).
		Str("code", resp.Error).
		Str("path", r.URL.Path).
		Str("request_id", resp.CorrelationID).
		Msg("handler error")

	writeJSON(w, status, resp)
}

// writeBadRequest writes a 400 for malformed input that never reached a service.
func writeBadRequest(w http.ResponseWriter, r *http.Request, code, message string, logger zerolog.Logger) {
	writeError(w, r, model.NewDomainError(model.KindInvalidRequest, code, message), logger)
}

// decodeJSON decodes the request body into dst. Unknown fields are rejected
// when strict is set.
func decodeJSON(r *http.Request, dst any, strict bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// identityOf returns the authenticated caller or writes a 401.
func identityOf(w http.ResponseWriter, r *http.Request, logger zerolog.Logger) (model.Identity, bool) {
	identity, ok := model.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, model.ErrUnauthorised, logger)
		return model.Identity{}, false
	}
	return identity, true
}

// pathUUID parses a UUID route parameter or writes a 400.
func pathUUID(w http.ResponseWriter, r *http.Request, name string, logger zerolog.Logger) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeBadRequest(w, r, model.ErrCodeInvalidRequest, fmt.Sprintf("invalid %s format", name), logger)
		return uuid.Nil, false
	}
	return id, true
}

// pagination parses limit and offset query parameters.
func pagination(r *http.Request) (limit, offset int, err error) {
	limit, offset = 10, 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil {
			return 0, 0, errors.New("invalid limit parameter")
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if offset, err = strconv.Atoi(s); err != nil {
			return 0, 0, errors.New("invalid offset parameter")
		}
	}
	return limit, offset, nil
}
