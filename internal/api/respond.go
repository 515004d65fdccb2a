package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/solana"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// errBadRequest marks malformed requests.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// statusFor maps err to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case domain.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidAddress):
		return http.StatusBadRequest
	case domain.IsBusiness(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Code: "Internal", Message: "internal error"}

	var de *domain.Error
	switch {
	case errors.Is(err, errBadRequest):
		body = errorBody{Code: "BadRequest", Message: err.Error()}
	case errors.As(err, &de):
		body = errorBody{Code: string(de.Code), Message: de.Message}
	}

	level := slog.LevelDebug
	if status == http.StatusInternalServerError {
		level = slog.LevelError
	}
	s.logger.Log(r.Context(), level, "request failed",
		"request_id", RequestID(r.Context()),
		"path", r.URL.Path,
		"status", status,
		"error", err.Error(),
	)
	writeJSON(w, status, body)
}

// decode reads a JSON body into v, rejecting unknown fields.
func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid request body: %v", err)
	}
	return nil
}

// caller returns the validated X-Caller header.
func caller(r *http.Request) (string, error) {
	c := r.Header.Get(CallerHeader)
	if c == "" {
		return "", badRequest("missing %s header", CallerHeader)
	}
	if !solana.IsValidAddress(c) {
		return "", domain.ErrInvalidAddress
	}
	return c, nil
}

func uintParam(r *http.Request, name string) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s", name)
	}
	return v, nil
}

func uintQuery(r *http.Request, name string, def uint64) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, badRequest("invalid %s", name)
	}
	return v, nil
}
