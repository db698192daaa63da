package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
)

// Request body limits.
const (
	maxJSONBody      = 4 << 10
	maxTelemetryBody = 256
)

// ReadinessCheck reports whether the service can take traffic.
type ReadinessCheck func(ctx context.Context) error

// Services bundles the domain services the handlers call.
type Services struct {
	Auth     *service.AuthService
	Guard    *service.Guard
	Ingestor *service.Ingestor

	// Ready is optional; without it /ready always succeeds.
	Ready ReadinessCheck
}

// Handler is the main HTTP handler that routes requests to appropriate handlers.
type Handler struct {
	auth     *service.AuthService
	guard    *service.Guard
	ingestor *service.Ingestor
	ready    ReadinessCheck
	logger   *slog.Logger
	mux      *http.ServeMux
}

// New creates a new Handler with the given services.
func New(svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		auth:     svc.Auth,
		guard:    svc.Guard,
		ingestor: svc.Ingestor,
		ready:    svc.Ready,
		logger:   logger,
		mux:      http.NewServeMux(),
	}

	h.registerRoutes()
	return h
}

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// Routes lists every route pattern the handler serves.
var Routes = []string{
	"GET /health",
	"GET /ready",

	"POST /users",
	"POST /users/login",
	"POST /sensors",
	"PATCH /sensors",

	"POST /users/sensors",
	"GET /users/sensors",
	"GET /users/sensors/{id}",
	"PATCH /users/sensors/{id}/name",
	"PATCH /users/sensors/{id}/model",
	"DELETE /users/sensors/{id}",

	"POST /users/devices",
	"GET /users/devices",
	"DELETE /users/devices/{id}",
}

func (h *Handler) registerRoutes() {
	h.mux.HandleFunc("GET /health", h.handleHealth)
	h.mux.HandleFunc("GET /ready", h.handleReady)

	// Credential exchange
	h.mux.HandleFunc("POST /users", h.handleCreateAccount)
	h.mux.HandleFunc("POST /users/login", h.handleLogin)
	h.mux.HandleFunc("POST /sensors", h.handlePairSensor)

	// Telemetry (sensor token)
	h.mux.HandleFunc("PATCH /sensors", h.handlePushTelemetry)

	// Sensor management (account token)
	h.mux.HandleFunc("POST /users/sensors", h.handleCreateSensor)
	h.mux.HandleFunc("GET /users/sensors", h.handleListSensors)
	h.mux.HandleFunc("GET /users/sensors/{id}", h.handleGetSensor)
	h.mux.HandleFunc("PATCH /users/sensors/{id}/name", h.handleRenameSensor)
	h.mux.HandleFunc("PATCH /users/sensors/{id}/model", h.handleChangeModel)
	h.mux.HandleFunc("DELETE /users/sensors/{id}", h.handleDeleteSensor)

	// Devices (account token)
	h.mux.HandleFunc("POST /users/devices", h.handleRegisterDevice)
	h.mux.HandleFunc("GET /users/devices", h.handleListDevices)
	h.mux.HandleFunc("DELETE /users/devices/{id}", h.handleRemoveDevice)
}

// ============================================================================
// Request identity
// ============================================================================

type identityKey struct{}

// WithIdentity stores the authenticated token identity in ctx.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// IdentityFromContext returns the identity stored by WithIdentity.
func IdentityFromContext(ctx context.Context) *domain.Identity {
	id, _ := ctx.Value(identityKey{}).(*domain.Identity)
	return id
}

// identity returns the caller identity or writes a 401. Routes behind the
// bearer middleware always have one.
func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	id := IdentityFromContext(r.Context())
	if id == nil {
		WriteError(w, r, domain.ErrUnauthorized.WithDetails("bearer token required"))
		return nil, false
	}
	return id, true
}

// ============================================================================
// Response helpers
// ============================================================================

// writeJSON writes a JSON response with standard envelope format.
func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, data any) {
	requestID := getRequestID(r)
	response := NewResponse(requestID, data)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", requestID)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.logger.ErrorContext(r.Context(), "failed to encode response", "error", err)
	}
}

// writeText writes a plain-text response.
func (h *Handler) writeText(w http.ResponseWriter, r *http.Request, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Header().Set("X-Request-ID", getRequestID(r))
	w.WriteHeader(status)
	io.WriteString(w, body)
}

// WriteError writes err as an error envelope. Domain errors keep their code
// and derive the status from it; anything else becomes a 500.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if !errors.As(err, &de) {
		de = domain.ErrInternalServer
	}
	status := errorCodeToHTTPStatus(de.Code)
	requestID := getRequestID(r)

	w.Header().Set("X-Error-Code", de.Code)
	w.Header().Set("X-Request-ID", requestID)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	message := de.Message
	if de.Details != "" {
		message += ": " + de.Details
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(NewErrorResponse(requestID, de.Code, message, nil))
}

// handleServiceError converts service errors to HTTP responses.
func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if !domain.IsDomainError(err, "") || errorCodeToHTTPStatus(domain.GetErrorCode(err)) >= 500 {
		h.logger.ErrorContext(r.Context(), "request failed",
			"path", r.URL.Path,
			"error", err)
	}
	WriteError(w, r, err)
}

// badRequest writes a BB-SYS-4000 error.
func (h *Handler) badRequest(w http.ResponseWriter, r *http.Request, details string) {
	WriteError(w, r, domain.ErrBadRequest.WithDetails(details))
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	return json.NewDecoder(r.Body).Decode(v)
}

// getRequestID extracts request ID from context or header.
func getRequestID(r *http.Request) string {
	if id := logger.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-ID")
}

// errorCodeToHTTPStatus maps error codes to HTTP status codes.
func errorCodeToHTTPStatus(code string) int {
	switch {
	case strings.HasSuffix(code, "-2040"):
		return http.StatusNoContent
	case strings.HasPrefix(code, "BB-AUTH-401"):
		return http.StatusUnauthorized
	case strings.HasSuffix(code, "-4040"):
		return http.StatusNotFound
	case strings.HasSuffix(code, "-4290"):
		return http.StatusTooManyRequests
	case strings.HasPrefix(code, "BB-ARG-"):
		return http.StatusBadRequest
	case strings.Contains(code, "-400"):
		return http.StatusBadRequest
	case strings.HasSuffix(code, "-5030"):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
