package handler

import (
	"net/http"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
)

// handleCreateAccount handles POST /users.
func (h *Handler) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	resp, err := h.auth.CreateAccount(r.Context(), &service.CreateAccountRequest{
		Name:     req.Name,
		Password: req.Password,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, tokenResponse(resp.Token, resp.Account.ID))
}

// handleLogin handles POST /users/login with Basic name:password.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	name, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", `Basic realm="bloombuddy"`)
		WriteError(w, r, domain.ErrUnauthorized.WithDetails("basic credentials required"))
		return
	}

	token, err := h.auth.Login(r.Context(), name, password)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, tokenResponse(token, ""))
}

// handlePairSensor handles POST /sensors with Basic sensorID:accountID.
func (h *Handler) handlePairSensor(w http.ResponseWriter, r *http.Request) {
	sensorID, accountID, ok := r.BasicAuth()
	if !ok {
		WriteError(w, r, domain.ErrUnauthorized.WithDetails("basic credentials required"))
		return
	}

	token, err := h.auth.PairSensor(r.Context(), sensorID, accountID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, tokenResponse(token, ""))
}
