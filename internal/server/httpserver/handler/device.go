package handler

import "net/http"

// handleRegisterDevice handles POST /users/devices.
func (h *Handler) handleRegisterDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req RegisterDeviceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	device, err := h.guard.RegisterDevice(r.Context(), id.AccountID, req.Token, req.IsIOS)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, deviceToResponse(device))
}

// handleListDevices handles GET /users/devices.
func (h *Handler) handleListDevices(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	devices, err := h.guard.ListDevices(r.Context(), id.AccountID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]DeviceResponse, 0, len(devices))
	for _, d := range devices {
		items = append(items, deviceToResponse(d))
	}
	h.writeJSON(w, r, http.StatusOK, ListDevicesResponse{Devices: items})
}

// handleRemoveDevice handles DELETE /users/devices/{id}.
func (h *Handler) handleRemoveDevice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	deviceID := r.PathValue("id")
	if err := h.guard.RemoveDevice(r.Context(), id.AccountID, deviceID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, DeletedResponse{ID: deviceID, Deleted: true})
}
