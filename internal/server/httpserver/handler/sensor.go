package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
)

// handlePushTelemetry handles PATCH /sensors.
//
// The body is "value[ battery]"; the answer is "<timestamp>:<value>".
func (h *Handler) handlePushTelemetry(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxTelemetryBody+1))
	if err != nil {
		h.badRequest(w, r, "could not read body")
		return
	}
	if len(body) > maxTelemetryBody {
		WriteError(w, r, domain.ErrMalformedPayload.WithDetails("body too large"))
		return
	}

	result, err := h.ingestor.Ingest(r.Context(), id.AccountID, id.SubjectID, string(body))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeText(w, r, http.StatusOK, result.Ack())
}

// handleCreateSensor handles POST /users/sensors.
func (h *Handler) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req CreateSensorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.decodeError(w, r, err)
		return
	}

	sensor, err := h.guard.CreateSensor(r.Context(), &service.CreateSensorRequest{
		AccountID: id.AccountID,
		Name:      req.Name,
		Model:     req.Model.Model,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusCreated, CreateSensorResponse{ID: sensor.ID})
}

// handleListSensors handles GET /users/sensors.
func (h *Handler) handleListSensors(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	sensors, err := h.guard.ListSensors(r.Context(), id.AccountID)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	items := make([]SensorResponse, 0, len(sensors))
	for _, s := range sensors {
		items = append(items, sensorToResponse(s))
	}
	h.writeJSON(w, r, http.StatusOK, ListSensorsResponse{Sensors: items})
}

// handleGetSensor handles GET /users/sensors/{id}. A sensor without
// telemetry answers 204.
func (h *Handler) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	sensor, err := h.guard.LatestReading(r.Context(), id.AccountID, r.PathValue("id"))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ReadingResponse{
		SensorResponse: sensorToResponse(sensor),
		Reading:        domain.FormatAck(*sensor.Updated, *sensor.Latest),
	})
}

// handleRenameSensor handles PATCH /users/sensors/{id}/name.
func (h *Handler) handleRenameSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req RenameSensorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.badRequest(w, r, "invalid request body")
		return
	}

	sensor, err := h.guard.RenameSensor(r.Context(), id.AccountID, r.PathValue("id"), req.Name)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, RenameSensorResponse{Name: sensor.Name})
}

// handleChangeModel handles PATCH /users/sensors/{id}/model.
func (h *Handler) handleChangeModel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	var req ChangeModelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.decodeError(w, r, err)
		return
	}
	if !req.Model.Set {
		WriteError(w, r, domain.ErrMissingArgument.WithDetails("model is required"))
		return
	}

	sensor, err := h.guard.ChangeModel(r.Context(), id.AccountID, r.PathValue("id"), req.Model.Model)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, ChangeModelResponse{Model: sensor.Model.Code()})
}

// handleDeleteSensor handles DELETE /users/sensors/{id}.
func (h *Handler) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identity(w, r)
	if !ok {
		return
	}

	sensorID := r.PathValue("id")
	if err := h.guard.DeleteSensor(r.Context(), id.AccountID, sensorID); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	h.writeJSON(w, r, http.StatusOK, DeletedResponse{ID: sensorID, Deleted: true})
}

// decodeError reports a body decode failure, keeping domain validation
// errors raised while decoding (unknown model).
func (h *Handler) decodeError(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.DomainError
	if errors.As(err, &de) {
		WriteError(w, r, de)
		return
	}
	h.badRequest(w, r, "invalid request body")
}
