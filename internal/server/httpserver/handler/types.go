package handler

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

// Response is the standard API response envelope.
// All JSON responses use this format (except /metrics which uses Prometheus format).
type Response struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data,omitempty"`
	Details   any    `json:"details,omitempty"`
}

// NewResponse creates a success response.
func NewResponse(requestID string, data any) *Response {
	return &Response{
		Code:      "OK",
		Message:   "Success",
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}
}

// NewErrorResponse creates an error response.
func NewErrorResponse(requestID, code, message string, details any) *Response {
	return &Response{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		Timestamp: time.Now().Unix(),
		Details:   details,
	}
}

// ModelInput accepts a sensor model as integer code (2) or name ("pro").
type ModelInput struct {
	Model domain.SensorModel
	Set   bool
}

// UnmarshalJSON implements json.Unmarshaler.
func (m *ModelInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
	} else {
		var code int
		if err := json.Unmarshal(data, &code); err != nil {
			return domain.ErrSensorValidation.WithDetails("model must be a name or integer code")
		}
		raw = strconv.Itoa(code)
	}

	model, err := domain.ParseSensorModel(raw)
	if err != nil {
		return err
	}
	m.Model, m.Set = model, true
	return nil
}

// CredentialsRequest is the request body for POST /users.
type CredentialsRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// TokenResponse is returned by every credential exchange.
type TokenResponse struct {
	AccountID string `json:"account_id,omitempty"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"`
}

func tokenResponse(t *domain.IssuedToken, accountID string) TokenResponse {
	return TokenResponse{AccountID: accountID, Token: t.Token, ExpiresAt: t.ExpiresAt.Unix()}
}

// CreateSensorRequest is the request body for POST /users/sensors.
type CreateSensorRequest struct {
	Name  string     `json:"name"`
	Model ModelInput `json:"model"`
}

// CreateSensorResponse is the response body for POST /users/sensors.
type CreateSensorResponse struct {
	ID string `json:"id"`
}

// SensorResponse represents a sensor in API responses.
type SensorResponse struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Model   int      `json:"model"`
	Sensor  *float64 `json:"sensor"`
	Battery *int     `json:"battery"`
	Updated *int64   `json:"updated"`
}

func sensorToResponse(s *domain.Sensor) SensorResponse {
	return SensorResponse{
		ID:      s.ID,
		Name:    s.Name,
		Model:   s.Model.Code(),
		Sensor:  s.Latest,
		Battery: s.Battery,
		Updated: s.Updated,
	}
}

// ReadingResponse is the response body for GET /users/sensors/{id}.
type ReadingResponse struct {
	SensorResponse

	// Reading is the "<timestamp>:<value>" form sensors receive on push.
	Reading string `json:"reading"`
}

// ListSensorsResponse is the response body for GET /users/sensors.
type ListSensorsResponse struct {
	Sensors []SensorResponse `json:"sensors"`
}

// RenameSensorRequest is the request body for PATCH /users/sensors/{id}/name.
type RenameSensorRequest struct {
	Name string `json:"name"`
}

// RenameSensorResponse echoes the stored name.
type RenameSensorResponse struct {
	Name string `json:"name"`
}

// ChangeModelRequest is the request body for PATCH /users/sensors/{id}/model.
type ChangeModelRequest struct {
	Model ModelInput `json:"model"`
}

// ChangeModelResponse carries the stored model code.
type ChangeModelResponse struct {
	Model int `json:"model"`
}

// RegisterDeviceRequest is the request body for POST /users/devices.
type RegisterDeviceRequest struct {
	Token string `json:"token"`
	IsIOS bool   `json:"is_ios"`
}

// DeviceResponse represents a device in API responses.
type DeviceResponse struct {
	ID    string `json:"id"`
	Token string `json:"token"`
	IsIOS bool   `json:"is_ios"`
}

func deviceToResponse(d *domain.Device) DeviceResponse {
	return DeviceResponse{ID: d.ID, Token: d.Token, IsIOS: d.IsIOS}
}

// ListDevicesResponse is the response body for GET /users/devices.
type ListDevicesResponse struct {
	Devices []DeviceResponse `json:"devices"`
}

// DeletedResponse confirms a deletion.
type DeletedResponse struct {
	ID      string `json:"id"`
	Deleted bool   `json:"deleted"`
}
