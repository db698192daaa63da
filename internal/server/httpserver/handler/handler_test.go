package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
)

func TestErrorCodeToHTTPStatus(t *testing.T) {
	tests := []struct {
		code string
		want int
	}{
		{"BB-SENS-2040", http.StatusNoContent},
		{"BB-AUTH-4010", http.StatusUnauthorized},
		{"BB-AUTH-4014", http.StatusUnauthorized},
		{"BB-DEV-4040", http.StatusNotFound},
		{"BB-SYS-4290", http.StatusTooManyRequests},
		{"BB-ARG-1001", http.StatusBadRequest},
		{"BB-SENS-4002", http.StatusBadRequest},
		{"BB-SENS-4005", http.StatusBadRequest},
		{"BB-TELE-4001", http.StatusBadRequest},
		{"BB-SYS-5030", http.StatusServiceUnavailable},
		{"BB-SYS-5001", http.StatusInternalServerError},
		{"garbage", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorCodeToHTTPStatus(tt.code); got != tt.want {
			t.Errorf("errorCodeToHTTPStatus(%q) = %d, want %d", tt.code, got, tt.want)
		}
	}
}

func TestWriteError(t *testing.T) {
	t.Run("domain error", func(t *testing.T) {
		r := httptest.NewRequest("GET", "/", nil)
		r = r.WithContext(logger.WithRequestID(r.Context(), "req-1"))
		rec := httptest.NewRecorder()

		WriteError(rec, r, domain.ErrDuplicateName.WithDetails("a sensor named x already exists"))

		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d", rec.Code)
		}
		var resp Response
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatal(err)
		}
		if resp.Code != "BB-SENS-4003" || resp.RequestID != "req-1" {
			t.Errorf("response = %+v", resp)
		}
		if !strings.Contains(resp.Message, "a sensor named x") {
			t.Errorf("message = %q", resp.Message)
		}
	})

	t.Run("no content", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest("GET", "/", nil), domain.ErrNoReading)
		if rec.Code != http.StatusNoContent || rec.Body.Len() != 0 {
			t.Errorf("status %d, body %q", rec.Code, rec.Body.String())
		}
	})

	t.Run("plain error hides cause", func(t *testing.T) {
		rec := httptest.NewRecorder()
		WriteError(rec, httptest.NewRequest("GET", "/", nil), errors.New("disk on fire"))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d", rec.Code)
		}
		if strings.Contains(rec.Body.String(), "disk on fire") {
			t.Error("internal error text leaked")
		}
	})
}

func TestModelInput(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.SensorModel
		set     bool
		wantErr bool
	}{
		{`{"model": 2}`, domain.ModelPro, true, false},
		{`{"model": "basic"}`, domain.ModelBasic, true, false},
		{`{"model": "PRO"}`, domain.ModelPro, true, false},
		{`{"model": null}`, domain.ModelDIY, false, false},
		{`{}`, domain.ModelDIY, false, false},
		{`{"model": 7}`, 0, false, true},
		{`{"model": "solar"}`, 0, false, true},
		{`{"model": 1.5}`, 0, false, true},
	}
	for _, tt := range tests {
		var req ChangeModelRequest
		err := json.Unmarshal([]byte(tt.in), &req)
		if tt.wantErr {
			if !errors.Is(err, domain.ErrSensorValidation) {
				t.Errorf("%s: err = %v, want ErrSensorValidation", tt.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", tt.in, err)
			continue
		}
		if req.Model.Model != tt.want || req.Model.Set != tt.set {
			t.Errorf("%s: got %+v", tt.in, req.Model)
		}
	}
}

func TestHandler_IdentityRequired(t *testing.T) {
	h := New(Services{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/users/sensors", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}

func TestHandler_Health(t *testing.T) {
	h := New(Services{}, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/ready", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("ready without check = %d", rec.Code)
	}
}

func TestHandler_LogsCarryRequestContext(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.New(logger.Config{Level: "info", Format: "json", Output: &buf})
	if err != nil {
		t.Fatal(err)
	}
	h := New(Services{Ready: func(context.Context) error { return errors.New("store down") }}, logger.Slog(log))

	request := func(path string) *http.Request {
		r := httptest.NewRequest("GET", path, nil)
		ctx := logger.WithAccountID(logger.WithRequestID(r.Context(), "req-42"), "acc-7")
		return r.WithContext(ctx)
	}

	t.Run("service error", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.handleServiceError(rec, request("/users/sensors"), errors.New("disk on fire"))

		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d", rec.Code)
		}
		out := buf.String()
		for _, want := range []string{`"msg":"request failed"`, `"request_id":"req-42"`, `"account_id":"acc-7"`, "disk on fire"} {
			if !strings.Contains(out, want) {
				t.Errorf("log lacks %s: %s", want, out)
			}
		}
	})

	t.Run("readiness", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, request("/ready"))

		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("status = %d", rec.Code)
		}
		if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
			t.Errorf("readiness log lacks the request id: %s", buf.String())
		}
	})

	t.Run("domain client error not logged", func(t *testing.T) {
		buf.Reset()
		h.handleServiceError(httptest.NewRecorder(), request("/users/sensors"), domain.ErrNotLinked)
		if buf.Len() != 0 {
			t.Errorf("client error was logged: %s", buf.String())
		}
	})
}
