package command

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

const (
	testAccountID    = "0b7f6d1e-3a55-4a4f-9f3e-2f1f3e6c9a01"
	testSensorID     = "5a1c2d3e-4f50-4a6b-8c7d-9e0f1a2b3c4d"
	testAccountToken = "acct-tok"
	testSensorToken  = "sensor-tok"
)

// fakeAPI is an in-memory stand-in for the server's HTTP API.
type fakeAPI struct {
	*httptest.Server

	mu       sync.Mutex
	requests []string
	lastBody string
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	f := &fakeAPI{}
	mux := http.NewServeMux()

	mux.HandleFunc("POST /users", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["name"] == "taken" {
			errorResponse(w, http.StatusBadRequest, "BB-ACCT-4003", "account name already exists")
			return
		}
		envelope(w, http.StatusCreated, map[string]any{"account_id": testAccountID, "token": testAccountToken, "expires_at": 1900000000})
	})
	mux.HandleFunc("POST /users/login", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, _ := r.BasicAuth(); user != "mia" || pass != "secret" {
			errorResponse(w, http.StatusUnauthorized, "BB-AUTH-4010", "unauthorized")
			return
		}
		envelope(w, http.StatusOK, map[string]any{"token": testAccountToken, "expires_at": 1900000000})
	})
	mux.HandleFunc("POST /sensors", func(w http.ResponseWriter, r *http.Request) {
		if user, pass, _ := r.BasicAuth(); user != testSensorID || pass != testAccountID {
			errorResponse(w, http.StatusUnauthorized, "BB-AUTH-4010", "unauthorized")
			return
		}
		envelope(w, http.StatusOK, map[string]any{"token": testSensorToken, "expires_at": 1900000000})
	})
	mux.HandleFunc("PATCH /sensors", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+testSensorToken {
			errorResponse(w, http.StatusUnauthorized, "BB-AUTH-4014", "token not valid for this operation")
			return
		}
		value, _, _ := strings.Cut(f.body(), " ")
		io.WriteString(w, "1731931200:"+value)
	})

	account := func(h http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer "+testAccountToken {
				errorResponse(w, http.StatusUnauthorized, "BB-AUTH-4010", "unauthorized")
				return
			}
			h(w, r)
		}
	}
	mux.HandleFunc("POST /users/sensors", account(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusCreated, map[string]string{"id": testSensorID})
	}))
	mux.HandleFunc("GET /users/sensors", account(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, map[string]any{"sensors": []map[string]any{
			{"id": testSensorID, "name": "balcony", "model": 2, "sensor": 23.5, "battery": 87, "updated": 1731931200},
			{"id": "s-2", "name": "kitchen", "model": 0, "sensor": nil, "battery": nil, "updated": nil},
		}})
	}))
	mux.HandleFunc("GET /users/sensors/{id}", account(func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "empty" {
			w.Header().Set("X-Error-Code", "BB-SENS-2040")
			w.WriteHeader(http.StatusNoContent)
			return
		}
		envelope(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "name": "balcony", "model": 1, "sensor": 23.0, "reading": "1731931200:23.0"})
	}))
	mux.HandleFunc("PATCH /users/sensors/{id}/name", account(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		json.Unmarshal([]byte(f.body()), &body)
		envelope(w, http.StatusOK, body)
	}))
	mux.HandleFunc("PATCH /users/sensors/{id}/model", account(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, map[string]int{"model": 2})
	}))
	mux.HandleFunc("DELETE /users/sensors/{id}", account(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, map[string]any{"id": r.PathValue("id"), "deleted": true})
	}))
	mux.HandleFunc("POST /users/devices", account(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Token string `json:"token"`
			IsIOS bool   `json:"is_ios"`
		}
		json.Unmarshal([]byte(f.body()), &body)
		envelope(w, http.StatusCreated, map[string]any{"id": "d-1", "token": strings.ToLower(body.Token), "is_ios": body.IsIOS})
	}))
	mux.HandleFunc("GET /users/devices", account(func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, map[string]any{"devices": []map[string]any{
			{"id": "d-1", "token": strings.Repeat("ab", 32), "is_ios": true},
		}})
	}))
	mux.HandleFunc("DELETE /users/devices/{id}", account(func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusNotFound, "BB-DEV-4040", "device not found")
	}))
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		envelope(w, http.StatusOK, map[string]string{"status": "healthy", "version": "1.2.3"})
	})
	mux.HandleFunc("GET /ready", func(w http.ResponseWriter, r *http.Request) {
		errorResponse(w, http.StatusServiceUnavailable, "BB-SYS-5030", "service unavailable")
	})

	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.requests = append(f.requests, r.Method+" "+r.URL.Path)
		f.lastBody = string(body)
		f.mu.Unlock()
		r.Body = io.NopCloser(bytes.NewReader(body))
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeAPI) body() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastBody
}

func (f *fakeAPI) lastRequest() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.requests) == 0 {
		return ""
	}
	return f.requests[len(f.requests)-1]
}

func envelope(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"code": "OK", "message": "Success", "data": data})
}

func errorResponse(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Error-Code", code)
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"code": code, "message": message})
}

// cliRunner runs the CLI against a fake API with a private profile file.
type cliRunner struct {
	t       *testing.T
	api     *fakeAPI
	profile string
}

func newRunner(t *testing.T) *cliRunner {
	return &cliRunner{
		t:       t,
		api:     newFakeAPI(t),
		profile: filepath.Join(t.TempDir(), "cli.yaml"),
	}
}

// run executes one command line and returns its output.
func (r *cliRunner) run(stdin string, args ...string) (string, error) {
	r.t.Helper()

	var out bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &out
	app.Reader = strings.NewReader(stdin)

	full := append([]string{"bloombuddy-cli", "--server", r.api.URL, "--config", r.profile}, args...)
	err := app.Run(full)
	return out.String(), err
}

func (r *cliRunner) mustRun(args ...string) string {
	r.t.Helper()
	out, err := r.run("", args...)
	if err != nil {
		r.t.Fatalf("%v: %v\n%s", args, err, out)
	}
	return out
}
