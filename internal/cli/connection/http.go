package connection

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/infra/buildinfo"
)

// ErrNoContent is returned by ParseResponse for 204 responses.
var ErrNoContent = errors.New("no content")

// APIError is an error envelope returned by the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Auth attaches credentials to a request.
type Auth func(*http.Request)

// Bearer authenticates with a token.
func Bearer(token string) Auth {
	return func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+token)
	}
}

// Basic authenticates with a user name and password.
func Basic(user, password string) Auth {
	return func(r *http.Request) {
		r.SetBasicAuth(user, password)
	}
}

// HTTPClient provides HTTP communication with the server.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new HTTP client. A server without scheme is
// reached over plain http.
func NewHTTPClient(server string) *HTTPClient {
	baseURL := strings.TrimRight(server, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		baseURL = "http://" + baseURL
	}

	return &HTTPClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Do sends a request. A string body is sent as text/plain, any other
// non-nil body as JSON.
func (c *HTTPClient) Do(ctx context.Context, method, path string, body any, auth Auth) (*http.Response, error) {
	var (
		reader      io.Reader
		contentType string
	)
	switch b := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(b)
		contentType = "text/plain; charset=utf-8"
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reader = bytes.NewReader(data)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("User-Agent", buildinfo.UserAgent("bloombuddy-cli"))
	if auth != nil {
		auth(req)
	}
	return c.client.Do(req)
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string, auth Auth) (*http.Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, auth)
}

// Post performs a POST request.
func (c *HTTPClient) Post(ctx context.Context, path string, body any, auth Auth) (*http.Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, auth)
}

// Patch performs a PATCH request.
func (c *HTTPClient) Patch(ctx context.Context, path string, body any, auth Auth) (*http.Response, error) {
	return c.Do(ctx, http.MethodPatch, path, body, auth)
}

// Delete performs a DELETE request.
func (c *HTTPClient) Delete(ctx context.Context, path string, auth Auth) (*http.Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, auth)
}

// ParseResponse decodes the data member of a JSON envelope into target.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return err
	}
	if resp.StatusCode == http.StatusNoContent {
		return ErrNoContent
	}
	if target == nil {
		return nil
	}

	var env struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	if len(env.Data) == 0 {
		return fmt.Errorf("parse response: missing data")
	}
	if err := json.Unmarshal(env.Data, target); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

// ReadText returns the body of a plain-text response.
func ReadText(resp *http.Response) (string, error) {
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return "", err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	return string(body), nil
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}

	apiErr := &APIError{Status: resp.StatusCode, Code: resp.Header.Get("X-Error-Code")}
	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err == nil && env.Message != "" {
		apiErr.Code, apiErr.Message = env.Code, env.Message
	}
	return apiErr
}
