// Package client talks to the queue HTTP API on behalf of the operator and
// display clients.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"patient-caller-backend/internal/model"
	"patient-caller-backend/internal/parse"
)

// DefaultBaseURL is where the server listens by default.
const DefaultBaseURL = "http://localhost:4000"

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

// ValidationError lists the fields rejected before a request is sent.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// NewPatient is the body of an add request.
type NewPatient struct {
	CINro    string `json:"cinro"`
	Nombre   string `json:"nombre"`
	Apellido string `json:"apellido"`
}

// Validate trims every field and rejects blank ones.
func (p *NewPatient) Validate() error {
	p.CINro = parse.Field(p.CINro)
	p.Nombre = parse.Field(p.Nombre)
	p.Apellido = parse.Field(p.Apellido)

	var missing []string
	if p.CINro == "" {
		missing = append(missing, "cinro")
	}
	if p.Nombre == "" {
		missing = append(missing, "nombre")
	}
	if p.Apellido == "" {
		missing = append(missing, "apellido")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Client is a small JSON client for the queue API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New creates a client for the server at baseURL.
func New(baseURL string, opts ...Option) *Client {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the server address in use.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Waiting lists waiting patients, newest first.
func (c *Client) Waiting(ctx context.Context) ([]model.Patient, error) {
	var out []model.Patient
	err := c.do(ctx, http.MethodGet, "/pacientes", nil, &out)
	return out, err
}

// Add registers a waiting patient after validating it locally.
func (c *Client) Add(ctx context.Context, p NewPatient) (model.Patient, error) {
	var out model.Patient
	if err := p.Validate(); err != nil {
		return out, err
	}
	err := c.do(ctx, http.MethodPost, "/pacientes", p, &out)
	return out, err
}

type actionResponse struct {
	Success  bool                  `json:"success"`
	Paciente model.Patient         `json:"paciente"`
	Atendido *model.AttendedRecord `json:"atendido,omitempty"`
}

// Call announces patient id on the display.
func (c *Client) Call(ctx context.Context, id int64) (model.Patient, error) {
	var out actionResponse
	err := c.do(ctx, http.MethodPost, "/llamar", map[string]int64{"id": id}, &out)
	return out.Paciente, err
}

// Attend marks patient id as attended.
func (c *Client) Attend(ctx context.Context, id int64) (model.Patient, error) {
	var out actionResponse
	err := c.do(ctx, http.MethodPost, "/atender", map[string]int64{"pacienteId": id}, &out)
	return out.Paciente, err
}

// Called returns the called patient, or nil when nobody is called.
func (c *Client) Called(ctx context.Context) (*model.Patient, error) {
	var out *model.Patient
	err := c.do(ctx, http.MethodGet, "/llamado", nil, &out)
	return out, err
}

// History lists attended patients. from and to are calendar dates and must
// be given together; zero values list everything.
func (c *Client) History(ctx context.Context, from, to time.Time) ([]model.AttendedRecord, error) {
	path := "/atendidos"
	if !from.IsZero() || !to.IsZero() {
		q := url.Values{}
		q.Set("inicio", from.Format(parse.DateLayout))
		q.Set("fin", to.Format(parse.DateLayout))
		path += "?" + q.Encode()
	}

	var out []model.AttendedRecord
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request payload: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		var msg struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &msg) == nil {
			apiErr.Message = msg.Error
		}
		return apiErr
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return nil
}
