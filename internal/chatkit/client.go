// Package chatkit is a minimal client for the agent platform's session
// endpoint.
package chatkit

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

	jmes "github.com/jmespath/go-jmespath"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	SessionsPath = "/v1/chatkit/sessions"
	BetaHeader   = "OpenAI-Beta"
	BetaValue    = "chatkit_beta=v1"

	maxResponseBytes = 1 << 20
)

var (
	// ErrUnreachable wraps transport failures (dial, TLS, timeout, cancelled context).
	ErrUnreachable = errors.New("chatkit: upstream unreachable")
	// ErrMalformedResponse is returned for a 2xx reply without a usable secret.
	ErrMalformedResponse = errors.New("chatkit: malformed session response")
)

// StatusError is returned when the platform answers with a non-2xx status.
// Body is kept for server-side logging only.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("chatkit: session request rejected with status %d", e.Status)
}

type Workflow struct {
	ID string `json:"id"`
}

// CreateSessionRequest is the body POSTed to SessionsPath.
type CreateSessionRequest struct {
	Workflow Workflow `json:"workflow"`
	User     string   `json:"user"`
}

// Client mints client secrets. It holds no per-request state and is safe
// for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	secretPath *jmes.JMESPath
	http       *http.Client
}

type Option func(*Client)

// WithHTTPClient replaces the default traced client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// New builds a client. secretPath is a JMESPath expression selecting the
// secret in the response payload ("client_secret" for the current API).
func New(baseURL, apiKey, secretPath string, timeout time.Duration, opts ...Option) (*Client, error) {
	if strings.TrimSpace(secretPath) == "" {
		secretPath = "client_secret"
	}
	expr, err := jmes.Compile(secretPath)
	if err != nil {
		return nil, fmt.Errorf("compile secret path %q: %w", secretPath, err)
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		secretPath: expr,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// CreateSession performs exactly one POST and returns the opaque client
// secret. No retries are attempted.
func (c *Client) CreateSession(ctx context.Context, in CreateSessionRequest) (string, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+SessionsPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(BetaHeader, BetaValue)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", ErrUnreachable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &StatusError{Status: resp.StatusCode, Body: string(raw)}
	}

	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	v, err := c.secretPath.Search(payload)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	secret, _ := v.(string)
	if secret == "" {
		return "", fmt.Errorf("%w: missing client secret", ErrMalformedResponse)
	}
	return secret, nil
}
