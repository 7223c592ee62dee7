// Package browser holds the page-side collaborators of the widget
// configurator that talk to the local server over HTTP.
package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"chatkitlab/internal/embedconfig"
)

const (
	ConfigPath  = "/api/config"
	SessionPath = "/api/chatkit-session"
)

// Server is the local server as seen from the page.
type Server struct {
	base string
	http *http.Client
}

func NewServer(baseURL string, timeout time.Duration) *Server {
	return &Server{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
	}
}

// Fetch implements widget.ConfigSource.
func (s *Server) Fetch(ctx context.Context) (embedconfig.EmbedConfig, error) {
	var cfg embedconfig.EmbedConfig
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.base+ConfigPath, nil)
	if err != nil {
		return cfg, err
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return cfg, fmt.Errorf("unable to load config (%d)", resp.StatusCode)
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// CredentialFetcher mints one client secret per call for a fixed device.
type CredentialFetcher struct {
	Server   *Server
	DeviceID func() string
}

// Fetch posts {deviceId} and returns clientSecret. Every failure is returned
// to the caller; there is no retry here.
func (f CredentialFetcher) Fetch(ctx context.Context) (string, error) {
	body, err := json.Marshal(map[string]string{"deviceId": f.DeviceID()})
	if err != nil {
		return "", err
	}
	s := f.Server
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.base+SessionPath, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("session request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("session request failed (%d)", resp.StatusCode)
	}
	var out struct {
		ClientSecret string `json:"clientSecret"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("decode session: %w", err)
	}
	if out.ClientSecret == "" {
		return "", fmt.Errorf("session client secret missing from response")
	}
	return out.ClientSecret, nil
}
