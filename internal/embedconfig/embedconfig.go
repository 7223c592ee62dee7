// Package embedconfig derives the immutable embed configuration the browser
// widget reads from GET /api/config.
package embedconfig

import (
	"fmt"
	"strings"
	"time"

	"chatkitlab/pkg/config"
)

// WorkflowIDPrefix marks identifiers the upstream platform accepts as workflow ids.
const WorkflowIDPrefix = "wf_"

type StrategyKind string

const (
	StrategySession   StrategyKind = "session"
	StrategyDomainKey StrategyKind = "domain-key"
	StrategyNone      StrategyKind = "none"
)

// EmbedConfig is computed once at startup and only read afterwards.
type EmbedConfig struct {
	WorkflowURL       string    `json:"workflowUrl"`
	DomainKey         *string   `json:"domainKey"`
	SessionAPIEnabled bool      `json:"sessionApiEnabled"`
	PublicBaseURL     string    `json:"publicBaseUrl"`
	GeneratedAt       time.Time `json:"generatedAt"`

	workflowID string
}

// Resolve applies the authentication decision table to cfg. It performs no
// I/O and may be called before any listener starts.
func Resolve(cfg config.Config, now time.Time) EmbedConfig {
	id := cfg.WorkflowID
	if id == "" {
		id = ExtractWorkflowID(cfg.WorkflowURL)
	}
	ec := EmbedConfig{
		WorkflowURL:       cfg.WorkflowURL,
		SessionAPIEnabled: cfg.APIKey != "" && id != "",
		PublicBaseURL:     ResolvePublicBaseURL(cfg),
		GeneratedAt:       now.UTC(),
		workflowID:        id,
	}
	if cfg.DomainKey != "" {
		k := cfg.DomainKey
		ec.DomainKey = &k
	}
	return ec
}

// WorkflowID is the identifier sent upstream when minting sessions. It is
// not part of the public JSON document.
func (c EmbedConfig) WorkflowID() string { return c.workflowID }

// Strategy reports which authentication mode the widget should use.
func (c EmbedConfig) Strategy() StrategyKind {
	switch {
	case c.SessionAPIEnabled:
		return StrategySession
	case c.DomainKey != nil && *c.DomainKey != "":
		return StrategyDomainKey
	default:
		return StrategyNone
	}
}

// ExtractWorkflowID returns the final path segment of url when it carries
// the workflow id prefix, and "" otherwise.
func ExtractWorkflowID(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	candidate := url[strings.LastIndex(url, "/")+1:]
	if !strings.HasPrefix(candidate, WorkflowIDPrefix) || len(candidate) == len(WorkflowIDPrefix) {
		return ""
	}
	return candidate
}

// ResolvePublicBaseURL picks the externally reachable base URL. cfg is
// expected to come from config.Load, which fills the forwarding domain.
// Order of precedence:
// 1. PUBLIC_BASE_URL
// 2. hosted dev environment: https://<name>-<port>.<forwarding domain>
// 3. platform provided VERCEL_URL (https:// added when no scheme)
// 4. http://localhost:<port>
func ResolvePublicBaseURL(cfg config.Config) string {
	if cfg.PublicBaseURL != "" {
		return cfg.PublicBaseURL
	}
	if cfg.CodespaceName != "" {
		return fmt.Sprintf("https://%s-%d.%s", cfg.CodespaceName, cfg.Port, cfg.CodespaceDomain)
	}
	if cfg.PlatformURL != "" {
		if strings.HasPrefix(cfg.PlatformURL, "http") {
			return cfg.PlatformURL
		}
		return "https://" + cfg.PlatformURL
	}
	return fmt.Sprintf("http://localhost:%d", cfg.Port)
}
