package widget

import (
	"context"

	"chatkitlab/internal/embedconfig"
)

// CredentialFunc returns a fresh client secret. Errors must reach the
// widget unchanged so its own retry logic can run.
type CredentialFunc func(ctx context.Context) (string, error)

// Strategy is one of SessionStrategy, DomainKeyStrategy or NoStrategy.
type Strategy interface {
	// Key identifies the strategy for the idempotence guard.
	Key() string
	strategy()
}

// SessionStrategy asks the local server for a credential whenever the
// widget needs one.
type SessionStrategy struct {
	FetchCredential CredentialFunc
}

// DomainKeyStrategy lets the widget talk to the platform directly with a
// public, domain-scoped key.
type DomainKeyStrategy struct {
	URL       string
	DomainKey string
}

// NoStrategy means nothing viable is configured; the fallback stays visible.
type NoStrategy struct{}

func (SessionStrategy) Key() string     { return string(embedconfig.StrategySession) }
func (s DomainKeyStrategy) Key() string { return string(embedconfig.StrategyDomainKey) + ":" + s.DomainKey }
func (NoStrategy) Key() string          { return "" }

func (SessionStrategy) strategy()   {}
func (DomainKeyStrategy) strategy() {}
func (NoStrategy) strategy()        {}

// SelectStrategy maps the server's declared mode onto a strategy. fetch is
// only used for the session mode; a nil fetch makes that mode unusable.
func SelectStrategy(cfg embedconfig.EmbedConfig, fetch CredentialFunc) Strategy {
	if cfg.WorkflowURL == "" {
		return NoStrategy{}
	}
	switch cfg.Strategy() {
	case embedconfig.StrategySession:
		if fetch != nil {
			return SessionStrategy{FetchCredential: fetch}
		}
		if cfg.DomainKey != nil && *cfg.DomainKey != "" {
			return DomainKeyStrategy{URL: cfg.WorkflowURL, DomainKey: *cfg.DomainKey}
		}
		return NoStrategy{}
	case embedconfig.StrategyDomainKey:
		return DomainKeyStrategy{URL: cfg.WorkflowURL, DomainKey: *cfg.DomainKey}
	default:
		return NoStrategy{}
	}
}
