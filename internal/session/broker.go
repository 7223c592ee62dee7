// Package session exchanges the server-held platform key for short-lived
// client secrets, one upstream call per request.
package session

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"chatkitlab/internal/chatkit"
	"chatkitlab/internal/embedconfig"
	"chatkitlab/pkg/logger"
	"chatkitlab/pkg/metrics"
)

// Minter is the upstream session endpoint. *chatkit.Client implements it.
type Minter interface {
	CreateSession(ctx context.Context, in chatkit.CreateSessionRequest) (string, error)
}

// Credential is the only thing republished to the browser.
type Credential struct {
	ClientSecret string `json:"clientSecret"`
}

// Broker has no mutable state; concurrent Mint calls do not interact.
type Broker struct {
	enabled    bool
	workflowID string
	upstream   Minter
	log        *zap.SugaredLogger
	metrics    *metrics.Sessions
	now        func() time.Time
}

func NewBroker(ec embedconfig.EmbedConfig, upstream Minter, log *zap.SugaredLogger, m *metrics.Sessions) *Broker {
	if log == nil {
		log = logger.Nop()
	}
	return &Broker{
		enabled:    ec.SessionAPIEnabled && upstream != nil,
		workflowID: ec.WorkflowID(),
		upstream:   upstream,
		log:        log,
		metrics:    m,
		now:        time.Now,
	}
}

// Enabled reports whether Mint can reach the upstream at all.
func (b *Broker) Enabled() bool { return b.enabled }

// Mint requests one client secret for deviceID, which must already be
// sanitized. Failures are *Error values; nothing is retried.
func (b *Broker) Mint(ctx context.Context, deviceID string) (Credential, error) {
	if !b.enabled {
		return Credential{}, b.fail(newError(KindUnavailable, "session api disabled", nil), 0, false)
	}
	if deviceID == "" || len([]rune(deviceID)) > MaxDeviceIDLength {
		return Credential{}, b.fail(newError(KindBadRequest, "device id empty or too long", nil), 0, false)
	}

	began := b.now()
	secret, err := b.upstream.CreateSession(ctx, chatkit.CreateSessionRequest{
		Workflow: chatkit.Workflow{ID: b.workflowID},
		User:     deviceID,
	})
	took := b.now().Sub(began)
	if err != nil {
		var se *chatkit.StatusError
		switch {
		case errors.As(err, &se):
			b.log.Errorw("failed to start chatkit session",
				"kind", string(KindUpstreamRejected), "status", se.Status, "body", se.Body)
			return Credential{}, b.fail(newError(KindUpstreamRejected, "upstream rejected session", err), took, true)
		case errors.Is(err, chatkit.ErrMalformedResponse):
			return Credential{}, b.fail(newError(KindMalformedUpstream, "session response missing client_secret", err), took, true)
		default:
			return Credential{}, b.fail(newError(KindUpstreamUnreachable, "session request failed", err), took, true)
		}
	}
	b.metrics.Observe("ok", took.Seconds(), true)
	return Credential{ClientSecret: secret}, nil
}

// fail logs e and records it. took is the upstream call duration and is
// only observed when calledUpstream is set.
func (b *Broker) fail(e *Error, took time.Duration, calledUpstream bool) *Error {
	if e.Kind != KindUpstreamRejected {
		// rejected responses are logged with status and body at the call site
		b.log.Errorw("chatkit session error", "kind", string(e.Kind), "err", e)
	}
	b.metrics.Observe(string(e.Kind), took.Seconds(), calledUpstream)
	return e
}
