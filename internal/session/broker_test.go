package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"chatkitlab/internal/chatkit"
	"chatkitlab/internal/embedconfig"
	"chatkitlab/pkg/config"
	"chatkitlab/pkg/metrics"
)

type fakeMinter struct {
	calls  atomic.Int32
	last   chatkit.CreateSessionRequest
	secret string
	err    error
}

func (f *fakeMinter) CreateSession(_ context.Context, in chatkit.CreateSessionRequest) (string, error) {
	f.calls.Add(1)
	f.last = in
	return f.secret, f.err
}

func enabledConfig() embedconfig.EmbedConfig {
	return embedconfig.Resolve(config.Config{
		Port:        3000,
		APIKey:      "sk-test",
		WorkflowURL: "https://platform.example/workflows/wf_123",
	}, time.Now())
}

func newTestBroker(ec embedconfig.EmbedConfig, m Minter) (*Broker, *observer.ObservedLogs, *metrics.Sessions) {
	core, logs := observer.New(zapcore.DebugLevel)
	ms := metrics.NewSessions(prometheus.NewRegistry())
	return NewBroker(ec, m, zap.New(core).Sugar(), ms), logs, ms
}

func TestMintSuccess(t *testing.T) {
	t.Parallel()

	up := &fakeMinter{secret: "sec_1"}
	b, logs, ms := newTestBroker(enabledConfig(), up)

	cred, err := b.Mint(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, Credential{ClientSecret: "sec_1"}, cred)
	assert.Equal(t, int32(1), up.calls.Load())
	assert.Equal(t, "wf_123", up.last.Workflow.ID)
	assert.Equal(t, "abc", up.last.User)
	assert.Zero(t, logs.Len())
	assert.Equal(t, 1.0, testutil.ToFloat64(ms.Minted.WithLabelValues("ok")))
}

func TestMintDisabledNeverCallsUpstream(t *testing.T) {
	t.Parallel()

	up := &fakeMinter{secret: "sec_1"}
	ec := embedconfig.Resolve(config.Config{Port: 3000, WorkflowURL: "https://platform.example/workflows/wf_123"}, time.Now())
	b, logs, _ := newTestBroker(ec, up)

	for _, id := range []string{"abc", "", "x"} {
		_, err := b.Mint(context.Background(), id)
		require.Error(t, err)
		assert.Equal(t, KindUnavailable, KindOf(err))
		assert.Equal(t, 503, KindOf(err).Status())
	}
	assert.False(t, b.Enabled())
	assert.Zero(t, up.calls.Load())
	assert.Equal(t, 3, logs.Len())
}

func TestMintRejectsInvalidDeviceID(t *testing.T) {
	t.Parallel()

	up := &fakeMinter{secret: "sec_1"}
	b, _, _ := newTestBroker(enabledConfig(), up)

	_, err := b.Mint(context.Background(), "")
	assert.Equal(t, KindBadRequest, KindOf(err))
	_, err = b.Mint(context.Background(), fmt.Sprintf("%065d", 0))
	assert.Equal(t, KindBadRequest, KindOf(err))
	assert.Zero(t, up.calls.Load())
}

func TestMintUpstreamFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantKind   Kind
		wantStatus int
	}{
		{
			name:       "rejected",
			err:        &chatkit.StatusError{Status: 401, Body: `{"error":"invalid key sk-..."}`},
			wantKind:   KindUpstreamRejected,
			wantStatus: 502,
		},
		{
			name:       "malformed",
			err:        fmt.Errorf("%w: missing client secret", chatkit.ErrMalformedResponse),
			wantKind:   KindMalformedUpstream,
			wantStatus: 502,
		},
		{
			name:       "unreachable",
			err:        fmt.Errorf("%w: %w", chatkit.ErrUnreachable, errors.New("dial tcp: connection refused")),
			wantKind:   KindUpstreamUnreachable,
			wantStatus: 500,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			up := &fakeMinter{err: tt.err}
			b, logs, ms := newTestBroker(enabledConfig(), up)

			_, err := b.Mint(context.Background(), "abc")
			require.Error(t, err)
			assert.Equal(t, tt.wantKind, KindOf(err))
			assert.Equal(t, tt.wantStatus, KindOf(err).Status())
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, int32(1), up.calls.Load())
			assert.Equal(t, 1, logs.Len())
			assert.Equal(t, 1.0, testutil.ToFloat64(ms.Minted.WithLabelValues(string(tt.wantKind))))
		})
	}
}

func TestMintRejectedLogsUpstreamStatusAndBody(t *testing.T) {
	t.Parallel()

	up := &fakeMinter{err: &chatkit.StatusError{Status: 401, Body: "upstream says no"}}
	b, logs, _ := newTestBroker(enabledConfig(), up)

	_, err := b.Mint(context.Background(), "abc")
	require.Error(t, err)

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, int64(401), fields["status"])
	assert.Equal(t, "upstream says no", fields["body"])
	assert.NotContains(t, KindOf(err).Message(), "upstream says no")
}

func TestKindOfForeignError(t *testing.T) {
	t.Parallel()

	assert.Equal(t, KindUpstreamUnreachable, KindOf(errors.New("x")))
	assert.Equal(t, KindUnavailable, KindOf(fmt.Errorf("wrapped: %w", newError(KindUnavailable, "m", nil))))
}

type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

func (c *stepClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.cur = c.cur.Add(d)
	c.mu.Unlock()
}

// clockMinter spends took on the clock for every call.
type clockMinter struct {
	clock *stepClock
	took  time.Duration
	err   error
}

func (m clockMinter) CreateSession(context.Context, chatkit.CreateSessionRequest) (string, error) {
	m.clock.Advance(m.took)
	return "sec_1", m.err
}

func TestMintObservesUpstreamCallDurationOnly(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
	}{
		{name: "success"},
		{name: "rejected", err: &chatkit.StatusError{Status: 500, Body: "down"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			clock := &stepClock{cur: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
			b, _, ms := newTestBroker(enabledConfig(), clockMinter{clock: clock, took: 3 * time.Second, err: tt.err})
			b.now = clock.Now

			// rejected before the upstream call: no latency sample
			_, err := b.Mint(context.Background(), "")
			require.Error(t, err)
			clock.Advance(time.Minute)

			_, _ = b.Mint(context.Background(), "abc")

			var m dto.Metric
			require.NoError(t, ms.Upstream.Write(&m))
			assert.Equal(t, uint64(1), m.GetHistogram().GetSampleCount())
			assert.InDelta(t, 3.0, m.GetHistogram().GetSampleSum(), 1e-9)
		})
	}
}

func TestNewBrokerWithoutLogger(t *testing.T) {
	t.Parallel()

	b := NewBroker(enabledConfig(), &fakeMinter{err: errors.New("boom")}, nil, nil)
	_, err := b.Mint(context.Background(), "abc")
	assert.Equal(t, KindUpstreamUnreachable, KindOf(err))
}
