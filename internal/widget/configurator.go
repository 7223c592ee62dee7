// Package widget reconciles the embedded chat widget with the server's
// declared authentication mode.
//
// A Configurator applies options to its widget at most once per distinct
// (workflow URL, strategy key) pair. Waiting for the widget definition has
// no timeout: if the registry never defines the element the configurator
// stays in AwaitingWidgetDefinition until the caller's context ends or
// Close is called.
package widget

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"chatkitlab/internal/embedconfig"
	"chatkitlab/pkg/logger"
)

// ElementName is the custom element type the widget registers.
const ElementName = "openai-chatkit"

const (
	EventReady = "chatkit.ready"
	EventError = "chatkit.error"
)

type State int

const (
	Unconfigured State = iota
	AwaitingWidgetDefinition
	Configured
	Degraded
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case AwaitingWidgetDefinition:
		return "awaiting-widget-definition"
	case Configured:
		return "configured"
	case Degraded:
		return "degraded"
	default:
		return "unknown"
	}
}

type Event struct {
	Type string
	Err  error
}

// Element is the chat element on the host page.
type Element interface {
	AddEventListener(event string, fn func(Event), once bool)
}

// OptionsSetter is the capability an Element gains once its definition is
// registered.
type OptionsSetter interface {
	SetOptions(Options) error
}

// Registry resolves custom element definitions. WhenDefined may block
// forever; it must return ctx.Err() once ctx is done.
type Registry interface {
	WhenDefined(ctx context.Context, name string) error
}

// Page is the rest of the host page: the fallback panel and the workflow
// link card.
type Page interface {
	HideFallback()
	ShowFallback()
	ShowLinked(workflowURL string)
	ShowUnavailable()
}

// ConfigSource fetches the server's embed configuration.
type ConfigSource interface {
	Fetch(ctx context.Context) (embedconfig.EmbedConfig, error)
}

// ConfiguredState records what the widget was last configured with. The
// zero value means never configured.
type ConfiguredState struct {
	URL         string
	StrategyKey string
}

type Deps struct {
	Element      Element  // nil when the page has no chat panel
	Registry     Registry // nil when the host has no custom element support
	Page         Page
	Source       ConfigSource
	Credentials  CredentialFunc
	Presentation *Presentation
	Log          *zap.SugaredLogger
}

// Configurator owns one widget instance. Several configurators on one page
// do not share state.
type Configurator struct {
	d Deps

	teardown context.Context
	abandon  context.CancelFunc

	// apply serializes SetOptions so configured always names the options
	// the widget holds.
	apply sync.Mutex

	mu         sync.Mutex
	state      State
	configured ConfiguredState
	pending    ConfiguredState
	generation uint64
	observing  bool
	readyArmed bool
}

func New(d Deps) *Configurator {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	if d.Page == nil {
		d.Page = nopPage{}
	}
	if d.Presentation == nil {
		p := DefaultPresentation()
		d.Presentation = &p
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Configurator{d: d, teardown: ctx, abandon: cancel}
}

func (c *Configurator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Configurator) Configured() ConfiguredState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.configured
}

// Close abandons any pending wait for the widget definition.
func (c *Configurator) Close() { c.abandon() }

// Refresh fetches the embed configuration, updates the link card and
// configures the widget.
func (c *Configurator) Refresh(ctx context.Context) State {
	if c.d.Source == nil {
		c.d.Page.ShowUnavailable()
		return c.degrade("no config source")
	}
	cfg, err := c.d.Source.Fetch(ctx)
	if err != nil {
		c.d.Log.Errorw("unable to load config", "err", err)
		c.d.Page.ShowUnavailable()
		return c.degrade("config fetch failed")
	}
	if cfg.WorkflowURL != "" {
		c.d.Page.ShowLinked(cfg.WorkflowURL)
	}
	return c.Configure(ctx, cfg)
}

// Configure reconciles the widget with cfg. Repeated calls with an
// unchanged (workflow URL, strategy) pair are no-ops.
func (c *Configurator) Configure(ctx context.Context, cfg embedconfig.EmbedConfig) State {
	strategy := SelectStrategy(cfg, c.d.Credentials)
	if _, none := strategy.(NoStrategy); none {
		if cfg.WorkflowURL == "" {
			return c.degrade("workflow url missing")
		}
		return c.degrade("no session api and no domain key")
	}

	want := ConfiguredState{URL: cfg.WorkflowURL, StrategyKey: strategy.Key()}
	c.mu.Lock()
	if want == c.configured || want == c.pending {
		s := c.state
		c.mu.Unlock()
		return s
	}
	c.generation++
	gen := c.generation
	c.pending = want
	c.state = AwaitingWidgetDefinition
	c.mu.Unlock()

	if c.d.Element == nil || c.d.Registry == nil {
		return c.abort(gen, "custom elements unavailable")
	}

	waitCtx, stop := context.WithCancel(ctx)
	defer stop()
	go func() {
		select {
		case <-c.teardown.Done():
			stop()
		case <-waitCtx.Done():
		}
	}()
	if err := c.d.Registry.WhenDefined(waitCtx, ElementName); err != nil {
		if waitCtx.Err() != nil {
			// abandoned: nothing applied, a later call may try again
			c.mu.Lock()
			if c.generation == gen {
				c.pending = ConfiguredState{}
			}
			s := c.state
			c.mu.Unlock()
			return s
		}
		c.d.Log.Warnw("widget definition failed", "element", ElementName, "err", err)
		return c.abort(gen, "widget definition failed")
	}

	setter, ok := c.d.Element.(OptionsSetter)
	if !ok {
		return c.abort(gen, "widget has no SetOptions")
	}

	c.apply.Lock()
	defer c.apply.Unlock()

	c.mu.Lock()
	if c.generation != gen {
		// superseded by a newer configuration
		s := c.state
		c.mu.Unlock()
		return s
	}
	c.mu.Unlock()

	if err := setter.SetOptions(c.options(cfg.WorkflowURL, strategy)); err != nil {
		c.d.Log.Errorw("widget rejected options", "err", err)
		return c.abort(gen, "set options failed")
	}

	c.mu.Lock()
	if c.generation == gen {
		c.pending = ConfiguredState{}
	}
	c.configured = want
	c.state = Configured
	c.mu.Unlock()
	c.d.Log.Infow("chat widget configured", "workflow_url", want.URL, "strategy", want.StrategyKey)

	c.observe()
	return Configured
}

func (c *Configurator) options(workflowURL string, s Strategy) Options {
	opts := Options{Presentation: c.d.Presentation.forWorkflow(workflowURL)}
	switch s := s.(type) {
	case SessionStrategy:
		fetch := s.FetchCredential
		opts.API = APIOptions{GetClientSecret: func(ctx context.Context) (string, error) {
			secret, err := fetch(ctx)
			if err != nil {
				c.d.Log.Errorw("unable to fetch chatkit client secret", "err", err)
				return "", err
			}
			return secret, nil
		}}
	case DomainKeyStrategy:
		opts.API = APIOptions{URL: s.URL, DomainKey: s.DomainKey}
	case NoStrategy:
		panic("widget: options requested without a strategy")
	}
	return opts
}

// observe runs after options were applied. At most one one-shot ready
// observer is pending at a time; the error observer is added once.
func (c *Configurator) observe() {
	c.mu.Lock()
	armReady := !c.readyArmed
	c.readyArmed = true
	first := !c.observing
	c.observing = true
	c.mu.Unlock()

	if armReady {
		c.d.Element.AddEventListener(EventReady, func(Event) {
			c.mu.Lock()
			c.readyArmed = false
			c.mu.Unlock()
			c.d.Page.HideFallback()
		}, true)
	}
	if first {
		c.d.Element.AddEventListener(EventError, func(e Event) {
			c.d.Log.Errorw("chatkit error", "err", e.Err)
		}, false)
	}
}

// degrade handles insufficient inputs. A widget that was already configured
// keeps its last good options.
func (c *Configurator) degrade(reason string) State {
	c.mu.Lock()
	if c.configured != (ConfiguredState{}) {
		s := c.state
		c.mu.Unlock()
		c.d.Log.Warnw("keeping previous widget configuration", "reason", reason)
		return s
	}
	c.state = Degraded
	c.mu.Unlock()
	c.d.Log.Infow("chat widget degraded", "reason", reason)
	c.d.Page.ShowFallback()
	return Degraded
}

func (c *Configurator) abort(gen uint64, reason string) State {
	c.mu.Lock()
	if c.generation == gen {
		c.pending = ConfiguredState{}
	}
	c.mu.Unlock()
	return c.degrade(reason)
}

type nopPage struct{}

func (nopPage) HideFallback()     {}
func (nopPage) ShowFallback()     {}
func (nopPage) ShowLinked(string) {}
func (nopPage) ShowUnavailable()  {}
