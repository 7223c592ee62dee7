// pkg/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultCodespaceDomain is the port forwarding domain of hosted dev
// environments when GITHUB_CODESPACES_PORT_FORWARDING_DOMAIN is unset.
const DefaultCodespaceDomain = "app.github.dev"

type Config struct {
	Env  string `env:"CHATKIT_ENV" envDefault:"dev"`
	Port int    `env:"PORT" envDefault:"3000"`

	// Workflow the embedded chat is bound to
	WorkflowURL string `env:"AGENT_WORKFLOW_URL"`
	WorkflowID  string `env:"AGENT_WORKFLOW_ID"` // explicit override, wins over the id parsed from WorkflowURL
	DomainKey   string `env:"AGENT_WORKFLOW_PUBLIC_KEY"`

	// Upstream platform
	APIKey          string        `env:"OPENAI_API_KEY"`
	APIBase         string        `env:"CHATKIT_API_BASE" envDefault:"https://api.openai.com"`
	SecretPath      string        `env:"CHATKIT_SECRET_PATH" envDefault:"client_secret"`
	UpstreamTimeout time.Duration `env:"CHATKIT_UPSTREAM_TIMEOUT" envDefault:"15s"`

	// Public base URL discovery (first match wins, see embedconfig.ResolvePublicBaseURL)
	PublicBaseURL   string `env:"PUBLIC_BASE_URL"`
	CodespaceName   string `env:"CODESPACE_NAME"`
	CodespaceDomain string `env:"GITHUB_CODESPACES_PORT_FORWARDING_DOMAIN"`
	PlatformURL     string `env:"VERCEL_URL"`

	StaticDir   string   `env:"STATIC_DIR" envDefault:"public"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:","`
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg, err := parse(env.Options{})
	if err != nil {
		return Config{}, err
	}
	if cfg.APIKey == "" && cfg.DomainKey == "" {
		log.Println("[WARN] neither OPENAI_API_KEY nor AGENT_WORKFLOW_PUBLIC_KEY set; chat panel will show its fallback")
	}
	return cfg, nil
}

// LoadFrom decodes cfg from the given variables only, ignoring the process
// environment and any .env file.
func LoadFrom(vars map[string]string) (Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	for _, s := range []*string{
		&c.Env, &c.WorkflowURL, &c.WorkflowID, &c.DomainKey, &c.APIKey, &c.APIBase, &c.SecretPath,
		&c.PublicBaseURL, &c.CodespaceName, &c.CodespaceDomain, &c.PlatformURL, &c.StaticDir,
	} {
		*s = strings.TrimSpace(*s)
	}
	if c.CodespaceDomain == "" {
		c.CodespaceDomain = DefaultCodespaceDomain
	}
	if c.SecretPath == "" {
		c.SecretPath = "client_secret"
	}
	origins := c.CORSOrigins[:0]
	for _, o := range c.CORSOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSOrigins = origins
}

func (c Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Port)
	}
	if c.UpstreamTimeout <= 0 {
		return fmt.Errorf("invalid CHATKIT_UPSTREAM_TIMEOUT %s", c.UpstreamTimeout)
	}
	return nil
}

// HTTPAddr is the listen address derived from Port.
func (c Config) HTTPAddr() string { return ":" + strconv.Itoa(c.Port) }

// StaticDirExists reports whether StaticDir points at a directory.
func (c Config) StaticDirExists() bool {
	if c.StaticDir == "" {
		return false
	}
	fi, err := os.Stat(c.StaticDir)
	return err == nil && fi.IsDir()
}
