package widget

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatkitlab/internal/embedconfig"
)

func TestSelectStrategy(t *testing.T) {
	t.Parallel()

	fetch := func(context.Context) (string, error) { return "s", nil }
	tests := []struct {
		name    string
		cfg     embedconfig.EmbedConfig
		fetch   CredentialFunc
		wantKey string
	}{
		{name: "session", cfg: sessionConfig(), fetch: fetch, wantKey: "session"},
		{name: "session wins over domain key", cfg: embedconfig.EmbedConfig{WorkflowURL: testURL, SessionAPIEnabled: true, DomainKey: strPtr("dk")}, fetch: fetch, wantKey: "session"},
		{name: "domain key", cfg: domainConfig("dk"), fetch: fetch, wantKey: "domain-key:dk"},
		{name: "empty domain key", cfg: domainConfig(""), fetch: fetch, wantKey: ""},
		{name: "nothing", cfg: embedconfig.EmbedConfig{WorkflowURL: testURL}, fetch: fetch, wantKey: ""},
		{name: "no url", cfg: embedconfig.EmbedConfig{SessionAPIEnabled: true}, fetch: fetch, wantKey: ""},
		{name: "session without fetch", cfg: sessionConfig(), wantKey: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.wantKey, SelectStrategy(tt.cfg, tt.fetch).Key())
		})
	}
}

func TestLoadPresentation(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "widget.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
header:
  title: Support
startScreen:
  greeting: Hi there
  prompts:
    - label: Billing
      prompt: I have a billing question
      icon: receipt
`), 0o600))

	p, err := LoadPresentation(path)
	require.NoError(t, err)
	assert.Equal(t, "Support", p.Header.Title)
	assert.True(t, p.Header.Enabled)
	assert.Equal(t, "dark", p.Theme.ColorScheme)
	assert.Equal(t, "Hi there", p.StartScreen.Greeting)
	require.Len(t, p.StartScreen.Prompts, 1)
	assert.Equal(t, "receipt", p.StartScreen.Prompts[0].Icon)
}

func TestLoadPresentationErrors(t *testing.T) {
	t.Parallel()

	_, err := LoadPresentation(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("header: [unclosed"), 0o600))
	p, err := LoadPresentation(path)
	assert.Error(t, err)
	assert.Equal(t, DefaultPresentation().Header.Title, p.Header.Title)
}
