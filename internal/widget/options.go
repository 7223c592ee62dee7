package widget

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Options is what the configurator pushes into the widget. Exactly one of
// API.GetClientSecret or the API.URL/API.DomainKey pair is set.
type Options struct {
	API APIOptions `json:"api"`
	Presentation
}

type APIOptions struct {
	GetClientSecret CredentialFunc `json:"-"`
	URL             string         `json:"url,omitempty"`
	DomainKey       string         `json:"domainKey,omitempty"`
}

// Presentation carries the cosmetic widget options. It never influences
// authentication.
type Presentation struct {
	Theme             Theme             `json:"theme" yaml:"theme"`
	Header            Header            `json:"header" yaml:"header"`
	History           History           `json:"history" yaml:"history"`
	StartScreen       StartScreen       `json:"startScreen" yaml:"startScreen"`
	Composer          Composer          `json:"composer" yaml:"composer"`
	ThreadItemActions ThreadItemActions `json:"threadItemActions" yaml:"threadItemActions"`
}

type Theme struct {
	ColorScheme string `json:"colorScheme" yaml:"colorScheme"`
	Radius      string `json:"radius" yaml:"radius"`
	Accent      Accent `json:"accent" yaml:"accent"`
}

type Accent struct {
	Primary string `json:"primary" yaml:"primary"`
	Level   int    `json:"level" yaml:"level"`
}

type Header struct {
	Enabled     bool          `json:"enabled" yaml:"enabled"`
	Title       string        `json:"title" yaml:"title"`
	Subtitle    string        `json:"subtitle" yaml:"subtitle"`
	RightAction *HeaderAction `json:"rightAction,omitempty" yaml:"rightAction,omitempty"`
}

// HeaderAction opens URL in a new browsing context.
type HeaderAction struct {
	Icon  string `json:"icon" yaml:"icon"`
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

type History struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	ShowDelete bool `json:"showDelete" yaml:"showDelete"`
	ShowRename bool `json:"showRename" yaml:"showRename"`
}

type StartScreen struct {
	Greeting string   `json:"greeting" yaml:"greeting"`
	Prompts  []Prompt `json:"prompts" yaml:"prompts"`
}

type Prompt struct {
	Label  string `json:"label" yaml:"label"`
	Prompt string `json:"prompt" yaml:"prompt"`
	Icon   string `json:"icon" yaml:"icon"`
}

type Composer struct {
	Placeholder string `json:"placeholder" yaml:"placeholder"`
}

type ThreadItemActions struct {
	Feedback bool `json:"feedback" yaml:"feedback"`
	Retry    bool `json:"retry" yaml:"retry"`
}

// DefaultPresentation is the look of the lab page.
func DefaultPresentation() Presentation {
	return Presentation{
		Theme: Theme{ColorScheme: "dark", Radius: "round", Accent: Accent{Primary: "#8B5CF6", Level: 2}},
		Header: Header{
			Enabled:     true,
			Title:       "ChatKit Lab",
			Subtitle:    "Linked to Agent Builder",
			RightAction: &HeaderAction{Icon: "external", Label: "Open Workflow"},
		},
		History: History{Enabled: true, ShowDelete: true, ShowRename: true},
		StartScreen: StartScreen{
			Greeting: "How can we help?",
			Prompts: []Prompt{
				{Label: "Troubleshoot an issue", Prompt: "Help me fix an issue", Icon: "lifesaver"},
				{Label: "Request a feature", Prompt: "I have an idea", Icon: "lightbulb"},
			},
		},
		Composer:          Composer{Placeholder: "Ask the assistant…"},
		ThreadItemActions: ThreadItemActions{Feedback: true, Retry: true},
	}
}

// LoadPresentation reads a YAML file over the defaults. Keys absent from
// the file keep their default value.
func LoadPresentation(path string) (Presentation, error) {
	p := DefaultPresentation()
	b, err := os.ReadFile(path)
	if err != nil {
		return p, fmt.Errorf("read presentation: %w", err)
	}
	if err := yaml.Unmarshal(b, &p); err != nil {
		return DefaultPresentation(), fmt.Errorf("parse presentation %s: %w", path, err)
	}
	return p, nil
}

// forWorkflow fills the header action with the workflow link.
func (p Presentation) forWorkflow(workflowURL string) Presentation {
	if p.Header.RightAction != nil {
		a := *p.Header.RightAction
		if a.URL == "" {
			a.URL = workflowURL
		}
		p.Header.RightAction = &a
	}
	p.StartScreen.Prompts = append([]Prompt(nil), p.StartScreen.Prompts...)
	return p
}
