package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	// DefaultModel is the Ollama model suggested in the install caveats.
	DefaultModel = "qwen2.5-coder:7b"

	// DefaultOllamaURL is where a local `ollama serve` listens.
	DefaultOllamaURL = "http://localhost:11434"

	// DefaultTemplate renders a Conventional Commits subject.
	DefaultTemplate = "{type}({scope}): {subject}"

	// DefaultDiffMaxLength bounds the diff text sent to the model.
	DefaultDiffMaxLength = 2000

	SubjectShort  = "short"
	SubjectNormal = "normal"
)

// Config holds all gitai settings.
type Config struct {
	Model         string        `yaml:"model"`
	Language      string        `yaml:"language"`
	Template      string        `yaml:"template"`
	Types         []CommitType  `yaml:"types"`
	Scopes        []string      `yaml:"scopes,omitempty"`
	Detailed      bool          `yaml:"detailed"`
	SubjectLength string        `yaml:"subject_length"`
	CustomPrompt  string        `yaml:"custom_prompt,omitempty"`
	Ticket        TicketConfig  `yaml:"ticket"`
	Ollama        OllamaConfig  `yaml:"ollama"`
	Diff          DiffConfig    `yaml:"diff"`
	Install       InstallConfig `yaml:"install"`
	Update        UpdateConfig  `yaml:"update"`
}

// CommitType is one Conventional Commits type offered to the user.
type CommitType struct {
	Name  string `yaml:"name"`
	Emoji string `yaml:"emoji"`
	Desc  string `yaml:"desc"`
}

// TicketConfig controls ticket extraction from branch names.
type TicketConfig struct {
	Enabled bool `yaml:"enabled"`
	// Pattern overrides the built-in ticket patterns.
	Pattern string `yaml:"pattern,omitempty"`
	// Prefix is prepended to bare ticket numbers, e.g. JIRA + 123.
	Prefix string `yaml:"prefix,omitempty"`
}

// OllamaConfig locates the model server.
type OllamaConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// DiffConfig bounds the diff sent to the model.
type DiffConfig struct {
	MaxLength int `yaml:"max_length"`
}

// InstallConfig is used by `gitai install`.
type InstallConfig struct {
	Prefix  string `yaml:"prefix,omitempty"`
	Keyring string `yaml:"keyring,omitempty"`
}

// UpdateConfig is used by `gitai update`.
type UpdateConfig struct {
	CheckSignature bool `yaml:"check_signature"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		Model:    DefaultModel,
		Language: "en",
		Template: DefaultTemplate,
		Types: []CommitType{
			{Name: "feat", Emoji: "✨", Desc: "A new feature"},
			{Name: "fix", Emoji: "🐛", Desc: "A bug fix"},
			{Name: "docs", Emoji: "📝", Desc: "Documentation only changes"},
			{Name: "style", Emoji: "💄", Desc: "Code style changes (formatting, semicolons, etc)"},
			{Name: "refactor", Emoji: "♻️", Desc: "Code refactoring without feature changes or bug fixes"},
			{Name: "perf", Emoji: "⚡", Desc: "Performance improvements"},
			{Name: "test", Emoji: "✅", Desc: "Adding or updating tests"},
			{Name: "build", Emoji: "📦", Desc: "Build system or dependency changes"},
			{Name: "ci", Emoji: "👷", Desc: "CI configuration changes"},
			{Name: "chore", Emoji: "🔧", Desc: "Other changes that don't modify src or test files"},
		},
		SubjectLength: SubjectNormal,
		Ticket:        TicketConfig{Enabled: true},
		Ollama: OllamaConfig{
			URL:     DefaultOllamaURL,
			Timeout: 2 * time.Minute,
		},
		Diff: DiffConfig{MaxLength: DefaultDiffMaxLength},
	}
}

// GetTypeByName returns the commit type with the given name, or nil.
func (c *Config) GetTypeByName(name string) *CommitType {
	for i := range c.Types {
		if c.Types[i].Name == name {
			return &c.Types[i]
		}
	}
	return nil
}

// TypeNames lists the configured type names in order.
func (c *Config) TypeNames() []string {
	names := make([]string, 0, len(c.Types))
	for _, t := range c.Types {
		names = append(names, t.Name)
	}
	return names
}

// SubjectLimit is the maximum subject length for the configured mode.
func (c *Config) SubjectLimit() int {
	if c.SubjectLength == SubjectShort {
		return 36
	}
	return 72
}

// Validate performs basic validation on a Config.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Model) == "" {
		return &ValidationError{Field: "model", Message: "cannot be empty"}
	}

	if len(c.Types) == 0 {
		return &ValidationError{Field: "types", Message: "at least one commit type is required"}
	}

	seen := make(map[string]bool, len(c.Types))
	for i, t := range c.Types {
		if t.Name == "" {
			return &ValidationError{Field: fmt.Sprintf("types[%d].name", i), Message: "cannot be empty"}
		}
		if seen[t.Name] {
			return &ValidationError{Field: fmt.Sprintf("types[%d].name", i), Message: fmt.Sprintf("duplicate type %q", t.Name)}
		}
		seen[t.Name] = true
	}

	switch c.SubjectLength {
	case "", SubjectShort, SubjectNormal:
	default:
		return &ValidationError{
			Field:   "subject_length",
			Message: fmt.Sprintf("must be %q or %q, got %q", SubjectShort, SubjectNormal, c.SubjectLength),
		}
	}

	if c.Ticket.Pattern != "" {
		if _, err := regexp.Compile(c.Ticket.Pattern); err != nil {
			return &ValidationError{Field: "ticket.pattern", Message: err.Error()}
		}
	}

	if c.Ollama.URL != "" {
		u, err := url.Parse(c.Ollama.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return &ValidationError{Field: "ollama.url", Message: fmt.Sprintf("must be an http(s) URL, got %q", c.Ollama.URL)}
		}
	}

	if c.Ollama.Timeout < 0 {
		return &ValidationError{Field: "ollama.timeout", Message: "cannot be negative"}
	}

	if c.Diff.MaxLength < 0 {
		return &ValidationError{Field: "diff.max_length", Message: "cannot be negative"}
	}

	return nil
}

// ValidationError represents a config validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return "config validation failed for " + e.Field + ": " + e.Message
	}
	return "config validation failed: " + e.Message
}
