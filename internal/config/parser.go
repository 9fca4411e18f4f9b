package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/xyue92/gitai/internal/platform"
)

const (
	// MaxConfigSize is the largest config file accepted, in bytes.
	MaxConfigSize = 1 << 20

	// DefaultParseTimeout bounds Lua execution when ctx has no deadline.
	DefaultParseTimeout = 5 * time.Second

	luaGlobal = "gitai"
)

// Parser represents a Lua config parser with platform detection.
type Parser struct {
	detector platform.Detector
}

// NewParser creates a new config parser with the given platform detector.
// A nil detector leaves the platform table out.
func NewParser(detector platform.Detector) *Parser {
	return &Parser{detector: detector}
}

// ParseFile parses a Lua config file on top of DefaultConfig.
func (p *Parser) ParseFile(ctx context.Context, path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxConfigSize {
		return nil, &ParseError{
			Message: "config file too large",
			Detail:  fmt.Sprintf("%s is %d bytes, maximum is %d", path, info.Size(), MaxConfigSize),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return p.ParseString(ctx, string(data))
}

// ParseString parses a Lua config from a string.
func (p *Parser) ParseString(ctx context.Context, luaCode string) (*Config, error) {
	if len(luaCode) > MaxConfigSize {
		return nil, &ParseError{
			Message: "config too large",
			Detail:  fmt.Sprintf("%d bytes, maximum is %d", len(luaCode), MaxConfigSize),
		}
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultParseTimeout)
		defer cancel()
	}

	L := newSandboxedVM()
	defer L.Close()
	L.SetContext(ctx)

	if p.detector != nil {
		platformInfo, err := p.detector.Detect(ctx)
		if err != nil {
			return nil, fmt.Errorf("platform detection failed: %w", err)
		}
		if err := platform.InjectPlatformTable(L, platformInfo); err != nil {
			return nil, fmt.Errorf("inject platform table: %w", err)
		}
	}

	if err := L.DoString(luaCode); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("config evaluation aborted: %w", ctx.Err())
		}
		return nil, &ParseError{
			Message: "Lua error",
			Detail:  err.Error(),
		}
	}

	return extractConfig(L)
}

// ParseError represents a config parsing error with friendly message.
type ParseError struct {
	Message string // User-friendly message
	Detail  string // Technical details (raw Lua error)
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Message, e.Detail)
}

// extractConfig reads the global gitai table over DefaultConfig.
func extractConfig(L *lua.LState) (*Config, error) {
	root, ok := L.GetGlobal(luaGlobal).(*lua.LTable)
	if !ok {
		return nil, &ParseError{
			Message: "missing or invalid 'gitai' table",
			Detail:  fmt.Sprintf("expected table, got %s", L.GetGlobal(luaGlobal).Type()),
		}
	}

	cfg := DefaultConfig()
	r := &tableReader{table: root}

	r.str("model", &cfg.Model)
	r.str("language", &cfg.Language)
	r.str("template", &cfg.Template)
	r.boolean("detailed", &cfg.Detailed)
	r.str("subject_length", &cfg.SubjectLength)
	r.str("custom_prompt", &cfg.CustomPrompt)
	r.stringList("scopes", &cfg.Scopes)

	if types, ok := root.RawGetString("types").(*lua.LTable); ok {
		cfg.Types = nil
		types.ForEach(func(_, v lua.LValue) {
			t, ok := v.(*lua.LTable)
			if !ok {
				if v != lua.LNil {
					r.fail("types", "entries must be tables")
				}
				return
			}
			tr := &tableReader{table: t, prefix: "types."}
			var ct CommitType
			tr.str("name", &ct.Name)
			tr.str("emoji", &ct.Emoji)
			tr.str("desc", &ct.Desc)
			if tr.err != nil && r.err == nil {
				r.err = tr.err
			}
			cfg.Types = append(cfg.Types, ct)
		})
	}

	if t := r.sub("ticket"); t != nil {
		t.boolean("enabled", &cfg.Ticket.Enabled)
		t.str("pattern", &cfg.Ticket.Pattern)
		t.str("prefix", &cfg.Ticket.Prefix)
		r.merge(t)
	}
	if t := r.sub("ollama"); t != nil {
		t.str("url", &cfg.Ollama.URL)
		t.duration("timeout", &cfg.Ollama.Timeout)
		r.merge(t)
	}
	if t := r.sub("diff"); t != nil {
		t.integer("max_length", &cfg.Diff.MaxLength)
		r.merge(t)
	}
	if t := r.sub("install"); t != nil {
		t.str("prefix", &cfg.Install.Prefix)
		t.str("keyring", &cfg.Install.Keyring)
		r.merge(t)
	}
	if t := r.sub("update"); t != nil {
		t.boolean("check_signature", &cfg.Update.CheckSignature)
		r.merge(t)
	}

	if r.err != nil {
		return nil, r.err
	}

	if err := cfg.Validate(); err != nil {
		return nil, &ParseError{
			Message: "config validation failed",
			Detail:  err.Error(),
		}
	}

	return cfg, nil
}

// tableReader copies typed fields out of a Lua table, keeping the first
// type error. Absent (nil) fields leave the destination untouched.
type tableReader struct {
	table  *lua.LTable
	prefix string
	err    error
}

func (r *tableReader) fail(key, want string) {
	if r.err == nil {
		r.err = &ParseError{
			Message: "invalid config value",
			Detail:  fmt.Sprintf("%s%s: %s", r.prefix, key, want),
		}
	}
}

func (r *tableReader) str(key string, dst *string) {
	switch v := r.table.RawGetString(key).(type) {
	case *lua.LNilType:
	case lua.LString:
		*dst = string(v)
	default:
		r.fail(key, "expected string, got "+v.Type().String())
	}
}

func (r *tableReader) boolean(key string, dst *bool) {
	switch v := r.table.RawGetString(key).(type) {
	case *lua.LNilType:
	case lua.LBool:
		*dst = bool(v)
	default:
		r.fail(key, "expected boolean, got "+v.Type().String())
	}
}

func (r *tableReader) integer(key string, dst *int) {
	switch v := r.table.RawGetString(key).(type) {
	case *lua.LNilType:
	case lua.LNumber:
		*dst = int(v)
	default:
		r.fail(key, "expected number, got "+v.Type().String())
	}
}

// duration accepts a Go duration string ("90s") or a number of seconds.
func (r *tableReader) duration(key string, dst *time.Duration) {
	switch v := r.table.RawGetString(key).(type) {
	case *lua.LNilType:
	case lua.LNumber:
		*dst = time.Duration(float64(v) * float64(time.Second))
	case lua.LString:
		d, err := time.ParseDuration(string(v))
		if err != nil {
			r.fail(key, err.Error())
			return
		}
		*dst = d
	default:
		r.fail(key, "expected duration string or seconds, got "+v.Type().String())
	}
}

// stringList reads an array of strings. Nil entries, as produced by
// platform.when, are dropped.
func (r *tableReader) stringList(key string, dst *[]string) {
	switch v := r.table.RawGetString(key).(type) {
	case *lua.LNilType:
	case *lua.LTable:
		var out []string
		v.ForEach(func(_, item lua.LValue) {
			switch s := item.(type) {
			case *lua.LNilType:
			case lua.LString:
				out = append(out, string(s))
			default:
				r.fail(key, "entries must be strings")
			}
		})
		*dst = out
	default:
		r.fail(key, "expected list, got "+v.Type().String())
	}
}

func (r *tableReader) sub(key string) *tableReader {
	switch v := r.table.RawGetString(key).(type) {
	case *lua.LTable:
		return &tableReader{table: v, prefix: r.prefix + key + "."}
	case *lua.LNilType:
	default:
		r.fail(key, "expected table, got "+v.Type().String())
	}
	return nil
}

func (r *tableReader) merge(child *tableReader) {
	if r.err == nil {
		r.err = child.err
	}
}

// FormatError formats a ParseError for user display.
// In verbose mode, show the raw Lua error. Otherwise, show friendly message.
func FormatError(err error, verbose bool) string {
	if parseErr, ok := err.(*ParseError); ok {
		if verbose {
			return fmt.Sprintf("%s\n\nDetails:\n%s", parseErr.Message, parseErr.Detail)
		}
		detail := parseErr.Detail
		if idx := strings.Index(detail, "stack traceback"); idx > 0 {
			detail = strings.TrimSpace(detail[:idx])
		}
		return fmt.Sprintf("%s: %s", parseErr.Message, detail)
	}
	return err.Error()
}
