package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xyue92/gitai/internal/platform"
)

func testDetector() platform.Detector {
	return platform.StaticDetector{Info: &platform.Info{
		OS:       "darwin",
		Arch:     "arm64",
		ArchRaw:  "arm64",
		Platform: "darwin",
		Family:   "darwin",
		Version:  "14.0",
	}}
}

func TestParseString_Full(t *testing.T) {
	code := `
gitai = {
  model = "llama3",
  language = "zh",
  template = "{type}: {subject}",
  detailed = true,
  subject_length = "short",
  scopes = { "api", "cli" },
  types = {
    { name = "feat", emoji = "+", desc = "Feature" },
    { name = "fix", emoji = "!", desc = "Fix" },
  },
  ticket = { enabled = false, prefix = "JIRA" },
  ollama = { url = "http://gpu-box:11434", timeout = 30 },
  diff = { max_length = 4000 },
  install = { prefix = "/opt/gitai" },
  update = { check_signature = true },
}
`
	cfg, err := NewParser(testDetector()).ParseString(context.Background(), code)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}

	if cfg.Model != "llama3" || cfg.Language != "zh" || cfg.Template != "{type}: {subject}" {
		t.Errorf("scalars not applied: %+v", cfg)
	}
	if !cfg.Detailed || cfg.SubjectLength != SubjectShort {
		t.Errorf("Detailed/SubjectLength = %v/%q", cfg.Detailed, cfg.SubjectLength)
	}
	if strings.Join(cfg.Scopes, ",") != "api,cli" {
		t.Errorf("Scopes = %v", cfg.Scopes)
	}
	if len(cfg.Types) != 2 || cfg.Types[1].Name != "fix" || cfg.Types[1].Emoji != "!" {
		t.Errorf("Types = %+v", cfg.Types)
	}
	if cfg.Ticket.Enabled || cfg.Ticket.Prefix != "JIRA" {
		t.Errorf("Ticket = %+v", cfg.Ticket)
	}
	if cfg.Ollama.URL != "http://gpu-box:11434" || cfg.Ollama.Timeout != 30*time.Second {
		t.Errorf("Ollama = %+v", cfg.Ollama)
	}
	if cfg.Diff.MaxLength != 4000 {
		t.Errorf("Diff.MaxLength = %d", cfg.Diff.MaxLength)
	}
	if cfg.Install.Prefix != "/opt/gitai" || !cfg.Update.CheckSignature {
		t.Errorf("Install/Update = %+v/%+v", cfg.Install, cfg.Update)
	}
}

func TestParseString_PartialKeepsDefaults(t *testing.T) {
	cfg, err := NewParser(nil).ParseString(context.Background(), `gitai = { model = "mistral" }`)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if cfg.Model != "mistral" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if len(cfg.Types) != len(DefaultConfig().Types) {
		t.Errorf("types should fall back to defaults, got %d", len(cfg.Types))
	}
	if cfg.Ollama.URL != DefaultOllamaURL {
		t.Errorf("Ollama.URL = %q", cfg.Ollama.URL)
	}
}

func TestParseString_PlatformTable(t *testing.T) {
	code := `
gitai = {
  model = platform.is_apple_silicon and "qwen2.5-coder:14b" or "qwen2.5-coder:7b",
  scopes = {
    "core",
    platform.when(platform.is_linux, "systemd"),
    platform.when(platform.is_macos, "launchd"),
  },
  ollama = { timeout = "90s" },
}
`
	cfg, err := NewParser(testDetector()).ParseString(context.Background(), code)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if cfg.Model != "qwen2.5-coder:14b" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if strings.Join(cfg.Scopes, ",") != "core,launchd" {
		t.Errorf("Scopes = %v, want [core launchd]", cfg.Scopes)
	}
	if cfg.Ollama.Timeout != 90*time.Second {
		t.Errorf("Timeout = %v", cfg.Ollama.Timeout)
	}
}

func TestParseString_Errors(t *testing.T) {
	tests := []struct {
		name string
		code string
		want string
	}{
		{name: "missing table", code: `x = 1`, want: "missing or invalid 'gitai' table"},
		{name: "syntax error", code: `gitai = {`, want: "Lua error"},
		{name: "wrong type", code: `gitai = { model = 42 }`, want: "model: expected string"},
		{name: "nested wrong type", code: `gitai = { ollama = { url = true } }`, want: "ollama.url: expected string"},
		{name: "bad duration", code: `gitai = { ollama = { timeout = "soon" } }`, want: "ollama.timeout"},
		{name: "bad scopes", code: `gitai = { scopes = "api" }`, want: "scopes: expected list"},
		{name: "type entry not table", code: `gitai = { types = { "feat" } }`, want: "entries must be tables"},
		{name: "validation", code: `gitai = { subject_length = "huge" }`, want: "config validation failed"},
	}

	parser := NewParser(nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseString(context.Background(), tt.code)
			if err == nil {
				t.Fatal("expected error")
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected ParseError, got %T: %v", err, err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestParseString_Sandbox(t *testing.T) {
	blocked := []string{
		`os.execute("echo pwned")`,
		`io.open("/etc/passwd")`,
		`require("socket")`,
		`dofile("/tmp/x.lua")`,
		`loadstring("return 1")()`,
		`debug.getinfo(1)`,
		`setmetatable({}, {})`,
	}

	parser := NewParser(nil)
	for _, stmt := range blocked {
		t.Run(stmt, func(t *testing.T) {
			code := stmt + "\ngitai = { model = \"x\" }"
			if _, err := parser.ParseString(context.Background(), code); err == nil {
				t.Errorf("expected %q to fail in the sandbox", stmt)
			}
		})
	}
}

func TestParseString_SafeLibrariesAvailable(t *testing.T) {
	code := `
local parts = {}
for w in string.gmatch("a,b", "[^,]+") do table.insert(parts, string.upper(w)) end
gitai = { scopes = parts, diff = { max_length = math.floor(1500.7) } }
`
	cfg, err := NewParser(nil).ParseString(context.Background(), code)
	if err != nil {
		t.Fatalf("ParseString() error = %v", err)
	}
	if strings.Join(cfg.Scopes, ",") != "A,B" || cfg.Diff.MaxLength != 1500 {
		t.Errorf("got scopes %v, max_length %d", cfg.Scopes, cfg.Diff.MaxLength)
	}
}

func TestParseString_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewParser(nil).ParseString(ctx, `while true do end`)
	if err == nil {
		t.Fatal("expected infinite loop to be aborted")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline error, got %v", err)
	}
}

func TestParseString_TooLarge(t *testing.T) {
	code := "-- " + strings.Repeat("x", MaxConfigSize)
	_, err := NewParser(nil).ParseString(context.Background(), code)
	if err == nil || !strings.Contains(err.Error(), "too large") {
		t.Errorf("expected size error, got %v", err)
	}
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), LuaFileName)
	if err := os.WriteFile(path, []byte(`gitai = { language = "ja" }`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewParser(nil).ParseFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ParseFile() error = %v", err)
	}
	if cfg.Language != "ja" {
		t.Errorf("Language = %q", cfg.Language)
	}

	if _, err := NewParser(nil).ParseFile(context.Background(), path+".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestFormatError(t *testing.T) {
	err := &ParseError{Message: "Lua error", Detail: "line 1: boom\nstack traceback:\n\t[G]: ?"}

	short := FormatError(err, false)
	if strings.Contains(short, "stack traceback") {
		t.Errorf("non-verbose output should drop traceback: %q", short)
	}
	if short != "Lua error: line 1: boom" {
		t.Errorf("FormatError() = %q", short)
	}

	if verbose := FormatError(err, true); !strings.Contains(verbose, "stack traceback") {
		t.Errorf("verbose output should keep details: %q", verbose)
	}

	if got := FormatError(errors.New("plain"), false); got != "plain" {
		t.Errorf("FormatError(plain) = %q", got)
	}
}
