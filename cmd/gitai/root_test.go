package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xyue92/gitai/internal/logging"
	"github.com/xyue92/gitai/internal/release"
)

func TestRoot_Help(t *testing.T) {
	ta := newTestApp(t, "")
	if err := ta.run("--help"); err != nil {
		t.Fatalf("--help error = %v", err)
	}
	out := ta.out.String()
	for _, want := range []string{"gitai", "commit", "install", "formula"} {
		if !strings.Contains(out, want) {
			t.Errorf("help missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "completion") {
		t.Error("completion command should be disabled")
	}
}

func TestRoot_Version(t *testing.T) {
	ta := newTestApp(t, "")
	if err := ta.run("--version"); err != nil {
		t.Fatal(err)
	}
	if got := ta.out.String(); got != "gitai "+Version+"\n" {
		t.Errorf("version output = %q", got)
	}
}

func TestRoot_UnknownCommand(t *testing.T) {
	ta := newTestApp(t, "")
	if err := ta.run("frobnicate"); err == nil {
		t.Error("expected error for unknown command")
	}
}

func TestRoot_LoggerClosedAfterFailure(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr bool
	}{
		{"success", []string{"caveats"}, false},
		{"failing command", []string{"commit"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := newTestApp(t, "")
			closed := 0
			ta.newLogger = func(io.Writer, bool) (logging.Logger, func()) {
				return logging.Nop(), func() { closed++ }
			}

			err := ta.run(tt.args...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("run(%v) error = %v, wantErr %v", tt.args, err, tt.wantErr)
			}
			if closed != 1 {
				t.Errorf("logger closed %d times, want 1", closed)
			}
		})
	}
}

func TestCaveats(t *testing.T) {
	ta := newTestApp(t, "")
	if err := ta.run("caveats"); err != nil {
		t.Fatal(err)
	}
	if ta.out.String() != release.Caveats {
		t.Errorf("caveats = %q", ta.out.String())
	}
}

func TestFormula(t *testing.T) {
	t.Run("stdout", func(t *testing.T) {
		ta := newTestApp(t, "")
		if err := ta.run("formula"); err != nil {
			t.Fatal(err)
		}
		out := ta.out.String()
		if !strings.HasPrefix(out, "class Gitai < Formula") {
			t.Errorf("formula = %q", out)
		}
		if !strings.Contains(out, `depends_on "ollama"`) {
			t.Errorf("formula missing ollama dependency:\n%s", out)
		}
	})

	t.Run("file with manifest", func(t *testing.T) {
		ta := newTestApp(t, "")
		dir := t.TempDir()
		manifest := filepath.Join(dir, "release.yaml")
		if err := os.WriteFile(manifest, []byte("version: 1.4.0\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		out := filepath.Join(dir, "gitai.rb")

		if err := ta.run("formula", "--manifest", manifest, "-o", out); err != nil {
			t.Fatal(err)
		}
		data, err := os.ReadFile(out)
		if err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(string(data), "/download/v1.4.0/gitai-darwin-arm64") {
			t.Errorf("formula not retargeted:\n%s", data)
		}
	})

	t.Run("bad manifest", func(t *testing.T) {
		ta := newTestApp(t, "")
		if err := ta.run("formula", "--manifest", filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Error("expected error for missing manifest")
		}
	})
}
