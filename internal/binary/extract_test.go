package binary

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExtractor_RawFile(t *testing.T) {
	dir := t.TempDir()
	src := writeFile(t, dir, "gitai-darwin-arm64", []byte("#!/bin/sh\necho gitai\n"))
	dest := filepath.Join(dir, "bin", "gitai")

	if err := NewExtractor("gitai").Extract(src, dest); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "#!/bin/sh\necho gitai\n" {
		t.Errorf("content = %q", got)
	}
	assertExecutable(t, dest)
}

func TestExtractor_TarGz(t *testing.T) {
	tests := []struct {
		name     string
		members  []tarMember
		wantBody string
		wantErr  bool
	}{
		{
			name: "platform named member",
			members: []tarMember{
				{name: "README.md", body: "docs"},
				{name: "dist/", dir: true},
				{name: "dist/gitai-linux-amd64", body: "ELF"},
			},
			wantBody: "ELF",
		},
		{
			name:     "plain name",
			members:  []tarMember{{name: "gitai", body: "MACHO"}},
			wantBody: "MACHO",
		},
		{
			name:     "first match wins",
			members:  []tarMember{{name: "gitai-a", body: "first"}, {name: "gitai-b", body: "second"}},
			wantBody: "first",
		},
		{
			name:    "no match",
			members: []tarMember{{name: "other-tool", body: "x"}},
			wantErr: true,
		},
		{
			name:    "path traversal",
			members: []tarMember{{name: "../../gitai-linux-amd64", body: "evil"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := writeFile(t, dir, "gitai.tar.gz", makeTarGz(t, tt.members))
			dest := filepath.Join(dir, "out", "gitai")

			err := NewExtractor("gitai").Extract(src, dest)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("Extract() error = %v", err)
			}

			got, _ := os.ReadFile(dest)
			if string(got) != tt.wantBody {
				t.Errorf("content = %q, want %q", got, tt.wantBody)
			}
			assertExecutable(t, dest)
		})
	}
}

func TestExtractor_MatchMember(t *testing.T) {
	e := NewExtractor("gitai")
	tests := map[string]bool{
		"gitai":                    true,
		"gitai-linux-arm64":        true,
		"bin/gitai-darwin-amd64":   true,
		"gitaix":                   false,
		"not-gitai-linux-arm64":    false,
		"gitai-linux-arm64/README": false,
	}
	for name, want := range tests {
		if got := e.MatchMember(name); got != want {
			t.Errorf("MatchMember(%q) = %v, want %v", name, got, want)
		}
	}
}

func assertExecutable(t *testing.T, path string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0755 {
		t.Errorf("mode = %v, want 0755", info.Mode().Perm())
	}
}
