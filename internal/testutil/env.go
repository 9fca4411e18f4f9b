// Package testutil isolates gitai tests from the developer's machine.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env describes the isolated directories created by SetupTestEnv.
type Env struct {
	Root   string
	Home   string
	Prefix string
	Cache  string
}

// SetupTestEnv points HOME, the XDG directories and every gitai, git and
// Ollama environment variable at a fresh temp directory. This keeps tests
// from reading the user's ~/.gitcommit.yaml or global git identity.
//
// Cleanup is handled by t.TempDir and t.Setenv.
func SetupTestEnv(t *testing.T) Env {
	t.Helper()

	root := t.TempDir()
	env := Env{
		Root:   root,
		Home:   filepath.Join(root, "home"),
		Prefix: filepath.Join(root, "prefix"),
		Cache:  filepath.Join(root, "cache"),
	}

	for _, dir := range []string{env.Home, env.Prefix, env.Cache} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}

	t.Setenv("HOME", env.Home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(env.Home, ".config"))
	t.Setenv("XDG_CACHE_HOME", env.Cache)

	t.Setenv("GITAI_CONFIG", "")
	t.Setenv("GITAI_PREFIX", env.Prefix)
	t.Setenv("OLLAMA_HOST", "")

	// git must not pick up system or user identity
	t.Setenv("GIT_CONFIG_NOSYSTEM", "1")
	t.Setenv("GIT_CONFIG_GLOBAL", filepath.Join(env.Home, ".gitconfig"))
	t.Setenv("GIT_AUTHOR_NAME", "")
	t.Setenv("GIT_AUTHOR_EMAIL", "")

	return env
}
