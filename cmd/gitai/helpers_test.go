package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/xyue92/gitai/internal/logging"
	"github.com/xyue92/gitai/internal/testutil"
)

type testApp struct {
	*app
	out  *bytes.Buffer
	env  map[string]string
	home string
}

func newTestApp(t *testing.T, input string) *testApp {
	t.Helper()
	env := testutil.SetupTestEnv(t)

	ta := &testApp{out: &bytes.Buffer{}, env: map[string]string{}, home: env.Home}
	ta.app = &app{
		out:     ta.out,
		errOut:  &bytes.Buffer{},
		in:      strings.NewReader(input),
		workDir: t.TempDir(),
		logger:  logging.Nop(),
	}
	ta.getenv = func(k string) string {
		if v, ok := ta.env[k]; ok {
			return v
		}
		return os.Getenv(k)
	}
	return ta
}

func (ta *testApp) run(args ...string) error {
	if args == nil {
		args = []string{}
	}
	return execute(context.Background(), ta.app, args)
}

func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}

// initRepo turns the app's work dir into a repository with a local identity.
func initRepo(t *testing.T, ta *testApp) *gogit.Repository {
	t.Helper()
	repo, err := gogit.PlainInit(ta.workDir, false)
	if err != nil {
		t.Fatalf("init repo: %v", err)
	}
	cfg, err := repo.Config()
	if err != nil {
		t.Fatal(err)
	}
	cfg.User.Name = "Test User"
	cfg.User.Email = "test@example.com"
	if err := repo.Storer.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	return repo
}

func stage(t *testing.T, repo *gogit.Repository, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("stage %s: %v", name, err)
	}
}

func commit(t *testing.T, repo *gogit.Repository, dir, name, content, message string, when time.Time) {
	t.Helper()
	stage(t, repo, dir, name, content)
	wt, _ := repo.Worktree()
	sig := &object.Signature{Name: "Test User", Email: "test@example.com", When: when}
	if _, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func headMessage(t *testing.T, repo *gogit.Repository) string {
	t.Helper()
	ref, err := repo.Head()
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	c, err := repo.CommitObject(ref.Hash())
	if err != nil {
		t.Fatal(err)
	}
	return strings.TrimSpace(c.Message)
}

// fakeOllama answers /api/generate with replies in order, repeating the
// last one, and records the prompts it received.
type fakeOllama struct {
	mu      sync.Mutex
	replies []string
	prompts []string
}

func (f *fakeOllama) start(t *testing.T, ta *testApp) {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/generate" {
			http.NotFound(w, r)
			return
		}
		var req struct {
			Model  string `json:"model"`
			Prompt string `json:"prompt"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		f.mu.Lock()
		f.prompts = append(f.prompts, req.Prompt)
		i := len(f.prompts) - 1
		if i >= len(f.replies) {
			i = len(f.replies) - 1
		}
		reply := f.replies[i]
		f.mu.Unlock()

		json.NewEncoder(w).Encode(map[string]interface{}{
			"model":    req.Model,
			"response": reply,
			"done":     true,
		})
	}))
	t.Cleanup(server.Close)
	ta.env["OLLAMA_HOST"] = server.URL
}

func (f *fakeOllama) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}
