package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/xyue92/gitai/internal/testutil"
)

// isolateHome keeps the user's global git config out of tests and returns
// the temporary home directory.
func isolateHome(t *testing.T) string {
	t.Helper()
	return testutil.SetupTestEnv(t).Home
}

// newTestRepo initializes a repository with a local identity.
func newTestRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	isolateHome(t)

	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
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
	return dir, repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

// commitFile writes, stages and commits a file with a fixed author time.
func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content, msg string, when time.Time) {
	t.Helper()
	writeFile(t, dir, name, content)

	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
	sig := &object.Signature{Name: "Test User", Email: "test@example.com", When: when}
	if _, err := wt.Commit(msg, &gogit.CommitOptions{Author: sig, Committer: sig}); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func stageFile(t *testing.T, repo *gogit.Repository, dir, name, content string) {
	t.Helper()
	writeFile(t, dir, name, content)
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatalf("add %s: %v", name, err)
	}
}

func addRemote(t *testing.T, repo *gogit.Repository, name, url string) {
	t.Helper()
	if _, err := repo.CreateRemote(&config.RemoteConfig{Name: name, URLs: []string{url}}); err != nil {
		t.Fatalf("create remote: %v", err)
	}
}

// requireGit skips tests that shell out to the git binary.
func requireGit(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git binary not available")
	}
}
