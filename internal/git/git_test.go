package git

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

var epoch = time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)

func TestClient_NotARepo(t *testing.T) {
	dir := t.TempDir()
	c := NewClient(dir)
	ctx := context.Background()

	if c.IsRepo(ctx) {
		t.Error("IsRepo() = true for plain directory")
	}
	if _, err := c.Root(ctx); !errors.Is(err, ErrNotAGitRepo) {
		t.Errorf("Root() error = %v, want ErrNotAGitRepo", err)
	}
	if _, err := c.Log(ctx, 5); !errors.Is(err, ErrNotAGitRepo) {
		t.Errorf("Log() error = %v, want ErrNotAGitRepo", err)
	}
}

func TestClient_CancelledContext(t *testing.T) {
	dir, _ := newTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(dir)
	if _, err := c.Root(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Root() error = %v, want context.Canceled", err)
	}
	if _, err := c.Commit(ctx, "feat: x"); !errors.Is(err, context.Canceled) {
		t.Errorf("Commit() error = %v, want context.Canceled", err)
	}
}

func TestClient_RootFromSubdirectory(t *testing.T) {
	dir, repo := newTestRepo(t)
	commitFile(t, repo, dir, "pkg/a.go", "package pkg\n", "feat: init", epoch)

	c := NewClient(filepath.Join(dir, "pkg"))
	if !c.IsRepo(context.Background()) {
		t.Fatal("IsRepo() = false inside work tree")
	}
	root, err := c.Root(context.Background())
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	want, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(root)
	if got != want {
		t.Errorf("Root() = %q, want %q", got, want)
	}
}

func TestClient_CurrentBranch(t *testing.T) {
	dir, repo := newTestRepo(t)
	c := NewClient(dir)

	branch, err := c.CurrentBranch(context.Background())
	if err != nil {
		t.Fatalf("CurrentBranch() on empty repo error = %v", err)
	}
	if branch != "master" {
		t.Errorf("CurrentBranch() = %q, want master", branch)
	}

	commitFile(t, repo, dir, "a.txt", "a", "chore: init", epoch)
	if branch, _ = c.CurrentBranch(context.Background()); branch != "master" {
		t.Errorf("CurrentBranch() after commit = %q", branch)
	}
}

func TestClient_LogAndSubjects(t *testing.T) {
	dir, repo := newTestRepo(t)
	c := NewClient(dir)

	entries, err := c.Log(context.Background(), 10)
	if err != nil {
		t.Fatalf("Log() on empty repo error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Log() on empty repo = %d entries", len(entries))
	}
	if _, err := c.LastCommit(context.Background()); !errors.Is(err, ErrNoCommits) {
		t.Errorf("LastCommit() error = %v, want ErrNoCommits", err)
	}

	commitFile(t, repo, dir, "a.txt", "1", "feat(api): add endpoint", epoch)
	commitFile(t, repo, dir, "a.txt", "2", "fix: handle nil\n\nLonger explanation.", epoch.Add(time.Hour))
	commitFile(t, repo, dir, "a.txt", "3", "docs: update readme", epoch.Add(2*time.Hour))

	entries, err = c.Log(context.Background(), 2)
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Log(2) returned %d entries", len(entries))
	}
	if entries[0].Subject != "docs: update readme" {
		t.Errorf("newest subject = %q", entries[0].Subject)
	}
	if entries[1].Subject != "fix: handle nil" || entries[1].Body != "Longer explanation." {
		t.Errorf("entry[1] = %+v", entries[1])
	}
	if entries[1].Author != "Test User" || entries[1].Email != "test@example.com" {
		t.Errorf("author = %q <%s>", entries[1].Author, entries[1].Email)
	}

	subjects, err := c.RecentSubjects(context.Background(), 5)
	if err != nil {
		t.Fatalf("RecentSubjects() error = %v", err)
	}
	want := []string{"docs: update readme", "fix: handle nil", "feat(api): add endpoint"}
	if strings.Join(subjects, "|") != strings.Join(want, "|") {
		t.Errorf("RecentSubjects() = %v, want %v", subjects, want)
	}

	last, err := c.LastCommit(context.Background())
	if err != nil {
		t.Fatalf("LastCommit() error = %v", err)
	}
	if last.Hash != entries[0].Hash {
		t.Errorf("LastCommit().Hash = %s, want %s", last.Hash, entries[0].Hash)
	}
	if last.String() != last.Hash+" docs: update readme" {
		t.Errorf("String() = %q", last.String())
	}
}

func TestClient_RemoteURL(t *testing.T) {
	dir, repo := newTestRepo(t)
	c := NewClient(dir)

	if _, err := c.RemoteURL(context.Background(), "origin"); !errors.Is(err, ErrNoRemote) {
		t.Errorf("RemoteURL() error = %v, want ErrNoRemote", err)
	}

	addRemote(t, repo, "origin", "git@github.com:xyue92/gitai.git")
	url, err := c.RemoteURL(context.Background(), "origin")
	if err != nil {
		t.Fatalf("RemoteURL() error = %v", err)
	}
	if url != "git@github.com:xyue92/gitai.git" {
		t.Errorf("RemoteURL() = %q", url)
	}
}

func TestClient_Commit(t *testing.T) {
	dir, repo := newTestRepo(t)
	c := NewClient(dir)
	ctx := context.Background()

	if _, err := c.Commit(ctx, "   "); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("Commit(blank) error = %v, want ErrEmptyMessage", err)
	}

	commitFile(t, repo, dir, "a.txt", "a", "chore: init", epoch)
	if _, err := c.Commit(ctx, "chore: nothing"); !errors.Is(err, ErrNothingToCommit) {
		t.Errorf("Commit() with clean index error = %v, want ErrNothingToCommit", err)
	}

	stageFile(t, repo, dir, "b.txt", "b")
	entry, err := c.Commit(ctx, "feat: add b\n\n- details")
	if err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	if entry.Subject != "feat: add b" || entry.Body != "- details" {
		t.Errorf("entry = %+v", entry)
	}
	if entry.Author != "Test User" {
		t.Errorf("Author = %q, want repo-local identity", entry.Author)
	}
}

func TestClient_DetectUser(t *testing.T) {
	dir, repo := newTestRepo(t)

	c := NewClient(dir)
	c.getenv = func(k string) string {
		return map[string]string{"GIT_AUTHOR_NAME": "Env Author", "GIT_AUTHOR_EMAIL": "env@example.com"}[k]
	}
	user, err := c.DetectUser(repo)
	if err != nil {
		t.Fatalf("DetectUser() error = %v", err)
	}
	if user.Name != "Env Author" || user.Source != "env" {
		t.Errorf("env identity not preferred: %+v", user)
	}

	c.getenv = func(string) string { return "" }
	user, err = c.DetectUser(repo)
	if err != nil {
		t.Fatalf("DetectUser() error = %v", err)
	}
	if user.Email != "test@example.com" || user.Source != "local" {
		t.Errorf("local identity = %+v", user)
	}

	cfg, _ := repo.Config()
	cfg.User.Name = ""
	cfg.User.Email = ""
	if err := repo.Storer.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if _, err := c.DetectUser(repo); !errors.Is(err, ErrIdentityNotFound) {
		t.Errorf("DetectUser() without identity error = %v, want ErrIdentityNotFound", err)
	}
}

func TestClient_DetectUser_Global(t *testing.T) {
	dir, repo := newTestRepo(t)
	home, _ := os.UserHomeDir()
	writeFile(t, home, ".gitconfig", "[user]\n\tname = Global User\n\temail = global@example.com\n")

	cfg, _ := repo.Config()
	cfg.User.Name = "Local Name"
	cfg.User.Email = ""
	if err := repo.Storer.SetConfig(cfg); err != nil {
		t.Fatal(err)
	}

	c := NewClient(dir)
	c.getenv = func(string) string { return "" }
	user, err := c.DetectUser(repo)
	if err != nil {
		t.Fatalf("DetectUser() error = %v", err)
	}
	if user.Name != "Local Name" || user.Email != "global@example.com" || user.Source != "global" {
		t.Errorf("DetectUser() = %+v", user)
	}
}
