// Package git reads repository state for commit message generation and
// creates the resulting commit.
package git

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
)

// Common Git errors
var (
	ErrNotAGitRepo      = errors.New("not a git repository")
	ErrNothingToCommit  = errors.New("nothing to commit")
	ErrEmptyMessage     = errors.New("commit message cannot be empty")
	ErrNoCommits        = errors.New("repository has no commits")
	ErrNoRemote         = errors.New("remote not found")
	ErrNoStagedChanges  = errors.New("no staged changes found")
	ErrIdentityNotFound = errors.New("git author identity not configured")
)

// LogEntry is one commit from history.
type LogEntry struct {
	Hash    string
	Author  string
	Email   string
	When    time.Time
	Subject string
	Body    string
}

// Client reads and writes a single repository. The path may be any
// directory inside the work tree.
type Client struct {
	path string
	// getenv is swapped in tests.
	getenv func(string) string
}

// NewClient creates a new Git client for the given path.
func NewClient(path string) *Client {
	return &Client{path: path}
}

func (c *Client) open(ctx context.Context) (*gogit.Repository, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := gogit.PlainOpenWithOptions(c.path, &gogit.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: %s", ErrNotAGitRepo, c.path)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return repo, nil
}

// IsRepo reports whether the path is inside a git work tree.
func (c *Client) IsRepo(ctx context.Context) bool {
	_, err := c.open(ctx)
	return err == nil
}

// Root returns the top-level directory of the work tree.
func (c *Client) Root(ctx context.Context) (string, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return "", err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("get worktree: %w", err)
	}
	return wt.Filesystem.Root(), nil
}

// CurrentBranch returns the checked-out branch name. It works on a fresh
// repository with no commits and returns "" when HEAD is detached.
func (c *Client) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return "", err
	}

	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), nil
	}
	return "", nil
}

// RemoteURL returns the first URL of the named remote.
func (c *Client) RemoteURL(ctx context.Context, name string) (string, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return "", err
	}

	remote, err := repo.Remote(name)
	if errors.Is(err, gogit.ErrRemoteNotFound) {
		return "", fmt.Errorf("%w: %s", ErrNoRemote, name)
	}
	if err != nil {
		return "", fmt.Errorf("read remote %s: %w", name, err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("%w: %s has no URL", ErrNoRemote, name)
	}
	return urls[0], nil
}

// Log returns up to n commits reachable from HEAD, newest first.
// A repository without commits yields an empty slice.
func (c *Client) Log(ctx context.Context, n int) ([]LogEntry, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return nil, err
	}

	iter, err := repo.Log(&gogit.LogOptions{Order: gogit.LogOrderCommitterTime})
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return []LogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	entries := make([]LogEntry, 0, n)
	err = iter.ForEach(func(commit *object.Commit) error {
		if n > 0 && len(entries) >= n {
			return storer.ErrStop
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		entries = append(entries, toLogEntry(commit))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk log: %w", err)
	}
	return entries, nil
}

// RecentSubjects returns the subjects of the last n commits.
func (c *Client) RecentSubjects(ctx context.Context, n int) ([]string, error) {
	entries, err := c.Log(ctx, n)
	if err != nil {
		return nil, err
	}
	subjects := make([]string, 0, len(entries))
	for _, e := range entries {
		subjects = append(subjects, e.Subject)
	}
	return subjects, nil
}

// LastCommit returns HEAD.
func (c *Client) LastCommit(ctx context.Context) (LogEntry, error) {
	repo, err := c.open(ctx)
	if err != nil {
		return LogEntry{}, err
	}

	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		return LogEntry{}, ErrNoCommits
	}
	if err != nil {
		return LogEntry{}, fmt.Errorf("get HEAD: %w", err)
	}

	commit, err := repo.CommitObject(ref.Hash())
	if err != nil {
		return LogEntry{}, fmt.Errorf("read HEAD commit: %w", err)
	}
	return toLogEntry(commit), nil
}

// Commit records the staged index with message. The author comes from
// GIT_AUTHOR_NAME/GIT_AUTHOR_EMAIL, then the repository config, then the
// global config.
func (c *Client) Commit(ctx context.Context, message string) (LogEntry, error) {
	if strings.TrimSpace(message) == "" {
		return LogEntry{}, ErrEmptyMessage
	}

	repo, err := c.open(ctx)
	if err != nil {
		return LogEntry{}, err
	}

	sig, err := c.signature(repo)
	if err != nil {
		return LogEntry{}, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return LogEntry{}, fmt.Errorf("get worktree: %w", err)
	}

	hash, err := wt.Commit(message, &gogit.CommitOptions{Author: sig, Committer: sig})
	if errors.Is(err, gogit.ErrEmptyCommit) {
		return LogEntry{}, ErrNothingToCommit
	}
	if err != nil {
		return LogEntry{}, fmt.Errorf("create commit: %w", err)
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return LogEntry{}, fmt.Errorf("read new commit: %w", err)
	}
	return toLogEntry(commit), nil
}

func toLogEntry(commit *object.Commit) LogEntry {
	subject, body, _ := strings.Cut(strings.TrimRight(commit.Message, "\n"), "\n")
	return LogEntry{
		Hash:    commit.Hash.String(),
		Author:  commit.Author.Name,
		Email:   commit.Author.Email,
		When:    commit.Author.When,
		Subject: strings.TrimSpace(subject),
		Body:    strings.TrimSpace(body),
	}
}

// String renders the entry like `git log --pretty="%H %s"`.
func (e LogEntry) String() string {
	return e.Hash + " " + e.Subject
}
