package git

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FileChange is one line of `git diff --cached --numstat`. Binary files
// report -1 for both counts.
type FileChange struct {
	File      string
	Additions int
	Deletions int
}

// Binary reports whether git could not count lines for the file.
func (f FileChange) Binary() bool {
	return f.Additions < 0 && f.Deletions < 0
}

// run executes git in the client's directory and returns stdout.
func (c *Client) run(ctx context.Context, args ...string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	cmd := exec.CommandContext(ctx, "git", append([]string{"-C", c.path}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if strings.Contains(msg, "not a git repository") {
			return "", fmt.Errorf("%w: %s", ErrNotAGitRepo, c.path)
		}
		if msg != "" {
			return "", fmt.Errorf("git %s: %w: %s", args[0], err, msg)
		}
		return "", fmt.Errorf("git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}

// StagedDiff returns `git diff --cached`. An empty index yields
// ErrNoStagedChanges.
func (c *Client) StagedDiff(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "diff", "--cached", "--no-color", "--no-ext-diff")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrNoStagedChanges
	}
	return out, nil
}

// ChangedFiles lists the staged paths.
func (c *Client) ChangedFiles(ctx context.Context) ([]string, error) {
	out, err := c.run(ctx, "diff", "--cached", "--name-only")
	if err != nil {
		return nil, err
	}
	return splitLines(out), nil
}

// DiffStat returns `git diff --cached --stat`.
func (c *Client) DiffStat(ctx context.Context) (string, error) {
	out, err := c.run(ctx, "diff", "--cached", "--stat", "--no-color")
	if err != nil {
		return "", err
	}
	return strings.TrimRight(out, "\n"), nil
}

// NumStat returns per-file line counts of the staged changes.
func (c *Client) NumStat(ctx context.Context) ([]FileChange, error) {
	out, err := c.run(ctx, "diff", "--cached", "--numstat")
	if err != nil {
		return nil, err
	}
	return parseNumStat(out), nil
}

func parseNumStat(out string) []FileChange {
	changes := []FileChange{}
	for _, line := range splitLines(out) {
		parts := strings.SplitN(line, "\t", 3)
		if len(parts) < 3 {
			continue
		}
		changes = append(changes, FileChange{
			File:      parts[2],
			Additions: numstatCount(parts[0]),
			Deletions: numstatCount(parts[1]),
		})
	}
	return changes
}

func numstatCount(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return n
}

func splitLines(out string) []string {
	lines := []string{}
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		if line = strings.TrimRight(line, "\r"); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
