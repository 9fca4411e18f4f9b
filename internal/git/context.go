package git

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

const (
	recentCommitCount = 5
	readmeSnippetLen  = 500
)

// ProjectContext describes the repository for the prompt.
type ProjectContext struct {
	ProjectName   string
	BranchName    string
	RecentCommits []string
	ChangedFiles  []string
	DiffStats     string
	ReadmeSnippet string
}

// ProjectContext gathers what is available. Individual lookups that fail
// leave their field empty; only a missing repository is an error.
func (c *Client) ProjectContext(ctx context.Context) (ProjectContext, error) {
	root, err := c.Root(ctx)
	if err != nil {
		return ProjectContext{}, err
	}

	pc := ProjectContext{ProjectName: filepath.Base(root)}
	if url, err := c.RemoteURL(ctx, "origin"); err == nil {
		if name := projectNameFromURL(url); name != "" {
			pc.ProjectName = name
		}
	}
	if branch, err := c.CurrentBranch(ctx); err == nil {
		pc.BranchName = branch
	}
	if subjects, err := c.RecentSubjects(ctx, recentCommitCount); err == nil {
		pc.RecentCommits = subjects
	}
	if files, err := c.ChangedFiles(ctx); err == nil {
		pc.ChangedFiles = files
	}
	if stat, err := c.DiffStat(ctx); err == nil {
		pc.DiffStats = stat
	}
	pc.ReadmeSnippet = readmeSnippet(root, readmeSnippetLen)

	return pc, nil
}

// projectNameFromURL handles https and scp-style remotes.
func projectNameFromURL(url string) string {
	url = strings.TrimRight(strings.TrimSpace(url), "/")
	if i := strings.LastIndexAny(url, "/:"); i >= 0 {
		url = url[i+1:]
	}
	return strings.TrimSuffix(url, ".git")
}

// readmeSnippet joins the first non-heading lines of the README up to max
// bytes.
func readmeSnippet(root string, max int) string {
	for _, name := range []string{"README.md", "README.MD", "readme.md", "Readme.md", "README"} {
		content, err := os.ReadFile(filepath.Join(root, name))
		if err != nil {
			continue
		}

		var kept []string
		size := 0
		for _, line := range strings.Split(string(content), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			kept = append(kept, line)
			size += len(line) + 1
			if size >= max {
				break
			}
		}

		snippet := strings.Join(kept, " ")
		if len(snippet) > max {
			snippet = truncateUTF8(snippet, max) + "..."
		}
		return snippet
	}
	return ""
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
