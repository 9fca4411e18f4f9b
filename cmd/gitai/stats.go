package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/xyue92/gitai/internal/git"
)

type statsOptions struct {
	limit  int
	export string
}

func newStatsCmd(a *app) *cobra.Command {
	var opts statsOptions

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show commit history statistics and patterns",
		Long: `Analyze your commit history and display statistics including:
- Commit type distribution (feat, fix, docs, etc.)
- Scope usage patterns
- Common action verbs
- Language distribution
- Time and day patterns
- Recent activity trends
- Top contributors

This helps you understand your team's commit patterns and improve consistency.`,
		Example: `  # Show stats for last 100 commits
  gitai stats

  # Analyze last 500 commits
  gitai stats --limit 500

  # Export stats to JSON
  gitai stats --export stats.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := a.gitClient()
			if !client.IsRepo(ctx) {
				return git.ErrNotAGitRepo
			}
			if opts.limit <= 0 {
				return fmt.Errorf("--limit must be positive, got %d", opts.limit)
			}

			fmt.Fprintf(a.out, "🔍 Analyzing last %d commits...\n\n", opts.limit)

			entries, err := client.Log(ctx, opts.limit)
			if err != nil {
				return fmt.Errorf("failed to analyze commits: %w", err)
			}
			stats := git.AnalyzeHistory(entries, time.Now())
			if stats.TotalCommits == 0 {
				fmt.Fprintln(a.out, "No commits found in the repository.")
				return nil
			}

			fmt.Fprintln(a.out, git.FormatStatsReport(stats))
			printPatterns(a.out, git.TopPatterns(stats, 3))

			if opts.export != "" {
				if err := exportStats(stats, opts.export); err != nil {
					return fmt.Errorf("failed to export stats: %w", err)
				}
				fmt.Fprintf(a.out, "✅ Statistics exported to %s\n\n", opts.export)
			}

			printInsights(a.out, stats)
			return nil
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 100, "Number of commits to analyze")
	cmd.Flags().StringVarP(&opts.export, "export", "e", "", "Export statistics to JSON file")
	return cmd
}

func printPatterns(w io.Writer, patterns []git.CommitPattern) {
	if len(patterns) == 0 {
		return
	}
	fmt.Fprintln(w, "💡 Your Top Commit Patterns:")
	for i, p := range patterns {
		fmt.Fprintf(w, "  %d. %s", i+1, p.Type)
		if p.Scope != "" {
			fmt.Fprintf(w, "(%s)", p.Scope)
		}
		fmt.Fprintf(w, " - used %d times\n", p.Frequency)
	}
	fmt.Fprintln(w)
}

// insights returns advice derived from stats, as pairs of finding and hint.
func insights(stats *git.CommitStats) [][2]string {
	var out [][2]string
	if stats.TotalCommits == 0 {
		return out
	}

	switch {
	case stats.AverageLength > 72:
		out = append(out, [2]string{"⚠️  Your average subject line is quite long (>72 chars)", "Consider using shorter, more concise subjects"})
	case stats.AverageLength < 30:
		out = append(out, [2]string{"ℹ️  Your subject lines are very brief (<30 chars)", "Consider adding more context when helpful"})
	}

	if pct(stats.WithScope, stats.TotalCommits) < 20 {
		out = append(out, [2]string{"💡 You rarely use scopes in commits (<20%)", "Scopes help organize changes by component/module"})
	}
	if pct(stats.WithBody, stats.TotalCommits) < 10 {
		out = append(out, [2]string{"💡 Most commits have no body (<10%)", "Consider adding details for non-trivial changes"})
	}

	if t := stats.RecentTrends; t != nil {
		switch {
		case t.AveragePerDay > 10:
			out = append(out, [2]string{"🔥 Very high commit frequency (>10/day avg)", "Great activity! Consider squashing related commits"})
		case t.AveragePerDay < 1:
			out = append(out, [2]string{"📉 Low commit frequency (<1/day avg)", "Consider committing more frequently"})
		}
	}

	if len(stats.TypeDistribution) < 3 {
		out = append(out, [2]string{"ℹ️  Limited commit type variety", "Explore other types: docs, test, refactor, perf, etc."})
	}
	return out
}

func printInsights(w io.Writer, stats *git.CommitStats) {
	fmt.Fprintln(w, "💭 Insights & Recommendations:")
	for _, in := range insights(stats) {
		fmt.Fprintf(w, "  %s\n     %s\n", in[0], in[1])
	}
	fmt.Fprintln(w)
}

func pct(n, total int) float64 {
	return float64(n) / float64(total) * 100
}

func exportStats(stats *git.CommitStats, path string) error {
	data, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}
