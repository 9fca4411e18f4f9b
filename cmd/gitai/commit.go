package main

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xyue92/gitai/internal/ai"
	"github.com/xyue92/gitai/internal/config"
	"github.com/xyue92/gitai/internal/git"
	"github.com/xyue92/gitai/internal/ui"
)

// ErrSecretsDetected stops a commit whose diff looks like it adds credentials.
var ErrSecretsDetected = errors.New("possible secrets in staged changes")

type commitOptions struct {
	commitType   string
	scope        string
	ticket       string
	model        string
	detailed     bool
	dryRun       bool
	yes          bool
	copy         bool
	regenerate   int
	allowSecrets bool
}

func newCommitCmd(a *app) *cobra.Command {
	var opts commitOptions

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Generate a commit message for staged changes and commit",
		Long: `Generate a Conventional Commits message for the staged changes using a
local Ollama model, review it, and create the commit.`,
		Example: `  gitai commit
  gitai commit --type fix --scope auth
  gitai commit --detailed --dry-run
  gitai commit --yes --type chore`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCommit(cmd.Context(), a, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.commitType, "type", "t", "", "Commit type (feat, fix, docs, ...)")
	f.StringVarP(&opts.scope, "scope", "s", "", "Commit scope")
	f.StringVar(&opts.ticket, "ticket", "", "Ticket reference; defaults to the one in the branch name")
	f.StringVarP(&opts.model, "model", "m", "", "Ollama model to use")
	f.BoolVarP(&opts.detailed, "detailed", "d", false, "Generate a body with bullet points")
	f.BoolVar(&opts.dryRun, "dry-run", false, "Show the message without committing")
	f.BoolVarP(&opts.yes, "yes", "y", false, "Accept the generated message without prompting")
	f.BoolVar(&opts.copy, "copy", false, "Copy the message to the clipboard")
	f.IntVar(&opts.regenerate, "regenerate", 0, "Start at regeneration attempt N for a different wording")
	f.BoolVar(&opts.allowSecrets, "allow-secrets", false, "Commit even if the diff looks like it contains secrets")

	return cmd
}

func runCommit(ctx context.Context, a *app, opts commitOptions) error {
	d := a.display()
	prompter := ui.NewPrompter(d, a.in)
	client := a.gitClient()

	if !client.IsRepo(ctx) {
		return git.ErrNotAGitRepo
	}

	cfg, err := a.loadConfig(ctx)
	if err != nil {
		return err
	}

	diff, err := client.StagedDiff(ctx)
	if errors.Is(err, git.ErrNoStagedChanges) {
		return fmt.Errorf("%w: stage files with 'git add' first", err)
	}
	if err != nil {
		return err
	}

	d.Header()
	if opts.dryRun {
		d.DryRun()
	}

	changes, err := client.NumStat(ctx)
	if err != nil {
		a.logger.Warn("read numstat", "error", err)
	}
	d.ChangedFiles(changes)

	if findings := git.ScanSecrets(diff); len(findings) > 0 && !opts.allowSecrets {
		d.Warning(git.FormatSecretWarning(findings))
		if opts.yes {
			return fmt.Errorf("%w: rerun with --allow-secrets to commit anyway", ErrSecretsDetected)
		}
		ok, err := prompter.Confirm("Continue anyway?", false)
		if err != nil {
			return err
		}
		if !ok {
			return ErrSecretsDetected
		}
	}

	analysis := git.AnalyzeDiff(diff, cfg.Diff.MaxLength)
	a.logger.Debug("analyzed diff",
		"files", len(analysis.Files),
		"additions", analysis.TotalAdditions,
		"deletions", analysis.TotalDeletions,
		"complexity", analysis.Complexity)

	commitType, err := chooseType(cfg, opts, analysis, prompter)
	if err != nil {
		return err
	}
	scope := opts.scope
	if scope == "" && !opts.yes && len(cfg.Scopes) > 0 {
		if scope, err = chooseScope(cfg, prompter); err != nil {
			return err
		}
	}

	pctx, err := client.ProjectContext(ctx)
	if err != nil {
		a.logger.Warn("collect project context", "error", err)
	}

	ticket := opts.ticket
	if ticket == "" && cfg.Ticket.Enabled {
		ticket = git.ExtractTicketFromBranch(pctx.BranchName, cfg.Ticket.Pattern)
		if ticket != "" && cfg.Ticket.Prefix != "" {
			ticket = git.FormatTicketNumber(ticket, cfg.Ticket.Prefix)
		}
	}

	model := opts.model
	if model == "" {
		model = cfg.Model
	}

	pb := ai.NewPromptBuilder()
	pb.CommitType = commitType
	pb.Scope = scope
	pb.Diff = analysis.SmartDiff
	pb.Context = pctx
	pb.Language = cfg.Language
	pb.Detailed = opts.detailed || cfg.Detailed
	pb.CustomPrompt = cfg.CustomPrompt
	pb.Ticket = ticket
	pb.SubjectLength = cfg.SubjectLength
	pb.Regenerate = opts.regenerate

	gen := &generator{
		client: ai.NewOllamaClient(cfg.Ollama.URL, cfg.Ollama.Timeout, a.logger),
		model:  model,
		prompt: pb,
		clean: ai.CleanOptions{
			Type:       commitType,
			Scope:      scope,
			Ticket:     ticket,
			Detailed:   pb.Detailed,
			MaxSubject: pb.SubjectLimit(),
		},
	}

	d.Generating(model)
	message, err := gen.next(ctx)
	if err != nil {
		return err
	}

	for {
		d.CommitMessage(message)

		if opts.dryRun {
			if opts.copy {
				copyMessage(d, message)
			}
			return nil
		}

		action := ui.ActionAccept
		if !opts.yes {
			if action, err = prompter.ChooseAction(); err != nil {
				return err
			}
		}

		switch action {
		case ui.ActionAccept:
			entry, err := client.Commit(ctx, message)
			if err != nil {
				return err
			}
			d.CommitSuccess(entry, changedPaths(changes))
			if opts.copy {
				copyMessage(d, message)
			}
			return nil

		case ui.ActionEdit:
			if message, err = prompter.EditMessage(message); err != nil {
				return err
			}

		case ui.ActionRegenerate:
			gen.prompt.Regenerate++
			d.Generating(model)
			if message, err = gen.next(ctx); err != nil {
				return err
			}

		case ui.ActionCopy:
			copyMessage(d, message)
			return nil

		case ui.ActionCancel:
			d.Info("Commit cancelled")
			return nil
		}
	}
}

// generator produces cleaned messages, one per attempt.
type generator struct {
	client *ai.OllamaClient
	model  string
	prompt *ai.PromptBuilder
	clean  ai.CleanOptions
}

func (g *generator) next(ctx context.Context) (string, error) {
	var opts *ai.GenerateOptions
	if g.prompt.Regenerate > 0 {
		// vary sampling so a regeneration does not repeat itself
		opts = &ai.GenerateOptions{Temperature: 0.9, Seed: g.prompt.Regenerate}
	}

	raw, err := g.client.Generate(ctx, g.model, g.prompt.Build(), opts)
	if err != nil {
		return "", fmt.Errorf("generate commit message: %w", err)
	}

	message := ai.CleanMessage(raw, g.clean)
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("generate commit message: model %s returned an empty response", g.model)
	}
	return message, nil
}

func chooseType(cfg *config.Config, opts commitOptions, analysis *git.DiffAnalysis, p *ui.Prompter) (string, error) {
	if opts.commitType != "" {
		if cfg.GetTypeByName(opts.commitType) == nil {
			return "", fmt.Errorf("unknown commit type %q (available: %s)",
				opts.commitType, strings.Join(cfg.TypeNames(), ", "))
		}
		return opts.commitType, nil
	}

	suggested := suggestType(analysis)
	if cfg.GetTypeByName(suggested) == nil && len(cfg.Types) > 0 {
		suggested = cfg.Types[0].Name
	}
	if opts.yes {
		return suggested, nil
	}

	options := make([]ui.Option, 0, len(cfg.Types))
	for _, t := range cfg.Types {
		desc := t.Desc
		if t.Emoji != "" {
			desc = t.Emoji + " " + desc
		}
		options = append(options, ui.Option{Value: t.Name, Description: desc})
	}
	return p.Select("Select commit type:", options, suggested)
}

func chooseScope(cfg *config.Config, p *ui.Prompter) (string, error) {
	const none = "none"
	options := []ui.Option{{Value: none, Description: "no scope"}}
	for _, s := range cfg.Scopes {
		options = append(options, ui.Option{Value: s})
	}
	scope, err := p.Select("Select scope:", options, none)
	if err != nil || scope == none {
		return "", err
	}
	return scope, nil
}

// suggestType guesses a commit type from which kinds of files changed.
func suggestType(analysis *git.DiffAnalysis) string {
	if analysis == nil || len(analysis.Files) == 0 {
		return "feat"
	}

	var tests, docs, configs, added int
	for _, f := range analysis.Files {
		switch {
		case f.IsTestFile:
			tests++
		case isDocFile(f.Path):
			docs++
		case f.IsConfigFile:
			configs++
		}
		if f.Status == git.StatusAdded {
			added++
		}
	}

	n := len(analysis.Files)
	switch {
	case tests == n:
		return "test"
	case docs == n:
		return "docs"
	case configs == n:
		return "chore"
	case added > 0:
		return "feat"
	case analysis.TotalDeletions > analysis.TotalAdditions:
		return "refactor"
	}
	return "fix"
}

func isDocFile(p string) bool {
	switch strings.ToLower(path.Ext(p)) {
	case ".md", ".rst", ".txt", ".adoc":
		return true
	}
	return strings.HasPrefix(p, "docs/")
}

func changedPaths(changes []git.FileChange) []string {
	paths := make([]string, len(changes))
	for i, c := range changes {
		paths[i] = c.File
	}
	return paths
}

func copyMessage(d *ui.Display, message string) {
	if err := ui.CopyToClipboard(message); err != nil {
		d.Warning(err.Error())
		return
	}
	d.Success("Commit message copied to clipboard")
}
