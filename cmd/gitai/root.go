package main

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/xyue92/gitai/internal/config"
	"github.com/xyue92/gitai/internal/git"
	"github.com/xyue92/gitai/internal/logging"
	"github.com/xyue92/gitai/internal/ui"
)

// app carries the process environment shared by every command. Tests
// replace the streams, the environment and the working directory.
type app struct {
	out     io.Writer
	errOut  io.Writer
	in      io.Reader
	getenv  func(string) string
	workDir string

	verbose bool
	noColor bool

	logger    logging.Logger
	closeLog  func()
	newLogger func(w io.Writer, verbose bool) (logging.Logger, func())
}

func newApp() *app {
	return &app{
		out:    os.Stdout,
		errOut: os.Stderr,
		in:     os.Stdin,
		getenv: os.Getenv,
		logger: logging.Nop(),
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gitai",
		Short: "AI-powered Git commit message generator",
		Long: `GitAI is a CLI tool that uses local Ollama models to generate
intelligent, context-aware Git commit messages following Conventional Commits format.

Run "gitai commit" inside a repository with staged changes.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			newLogger := a.newLogger
			if newLogger == nil {
				newLogger = logging.New
			}
			a.logger, a.closeLog = newLogger(a.errOut, a.verbose)
		},
	}

	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetIn(a.in)
	root.SetVersionTemplate("gitai {{.Version}}\n")
	root.CompletionOptions.DisableDefaultCmd = true

	root.PersistentFlags().BoolVar(&a.verbose, "verbose", false, "Enable debug logging on stderr")
	root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable colored output")

	root.AddCommand(
		newCommitCmd(a),
		newConfigCmd(a),
		newStatsCmd(a),
		newUpdateCmd(a),
		newInstallCmd(a),
		newUninstallCmd(a),
		newFormulaCmd(a),
		newCaveatsCmd(a),
	)
	return root
}

// execute runs the command tree and flushes the logger afterwards, including
// when a command fails (cobra skips post-run hooks on error). Nil args means
// os.Args.
func execute(ctx context.Context, a *app, args []string) error {
	root := newRootCmd(a)
	if args != nil {
		root.SetArgs(args)
	}
	defer a.close()
	return root.ExecuteContext(ctx)
}

func (a *app) close() {
	if a.closeLog != nil {
		a.closeLog()
		a.closeLog = nil
	}
}

func (a *app) display() *ui.Display {
	return ui.NewDisplay(a.out, a.noColor)
}

func (a *app) dir() string {
	if a.workDir == "" {
		return "."
	}
	return a.workDir
}

func (a *app) gitClient() *git.Client {
	return git.NewClient(a.dir())
}

func (a *app) loader() *config.Loader {
	l := config.NewLoader(a.logger)
	l.WorkDir = a.workDir
	l.Getenv = a.getenv
	return l
}

func (a *app) loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, path, err := a.loader().Load(ctx)
	if err != nil {
		return nil, err
	}
	if path != "" {
		a.logger.Debug("loaded configuration", "path", path)
	}
	return cfg, nil
}
