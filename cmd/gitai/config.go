package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/xyue92/gitai/internal/config"
)

type configOptions struct {
	init  bool
	show  bool
	path  bool
	force bool
}

func newConfigCmd(a *app) *cobra.Command {
	var opts configOptions

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage gitai configuration",
		Long: `View or initialize gitai configuration.

Configuration is read from the first of ./.gitcommit.yaml, ./.gitcommit.lua,
<repository root>/.gitcommit.yaml and ~/.gitcommit.yaml. GITAI_CONFIG names a
file explicitly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			switch {
			case opts.init:
				return initConfig(a, opts.force)
			case opts.show:
				return showConfig(cmd.Context(), a)
			case opts.path:
				return showConfigPath(a)
			}
			return cmd.Help()
		},
	}

	f := cmd.Flags()
	f.BoolVar(&opts.init, "init", false, "Create a default config file in the current directory")
	f.BoolVar(&opts.show, "show", false, "Show the effective configuration")
	f.BoolVar(&opts.path, "path", false, "Print the config file in use")
	f.BoolVar(&opts.force, "force", false, "Overwrite an existing file with --init")
	cmd.MarkFlagsMutuallyExclusive("init", "show", "path")

	return cmd
}

func initConfig(a *app, force bool) error {
	path := filepath.Join(a.dir(), config.FileName)
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}

	fmt.Fprintf(a.out, "✅ Created default configuration at: %s\n", path)
	fmt.Fprintln(a.out, "\nEdit this file to customize commit types, scopes, and AI model settings.")
	return nil
}

func showConfig(ctx context.Context, a *app) error {
	cfg, path, err := a.loader().Load(ctx)
	if err != nil {
		return err
	}

	out := a.out
	fmt.Fprintln(out, "Current Configuration:")
	fmt.Fprintln(out, "======================")
	if path == "" {
		fmt.Fprintln(out, "Source: built-in defaults")
	} else {
		fmt.Fprintf(out, "Source: %s\n", path)
	}
	fmt.Fprintf(out, "Model: %s\n", cfg.Model)
	fmt.Fprintf(out, "Language: %s\n", cfg.Language)
	fmt.Fprintf(out, "Template: %s\n", cfg.Template)
	fmt.Fprintf(out, "Ollama: %s\n", cfg.Ollama.URL)

	fmt.Fprintln(out, "\nCommit Types:")
	for _, t := range cfg.Types {
		fmt.Fprintf(out, "  %s %s - %s\n", t.Emoji, t.Name, t.Desc)
	}

	if len(cfg.Scopes) > 0 {
		fmt.Fprintln(out, "\nScopes:")
		for _, s := range cfg.Scopes {
			fmt.Fprintf(out, "  - %s\n", s)
		}
	}

	if a.verbose {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprintf(out, "\n%s", data)
	}
	return nil
}

func showConfigPath(a *app) error {
	path, err := a.loader().Find()
	if err != nil {
		return err
	}
	if path == "" {
		fmt.Fprintln(a.out, "(built-in defaults)")
		return nil
	}
	fmt.Fprintln(a.out, path)
	return nil
}
