package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xyue92/gitai/internal/binary"
	"github.com/xyue92/gitai/internal/platform"
	"github.com/xyue92/gitai/internal/release"
)

// EnvPrefix overrides the default install prefix.
const EnvPrefix = "GITAI_PREFIX"

type installOptions struct {
	prefix          string
	manifest        string
	keyring         string
	checksumsURL    string
	signatureURL    string
	platform        string
	allowUnverified bool
	skipTest        bool
}

func newInstallCmd(a *app) *cobra.Command {
	var opts installOptions

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the gitai release binary for this machine",
		Long: `Download the prebuilt gitai binary matching this machine's operating
system and architecture, verify it, and install it into <prefix>/bin.

The release is described by a manifest (the built-in one by default). An
existing binary is replaced atomically and restored if any step fails.`,
		Example: `  gitai install --prefix ~/.local
  gitai install --manifest release.yaml --skip-test`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := a.display()

			manifest, err := loadManifest(opts.manifest)
			if err != nil {
				return err
			}

			cfg, err := a.loadConfig(ctx)
			if err != nil {
				return err
			}
			keyring := opts.keyring
			if keyring == "" {
				keyring = cfg.Install.Keyring
			}

			mgr, err := newManager(a, installPrefix(a, opts.prefix, cfg.Install.Prefix), keyring, opts.platform)
			if err != nil {
				return err
			}

			if n, err := mgr.Recover(ctx); err != nil {
				d.Warning(fmt.Sprintf("Could not recover an interrupted install: %v", err))
			} else if n > 0 {
				d.Info(fmt.Sprintf("Restored %d interrupted install(s)", n))
			}

			d.Info(fmt.Sprintf("Installing %s %s to %s", manifest.Name, manifest.Version, mgr.Target()))
			res, err := mgr.Install(ctx, binary.InstallOptions{
				Manifest:        manifest,
				ChecksumsURL:    opts.checksumsURL,
				SignatureURL:    opts.signatureURL,
				AllowUnverified: opts.allowUnverified,
			})
			if err != nil {
				return err
			}

			verified := make([]string, len(res.Verified.Methods))
			for i, m := range res.Verified.Methods {
				verified[i] = m.String()
			}
			d.Success(fmt.Sprintf("Installed %s (%s, verified: %s)",
				res.Target, res.Receipt.Platform, strings.Join(verified, ", ")))

			switch {
			case opts.skipTest:
			case foreignPlatform(opts.platform):
				d.Info(fmt.Sprintf("Skipping self-test: %s binaries do not run on this machine", opts.platform))
			default:
				if err := mgr.SelfTest(ctx, manifest); err != nil {
					return err
				}
				d.Success("Self-test passed")
			}

			for _, dep := range mgr.CheckDependencies(manifest) {
				d.Warning(fmt.Sprintf("Runtime dependency %q was not found on PATH", dep))
			}

			fmt.Fprintln(a.out)
			fmt.Fprint(a.out, manifest.Caveats)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.prefix, "prefix", "", "Install prefix (default $GITAI_PREFIX or /usr/local)")
	f.StringVar(&opts.manifest, "manifest", "", "Release manifest YAML (default: built-in)")
	f.StringVar(&opts.keyring, "keyring", "", "OpenPGP public keyring for signature checks")
	f.StringVar(&opts.checksumsURL, "checksums-url", "", "checksums.txt to verify against")
	f.StringVar(&opts.signatureURL, "signature-url", "", "Detached signature of the artifact")
	f.StringVar(&opts.platform, "platform", "", "Install for os/arch instead of this machine")
	f.BoolVar(&opts.allowUnverified, "allow-unverified", false, "Install even if no checksum or signature is available")
	f.BoolVar(&opts.skipTest, "skip-test", false, "Skip the post-install self-test")

	return cmd
}

func newUninstallCmd(a *app) *cobra.Command {
	var prefix string

	cmd := &cobra.Command{
		Use:   "uninstall",
		Short: "Remove a gitai binary installed with 'gitai install'",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := a.loadConfig(ctx)
			if err != nil {
				return err
			}

			mgr, err := newManager(a, installPrefix(a, prefix, cfg.Install.Prefix), "", "")
			if err != nil {
				return err
			}
			if err := mgr.Uninstall(ctx); err != nil {
				if errors.Is(err, binary.ErrNotInstalled) {
					return fmt.Errorf("%w at %s", err, mgr.Target())
				}
				return err
			}
			a.display().Success(fmt.Sprintf("Removed %s", mgr.Target()))
			return nil
		},
	}

	cmd.Flags().StringVar(&prefix, "prefix", "", "Install prefix (default $GITAI_PREFIX or /usr/local)")
	return cmd
}

func newFormulaCmd(a *app) *cobra.Command {
	var manifestPath, output string

	cmd := &cobra.Command{
		Use:   "formula",
		Short: "Render the Homebrew formula for a release",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manifest, err := loadManifest(manifestPath)
			if err != nil {
				return err
			}

			if output == "" || output == "-" {
				return manifest.RenderFormula(a.out)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create formula: %w", err)
			}
			if err := manifest.RenderFormula(f); err != nil {
				f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("write formula: %w", err)
			}
			a.display().Success(fmt.Sprintf("Wrote %s", output))
			return nil
		},
	}

	cmd.Flags().StringVar(&manifestPath, "manifest", "", "Release manifest YAML (default: built-in)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func newCaveatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "caveats",
		Short: "Show post-install instructions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprint(a.out, release.Caveats)
			return nil
		},
	}
}

func loadManifest(path string) (*release.Manifest, error) {
	if path == "" {
		return release.Default(), nil
	}
	return release.Load(path)
}

// installPrefix picks the flag, then $GITAI_PREFIX, then the config file,
// then /usr/local.
func installPrefix(a *app, flag, configured string) string {
	for _, p := range []string{flag, a.getenv(EnvPrefix), configured} {
		if p != "" {
			return expandHome(p)
		}
	}
	return "/usr/local"
}

func expandHome(p string) string {
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	return p
}

// foreignPlatform reports whether a --platform value names a machine other
// than the running one.
func foreignPlatform(platformFlag string) bool {
	if platformFlag == "" {
		return false
	}
	goos, arch, _ := strings.Cut(platformFlag, "/")
	return platform.NormalizeOS(goos) != runtime.GOOS ||
		platform.CanonicalArch(arch) != platform.CanonicalArch(runtime.GOARCH)
}

func newManager(a *app, prefix, keyring, platformFlag string) (*binary.Manager, error) {
	cfg := binary.Config{
		Prefix:      prefix,
		KeyringPath: expandHome(keyring),
		Logger:      a.logger,
	}

	if platformFlag != "" {
		goos, arch, ok := strings.Cut(platformFlag, "/")
		if !ok {
			return nil, fmt.Errorf("invalid --platform %q, want os/arch", platformFlag)
		}
		if goos == "" || arch == "" {
			return nil, fmt.Errorf("invalid --platform %q, want os/arch", platformFlag)
		}
		cfg.Detector = platform.StaticDetector{Info: &platform.Info{
			OS:      platform.NormalizeOS(goos),
			Arch:    platform.CanonicalArch(arch),
			ArchRaw: arch,
		}}
	}

	return binary.NewManager(cfg)
}
