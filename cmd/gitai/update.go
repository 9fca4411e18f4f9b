package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xyue92/gitai/internal/updater"
)

type updateOptions struct {
	check bool
	force bool
}

func newUpdateCmd(a *app) *cobra.Command {
	var opts updateOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Update gitai to the latest release",
		Long: `Check GitHub for a newer gitai release and replace the running binary.
The download is verified against the release checksums.txt before it is
installed; the previous binary is restored if anything fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			d := a.display()

			cfg, err := a.loadConfig(ctx)
			if err != nil {
				return err
			}

			u := newUpdater(a)
			u.CheckSignature = cfg.Update.CheckSignature
			u.KeyringPath = cfg.Install.Keyring

			d.Info("Checking for updates...")
			rel, needed, err := u.CheckForUpdate(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(a.out, "Current version: %s\n", Version)
			fmt.Fprintf(a.out, "Latest version:  %s\n", rel.TagName)

			if !needed && !opts.force {
				d.Success("gitai is up to date")
				return nil
			}
			if opts.check {
				d.Warning(fmt.Sprintf("A new version is available: %s (run 'gitai update')", rel.TagName))
				return nil
			}

			d.Info(fmt.Sprintf("Downloading %s...", rel.TagName))
			res, err := u.Update(ctx, rel.TagName)
			if err != nil {
				return err
			}
			a.logger.Debug("update installed", "target", res.Target, "sha256", res.Verified.SHA256)

			d.Success(fmt.Sprintf("Updated to %s", rel.TagName))
			if rel.Body != "" {
				fmt.Fprintf(a.out, "\nRelease notes:\n%s\n", rel.Body)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&opts.check, "check", "c", false, "Only check whether an update is available")
	cmd.Flags().BoolVarP(&opts.force, "force", "f", false, "Reinstall even when already up to date")
	return cmd
}

// newUpdater is replaced in tests to point at a local release server.
var newUpdater = func(a *app) *updater.Updater {
	return updater.New(Version, a.logger)
}
