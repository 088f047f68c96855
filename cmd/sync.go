package cmd

import (
	"errors"

	"skin-sync/internal/engine"
	"skin-sync/internal/util"

	"github.com/spf13/cobra"
)

var pullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Download the skin from the server and record it as the baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.engine.Status(s.project)
		if err == nil && st.Lifecycle == engine.Synced {
			ok, err := confirm("A baseline already exists. Download again and replace it", assumeYes)
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
		}
		return s.run("pull", func() (engine.Outcome, error) {
			return s.engine.InitialSync(cmd.Context(), s.project, nil)
		})
	},
}

var pushOpts struct {
	changed []string
	deleted []string
}

var pushCmd = &cobra.Command{
	Use:   "push",
	Short: "Upload local changes; deleted files are restored unless they are tracked new files",
	Long: `Without flags push compares the working copy with the baseline and uploads
every difference. With --changed/--deleted only the given paths are handled.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		if len(pushOpts.changed) == 0 && len(pushOpts.deleted) == 0 {
			return s.run("reconcile", func() (engine.Outcome, error) {
				return s.engine.Reconcile(cmd.Context(), s.project, nil)
			})
		}
		return s.run("auto-upload", func() (engine.Outcome, error) {
			return s.engine.AutoUploadChangedFiles(cmd.Context(), s.project, pushOpts.changed, pushOpts.deleted, nil)
		})
	},
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Upload every file whose content changed since the last deploy",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()
		return s.run("deploy", func() (engine.Outcome, error) {
			return s.engine.Deploy(cmd.Context(), s.project, nil)
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Put the working copy and the server back to the baseline",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		ok, err := confirm("Overwrite local and remote files with the baseline", assumeYes)
		if err != nil {
			return err
		}
		if !ok {
			util.Default.Println("restore cancelled")
			return nil
		}
		return s.run("restore", func() (engine.Outcome, error) {
			return s.engine.RestoreInitial(cmd.Context(), s.project, nil)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the baseline, tracked new files and pending changes",
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()
	st, err := s.engine.Status(s.project)
	if err != nil {
		if errors.Is(err, engine.ErrConfig) {
			return s.run("status", func() (engine.Outcome, error) { return nil, err })
		}
		return err
	}
	render(st)
	return nil
}

func init() {
	pushCmd.Flags().StringSliceVar(&pushOpts.changed, "changed", nil, "created or modified paths, relative to the working copy")
	pushCmd.Flags().StringSliceVar(&pushOpts.deleted, "deleted", nil, "deleted paths, relative to the working copy")
	pullCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask before replacing an existing baseline")
	restoreCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
}
