package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"skin-sync/internal/config"
	"skin-sync/internal/history"
	"skin-sync/internal/util"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
)

var (
	projectFlag string
	verbose     bool
	assumeYes   bool
)

var rootCmd = &cobra.Command{
	Use:   "skin-sync",
	Short: "Keep storefront skins in sync with their FTP servers",
	Long: `skin-sync pulls a storefront skin from its FTP server once, remembers that
original state as a baseline, uploads only what changes afterwards and can put
both the working copy and the server back to the baseline.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := projectDir(); err == nil {
			return runStatus(cmd, args)
		}
		util.Default.Println("No skin-sync.yaml found here. Run 'skin-sync init' to create one.")
		return showRecentProjectsMenu()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "C", "", "project directory (default: search upwards from the current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show debug logs on the console")

	rootCmd.AddCommand(initCmd, pullCmd, pushCmd, deployCmd, restoreCmd, statusCmd, watchCmd, logCmd, credentialCmd, projectsCmd)
}

// showRecentProjectsMenu lets the user pick a recently used project and
// prints how to switch to it.
func showRecentProjectsMenu() error {
	entries, err := history.Default().Recent("")
	if err != nil || len(entries) == 0 {
		return err
	}
	if !util.IsTerminal(os.Stdin) {
		return nil
	}
	items := make([]string, len(entries))
	for i, e := range entries {
		items[i] = e.Path
		if e.Name != "" {
			items[i] = fmt.Sprintf("%s (%s)", e.Name, e.Path)
		}
	}
	prompt := promptui.Select{Label: "Recent projects", Items: items, Size: 10}
	i, _, err := prompt.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return nil
	}
	if err != nil {
		return err
	}
	if !config.Exists(entries[i].Path) {
		util.Default.Println(util.WarnStyle.Render("project no longer exists, removed from history"))
		return history.Default().Remove(entries[i].Path)
	}
	util.Default.Printf("cd %s\n", entries[i].Path)
	return nil
}

// ExecuteContext runs the root command with a context that is cancelled on
// shutdown.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
