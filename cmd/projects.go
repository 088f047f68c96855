package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"skin-sync/internal/config"
	"skin-sync/internal/history"
	"skin-sync/internal/util"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var projectsOpts struct {
	forget string
}

var projectsCmd = &cobra.Command{
	Use:   "projects [query]",
	Short: "List recently used projects",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		book := history.Default()
		if projectsOpts.forget != "" {
			abs, err := filepath.Abs(projectsOpts.forget)
			if err != nil {
				return err
			}
			return book.Remove(abs)
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		entries, err := book.Recent(query)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			util.Default.Println("no projects yet")
			return nil
		}
		var b strings.Builder
		for _, e := range entries {
			path := e.Path
			if !config.Exists(e.Path) {
				path = util.MutedStyle.Render(path + " (missing)")
			}
			fmt.Fprintf(&b, "%-20s %s  %s\n", e.Name, path, util.MutedStyle.Render(humanize.Time(e.LastAccess)))
		}
		util.Default.PrintBlock(b.String())
		return nil
	},
}

func init() {
	projectsCmd.Flags().StringVar(&projectsOpts.forget, "forget", "", "remove a project directory from the list")
}
