package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"skin-sync/internal/config"
	"skin-sync/internal/metastore"
	"skin-sync/internal/oplog"
	"skin-sync/internal/util"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var logOpts struct {
	limit int
	prune int
}

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Show recent sync operations of this project",
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		cfg, err := config.Load(dir)
		if err != nil {
			return err
		}
		l, err := oplog.Open(filepath.Join(cfg.MetaDir(), oplog.FileName))
		if err != nil {
			return err
		}
		defer l.Close()

		project := metastore.ProjectKey(cfg.LocalRoot())
		if cmd.Flags().Changed("prune") {
			n, err := l.Prune(project, logOpts.prune)
			if err != nil {
				return err
			}
			util.Default.Printf("pruned %d entries\n", n)
			return nil
		}

		entries, err := l.Recent(project, logOpts.limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			util.Default.Println("no operations recorded yet")
			return nil
		}
		var b strings.Builder
		for _, e := range entries {
			msg := e.Message
			if e.Status == oplog.StatusFailed {
				msg = util.ErrStyle.Render(e.Error)
			}
			fmt.Fprintf(&b, "%-14s %-12s %s  %s\n",
				util.MutedStyle.Render(humanize.Time(e.FinishedAt)),
				e.Operation,
				util.Badge(e.Status),
				msg)
		}
		util.Default.PrintBlock(b.String())
		return nil
	},
}

func init() {
	logCmd.Flags().IntVarP(&logOpts.limit, "limit", "n", 20, "number of entries to show")
	logCmd.Flags().IntVar(&logOpts.prune, "prune", 100, "delete all but the newest N entries")
}
