package cmd

import (
	"context"
	"errors"

	"skin-sync/internal/engine"
	"skin-sync/internal/events"
	"skin-sync/internal/util"
	"skin-sync/internal/watch"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Upload changes as they happen in the working copy",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession()
		if err != nil {
			return err
		}
		defer s.Close()

		st, err := s.engine.Status(s.project)
		if err != nil {
			return err
		}
		if st.Lifecycle != engine.Synced {
			return errors.New("no baseline yet, run 'skin-sync pull' first")
		}

		handler := func(ctx context.Context, b watch.Batch) error {
			return s.run("auto-upload", func() (engine.Outcome, error) {
				return s.engine.AutoUploadChangedFiles(ctx, s.project, b.Upserted, b.Deleted, nil)
			})
		}
		w, err := watch.New(s.project.LocalRoot, s.matcher, handler,
			watch.WithDebounce(s.cfg.Watch.Debounce),
			watch.WithLogger(s.logger),
			watch.WithBus(events.GlobalBus),
		)
		if err != nil {
			return err
		}

		util.Default.Println(util.TitleStyle.Render("watching " + w.Root()))
		util.Default.Println(util.MutedStyle.Render("press Ctrl+C to stop"))
		err = w.Run(cmd.Context())
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}
