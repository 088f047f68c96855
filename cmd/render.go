package cmd

import (
	"fmt"
	"strings"
	"time"

	"skin-sync/internal/engine"
	"skin-sync/internal/util"

	"github.com/dustin/go-humanize"
)

// maxListed caps how many paths of one category are printed.
const maxListed = 20

func render(out engine.Outcome) {
	h := out.Head()
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s  %s\n", util.TitleStyle.Render(h.Operation), util.Badge(string(h.Status)),
		util.MutedStyle.Render(h.FinishedAt.Sub(h.StartedAt).Round(time.Millisecond).String()))
	fmt.Fprintf(&b, "%s\n", h.Message)

	switch r := out.(type) {
	case *engine.InitialSyncResult:
		list(&b, "skipped on server", r.SkippedRemote, util.WarnStyle.Render)
	case *engine.AutoUploadResult:
		list(&b, "uploaded", r.UploadedPaths, util.OKStyle.Render)
		list(&b, "deleted remotely", r.DeletedRemote, util.OKStyle.Render)
		list(&b, "restored from baseline", r.Restored, util.WarnStyle.Render)
		list(&b, "could not be restored", r.Unrecoverable, util.ErrStyle.Render)
		list(&b, "deletion kept local (not a tracked new file)", r.SkippedUntracked, util.MutedStyle.Render)
		list(&b, "not a file inside the working copy", r.SkippedMissing, util.MutedStyle.Render)
		list(&b, "failed", r.FailedUploads, util.ErrStyle.Render)
		list(&b, "delete refused by server", r.SkippedRemote, util.WarnStyle.Render)
	case *engine.DeployResult:
		list(&b, "uploaded", r.UploadedPaths, util.OKStyle.Render)
		list(&b, "failed", r.FailedUploads, util.ErrStyle.Render)
	case *engine.RestoreResult:
		list(&b, "removed locally", r.RemovedLocal, util.MutedStyle.Render)
		list(&b, "missing from baseline mirror", r.MissingMirror, util.ErrStyle.Render)
		list(&b, "deleted remotely", r.DeletedRemote, util.OKStyle.Render)
		list(&b, "failed", r.FailedUploads, util.ErrStyle.Render)
		list(&b, "delete refused by server", r.SkippedRemote, util.WarnStyle.Render)
	case *engine.StatusResult:
		renderStatus(&b, r)
	}
	util.Default.PrintBlock(b.String())
}

func renderStatus(b *strings.Builder, r *engine.StatusResult) {
	if r.Baseline == nil {
		fmt.Fprintln(b, util.WarnStyle.Render("no baseline yet, run 'skin-sync pull'"))
	} else {
		fmt.Fprintf(b, "baseline: %d file(s) from %s, %s\n", len(r.Baseline.Files), r.Baseline.RemotePath,
			humanize.Time(r.Baseline.CreatedAt))
		fmt.Fprintf(b, "tracked new on server: %s\n", humanize.Comma(int64(len(r.TrackedNew))))
		list(b, "changed since baseline", r.Pending.Upserted, util.OKStyle.Render)
		list(b, "deleted since baseline", r.Pending.Deleted, util.WarnStyle.Render)
	}
	for _, m := range r.Manifests {
		fmt.Fprintf(b, "last %s deploy: %s (%d file(s))\n", m.Solution, humanize.Time(m.UpdatedAt), m.Files)
	}
}

func list(b *strings.Builder, title string, paths []string, style func(...string) string) {
	if len(paths) == 0 {
		return
	}
	fmt.Fprintf(b, "%s (%d):\n", title, len(paths))
	for i, p := range paths {
		if i == maxListed {
			fmt.Fprintf(b, "  … and %d more\n", len(paths)-maxListed)
			break
		}
		fmt.Fprintf(b, "  %s\n", style(p))
	}
}
