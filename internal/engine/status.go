package engine

import (
	"os"

	"skin-sync/internal/snapshot"
)

// Status reports the lifecycle, pending local changes and deploy history of
// a project. It never touches the network.
func (e *Engine) Status(p Project) (*StatusResult, error) {
	op, err := e.begin(p, "status")
	if err != nil {
		return nil, err
	}
	res := &StatusResult{
		Summary:  op.summary(),
		Baseline: op.baseline,
		Pending:  snapshot.Delta{Upserted: []string{}, Deleted: []string{}},
	}
	res.Status = StatusInformational

	st, err := op.rules.Read()
	if err != nil {
		return nil, err
	}
	res.TrackedNew = st.TrackedNewServerFiles

	if op.baseline != nil {
		mirror, err := op.base.MirrorSnapshot()
		if err != nil {
			return nil, err
		}
		local := snapshot.Map{}
		if _, err := os.Stat(op.project.LocalRoot); err == nil {
			if local, err = snapshot.Collect(op.project.LocalRoot); err != nil {
				return nil, err
			}
		}
		res.Pending = snapshot.Diff(mirror.Filter(op.skip), local.Filter(op.skip))
	}

	for _, sol := range FTPSolutions {
		man, err := op.manifests.Read(string(sol))
		if err != nil {
			return nil, err
		}
		if man != nil {
			res.Manifests = append(res.Manifests, ManifestInfo{Solution: sol, UpdatedAt: man.UpdatedAt, Files: len(man.Files)})
		}
	}
	res.Message = op.state.String()
	res.FinishedAt = e.now()
	return res, nil
}
