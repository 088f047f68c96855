package oplog

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"skin-sync/internal/engine"
	"skin-sync/internal/events"

	"github.com/asaskevich/EventBus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openLog(t *testing.T) *Log {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "meta", FileName))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func summary(op string, at int64) engine.Summary {
	return engine.Summary{
		Operation:  op,
		Solution:   engine.SolutionSkinFTP,
		Status:     engine.StatusCompleted,
		Message:    op + " done",
		Uploaded:   2,
		StartedAt:  time.Unix(at-1, 0),
		FinishedAt: time.Unix(at, 0),
	}
}

func TestRecordAndRecent(t *testing.T) {
	l := openLog(t)
	require.NoError(t, l.Record("p1", summary("deploy", 10)))
	require.NoError(t, l.Record("p1", summary("auto-upload", 20)))
	require.NoError(t, l.Record("p2", summary("restore", 30)))
	require.NoError(t, l.RecordFailure("p1", "restore", time.Unix(25, 0), errors.New("ftp: connection reset")))

	got, err := l.Recent("p1", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "restore", got[0].Operation)
	assert.Equal(t, StatusFailed, got[0].Status)
	assert.Equal(t, "ftp: connection reset", got[0].Error)
	assert.Equal(t, "auto-upload", got[1].Operation)
	assert.Equal(t, 2, got[1].Uploaded)
	assert.Equal(t, "skin-ftp", got[1].Solution)

	got, err = l.Recent("p1", 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestPruneKeepsNewest(t *testing.T) {
	l := openLog(t)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, l.Record("p", summary("deploy", i)))
	}
	n, err := l.Prune("p", 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	got, err := l.Recent("p", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, time.Unix(5, 0).Unix(), got[0].FinishedAt.Unix())
}

func TestAttachRecordsPublishedOutcomes(t *testing.T) {
	l := openLog(t)
	bus := EventBus.New()
	detach, err := l.Attach(bus, "p", func(err error) { t.Error(err) })
	require.NoError(t, err)

	bus.Publish(events.EventOperationCompleted, &engine.DeployResult{Summary: summary("deploy", 1)})
	detach()
	bus.Publish(events.EventOperationCompleted, &engine.DeployResult{Summary: summary("deploy", 2)})

	got, err := l.Recent("p", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "deploy done", got[0].Message)
}
