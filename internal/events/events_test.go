package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGlobalBusDelivers(t *testing.T) {
	var got []string
	handler := func(reason string) { got = append(got, reason) }
	require.NoError(t, GlobalBus.Subscribe(EventShutdownRequested, handler))
	defer GlobalBus.Unsubscribe(EventShutdownRequested, handler)

	GlobalBus.Publish(EventShutdownRequested, "watcher stopped")
	assert.Equal(t, []string{"watcher stopped"}, got)
}
