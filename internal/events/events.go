package events

import "github.com/asaskevich/EventBus"

// GlobalBus is the shared event bus for the entire application
var GlobalBus EventBus.Bus

func init() {
	GlobalBus = EventBus.New()
}

// Event types for application-wide coordination
const (
	// Shutdown events, payload: reason string
	EventShutdownRequested = "app:shutdown:requested"

	// Watcher events, payload: local root string
	EventWatcherStarted = "watcher:started"
	EventWatcherStopped = "watcher:stopped"

	// Transfer progress, payload: ftpclient.Progress
	EventTransferProgress = "transfer:progress"

	// Engine results, payload: engine.Outcome
	EventOperationCompleted = "engine:operation:completed"
)
