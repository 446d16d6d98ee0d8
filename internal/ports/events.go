package ports

import "context"

const (
	// EventScanCompleted is emitted after the registry has been rebuilt from disk.
	EventScanCompleted = "scan.completed"
	// EventProvisionStarted is emitted when environment provisioning begins for a plugin.
	EventProvisionStarted = "provision.started"
	// EventProvisionFinished is emitted after provisioning succeeded.
	EventProvisionFinished = "provision.finished"
	// EventProvisionError is emitted when provisioning fails or a required tool is missing.
	EventProvisionError = "provision.error"
	// EventConfirmationRequested asks the presentation layer for a yes/no decision.
	EventConfirmationRequested = "confirmation.requested"
	// EventImportStarted is emitted when an import session begins.
	EventImportStarted = "import.started"
	// EventImportProgress reports download or extraction progress.
	EventImportProgress = "import.progress"
	// EventImportFinished is emitted exactly once per import session.
	EventImportFinished = "import.finished"
	// EventExportFinished is emitted after an archive has been written.
	EventExportFinished = "export.finished"
	// EventPluginLaunched is emitted after a plugin process was spawned.
	EventPluginLaunched = "plugin.launched"
	// EventErrorOccurred carries any other user-facing failure as a title and message.
	EventErrorOccurred = "error.occurred"
)

// DomainEvent represents a significant occurrence within the application
// layer. Events carry structured payloads that downstream subscribers can use
// for logging, UI updates, or integrations.
type DomainEvent interface {
	EventType() string
	Payload() interface{}
}

// EventPublisher distributes events to interested subscribers. Dispatch is
// synchronous: Publish blocks until all handlers run. Handlers may spawn
// goroutines if work should continue in the background. Implementations must
// be thread-safe.
type EventPublisher interface {
	Publish(ctx context.Context, event DomainEvent) error
	Subscribe(eventType string, handler EventHandler) (Subscription, error)
}

// EventHandler processes an event of a specific type. Failures should be
// surfaced via returned errors so publishers can log diagnostics and continue
// delivering to remaining subscribers.
type EventHandler func(context.Context, DomainEvent) error

// Subscription represents a registered handler. Callers must invoke
// Unsubscribe to stop receiving events.
type Subscription interface {
	Unsubscribe()
}
