package orchestrator

import (
	"context"

	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

// ScanCompleted is the payload of ports.EventScanCompleted.
type ScanCompleted struct {
	Count   int
	Skipped []error
}

func (e ScanCompleted) LogFields() []interface{} {
	return []interface{}{"count", e.Count, "skipped", len(e.Skipped)}
}

// ProvisionStarted is the payload of ports.EventProvisionStarted.
type ProvisionStarted struct {
	Name string
}

func (e ProvisionStarted) LogFields() []interface{} { return []interface{}{"plugin", e.Name} }

// ProvisionFinished is the payload of ports.EventProvisionFinished.
type ProvisionFinished struct {
	Name string
}

func (e ProvisionFinished) LogFields() []interface{} { return []interface{}{"plugin", e.Name} }

// ConfirmationRequested is the payload of ports.EventConfirmationRequested.
// Answer it with Orchestrator.ResolveConfirmation.
type ConfirmationRequested struct {
	Title      string
	Message    string
	CallbackID string
	Plugin     string
}

func (e ConfirmationRequested) LogFields() []interface{} {
	return []interface{}{"title", e.Title, "callback_id", e.CallbackID, "plugin", e.Plugin}
}

// ImportStarted is the payload of ports.EventImportStarted.
type ImportStarted struct {
	Source string
}

func (e ImportStarted) LogFields() []interface{} { return []interface{}{"source", e.Source} }

// ImportProgress is the payload of ports.EventImportProgress.
type ImportProgress struct {
	Percent       int
	Indeterminate bool
	Status        string
}

func (e ImportProgress) LogFields() []interface{} {
	return []interface{}{"percent", e.Percent, "indeterminate", e.Indeterminate, "status", e.Status}
}

// ImportFinished is the payload of ports.EventImportFinished. It is published
// exactly once per import session.
type ImportFinished struct {
	Success  bool
	Name     string
	Declined bool
}

func (e ImportFinished) LogFields() []interface{} {
	return []interface{}{"success", e.Success, "plugin", e.Name, "declined", e.Declined}
}

// ExportFinished is the payload of ports.EventExportFinished.
type ExportFinished struct {
	Name string
	Path string
}

func (e ExportFinished) LogFields() []interface{} { return []interface{}{"plugin", e.Name, "path", e.Path} }

// PluginLaunched is the payload of ports.EventPluginLaunched.
type PluginLaunched struct {
	Name    string
	Command string
	PID     int
}

func (e PluginLaunched) LogFields() []interface{} {
	return []interface{}{"plugin", e.Name, "command", e.Command, "pid", e.PID}
}

// ErrorReport is the payload of ports.EventErrorOccurred and
// ports.EventProvisionError. Err keeps the original error for callers that
// need to inspect it.
type ErrorReport struct {
	Title   string
	Message string
	Err     error
}

func (e ErrorReport) LogFields() []interface{} {
	return []interface{}{"title", e.Title, "message", e.Message}
}

func newErrorReport(err error) ErrorReport {
	title, message := pderrors.Describe(err)
	return ErrorReport{Title: title, Message: message, Err: err}
}

type domainEvent struct {
	eventType string
	payload   interface{}
}

func (e domainEvent) EventType() string    { return e.eventType }
func (e domainEvent) Payload() interface{} { return e.payload }

func (o *Orchestrator) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := o.events.Publish(ctx, domainEvent{eventType: eventType, payload: payload}); err != nil {
		o.logger.Warn(ctx, "failed to publish domain event", "event_type", eventType, "error", err)
	}
}

func (o *Orchestrator) reportError(ctx context.Context, eventType string, err error) {
	o.publish(ctx, eventType, newErrorReport(err))
}
