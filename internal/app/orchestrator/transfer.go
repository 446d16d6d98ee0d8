package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/alexisbeaulieu97/plugdeck/internal/history"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/transfer"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

const diskSource = "disk"

// ImportFromDisk installs the plugin archived at path on the import worker.
// Progress, confirmation and completion are reported through events.
func (o *Orchestrator) ImportFromDisk(ctx context.Context, path string) error {
	return o.startImport(ctx, path, diskSource, func(ctx context.Context, hooks transfer.Hooks) (transfer.Result, error) {
		return o.importer.ImportFromDisk(ctx, path, hooks)
	})
}

// ImportFromURL downloads or clones a plugin and installs it on the import
// worker. Unsupported schemes fail synchronously with ErrInvalidURL.
func (o *Orchestrator) ImportFromURL(ctx context.Context, url string) error {
	kind, _, err := transfer.ClassifyURL(url)
	if err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}
	return o.startImport(ctx, url, kind.String(), func(ctx context.Context, hooks transfer.Hooks) (transfer.Result, error) {
		return o.importer.ImportFromURL(ctx, url, hooks)
	})
}

// CancelImport stops the active import. It reports whether one was running.
func (o *Orchestrator) CancelImport() bool {
	return o.importer.Cancel()
}

// ResolveConfirmation answers a confirmation.requested event.
func (o *Orchestrator) ResolveConfirmation(callbackID string, accepted bool) error {
	return o.importer.Resolve(callbackID, accepted)
}

// ImportActive reports whether an import session is running.
func (o *Orchestrator) ImportActive() bool {
	return o.importSlot.Busy()
}

type importFunc func(ctx context.Context, hooks transfer.Hooks) (transfer.Result, error)

func (o *Orchestrator) startImport(ctx context.Context, source, kind string, run importFunc) error {
	_, err := o.importSlot.TryGo(ctx, func(ctx context.Context) error {
		return o.runImport(ctx, source, kind, run)
	})
	if err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}
	return nil
}

func (o *Orchestrator) runImport(ctx context.Context, source, kind string, run importFunc) (err error) {
	started := time.Now()
	o.publish(ctx, ports.EventImportStarted, ImportStarted{Source: source})

	finished := ImportFinished{}
	defer func() {
		if r := recover(); r != nil {
			err = pderrors.NewArchiveError(source, "import failed unexpectedly", nil)
			o.logger.Error(ctx, "import panicked", "source", source, "panic", r)
			o.reportError(ctx, ports.EventErrorOccurred, err)
		}
		o.publish(ctx, ports.EventImportFinished, finished)
	}()

	hooks := transfer.Hooks{
		Progress: func(p transfer.Progress) {
			o.publish(ctx, ports.EventImportProgress, ImportProgress{
				Percent:       p.Percent,
				Indeterminate: p.Indeterminate,
				Status:        p.Status,
			})
		},
		Confirm: func(c transfer.Confirmation) {
			o.publish(ctx, ports.EventConfirmationRequested, ConfirmationRequested{
				Title:      c.Title,
				Message:    c.Message,
				CallbackID: c.CallbackID,
				Plugin:     c.Plugin,
			})
		},
	}

	res, err := run(ctx, hooks)
	finished.Name = res.Name
	elapsed := time.Since(started)

	switch {
	case errors.Is(err, pderrors.ErrCancelled):
		o.logger.Info(ctx, "import cancelled", "source", source)
		o.metrics.RecordImport(kind, elapsed, ports.OutcomeCancelled)
		o.record(ctx, history.Entry{Kind: history.KindImport, Detail: source, Error: err.Error()})
		return err
	case err != nil:
		o.logger.Error(ctx, "import failed", "source", source, "error", err)
		o.metrics.RecordImport(kind, elapsed, ports.OutcomeFailure)
		o.record(ctx, history.Entry{Kind: history.KindImport, Detail: source, Error: err.Error()})
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	case res.Declined:
		finished.Declined = true
		o.metrics.RecordImport(kind, elapsed, ports.OutcomeDeclined)
		return nil
	}

	o.metrics.RecordImport(kind, elapsed, ports.OutcomeSuccess)
	o.record(ctx, history.Entry{Kind: history.KindImport, Plugin: res.Name, Detail: source, Success: true})
	if scanErr := o.Scan(ctx); scanErr != nil {
		return scanErr
	}
	finished.Success = true
	return nil
}

// ExportPlugin writes a plugin archive to dest on the export worker. dest may
// be a file, a directory or an s3:// URL.
func (o *Orchestrator) ExportPlugin(ctx context.Context, name, dest string) error {
	p, err := o.registry.Get(name)
	if err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}

	_, err = o.exportSlot.TryGo(ctx, func(ctx context.Context) error {
		path, err := o.exporter.Export(ctx, p, dest)
		if err != nil {
			o.metrics.RecordExport(p.Name, ports.OutcomeFailure)
			o.record(ctx, history.Entry{Kind: history.KindExport, Plugin: p.Name, Detail: dest, Error: err.Error()})
			o.reportError(ctx, ports.EventErrorOccurred, err)
			return err
		}
		o.metrics.RecordExport(p.Name, ports.OutcomeSuccess)
		o.record(ctx, history.Entry{Kind: history.KindExport, Plugin: p.Name, Detail: path, Success: true})
		o.publish(ctx, ports.EventExportFinished, ExportFinished{Name: p.Name, Path: path})
		return nil
	})
	if err != nil {
		o.reportError(ctx, ports.EventErrorOccurred, err)
		return err
	}
	return nil
}
