// Package errors defines the failure taxonomy shared by the plugin lifecycle
// engine and the presentation layer.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

var (
	// ErrBusy is returned when a single-flight operation is already running.
	ErrBusy = stderrors.New("another operation is already in progress")
	// ErrCancelled is returned when an import was cancelled by the user.
	ErrCancelled = stderrors.New("operation cancelled")
	// ErrInvalidURL is returned for import sources with an unsupported scheme.
	ErrInvalidURL = stderrors.New("invalid URL")
)

// ManifestError reports a malformed or incomplete plugin manifest.
type ManifestError struct {
	Path  string
	Field string
	Err   error
}

// NewManifestError constructs a ManifestError.
func NewManifestError(path, field string, err error) error {
	return &ManifestError{Path: path, Field: field, Err: err}
}

func (e *ManifestError) Error() string {
	if e == nil {
		return ""
	}
	if e.Field != "" {
		return fmt.Sprintf("manifest error: %s: field %s: %v", e.Path, e.Field, e.Err)
	}
	return fmt.Sprintf("manifest error: %s: %v", e.Path, e.Err)
}

// Unwrap exposes the underlying error.
func (e *ManifestError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Title implements Titled.
func (e *ManifestError) Title() string { return "Invalid Plugin Manifest" }

// ToolUnavailableError reports a missing external tool required for provisioning.
type ToolUnavailableError struct {
	Tool string
	Hint string
	Err  error
}

// NewToolUnavailableError constructs a ToolUnavailableError.
func NewToolUnavailableError(tool, hint string, err error) error {
	return &ToolUnavailableError{Tool: tool, Hint: hint, Err: err}
}

func (e *ToolUnavailableError) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s is not available", e.Tool)
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Hint != "" {
		fmt.Fprintf(&b, "\nHint: %s", e.Hint)
	}
	return b.String()
}

// Unwrap exposes the underlying error.
func (e *ToolUnavailableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Title implements Titled.
func (e *ToolUnavailableError) Title() string { return "Required Tool Missing" }

// ProvisionError reports a failed dependency sync. Output holds the tool's
// diagnostic text.
type ProvisionError struct {
	Plugin string
	Output string
	Err    error
}

// NewProvisionError constructs a ProvisionError.
func NewProvisionError(plugin, output string, err error) error {
	return &ProvisionError{Plugin: plugin, Output: strings.TrimSpace(output), Err: err}
}

func (e *ProvisionError) Error() string {
	if e == nil {
		return ""
	}
	msg := fmt.Sprintf("failed to set up environment for %s: %v", e.Plugin, e.Err)
	if e.Output != "" {
		msg += "\n" + e.Output
	}
	return msg
}

// Unwrap exposes the underlying error.
func (e *ProvisionError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Title implements Titled.
func (e *ProvisionError) Title() string { return "Environment Setup Failed" }

// SpawnError reports that a plugin process could not be started.
type SpawnError struct {
	Plugin  string
	Command string
	Err     error
}

// NewSpawnError constructs a SpawnError.
func NewSpawnError(plugin, command string, err error) error {
	return &SpawnError{Plugin: plugin, Command: command, Err: err}
}

func (e *SpawnError) Error() string {
	if e == nil {
		return ""
	}
	if e.Command != "" {
		return fmt.Sprintf("failed to launch %s (%s): %v", e.Plugin, e.Command, e.Err)
	}
	return fmt.Sprintf("failed to launch %s: %v", e.Plugin, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SpawnError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Title implements Titled.
func (e *SpawnError) Title() string { return "Launch Failed" }

// ArchiveError reports a corrupt or structurally invalid plugin archive.
type ArchiveError struct {
	Source  string
	Message string
	Err     error
}

// NewArchiveError constructs an ArchiveError.
func NewArchiveError(source, message string, err error) error {
	return &ArchiveError{Source: source, Message: message, Err: err}
}

func (e *ArchiveError) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	default:
		return fmt.Sprintf("invalid archive %s: %v", e.Source, e.Err)
	}
}

// Unwrap exposes the underlying error.
func (e *ArchiveError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Title implements Titled.
func (e *ArchiveError) Title() string { return "Invalid Plugin Archive" }

// NetworkError reports a failed download.
type NetworkError struct {
	URL        string
	StatusCode int
	Err        error
}

// NewNetworkError constructs a NetworkError.
func NewNetworkError(url string, status int, err error) error {
	return &NetworkError{URL: url, StatusCode: status, Err: err}
}

func (e *NetworkError) Error() string {
	if e == nil {
		return ""
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("download %s failed with HTTP %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("download %s failed: %v", e.URL, e.Err)
}

// Unwrap exposes the underlying error.
func (e *NetworkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Title implements Titled.
func (e *NetworkError) Title() string { return "Download Failed" }

// ConflictError signals that an import target already exists. The import
// pipeline turns it into a confirmation request rather than a failure.
type ConflictError struct {
	Plugin string
	Path   string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("plugin '%s' already exists", e.Plugin)
}

// NotFoundError reports an unknown plugin name.
type NotFoundError struct {
	Name string
}

// NewNotFoundError constructs a NotFoundError.
func NewNotFoundError(name string) error {
	return &NotFoundError{Name: name}
}

func (e *NotFoundError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("plugin %q not found", e.Name)
}

// Title implements Titled.
func (e *NotFoundError) Title() string { return "Plugin Not Found" }

// Titled is implemented by errors that carry a short user-facing headline.
type Titled interface {
	Title() string
}

// Describe maps any error onto the (title, message) pair surfaced to users.
func Describe(err error) (string, string) {
	if err == nil {
		return "", ""
	}
	switch {
	case stderrors.Is(err, ErrBusy):
		return "Operation In Progress", err.Error()
	case stderrors.Is(err, ErrCancelled):
		return "Cancelled", err.Error()
	case stderrors.Is(err, ErrInvalidURL):
		return "Invalid URL", err.Error()
	}
	var titled Titled
	if stderrors.As(err, &titled) {
		return titled.Title(), err.Error()
	}
	return "Error", err.Error()
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool { return stderrors.Is(err, target) }

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool { return stderrors.As(err, target) }
