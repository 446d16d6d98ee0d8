// Package tui renders the progress of background plugin work: imports,
// provisioning and launches reported through orchestrator events.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui/components"
)

// EventMsg wraps one orchestrator event for delivery to a model.
type EventMsg struct {
	Type    string
	Payload interface{}
}

// DoneMsg reports that all background work has finished.
type DoneMsg struct{}

// Controller answers prompts and cancels imports on the user's behalf.
type Controller interface {
	ResolveConfirmation(callbackID string, accepted bool) error
	CancelImport() bool
}

// Model contains the Bubbletea state for a single plugdeck command.
type Model struct {
	title      string
	controller Controller
	spinner    spinner.Model
	bar        components.Progress

	status        string
	percent       int
	indeterminate bool
	importing     bool
	provisioning  string
	confirm       *orchestrator.ConfirmationRequested
	autoAnswer    *bool

	notes     []string
	problems  []components.Problem
	finished  bool
	cancelled bool

	nonInteractive bool
}

// Option customises a Model.
type Option func(*Model)

// WithAutoAnswer answers every overwrite prompt with accepted instead of
// asking.
func WithAutoAnswer(accepted bool) Option {
	return func(m *Model) { m.autoAnswer = &accepted }
}

// NonInteractive makes the model decline unanswered prompts, since nobody
// can press a key.
func NonInteractive() Option {
	return func(m *Model) { m.nonInteractive = true }
}

// NewModel constructs a model titled title. controller may be nil when the
// command never imports.
func NewModel(title string, controller Controller, opts ...Option) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = runningStyle

	m := Model{
		title:      title,
		controller: controller,
		spinner:    s,
		bar:        components.NewProgress(30),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// IsFinished reports whether all work has completed.
func (m Model) IsFinished() bool { return m.finished }

// Cancelled reports whether the user cancelled the import.
func (m Model) Cancelled() bool { return m.cancelled }

// Problems returns the failures reported so far.
func (m Model) Problems() []components.Problem {
	return append([]components.Problem(nil), m.problems...)
}

// Pending returns the confirmation waiting for an answer, if any.
func (m Model) Pending() (orchestrator.ConfirmationRequested, bool) {
	if m.confirm == nil {
		return orchestrator.ConfirmationRequested{}, false
	}
	return *m.confirm, true
}

func (m *Model) note(text string) {
	m.notes = append(m.notes, text)
}

func (m *Model) fail(report orchestrator.ErrorReport) {
	m.problems = append(m.problems, components.Problem{Title: report.Title, Message: report.Message})
}
