package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

// Update handles Bubbletea messages and updates model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case EventMsg:
		return m.handleEvent(msg)
	case DoneMsg:
		m.finished = true
		m.provisioning = ""
		m.importing = false
		return m, tea.Quit
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.QuitMsg:
		m.finished = true
		return m, nil
	}
	return m, nil
}

func (m Model) handleEvent(msg EventMsg) (tea.Model, tea.Cmd) {
	switch p := msg.Payload.(type) {
	case orchestrator.ImportStarted:
		m.importing = true
		m.status = "Starting import of " + p.Source
		m.percent = 0
		m.indeterminate = true
	case orchestrator.ImportProgress:
		m.status = p.Status
		m.indeterminate = p.Indeterminate
		if !p.Indeterminate {
			m.percent = p.Percent
		}
	case orchestrator.ConfirmationRequested:
		return m.handleConfirmation(p)
	case orchestrator.ImportFinished:
		m.importing = false
		m.confirm = nil
		switch {
		case p.Success:
			m.percent = 100
			m.note("Imported " + p.Name)
		case p.Declined:
			m.note("Kept existing " + p.Name)
		}
	case orchestrator.ProvisionStarted:
		m.provisioning = p.Name
	case orchestrator.ProvisionFinished:
		m.provisioning = ""
		m.note("Provisioned " + p.Name)
	case orchestrator.PluginLaunched:
		m.note(fmt.Sprintf("Launched %s (pid %d)", p.Name, p.PID))
	case orchestrator.ExportFinished:
		m.note(fmt.Sprintf("Exported %s to %s", p.Name, p.Path))
	case orchestrator.ErrorReport:
		if msg.Type == ports.EventProvisionError {
			m.provisioning = ""
		}
		m.fail(p)
	}
	return m, nil
}

func (m Model) handleConfirmation(req orchestrator.ConfirmationRequested) (tea.Model, tea.Cmd) {
	switch {
	case m.autoAnswer != nil:
		m.answer(req.CallbackID, *m.autoAnswer)
	case m.nonInteractive:
		m.note("Declined to overwrite " + req.Plugin + " without confirmation")
		m.answer(req.CallbackID, false)
	default:
		m.confirm = &req
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		if m.controller != nil && m.controller.CancelImport() {
			m.cancelled = true
			m.confirm = nil
			m.status = "Cancelling..."
			return m, nil
		}
		m.cancelled = true
		m.finished = true
		return m, tea.Quit
	}

	if m.confirm == nil {
		return m, nil
	}
	switch msg.String() {
	case "y", "Y", "enter":
		m.answer(m.confirm.CallbackID, true)
		m.confirm = nil
	case "n", "N", "esc":
		m.answer(m.confirm.CallbackID, false)
		m.confirm = nil
	}
	return m, nil
}

func (m *Model) answer(callbackID string, accepted bool) {
	if m.controller == nil {
		return
	}
	if err := m.controller.ResolveConfirmation(callbackID, accepted); err != nil {
		m.problems = append(m.problems, problemFor(err))
	}
}
