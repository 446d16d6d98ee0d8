package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui"
	pderrors "github.com/alexisbeaulieu97/plugdeck/pkg/errors"
)

const (
	minWidth  = 60
	minHeight = 16
)

// Update handles incoming messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		ApplyMaxWidth(m.width)
		if m.width < minWidth || m.height < minHeight {
			m.showError = true
			m.errorMsg = fmt.Sprintf("Terminal too small (%dx%d). Minimum size: %dx%d",
				m.width, m.height, minWidth, minHeight)
		} else if m.showError && strings.HasPrefix(m.errorMsg, "Terminal too small") {
			m.showError = false
			m.errorMsg = ""
		}
		m.keepCursorVisible()
		return m, nil

	case tea.KeyMsg:
		if m.search.Focused() {
			return m.handleSearchKey(msg)
		}
		return m.handleKeyPress(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case PluginsLoadedMsg:
		m.setPlugins(msg.Plugins)
		return m, nil

	case ActionDoneMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
			return m, nil
		}
		switch msg.Action {
		case ActionLaunch:
			if !m.provisioning[msg.Name] {
				m.info = "Starting " + msg.Name + "..."
			}
		case ActionRun:
			m.info = "Ran " + msg.Name
		case ActionRescan:
			return m, loadPluginsCmd(m.service, m.search.Value())
		}
		return m, nil

	case tui.EventMsg:
		return m.handleEvent(msg)

	case ClearErrorMsg:
		m.showError = false
		m.errorMsg = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleEvent(msg tui.EventMsg) (tea.Model, tea.Cmd) {
	switch p := msg.Payload.(type) {
	case orchestrator.ScanCompleted:
		return m, loadPluginsCmd(m.service, m.search.Value())
	case orchestrator.ProvisionStarted:
		m.provisioning[p.Name] = true
		m.info = "Provisioning " + p.Name + "..."
		return m, m.spinner.Tick
	case orchestrator.ProvisionFinished:
		delete(m.provisioning, p.Name)
		m.info = "Provisioned " + p.Name
	case orchestrator.PluginLaunched:
		m.info = fmt.Sprintf("Launched %s (pid %d)", p.Name, p.PID)
	case orchestrator.ImportFinished:
		if p.Success {
			m.info = "Imported " + p.Name
		}
	case orchestrator.ExportFinished:
		m.info = fmt.Sprintf("Exported %s to %s", p.Name, p.Path)
	case orchestrator.ErrorReport:
		if msg.Type == ports.EventProvisionError {
			m.provisioning = make(map[string]bool)
		}
		m.showError = true
		m.errorMsg = p.Title
		if p.Message != "" {
			m.errorMsg += ": " + p.Message
		}
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.search.Blur()
		m.search.SetValue("")
		m.filter()
		return m, nil
	case tea.KeyEnter:
		m.search.Blur()
		return m, nil
	case tea.KeyCtrlC:
		return m, tea.Quit
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	m.filter()
	return m, cmd
}

// filter applies the search box to the plugin list
func (m *Model) filter() {
	query := strings.TrimSpace(m.search.Value())
	if query == "" {
		m.setPlugins(m.service.Plugins())
		return
	}
	m.setPlugins(m.service.Search(query))
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "?":
		if m.viewMode == ViewHelp {
			m.viewMode = ViewList
		} else {
			m.viewMode = ViewHelp
		}
		return m, nil
	case "x":
		if m.showError {
			return m, func() tea.Msg { return ClearErrorMsg{} }
		}
	}

	switch m.viewMode {
	case ViewHelp:
		if key == "esc" {
			m.viewMode = ViewList
		}
		return m, nil
	case ViewDetail:
		return m.handleDetailKey(key)
	}

	switch key {
	case "up", "k":
		m.MoveCursorUp()
	case "down", "j":
		m.MoveCursorDown()
	case "enter":
		if p, ok := m.GetSelectedPlugin(); ok {
			m.selected = p.Name
			m.detailCursor = 0
			m.viewMode = ViewDetail
		}
	case "/":
		m.search.Focus()
		return m, nil
	case "esc":
		if m.search.Value() != "" {
			m.search.SetValue("")
			m.filter()
		}
	case "r":
		return m, rescanCmd(m.ctx, m.service)
	case "l", "p", "o":
		if p, ok := m.GetSelectedPlugin(); ok {
			return m, m.pluginAction(key, p.Name)
		}
	}
	return m, nil
}

func (m Model) handleDetailKey(key string) (tea.Model, tea.Cmd) {
	p, ok := m.detailPlugin()
	if !ok {
		m.viewMode = ViewList
		return m, nil
	}
	items := detailItems(p)

	switch key {
	case "esc", "backspace":
		m.viewMode = ViewList
	case "up", "k":
		if m.detailCursor > 0 {
			m.detailCursor--
		}
	case "down", "j":
		if m.detailCursor < len(items)-1 {
			m.detailCursor++
		}
	case "enter":
		if m.detailCursor < len(items) {
			item := items[m.detailCursor]
			if item.snippet != nil {
				return m, runSnippetCmd(m.ctx, m.service, p.Name, *item.snippet)
			}
			return m, openManualCmd(m.ctx, m.service, item.manual)
		}
	case "l", "p", "o":
		return m, m.pluginAction(key, p.Name)
	}
	return m, nil
}

func (m Model) pluginAction(key, name string) tea.Cmd {
	switch key {
	case "l":
		return launchCmd(m.ctx, m.service, name, false)
	case "p":
		return launchCmd(m.ctx, m.service, name, true)
	default:
		return openDirCmd(m.ctx, m.service, name)
	}
}

func (m *Model) setError(err error) {
	title, message := pderrors.Describe(err)
	m.showError = true
	m.errorMsg = title
	if message != "" {
		m.errorMsg += ": " + message
	}
}
