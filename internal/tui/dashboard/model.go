package dashboard

import (
	"context"
	"path/filepath"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
)

// Model is the main dashboard model
type Model struct {
	// Core data
	plugins []plugin.Plugin
	service PluginService
	ctx     context.Context

	// UI state
	viewMode     ViewMode
	cursor       int
	selected     string
	detailCursor int
	scrollOffset int

	// Component state
	spinner spinner.Model
	search  textinput.Model

	// Operation state
	provisioning map[string]bool
	showError    bool
	errorMsg     string
	info         string

	// Dimensions
	width  int
	height int
}

// detailItem is a runnable snippet or a manual in the detail view.
type detailItem struct {
	label   string
	snippet *plugin.Snippet
	manual  string
}

// NewModel creates a new dashboard model
func NewModel(ctx context.Context, svc PluginService) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	search := textinput.New()
	search.Placeholder = "name, alias, tag or description"
	search.Prompt = "/ "
	search.CharLimit = 64

	return Model{
		plugins:      svc.Plugins(),
		service:      svc,
		ctx:          ctx,
		viewMode:     ViewList,
		spinner:      s,
		search:       search,
		provisioning: make(map[string]bool),
		width:        80,
		height:       24,
	}
}

// Init initializes the model and returns initial commands
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// GetViewMode returns the current view mode
func (m *Model) GetViewMode() ViewMode {
	return m.viewMode
}

// GetSelectedPlugin returns the plugin under the cursor
func (m *Model) GetSelectedPlugin() (plugin.Plugin, bool) {
	if m.cursor < 0 || m.cursor >= len(m.plugins) {
		return plugin.Plugin{}, false
	}
	return m.plugins[m.cursor], true
}

// detailPlugin returns the plugin shown in the detail view
func (m *Model) detailPlugin() (plugin.Plugin, bool) {
	for _, p := range m.plugins {
		if p.Name == m.selected {
			return p, true
		}
	}
	return plugin.Plugin{}, false
}

// detailItems lists the snippets then the manuals of p
func detailItems(p plugin.Plugin) []detailItem {
	items := make([]detailItem, 0, len(p.Commands)+len(p.Manuals))
	for i := range p.Commands {
		s := p.Commands[i]
		items = append(items, detailItem{label: s.Name, snippet: &s})
	}
	for _, manual := range p.Manuals {
		items = append(items, detailItem{label: filepath.Base(manual), manual: manual})
	}
	return items
}

// MoveCursorUp moves cursor up with wrapping
func (m *Model) MoveCursorUp() {
	if len(m.plugins) == 0 {
		return
	}
	m.cursor--
	if m.cursor < 0 {
		m.cursor = len(m.plugins) - 1
	}
	m.keepCursorVisible()
}

// MoveCursorDown moves cursor down with wrapping
func (m *Model) MoveCursorDown() {
	if len(m.plugins) == 0 {
		return
	}
	m.cursor++
	if m.cursor >= len(m.plugins) {
		m.cursor = 0
	}
	m.keepCursorVisible()
}

func (m *Model) keepCursorVisible() {
	visible := m.visibleRows()
	switch {
	case m.cursor < m.scrollOffset:
		m.scrollOffset = m.cursor
	case m.cursor >= m.scrollOffset+visible:
		m.scrollOffset = m.cursor - visible + 1
	}
}

// visibleRows is how many two-line plugin items fit between header and footer
func (m *Model) visibleRows() int {
	rows := (m.height - 10) / 2
	if rows < 1 {
		return 1
	}
	return rows
}

// setPlugins replaces the list and keeps the cursor on the same plugin when
// it still exists.
func (m *Model) setPlugins(plugins []plugin.Plugin) {
	current, hadCurrent := m.GetSelectedPlugin()
	m.plugins = plugins
	m.cursor = 0
	m.scrollOffset = 0
	if hadCurrent {
		for i, p := range plugins {
			if p.Name == current.Name {
				m.cursor = i
				break
			}
		}
	}
	m.keepCursorVisible()
	if _, ok := m.detailPlugin(); !ok && m.viewMode == ViewDetail {
		m.viewMode = ViewList
	}
}

// IsProvisioning reports whether a plugin environment is being synced
func (m *Model) IsProvisioning(name string) bool {
	return m.provisioning[name]
}
