package dashboard

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// send applies msg and then runs the returned command once, feeding its
// message back into the model.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	updated, cmd := m.Update(msg)
	m = updated.(Model)
	if cmd == nil {
		return m
	}
	next := cmd()
	switch next.(type) {
	case PluginsLoadedMsg, ActionDoneMsg, ClearErrorMsg:
		updated, _ = m.Update(next)
		m = updated.(Model)
	}
	return m
}

func TestUpdateWindowSize(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.Equal(t, 100, m.width)
	assert.False(t, m.showError)

	m = send(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.True(t, m.showError)
	assert.Contains(t, m.errorMsg, "Terminal too small")

	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	assert.False(t, m.showError)
}

func TestLaunchKeyCallsService(t *testing.T) {
	m, svc := newTestModel(t)

	m = send(t, m, key("l"))
	m = send(t, m, key("j"))
	m = send(t, m, key("p"))

	require.Len(t, svc.calls, 2)
	assert.Equal(t, call{op: "launch", name: "alpha"}, svc.calls[0])
	assert.Equal(t, call{op: "launch", name: "beta", force: true}, svc.calls[1])
	assert.Equal(t, "Starting beta...", m.info)
}

func TestLaunchFailureShowsBanner(t *testing.T) {
	m, svc := newTestModel(t)
	svc.launchErr = errors.New("spawn failed")

	m = send(t, m, key("l"))

	assert.True(t, m.showError)
	assert.Contains(t, m.errorMsg, "spawn failed")

	m = send(t, m, key("x"))
	assert.False(t, m.showError)
}

func TestDetailViewRunsSnippetAndOpensManual(t *testing.T) {
	m, svc := newTestModel(t)

	m = send(t, m, key("enter"))
	require.Equal(t, ViewDetail, m.GetViewMode())
	assert.Equal(t, "alpha", m.selected)

	m = send(t, m, key("enter"))
	m = send(t, m, key("down"))
	m = send(t, m, key("enter"))
	m = send(t, m, key("o"))

	require.Len(t, svc.calls, 3)
	assert.Equal(t, call{op: "exec", name: "alpha:echo hello"}, svc.calls[0])
	assert.Equal(t, call{op: "manual", name: "/plugins/alpha/manuals/guide.pdf"}, svc.calls[1])
	assert.Equal(t, call{op: "open", name: "alpha"}, svc.calls[2])

	m = send(t, m, key("esc"))
	assert.Equal(t, ViewList, m.GetViewMode())
}

func TestSearchFiltersPlugins(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, key("/"))
	require.True(t, m.search.Focused())
	m = send(t, m, key("g"))
	require.Len(t, m.plugins, 1)
	assert.Equal(t, "gamma", m.plugins[0].Name)

	m = send(t, m, key("esc"))
	assert.False(t, m.search.Focused())
	assert.Len(t, m.plugins, 3)
}

func TestRescanReloadsPlugins(t *testing.T) {
	m, svc := newTestModel(t)
	svc.plugins = svc.plugins[:1]

	updated, cmd := m.Update(key("r"))
	m = updated.(Model)
	require.NotNil(t, cmd)
	m = send(t, m, cmd())

	assert.Equal(t, 1, svc.scans)
	assert.Len(t, m.plugins, 1)
}

func TestHelpToggle(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, key("?"))
	assert.Equal(t, ViewHelp, m.GetViewMode())
	m = send(t, m, key("?"))
	assert.Equal(t, ViewList, m.GetViewMode())
}

func TestQuitKey(t *testing.T) {
	m, _ := newTestModel(t)
	_, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestProvisioningEvents(t *testing.T) {
	m, _ := newTestModel(t)

	m = send(t, m, tui.EventMsg{Type: ports.EventProvisionStarted, Payload: orchestrator.ProvisionStarted{Name: "alpha"}})
	assert.True(t, m.IsProvisioning("alpha"))

	m = send(t, m, tui.EventMsg{Type: ports.EventProvisionFinished, Payload: orchestrator.ProvisionFinished{Name: "alpha"}})
	assert.False(t, m.IsProvisioning("alpha"))
	assert.Equal(t, "Provisioned alpha", m.info)

	m = send(t, m, tui.EventMsg{Type: ports.EventProvisionStarted, Payload: orchestrator.ProvisionStarted{Name: "beta"}})
	m = send(t, m, tui.EventMsg{Type: ports.EventProvisionError, Payload: orchestrator.ErrorReport{Title: "Provisioning Failed", Message: "uv sync exited 1"}})
	assert.False(t, m.IsProvisioning("beta"))
	assert.Equal(t, "Provisioning Failed: uv sync exited 1", m.errorMsg)
}

func TestScanCompletedReloads(t *testing.T) {
	m, svc := newTestModel(t)
	svc.plugins = svc.plugins[1:]

	m = send(t, m, tui.EventMsg{Type: ports.EventScanCompleted, Payload: orchestrator.ScanCompleted{Count: 2}})
	assert.Len(t, m.plugins, 2)
}
