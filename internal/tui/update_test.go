package tui

import (
	"testing"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

func apply(t *testing.T, m Model, msgs ...tea.Msg) Model {
	t.Helper()
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		var ok bool
		m, ok = updated.(Model)
		require.True(t, ok)
	}
	return m
}

func event(eventType string, payload interface{}) EventMsg {
	return EventMsg{Type: eventType, Payload: payload}
}

func confirmation(id string) EventMsg {
	return event(ports.EventConfirmationRequested, orchestrator.ConfirmationRequested{
		Title:      "Plugin Exists",
		Message:    "Replace demo 1.0.0?",
		CallbackID: id,
		Plugin:     "demo",
	})
}

func TestUpdateTracksImportProgress(t *testing.T) {
	m := apply(t, NewModel("Import", nil),
		event(ports.EventImportStarted, orchestrator.ImportStarted{Source: "demo.zip"}),
		event(ports.EventImportProgress, orchestrator.ImportProgress{Percent: 40, Status: "Extracting..."}),
	)
	require.True(t, m.importing)
	require.Equal(t, 40, m.percent)
	require.Equal(t, "Extracting...", m.status)

	m = apply(t, m, event(ports.EventImportProgress, orchestrator.ImportProgress{Indeterminate: true, Status: "Cloning..."}))
	require.True(t, m.indeterminate)
	require.Equal(t, 40, m.percent)

	m = apply(t, m, event(ports.EventImportFinished, orchestrator.ImportFinished{Success: true, Name: "demo"}))
	require.False(t, m.importing)
	require.Equal(t, []string{"Imported demo"}, m.notes)
}

func TestUpdateAsksForConfirmation(t *testing.T) {
	c := newFakeController()
	m := apply(t, NewModel("Import", c), confirmation("cb-1"))

	req, pending := m.Pending()
	require.True(t, pending)
	require.Equal(t, "cb-1", req.CallbackID)

	m = apply(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	_, pending = m.Pending()
	require.False(t, pending)
	accepted, answered := c.answer("cb-1")
	require.True(t, answered)
	require.True(t, accepted)
}

func TestUpdateDeclinesWithN(t *testing.T) {
	c := newFakeController()
	m := apply(t, NewModel("Import", c), confirmation("cb-2"), tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})

	accepted, answered := c.answer("cb-2")
	require.True(t, answered)
	require.False(t, accepted)
	_, pending := m.Pending()
	require.False(t, pending)
}

func TestUpdateAutoAnswers(t *testing.T) {
	c := newFakeController()
	m := apply(t, NewModel("Import", c, WithAutoAnswer(true)), confirmation("cb-3"))

	accepted, answered := c.answer("cb-3")
	require.True(t, answered)
	require.True(t, accepted)
	_, pending := m.Pending()
	require.False(t, pending)
}

func TestUpdateNonInteractiveDeclines(t *testing.T) {
	c := newFakeController()
	m := apply(t, NewModel("Import", c, NonInteractive()), confirmation("cb-4"))

	accepted, answered := c.answer("cb-4")
	require.True(t, answered)
	require.False(t, accepted)
	require.Contains(t, m.notes[0], "Declined to overwrite demo")
}

func TestUpdateCtrlCCancelsActiveImport(t *testing.T) {
	c := newFakeController()
	c.active = true
	m := apply(t, NewModel("Import", c), confirmation("cb-5"))

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m = updated.(Model)
	require.Nil(t, cmd)
	require.True(t, m.Cancelled())
	require.False(t, m.IsFinished())
	_, pending := m.Pending()
	require.False(t, pending)
	require.Equal(t, 1, c.cancels)
}

func TestUpdateCtrlCQuitsWhenIdle(t *testing.T) {
	updated, cmd := NewModel("Launch", nil).Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	m := updated.(Model)
	require.NotNil(t, cmd)
	require.True(t, m.Cancelled())
	require.True(t, m.IsFinished())
}

func TestUpdateTracksProvisioning(t *testing.T) {
	m := apply(t, NewModel("Launch", nil), event(ports.EventProvisionStarted, orchestrator.ProvisionStarted{Name: "demo"}))
	require.Equal(t, "demo", m.provisioning)

	m = apply(t, m,
		event(ports.EventProvisionFinished, orchestrator.ProvisionFinished{Name: "demo"}),
		event(ports.EventPluginLaunched, orchestrator.PluginLaunched{Name: "demo", PID: 42}),
	)
	require.Empty(t, m.provisioning)
	require.Equal(t, []string{"Provisioned demo", "Launched demo (pid 42)"}, m.notes)
}

func TestUpdateRecordsErrors(t *testing.T) {
	m := apply(t, NewModel("Launch", nil),
		event(ports.EventProvisionStarted, orchestrator.ProvisionStarted{Name: "demo"}),
		event(ports.EventProvisionError, orchestrator.ErrorReport{Title: "Tool Unavailable", Message: "uv not found"}),
	)
	require.Empty(t, m.provisioning)
	require.Len(t, m.Problems(), 1)
	require.Equal(t, "Tool Unavailable", m.Problems()[0].Title)
}

func TestUpdateDoneQuits(t *testing.T) {
	updated, cmd := NewModel("Export", nil).Update(DoneMsg{})
	require.NotNil(t, cmd)
	require.True(t, updated.(Model).IsFinished())
}

func TestUpdateSpinnerTick(t *testing.T) {
	m := NewModel("Launch", nil)
	_, cmd := m.Update(m.spinner.Tick())
	require.NotNil(t, cmd)
}

func TestUpdateIgnoresUnknownPayloads(t *testing.T) {
	m := apply(t, NewModel("Launch", nil), event("custom", 42), spinner.TickMsg{ID: -1})
	require.Empty(t, m.notes)
	require.Empty(t, m.Problems())
}
