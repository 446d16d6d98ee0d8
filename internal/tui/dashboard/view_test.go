package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui"
)

func TestListViewRendersPlugins(t *testing.T) {
	m, _ := newTestModel(t)
	m.height = 40

	view := m.View()
	assert.Contains(t, view, "3 plugin(s)")
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "Second plugin")
	assert.Contains(t, view, "tools")
	assert.Contains(t, view, "l: launch")
}

func TestListViewEmptyState(t *testing.T) {
	m := NewModel(context.Background(), &fakeService{})
	assert.Contains(t, m.View(), "No plugins installed yet.")
}

func TestListViewScrollIndicators(t *testing.T) {
	m, _ := newTestModel(t)
	m.height = 12
	view := m.View()
	assert.Contains(t, view, "More below")
}

func TestDetailViewRendersMetadata(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, key("enter"))

	view := m.View()
	assert.Contains(t, view, "/plugins/alpha")
	assert.Contains(t, view, "First plugin")
	assert.Contains(t, view, "hello")
	assert.Contains(t, view, "Say hello")
	assert.Contains(t, view, "guide.pdf")
}

func TestDetailViewFlagsMissingEntryFile(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, key("j"))
	m = send(t, m, key("j"))
	m = send(t, m, key("enter"))

	assert.Contains(t, m.View(), "missing main.py")
}

func TestHelpViewListsBindings(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, key("?"))
	assert.Contains(t, m.View(), "Keyboard shortcuts")
	assert.Contains(t, m.View(), "Re-provision then launch")
}

func TestHeaderShowsLastEvent(t *testing.T) {
	m, _ := newTestModel(t)
	m = send(t, m, tui.EventMsg{Type: ports.EventPluginLaunched, Payload: orchestrator.PluginLaunched{Name: "alpha", PID: 99}})
	assert.Contains(t, m.View(), "Launched alpha (pid 99)")
}
