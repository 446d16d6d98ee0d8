package tui

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/alexisbeaulieu97/plugdeck/internal/app/orchestrator"
	"github.com/alexisbeaulieu97/plugdeck/internal/infrastructure/events"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

type testEvent struct {
	eventType string
	payload   interface{}
}

func (e testEvent) EventType() string    { return e.eventType }
func (e testEvent) Payload() interface{} { return e.payload }

func TestSubscribeForwardsActivityEvents(t *testing.T) {
	pub := events.NewLoggingPublisher(nil)
	var got []tea.Msg
	unsubscribe, err := Subscribe(pub, func(msg tea.Msg) { got = append(got, msg) })
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, pub.Publish(ctx, testEvent{ports.EventProvisionStarted, orchestrator.ProvisionStarted{Name: "demo"}}))
	require.NoError(t, pub.Publish(ctx, testEvent{ports.EventScanCompleted, orchestrator.ScanCompleted{Count: 1}}))
	require.Len(t, got, 1)
	require.Equal(t, EventMsg{Type: ports.EventProvisionStarted, Payload: orchestrator.ProvisionStarted{Name: "demo"}}, got[0])

	unsubscribe()
	require.NoError(t, pub.Publish(ctx, testEvent{ports.EventProvisionStarted, orchestrator.ProvisionStarted{Name: "demo"}}))
	require.Len(t, got, 1)
}

func TestDispatcherUpdatesStateWithoutProgram(t *testing.T) {
	d := NewDispatcher(nil, NewModel("Launch", nil))

	d.Send(EventMsg{Type: ports.EventPluginLaunched, Payload: orchestrator.PluginLaunched{Name: "demo", PID: 7}})
	d.Send(DoneMsg{})

	state := d.State()
	require.True(t, state.IsFinished())
	require.Contains(t, state.View(), "Launched demo (pid 7)")
}
