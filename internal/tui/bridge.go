package tui

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
)

// ActivityEvents are the event types a Model understands.
var ActivityEvents = []string{
	ports.EventImportStarted,
	ports.EventImportProgress,
	ports.EventConfirmationRequested,
	ports.EventImportFinished,
	ports.EventProvisionStarted,
	ports.EventProvisionFinished,
	ports.EventProvisionError,
	ports.EventPluginLaunched,
	ports.EventExportFinished,
	ports.EventErrorOccurred,
}

// Subscribe forwards every activity event published on pub to send. The
// returned func removes the subscriptions.
func Subscribe(pub ports.EventPublisher, send func(tea.Msg)) (func(), error) {
	subs := make([]ports.Subscription, 0, len(ActivityEvents))
	unsubscribe := func() {
		for _, s := range subs {
			s.Unsubscribe()
		}
	}
	for _, eventType := range ActivityEvents {
		sub, err := pub.Subscribe(eventType, func(_ context.Context, e ports.DomainEvent) error {
			send(EventMsg{Type: e.EventType(), Payload: e.Payload()})
			return nil
		})
		if err != nil {
			unsubscribe()
			return nil, err
		}
		subs = append(subs, sub)
	}
	return unsubscribe, nil
}

// Dispatcher delivers messages either to a running program or, without a
// terminal, straight into a model that is rendered once at the end.
type Dispatcher struct {
	mu      sync.Mutex
	program *tea.Program
	state   Model
}

// NewDispatcher returns a dispatcher. program may be nil for non-interactive
// output.
func NewDispatcher(program *tea.Program, state Model) *Dispatcher {
	return &Dispatcher{program: program, state: state}
}

// Send delivers msg.
func (d *Dispatcher) Send(msg tea.Msg) {
	if d.program != nil {
		d.program.Send(msg)
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	updated, _ := d.state.Update(msg)
	if m, ok := updated.(Model); ok {
		d.state = m
	}
}

// State returns the model as last updated by Send.
func (d *Dispatcher) State() Model {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}
