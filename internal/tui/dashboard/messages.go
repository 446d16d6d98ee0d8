package dashboard

import (
	"github.com/alexisbeaulieu97/plugdeck/internal/domain/plugin"
	"github.com/alexisbeaulieu97/plugdeck/internal/ports"
	"github.com/alexisbeaulieu97/plugdeck/internal/tui"
)

// ViewMode determines which screen to render
type ViewMode int

const (
	ViewList ViewMode = iota
	ViewDetail
	ViewHelp
)

// Events are the event types the dashboard reacts to.
var Events = append([]string{ports.EventScanCompleted}, tui.ActivityEvents...)

// PluginsLoadedMsg carries a fresh plugin list.
type PluginsLoadedMsg struct {
	Plugins []plugin.Plugin
}

// Action names reported in ActionDoneMsg.
const (
	ActionLaunch = "launch"
	ActionRun    = "run"
	ActionOpen   = "open"
	ActionManual = "manual"
	ActionRescan = "rescan"
)

// ActionDoneMsg reports that a service call returned. Err is set when the
// call failed synchronously; asynchronous failures arrive as events.
type ActionDoneMsg struct {
	Action string
	Name   string
	Err    error
}

// ClearErrorMsg requests error banner dismissal
type ClearErrorMsg struct{}
