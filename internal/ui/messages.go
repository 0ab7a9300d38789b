package ui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/abelbrown/newsdesk/internal/live"
)

// loopEventMsg wraps one refresh loop event for the update cycle.
type loopEventMsg struct {
	event live.Event
}

// eventsClosedMsg signals that the loop closed the subscription.
type eventsClosedMsg struct{}

// waitForEvent blocks on the subscription channel and converts the
// next event into a message. Re-issued after every delivery.
func waitForEvent(ch <-chan live.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-ch
		if !ok {
			return eventsClosedMsg{}
		}
		return loopEventMsg{event: e}
	}
}
