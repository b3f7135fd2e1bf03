package main

import "github.com/charmbracelet/bubbles/key"

// monitorKeys holds the monitor's keyboard shortcuts.
type monitorKeys struct {
	Pause   key.Binding
	Release key.Binding
	Copy    key.Binding
	Help    key.Binding
	Quit    key.Binding
}

func defaultMonitorKeys() monitorKeys {
	return monitorKeys{
		Pause: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space/p", "pause or resume"),
		),
		Release: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "release all messages and blocks"),
		),
		Copy: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "copy stats as JSON"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q/esc", "quit"),
		),
	}
}

func (k monitorKeys) all() []key.Binding {
	return []key.Binding{k.Pause, k.Release, k.Copy, k.Help, k.Quit}
}
