package search

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	open       key.Binding
	back       key.Binding
	copyPath   key.Binding
	cycleScope key.Binding
	reindex    key.Binding
	up         key.Binding
	down       key.Binding
	quit       key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		open: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("↵", "preview"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		copyPath: key.NewBinding(
			key.WithKeys("ctrl+y"),
			key.WithHelp("ctrl+y", "copy path"),
		),
		cycleScope: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "scope"),
		),
		reindex: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reindex"),
		),
		up: key.NewBinding(
			key.WithKeys("up", "ctrl+p"),
			key.WithHelp("↑", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "ctrl+n"),
			key.WithHelp("↓", "down"),
		),
		quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

func (k keyMap) shortHelp() []key.Binding {
	return []key.Binding{k.open, k.copyPath, k.cycleScope, k.reindex, k.back}
}
