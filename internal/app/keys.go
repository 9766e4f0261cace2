package app

import "github.com/charmbracelet/bubbles/key"

type KeyMap struct {
	Help key.Binding
	Quit key.Binding
}

var GlobalKeys = KeyMap{
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}
