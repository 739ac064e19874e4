package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap implements help.KeyMap.
type keyMap struct {
	Quit      key.Binding
	Help      key.Binding
	Range     key.Binding
	NextRange key.Binding
	PrevRange key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Range, k.PrevRange, k.NextRange, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Range, k.PrevRange, k.NextRange},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Range:     key.NewBinding(key.WithKeys("1", "2", "3", "4", "5", "6", "7"), key.WithHelp("1-7", "range")),
	NextRange: key.NewBinding(key.WithKeys("]", "+", "right"), key.WithHelp("]", "wider")),
	PrevRange: key.NewBinding(key.WithKeys("[", "-", "left"), key.WithHelp("[", "narrower")),
}
