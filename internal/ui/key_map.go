package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	tab     key.Binding
	yes     key.Binding
	no      key.Binding
	add     key.Binding
	edit    key.Binding
	toggle  key.Binding
	remove  key.Binding
	refresh key.Binding
	logout  key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		tab:     key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:      key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		edit:    key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		toggle:  key.NewBinding(key.WithKeys("x", " "), key.WithHelp("x", "toggle")),
		remove:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		refresh: key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		logout:  key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "logout")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.add, k.edit, k.toggle, k.remove},
		{k.refresh, k.logout, k.quit},
	}
}
