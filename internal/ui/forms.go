package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// fieldGroup is a vertical stack of text inputs with a single focused field.
type fieldGroup struct {
	inputs  []textinput.Model
	focused int
}

func newFieldGroup(placeholders ...string) fieldGroup {
	g := fieldGroup{inputs: make([]textinput.Model, len(placeholders))}
	for i, p := range placeholders {
		in := textinput.New()
		in.Placeholder = p
		in.CharLimit = 256
		in.Width = 48
		g.inputs[i] = in
	}
	g.focus(0)
	return g
}

func (g *fieldGroup) focus(i int) {
	g.focused = i
	for j := range g.inputs {
		if j == i {
			g.inputs[j].Focus()
		} else {
			g.inputs[j].Blur()
		}
	}
}

func (g *fieldGroup) next(reverse bool) {
	n := len(g.inputs)
	if reverse {
		g.focus((g.focused + n - 1) % n)
	} else {
		g.focus((g.focused + 1) % n)
	}
}

func (g *fieldGroup) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	g.inputs[g.focused], cmd = g.inputs[g.focused].Update(msg)
	return cmd
}

func (g fieldGroup) value(i int) string {
	return strings.TrimSpace(g.inputs[i].Value())
}

func (g *fieldGroup) set(values ...string) {
	for i, v := range values {
		if i < len(g.inputs) {
			g.inputs[i].SetValue(v)
		}
	}
}

func (g fieldGroup) view() string {
	var b strings.Builder
	for _, in := range g.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	return b.String()
}

// loginForm collects credentials.
type loginForm struct {
	fieldGroup
	err string
}

func newLoginForm() loginForm {
	f := loginForm{fieldGroup: newFieldGroup("Email", "Password")}
	f.inputs[1].EchoMode = textinput.EchoPassword
	f.inputs[1].EchoCharacter = '•'
	return f
}

func (f loginForm) email() string    { return f.value(0) }
func (f loginForm) password() string { return f.inputs[1].Value() }

// taskForm edits a title and description. editing holds the task id, or "" for a new task.
type taskForm struct {
	fieldGroup
	editing string
}

func newTaskForm(editing, title, description string) taskForm {
	f := taskForm{fieldGroup: newFieldGroup("Task title", "Description (optional)"), editing: editing}
	f.set(title, description)
	return f
}

func (f taskForm) title() string       { return f.value(0) }
func (f taskForm) description() string { return f.value(1) }
