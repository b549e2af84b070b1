package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tdx/internal/auth"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgAuthChanged MsgKind = iota
	MsgLoginResult
	MsgVerified
	MsgTasksChanged
)

// authChangedMsg is the constructor for [MsgAuthChanged]
func authChangedMsg(state auth.State) Msg {
	return Msg{kind: MsgAuthChanged, data: state}
}

// loginResultMsg is the constructor for [MsgLoginResult]
func loginResultMsg(err error) Msg {
	return Msg{kind: MsgLoginResult, data: err}
}

// verifiedMsg is the constructor for [MsgVerified]
func verifiedMsg(valid bool) Msg {
	return Msg{kind: MsgVerified, data: valid}
}

// tasksChangedMsg is the constructor for [MsgTasksChanged]. The controller already holds the new state;
// err is only used to decide whether to close the form.
func tasksChangedMsg(err error) Msg {
	return Msg{kind: MsgTasksChanged, data: err}
}

func (m Msg) err() error {
	err, _ := m.data.(error)
	return err
}
