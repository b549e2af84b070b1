package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tdx/internal/auth"
	"github.com/desertthunder/tdx/internal/dashboard"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	LoadingView ViewState = iota
	LoginView
	DashboardView
	FormView
	ConfirmView
)

// Options tunes TUI behaviour.
type Options struct {
	// Verify asks the service to confirm a restored session before showing the dashboard.
	Verify bool
}

// Model represents the TUI application state.
type Model struct {
	ctx      context.Context
	view     ViewState
	provider *auth.Provider
	ctrl     *dashboard.Controller
	authCh   <-chan auth.State
	opts     Options
	verified bool

	width    int
	height   int
	taskList list.Model
	login    loginForm
	form     taskForm
	deleting string
	notice   string

	help help.Model
	keys keyMap
}

// NewModel creates a TUI over ctrl. ctx must carry the [auth.Provider] the controller was built with.
func NewModel(ctx context.Context, ctrl *dashboard.Controller, opts Options) *Model {
	provider := auth.Use(ctx)

	taskList := list.New(nil, list.NewDefaultDelegate(), 80, 20)
	taskList.Title = "Your Tasks"
	taskList.SetShowHelp(false)

	return &Model{
		ctx:      ctx,
		view:     LoadingView,
		provider: provider,
		ctrl:     ctrl,
		authCh:   provider.Subscribe(),
		opts:     opts,
		taskList: taskList,
		login:    newLoginForm(),
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// ViewState returns the current view state.
func (m *Model) ViewState() ViewState {
	return m.view
}

// Init restores the session in the background and starts listening for auth changes.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.waitForAuth(), m.initSession())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.taskList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.view {
		case LoginView:
			return m.handleLoginKeys(msg)
		case DashboardView:
			return m.handleDashboardKeys(msg)
		case FormView:
			return m.handleFormKeys(msg)
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case LoadingView:
			if key.Matches(msg, m.keys.quit) {
				return m, tea.Quit
			}
		}
		return m, nil

	case Msg:
		return m.handleMsg(msg)
	}

	if m.view == DashboardView {
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgAuthChanged:
		return m, tea.Batch(m.waitForAuth(), m.onAuthChanged(msg.data.(auth.State)))

	case MsgLoginResult:
		if err := msg.err(); err != nil {
			m.login.err = fmt.Sprintf("Login failed: %v", err)
		}
		return m, nil

	case MsgVerified:
		if valid, _ := msg.data.(bool); !valid {
			m.notice = "Your session could not be verified. Please log in again."
			m.ctrl.Logout()
		}
		return m, nil

	case MsgTasksChanged:
		m.syncTasks()
		if m.view == ConfirmView || (m.view == FormView && msg.err() == nil) {
			m.view = DashboardView
		}
		return m, nil
	}
	return m, nil
}

// onAuthChanged routes between the login form and the dashboard.
func (m *Model) onAuthChanged(state auth.State) tea.Cmd {
	switch {
	case state.Loading:
		m.view = LoadingView
		return nil

	case state.User == nil:
		m.view = LoginView
		m.login = newLoginForm()
		m.syncTasks()
		return nil

	case m.view == LoadingView || m.view == LoginView:
		m.view = DashboardView
		cmds := []tea.Cmd{m.mount()}
		if m.opts.Verify && !m.verified {
			m.verified = true
			cmds = append(cmds, m.verifySession())
		}
		return tea.Batch(cmds...)
	}
	return nil
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		return m, tea.Quit
	case key.Matches(msg, m.keys.tab):
		m.login.next(msg.String() == "shift+tab")
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if m.login.focused == 0 {
			m.login.next(false)
			return m, nil
		}
		if m.login.email() == "" || m.login.password() == "" {
			m.login.err = "Email and password are required"
			return m, nil
		}
		m.login.err = ""
		m.notice = ""
		return m, m.submitLogin(m.login.email(), m.login.password())
	}
	return m, m.login.update(msg)
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.taskList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.add):
		draft := m.ctrl.Draft()
		m.form = newTaskForm("", draft.Title, draft.Description)
		m.view = FormView
		return m, nil
	case key.Matches(msg, m.keys.edit):
		if id := m.selectedID(); id != "" && m.ctrl.StartEdit(id) == nil {
			buf := m.ctrl.EditBuffer()
			m.form = newTaskForm(id, buf.Title, buf.Description)
			m.view = FormView
		}
		return m, nil
	case key.Matches(msg, m.keys.toggle):
		if id := m.selectedID(); id != "" {
			return m, m.toggle(id)
		}
		return m, nil
	case key.Matches(msg, m.keys.remove):
		if id := m.selectedID(); id != "" {
			m.deleting = id
			m.view = ConfirmView
		}
		return m, nil
	case key.Matches(msg, m.keys.refresh):
		return m, m.fetch()
	case key.Matches(msg, m.keys.back):
		m.ctrl.DismissError()
		m.notice = ""
		return m, nil
	case key.Matches(msg, m.keys.logout):
		m.ctrl.Logout()
		return m, nil
	}

	var cmd tea.Cmd
	m.taskList, cmd = m.taskList.Update(msg)
	return m, cmd
}

func (m *Model) handleFormKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		if m.form.editing != "" {
			m.ctrl.CancelEdit()
		}
		m.view = DashboardView
		return m, nil
	case key.Matches(msg, m.keys.tab):
		m.form.next(msg.String() == "shift+tab")
		return m, nil
	case key.Matches(msg, m.keys.enter):
		if m.form.editing != "" {
			m.ctrl.SetEditBuffer(m.form.title(), m.form.description())
			return m, m.saveEdit()
		}
		m.ctrl.SetDraft(m.form.title(), m.form.description())
		return m, m.create()
	}
	return m, m.form.update(msg)
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.yes):
		id := m.deleting
		m.deleting = ""
		return m, m.remove(id)
	case key.Matches(msg, m.keys.no), key.Matches(msg, m.keys.quit):
		m.deleting = ""
		m.view = DashboardView
	}
	return m, nil
}

func (m *Model) selectedID() string {
	if item, ok := m.taskList.SelectedItem().(taskItem); ok {
		return item.task.ID
	}
	return ""
}

func (m *Model) syncTasks() {
	m.taskList.SetItems(taskItems(m.ctrl.Tasks()))
}

func (m *Model) waitForAuth() tea.Cmd {
	return func() tea.Msg {
		state, ok := <-m.authCh
		if !ok {
			return nil
		}
		return authChangedMsg(state)
	}
}

func (m *Model) initSession() tea.Cmd {
	return func() tea.Msg {
		m.provider.Init()
		return nil
	}
}

func (m *Model) submitLogin(email, password string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.provider.Login(m.ctx, email, password)
		return loginResultMsg(err)
	}
}

func (m *Model) verifySession() tea.Cmd {
	return func() tea.Msg {
		return verifiedMsg(m.provider.VerifyToken(m.ctx))
	}
}

func (m *Model) mount() tea.Cmd {
	return func() tea.Msg {
		return tasksChangedMsg(m.ctrl.Mount(m.ctx))
	}
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		return tasksChangedMsg(m.ctrl.FetchTasks(m.ctx))
	}
}

func (m *Model) create() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.CreateTask(m.ctx)
		return tasksChangedMsg(err)
	}
}

func (m *Model) saveEdit() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.SaveEdit(m.ctx)
		return tasksChangedMsg(err)
	}
}

func (m *Model) toggle(id string) tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.ToggleComplete(m.ctx, id)
		return tasksChangedMsg(err)
	}
}

// remove runs after the user has answered the confirm view, so the controller's prompt is pre-answered.
func (m *Model) remove(id string) tea.Cmd {
	return func() tea.Msg {
		m.ctrl.DeleteTask(m.ctx, id, dashboard.AlwaysConfirm)
		return tasksChangedMsg(nil)
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case LoadingView:
		return "Loading..."
	case LoginView:
		return m.renderLogin()
	case DashboardView:
		return m.renderDashboard()
	case FormView:
		return m.renderForm()
	case ConfirmView:
		return m.renderConfirm()
	default:
		return ""
	}
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Sign in to tdx"))
	b.WriteString("\n")
	if m.notice != "" {
		b.WriteString(styles.warn.Render(m.notice))
		b.WriteString("\n\n")
	}
	b.WriteString(m.login.view())
	if m.login.err != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(m.login.err))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.tab, m.keys.enter, m.keys.back}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderHeader() string {
	var email string
	if user := m.provider.State().User; user != nil {
		email = user.Email
	}
	return fmt.Sprintf("%s  %s", styles.title.Render("Todo Dashboard"), styles.help.Render("Welcome, "+email))
}

func (m *Model) renderDashboard() string {
	snap := m.ctrl.Snapshot()

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	if snap.Error != "" {
		b.WriteString(styles.err.Render(snap.Error))
		b.WriteString(styles.help.Render("  (esc to dismiss)"))
		b.WriteString("\n\n")
	}

	switch {
	case snap.Loading && len(snap.Tasks) == 0:
		b.WriteString("Loading...\n")
	case len(snap.Tasks) == 0:
		b.WriteString("No tasks yet. Press a to add your first task!\n")
	default:
		b.WriteString(m.taskList.View())
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.add, m.keys.edit, m.keys.toggle, m.keys.remove, m.keys.refresh, m.keys.logout, m.keys.quit}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderForm() string {
	title := "New Task"
	if m.form.editing != "" {
		title = "Edit Task"
	}

	var b strings.Builder
	b.WriteString(styles.title.Render(title))
	b.WriteString("\n")
	b.WriteString(m.form.view())
	if errMsg := m.ctrl.Error(); errMsg != "" {
		b.WriteString("\n")
		b.WriteString(styles.err.Render(errMsg))
		b.WriteString("\n")
	}

	helpKeys := []key.Binding{m.keys.tab, m.keys.enter, m.keys.back}
	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderConfirm() string {
	task, _ := m.ctrl.Task(m.deleting)

	body := fmt.Sprintf("%s\n\n%s", styles.warn.Render(dashboard.ConfirmDeletePrompt), task.Title)
	helpKeys := []key.Binding{m.keys.yes, m.keys.no}
	return fmt.Sprintf("%s\n\n%s", styles.box.Render(body), m.help.ShortHelpView(helpKeys))
}
