package ui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/tdx/internal/auth"
	"github.com/desertthunder/tdx/internal/dashboard"
	"github.com/desertthunder/tdx/internal/services"
	"github.com/desertthunder/tdx/internal/session"
	tu "github.com/desertthunder/tdx/internal/testing"
)

type harness struct {
	ctx      context.Context
	fake     *tu.FakeAPI
	provider *auth.Provider
	ctrl     *dashboard.Controller
	model    *Model
	userID   string
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()

	fake := tu.NewFakeAPI(t)
	userID := fake.AddUser("ada@example.com", "pw")

	store := session.NewStore(tu.NewMemoryStorage(), nil)
	client := services.NewTaskClient(services.Options{BaseURL: fake.URL(), Token: store.Token})
	provider := auth.NewProvider(store, client, nil)
	ctrl := dashboard.NewController(provider, client, nil)
	ctx := auth.WithProvider(context.Background(), provider)

	return &harness{
		ctx:      ctx,
		fake:     fake,
		provider: provider,
		ctrl:     ctrl,
		model:    NewModel(ctx, ctrl, opts),
		userID:   userID,
	}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// press sends a key and runs the resulting command once, feeding its message back into the model.
func (h *harness) press(t *testing.T, s string) {
	t.Helper()
	_, cmd := h.model.Update(keyPress(s))
	if cmd == nil {
		return
	}
	if msg, ok := cmd().(Msg); ok {
		h.model.Update(msg)
	}
}

// signIn logs in directly through the provider and delivers the resulting auth state.
func (h *harness) signIn(t *testing.T) {
	t.Helper()
	h.provider.Init()
	if _, err := h.provider.Login(h.ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	h.model.Update(authChangedMsg(h.provider.State()))
	h.model.Update(tasksChangedMsg(h.ctrl.Mount(h.ctx)))
}

func TestNewModelRequiresProvider(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic without provider in context")
		}
	}()
	NewModel(context.Background(), nil, Options{})
}

func TestRouting(t *testing.T) {
	t.Run("starts loading", func(t *testing.T) {
		h := newHarness(t, Options{})
		if h.model.ViewState() != LoadingView {
			t.Errorf("expected LoadingView, got %v", h.model.ViewState())
		}
		if h.model.View() != "Loading..." {
			t.Errorf("unexpected view %q", h.model.View())
		}
	})

	t.Run("no session shows login", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.provider.Init()
		h.model.Update(authChangedMsg(h.provider.State()))

		if h.model.ViewState() != LoginView {
			t.Errorf("expected LoginView, got %v", h.model.ViewState())
		}
		if !strings.Contains(h.model.View(), "Sign in to tdx") {
			t.Error("expected login form")
		}
	})

	t.Run("session shows dashboard", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.fake.AddTask(h.userID, "Buy milk", false)
		h.signIn(t)

		if h.model.ViewState() != DashboardView {
			t.Fatalf("expected DashboardView, got %v", h.model.ViewState())
		}
		view := h.model.View()
		if !strings.Contains(view, "Welcome, ada@example.com") {
			t.Errorf("expected greeting in view:\n%s", view)
		}
		if !strings.Contains(view, "Buy milk") {
			t.Errorf("expected task in view:\n%s", view)
		}
	})

	t.Run("logout returns to login", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.signIn(t)

		h.model.Update(keyPress("L"))
		h.model.Update(authChangedMsg(h.provider.State()))

		if h.model.ViewState() != LoginView {
			t.Errorf("expected LoginView, got %v", h.model.ViewState())
		}
	})
}

func TestLoginForm(t *testing.T) {
	t.Run("requires both fields", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.provider.Init()
		h.model.Update(authChangedMsg(h.provider.State()))

		h.model.login.focus(1)
		h.press(t, "enter")

		if h.model.login.err == "" {
			t.Error("expected validation message")
		}
		if h.fake.Calls(tu.OpLogin) != 0 {
			t.Error("expected no login call")
		}
	})

	t.Run("wrong password shows error", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.provider.Init()
		h.model.Update(authChangedMsg(h.provider.State()))

		h.model.login.set("ada@example.com", "nope")
		h.model.login.focus(1)
		h.press(t, "enter")

		if !strings.Contains(h.model.View(), "Login failed") {
			t.Errorf("expected login error in view:\n%s", h.model.View())
		}
		if h.provider.State().User != nil {
			t.Error("expected no user")
		}
	})

	t.Run("success signs in", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.provider.Init()
		h.model.Update(authChangedMsg(h.provider.State()))

		h.model.login.set("ada@example.com", "pw")
		h.model.login.focus(1)
		h.press(t, "enter")

		if h.provider.State().User == nil {
			t.Fatal("expected provider signed in")
		}
		h.model.Update(authChangedMsg(h.provider.State()))
		if h.model.ViewState() != DashboardView {
			t.Errorf("expected DashboardView, got %v", h.model.ViewState())
		}
	})
}

func TestDashboardKeys(t *testing.T) {
	t.Run("toggle", func(t *testing.T) {
		h := newHarness(t, Options{})
		id := h.fake.AddTask(h.userID, "Buy milk", false)
		h.signIn(t)

		h.press(t, "x")

		task, _ := h.ctrl.Task(id)
		if !task.Completed {
			t.Error("expected task completed")
		}
		if !strings.Contains(h.model.View(), "[x] Buy milk") {
			t.Errorf("expected checked item in view:\n%s", h.model.View())
		}
	})

	t.Run("declined delete", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.fake.AddTask(h.userID, "Buy milk", false)
		h.signIn(t)

		h.press(t, "d")
		if h.model.ViewState() != ConfirmView {
			t.Fatalf("expected ConfirmView, got %v", h.model.ViewState())
		}
		if !strings.Contains(h.model.View(), dashboard.ConfirmDeletePrompt) {
			t.Error("expected confirmation prompt")
		}

		h.press(t, "n")
		if h.model.ViewState() != DashboardView {
			t.Errorf("expected DashboardView, got %v", h.model.ViewState())
		}
		if h.fake.Calls(tu.OpDelete) != 0 {
			t.Error("expected no delete call")
		}
	})

	t.Run("confirmed delete", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.fake.AddTask(h.userID, "Buy milk", false)
		h.signIn(t)

		h.press(t, "d")
		h.press(t, "y")

		if len(h.ctrl.Tasks()) != 0 {
			t.Error("expected task removed")
		}
		if !strings.Contains(h.model.View(), "No tasks yet") {
			t.Errorf("expected empty state:\n%s", h.model.View())
		}
	})

	t.Run("create", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.signIn(t)

		h.press(t, "a")
		if h.model.ViewState() != FormView {
			t.Fatalf("expected FormView, got %v", h.model.ViewState())
		}
		h.model.form.set("Buy milk", "2 liters")
		h.press(t, "enter")

		if h.model.ViewState() != DashboardView {
			t.Errorf("expected DashboardView, got %v", h.model.ViewState())
		}
		tasks := h.ctrl.Tasks()
		if len(tasks) != 1 || tasks[0].DescriptionOrEmpty() != "2 liters" {
			t.Errorf("unexpected tasks %+v", tasks)
		}
	})

	t.Run("create with blank title stays on form", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.signIn(t)

		h.press(t, "a")
		h.press(t, "enter")

		if h.model.ViewState() != FormView {
			t.Errorf("expected FormView, got %v", h.model.ViewState())
		}
		if !strings.Contains(h.model.View(), dashboard.MsgTitleRequired) {
			t.Errorf("expected validation message:\n%s", h.model.View())
		}
	})

	t.Run("edit", func(t *testing.T) {
		h := newHarness(t, Options{})
		id := h.fake.AddTask(h.userID, "Buy milk", false)
		h.signIn(t)

		h.press(t, "e")
		if h.ctrl.Editing() != id || h.model.form.title() != "Buy milk" {
			t.Fatalf("expected edit form seeded from task, got %q", h.model.form.title())
		}
		h.model.form.set("Buy oat milk", "")
		h.press(t, "enter")

		task, _ := h.ctrl.Task(id)
		if task.Title != "Buy oat milk" {
			t.Errorf("expected title updated, got %q", task.Title)
		}
		if h.ctrl.Editing() != "" {
			t.Error("expected edit slot cleared")
		}
	})

	t.Run("cancel edit", func(t *testing.T) {
		h := newHarness(t, Options{})
		h.fake.AddTask(h.userID, "Buy milk", false)
		h.signIn(t)

		h.press(t, "e")
		h.press(t, "esc")

		if h.ctrl.Editing() != "" || h.model.ViewState() != DashboardView {
			t.Error("expected edit cancelled")
		}
	})
}

func TestVerifyOption(t *testing.T) {
	h := newHarness(t, Options{Verify: true})
	h.provider.Init()
	if _, err := h.provider.Login(h.ctx, "ada@example.com", "pw"); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	h.fake.Fail(tu.OpVerify, 401)

	h.model.Update(verifiedMsg(h.provider.VerifyToken(h.ctx)))

	if h.provider.State().User != nil {
		t.Error("expected failed verification to sign out")
	}
	h.model.Update(authChangedMsg(h.provider.State()))
	if !strings.Contains(h.model.View(), "could not be verified") {
		t.Errorf("expected notice in view:\n%s", h.model.View())
	}
}

func TestAlreadyRestoredSession(t *testing.T) {
	fake := tu.NewFakeAPI(t)
	store := session.NewStore(tu.NewMemoryStorage(), nil)
	client := services.NewTaskClient(services.Options{BaseURL: fake.URL(), Token: store.Token})
	provider := auth.NewProvider(store, client, nil)
	provider.Init()

	ctx := auth.WithProvider(context.Background(), provider)
	model := NewModel(ctx, dashboard.NewController(provider, client, nil), Options{})

	msg := model.waitForAuth()()
	if msg == nil {
		t.Fatal("expected current auth state for an initialized provider")
	}
	model.Update(msg)

	if model.ViewState() != LoginView {
		t.Errorf("expected LoginView, got %v", model.ViewState())
	}
}
