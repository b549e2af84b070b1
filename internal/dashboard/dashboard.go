// Package dashboard holds the task list state behind the signed-in views.
//
// The [Controller] mirrors the service: every mutation waits for the canonical task the service returns and
// swaps it into the list by id. Remote failures are logged and surfaced through a single error slot that stays
// set until [Controller.DismissError] is called.
package dashboard

import (
	"context"
	"errors"
	"io"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/tdx/internal/auth"
	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/shared"
)

// Messages placed in the error slot.
const (
	MsgTitleRequired = "Title is required"
	MsgLoadFailed    = "Failed to load tasks"
	MsgCreateFailed  = "Failed to create task"
	MsgUpdateFailed  = "Failed to update task"
	MsgToggleFailed  = "Failed to update task status"
	MsgDeleteFailed  = "Failed to delete task"
)

// ConfirmDeletePrompt is shown before a task is deleted.
const ConfirmDeletePrompt = "Are you sure you want to delete this task?"

// TaskAPI is the task half of [services.TaskService].
type TaskAPI interface {
	ListTasks(ctx context.Context) ([]models.Task, error)
	CreateTask(ctx context.Context, draft models.TaskDraft) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// Confirmer asks the user a yes/no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to [Confirmer].
type ConfirmFunc func(prompt string) bool

func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// AlwaysConfirm accepts every prompt.
var AlwaysConfirm Confirmer = ConfirmFunc(func(string) bool { return true })

// EditBuffer holds the in-progress values of the task being edited.
type EditBuffer struct {
	Title       string
	Description string
}

// Snapshot is a copy of the controller state for rendering.
type Snapshot struct {
	Tasks     []models.Task
	Loading   bool
	Error     string
	EditingID string
	Draft     models.TaskDraft
}

// Controller manages the task list, new-task draft, single edit slot and error slot.
type Controller struct {
	provider *auth.Provider
	api      TaskAPI
	logger   *log.Logger

	mu        sync.Mutex
	tasks     []models.Task
	loading   bool
	errMsg    string
	draft     models.TaskDraft
	editingID string
	edit      EditBuffer
}

// NewController returns a controller in the loading state with an empty list.
func NewController(provider *auth.Provider, api TaskAPI, logger *log.Logger) *Controller {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Controller{
		provider: provider,
		api:      api,
		logger:   logger,
		tasks:    []models.Task{},
		loading:  true,
	}
}

// Mount fetches tasks once the provider has finished loading and holds a user.
func (c *Controller) Mount(ctx context.Context) error {
	state := c.provider.State()
	switch {
	case state.Loading:
		return shared.ErrSessionLoading
	case state.User == nil:
		return shared.ErrNotAuthenticated
	}
	return c.FetchTasks(ctx)
}

// FetchTasks replaces the list with the service's. On failure the previous list is kept.
func (c *Controller) FetchTasks(ctx context.Context) error {
	c.mu.Lock()
	c.loading = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.loading = false
		c.mu.Unlock()
	}()

	tasks, err := c.api.ListTasks(ctx)
	if err != nil {
		c.fail(MsgLoadFailed, err)
		return err
	}

	c.mu.Lock()
	c.tasks = slices.Clone(tasks)
	c.mu.Unlock()
	return nil
}

// SetDraft replaces the new-task draft.
func (c *Controller) SetDraft(title, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.draft = models.TaskDraft{Title: title, Description: description}
}

// Draft returns the new-task draft.
func (c *Controller) Draft() models.TaskDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// CreateTask submits the draft, appends the created task and clears the draft.
func (c *Controller) CreateTask(ctx context.Context) (*models.Task, error) {
	draft := c.Draft()
	if err := draft.Validate(); err != nil {
		c.setError(MsgTitleRequired)
		return nil, errors.Join(shared.ErrInvalidInput, err)
	}

	task, err := c.api.CreateTask(ctx, draft)
	if err != nil {
		c.fail(MsgCreateFailed, err)
		return nil, err
	}

	c.mu.Lock()
	c.tasks = append(c.tasks, *task)
	c.draft = models.TaskDraft{}
	c.mu.Unlock()
	return task, nil
}

// UpdateTask sends patch and swaps the returned task into the list.
func (c *Controller) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	return c.update(ctx, id, patch, MsgUpdateFailed)
}

// ToggleComplete flips the completion flag of the task with the given id.
func (c *Controller) ToggleComplete(ctx context.Context, id string) (*models.Task, error) {
	task, ok := c.Task(id)
	if !ok {
		return nil, shared.ErrTaskNotFound
	}
	return c.update(ctx, id, models.CompletedPatch(!task.Completed), MsgToggleFailed)
}

func (c *Controller) update(ctx context.Context, id string, patch models.TaskPatch, msg string) (*models.Task, error) {
	task, err := c.api.UpdateTask(ctx, id, patch)
	if err != nil {
		c.fail(msg, err)
		return nil, err
	}

	c.replace(id, *task)
	return task, nil
}

// DeleteTask asks confirm before deleting. It reports whether the task was removed.
func (c *Controller) DeleteTask(ctx context.Context, id string, confirm Confirmer) bool {
	if confirm == nil || !confirm.Confirm(ConfirmDeletePrompt) {
		return false
	}

	if err := c.api.DeleteTask(ctx, id); err != nil {
		c.fail(MsgDeleteFailed, err)
		return false
	}

	c.mu.Lock()
	c.tasks = slices.DeleteFunc(c.tasks, func(t models.Task) bool { return t.ID == id })
	if c.editingID == id {
		c.editingID = ""
		c.edit = EditBuffer{}
	}
	c.mu.Unlock()
	return true
}

// StartEdit puts the task with the given id in the edit slot, replacing whatever was there.
func (c *Controller) StartEdit(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.index(id)
	if idx < 0 {
		return shared.ErrTaskNotFound
	}

	task := c.tasks[idx]
	c.editingID = id
	c.edit = EditBuffer{Title: task.Title, Description: task.DescriptionOrEmpty()}
	return nil
}

// Editing returns the id in the edit slot, or "" when nothing is being edited.
func (c *Controller) Editing() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.editingID
}

// EditBuffer returns the in-progress edit values.
func (c *Controller) EditBuffer() EditBuffer {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.edit
}

// SetEditBuffer replaces the in-progress edit values. It has no effect when nothing is being edited.
func (c *Controller) SetEditBuffer(title, description string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editingID == "" {
		return
	}
	c.edit = EditBuffer{Title: title, Description: description}
}

// SaveEdit sends the edit buffer as an update and clears the slot on success.
func (c *Controller) SaveEdit(ctx context.Context) (*models.Task, error) {
	c.mu.Lock()
	id, buf := c.editingID, c.edit
	c.mu.Unlock()

	if id == "" {
		return nil, shared.ErrTaskNotFound
	}

	task, err := c.UpdateTask(ctx, id, models.EditPatch(buf.Title, buf.Description))
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.editingID == id {
		c.editingID = ""
		c.edit = EditBuffer{}
	}
	c.mu.Unlock()
	return task, nil
}

// CancelEdit clears the edit slot without saving.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.editingID = ""
	c.edit = EditBuffer{}
}

// Task returns a copy of the task with the given id.
func (c *Controller) Task(id string) (models.Task, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	idx := c.index(id)
	if idx < 0 {
		return models.Task{}, false
	}
	return c.tasks[idx], true
}

// Tasks returns a copy of the list.
func (c *Controller) Tasks() []models.Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.tasks)
}

// Loading reports whether a fetch is in flight or no fetch has completed yet.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Error returns the most recent failure message.
func (c *Controller) Error() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errMsg
}

// DismissError clears the error slot.
func (c *Controller) DismissError() {
	c.setError("")
}

// Snapshot returns a copy of the whole state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Tasks:     slices.Clone(c.tasks),
		Loading:   c.loading,
		Error:     c.errMsg,
		EditingID: c.editingID,
		Draft:     c.draft,
	}
}

// Logout signs out through the provider and resets the controller.
func (c *Controller) Logout() {
	c.provider.Logout()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = []models.Task{}
	c.draft = models.TaskDraft{}
	c.editingID = ""
	c.edit = EditBuffer{}
	c.errMsg = ""
	c.loading = true
}

func (c *Controller) replace(id string, task models.Task) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if idx := c.index(id); idx >= 0 {
		c.tasks[idx] = task
	}
}

// index must be called with c.mu held.
func (c *Controller) index(id string) int {
	return slices.IndexFunc(c.tasks, func(t models.Task) bool { return t.ID == id })
}

func (c *Controller) fail(msg string, err error) {
	c.logger.Error(msg, "error", err)
	c.setError(msg)
}

func (c *Controller) setError(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errMsg = msg
}
