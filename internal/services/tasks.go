package services

import (
	"context"
	"net/http"
	"net/url"

	"github.com/desertthunder/tdx/internal/models"
)

type createTaskBody struct {
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// ListTasks calls GET /tasks/ and returns every task owned by the session user.
func (c *TaskClient) ListTasks(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := c.doRequest(ctx, request{method: http.MethodGet, endpoint: "/tasks/", authed: true}, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []models.Task{}
	}
	return tasks, nil
}

// GetTask calls GET /tasks/{id}.
func (c *TaskClient) GetTask(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := c.doRequest(ctx, request{method: http.MethodGet, endpoint: taskPath(id), authed: true}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CreateTask calls POST /tasks/. An empty description is omitted from the body.
func (c *TaskClient) CreateTask(ctx context.Context, draft models.TaskDraft) (*models.Task, error) {
	body := createTaskBody{Title: draft.Title}
	if draft.Description != "" {
		body.Description = &draft.Description
	}

	var task models.Task
	if err := c.doRequest(ctx, request{method: http.MethodPost, endpoint: "/tasks/", body: body, authed: true}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateTask calls PUT /tasks/{id} with only the fields set in patch.
func (c *TaskClient) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	var task models.Task
	if err := c.doRequest(ctx, request{method: http.MethodPut, endpoint: taskPath(id), body: patch, authed: true}, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// DeleteTask calls DELETE /tasks/{id}.
func (c *TaskClient) DeleteTask(ctx context.Context, id string) error {
	return c.doRequest(ctx, request{method: http.MethodDelete, endpoint: taskPath(id), authed: true}, nil)
}

func taskPath(id string) string {
	return "/tasks/" + url.PathEscape(id)
}
