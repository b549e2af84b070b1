package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Task is the service's canonical representation of a task.
type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description,omitempty"`
	Completed   bool       `json:"completed"`
	UserID      string     `json:"user_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
	UpdatedAt   *time.Time `json:"updated_at,omitempty"`
}

// UnmarshalJSON accepts numeric as well as string ids and timestamps without a zone.
func (t *Task) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		Title       string          `json:"title"`
		Description *string         `json:"description"`
		Completed   bool            `json:"completed"`
		UserID      json.RawMessage `json:"user_id"`
		CreatedAt   string          `json:"created_at"`
		UpdatedAt   string          `json:"updated_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*t = Task{
		ID:          rawID(raw.ID),
		Title:       raw.Title,
		Description: raw.Description,
		Completed:   raw.Completed,
		UserID:      rawID(raw.UserID),
		CreatedAt:   parseTimestamp(raw.CreatedAt),
		UpdatedAt:   parseTimestamp(raw.UpdatedAt),
	}
	return nil
}

// DescriptionOrEmpty returns the description or "" when unset.
func (t Task) DescriptionOrEmpty() string {
	if t.Description == nil {
		return ""
	}
	return *t.Description
}

// StatusMark is "X" for completed tasks and "O" otherwise.
func (t Task) StatusMark() string {
	if t.Completed {
		return "X"
	}
	return "O"
}

// String renders the task as "[X] id: title - description".
func (t Task) String() string {
	return fmt.Sprintf("[%s] %s: %s - %s", t.StatusMark(), t.ID, t.Title, t.DescriptionOrEmpty())
}

// TaskDraft is the payload for creating a task.
type TaskDraft struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// Validate requires a non-blank title.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("title is required")
	}
	return nil
}

// IsZero reports whether the draft is empty.
func (d TaskDraft) IsZero() bool {
	return d.Title == "" && d.Description == ""
}

// TaskPatch is a partial update. Nil fields are left untouched by the service.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Completed == nil
}

// CompletedPatch builds the patch used by the completion toggle.
func CompletedPatch(completed bool) TaskPatch {
	return TaskPatch{Completed: &completed}
}

// EditPatch builds the patch sent when saving an edit.
func EditPatch(title, description string) TaskPatch {
	return TaskPatch{Title: &title, Description: &description}
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return &ts
		}
	}
	return nil
}
