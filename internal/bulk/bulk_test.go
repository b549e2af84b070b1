package bulk

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/services"
	"github.com/desertthunder/tdx/internal/shared"
	tu "github.com/desertthunder/tdx/internal/testing"
)

type memoryCreator struct {
	mu      sync.Mutex
	tasks   map[string]*models.Task
	failFor string
	creates int
	updates int
}

func newMemoryCreator() *memoryCreator {
	return &memoryCreator{tasks: map[string]*models.Task{}}
}

func (m *memoryCreator) CreateTask(ctx context.Context, draft models.TaskDraft) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if draft.Title == m.failFor {
		return nil, errors.New("boom")
	}
	task := &models.Task{ID: fmt.Sprintf("t%d", m.creates), Title: draft.Title}
	if draft.Description != "" {
		task.Description = models.Ptr(draft.Description)
	}
	m.tasks[task.ID] = task
	return task, nil
}

func (m *memoryCreator) UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
	task := m.tasks[id]
	if patch.Completed != nil {
		task.Completed = *patch.Completed
	}
	cp := *task
	return &cp, nil
}

func TestReadCSV(t *testing.T) {
	t.Run("export layout", func(t *testing.T) {
		input := "ID,Title,Description,Completed,CreatedAt,UpdatedAt\n" +
			"1,Buy milk,2 liters,false,,\n" +
			"2,\"Write report, draft\",,true,,\n"

		rows, err := ReadCSV(strings.NewReader(input))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 rows, got %d", len(rows))
		}
		if rows[0].Draft.Title != "Buy milk" || rows[0].Draft.Description != "2 liters" || rows[0].Completed {
			t.Errorf("unexpected first row %+v", rows[0])
		}
		if rows[1].Draft.Title != "Write report, draft" || !rows[1].Completed || rows[1].Line != 3 {
			t.Errorf("unexpected second row %+v", rows[1])
		}
	})

	t.Run("title only, any case", func(t *testing.T) {
		rows, err := ReadCSV(strings.NewReader("TITLE\nfirst\nsecond\n"))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}
		if len(rows) != 2 || rows[1].Draft.Title != "second" {
			t.Errorf("unexpected rows %+v", rows)
		}
	})

	errCases := []struct {
		name  string
		input string
	}{
		{"empty file", ""},
		{"missing title column", "Name,Description\na,b\n"},
		{"bad completed value", "Title,Completed\na,maybe\n"},
	}

	for _, tt := range errCases {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ReadCSV(strings.NewReader(tt.input)); !errors.Is(err, shared.ErrInvalidInput) {
				t.Errorf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestImport(t *testing.T) {
	ctx := context.Background()
	fast := Opts{NumWorkers: 3, RateLimit: 1000}

	t.Run("creates every row in order", func(t *testing.T) {
		api := newMemoryCreator()
		rows := []Row{
			{Line: 2, Draft: models.TaskDraft{Title: "a"}},
			{Line: 3, Draft: models.TaskDraft{Title: "b", Description: "desc"}},
			{Line: 4, Draft: models.TaskDraft{Title: "c"}, Completed: true},
		}
		prog := make(chan ProgressUpdate, 10)

		result, err := Import(ctx, prog, api, rows, fast)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if result.Total != 3 || result.Created != 3 || result.Failed != 0 {
			t.Errorf("unexpected counts %+v", result)
		}
		for i, res := range result.Results {
			if res.Row.Line != rows[i].Line {
				t.Errorf("result %d out of order: line %d", i, res.Row.Line)
			}
		}
		if !result.Results[2].Task.Completed {
			t.Error("expected completed row to be patched")
		}
		if api.updates != 1 {
			t.Errorf("expected 1 update, got %d", api.updates)
		}
		if result.Errors() != nil {
			t.Errorf("expected no errors, got %v", result.Errors())
		}

		close(prog)
		var phases []Phase
		for u := range prog {
			phases = append(phases, u.Phase)
		}
		if len(phases) != 4 || phases[0] != ReadRows {
			t.Errorf("unexpected progress phases %v", phases)
		}
	})

	t.Run("reports row failures", func(t *testing.T) {
		api := newMemoryCreator()
		api.failFor = "bad"
		rows := []Row{
			{Line: 2, Draft: models.TaskDraft{Title: "ok"}},
			{Line: 3, Draft: models.TaskDraft{Title: "bad"}},
			{Line: 4, Draft: models.TaskDraft{Title: "  "}},
		}

		result, err := Import(ctx, nil, api, rows, fast)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if result.Created != 1 || result.Failed != 2 {
			t.Errorf("unexpected counts %+v", result)
		}
		if !errors.Is(result.Results[2].Err, shared.ErrInvalidInput) {
			t.Errorf("expected validation error, got %v", result.Results[2].Err)
		}
		if api.creates != 2 {
			t.Errorf("blank title must not reach the service, got %d creates", api.creates)
		}
		if err := result.Errors(); err == nil || !strings.Contains(err.Error(), "line 3") {
			t.Errorf("expected joined error mentioning line 3, got %v", err)
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		rows := []Row{{Line: 2, Draft: models.TaskDraft{Title: "a"}}}
		result, err := Import(cctx, nil, newMemoryCreator(), rows, fast)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if result.Created != 0 || result.Failed != 1 {
			t.Errorf("expected all rows failed, got %+v", result)
		}
	})

	t.Run("nil service", func(t *testing.T) {
		if _, err := Import(ctx, nil, nil, nil, fast); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("against service", func(t *testing.T) {
		fake := tu.NewFakeAPI(t)
		userID := fake.AddUser("ada@example.com", "pw")
		token := tu.MustToken(t, userID, "ada@example.com")
		client := services.NewTaskClient(services.Options{
			BaseURL: fake.URL(),
			Token:   func() (string, bool) { return token, true },
		})

		rows, err := ReadCSV(strings.NewReader("Title,Completed\none,false\ntwo,true\n"))
		if err != nil {
			t.Fatalf("ReadCSV failed: %v", err)
		}

		result, err := Import(ctx, nil, client, rows, fast)
		if err != nil {
			t.Fatalf("Import failed: %v", err)
		}
		if result.Created != 2 {
			t.Fatalf("expected 2 created, got %+v (%v)", result, result.Errors())
		}
		if fake.TaskCount(userID) != 2 {
			t.Errorf("expected 2 tasks on the service, got %d", fake.TaskCount(userID))
		}
		if fake.Calls(tu.OpUpdate) != 1 {
			t.Errorf("expected 1 completion patch, got %d", fake.Calls(tu.OpUpdate))
		}
	})
}
