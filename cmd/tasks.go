package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/desertthunder/tdx/internal/auth"
	"github.com/desertthunder/tdx/internal/bulk"
	"github.com/desertthunder/tdx/internal/dashboard"
	"github.com/desertthunder/tdx/internal/formatter"
	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/shared"
	"github.com/urfave/cli/v3"
)

func requireArg(cmd *cli.Command, name string) (string, error) {
	v := cmd.StringArg(name)
	if v == "" {
		return "", fmt.Errorf("%w: %s", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// TasksList prints the signed-in user's tasks.
func (r *Runner) TasksList(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	tasks := r.ctrl.Tasks()
	if cmd.Bool("json") {
		return r.writeJSON(tasks, cmd.Bool("pretty"))
	}

	if len(tasks) == 0 {
		return r.writePlain("No tasks found.\n")
	}

	for _, task := range tasks {
		r.writePlain("%s\n", task.String())
	}
	return nil
}

// TasksShow fetches a single task from the service.
func (r *Runner) TasksShow(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	task, err := r.client.GetTask(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to get task %s: %w", id, err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(task, true)
	}

	r.writePlainHeader(task.Title)
	r.writePlain("ID:          %s\n", task.ID)
	r.writePlain("Completed:   %t\n", task.Completed)
	if d := task.DescriptionOrEmpty(); d != "" {
		r.writePlain("Description: %s\n", d)
	}
	if task.CreatedAt != nil {
		r.writePlain("Created:     %s\n", task.CreatedAt.Local().Format(time.DateTime))
	}
	if task.UpdatedAt != nil {
		r.writePlain("Updated:     %s\n", task.UpdatedAt.Local().Format(time.DateTime))
	}
	return nil
}

// TasksAdd creates a task from the title argument.
func (r *Runner) TasksAdd(ctx context.Context, cmd *cli.Command) error {
	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	r.ctrl.SetDraft(cmd.StringArg("title"), cmd.String("description"))
	task, err := r.ctrl.CreateTask(ctx)
	if err != nil {
		return r.controllerError(err)
	}

	return r.writePlain("✓ Created %s\n", task.String())
}

// TasksUpdate changes the title and/or description of a task.
func (r *Runner) TasksUpdate(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}

	var patch models.TaskPatch
	if cmd.IsSet("title") {
		title := cmd.String("title")
		if err := (models.TaskDraft{Title: title}).Validate(); err != nil {
			return fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		}
		patch.Title = &title
	}
	if cmd.IsSet("description") {
		patch.Description = models.Ptr(cmd.String("description"))
	}
	if patch.IsEmpty() {
		return fmt.Errorf("%w: --title or --description", shared.ErrMissingArgument)
	}

	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	task, err := r.ctrl.UpdateTask(ctx, id, patch)
	if err != nil {
		return r.controllerError(err)
	}
	return r.writePlain("✓ Updated %s\n", task.String())
}

// TasksDone marks a task completed.
func (r *Runner) TasksDone(ctx context.Context, cmd *cli.Command) error {
	return r.setCompleted(ctx, cmd, true)
}

// TasksUndone marks a task not completed.
func (r *Runner) TasksUndone(ctx context.Context, cmd *cli.Command) error {
	return r.setCompleted(ctx, cmd, false)
}

func (r *Runner) setCompleted(ctx context.Context, cmd *cli.Command, completed bool) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	task, err := r.ctrl.UpdateTask(ctx, id, models.CompletedPatch(completed))
	if err != nil {
		return r.controllerError(err)
	}
	return r.writePlain("✓ %s\n", task.String())
}

// TasksToggle flips completion based on the task's current state.
func (r *Runner) TasksToggle(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	task, err := r.ctrl.ToggleComplete(ctx, id)
	if err != nil {
		return r.controllerError(err)
	}
	return r.writePlain("✓ %s\n", task.String())
}

// TasksRemove deletes a task after confirmation.
func (r *Runner) TasksRemove(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	task, ok := r.ctrl.Task(id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrTaskNotFound, id)
	}

	var confirm dashboard.Confirmer = r
	if cmd.Bool("yes") {
		confirm = dashboard.AlwaysConfirm
	} else {
		r.writePlain("%s\n", task.String())
	}

	if !r.ctrl.DeleteTask(ctx, id, confirm) {
		if msg := r.ctrl.Error(); msg != "" {
			return fmt.Errorf("%s: %w", msg, shared.ErrAPIRequest)
		}
		return r.writePlain("Cancelled\n")
	}
	return r.writePlain("✓ Deleted %s\n", id)
}

// TasksExport writes all tasks in the chosen format.
func (r *Runner) TasksExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	ctx, err = r.withDashboard(ctx)
	if err != nil {
		return err
	}

	export := &formatter.TaskExport{
		Owner:      auth.Use(ctx).State().User.Email,
		ExportedAt: time.Now(),
		Tasks:      r.ctrl.Tasks(),
	}

	if cmd.String("output") == "-" {
		data, err := formatter.Export(export, format)
		if err != nil {
			return err
		}
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}

	path, err := formatter.WriteExport(export, format, cmd.String("output"))
	if err != nil {
		return err
	}

	r.logger.Info("exported tasks", "count", len(export.Tasks), "path", path)
	return r.writePlain("✓ Exported %d tasks to %s\n", len(export.Tasks), path)
}

// TasksImport creates tasks from a CSV file, printing progress as rows finish.
func (r *Runner) TasksImport(ctx context.Context, cmd *cli.Command) error {
	path, err := requireArg(cmd, "file")
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	rows, err := bulk.ReadCSV(f)
	if err != nil {
		return err
	}

	if _, err := r.withDashboard(ctx); err != nil {
		return err
	}

	progress := make(chan bulk.ProgressUpdate, 16)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for update := range progress {
			if update.Phase == bulk.CreateTasks {
				r.writePlain("[%d/%d] %s\n", update.Step, update.Total, update.Message)
			} else {
				r.logger.Info(update.Message)
			}
		}
	}()

	result, err := bulk.Import(ctx, progress, r.client, rows, bulk.Opts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	close(progress)
	wg.Wait()
	if err != nil {
		return err
	}

	r.writePlainln("Imported %d of %d tasks (%d failed)", result.Created, result.Total, result.Failed)
	if errs := result.Errors(); errs != nil {
		r.logger.Warn("some rows failed", "error", errs)
		if result.Created == 0 {
			return errors.Join(shared.ErrAPIRequest, errs)
		}
	}
	return nil
}
