package bulk

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/shared"
	"golang.org/x/time/rate"
)

// TaskCreator is the part of the service an import needs.
type TaskCreator interface {
	CreateTask(ctx context.Context, draft models.TaskDraft) (*models.Task, error)
	UpdateTask(ctx context.Context, id string, patch models.TaskPatch) (*models.Task, error)
}

// Row is one task read from the input.
type Row struct {
	Line      int
	Draft     models.TaskDraft
	Completed bool
}

// Opts configures [Import].
type Opts struct {
	NumWorkers int     // Concurrent workers (default: 4, max: 10)
	RateLimit  float64 // Requests per second across all workers (default: 5)
}

// RowResult is the outcome for a single row.
type RowResult struct {
	Row  Row
	Task *models.Task
	Err  error
}

// Result summarises an import.
type Result struct {
	Total   int
	Created int
	Failed  int
	Results []RowResult
}

// Errors joins every row error, or returns nil when all rows succeeded.
func (r *Result) Errors() error {
	var errs []error
	for _, res := range r.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("line %d: %w", res.Row.Line, res.Err))
		}
	}
	return errors.Join(errs...)
}

// ReadCSV parses rows from r. See the package documentation for the accepted columns.
func ReadCSV(r io.Reader) ([]Row, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: empty CSV file", shared.ErrInvalidInput)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header: %w", err)
	}

	cols := map[string]int{}
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}

	titleCol, ok := cols["title"]
	if !ok {
		return nil, fmt.Errorf("%w: CSV header has no Title column", shared.ErrInvalidInput)
	}
	descCol, hasDesc := cols["description"]
	doneCol, hasDone := cols["completed"]

	field := func(record []string, i int) string {
		if i < len(record) {
			return strings.TrimSpace(record[i])
		}
		return ""
	}

	var rows []Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d: %w", line, err)
		}

		row := Row{Line: line, Draft: models.TaskDraft{Title: field(record, titleCol)}}
		if hasDesc {
			row.Draft.Description = field(record, descCol)
		}
		if hasDone {
			if v := field(record, doneCol); v != "" {
				done, err := strconv.ParseBool(v)
				if err != nil {
					return nil, fmt.Errorf("%w: line %d: invalid Completed value %q", shared.ErrInvalidInput, line, v)
				}
				row.Completed = done
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

type job struct {
	index int
	row   Row
}

// Import creates a task for every row using a pool of rate-limited workers.
//
// Rows marked completed are created and then patched, since the service ignores completion on create.
// The returned error is non-nil only when the import could not run at all; per-row failures are in the result.
func Import(ctx context.Context, prog chan<- ProgressUpdate, api TaskCreator, rows []Row, opts Opts) (*Result, error) {
	if api == nil {
		return nil, fmt.Errorf("%w: task service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 4
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &Result{Total: len(rows), Results: make([]RowResult, len(rows))}
	sendProgress(prog, readRowsUpdate(len(rows)))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan job)
	results := make(chan job)
	outcomes := make([]RowResult, len(rows))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				outcomes[j.index] = importRow(ctx, api, limiter, j.row)
				results <- j
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, row := range rows {
			select {
			case <-ctx.Done():
				return
			case jobs <- job{index: i, row: row}:
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	seen := make([]bool, len(rows))
	step := 0
	for j := range results {
		step++
		seen[j.index] = true
		out := outcomes[j.index]
		if out.Err != nil {
			result.Failed++
			sendProgress(prog, failedUpdate(step, len(rows), j.row.Draft.Title, out.Err))
		} else {
			result.Created++
			sendProgress(prog, createdUpdate(step, len(rows), out.Task.Title))
		}
	}

	for i, row := range rows {
		if !seen[i] {
			outcomes[i] = RowResult{Row: row, Err: ctx.Err()}
			result.Failed++
		}
	}
	copy(result.Results, outcomes)

	return result, nil
}

func importRow(ctx context.Context, api TaskCreator, limiter *rate.Limiter, row Row) RowResult {
	res := RowResult{Row: row}

	if err := row.Draft.Validate(); err != nil {
		res.Err = fmt.Errorf("%w: %w", shared.ErrInvalidInput, err)
		return res
	}

	if err := limiter.Wait(ctx); err != nil {
		res.Err = err
		return res
	}

	task, err := api.CreateTask(ctx, row.Draft)
	if err != nil {
		res.Err = fmt.Errorf("create failed: %w", err)
		return res
	}
	res.Task = task

	if row.Completed && !task.Completed {
		if err := limiter.Wait(ctx); err != nil {
			res.Err = err
			return res
		}
		updated, err := api.UpdateTask(ctx, task.ID, models.CompletedPatch(true))
		if err != nil {
			res.Err = fmt.Errorf("created but failed to mark completed: %w", err)
			return res
		}
		res.Task = updated
	}

	return res
}
