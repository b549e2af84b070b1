package bulk

import "fmt"

// ProgressUpdate represents a progress event during an import.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
}

// Operation phase enumeration
type Phase int

const (
	ReadRows Phase = iota
	CreateTasks
)

func (p Phase) String() string {
	switch p {
	case ReadRows:
		return "read_rows"
	case CreateTasks:
		return "create_tasks"
	default:
		return ""
	}
}

func readRowsUpdate(total int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ReadRows,
		Step:    total,
		Total:   total,
		Message: fmt.Sprintf("Read %d rows", total),
	}
}

func createdUpdate(step, total int, title string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateTasks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s", step, total, title),
	}
}

func failedUpdate(step, total int, title string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   CreateTasks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, title, err),
	}
}

// sendProgress never blocks; a full channel drops the update.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}
