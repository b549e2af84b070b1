// package formatter provides functions to export the task list to various formats (CSV, Markdown, plain text, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/tdx/internal/models"
	"github.com/desertthunder/tdx/internal/shared"
)

// Format names an export format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatCSV, FormatMarkdown, FormatText, FormatJSON}

// CSVHeaders are the columns written by [ExportToCSV]. [bulk.ReadCSV] accepts the same layout.
var CSVHeaders = []string{"ID", "Title", "Description", "Completed", "CreatedAt", "UpdatedAt"}

// TaskExport is a task list along with who it belongs to.
type TaskExport struct {
	Owner      string        `json:"owner"`
	ExportedAt time.Time     `json:"exported_at"`
	Tasks      []models.Task `json:"tasks"`
}

// ParseFormat validates a user supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	switch f {
	case FormatCSV, FormatMarkdown, FormatText, FormatJSON:
		return f, nil
	case "markdown":
		return FormatMarkdown, nil
	case "text":
		return FormatText, nil
	}
	return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, s)
}

// Export renders export in the given format.
func Export(export *TaskExport, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return ExportToCSV(export)
	case FormatMarkdown:
		return ExportToMarkdown(export)
	case FormatText:
		return ExportToText(export)
	case FormatJSON:
		return ExportToJSON(export)
	}
	return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
}

// ExportToCSV converts a TaskExport to CSV format with columns [CSVHeaders]
func ExportToCSV(export *TaskExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write(CSVHeaders); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, task := range export.Tasks {
		record := []string{
			task.ID,
			task.Title,
			task.DescriptionOrEmpty(),
			strconv.FormatBool(task.Completed),
			formatTime(task.CreatedAt),
			formatTime(task.UpdatedAt),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a TaskExport to a Markdown checklist
func ExportToMarkdown(export *TaskExport) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Tasks\n\n")
	if export.Owner != "" {
		buf.WriteString(fmt.Sprintf("**Owner**: %s\n", export.Owner))
	}

	done := completedCount(export.Tasks)
	buf.WriteString(fmt.Sprintf("**Completed**: %d/%d\n\n", done, len(export.Tasks)))

	for _, task := range export.Tasks {
		box := " "
		if task.Completed {
			box = "x"
		}
		buf.WriteString(fmt.Sprintf("- [%s] %s", box, task.Title))
		if desc := task.DescriptionOrEmpty(); desc != "" {
			buf.WriteString(fmt.Sprintf(" - %s", desc))
		}
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToText converts a TaskExport to plain text format, one task per line
func ExportToText(export *TaskExport) ([]byte, error) {
	var buf bytes.Buffer

	if export.Owner != "" {
		buf.WriteString(fmt.Sprintf("Owner: %s\n", export.Owner))
	}
	buf.WriteString(fmt.Sprintf("Tasks: %d\n\n", len(export.Tasks)))

	for _, task := range export.Tasks {
		buf.WriteString(task.String())
		buf.WriteString("\n")
	}

	return buf.Bytes(), nil
}

// ExportToJSON renders the export as indented JSON
func ExportToJSON(export *TaskExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// WriteExport renders export and writes it to path.
//
// Defaults to tasks.{format} in the working directory. Parent directories are created.
func WriteExport(export *TaskExport, format Format, path string) (string, error) {
	if path == "" {
		path = "tasks." + string(format)
	}

	data, err := Export(export, format)
	if err != nil {
		return "", err
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write %s file: %w", format, err)
	}

	return path, nil
}

func completedCount(tasks []models.Task) int {
	n := 0
	for _, t := range tasks {
		if t.Completed {
			n++
		}
	}
	return n
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
