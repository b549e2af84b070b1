package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/tdx/internal/models"
)

var (
	_ list.Item = taskItem{}
)

// taskItem wraps [models.Task] to implement [list.Item].
type taskItem struct {
	task models.Task
}

func (i taskItem) FilterValue() string { return i.task.Title }
func (i taskItem) Title() string {
	box := "[ ]"
	if i.task.Completed {
		box = "[x]"
	}
	return fmt.Sprintf("%s %s", box, i.task.Title)
}
func (i taskItem) Description() string {
	if desc := i.task.DescriptionOrEmpty(); desc != "" {
		return desc
	}
	return "No description"
}

func taskItems(tasks []models.Task) []list.Item {
	items := make([]list.Item, len(tasks))
	for i, t := range tasks {
		items[i] = taskItem{task: t}
	}
	return items
}
