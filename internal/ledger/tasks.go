package ledger

import (
	"sort"

	"cuops/internal/domain"
)

// Progress aggregates a task list.
type Progress struct {
	Total   int     `json:"total"`
	Done    int     `json:"done"`
	Percent float64 `json:"percent"`
}

func ProgressOf(tasks []domain.Task) Progress {
	p := Progress{Total: len(tasks)}
	for _, t := range tasks {
		if t.Status == domain.TaskDone {
			p.Done++
		}
	}
	if p.Total > 0 {
		p.Percent = float64(p.Done) / float64(p.Total) * 100
	}
	return p
}

// SortTasks orders tasks by sort order, then creation time, then id.
func SortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		a, b := tasks[i], tasks[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if a.CreatedAt != b.CreatedAt {
			return a.CreatedAt < b.CreatedAt
		}
		return a.ID < b.ID
	})
}

// NextSortOrder returns max+1, or 0 for an empty list.
func NextSortOrder(tasks []domain.Task) int {
	if len(tasks) == 0 {
		return 0
	}
	highest := tasks[0].SortOrder
	for _, t := range tasks[1:] {
		if t.SortOrder > highest {
			highest = t.SortOrder
		}
	}
	return highest + 1
}

// SetStatus moves a task to status and keeps completed_at set iff the task is done.
func SetStatus(t *domain.Task, status, now string) {
	t.Status = status
	if status == domain.TaskDone {
		if t.CompletedAt == nil {
			t.CompletedAt = &now
		}
		return
	}
	t.CompletedAt = nil
}

// Toggled returns the opposite task status.
func Toggled(status string) string {
	if status == domain.TaskDone {
		return domain.TaskTodo
	}
	return domain.TaskDone
}
