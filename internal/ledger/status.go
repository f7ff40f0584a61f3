package ledger

import "cuops/internal/domain"

// Display labels for a content object.
const (
	StatusPublished  = "Published"
	StatusSpiked     = "Spiked"
	StatusNoTasks    = "No Tasks"
	StatusComplete   = "Complete"
	StatusInProgress = "In Progress"
	StatusNotStarted = "Not Started"
)

// DisplayStatuses lists every label DeriveStatus can return.
var DisplayStatuses = []string{
	StatusNotStarted, StatusInProgress, StatusComplete, StatusNoTasks, StatusPublished, StatusSpiked,
}

// DeriveStatus maps the explicit flag and task totals to a display label.
// The explicit flag wins over task progress.
func DeriveStatus(explicit string, totalTasks, doneTasks int) string {
	switch explicit {
	case domain.ContentPublished:
		return StatusPublished
	case domain.ContentSpiked:
		return StatusSpiked
	}
	switch {
	case totalTasks == 0:
		return StatusNoTasks
	case doneTasks >= totalTasks:
		return StatusComplete
	case doneTasks > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}

// Annotate fills the derived status of a content object from its aggregates.
func Annotate(c *domain.ContentObject) {
	c.DerivedStatus = DeriveStatus(c.Status, c.TotalTasks, c.DoneTasks)
}
