package services

import (
	"fmt"
	"time"

	"github.com/centrohq/centro/db"
)

// fieldChange is one audit event produced by diffing a work item update
// against the stored row.
type fieldChange struct {
	kind   string
	detail string
}

// workItemState is the comparable field set shared by tickets and kanban
// tasks.
type workItemState struct {
	Title       string
	Description string
	Status      string
	Priority    string
	AssigneeID  *string
	DueDate     *time.Time
}

func workItemFields(t db.Ticket) workItemState {
	return workItemState{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssigneeID:  t.AssigneeID,
		DueDate:     t.DueDate,
	}
}

func kanbanFields(t db.KanbanTask) workItemState {
	return workItemState{
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		AssigneeID:  t.AssigneeID,
		DueDate:     t.DueDate,
	}
}

// diffWorkItem compares two states field by field and returns one change per
// field that differs. Equal states return nothing, so a no-op save leaves no
// audit trail.
func diffWorkItem(old, next workItemState) []fieldChange {
	var changes []fieldChange

	if old.Status != next.Status {
		changes = append(changes, fieldChange{
			kind:   "status_changed",
			detail: fmt.Sprintf("Status changed from %s to %s", old.Status, next.Status),
		})
	}
	if old.Priority != next.Priority {
		changes = append(changes, fieldChange{
			kind:   "priority_changed",
			detail: fmt.Sprintf("Priority changed from %s to %s", old.Priority, next.Priority),
		})
	}
	if !equalPtr(old.AssigneeID, next.AssigneeID) {
		detail := "Assignee removed"
		if next.AssigneeID != nil {
			detail = "Assignee changed"
		}
		changes = append(changes, fieldChange{kind: "assignee_changed", detail: detail})
	}
	if !equalTimePtr(old.DueDate, next.DueDate) {
		detail := "Due date removed"
		if next.DueDate != nil {
			detail = fmt.Sprintf("Due date set to %s", next.DueDate.Format("2006-01-02"))
		}
		changes = append(changes, fieldChange{kind: "due_date_changed", detail: detail})
	}
	if old.Title != next.Title || old.Description != next.Description {
		changes = append(changes, fieldChange{kind: "details_updated", detail: "Details updated"})
	}

	return changes
}

func equalPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}
