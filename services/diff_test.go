package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/centrohq/centro/db"
)

func TestDiffWorkItemNoChanges(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	assignee := "user-1"
	state := workItemState{
		Title:       "Fix login",
		Description: "Details",
		Status:      "open",
		Priority:    "high",
		AssigneeID:  &assignee,
		DueDate:     &due,
	}
	// Same values through different pointers still count as unchanged.
	assignee2 := "user-1"
	due2 := due
	other := state
	other.AssigneeID = &assignee2
	other.DueDate = &due2

	assert.Empty(t, diffWorkItem(state, other))
}

func TestDiffWorkItemPerFieldEvents(t *testing.T) {
	old := workItemState{Title: "Fix login", Status: "open", Priority: "low"}
	next := workItemState{Title: "Fix login flow", Status: "done", Priority: "high"}

	changes := diffWorkItem(old, next)
	assert.Len(t, changes, 3)

	kinds := make([]string, 0, len(changes))
	for _, c := range changes {
		kinds = append(kinds, c.kind)
	}
	assert.Equal(t, []string{"status_changed", "priority_changed", "details_updated"}, kinds)
	assert.Equal(t, "Status changed from open to done", changes[0].detail)
	assert.Equal(t, "Priority changed from low to high", changes[1].detail)
}

func TestDiffWorkItemAssigneeTransitions(t *testing.T) {
	user := "user-1"

	set := diffWorkItem(workItemState{}, workItemState{AssigneeID: &user})
	assert.Len(t, set, 1)
	assert.Equal(t, "assignee_changed", set[0].kind)
	assert.Equal(t, "Assignee changed", set[0].detail)

	cleared := diffWorkItem(workItemState{AssigneeID: &user}, workItemState{})
	assert.Len(t, cleared, 1)
	assert.Equal(t, "Assignee removed", cleared[0].detail)
}

func TestDiffWorkItemDueDate(t *testing.T) {
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	changes := diffWorkItem(workItemState{}, workItemState{DueDate: &due})
	assert.Len(t, changes, 1)
	assert.Equal(t, "due_date_changed", changes[0].kind)
	assert.Equal(t, "Due date set to 2026-03-01", changes[0].detail)
}

func TestWorkItemFieldExtraction(t *testing.T) {
	ticket := db.Ticket{Title: "T", Description: "D", Status: "open", Priority: "low"}
	task := db.KanbanTask{Title: "T", Description: "D", Status: "todo", Priority: "low"}

	assert.Equal(t, "open", workItemFields(ticket).Status)
	assert.Equal(t, "todo", kanbanFields(task).Status)
}
