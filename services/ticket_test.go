package services

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centrohq/centro/authz"
)

func newTicketService(t *testing.T) (sqlmock.Sqlmock, *TicketService, *mockAuthorizer) {
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	authMock := &mockAuthorizer{}
	return mock, NewTicketService(pg, authMock, NewAuditLogger(pg)), authMock
}

func TestTransferMovesAndForcesStatus(t *testing.T) {
	mock, svc, authMock := newTicketService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool {
		return action == authz.ActionTransfer
	}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets t JOIN workspaces w ON w.id = t.workspace_id`)).
		WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "workspace_id", "name"}).
			AddRow("company-1", "ws-src", "Engineering"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, company_id FROM workspaces`)).
		WithArgs("ws-dst").
		WillReturnRows(sqlmock.NewRows([]string{"name", "company_id"}).AddRow("Support", "company-1"))

	// One UPDATE carries both the move and the forced status.
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tickets SET workspace_id = $2, status = 'transferred' WHERE id = $1`)).
		WithArgs("ticket-1", "ws-dst").
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Exactly one audit event, naming both workspaces.
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_events`)).
		WithArgs(sqlmock.AnyArg(), "ticket-1", "admin-1", "transferred", "Transferred from Engineering to Support", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Transfer(context.Background(), "admin-1", "ticket-1", "ws-dst")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransferRejectsSameWorkspace(t *testing.T) {
	mock, svc, authMock := newTicketService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool { return true }
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets t JOIN workspaces w ON w.id = t.workspace_id`)).
		WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "workspace_id", "name"}).
			AddRow("company-1", "ws-src", "Engineering"))

	err := svc.Transfer(context.Background(), "admin-1", "ticket-1", "ws-src")
	assert.ErrorIs(t, err, authz.ErrInvalidInput)
}

func TestTransferRejectsCrossCompany(t *testing.T) {
	mock, svc, authMock := newTicketService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool { return true }
	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets t JOIN workspaces w ON w.id = t.workspace_id`)).
		WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "workspace_id", "name"}).
			AddRow("company-1", "ws-src", "Engineering"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT name, company_id FROM workspaces`)).
		WithArgs("ws-other").
		WillReturnRows(sqlmock.NewRows([]string{"name", "company_id"}).AddRow("Elsewhere", "company-2"))

	err := svc.Transfer(context.Background(), "admin-1", "ticket-1", "ws-other")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestTransferDeniedWithoutAdminRights(t *testing.T) {
	_, svc, _ := newTicketService(t)

	err := svc.Transfer(context.Background(), "member-1", "ticket-1", "ws-dst")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestUpdateNoOpLogsNothing(t *testing.T) {
	mock, svc, authMock := newTicketService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool { return true }

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, description, status, priority, assignee_id, due_date FROM tickets`)).
		WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status", "priority", "assignee_id", "due_date"}).
			AddRow("ticket-1", "Fix login", "Details", "open", "high", nil, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tickets SET title = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	// No ticket_events insert expected.

	err := svc.Update(context.Background(), "admin-1", "ticket-1", UpdateTicketInput{
		Title: "Fix login", Description: "Details", Status: "open", Priority: "high",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLogsOneEventPerChangedField(t *testing.T) {
	mock, svc, authMock := newTicketService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool { return true }

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, description, status, priority, assignee_id, due_date FROM tickets`)).
		WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "status", "priority", "assignee_id", "due_date"}).
			AddRow("ticket-1", "Fix login", "Details", "open", "low", nil, nil))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE tickets SET title = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_events`)).
		WithArgs(sqlmock.AnyArg(), "ticket-1", "admin-1", "status_changed", "Status changed from open to done", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO ticket_events`)).
		WithArgs(sqlmock.AnyArg(), "ticket-1", "admin-1", "priority_changed", "Priority changed from low to high", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Update(context.Background(), "admin-1", "ticket-1", UpdateTicketInput{
		Title: "Fix login", Description: "Details", Status: "done", Priority: "high",
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTicketRequiresMembership(t *testing.T) {
	mock, svc, _ := newTicketService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id FROM workspaces`)).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}).AddRow("company-1"))

	_, err := svc.Create(context.Background(), "stranger", CreateTicketInput{
		WorkspaceID: "ws-1", Title: "New ticket",
	})
	assert.ErrorIs(t, err, authz.ErrForbidden)
}
