package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/db"
)

func TestInferIcon(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"Engineering", "Terminal"},
		{"Dev Tools", "Terminal"},
		{"Marketing", "TrendingUp"},
		{"Growth Team", "TrendingUp"},
		{"Sales", "BadgeDollarSign"},
		{"Finance & Billing", "BadgeDollarSign"},
		{"Design Studio", "Palette"},
		{"Legal & Compliance", "Scale"},
		{"Human Resources", "Users"},
		{"Operations", "Settings2"},
		{"Customer Support", "LifeBuoy"},
		{"Product Roadmap", "Rocket"},
		{"Data Science", "Database"},
		{"Executive Board", "Briefcase"},
		{"QA", "Bug"},
		{"Security", "ShieldCheck"},
		{"Miscellaneous", "Box"},
		{"", "Box"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, inferIcon(tt.name))
		})
	}
}

func TestInferIconFirstMatchWins(t *testing.T) {
	// "DevOps" matches both the tech rules ("dev") and the ops rules; the
	// earlier rule decides.
	assert.Equal(t, "Terminal", inferIcon("DevOps"))
}

func newWorkspaceService(t *testing.T) (sqlmock.Sqlmock, *WorkspaceService, *mockAuthorizer, *mockMembers) {
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	authMock := &mockAuthorizer{}
	membersMock := &mockMembers{}
	return mock, NewWorkspaceService(pg, authMock, membersMock, true, true), authMock, membersMock
}

func expectWorkspaceRow(mock sqlmock.Sqlmock, id, companyID, headID string, isDefault bool) {
	mock.ExpectQuery(regexp.QuoteMeta(`FROM workspaces WHERE id = $1`)).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "company_id", "name", "icon", "workspace_head_id", "is_default", "budget", "created_at"}).
			AddRow(id, companyID, "Engineering", "Terminal", headID, isDefault, nil, time.Now()))
}

func TestDeleteDefaultWorkspaceForbidden(t *testing.T) {
	mock, svc, authMock, _ := newWorkspaceService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool { return true }
	expectWorkspaceRow(mock, "ws-1", "company-1", "head-1", true)

	err := svc.Delete(context.Background(), "admin-1", "ws-1")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestDeleteWorkspaceCascades(t *testing.T) {
	mock, svc, authMock, _ := newWorkspaceService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool { return true }
	expectWorkspaceRow(mock, "ws-1", "company-1", "head-1", false)

	mock.ExpectBegin()
	for _, table := range []string{"tickets", "workspace_members", "workspace_requests", "messages", "kanban_tasks", "assets"} {
		mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM ` + table)).
			WithArgs("ws-1").
			WillReturnResult(sqlmock.NewResult(0, 2))
	}
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM workspaces WHERE id = $1`)).
		WithArgs("ws-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.Delete(context.Background(), "admin-1", "ws-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateWorkspaceInfersIconAndEnrollsHead(t *testing.T) {
	mock, svc, authMock, _ := newWorkspaceService(t)

	authMock.CheckFunc = func(action authz.Action, rt authz.ResourceType, id string) bool { return true }

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO workspaces`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO workspace_members`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ws, err := svc.Create(context.Background(), "admin-1", "company-1", CreateWorkspaceInput{
		Name:            "Data Platform",
		WorkspaceHeadID: "head-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Database", ws.Icon)
	assert.Equal(t, "head-1", ws.WorkspaceHeadID)
	assert.False(t, ws.IsDefault)
}

func TestRemoveMemberBlocksWorkspaceHead(t *testing.T) {
	mock, svc, authMock, membersMock := newWorkspaceService(t)

	membersMock.GetWorkspaceMemberFunc = func(memberID string) (*db.WorkspaceMember, error) {
		return &db.WorkspaceMember{ID: memberID, WorkspaceID: "ws-1", UserID: "head-1"}, nil
	}
	authMock.AdminRightsFunc = func(userID, workspaceID string) bool { return true }
	expectWorkspaceRow(mock, "ws-1", "company-1", "head-1", false)

	err := svc.RemoveMember(context.Background(), "admin-1", "member-1")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestRequestAccessConflictsForExistingMember(t *testing.T) {
	mock, svc, authMock, membersMock := newWorkspaceService(t)

	expectWorkspaceRow(mock, "ws-1", "company-1", "head-1", false)
	authMock.IsMemberFunc = func(userID, companyID string) bool { return true }
	membersMock.GetWorkspaceMembershipFunc = func(workspaceID, userID string) (*db.WorkspaceMember, error) {
		return &db.WorkspaceMember{ID: "m-1", WorkspaceID: workspaceID, UserID: userID}, nil
	}

	_, err := svc.RequestAccess(context.Background(), "user-1", "ws-1")
	assert.ErrorIs(t, err, authz.ErrConflict)
}

func TestResolveAccessRequestApprovalEnrollsMember(t *testing.T) {
	mock, svc, authMock, _ := newWorkspaceService(t)

	authMock.AdminRightsFunc = func(userID, workspaceID string) bool { return true }

	mock.ExpectQuery(regexp.QuoteMeta(`FROM workspace_requests WHERE id = $1`)).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "status"}).
			AddRow("req-1", "ws-1", "user-2", "pending"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE workspace_requests SET status = $2`)).
		WithArgs("req-1", "approved").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO workspace_members`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := svc.ResolveAccessRequest(context.Background(), "admin-1", "req-1", true)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveAccessRequestAlreadyResolved(t *testing.T) {
	mock, svc, authMock, _ := newWorkspaceService(t)

	authMock.AdminRightsFunc = func(userID, workspaceID string) bool { return true }

	mock.ExpectQuery(regexp.QuoteMeta(`FROM workspace_requests WHERE id = $1`)).
		WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "status"}).
			AddRow("req-1", "ws-1", "user-2", "approved"))

	err := svc.ResolveAccessRequest(context.Background(), "admin-1", "req-1", true)
	assert.ErrorIs(t, err, authz.ErrConflict)
}

func TestGetMyMembershipSynthesizesForAdmins(t *testing.T) {
	mock, svc, authMock, _ := newWorkspaceService(t)
	authMock.WorkspaceRoleFunc = func(userID, workspaceID string) authz.Role { return authz.RoleAdmin }

	// Company admins and heads hold a role without a stored membership row.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM workspace_members WHERE workspace_id = $1 AND user_id = $2`)).
		WithArgs("ws-1", "admin-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "user_id", "role", "designation", "created_at"}))

	membership, err := svc.GetMyMembership(context.Background(), "admin-1", "ws-1")
	require.NoError(t, err)
	assert.Nil(t, membership.Member)
	assert.Equal(t, authz.RoleAdmin, membership.EffectiveRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetMyMembershipOutsider(t *testing.T) {
	_, svc, _, _ := newWorkspaceService(t)

	_, err := svc.GetMyMembership(context.Background(), "outsider", "ws-1")
	assert.ErrorIs(t, err, authz.ErrNotFound)
}
