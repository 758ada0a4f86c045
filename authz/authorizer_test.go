package authz

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockAuthorizer(t *testing.T) (*SimpleAuthorizer, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewSimpleAuthorizer(db, nil), mock
}

func TestGetCompanyRole(t *testing.T) {
	a, mock := newMockAuthorizer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM company_members`)).
		WithArgs("company-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("admin"))

	assert.Equal(t, RoleAdmin, a.GetCompanyRole(context.Background(), "user-1", "company-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetCompanyRoleNotAMember(t *testing.T) {
	a, mock := newMockAuthorizer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM company_members`)).
		WithArgs("company-1", "stranger").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	assert.Equal(t, Role(""), a.GetCompanyRole(context.Background(), "stranger", "company-1"))
}

func TestIsCompanyMember(t *testing.T) {
	tests := []struct {
		name   string
		status string
		want   bool
	}{
		{"active member", "active", true},
		{"pending member is not a member yet", "pending", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mock := newMockAuthorizer(t)
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM company_members`)).
				WithArgs("company-1", "user-1").
				WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow(tt.status))

			assert.Equal(t, tt.want, a.IsCompanyMember(context.Background(), "user-1", "company-1"))
		})
	}
}

func TestGetWorkspaceRolePrecedence(t *testing.T) {
	tests := []struct {
		name string
		role string
		want Role
	}{
		{"company admin outranks stored role", "admin", RoleAdmin},
		{"workspace head resolves to admin", "admin", RoleAdmin},
		{"stored member role", "member", RoleMember},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, mock := newMockAuthorizer(t)
			mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM ranked ORDER BY priority LIMIT 1`)).
				WithArgs("user-1", "ws-1").
				WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow(tt.role))

			assert.Equal(t, tt.want, a.GetWorkspaceRole(context.Background(), "user-1", "ws-1"))
		})
	}
}

func TestGetWorkspaceRoleNoStanding(t *testing.T) {
	a, mock := newMockAuthorizer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM ranked ORDER BY priority LIMIT 1`)).
		WithArgs("user-1", "ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}))

	assert.Equal(t, Role(""), a.GetWorkspaceRole(context.Background(), "user-1", "ws-1"))
	assert.False(t, a.HasWorkspaceAdminRights(context.Background(), "user-1", "ws-1"))
}

func TestCheckWorkItemCommentNeedsMembershipOnly(t *testing.T) {
	a, mock := newMockAuthorizer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id, workspace_id FROM tickets`)).
		WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "workspace_id"}).AddRow("company-1", "ws-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT status FROM company_members`)).
		WithArgs("company-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("active"))

	assert.True(t, a.Check(context.Background(), "user-1", ActionComment, ResourceTicket, "ticket-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckWorkItemUpdateNeedsAdminRights(t *testing.T) {
	a, mock := newMockAuthorizer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id, workspace_id FROM tickets`)).
		WithArgs("ticket-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "workspace_id"}).AddRow("company-1", "ws-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM ranked ORDER BY priority LIMIT 1`)).
		WithArgs("user-1", "ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("member"))

	assert.False(t, a.Check(context.Background(), "user-1", ActionUpdate, ResourceTicket, "ticket-1"))
}

func TestCheckAssetDeleteAdminOnly(t *testing.T) {
	a, mock := newMockAuthorizer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id, workspace_id FROM assets`)).
		WithArgs("asset-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "workspace_id"}).AddRow("company-1", "ws-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM company_members`)).
		WithArgs("company-1", "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("employee"))

	assert.False(t, a.Check(context.Background(), "user-1", ActionDelete, ResourceAsset, "asset-1"))
}

func TestCheckAssetVisibilityExtendsToWorkspaceHead(t *testing.T) {
	a, mock := newMockAuthorizer(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id, workspace_id FROM assets`)).
		WithArgs("asset-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "workspace_id"}).AddRow("company-1", "ws-1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT role FROM company_members`)).
		WithArgs("company-1", "head-user").
		WillReturnRows(sqlmock.NewRows([]string{"role"}).AddRow("employee"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT workspace_head_id FROM workspaces`)).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"workspace_head_id"}).AddRow("head-user"))

	assert.True(t, a.Check(context.Background(), "head-user", ActionSetVisibility, ResourceAsset, "asset-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
