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

func newSearchService(t *testing.T) (sqlmock.Sqlmock, *SearchService, *mockAuthorizer) {
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	az := &mockAuthorizer{}
	return mock, NewSearchService(pg, az), az
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"50% off", `50\% off`},
		{"a_b", `a\_b`},
		{`C:\temp`, `C:\\temp`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeLike(tt.in))
	}
}

func TestSearchRequiresMembership(t *testing.T) {
	_, svc, _ := newSearchService(t)

	_, err := svc.Search(context.Background(), "outsider", "company-1", "invoice")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestSearchRejectsBlankQuery(t *testing.T) {
	_, svc, az := newSearchService(t)
	az.IsMemberFunc = func(userID, companyID string) bool { return true }

	_, err := svc.Search(context.Background(), "user-1", "company-1", "   ")
	assert.ErrorIs(t, err, authz.ErrInvalidInput)
}

func TestSearchFixedOrderAndCaps(t *testing.T) {
	mock, svc, az := newSearchService(t)
	az.IsMemberFunc = func(userID, companyID string) bool { return true }

	hitCols := []string{"id", "title", "workspace_id"}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets`)).
		WithArgs("company-1", "%deck%", searchTicketCap).
		WillReturnRows(sqlmock.NewRows(hitCols).
			AddRow("t-1", "Pitch deck review", "ws-1").
			AddRow("t-2", "Deck feedback", "ws-2"))
	mock.ExpectQuery(regexp.QuoteMeta(`is_restricted = false`)).
		WithArgs("company-1", "%deck%", searchAssetCap).
		WillReturnRows(sqlmock.NewRows(hitCols).
			AddRow("a-1", "deck.pdf", nil))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM workspaces`)).
		WithArgs("company-1", "%deck%", searchWorkspaceCap).
		WillReturnRows(sqlmock.NewRows(hitCols).
			AddRow("ws-3", "Deck Design", nil))

	results, err := svc.Search(context.Background(), "user-1", "company-1", "deck")
	require.NoError(t, err)
	require.Len(t, results, 4)

	kinds := make([]string, 0, len(results))
	for _, r := range results {
		kinds = append(kinds, r.Kind)
	}
	assert.Equal(t, []string{"ticket", "ticket", "asset", "workspace"}, kinds)
	assert.Empty(t, results[3].WorkspaceID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchAdminSeesRestrictedAssets(t *testing.T) {
	mock, svc, az := newSearchService(t)
	az.IsMemberFunc = func(userID, companyID string) bool { return true }
	az.CompanyRoleFunc = func(userID, companyID string) authz.Role { return authz.RoleAdmin }

	hitCols := []string{"id", "title", "workspace_id"}

	mock.ExpectQuery(regexp.QuoteMeta(`FROM tickets`)).
		WillReturnRows(sqlmock.NewRows(hitCols))
	// Admin query carries no is_restricted filter.
	mock.ExpectQuery(regexp.QuoteMeta(`file_name ILIKE $2
			ORDER BY`)).
		WillReturnRows(sqlmock.NewRows(hitCols).
			AddRow("a-1", "payroll.xlsx", nil))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM workspaces`)).
		WillReturnRows(sqlmock.NewRows(hitCols))

	results, err := svc.Search(context.Background(), "admin-1", "company-1", "payroll")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "asset", results[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSearchEscapesPattern(t *testing.T) {
	mock, svc, az := newSearchService(t)
	az.IsMemberFunc = func(userID, companyID string) bool { return true }

	hitCols := []string{"id", "title", "workspace_id"}
	for _, q := range []string{`FROM tickets`, `FROM assets`, `FROM workspaces`} {
		mock.ExpectQuery(regexp.QuoteMeta(q)).
			WithArgs("company-1", `%100\%\_done%`, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(hitCols))
	}

	_, err := svc.Search(context.Background(), "user-1", "company-1", "100%_done")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
