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
)

func newFinanceService(t *testing.T) (sqlmock.Sqlmock, *FinanceService, *mockAuthorizer) {
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })

	authMock := &mockAuthorizer{}
	return mock, NewFinanceService(pg, authMock), authMock
}

func TestGetSummaryExcludesRejectedOnly(t *testing.T) {
	mock, svc, authMock := newFinanceService(t)
	authMock.IsMemberFunc = func(userID, companyID string) bool { return true }

	// The database fold drops rejected entries and nothing else; the service
	// derives balance and runway. The fold filter is part of the contract:
	// a freshly logged entry must move the totals immediately.
	mock.ExpectQuery(regexp.QuoteMeta(`SUM(amount) FILTER (WHERE status <> 'rejected' AND type = 'income')`)).
		WillReturnRows(sqlmock.NewRows([]string{"income", "expense", "ad_spend", "burn", "pending"}).
			AddRow(100.0, 40.0, 10.0, 20.0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY date`)).
		WillReturnRows(sqlmock.NewRows([]string{"date", "amount", "type"}).
			AddRow(time.Now().AddDate(0, 0, -2), 100.0, "income").
			AddRow(time.Now().AddDate(0, 0, -1), 40.0, "expense"))
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY category`)).
		WillReturnRows(sqlmock.NewRows([]string{"category", "sum"}).
			AddRow("hosting", 30.0).
			AddRow("travel", 10.0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM retainers`)).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	sum, err := svc.GetSummary(context.Background(), "user-1", "company-1")
	require.NoError(t, err)
	assert.Equal(t, 100.0, sum.TotalIncome)
	assert.Equal(t, 40.0, sum.TotalExpense)
	assert.Equal(t, 60.0, sum.Balance)
	assert.Equal(t, 10.0, sum.AdSpend)
	assert.Equal(t, 2, sum.PendingCount)
	assert.Equal(t, 3, sum.RetainerCount)
	require.NotNil(t, sum.RunwayMonths)
	assert.InDelta(t, 3.0, *sum.RunwayMonths, 1e-9)

	require.Len(t, sum.RecentHistory, 2)
	assert.Equal(t, "income", sum.RecentHistory[0].Type)
	assert.Equal(t, 100.0, sum.RecentHistory[0].Amount)
	require.Len(t, sum.CategoryBreakdown, 2)
	assert.Equal(t, CategoryTotal{Name: "hosting", Value: 30.0}, sum.CategoryBreakdown[0])
}

func TestGetSummaryZeroBurnLeavesRunwayUnset(t *testing.T) {
	mock, svc, authMock := newFinanceService(t)
	authMock.IsMemberFunc = func(userID, companyID string) bool { return true }

	mock.ExpectQuery(regexp.QuoteMeta(`FROM transactions WHERE company_id = $1`)).
		WillReturnRows(sqlmock.NewRows([]string{"income", "expense", "ad_spend", "burn", "pending"}).
			AddRow(500.0, 0.0, 0.0, 0.0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY date`)).
		WillReturnRows(sqlmock.NewRows([]string{"date", "amount", "type"}))
	mock.ExpectQuery(regexp.QuoteMeta(`GROUP BY category`)).
		WillReturnRows(sqlmock.NewRows([]string{"category", "sum"}))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM retainers`)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	sum, err := svc.GetSummary(context.Background(), "user-1", "company-1")
	require.NoError(t, err)
	assert.Nil(t, sum.RunwayMonths)
	assert.Equal(t, 500.0, sum.Balance)
}

func TestGetSummaryRequiresMembership(t *testing.T) {
	_, svc, _ := newFinanceService(t)

	_, err := svc.GetSummary(context.Background(), "stranger", "company-1")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestLogTransactionValidation(t *testing.T) {
	_, svc, authMock := newFinanceService(t)
	authMock.IsMemberFunc = func(userID, companyID string) bool { return true }

	_, err := svc.LogTransaction(context.Background(), "user-1", LogTransactionInput{
		CompanyID: "company-1", Type: "expense", Amount: 0, Description: "x",
	})
	assert.ErrorIs(t, err, authz.ErrInvalidInput)

	_, err = svc.LogTransaction(context.Background(), "user-1", LogTransactionInput{
		CompanyID: "company-1", Type: "expense", Amount: 10, Description: "  ",
	})
	assert.ErrorIs(t, err, authz.ErrInvalidInput)
}

func TestLogTransactionCountsImmediately(t *testing.T) {
	mock, svc, authMock := newFinanceService(t)
	authMock.IsMemberFunc = func(userID, companyID string) bool { return true }

	// New entries go in live, not parked behind an approval step.
	mock.ExpectExec(regexp.QuoteMeta(`'approved'`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	txn, err := svc.LogTransaction(context.Background(), "user-1", LogTransactionInput{
		CompanyID: "company-1", Type: "expense", Amount: 40, Description: "Hosting",
	})
	require.NoError(t, err)
	assert.Equal(t, "approved", txn.Status)
	assert.Equal(t, "general", txn.Category)
	assert.False(t, txn.Date.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteTransactionAdminOnly(t *testing.T) {
	mock, svc, _ := newFinanceService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id FROM transactions`)).
		WithArgs("txn-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}).AddRow("company-1"))

	err := svc.DeleteTransaction(context.Background(), "member-1", "txn-1")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestRetainerStatus(t *testing.T) {
	tests := []struct {
		name  string
		used  float64
		total float64
		want  string
	}{
		{"fresh envelope", 0, 1000, "active"},
		{"halfway", 500, 1000, "active"},
		{"at warning threshold", 800, 1000, "warning"},
		{"over budget", 1100, 1000, "over_budget"},
		{"exactly spent", 1000, 1000, "warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, retainerStatus(tt.used, tt.total))
		})
	}
}

func TestSetWorkspaceBudgetAdminOnly(t *testing.T) {
	mock, svc, _ := newFinanceService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id FROM workspaces`)).
		WithArgs("ws-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id"}).AddRow("company-1"))

	budget := 5000.0
	err := svc.SetWorkspaceBudget(context.Background(), "member-1", "ws-1", &budget)
	assert.ErrorIs(t, err, authz.ErrForbidden)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetWorkspaceBudgetRejectsNegative(t *testing.T) {
	_, svc, _ := newFinanceService(t)

	budget := -1.0
	err := svc.SetWorkspaceBudget(context.Background(), "admin-1", "ws-1", &budget)
	assert.ErrorIs(t, err, authz.ErrInvalidInput)
}

func TestGetBudgetOverview(t *testing.T) {
	mock, svc, authMock := newFinanceService(t)
	authMock.IsMemberFunc = func(userID, companyID string) bool { return true }

	budget := 1000.0
	mock.ExpectQuery(regexp.QuoteMeta(`FROM workspaces w`)).
		WithArgs("company-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "budget", "spent"}).
			AddRow("ws-1", "General", budget, 250.0).
			AddRow("ws-2", "Marketing", nil, 0.0))

	budgets, err := svc.GetBudgetOverview(context.Background(), "user-1", "company-1")
	require.NoError(t, err)
	require.Len(t, budgets, 2)
	require.NotNil(t, budgets[0].Budget)
	assert.Equal(t, 1000.0, *budgets[0].Budget)
	assert.Equal(t, 250.0, budgets[0].Spent)
	assert.Nil(t, budgets[1].Budget)
	assert.NoError(t, mock.ExpectationsWereMet())
}
