package services

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/db"
)

// FinanceService manages the company ledger, retainers and invoices, and
// computes the financial summary the dashboard renders.
type FinanceService struct {
	PG    *sql.DB
	Authz authz.Authorizer
}

func NewFinanceService(pg *sql.DB, authorizer authz.Authorizer) *FinanceService {
	return &FinanceService{PG: pg, Authz: authorizer}
}

// LogTransactionInput carries a new ledger entry.
type LogTransactionInput struct {
	CompanyID   string    `json:"company_id" binding:"required"`
	WorkspaceID *string   `json:"workspace_id,omitempty"`
	Type        string    `json:"type" binding:"required,oneof=income expense"`
	Amount      float64   `json:"amount" binding:"required"`
	Description string    `json:"description" binding:"required"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date,omitempty"`
	IsAdSpend   bool      `json:"is_ad_spend,omitempty"`
}

// LogTransaction appends a ledger entry, live immediately. Active company
// members only; admins can later reject it out of the totals.
func (s *FinanceService) LogTransaction(ctx context.Context, userID string, input LogTransactionInput) (*db.Transaction, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, input.CompanyID) {
		return nil, authz.ErrForbidden
	}
	if input.Amount <= 0 || strings.TrimSpace(input.Description) == "" {
		return nil, authz.ErrInvalidInput
	}

	date := input.Date
	if date.IsZero() {
		date = time.Now()
	}
	category := input.Category
	if category == "" {
		category = "general"
	}

	txn := &db.Transaction{
		ID:          uuid.New().String(),
		CompanyID:   input.CompanyID,
		UserID:      userID,
		WorkspaceID: input.WorkspaceID,
		Type:        input.Type,
		Amount:      input.Amount,
		Description: input.Description,
		Category:    category,
		Date:        date,
		Status:      "approved",
		IsAdSpend:   input.IsAdSpend,
		CreatedAt:   time.Now(),
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO transactions (id, company_id, user_id, workspace_id, type, amount, description, category, date, status, is_ad_spend, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'approved', $10, $11)
	`, txn.ID, txn.CompanyID, txn.UserID, txn.WorkspaceID, txn.Type, txn.Amount,
		txn.Description, txn.Category, txn.Date, txn.IsAdSpend, txn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to log transaction: %w", err)
	}
	return txn, nil
}

// ListTransactions returns the latest 100 ledger entries with author and
// workspace names joined in. Active company members only.
func (s *FinanceService) ListTransactions(ctx context.Context, userID, companyID string) ([]db.Transaction, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT t.id, t.company_id, t.user_id, t.workspace_id, t.type, t.amount, t.description,
		       t.category, t.date, t.status, t.is_ad_spend, t.created_at,
		       u.name, COALESCE(w.name, '')
		FROM transactions t
		JOIN users u ON u.id = t.user_id
		LEFT JOIN workspaces w ON w.id = t.workspace_id
		WHERE t.company_id = $1
		ORDER BY t.date DESC, t.created_at DESC
		LIMIT 100
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []db.Transaction
	for rows.Next() {
		var t db.Transaction
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.UserID, &t.WorkspaceID, &t.Type, &t.Amount,
			&t.Description, &t.Category, &t.Date, &t.Status, &t.IsAdSpend, &t.CreatedAt,
			&t.AuthorName, &t.WorkspaceName); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// UpdateTransactionStatus approves or rejects an entry. Company admin only.
func (s *FinanceService) UpdateTransactionStatus(ctx context.Context, userID, transactionID, status string) error {
	if status != "approved" && status != "rejected" && status != "pending" {
		return authz.ErrInvalidInput
	}
	companyID, err := s.transactionCompany(ctx, transactionID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}
	_, err = s.PG.ExecContext(ctx, `
		UPDATE transactions SET status = $2 WHERE id = $1
	`, transactionID, status)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}

// DeleteTransaction removes a ledger entry. Company admin only.
func (s *FinanceService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	companyID, err := s.transactionCompany(ctx, transactionID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionDelete, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}
	_, err = s.PG.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, transactionID)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}

func (s *FinanceService) transactionCompany(ctx context.Context, transactionID string) (string, error) {
	var companyID string
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id FROM transactions WHERE id = $1
	`, transactionID).Scan(&companyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", authz.ErrNotFound
		}
		return "", fmt.Errorf("failed to get transaction: %w", err)
	}
	return companyID, nil
}

// LedgerPoint is one chart entry of the trailing-30-day history.
type LedgerPoint struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
	Type   string    `json:"type"`
}

// CategoryTotal is one slice of the expense breakdown.
type CategoryTotal struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// Summary is the dashboard financial rollup. Rejected entries never move the
// totals; everything else counts from the moment it is logged.
type Summary struct {
	TotalIncome       float64         `json:"total_income"`
	TotalExpense      float64         `json:"total_expense"`
	Balance           float64         `json:"balance"`
	AdSpend           float64         `json:"ad_spend"`
	MonthlyBurn       float64         `json:"monthly_burn"`
	RunwayMonths      *float64        `json:"runway_months,omitempty"`
	PendingCount      int             `json:"pending_count"`
	RetainerCount     int             `json:"retainer_count"`
	RecentHistory     []LedgerPoint   `json:"recent_history"`
	CategoryBreakdown []CategoryTotal `json:"category_breakdown"`
}

// GetSummary folds non-rejected entries into income, expense, balance and ad
// spend, plus the trailing-30-day history and the per-category expense
// breakdown. The burn rate is the trailing 30 days of expense, and runway is
// balance divided by that burn; a zero burn leaves runway unset rather than
// reporting infinity.
func (s *FinanceService) GetSummary(ctx context.Context, userID, companyID string) (*Summary, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}

	thirtyDaysAgo := time.Now().AddDate(0, 0, -30)

	var sum Summary
	err := s.PG.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE status <> 'rejected' AND type = 'income'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status <> 'rejected' AND type = 'expense'), 0),
			COALESCE(SUM(amount) FILTER (WHERE status <> 'rejected' AND is_ad_spend), 0),
			COALESCE(SUM(amount) FILTER (WHERE status <> 'rejected' AND type = 'expense' AND date >= $2), 0),
			COUNT(*) FILTER (WHERE status = 'pending')
		FROM transactions WHERE company_id = $1
	`, companyID, thirtyDaysAgo).Scan(
		&sum.TotalIncome, &sum.TotalExpense, &sum.AdSpend, &sum.MonthlyBurn, &sum.PendingCount)
	if err != nil {
		return nil, fmt.Errorf("failed to fold transactions: %w", err)
	}
	sum.Balance = sum.TotalIncome - sum.TotalExpense

	history, err := s.PG.QueryContext(ctx, `
		SELECT date, amount, type FROM transactions
		WHERE company_id = $1 AND status <> 'rejected' AND date >= $2
		ORDER BY date
	`, companyID, thirtyDaysAgo)
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger history: %w", err)
	}
	defer history.Close()
	for history.Next() {
		var p LedgerPoint
		if err := history.Scan(&p.Date, &p.Amount, &p.Type); err != nil {
			return nil, fmt.Errorf("failed to scan history point: %w", err)
		}
		sum.RecentHistory = append(sum.RecentHistory, p)
	}
	if err := history.Err(); err != nil {
		return nil, err
	}

	breakdown, err := s.PG.QueryContext(ctx, `
		SELECT category, SUM(amount) FROM transactions
		WHERE company_id = $1 AND status <> 'rejected' AND type = 'expense'
		GROUP BY category
		ORDER BY SUM(amount) DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load category breakdown: %w", err)
	}
	defer breakdown.Close()
	for breakdown.Next() {
		var c CategoryTotal
		if err := breakdown.Scan(&c.Name, &c.Value); err != nil {
			return nil, fmt.Errorf("failed to scan category total: %w", err)
		}
		sum.CategoryBreakdown = append(sum.CategoryBreakdown, c)
	}
	if err := breakdown.Err(); err != nil {
		return nil, err
	}

	if err := s.PG.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM retainers WHERE company_id = $1
	`, companyID).Scan(&sum.RetainerCount); err != nil {
		return nil, fmt.Errorf("failed to count retainers: %w", err)
	}

	if sum.MonthlyBurn > 0 {
		runway := math.Round(sum.Balance/sum.MonthlyBurn*10) / 10
		sum.RunwayMonths = &runway
	}
	return &sum, nil
}

// WorkspaceBudget is one row of the budget overview.
type WorkspaceBudget struct {
	WorkspaceID string   `json:"workspace_id"`
	Name        string   `json:"name"`
	Budget      *float64 `json:"budget,omitempty"`
	Spent       float64  `json:"spent"`
}

// GetBudgetOverview lists every workspace with its assigned budget and
// approved spend. Active members only.
func (s *FinanceService) GetBudgetOverview(ctx context.Context, userID, companyID string) ([]WorkspaceBudget, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT w.id, w.name, w.budget,
			COALESCE((SELECT SUM(t.amount) FROM transactions t
				WHERE t.workspace_id = w.id AND t.type = 'expense' AND t.status <> 'rejected'), 0)
		FROM workspaces w
		WHERE w.company_id = $1
		ORDER BY w.created_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load budget overview: %w", err)
	}
	defer rows.Close()

	var budgets []WorkspaceBudget
	for rows.Next() {
		var b WorkspaceBudget
		if err := rows.Scan(&b.WorkspaceID, &b.Name, &b.Budget, &b.Spent); err != nil {
			return nil, fmt.Errorf("failed to scan budget row: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// SetWorkspaceBudget assigns or clears a workspace's budget. Company admin
// only; a nil budget clears it.
func (s *FinanceService) SetWorkspaceBudget(ctx context.Context, userID, workspaceID string, budget *float64) error {
	if budget != nil && *budget < 0 {
		return authz.ErrInvalidInput
	}
	var companyID string
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id FROM workspaces WHERE id = $1
	`, workspaceID).Scan(&companyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to resolve workspace: %w", err)
	}
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}
	_, err = s.PG.ExecContext(ctx, `
		UPDATE workspaces SET budget = $2 WHERE id = $1
	`, workspaceID, budget)
	if err != nil {
		return fmt.Errorf("failed to set workspace budget: %w", err)
	}
	return nil
}

// CreateRetainerInput carries a client budget envelope.
type CreateRetainerInput struct {
	CompanyID   string  `json:"company_id" binding:"required"`
	ClientName  string  `json:"client_name" binding:"required"`
	TotalBudget float64 `json:"total_budget" binding:"required"`
}

// CreateRetainer adds a client budget envelope. Company admin only.
func (s *FinanceService) CreateRetainer(ctx context.Context, userID string, input CreateRetainerInput) (*db.Retainer, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, input.CompanyID) {
		return nil, authz.ErrForbidden
	}
	if input.TotalBudget <= 0 {
		return nil, authz.ErrInvalidInput
	}

	now := time.Now()
	r := &db.Retainer{
		ID:          uuid.New().String(),
		CompanyID:   input.CompanyID,
		ClientName:  input.ClientName,
		TotalBudget: input.TotalBudget,
		Status:      "active",
		LastUpdated: now,
		CreatedAt:   now,
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO retainers (id, company_id, client_name, total_budget, used_budget, status, last_updated, created_at)
		VALUES ($1, $2, $3, $4, 0, 'active', $5, $6)
	`, r.ID, r.CompanyID, r.ClientName, r.TotalBudget, r.LastUpdated, r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create retainer: %w", err)
	}
	return r, nil
}

// ListRetainers returns a company's retainers. Active members only.
func (s *FinanceService) ListRetainers(ctx context.Context, userID, companyID string) ([]db.Retainer, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, company_id, client_name, total_budget, used_budget, status, last_updated, created_at
		FROM retainers WHERE company_id = $1 ORDER BY created_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list retainers: %w", err)
	}
	defer rows.Close()

	var retainers []db.Retainer
	for rows.Next() {
		var r db.Retainer
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.ClientName, &r.TotalBudget, &r.UsedBudget,
			&r.Status, &r.LastUpdated, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan retainer: %w", err)
		}
		retainers = append(retainers, r)
	}
	return retainers, rows.Err()
}

// retainerStatus derives the envelope status from its consumption.
func retainerStatus(used, total float64) string {
	switch {
	case used > total:
		return "over_budget"
	case total > 0 && used/total >= 0.8:
		return "warning"
	default:
		return "active"
	}
}

// UpdateRetainerUsage records consumption against an envelope and re-derives
// its status. Company admin only.
func (s *FinanceService) UpdateRetainerUsage(ctx context.Context, userID, retainerID string, usedBudget float64) error {
	var companyID string
	var total float64
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id, total_budget FROM retainers WHERE id = $1
	`, retainerID).Scan(&companyID, &total)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get retainer: %w", err)
	}
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}
	if usedBudget < 0 {
		return authz.ErrInvalidInput
	}

	_, err = s.PG.ExecContext(ctx, `
		UPDATE retainers SET used_budget = $2, status = $3, last_updated = $4 WHERE id = $1
	`, retainerID, usedBudget, retainerStatus(usedBudget, total), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update retainer: %w", err)
	}
	return nil
}

// CreateInvoiceInput carries a billing document.
type CreateInvoiceInput struct {
	CompanyID  string    `json:"company_id" binding:"required"`
	TicketID   *string   `json:"ticket_id,omitempty"`
	ClientName string    `json:"client_name" binding:"required"`
	Amount     float64   `json:"amount" binding:"required"`
	DueDate    time.Time `json:"due_date" binding:"required"`
}

// CreateInvoice adds a draft invoice, optionally linked to a ticket in the
// same company. Company admin only.
func (s *FinanceService) CreateInvoice(ctx context.Context, userID string, input CreateInvoiceInput) (*db.Invoice, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, input.CompanyID) {
		return nil, authz.ErrForbidden
	}
	if input.Amount <= 0 {
		return nil, authz.ErrInvalidInput
	}
	if input.TicketID != nil {
		var ticketCompany string
		err := s.PG.QueryRowContext(ctx, `
			SELECT company_id FROM tickets WHERE id = $1
		`, *input.TicketID).Scan(&ticketCompany)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, authz.ErrNotFound
			}
			return nil, fmt.Errorf("failed to resolve ticket: %w", err)
		}
		if ticketCompany != input.CompanyID {
			return nil, authz.ErrForbidden
		}
	}

	inv := &db.Invoice{
		ID:         uuid.New().String(),
		CompanyID:  input.CompanyID,
		TicketID:   input.TicketID,
		ClientName: input.ClientName,
		Amount:     input.Amount,
		Status:     "draft",
		DueDate:    input.DueDate,
		CreatedAt:  time.Now(),
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO invoices (id, company_id, ticket_id, client_name, amount, status, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, 'draft', $6, $7)
	`, inv.ID, inv.CompanyID, inv.TicketID, inv.ClientName, inv.Amount, inv.DueDate, inv.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create invoice: %w", err)
	}
	return inv, nil
}

// ListInvoices returns a company's invoices, newest due first. Active
// members only.
func (s *FinanceService) ListInvoices(ctx context.Context, userID, companyID string) ([]db.Invoice, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, company_id, ticket_id, client_name, amount, status, due_date, created_at
		FROM invoices WHERE company_id = $1 ORDER BY due_date DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer rows.Close()

	var invoices []db.Invoice
	for rows.Next() {
		var inv db.Invoice
		if err := rows.Scan(&inv.ID, &inv.CompanyID, &inv.TicketID, &inv.ClientName, &inv.Amount,
			&inv.Status, &inv.DueDate, &inv.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// UpdateInvoiceStatus moves an invoice through draft/sent/paid. Company
// admin only.
func (s *FinanceService) UpdateInvoiceStatus(ctx context.Context, userID, invoiceID, status string) error {
	if status != "draft" && status != "sent" && status != "paid" {
		return authz.ErrInvalidInput
	}
	var companyID string
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id FROM invoices WHERE id = $1
	`, invoiceID).Scan(&companyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get invoice: %w", err)
	}
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}
	_, err = s.PG.ExecContext(ctx, `UPDATE invoices SET status = $2 WHERE id = $1`, invoiceID, status)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	return nil
}
