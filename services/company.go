package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/db"
)

// CompanyService handles tenant lifecycle and member governance. Every
// mutating operation takes the acting user id explicitly (resolved once at
// the boundary) and asks the policy engine before touching state.
type CompanyService struct {
	PG      *sql.DB
	Authz   authz.Authorizer
	Members authz.MembershipManager
}

func NewCompanyService(pg *sql.DB, authorizer authz.Authorizer, members authz.MembershipManager) *CompanyService {
	return &CompanyService{PG: pg, Authz: authorizer, Members: members}
}

// CreateCompanyInput carries the company creation arguments.
type CreateCompanyInput struct {
	Name    string `json:"name" binding:"required"`
	LogoURL string `json:"logo_url,omitempty"`
}

// CreateCompanyResult reports the new tenant and its default workspace.
type CreateCompanyResult struct {
	Company   *db.Company   `json:"company"`
	Workspace *db.Workspace `json:"workspace"`
}

// Create provisions a company, its admin membership and the default "General"
// workspace in one transaction, so a company never exists without exactly one
// default workspace.
func (s *CompanyService) Create(ctx context.Context, userID string, input CreateCompanyInput) (*CreateCompanyResult, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, authz.ErrInvalidInput
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	company := &db.Company{
		ID:          uuid.New().String(),
		Name:        input.Name,
		Description: "A revolutionary workspace.",
		LogoURL:     input.LogoURL,
		AdminID:     userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO companies (id, name, description, logo_url, admin_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, company.ID, company.Name, company.Description, nullable(company.LogoURL), company.AdminID, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO company_members (id, company_id, user_id, role, status, created_at)
		VALUES ($1, $2, $3, 'admin', 'active', $4)
	`, uuid.New().String(), company.ID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create admin membership: %w", err)
	}

	workspace := &db.Workspace{
		ID:              uuid.New().String(),
		CompanyID:       company.ID,
		Name:            "General",
		Icon:            "Building",
		WorkspaceHeadID: userID,
		IsDefault:       true,
		CreatedAt:       now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, company_id, name, icon, workspace_head_id, is_default, created_at)
		VALUES ($1, $2, $3, $4, $5, true, $6)
	`, workspace.ID, workspace.CompanyID, workspace.Name, workspace.Icon, workspace.WorkspaceHeadID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create default workspace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, 'admin', $4)
	`, uuid.New().String(), workspace.ID, userID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace membership: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}

	return &CreateCompanyResult{Company: company, Workspace: workspace}, nil
}

// UpdateDetailsInput carries editable company fields.
type UpdateDetailsInput struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description,omitempty"`
	LogoURL     string `json:"logo_url,omitempty"`
}

// UpdateDetails edits name, description and logo. Admin only.
func (s *CompanyService) UpdateDetails(ctx context.Context, userID, companyID string, input UpdateDetailsInput) error {
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}
	res, err := s.PG.ExecContext(ctx, `
		UPDATE companies SET name = $2, description = $3, logo_url = $4, updated_at = $5 WHERE id = $1
	`, companyID, input.Name, nullable(input.Description), nullable(input.LogoURL), time.Now())
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// TransferOwnership repoints the owning admin and promotes the new owner's
// membership to admin in the same transaction, keeping the invariant that
// adminId always references an admin-role member.
func (s *CompanyService) TransferOwnership(ctx context.Context, userID, companyID, newOwnerID string) error {
	if !s.Authz.Check(ctx, userID, authz.ActionTransfer, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE companies SET admin_id = $2, updated_at = $3 WHERE id = $1
	`, companyID, newOwnerID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to transfer ownership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE company_members SET role = 'admin' WHERE company_id = $1 AND user_id = $2
	`, companyID, newOwnerID); err != nil {
		return fmt.Errorf("failed to promote new owner: %w", err)
	}

	return tx.Commit()
}

// Delete removes the company. Child rows carrying a company FK cascade at the
// database; the janitor sweep covers the event tables that reference parents
// without constraints.
func (s *CompanyService) Delete(ctx context.Context, userID, companyID string) error {
	if !s.Authz.Check(ctx, userID, authz.ActionDelete, authz.ResourceCompany, companyID) {
		return authz.ErrForbidden
	}
	res, err := s.PG.ExecContext(ctx, `DELETE FROM companies WHERE id = $1`, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// GetAll lists every company (the discovery surface for access requests).
func (s *CompanyService) GetAll(ctx context.Context) ([]db.Company, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, name, COALESCE(description, ''), COALESCE(logo_url, ''), admin_id, created_at, updated_at
		FROM companies ORDER BY created_at
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []db.Company
	for rows.Next() {
		var c db.Company
		if err := rows.Scan(&c.ID, &c.Name, &c.Description, &c.LogoURL, &c.AdminID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// GetByID fetches one company.
func (s *CompanyService) GetByID(ctx context.Context, companyID string) (*db.Company, error) {
	var c db.Company
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, name, COALESCE(description, ''), COALESCE(logo_url, ''), admin_id, created_at, updated_at
		FROM companies WHERE id = $1
	`, companyID).Scan(&c.ID, &c.Name, &c.Description, &c.LogoURL, &c.AdminID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// GetMyMemberships returns the caller's company memberships.
func (s *CompanyService) GetMyMemberships(ctx context.Context, userID string) ([]db.CompanyMember, error) {
	return s.Members.ListUserCompanyMemberships(ctx, userID)
}

// GetMemberRecord returns the caller's membership row for one company, or
// ErrNotFound when they have none.
func (s *CompanyService) GetMemberRecord(ctx context.Context, userID, companyID string) (*db.CompanyMember, error) {
	return s.Members.GetCompanyMembership(ctx, companyID, userID)
}

// GetMembers returns the roster with user details and resolved role labels.
func (s *CompanyService) GetMembers(ctx context.Context, companyID string) ([]db.CompanyMember, error) {
	return s.Members.ListCompanyMembers(ctx, companyID)
}

// UpdateMemberProfileInput patches role, custom role and designation at once.
type UpdateMemberProfileInput struct {
	Role        string  `json:"role" binding:"required,oneof=admin employee"`
	RoleID      *string `json:"role_id,omitempty"`
	Designation string  `json:"designation,omitempty"`
}

// UpdateMemberProfile lets an admin edit any member, and a member edit their
// own non-role fields. A system-role change always requires admin and is
// subject to the owner-protection and self-demotion locks.
func (s *CompanyService) UpdateMemberProfile(ctx context.Context, userID, memberID string, input UpdateMemberProfileInput) error {
	member, err := s.Members.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}

	isAdmin := s.Authz.GetCompanyRole(ctx, userID, member.CompanyID) == authz.RoleAdmin
	isSelf := member.UserID == userID
	if !isAdmin && !isSelf {
		return authz.ErrForbidden
	}

	if input.Role != member.Role {
		if err := s.guardRoleChange(ctx, userID, member, input.Role, isAdmin); err != nil {
			return err
		}
	}

	return s.Members.UpdateCompanyMemberProfile(ctx, memberID, authz.Role(input.Role), input.RoleID, input.Designation)
}

// UpdateMemberRole changes the system role only. Admin only, same locks.
func (s *CompanyService) UpdateMemberRole(ctx context.Context, userID, memberID, role string) error {
	member, err := s.Members.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}

	isAdmin := s.Authz.GetCompanyRole(ctx, userID, member.CompanyID) == authz.RoleAdmin
	if !isAdmin {
		return authz.ErrForbidden
	}
	if err := s.guardRoleChange(ctx, userID, member, role, isAdmin); err != nil {
		return err
	}

	return s.Members.UpdateCompanyMemberRole(ctx, memberID, authz.Role(role))
}

// guardRoleChange enforces the two compound locks on system-role changes:
// the company owner can never be demoted, and an admin can never demote
// themself (a different admin has to do it).
func (s *CompanyService) guardRoleChange(ctx context.Context, userID string, member *db.CompanyMember, newRole string, isAdmin bool) error {
	if !isAdmin {
		return authz.ErrForbidden
	}
	if newRole == string(authz.RoleAdmin) {
		return nil
	}

	company, err := s.GetByID(ctx, member.CompanyID)
	if err != nil {
		return err
	}
	if company.AdminID == member.UserID {
		return fmt.Errorf("cannot demote the organization owner: %w", authz.ErrForbidden)
	}
	if member.UserID == userID {
		return fmt.Errorf("cannot demote yourself, ask another admin: %w", authz.ErrForbidden)
	}
	return nil
}

// UpdateMemberStatus activates or suspends a membership. Activation also
// joins the member to the company's default workspace (idempotent). Admin
// only.
func (s *CompanyService) UpdateMemberStatus(ctx context.Context, userID, memberID, status string) error {
	member, err := s.Members.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionManageMembers, authz.ResourceCompany, member.CompanyID) {
		return authz.ErrForbidden
	}

	if err := s.Members.UpdateCompanyMemberStatus(ctx, memberID, status); err != nil {
		return err
	}

	if status == "active" {
		var defaultWsID string
		err := s.PG.QueryRowContext(ctx, `
			SELECT id FROM workspaces WHERE company_id = $1 AND is_default = true
		`, member.CompanyID).Scan(&defaultWsID)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil
			}
			return fmt.Errorf("failed to find default workspace: %w", err)
		}
		return s.Members.EnsureWorkspaceMember(ctx, defaultWsID, member.UserID, authz.RoleMember)
	}
	return nil
}

// UpdateMemberDesignation sets the free-text designation. Admin only.
func (s *CompanyService) UpdateMemberDesignation(ctx context.Context, userID, memberID, designation string) error {
	member, err := s.Members.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionManageMembers, authz.ResourceCompany, member.CompanyID) {
		return authz.ErrForbidden
	}
	return s.Members.UpdateCompanyMemberDesignation(ctx, memberID, designation)
}

// RemoveMember deletes a membership, cascading the user's workspace
// memberships within that company. Admin only; the owner cannot be removed.
func (s *CompanyService) RemoveMember(ctx context.Context, userID, memberID string) error {
	member, err := s.Members.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionManageMembers, authz.ResourceCompany, member.CompanyID) {
		return authz.ErrForbidden
	}

	company, err := s.GetByID(ctx, member.CompanyID)
	if err != nil {
		return err
	}
	if company.AdminID == member.UserID {
		return fmt.Errorf("cannot remove the organization owner: %w", authz.ErrForbidden)
	}

	return s.Members.RemoveCompanyMember(ctx, memberID)
}

// RequestAccess creates a pending employee membership. Conflicts when any
// membership (active or pending) already exists for the pair.
func (s *CompanyService) RequestAccess(ctx context.Context, userID, companyID string) error {
	if _, err := s.GetByID(ctx, companyID); err != nil {
		return err
	}
	_, err := s.Members.AddCompanyMember(ctx, companyID, userID, authz.RoleEmployee, "pending")
	return err
}
