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

// RoleService manages per-company custom roles and the request/approve flow
// members use to obtain one. Custom roles are display tags, not a security
// boundary; the system role on the membership stays authoritative.
type RoleService struct {
	PG      *sql.DB
	Authz   authz.Authorizer
	Members authz.MembershipManager
}

func NewRoleService(pg *sql.DB, authorizer authz.Authorizer, members authz.MembershipManager) *RoleService {
	return &RoleService{PG: pg, Authz: authorizer, Members: members}
}

// CreateRoleInput carries custom role creation arguments.
type CreateRoleInput struct {
	Name        string `json:"name" binding:"required"`
	Color       string `json:"color" binding:"required"`
	Description string `json:"description,omitempty"`
}

// Create adds a custom role to a company. Admin only.
func (s *RoleService) Create(ctx context.Context, userID, companyID string, input CreateRoleInput) (*db.Role, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionManageRoles, authz.ResourceCompany, companyID) {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, authz.ErrInvalidInput
	}

	role := &db.Role{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		Name:        input.Name,
		Color:       input.Color,
		Description: input.Description,
		CreatedAt:   time.Now(),
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO roles (id, company_id, name, color, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, role.ID, role.CompanyID, role.Name, role.Color, nullable(role.Description), role.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create role: %w", err)
	}
	return role, nil
}

// GetForCompany lists a company's custom roles. Active members only.
func (s *RoleService) GetForCompany(ctx context.Context, userID, companyID string) ([]db.Role, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, company_id, name, color, COALESCE(description, ''), created_at
		FROM roles WHERE company_id = $1 ORDER BY created_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []db.Role
	for rows.Next() {
		var r db.Role
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.Name, &r.Color, &r.Description, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, r)
	}
	return roles, rows.Err()
}

// Update edits a custom role. Admin only.
func (s *RoleService) Update(ctx context.Context, userID, roleID string, input CreateRoleInput) error {
	role, err := s.getRole(ctx, roleID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionManageRoles, authz.ResourceCompany, role.CompanyID) {
		return authz.ErrForbidden
	}
	_, err = s.PG.ExecContext(ctx, `
		UPDATE roles SET name = $2, color = $3, description = $4 WHERE id = $1
	`, roleID, input.Name, input.Color, nullable(input.Description))
	if err != nil {
		return fmt.Errorf("failed to update role: %w", err)
	}
	return nil
}

// Delete removes a custom role and clears it from every membership that
// carries it, in one transaction. Admin only.
func (s *RoleService) Delete(ctx context.Context, userID, roleID string) error {
	role, err := s.getRole(ctx, roleID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionManageRoles, authz.ResourceCompany, role.CompanyID) {
		return authz.ErrForbidden
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE company_members SET role_id = NULL WHERE role_id = $1
	`, roleID); err != nil {
		return fmt.Errorf("failed to detach role from members: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM role_requests WHERE role_id = $1
	`, roleID); err != nil {
		return fmt.Errorf("failed to drop role requests: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE id = $1`, roleID); err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}

	return tx.Commit()
}

// Request files a pending role request. The caller must be an active company
// member; a second pending request in the same company conflicts.
func (s *RoleService) Request(ctx context.Context, userID, roleID string) (*db.RoleRequest, error) {
	role, err := s.getRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !s.Authz.IsCompanyMember(ctx, userID, role.CompanyID) {
		return nil, authz.ErrForbidden
	}

	var existing string
	err = s.PG.QueryRowContext(ctx, `
		SELECT id FROM role_requests
		WHERE company_id = $1 AND user_id = $2 AND status = 'pending'
	`, role.CompanyID, userID).Scan(&existing)
	if err == nil {
		return nil, authz.ErrConflict
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check pending role requests: %w", err)
	}

	req := &db.RoleRequest{
		ID:        uuid.New().String(),
		CompanyID: role.CompanyID,
		UserID:    userID,
		RoleID:    roleID,
		Status:    "pending",
		CreatedAt: time.Now(),
	}
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO role_requests (id, company_id, user_id, role_id, status, created_at)
		VALUES ($1, $2, $3, $4, 'pending', $5)
	`, req.ID, req.CompanyID, req.UserID, req.RoleID, req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create role request: %w", err)
	}
	return req, nil
}

// GetRequests lists pending role requests with requester and role details.
// Admin only.
func (s *RoleService) GetRequests(ctx context.Context, userID, companyID string) ([]db.RoleRequest, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionResolveRequests, authz.ResourceCompany, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT rr.id, rr.company_id, rr.user_id, rr.role_id, rr.status, rr.created_at,
		       u.id, u.external_id, u.name, COALESCE(u.email, ''), COALESCE(u.avatar_url, ''),
		       r.id, r.company_id, r.name, r.color, COALESCE(r.description, '')
		FROM role_requests rr
		JOIN users u ON u.id = rr.user_id
		JOIN roles r ON r.id = rr.role_id
		WHERE rr.company_id = $1 AND rr.status = 'pending'
		ORDER BY rr.created_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list role requests: %w", err)
	}
	defer rows.Close()

	var requests []db.RoleRequest
	for rows.Next() {
		var req db.RoleRequest
		var u db.User
		var r db.Role
		if err := rows.Scan(&req.ID, &req.CompanyID, &req.UserID, &req.RoleID, &req.Status, &req.CreatedAt,
			&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.AvatarURL,
			&r.ID, &r.CompanyID, &r.Name, &r.Color, &r.Description); err != nil {
			return nil, fmt.Errorf("failed to scan role request: %w", err)
		}
		req.User = &u
		req.Role = &r
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Resolve approves or rejects a pending role request. Approval also assigns
// the custom role to the requester's membership, in the same transaction.
// Admin only.
func (s *RoleService) Resolve(ctx context.Context, userID, requestID string, approve bool) error {
	var req db.RoleRequest
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, company_id, user_id, role_id, status FROM role_requests WHERE id = $1
	`, requestID).Scan(&req.ID, &req.CompanyID, &req.UserID, &req.RoleID, &req.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get role request: %w", err)
	}
	if !s.Authz.Check(ctx, userID, authz.ActionResolveRequests, authz.ResourceCompany, req.CompanyID) {
		return authz.ErrForbidden
	}
	if req.Status != "pending" {
		return authz.ErrConflict
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	status := "rejected"
	if approve {
		status = "approved"
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE role_requests SET status = $2 WHERE id = $1
	`, requestID, status); err != nil {
		return fmt.Errorf("failed to resolve role request: %w", err)
	}

	if approve {
		if _, err := tx.ExecContext(ctx, `
			UPDATE company_members SET role_id = $3 WHERE company_id = $1 AND user_id = $2
		`, req.CompanyID, req.UserID, req.RoleID); err != nil {
			return fmt.Errorf("failed to assign role: %w", err)
		}
	}

	return tx.Commit()
}

func (s *RoleService) getRole(ctx context.Context, roleID string) (*db.Role, error) {
	var r db.Role
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, company_id, name, color, COALESCE(description, ''), created_at
		FROM roles WHERE id = $1
	`, roleID).Scan(&r.ID, &r.CompanyID, &r.Name, &r.Color, &r.Description, &r.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return &r, nil
}
