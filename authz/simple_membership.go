package authz

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/centrohq/centro/db"
)

// SimpleMembershipManager implements MembershipManager using SQL. The pair
// uniqueness rules (one row per (company,user) / (workspace,user)) are
// enforced by lookup-before-insert inside a transaction, with unique indexes
// as backstop.
type SimpleMembershipManager struct {
	db    *sql.DB
	authz *SimpleAuthorizer
}

// NewSimpleMembershipManager creates a SimpleMembershipManager. The
// authorizer reference is used to drop cached roles after mutations; it may
// be nil in tests.
func NewSimpleMembershipManager(database *sql.DB, authorizer *SimpleAuthorizer) *SimpleMembershipManager {
	return &SimpleMembershipManager{db: database, authz: authorizer}
}

var _ MembershipManager = (*SimpleMembershipManager)(nil)

// NewSimpleBackend wires the default SQL-backed authorization components.
// cache may be nil when Redis is not configured.
func NewSimpleBackend(database *sql.DB, cache *redis.Client) (*SimpleAuthorizer, *SimpleMembershipManager) {
	authorizer := NewSimpleAuthorizer(database, cache)
	return authorizer, NewSimpleMembershipManager(database, authorizer)
}

// ============================================================================
// Company scope
// ============================================================================

// AddCompanyMember inserts a membership row, failing with ErrConflict when
// the pair already exists (active or pending).
func (m *SimpleMembershipManager) AddCompanyMember(ctx context.Context, companyID, userID string, role Role, status string) (*db.CompanyMember, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM company_members WHERE company_id = $1 AND user_id = $2
	`, companyID, userID).Scan(&existing)
	if err == nil {
		return nil, ErrConflict
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &db.CompanyMember{
		ID:        uuid.New().String(),
		CompanyID: companyID,
		UserID:    userID,
		Role:      string(role),
		Status:    status,
		CreatedAt: time.Now(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO company_members (id, company_id, user_id, role, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, member.ID, member.CompanyID, member.UserID, member.Role, member.Status, member.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add company member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	m.invalidate(ctx, companyID, userID)
	return member, nil
}

// GetCompanyMember retrieves a membership row by its id.
func (m *SimpleMembershipManager) GetCompanyMember(ctx context.Context, memberID string) (*db.CompanyMember, error) {
	return scanCompanyMember(m.db.QueryRowContext(ctx, `
		SELECT id, company_id, user_id, role, role_id, COALESCE(designation, ''), status, created_at
		FROM company_members WHERE id = $1
	`, memberID))
}

// GetCompanyMembership retrieves the row for a (company, user) pair.
func (m *SimpleMembershipManager) GetCompanyMembership(ctx context.Context, companyID, userID string) (*db.CompanyMember, error) {
	return scanCompanyMember(m.db.QueryRowContext(ctx, `
		SELECT id, company_id, user_id, role, role_id, COALESCE(designation, ''), status, created_at
		FROM company_members WHERE company_id = $1 AND user_id = $2
	`, companyID, userID))
}

// ListCompanyMembers returns the roster with user details and the resolved
// role label (custom role name when assigned, else the designation string).
func (m *SimpleMembershipManager) ListCompanyMembers(ctx context.Context, companyID string) ([]db.CompanyMember, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT cm.id, cm.company_id, cm.user_id, cm.role, cm.role_id, COALESCE(cm.designation, ''), cm.status, cm.created_at,
		       u.id, u.name, u.email, COALESCE(u.avatar_url, ''),
		       r.id, r.name, r.color, COALESCE(r.description, '')
		FROM company_members cm
		JOIN users u ON u.id = cm.user_id
		LEFT JOIN roles r ON r.id = cm.role_id
		WHERE cm.company_id = $1
		ORDER BY cm.created_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list company members: %w", err)
	}
	defer rows.Close()

	var members []db.CompanyMember
	for rows.Next() {
		var cm db.CompanyMember
		var u db.User
		var roleID, rID, rName, rColor, rDesc sql.NullString
		if err := rows.Scan(&cm.ID, &cm.CompanyID, &cm.UserID, &cm.Role, &roleID, &cm.Designation, &cm.Status, &cm.CreatedAt,
			&u.ID, &u.Name, &u.Email, &u.AvatarURL,
			&rID, &rName, &rColor, &rDesc); err != nil {
			return nil, fmt.Errorf("failed to scan company member: %w", err)
		}
		if roleID.Valid {
			cm.RoleID = &roleID.String
		}
		cm.User = &u
		cm.RoleName = cm.Designation
		if rID.Valid {
			cm.CustomRole = &db.Role{ID: rID.String, CompanyID: cm.CompanyID, Name: rName.String, Color: rColor.String, Description: rDesc.String}
			cm.RoleName = rName.String
		}
		members = append(members, cm)
	}
	return members, rows.Err()
}

// ListUserCompanyMemberships returns every company membership a user holds.
func (m *SimpleMembershipManager) ListUserCompanyMemberships(ctx context.Context, userID string) ([]db.CompanyMember, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, company_id, user_id, role, role_id, COALESCE(designation, ''), status, created_at
		FROM company_members WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []db.CompanyMember
	for rows.Next() {
		var cm db.CompanyMember
		var roleID sql.NullString
		if err := rows.Scan(&cm.ID, &cm.CompanyID, &cm.UserID, &cm.Role, &roleID, &cm.Designation, &cm.Status, &cm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		if roleID.Valid {
			cm.RoleID = &roleID.String
		}
		members = append(members, cm)
	}
	return members, rows.Err()
}

// UpdateCompanyMemberRole changes the system role on a membership row.
func (m *SimpleMembershipManager) UpdateCompanyMemberRole(ctx context.Context, memberID string, role Role) error {
	return m.updateCompanyMember(ctx, memberID, `UPDATE company_members SET role = $2 WHERE id = $1`, string(role))
}

// UpdateCompanyMemberStatus changes the membership status.
func (m *SimpleMembershipManager) UpdateCompanyMemberStatus(ctx context.Context, memberID, status string) error {
	return m.updateCompanyMember(ctx, memberID, `UPDATE company_members SET status = $2 WHERE id = $1`, status)
}

// UpdateCompanyMemberDesignation changes the free-text designation.
func (m *SimpleMembershipManager) UpdateCompanyMemberDesignation(ctx context.Context, memberID, designation string) error {
	return m.updateCompanyMember(ctx, memberID, `UPDATE company_members SET designation = $2 WHERE id = $1`, designation)
}

// UpdateCompanyMemberProfile patches role, custom role and designation in one
// statement.
func (m *SimpleMembershipManager) UpdateCompanyMemberProfile(ctx context.Context, memberID string, role Role, roleID *string, designation string) error {
	member, err := m.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}
	res, err := m.db.ExecContext(ctx, `
		UPDATE company_members SET role = $2, role_id = $3, designation = $4 WHERE id = $1
	`, memberID, string(role), roleID, designation)
	if err != nil {
		return fmt.Errorf("failed to update member profile: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	m.invalidate(ctx, member.CompanyID, member.UserID)
	return nil
}

// AssignCustomRole sets the custom role reference on a membership row.
func (m *SimpleMembershipManager) AssignCustomRole(ctx context.Context, memberID string, roleID string) error {
	return m.updateCompanyMember(ctx, memberID, `UPDATE company_members SET role_id = $2 WHERE id = $1`, roleID)
}

// RemoveCompanyMember deletes the membership and, transactionally, the
// user's workspace memberships inside that company only.
func (m *SimpleMembershipManager) RemoveCompanyMember(ctx context.Context, memberID string) error {
	member, err := m.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM company_members WHERE id = $1`, memberID); err != nil {
		return fmt.Errorf("failed to remove company member: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		DELETE FROM workspace_members wm
		USING workspaces w
		WHERE wm.workspace_id = w.id AND w.company_id = $1 AND wm.user_id = $2
	`, member.CompanyID, member.UserID); err != nil {
		return fmt.Errorf("failed to cascade workspace memberships: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	m.invalidate(ctx, member.CompanyID, member.UserID)
	return nil
}

// ============================================================================
// Workspace scope
// ============================================================================

// AddWorkspaceMember inserts a membership row, ErrConflict on a duplicate
// pair.
func (m *SimpleMembershipManager) AddWorkspaceMember(ctx context.Context, workspaceID, userID string, role Role) (*db.WorkspaceMember, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID).Scan(&existing)
	if err == nil {
		return nil, ErrConflict
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &db.WorkspaceMember{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Role:        string(role),
		CreatedAt:   time.Now(),
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, member.ID, member.WorkspaceID, member.UserID, member.Role, member.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add workspace member: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return member, nil
}

// GetWorkspaceMember retrieves a membership row by its id.
func (m *SimpleMembershipManager) GetWorkspaceMember(ctx context.Context, memberID string) (*db.WorkspaceMember, error) {
	return scanWorkspaceMember(m.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, role, COALESCE(designation, ''), created_at
		FROM workspace_members WHERE id = $1
	`, memberID))
}

// GetWorkspaceMembership retrieves the row for a (workspace, user) pair.
func (m *SimpleMembershipManager) GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*db.WorkspaceMember, error) {
	return scanWorkspaceMember(m.db.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, role, COALESCE(designation, ''), created_at
		FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID))
}

// ListWorkspaceMembers returns the roster with user details.
func (m *SimpleMembershipManager) ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]db.WorkspaceMember, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT wm.id, wm.workspace_id, wm.user_id, wm.role, COALESCE(wm.designation, ''), wm.created_at,
		       u.id, u.name, u.email, COALESCE(u.avatar_url, '')
		FROM workspace_members wm
		JOIN users u ON u.id = wm.user_id
		WHERE wm.workspace_id = $1
		ORDER BY wm.created_at
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace members: %w", err)
	}
	defer rows.Close()

	var members []db.WorkspaceMember
	for rows.Next() {
		var wm db.WorkspaceMember
		var u db.User
		if err := rows.Scan(&wm.ID, &wm.WorkspaceID, &wm.UserID, &wm.Role, &wm.Designation, &wm.CreatedAt,
			&u.ID, &u.Name, &u.Email, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan workspace member: %w", err)
		}
		wm.User = &u
		members = append(members, wm)
	}
	return members, rows.Err()
}

// ListUserWorkspaceMemberships returns every workspace membership the user
// holds, across companies.
func (m *SimpleMembershipManager) ListUserWorkspaceMemberships(ctx context.Context, userID string) ([]db.WorkspaceMember, error) {
	rows, err := m.db.QueryContext(ctx, `
		SELECT id, workspace_id, user_id, role, COALESCE(designation, ''), created_at
		FROM workspace_members WHERE user_id = $1
		ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list memberships: %w", err)
	}
	defer rows.Close()

	var members []db.WorkspaceMember
	for rows.Next() {
		var wm db.WorkspaceMember
		if err := rows.Scan(&wm.ID, &wm.WorkspaceID, &wm.UserID, &wm.Role, &wm.Designation, &wm.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, wm)
	}
	return members, rows.Err()
}

// UpdateWorkspaceMemberRole changes the stored workspace role.
func (m *SimpleMembershipManager) UpdateWorkspaceMemberRole(ctx context.Context, memberID string, role Role) error {
	res, err := m.db.ExecContext(ctx, `UPDATE workspace_members SET role = $2 WHERE id = $1`, memberID, string(role))
	if err != nil {
		return fmt.Errorf("failed to update workspace member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateWorkspaceMemberDesignation changes the free-text designation.
func (m *SimpleMembershipManager) UpdateWorkspaceMemberDesignation(ctx context.Context, memberID, designation string) error {
	res, err := m.db.ExecContext(ctx, `UPDATE workspace_members SET designation = $2 WHERE id = $1`, memberID, designation)
	if err != nil {
		return fmt.Errorf("failed to update workspace member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveWorkspaceMember deletes a workspace membership row.
func (m *SimpleMembershipManager) RemoveWorkspaceMember(ctx context.Context, memberID string) error {
	res, err := m.db.ExecContext(ctx, `DELETE FROM workspace_members WHERE id = $1`, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove workspace member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureWorkspaceMember inserts the pair if missing; no-op otherwise.
func (m *SimpleMembershipManager) EnsureWorkspaceMember(ctx context.Context, workspaceID, userID string, role Role) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (workspace_id, user_id) DO NOTHING
	`, uuid.New().String(), workspaceID, userID, string(role), time.Now())
	if err != nil {
		return fmt.Errorf("failed to ensure workspace member: %w", err)
	}
	return nil
}

// PromoteWorkspaceMember upserts the pair at admin role.
func (m *SimpleMembershipManager) PromoteWorkspaceMember(ctx context.Context, workspaceID, userID string) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, 'admin', $4)
		ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = 'admin'
	`, uuid.New().String(), workspaceID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to promote workspace member: %w", err)
	}
	return nil
}

// ============================================================================
// helpers
// ============================================================================

func (m *SimpleMembershipManager) updateCompanyMember(ctx context.Context, memberID, query string, arg interface{}) error {
	member, err := m.GetCompanyMember(ctx, memberID)
	if err != nil {
		return err
	}
	res, err := m.db.ExecContext(ctx, query, memberID, arg)
	if err != nil {
		return fmt.Errorf("failed to update company member: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	m.invalidate(ctx, member.CompanyID, member.UserID)
	return nil
}

func (m *SimpleMembershipManager) invalidate(ctx context.Context, companyID, userID string) {
	if m.authz != nil {
		m.authz.invalidateCompanyRole(ctx, companyID, userID)
	}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCompanyMember(row rowScanner) (*db.CompanyMember, error) {
	var cm db.CompanyMember
	var roleID sql.NullString
	err := row.Scan(&cm.ID, &cm.CompanyID, &cm.UserID, &cm.Role, &roleID, &cm.Designation, &cm.Status, &cm.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get company member: %w", err)
	}
	if roleID.Valid {
		cm.RoleID = &roleID.String
	}
	return &cm, nil
}

func scanWorkspaceMember(row rowScanner) (*db.WorkspaceMember, error) {
	var wm db.WorkspaceMember
	err := row.Scan(&wm.ID, &wm.WorkspaceID, &wm.UserID, &wm.Role, &wm.Designation, &wm.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workspace member: %w", err)
	}
	return &wm, nil
}
