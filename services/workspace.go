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

// iconRule maps a department-name keyword to a workspace icon. First match
// wins, scanned in declaration order.
type iconRule struct {
	keywords []string
	icon     string
}

var iconRules = []iconRule{
	{[]string{"tech", "dev", "code", "stack", "engineer", "sys", "compute"}, "Terminal"},
	{[]string{"market", "growth", "seo", "ad", "brand", "content", "social"}, "TrendingUp"},
	{[]string{"sales", "rev", "money", "finance", "bill", "account", "tax"}, "BadgeDollarSign"},
	{[]string{"design", "art", "ui", "ux", "creative", "studio"}, "Palette"},
	{[]string{"legal", "law", "policy", "compliance", "audit"}, "Scale"},
	{[]string{"hr", "human", "people", "recruit", "talent", "culture"}, "Users"},
	{[]string{"ops", "operation", "logist", "supply", "admin"}, "Settings2"},
	{[]string{"support", "help", "customer", "service", "care"}, "LifeBuoy"},
	{[]string{"product", "roadmap", "feature", "spec"}, "Rocket"},
	{[]string{"data", "analytic", "science", "bi", "insight"}, "Database"},
	{[]string{"exec", "ceo", "board", "strategy"}, "Briefcase"},
	{[]string{"qa", "test", "quality", "bug"}, "Bug"},
	{[]string{"security", "sec", "cyber", "guard"}, "ShieldCheck"},
}

// inferIcon picks an icon for a workspace from keywords in its name.
func inferIcon(name string) string {
	lower := strings.ToLower(name)
	for _, rule := range iconRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.icon
			}
		}
	}
	return "Box"
}

// WorkspaceService handles department lifecycle, membership and access
// requests inside a company.
type WorkspaceService struct {
	PG      *sql.DB
	Authz   authz.Authorizer
	Members authz.MembershipManager

	// Cascade scope: whether deleting a workspace also drops its kanban
	// tasks and assets, or leaves them for company-level cleanup.
	CascadeKanbanTasks bool
	CascadeAssets      bool
}

func NewWorkspaceService(pg *sql.DB, authorizer authz.Authorizer, members authz.MembershipManager, cascadeTasks, cascadeAssets bool) *WorkspaceService {
	return &WorkspaceService{
		PG:                 pg,
		Authz:              authorizer,
		Members:            members,
		CascadeKanbanTasks: cascadeTasks,
		CascadeAssets:      cascadeAssets,
	}
}

// CreateWorkspaceInput carries workspace creation arguments. Icon is optional;
// when empty it is inferred from the name.
type CreateWorkspaceInput struct {
	Name            string   `json:"name" binding:"required"`
	Icon            string   `json:"icon,omitempty"`
	WorkspaceHeadID string   `json:"workspace_head_id" binding:"required"`
	Budget          *float64 `json:"budget,omitempty"`
}

// Create adds a workspace and enrolls its head as an admin member, in one
// transaction. Company admin only.
func (s *WorkspaceService) Create(ctx context.Context, userID, companyID string, input CreateWorkspaceInput) (*db.Workspace, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, companyID) {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, authz.ErrInvalidInput
	}

	icon := input.Icon
	if icon == "" {
		icon = inferIcon(input.Name)
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()
	ws := &db.Workspace{
		ID:              uuid.New().String(),
		CompanyID:       companyID,
		Name:            input.Name,
		Icon:            icon,
		WorkspaceHeadID: input.WorkspaceHeadID,
		Budget:          input.Budget,
		CreatedAt:       now,
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspaces (id, company_id, name, icon, workspace_head_id, is_default, budget, created_at)
		VALUES ($1, $2, $3, $4, $5, false, $6, $7)
	`, ws.ID, ws.CompanyID, ws.Name, ws.Icon, ws.WorkspaceHeadID, ws.Budget, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, 'admin', $4)
		ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = 'admin'
	`, uuid.New().String(), ws.ID, ws.WorkspaceHeadID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll workspace head: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit: %w", err)
	}
	return ws, nil
}

// GetForCompany lists all workspaces of a company. Active members only.
func (s *WorkspaceService) GetForCompany(ctx context.Context, userID, companyID string) ([]db.Workspace, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, company_id, name, icon, workspace_head_id, is_default, budget, created_at
		FROM workspaces WHERE company_id = $1 ORDER BY created_at
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	defer rows.Close()

	var workspaces []db.Workspace
	for rows.Next() {
		var w db.Workspace
		if err := rows.Scan(&w.ID, &w.CompanyID, &w.Name, &w.Icon, &w.WorkspaceHeadID, &w.IsDefault, &w.Budget, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan workspace: %w", err)
		}
		workspaces = append(workspaces, w)
	}
	return workspaces, rows.Err()
}

// GetByID fetches one workspace.
func (s *WorkspaceService) GetByID(ctx context.Context, workspaceID string) (*db.Workspace, error) {
	var w db.Workspace
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, company_id, name, icon, workspace_head_id, is_default, budget, created_at
		FROM workspaces WHERE id = $1
	`, workspaceID).Scan(&w.ID, &w.CompanyID, &w.Name, &w.Icon, &w.WorkspaceHeadID, &w.IsDefault, &w.Budget, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get workspace: %w", err)
	}
	return &w, nil
}

// UpdateWorkspaceInput carries editable workspace fields.
type UpdateWorkspaceInput struct {
	Name   string   `json:"name" binding:"required"`
	Icon   string   `json:"icon,omitempty"`
	Budget *float64 `json:"budget,omitempty"`
}

// Update edits name, icon and budget. Workspace admin rights required.
func (s *WorkspaceService) Update(ctx context.Context, userID, workspaceID string, input UpdateWorkspaceInput) error {
	if !s.Authz.HasWorkspaceAdminRights(ctx, userID, workspaceID) {
		return authz.ErrForbidden
	}
	icon := input.Icon
	if icon == "" {
		icon = inferIcon(input.Name)
	}
	res, err := s.PG.ExecContext(ctx, `
		UPDATE workspaces SET name = $2, icon = $3, budget = $4 WHERE id = $1
	`, workspaceID, input.Name, icon, input.Budget)
	if err != nil {
		return fmt.Errorf("failed to update workspace: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// UpdateHead repoints the workspace head and upserts that user's membership
// at admin role, in one transaction. Company admin only.
func (s *WorkspaceService) UpdateHead(ctx context.Context, userID, workspaceID, newHeadID string) error {
	ws, err := s.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceCompany, ws.CompanyID) {
		return authz.ErrForbidden
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		UPDATE workspaces SET workspace_head_id = $2 WHERE id = $1
	`, workspaceID, newHeadID); err != nil {
		return fmt.Errorf("failed to update workspace head: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
		VALUES ($1, $2, $3, 'admin', $4)
		ON CONFLICT (workspace_id, user_id) DO UPDATE SET role = 'admin'
	`, uuid.New().String(), workspaceID, newHeadID, time.Now()); err != nil {
		return fmt.Errorf("failed to enroll new head: %w", err)
	}

	return tx.Commit()
}

// Delete removes a workspace and, in the same transaction, its tickets plus
// whatever the cascade scope includes. The default workspace cannot be
// deleted. Company admin only.
func (s *WorkspaceService) Delete(ctx context.Context, userID, workspaceID string) error {
	ws, err := s.GetByID(ctx, workspaceID)
	if err != nil {
		return err
	}
	if !s.Authz.Check(ctx, userID, authz.ActionDelete, authz.ResourceCompany, ws.CompanyID) {
		return authz.ErrForbidden
	}
	if ws.IsDefault {
		return fmt.Errorf("the default workspace cannot be deleted: %w", authz.ErrForbidden)
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	steps := []string{
		`DELETE FROM tickets WHERE workspace_id = $1`,
		`DELETE FROM workspace_members WHERE workspace_id = $1`,
		`DELETE FROM workspace_requests WHERE workspace_id = $1`,
		`DELETE FROM messages WHERE workspace_id = $1`,
	}
	if s.CascadeKanbanTasks {
		steps = append(steps, `DELETE FROM kanban_tasks WHERE workspace_id = $1`)
	}
	if s.CascadeAssets {
		steps = append(steps, `DELETE FROM assets WHERE workspace_id = $1`)
	}
	steps = append(steps, `DELETE FROM workspaces WHERE id = $1`)

	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, workspaceID); err != nil {
			return fmt.Errorf("failed to cascade workspace delete: %w", err)
		}
	}

	return tx.Commit()
}

// GetMembers returns the workspace roster with user details.
func (s *WorkspaceService) GetMembers(ctx context.Context, userID, workspaceID string) ([]db.WorkspaceMember, error) {
	ws, err := s.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !s.Authz.IsCompanyMember(ctx, userID, ws.CompanyID) {
		return nil, authz.ErrForbidden
	}
	return s.Members.ListWorkspaceMembers(ctx, workspaceID)
}

// AddMember enrolls a user. Workspace admin rights required.
func (s *WorkspaceService) AddMember(ctx context.Context, userID, workspaceID, targetUserID, role string) (*db.WorkspaceMember, error) {
	if !s.Authz.HasWorkspaceAdminRights(ctx, userID, workspaceID) {
		return nil, authz.ErrForbidden
	}
	if role != string(authz.RoleAdmin) && role != string(authz.RoleMember) {
		return nil, authz.ErrInvalidInput
	}
	return s.Members.AddWorkspaceMember(ctx, workspaceID, targetUserID, authz.Role(role))
}

// UpdateMemberRole changes a workspace member's role. Admin rights required.
func (s *WorkspaceService) UpdateMemberRole(ctx context.Context, userID, memberID, role string) error {
	member, err := s.Members.GetWorkspaceMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !s.Authz.HasWorkspaceAdminRights(ctx, userID, member.WorkspaceID) {
		return authz.ErrForbidden
	}
	if role != string(authz.RoleAdmin) && role != string(authz.RoleMember) {
		return authz.ErrInvalidInput
	}
	return s.Members.UpdateWorkspaceMemberRole(ctx, memberID, authz.Role(role))
}

// UpdateMemberDesignation sets a member's designation. Admin rights required.
func (s *WorkspaceService) UpdateMemberDesignation(ctx context.Context, userID, memberID, designation string) error {
	member, err := s.Members.GetWorkspaceMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !s.Authz.HasWorkspaceAdminRights(ctx, userID, member.WorkspaceID) {
		return authz.ErrForbidden
	}
	return s.Members.UpdateWorkspaceMemberDesignation(ctx, memberID, designation)
}

// RemoveMember drops a workspace membership. Admin rights required; the
// workspace head cannot be removed while still head.
func (s *WorkspaceService) RemoveMember(ctx context.Context, userID, memberID string) error {
	member, err := s.Members.GetWorkspaceMember(ctx, memberID)
	if err != nil {
		return err
	}
	if !s.Authz.HasWorkspaceAdminRights(ctx, userID, member.WorkspaceID) {
		return authz.ErrForbidden
	}
	ws, err := s.GetByID(ctx, member.WorkspaceID)
	if err != nil {
		return err
	}
	if ws.WorkspaceHeadID == member.UserID {
		return fmt.Errorf("reassign the workspace head before removing them: %w", authz.ErrForbidden)
	}
	return s.Members.RemoveWorkspaceMember(ctx, memberID)
}

// RequestAccess files a pending workspace access request. The caller must be
// an active company member who is not already a workspace member; a pending
// request for the pair conflicts.
func (s *WorkspaceService) RequestAccess(ctx context.Context, userID, workspaceID string) (*db.WorkspaceRequest, error) {
	ws, err := s.GetByID(ctx, workspaceID)
	if err != nil {
		return nil, err
	}
	if !s.Authz.IsCompanyMember(ctx, userID, ws.CompanyID) {
		return nil, authz.ErrForbidden
	}

	if _, err := s.Members.GetWorkspaceMembership(ctx, workspaceID, userID); err == nil {
		return nil, authz.ErrConflict
	} else if err != authz.ErrNotFound {
		return nil, err
	}

	var existing string
	err = s.PG.QueryRowContext(ctx, `
		SELECT id FROM workspace_requests
		WHERE workspace_id = $1 AND user_id = $2 AND status = 'pending'
	`, workspaceID, userID).Scan(&existing)
	if err == nil {
		return nil, authz.ErrConflict
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to check pending requests: %w", err)
	}

	req := &db.WorkspaceRequest{
		ID:          uuid.New().String(),
		WorkspaceID: workspaceID,
		UserID:      userID,
		Status:      "pending",
		CreatedAt:   time.Now(),
	}
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO workspace_requests (id, workspace_id, user_id, status, created_at)
		VALUES ($1, $2, $3, 'pending', $4)
	`, req.ID, req.WorkspaceID, req.UserID, req.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create access request: %w", err)
	}
	return req, nil
}

// GetAccessRequests lists pending requests for a workspace, with requester
// details. Admin rights required.
func (s *WorkspaceService) GetAccessRequests(ctx context.Context, userID, workspaceID string) ([]db.WorkspaceRequest, error) {
	if !s.Authz.HasWorkspaceAdminRights(ctx, userID, workspaceID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT r.id, r.workspace_id, r.user_id, r.status, r.created_at,
		       u.id, u.external_id, u.name, COALESCE(u.email, ''), COALESCE(u.avatar_url, '')
		FROM workspace_requests r
		JOIN users u ON u.id = r.user_id
		WHERE r.workspace_id = $1 AND r.status = 'pending'
		ORDER BY r.created_at
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list access requests: %w", err)
	}
	defer rows.Close()

	var requests []db.WorkspaceRequest
	for rows.Next() {
		var r db.WorkspaceRequest
		var u db.User
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.UserID, &r.Status, &r.CreatedAt,
			&u.ID, &u.ExternalID, &u.Name, &u.Email, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan access request: %w", err)
		}
		r.User = &u
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

// ResolveAccessRequest approves or rejects a pending request. Approval also
// enrolls the requester as a member, in the same transaction. Admin rights
// required.
func (s *WorkspaceService) ResolveAccessRequest(ctx context.Context, userID, requestID string, approve bool) error {
	var req db.WorkspaceRequest
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, status FROM workspace_requests WHERE id = $1
	`, requestID).Scan(&req.ID, &req.WorkspaceID, &req.UserID, &req.Status)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get access request: %w", err)
	}
	if !s.Authz.HasWorkspaceAdminRights(ctx, userID, req.WorkspaceID) {
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
		UPDATE workspace_requests SET status = $2 WHERE id = $1
	`, requestID, status); err != nil {
		return fmt.Errorf("failed to resolve access request: %w", err)
	}

	if approve {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO workspace_members (id, workspace_id, user_id, role, created_at)
			VALUES ($1, $2, $3, 'member', $4)
			ON CONFLICT (workspace_id, user_id) DO NOTHING
		`, uuid.New().String(), req.WorkspaceID, req.UserID, time.Now()); err != nil {
			return fmt.Errorf("failed to enroll requester: %w", err)
		}
	}

	return tx.Commit()
}

// GetMyMemberships lists the caller's workspace memberships within a company,
// with workspace names joined.
func (s *WorkspaceService) GetMyMemberships(ctx context.Context, userID, companyID string) ([]db.WorkspaceMember, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT m.id, m.workspace_id, m.user_id, m.role, COALESCE(m.designation, ''), m.created_at, w.name
		FROM workspace_members m
		JOIN workspaces w ON w.id = m.workspace_id
		WHERE m.user_id = $1 AND w.company_id = $2
		ORDER BY m.created_at
	`, userID, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list my memberships: %w", err)
	}
	defer rows.Close()

	var members []db.WorkspaceMember
	for rows.Next() {
		var m db.WorkspaceMember
		if err := rows.Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.Designation, &m.CreatedAt, &m.WorkspaceName); err != nil {
			return nil, fmt.Errorf("failed to scan membership: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// MyWorkspaceMembership pairs the caller's stored membership row (nil for
// company admins and heads without one) with the role they effectively hold.
type MyWorkspaceMembership struct {
	Member        *db.WorkspaceMember `json:"member,omitempty"`
	EffectiveRole authz.Role          `json:"effective_role"`
}

// GetMyMembership returns the caller's standing in one workspace.
func (s *WorkspaceService) GetMyMembership(ctx context.Context, userID, workspaceID string) (*MyWorkspaceMembership, error) {
	role := s.Authz.GetWorkspaceRole(ctx, userID, workspaceID)
	if role == "" {
		return nil, authz.ErrNotFound
	}
	result := &MyWorkspaceMembership{EffectiveRole: role}

	var m db.WorkspaceMember
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, workspace_id, user_id, role, COALESCE(designation, ''), created_at
		FROM workspace_members WHERE workspace_id = $1 AND user_id = $2
	`, workspaceID, userID).Scan(&m.ID, &m.WorkspaceID, &m.UserID, &m.Role, &m.Designation, &m.CreatedAt)
	if err == nil {
		result.Member = &m
	} else if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}
	return result, nil
}

// WorkspaceAdminStats summarizes one workspace the caller administers.
type WorkspaceAdminStats struct {
	WorkspaceID     string `json:"workspace_id"`
	Name            string `json:"name"`
	MemberCount     int    `json:"member_count"`
	PendingRequests int    `json:"pending_requests"`
	OpenTickets     int    `json:"open_tickets"`
}

// GetMyAdminStats returns per-workspace counts for the workspaces the caller
// runs: all of them for a company admin, otherwise only those they head.
func (s *WorkspaceService) GetMyAdminStats(ctx context.Context, userID, companyID string) ([]WorkspaceAdminStats, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	isAdmin := s.Authz.GetCompanyRole(ctx, userID, companyID) == authz.RoleAdmin

	rows, err := s.PG.QueryContext(ctx, `
		SELECT w.id, w.name,
			(SELECT COUNT(*) FROM workspace_members m WHERE m.workspace_id = w.id),
			(SELECT COUNT(*) FROM workspace_requests r WHERE r.workspace_id = w.id AND r.status = 'pending'),
			(SELECT COUNT(*) FROM tickets t WHERE t.workspace_id = w.id AND t.status = 'open')
		FROM workspaces w
		WHERE w.company_id = $1 AND (w.workspace_head_id = $2 OR $3)
		ORDER BY w.created_at
	`, companyID, userID, isAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to load admin stats: %w", err)
	}
	defer rows.Close()

	var stats []WorkspaceAdminStats
	for rows.Next() {
		var st WorkspaceAdminStats
		if err := rows.Scan(&st.WorkspaceID, &st.Name, &st.MemberCount, &st.PendingRequests, &st.OpenTickets); err != nil {
			return nil, fmt.Errorf("failed to scan admin stats: %w", err)
		}
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// GetMyAccessRequests lists the caller's own requests across workspaces.
func (s *WorkspaceService) GetMyAccessRequests(ctx context.Context, userID string) ([]db.WorkspaceRequest, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT r.id, r.workspace_id, r.user_id, r.status, r.created_at, w.name
		FROM workspace_requests r
		JOIN workspaces w ON w.id = r.workspace_id
		WHERE r.user_id = $1
		ORDER BY r.created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list my access requests: %w", err)
	}
	defer rows.Close()

	var requests []db.WorkspaceRequest
	for rows.Next() {
		var r db.WorkspaceRequest
		if err := rows.Scan(&r.ID, &r.WorkspaceID, &r.UserID, &r.Status, &r.CreatedAt, &r.WorkspaceName); err != nil {
			return nil, fmt.Errorf("failed to scan access request: %w", err)
		}
		requests = append(requests, r)
	}
	return requests, rows.Err()
}
