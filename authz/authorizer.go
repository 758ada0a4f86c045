package authz

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Authorizer is the single policy-evaluation point. Every mutating operation
// asks it before touching state; no handler or service carries its own inline
// role check.
type Authorizer interface {
	// Check performs a generic authorization check (actor, action, resource).
	Check(ctx context.Context, userID string, action Action, resourceType ResourceType, resourceID string) bool

	// GetCompanyRole returns the user's company-scope role ("" when not a member).
	GetCompanyRole(ctx context.Context, userID, companyID string) Role

	// IsCompanyMember reports whether the user is an *active* member.
	IsCompanyMember(ctx context.Context, userID, companyID string) bool

	// GetWorkspaceRole returns the user's effective workspace role. Company
	// admins and the workspace head are treated as admin regardless of the
	// stored membership row.
	GetWorkspaceRole(ctx context.Context, userID, workspaceID string) Role

	// HasWorkspaceAdminRights reports company-admin OR workspace-admin OR
	// workspace-head standing for the given workspace.
	HasWorkspaceAdminRights(ctx context.Context, userID, workspaceID string) bool

	CanPerformCompanyAction(ctx context.Context, userID, companyID string, action Action) bool
	CanPerformWorkspaceAction(ctx context.Context, userID, workspaceID string, action Action) bool
}

const companyRoleCacheTTL = 30 * time.Second

func companyRoleKey(companyID, userID string) string {
	return fmt.Sprintf("authz:company:%s:user:%s", companyID, userID)
}

// SimpleAuthorizer implements Authorizer with direct SQL lookups and an
// optional Redis cache in front of the company-role query (the hot path:
// every guarded operation resolves it at least once).
type SimpleAuthorizer struct {
	db    *sql.DB
	cache *redis.Client
}

// NewSimpleAuthorizer creates a SimpleAuthorizer. cache may be nil.
func NewSimpleAuthorizer(db *sql.DB, cache *redis.Client) *SimpleAuthorizer {
	return &SimpleAuthorizer{db: db, cache: cache}
}

var _ Authorizer = (*SimpleAuthorizer)(nil)

// Check dispatches a generic authorization check. Ticket, task and asset
// checks resolve the owning company/workspace first.
func (a *SimpleAuthorizer) Check(ctx context.Context, userID string, action Action, resourceType ResourceType, resourceID string) bool {
	switch resourceType {
	case ResourceCompany:
		return a.CanPerformCompanyAction(ctx, userID, resourceID, action)
	case ResourceWorkspace:
		return a.CanPerformWorkspaceAction(ctx, userID, resourceID, action)
	case ResourceTicket:
		return a.checkWorkItem(ctx, userID, action, "tickets", resourceID)
	case ResourceTask:
		return a.checkWorkItem(ctx, userID, action, "kanban_tasks", resourceID)
	case ResourceAsset:
		return a.checkAsset(ctx, userID, action, resourceID)
	default:
		return false
	}
}

// GetCompanyRole returns the stored company-scope role for the user.
func (a *SimpleAuthorizer) GetCompanyRole(ctx context.Context, userID, companyID string) Role {
	if a.cache != nil {
		if cached, err := a.cache.Get(ctx, companyRoleKey(companyID, userID)).Result(); err == nil {
			return Role(cached)
		}
	}

	var role string
	err := a.db.QueryRowContext(ctx, `
		SELECT role FROM company_members
		WHERE company_id = $1 AND user_id = $2
	`, companyID, userID).Scan(&role)

	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("authz: company role lookup failed: %v", err)
		}
		return ""
	}

	if a.cache != nil {
		if err := a.cache.Set(ctx, companyRoleKey(companyID, userID), role, companyRoleCacheTTL).Err(); err != nil {
			log.Printf("authz: role cache write failed: %v", err)
		}
	}
	return Role(role)
}

// IsCompanyMember reports whether the user holds an active membership row.
// Pending members resolve a role but are not yet members for guard purposes.
func (a *SimpleAuthorizer) IsCompanyMember(ctx context.Context, userID, companyID string) bool {
	var status string
	err := a.db.QueryRowContext(ctx, `
		SELECT status FROM company_members
		WHERE company_id = $1 AND user_id = $2
	`, companyID, userID).Scan(&status)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("authz: membership lookup failed: %v", err)
		}
		return false
	}
	return status == "active"
}

// GetWorkspaceRole resolves the effective workspace role in one query:
// company admins and the designated head rank as admin, then the stored
// membership row, in that precedence order.
func (a *SimpleAuthorizer) GetWorkspaceRole(ctx context.Context, userID, workspaceID string) Role {
	var role sql.NullString
	err := a.db.QueryRowContext(ctx, `
		WITH ws AS (
			SELECT id, company_id, workspace_head_id FROM workspaces WHERE id = $2
		),
		ranked AS (
			SELECT 'admin' AS role, 0 AS priority
			FROM company_members cm JOIN ws ON cm.company_id = ws.company_id
			WHERE cm.user_id = $1 AND cm.role = 'admin'
			UNION ALL
			SELECT 'admin' AS role, 1 AS priority
			FROM ws WHERE ws.workspace_head_id = $1
			UNION ALL
			SELECT wm.role, 2 AS priority
			FROM workspace_members wm
			WHERE wm.user_id = $1 AND wm.workspace_id = $2
		)
		SELECT role FROM ranked ORDER BY priority LIMIT 1
	`, userID, workspaceID).Scan(&role)

	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("authz: workspace role lookup failed: %v", err)
		}
		return ""
	}
	if !role.Valid {
		return ""
	}
	return Role(role.String)
}

// HasWorkspaceAdminRights is the compound admin test used by ticket and task
// mutations.
func (a *SimpleAuthorizer) HasWorkspaceAdminRights(ctx context.Context, userID, workspaceID string) bool {
	return a.GetWorkspaceRole(ctx, userID, workspaceID) == RoleAdmin
}

// CanPerformCompanyAction checks a company-scoped action.
func (a *SimpleAuthorizer) CanPerformCompanyAction(ctx context.Context, userID, companyID string, action Action) bool {
	role := a.GetCompanyRole(ctx, userID, companyID)
	if role == "" {
		return false
	}
	return HasPermission(CompanyPermissions, role, action)
}

// CanPerformWorkspaceAction checks a workspace-scoped action against the
// effective role.
func (a *SimpleAuthorizer) CanPerformWorkspaceAction(ctx context.Context, userID, workspaceID string, action Action) bool {
	role := a.GetWorkspaceRole(ctx, userID, workspaceID)
	if role == "" {
		return false
	}
	return HasPermission(WorkspacePermissions, role, action)
}

// checkWorkItem evaluates ticket/kanban actions. Updates need workspace admin
// rights; commenting needs only active company membership.
func (a *SimpleAuthorizer) checkWorkItem(ctx context.Context, userID string, action Action, table, itemID string) bool {
	var companyID, workspaceID string
	q := fmt.Sprintf(`SELECT company_id, workspace_id FROM %s WHERE id = $1`, table)
	if err := a.db.QueryRowContext(ctx, q, itemID).Scan(&companyID, &workspaceID); err != nil {
		if err != sql.ErrNoRows {
			log.Printf("authz: %s lookup failed: %v", table, err)
		}
		return false
	}

	switch action {
	case ActionComment, ActionView:
		return a.IsCompanyMember(ctx, userID, companyID)
	default:
		return a.HasWorkspaceAdminRights(ctx, userID, workspaceID)
	}
}

// checkAsset evaluates vault actions. Deletion is company-admin only;
// visibility toggles extend to the workspace head of the asset's workspace.
func (a *SimpleAuthorizer) checkAsset(ctx context.Context, userID string, action Action, assetID string) bool {
	var companyID string
	var workspaceID sql.NullString
	err := a.db.QueryRowContext(ctx, `
		SELECT company_id, workspace_id FROM assets WHERE id = $1
	`, assetID).Scan(&companyID, &workspaceID)
	if err != nil {
		if err != sql.ErrNoRows {
			log.Printf("authz: asset lookup failed: %v", err)
		}
		return false
	}

	if a.GetCompanyRole(ctx, userID, companyID) == RoleAdmin {
		return true
	}

	if action == ActionSetVisibility && workspaceID.Valid {
		var headID string
		err := a.db.QueryRowContext(ctx, `
			SELECT workspace_head_id FROM workspaces WHERE id = $1
		`, workspaceID.String).Scan(&headID)
		if err != nil {
			if err != sql.ErrNoRows {
				log.Printf("authz: workspace head lookup failed: %v", err)
			}
			return false
		}
		return headID == userID
	}

	return false
}

// invalidateCompanyRole drops a cached role after a membership mutation.
func (a *SimpleAuthorizer) invalidateCompanyRole(ctx context.Context, companyID, userID string) {
	if a.cache == nil {
		return
	}
	if err := a.cache.Del(ctx, companyRoleKey(companyID, userID)).Err(); err != nil && err != redis.Nil {
		log.Printf("authz: role cache invalidation failed: %v", err)
	}
}
