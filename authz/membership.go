package authz

import (
	"context"

	"github.com/centrohq/centro/db"
)

// MembershipManager manages user-resource relationships. It is separate from
// Authorizer: this is the write side, the Authorizer is the read/check side.
// It is purely data access; guard decisions live with the callers.
type MembershipManager interface {
	// Company scope.
	AddCompanyMember(ctx context.Context, companyID, userID string, role Role, status string) (*db.CompanyMember, error)
	GetCompanyMember(ctx context.Context, memberID string) (*db.CompanyMember, error)
	GetCompanyMembership(ctx context.Context, companyID, userID string) (*db.CompanyMember, error)
	ListCompanyMembers(ctx context.Context, companyID string) ([]db.CompanyMember, error)
	ListUserCompanyMemberships(ctx context.Context, userID string) ([]db.CompanyMember, error)
	UpdateCompanyMemberRole(ctx context.Context, memberID string, role Role) error
	UpdateCompanyMemberStatus(ctx context.Context, memberID, status string) error
	UpdateCompanyMemberDesignation(ctx context.Context, memberID, designation string) error
	UpdateCompanyMemberProfile(ctx context.Context, memberID string, role Role, roleID *string, designation string) error
	AssignCustomRole(ctx context.Context, memberID string, roleID string) error
	// RemoveCompanyMember deletes the company membership and, in the same
	// transaction, every workspace membership that user holds within that
	// company only.
	RemoveCompanyMember(ctx context.Context, memberID string) error

	// Workspace scope.
	AddWorkspaceMember(ctx context.Context, workspaceID, userID string, role Role) (*db.WorkspaceMember, error)
	GetWorkspaceMember(ctx context.Context, memberID string) (*db.WorkspaceMember, error)
	GetWorkspaceMembership(ctx context.Context, workspaceID, userID string) (*db.WorkspaceMember, error)
	ListWorkspaceMembers(ctx context.Context, workspaceID string) ([]db.WorkspaceMember, error)
	ListUserWorkspaceMemberships(ctx context.Context, userID string) ([]db.WorkspaceMember, error)
	UpdateWorkspaceMemberRole(ctx context.Context, memberID string, role Role) error
	UpdateWorkspaceMemberDesignation(ctx context.Context, memberID, designation string) error
	RemoveWorkspaceMember(ctx context.Context, memberID string) error
	// EnsureWorkspaceMember inserts the membership if the pair does not exist
	// yet; existing rows are left untouched (role is not upgraded).
	EnsureWorkspaceMember(ctx context.Context, workspaceID, userID string, role Role) error
	// PromoteWorkspaceMember upserts the pair at admin role.
	PromoteWorkspaceMember(ctx context.Context, workspaceID, userID string) error
}
