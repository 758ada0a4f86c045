package services

import (
	"context"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/db"
)

// mockAuthorizer is a hand-rolled authz.Authorizer with overridable behavior
// per test. Unset funcs deny.
type mockAuthorizer struct {
	CheckFunc         func(action authz.Action, resourceType authz.ResourceType, resourceID string) bool
	CompanyRoleFunc   func(userID, companyID string) authz.Role
	IsMemberFunc      func(userID, companyID string) bool
	WorkspaceRoleFunc func(userID, workspaceID string) authz.Role
	AdminRightsFunc   func(userID, workspaceID string) bool
}

func (m *mockAuthorizer) Check(_ context.Context, _ string, action authz.Action, resourceType authz.ResourceType, resourceID string) bool {
	if m.CheckFunc == nil {
		return false
	}
	return m.CheckFunc(action, resourceType, resourceID)
}

func (m *mockAuthorizer) GetCompanyRole(_ context.Context, userID, companyID string) authz.Role {
	if m.CompanyRoleFunc == nil {
		return ""
	}
	return m.CompanyRoleFunc(userID, companyID)
}

func (m *mockAuthorizer) IsCompanyMember(_ context.Context, userID, companyID string) bool {
	if m.IsMemberFunc == nil {
		return false
	}
	return m.IsMemberFunc(userID, companyID)
}

func (m *mockAuthorizer) GetWorkspaceRole(_ context.Context, userID, workspaceID string) authz.Role {
	if m.WorkspaceRoleFunc == nil {
		return ""
	}
	return m.WorkspaceRoleFunc(userID, workspaceID)
}

func (m *mockAuthorizer) HasWorkspaceAdminRights(_ context.Context, userID, workspaceID string) bool {
	if m.AdminRightsFunc == nil {
		return false
	}
	return m.AdminRightsFunc(userID, workspaceID)
}

func (m *mockAuthorizer) CanPerformCompanyAction(ctx context.Context, userID, companyID string, action authz.Action) bool {
	return authz.HasPermission(authz.CompanyPermissions, m.GetCompanyRole(ctx, userID, companyID), action)
}

func (m *mockAuthorizer) CanPerformWorkspaceAction(ctx context.Context, userID, workspaceID string, action authz.Action) bool {
	return authz.HasPermission(authz.WorkspacePermissions, m.GetWorkspaceRole(ctx, userID, workspaceID), action)
}

// mockMembers is a hand-rolled authz.MembershipManager. Only the funcs a test
// sets are expected to be called.
type mockMembers struct {
	GetCompanyMemberFunc       func(memberID string) (*db.CompanyMember, error)
	AddCompanyMemberFunc       func(companyID, userID string, role authz.Role, status string) (*db.CompanyMember, error)
	UpdateCompanyRoleFunc      func(memberID string, role authz.Role) error
	UpdateCompanyStatusFunc    func(memberID, status string) error
	RemoveCompanyMemberFunc    func(memberID string) error
	EnsureWorkspaceMemberFunc  func(workspaceID, userID string, role authz.Role) error
	GetWorkspaceMemberFunc     func(memberID string) (*db.WorkspaceMember, error)
	GetWorkspaceMembershipFunc func(workspaceID, userID string) (*db.WorkspaceMember, error)
	RemoveWorkspaceMemberFunc  func(memberID string) error
}

func (m *mockMembers) AddCompanyMember(_ context.Context, companyID, userID string, role authz.Role, status string) (*db.CompanyMember, error) {
	return m.AddCompanyMemberFunc(companyID, userID, role, status)
}

func (m *mockMembers) GetCompanyMember(_ context.Context, memberID string) (*db.CompanyMember, error) {
	return m.GetCompanyMemberFunc(memberID)
}

func (m *mockMembers) GetCompanyMembership(_ context.Context, companyID, userID string) (*db.CompanyMember, error) {
	return nil, authz.ErrNotFound
}

func (m *mockMembers) ListCompanyMembers(_ context.Context, companyID string) ([]db.CompanyMember, error) {
	return nil, nil
}

func (m *mockMembers) ListUserCompanyMemberships(_ context.Context, userID string) ([]db.CompanyMember, error) {
	return nil, nil
}

func (m *mockMembers) UpdateCompanyMemberRole(_ context.Context, memberID string, role authz.Role) error {
	return m.UpdateCompanyRoleFunc(memberID, role)
}

func (m *mockMembers) UpdateCompanyMemberStatus(_ context.Context, memberID, status string) error {
	return m.UpdateCompanyStatusFunc(memberID, status)
}

func (m *mockMembers) UpdateCompanyMemberDesignation(_ context.Context, memberID, designation string) error {
	return nil
}

func (m *mockMembers) UpdateCompanyMemberProfile(_ context.Context, memberID string, role authz.Role, roleID *string, designation string) error {
	return nil
}

func (m *mockMembers) AssignCustomRole(_ context.Context, memberID string, roleID string) error {
	return nil
}

func (m *mockMembers) RemoveCompanyMember(_ context.Context, memberID string) error {
	return m.RemoveCompanyMemberFunc(memberID)
}

func (m *mockMembers) AddWorkspaceMember(_ context.Context, workspaceID, userID string, role authz.Role) (*db.WorkspaceMember, error) {
	return nil, nil
}

func (m *mockMembers) GetWorkspaceMember(_ context.Context, memberID string) (*db.WorkspaceMember, error) {
	return m.GetWorkspaceMemberFunc(memberID)
}

func (m *mockMembers) GetWorkspaceMembership(_ context.Context, workspaceID, userID string) (*db.WorkspaceMember, error) {
	if m.GetWorkspaceMembershipFunc == nil {
		return nil, authz.ErrNotFound
	}
	return m.GetWorkspaceMembershipFunc(workspaceID, userID)
}

func (m *mockMembers) ListWorkspaceMembers(_ context.Context, workspaceID string) ([]db.WorkspaceMember, error) {
	return nil, nil
}

func (m *mockMembers) ListUserWorkspaceMemberships(_ context.Context, userID string) ([]db.WorkspaceMember, error) {
	return nil, nil
}

func (m *mockMembers) UpdateWorkspaceMemberRole(_ context.Context, memberID string, role authz.Role) error {
	return nil
}

func (m *mockMembers) UpdateWorkspaceMemberDesignation(_ context.Context, memberID, designation string) error {
	return nil
}

func (m *mockMembers) RemoveWorkspaceMember(_ context.Context, memberID string) error {
	return m.RemoveWorkspaceMemberFunc(memberID)
}

func (m *mockMembers) EnsureWorkspaceMember(_ context.Context, workspaceID, userID string, role authz.Role) error {
	return m.EnsureWorkspaceMemberFunc(workspaceID, userID, role)
}

func (m *mockMembers) PromoteWorkspaceMember(_ context.Context, workspaceID, userID string) error {
	return nil
}
