package authz

// ResourceType identifies what kind of entity a check targets.
type ResourceType string

const (
	ResourceCompany   ResourceType = "company"
	ResourceWorkspace ResourceType = "workspace"
	ResourceTicket    ResourceType = "ticket"
	ResourceTask      ResourceType = "task"
	ResourceAsset     ResourceType = "asset"
)

// Role is a membership role at company or workspace scope.
type Role string

const (
	// Company-scope roles.
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"

	// Workspace-scope roles. RoleAdmin is shared between both scopes.
	RoleMember Role = "member"
)

// Action is a named operation evaluated against a resource.
type Action string

const (
	ActionView            Action = "view"
	ActionUpdate          Action = "update"
	ActionDelete          Action = "delete"
	ActionTransfer        Action = "transfer"
	ActionManageMembers   Action = "manage_members"
	ActionManageRoles     Action = "manage_roles"
	ActionResolveRequests Action = "resolve_requests"
	ActionComment         Action = "comment"
	ActionSetVisibility   Action = "set_visibility"
)

// CompanyPermissions maps company-scope roles to the actions they may
// perform on the company itself.
var CompanyPermissions = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionView:            true,
		ActionUpdate:          true,
		ActionDelete:          true,
		ActionTransfer:        true,
		ActionManageMembers:   true,
		ActionManageRoles:     true,
		ActionResolveRequests: true,
		ActionComment:         true,
	},
	RoleEmployee: {
		ActionView:    true,
		ActionComment: true,
	},
}

// WorkspacePermissions maps effective workspace roles to workspace-scoped
// actions. The effective role already folds in the company-admin precedence
// and the workspace-head override, so these tables stay flat.
var WorkspacePermissions = map[Role]map[Action]bool{
	RoleAdmin: {
		ActionView:          true,
		ActionUpdate:        true,
		ActionComment:       true,
		ActionSetVisibility: true,
	},
	RoleMember: {
		ActionView:    true,
		ActionComment: true,
	},
}

// HasPermission checks a role/action pair against a permission table.
func HasPermission(perms map[Role]map[Action]bool, role Role, action Action) bool {
	actions, ok := perms[role]
	if !ok {
		return false
	}
	return actions[action]
}
