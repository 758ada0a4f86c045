package db

import "time"

// ===========================
// IDENTITY
// ===========================

// User is the internal identity record. Created on first authenticated
// contact, never hard-deleted.
type User struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	ExternalID string    `json:"external_id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ===========================
// TENANCY
// ===========================

// Company is the tenant root. AdminID references the owning admin and must
// always point at an admin-role membership of this company.
type Company struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	LogoURL     string    `json:"logo_url,omitempty"`
	AdminID     string    `json:"admin_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CompanyMember links a user to a company. Unique per (company, user).
type CompanyMember struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"`   // admin, employee
	RoleID      *string   `json:"role_id,omitempty"`
	Designation string    `json:"designation,omitempty"`
	Status      string    `json:"status"` // active, pending
	CreatedAt   time.Time `json:"created_at"`

	// Populated by roster queries.
	User       *User  `json:"user,omitempty"`
	RoleName   string `json:"role_name,omitempty"`
	CustomRole *Role  `json:"custom_role,omitempty"`
}

// Role is a per-company cosmetic designation tag, not a security boundary.
type Role struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	Name        string    `json:"name"`
	Color       string    `json:"color"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// RoleRequest tracks a user asking for a custom role. At most one pending
// request per (company, user).
type RoleRequest struct {
	ID        string    `json:"id"`
	CompanyID string    `json:"company_id"`
	UserID    string    `json:"user_id"`
	RoleID    string    `json:"role_id"`
	Status    string    `json:"status"` // pending, approved, rejected
	CreatedAt time.Time `json:"created_at"`

	User *User `json:"user,omitempty"`
	Role *Role `json:"role,omitempty"`
}

// Workspace is a department-level sub-tenant. Exactly one per company carries
// IsDefault=true, created together with the company.
type Workspace struct {
	ID              string    `json:"id"`
	CompanyID       string    `json:"company_id"`
	Name            string    `json:"name"`
	Icon            string    `json:"icon"`
	WorkspaceHeadID string    `json:"workspace_head_id"`
	IsDefault       bool      `json:"is_default"`
	Budget          *float64  `json:"budget,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// WorkspaceMember links a user to a workspace. Unique per (workspace, user).
type WorkspaceMember struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Role        string    `json:"role"` // admin, member
	Designation string    `json:"designation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	User          *User  `json:"user,omitempty"`
	WorkspaceName string `json:"workspace_name,omitempty"`
}

// WorkspaceRequest tracks a user asking for workspace access.
type WorkspaceRequest struct {
	ID          string    `json:"id"`
	WorkspaceID string    `json:"workspace_id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"` // pending, approved, rejected
	CreatedAt   time.Time `json:"created_at"`

	User          *User  `json:"user,omitempty"`
	WorkspaceName string `json:"workspace_name,omitempty"`
}

// ===========================
// WORKFLOW
// ===========================

// Ticket statuses include "transferred", forced when a ticket moves workspace.
type Ticket struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	WorkspaceID string     `json:"workspace_id"`
	CreatorID   string     `json:"creator_id"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`   // open, in_progress, done, closed, resolved, transferred
	Priority    string     `json:"priority"` // low, medium, high
	Type        string     `json:"type"`     // bug, feature, task
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	Assignee  *User      `json:"assignee,omitempty"`
	Workspace *Workspace `json:"workspace,omitempty"`
}

// TicketEvent is an append-only audit record on a ticket.
type TicketEvent struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	ActorID   string    `json:"actor_id"`
	Type      string    `json:"type"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Actor *User `json:"actor,omitempty"`
}

// TicketComment is an append-only comment on a ticket.
type TicketComment struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Author     *User  `json:"author,omitempty"`
	CustomRole string `json:"custom_role,omitempty"`
}

// KanbanTask mirrors the ticket shape with a board status domain.
type KanbanTask struct {
	ID          string     `json:"id"`
	CompanyID   string     `json:"company_id"`
	WorkspaceID string     `json:"workspace_id"`
	CreatorID   string     `json:"creator_id"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status"`   // backlog, todo, in_progress, done
	Priority    string     `json:"priority"` // low, medium, high
	DueDate     *time.Time `json:"due_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	Assignee *User `json:"assignee,omitempty"`
}

// KanbanEvent is an append-only audit record on a kanban task.
type KanbanEvent struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	ActorID   string    `json:"actor_id"`
	Type      string    `json:"type"`
	Metadata  string    `json:"metadata,omitempty"`
	CreatedAt time.Time `json:"created_at"`

	Actor *User `json:"actor,omitempty"`
}

// KanbanComment is an append-only comment on a kanban task.
type KanbanComment struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`

	Author *User `json:"author,omitempty"`
}

// ===========================
// VAULT
// ===========================

// Asset references an opaque storage blob. IsRestricted hides it from the
// company-wide listing while keeping it visible in its workspace.
type Asset struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	WorkspaceID  *string   `json:"workspace_id,omitempty"`
	StorageKey   string    `json:"storage_key"`
	FileName     string    `json:"file_name"`
	FileType     string    `json:"file_type"`
	UploaderID   string    `json:"uploader_id"`
	IsRestricted bool      `json:"is_restricted"`
	CreatedAt    time.Time `json:"created_at"`

	URL          string `json:"url,omitempty"`
	UploaderName string `json:"uploader_name,omitempty"`
}

// AssetEvent is the append-only vault activity log.
type AssetEvent struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	ActorID     string    `json:"actor_id"`
	Type        string    `json:"type"` // upload, delete, update
	Description string    `json:"description"`
	Metadata    string    `json:"metadata,omitempty"`
	CreatedAt   time.Time `json:"created_at"`

	ActorName string `json:"actor_name,omitempty"`
}

// ===========================
// CHAT
// ===========================

// Message belongs to a company; absence of WorkspaceID means the global
// channel.
type Message struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	WorkspaceID  *string   `json:"workspace_id,omitempty"`
	AuthorID     string    `json:"author_id"`
	Content      string    `json:"content"`
	AttachmentID *string   `json:"attachment_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`

	Author        *User  `json:"author,omitempty"`
	AttachmentURL string `json:"attachment_url,omitempty"`
}

// ===========================
// FINANCE
// ===========================

// Transaction is a company ledger entry, optionally tagged to a workspace.
type Transaction struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	UserID      string    `json:"user_id"`
	WorkspaceID *string   `json:"workspace_id,omitempty"`
	Type        string    `json:"type"` // income, expense
	Amount      float64   `json:"amount"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
	Status      string    `json:"status"` // pending, approved, rejected
	IsAdSpend   bool      `json:"is_ad_spend"`
	CreatedAt   time.Time `json:"created_at"`

	AuthorName    string `json:"author_name,omitempty"`
	WorkspaceName string `json:"workspace_name,omitempty"`
}

// Retainer tracks a client budget envelope.
type Retainer struct {
	ID          string    `json:"id"`
	CompanyID   string    `json:"company_id"`
	ClientName  string    `json:"client_name"`
	TotalBudget float64   `json:"total_budget"`
	UsedBudget  float64   `json:"used_budget"`
	Status      string    `json:"status"` // active, warning, over_budget
	LastUpdated time.Time `json:"last_updated"`
	CreatedAt   time.Time `json:"created_at"`
}

// Invoice is a billing document, optionally linked to a ticket.
type Invoice struct {
	ID         string    `json:"id"`
	CompanyID  string    `json:"company_id"`
	TicketID   *string   `json:"ticket_id,omitempty"`
	ClientName string    `json:"client_name"`
	Amount     float64   `json:"amount"`
	Status     string    `json:"status"` // draft, sent, paid
	DueDate    time.Time `json:"due_date"`
	CreatedAt  time.Time `json:"created_at"`
}

// ===========================
// CREDENTIALS
// ===========================

// APIKey is a hashed service credential resolving to a user principal.
type APIKey struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	KeyHash    string     `json:"-"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}
