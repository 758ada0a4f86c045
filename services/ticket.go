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

// TicketService manages workflow tickets, their comments and the per-field
// audit trail.
type TicketService struct {
	PG    *sql.DB
	Authz authz.Authorizer
	Audit *AuditLogger
}

func NewTicketService(pg *sql.DB, authorizer authz.Authorizer, audit *AuditLogger) *TicketService {
	return &TicketService{PG: pg, Authz: authorizer, Audit: audit}
}

// CreateTicketInput carries ticket creation arguments.
type CreateTicketInput struct {
	WorkspaceID string     `json:"workspace_id" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	Type        string     `json:"type,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Create opens a ticket in a workspace. The caller must be an active member
// of the owning company.
func (s *TicketService) Create(ctx context.Context, userID string, input CreateTicketInput) (*db.Ticket, error) {
	var companyID string
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id FROM workspaces WHERE id = $1
	`, input.WorkspaceID).Scan(&companyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(input.Title) == "" {
		return nil, authz.ErrInvalidInput
	}

	priority := input.Priority
	if priority == "" {
		priority = "medium"
	}
	ticketType := input.Type
	if ticketType == "" {
		ticketType = "task"
	}

	ticket := &db.Ticket{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		WorkspaceID: input.WorkspaceID,
		CreatorID:   userID,
		AssigneeID:  input.AssigneeID,
		Title:       input.Title,
		Description: input.Description,
		Status:      "open",
		Priority:    priority,
		Type:        ticketType,
		DueDate:     input.DueDate,
		CreatedAt:   time.Now(),
	}
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO tickets (id, company_id, workspace_id, creator_id, assignee_id, title, description, status, priority, type, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, ticket.ID, ticket.CompanyID, ticket.WorkspaceID, ticket.CreatorID, ticket.AssigneeID,
		ticket.Title, ticket.Description, ticket.Status, ticket.Priority, ticket.Type, ticket.DueDate, ticket.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}

	s.Audit.TicketEvent(ctx, ticket.ID, userID, "created", "Ticket created")
	return ticket, nil
}

// GetForWorkspace lists a workspace's tickets, newest first, with assignee
// details.
func (s *TicketService) GetForWorkspace(ctx context.Context, userID, workspaceID string) ([]db.Ticket, error) {
	var companyID string
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id FROM workspaces WHERE id = $1
	`, workspaceID).Scan(&companyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve workspace: %w", err)
	}
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}

	rows, err := s.PG.QueryContext(ctx, `
		SELECT t.id, t.company_id, t.workspace_id, t.creator_id, t.assignee_id,
		       t.title, t.description, t.status, t.priority, t.type, t.due_date, t.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, '')
		FROM tickets t
		LEFT JOIN users u ON u.id = t.assignee_id
		WHERE t.workspace_id = $1
		ORDER BY t.created_at DESC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []db.Ticket
	for rows.Next() {
		t, err := scanTicketWithAssignee(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// GetForCompany lists every ticket in the company, newest first. Active
// members only.
func (s *TicketService) GetForCompany(ctx context.Context, userID, companyID string) ([]db.Ticket, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}

	rows, err := s.PG.QueryContext(ctx, `
		SELECT t.id, t.company_id, t.workspace_id, t.creator_id, t.assignee_id,
		       t.title, t.description, t.status, t.priority, t.type, t.due_date, t.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, '')
		FROM tickets t
		LEFT JOIN users u ON u.id = t.assignee_id
		WHERE t.company_id = $1
		ORDER BY t.created_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list company tickets: %w", err)
	}
	defer rows.Close()

	var tickets []db.Ticket
	for rows.Next() {
		t, err := scanTicketWithAssignee(rows)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, *t)
	}
	return tickets, rows.Err()
}

// GetByID fetches one ticket with its assignee and workspace joined in.
func (s *TicketService) GetByID(ctx context.Context, userID, ticketID string) (*db.Ticket, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionView, authz.ResourceTicket, ticketID) {
		return nil, authz.ErrForbidden
	}

	var t db.Ticket
	var assigneeID, assigneeName, assigneeAvatar sql.NullString
	var w db.Workspace
	err := s.PG.QueryRowContext(ctx, `
		SELECT t.id, t.company_id, t.workspace_id, t.creator_id, t.assignee_id,
		       t.title, t.description, t.status, t.priority, t.type, t.due_date, t.created_at,
		       u.id, u.name, u.avatar_url,
		       w.id, w.company_id, w.name, w.icon, w.workspace_head_id, w.is_default, w.created_at
		FROM tickets t
		LEFT JOIN users u ON u.id = t.assignee_id
		JOIN workspaces w ON w.id = t.workspace_id
		WHERE t.id = $1
	`, ticketID).Scan(&t.ID, &t.CompanyID, &t.WorkspaceID, &t.CreatorID, &t.AssigneeID,
		&t.Title, &t.Description, &t.Status, &t.Priority, &t.Type, &t.DueDate, &t.CreatedAt,
		&assigneeID, &assigneeName, &assigneeAvatar,
		&w.ID, &w.CompanyID, &w.Name, &w.Icon, &w.WorkspaceHeadID, &w.IsDefault, &w.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	if assigneeID.Valid {
		t.Assignee = &db.User{ID: assigneeID.String, Name: assigneeName.String, AvatarURL: assigneeAvatar.String}
	}
	t.Workspace = &w
	return &t, nil
}

// UpdateTicketInput carries the full editable field set. The update diffs it
// against the stored row and logs one event per changed field.
type UpdateTicketInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status" binding:"required"`
	Priority    string     `json:"priority" binding:"required"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// Update writes the new field values and appends one audit event per field
// that actually changed. A no-op update produces zero events. Workspace admin
// rights required.
func (s *TicketService) Update(ctx context.Context, userID, ticketID string, input UpdateTicketInput) error {
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceTicket, ticketID) {
		return authz.ErrForbidden
	}

	var cur db.Ticket
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, title, description, status, priority, assignee_id, due_date FROM tickets WHERE id = $1
	`, ticketID).Scan(&cur.ID, &cur.Title, &cur.Description, &cur.Status, &cur.Priority, &cur.AssigneeID, &cur.DueDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get ticket: %w", err)
	}

	_, err = s.PG.ExecContext(ctx, `
		UPDATE tickets SET title = $2, description = $3, status = $4, priority = $5, assignee_id = $6, due_date = $7
		WHERE id = $1
	`, ticketID, input.Title, input.Description, input.Status, input.Priority, input.AssigneeID, input.DueDate)
	if err != nil {
		return fmt.Errorf("failed to update ticket: %w", err)
	}

	for _, ev := range diffWorkItem(workItemFields(cur), workItemFields(db.Ticket{
		Title: input.Title, Description: input.Description, Status: input.Status,
		Priority: input.Priority, AssigneeID: input.AssigneeID, DueDate: input.DueDate,
	})) {
		s.Audit.TicketEvent(ctx, ticketID, userID, ev.kind, ev.detail)
	}
	return nil
}

// Delete removes a ticket with its comments and events in one transaction.
// Workspace admin rights required.
func (s *TicketService) Delete(ctx context.Context, userID, ticketID string) error {
	if !s.Authz.Check(ctx, userID, authz.ActionDelete, authz.ResourceTicket, ticketID) {
		return authz.ErrForbidden
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM ticket_comments WHERE ticket_id = $1`,
		`DELETE FROM ticket_events WHERE ticket_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, ticketID); err != nil {
			return fmt.Errorf("failed to cascade ticket delete: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM tickets WHERE id = $1`, ticketID)
	if err != nil {
		return fmt.Errorf("failed to delete ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}
	return tx.Commit()
}

// Transfer moves a ticket to another workspace in the same company. The move
// and the forced "transferred" status land in a single UPDATE, followed by
// exactly one audit event naming both workspaces. Workspace admin rights on
// the source required.
func (s *TicketService) Transfer(ctx context.Context, userID, ticketID, targetWorkspaceID string) error {
	if !s.Authz.Check(ctx, userID, authz.ActionTransfer, authz.ResourceTicket, ticketID) {
		return authz.ErrForbidden
	}

	var companyID, sourceWorkspaceID, sourceName string
	err := s.PG.QueryRowContext(ctx, `
		SELECT t.company_id, t.workspace_id, w.name
		FROM tickets t JOIN workspaces w ON w.id = t.workspace_id
		WHERE t.id = $1
	`, ticketID).Scan(&companyID, &sourceWorkspaceID, &sourceName)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get ticket: %w", err)
	}
	if sourceWorkspaceID == targetWorkspaceID {
		return authz.ErrInvalidInput
	}

	var targetName, targetCompanyID string
	err = s.PG.QueryRowContext(ctx, `
		SELECT name, company_id FROM workspaces WHERE id = $1
	`, targetWorkspaceID).Scan(&targetName, &targetCompanyID)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get target workspace: %w", err)
	}
	if targetCompanyID != companyID {
		return fmt.Errorf("tickets cannot leave their company: %w", authz.ErrForbidden)
	}

	res, err := s.PG.ExecContext(ctx, `
		UPDATE tickets SET workspace_id = $2, status = 'transferred' WHERE id = $1
	`, ticketID, targetWorkspaceID)
	if err != nil {
		return fmt.Errorf("failed to transfer ticket: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}

	s.Audit.TicketEvent(ctx, ticketID, userID, "transferred",
		fmt.Sprintf("Transferred from %s to %s", sourceName, targetName))
	return nil
}

// AddComment appends a comment. Any active company member may comment.
func (s *TicketService) AddComment(ctx context.Context, userID, ticketID, content string) (*db.TicketComment, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionComment, authz.ResourceTicket, ticketID) {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(content) == "" {
		return nil, authz.ErrInvalidInput
	}

	comment := &db.TicketComment{
		ID:        uuid.New().String(),
		TicketID:  ticketID,
		AuthorID:  userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO ticket_comments (id, ticket_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.TicketID, comment.AuthorID, comment.Content, comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.Audit.TicketEvent(ctx, ticketID, userID, "commented", "")
	return comment, nil
}

// GetComments lists a ticket's comments, oldest first, with author details
// and the author's custom role label in the ticket's company.
func (s *TicketService) GetComments(ctx context.Context, userID, ticketID string) ([]db.TicketComment, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionView, authz.ResourceTicket, ticketID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT c.id, c.ticket_id, c.author_id, c.content, c.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, ''),
		       COALESCE(r.name, '')
		FROM ticket_comments c
		JOIN users u ON u.id = c.author_id
		JOIN tickets t ON t.id = c.ticket_id
		LEFT JOIN company_members cm ON cm.company_id = t.company_id AND cm.user_id = c.author_id
		LEFT JOIN roles r ON r.id = cm.role_id
		WHERE c.ticket_id = $1
		ORDER BY c.created_at
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []db.TicketComment
	for rows.Next() {
		var c db.TicketComment
		var u db.User
		if err := rows.Scan(&c.ID, &c.TicketID, &c.AuthorID, &c.Content, &c.CreatedAt,
			&u.ID, &u.Name, &u.AvatarURL, &c.CustomRole); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Author = &u
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetEvents lists a ticket's audit trail, newest first, with actor details.
func (s *TicketService) GetEvents(ctx context.Context, userID, ticketID string) ([]db.TicketEvent, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionView, authz.ResourceTicket, ticketID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT e.id, e.ticket_id, e.actor_id, e.type, COALESCE(e.metadata, ''), e.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, '')
		FROM ticket_events e
		JOIN users u ON u.id = e.actor_id
		WHERE e.ticket_id = $1
		ORDER BY e.created_at DESC
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []db.TicketEvent
	for rows.Next() {
		var e db.TicketEvent
		var u db.User
		if err := rows.Scan(&e.ID, &e.TicketID, &e.ActorID, &e.Type, &e.Metadata, &e.CreatedAt,
			&u.ID, &u.Name, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Actor = &u
		events = append(events, e)
	}
	return events, rows.Err()
}

func scanTicketWithAssignee(rows *sql.Rows) (*db.Ticket, error) {
	var t db.Ticket
	var assigneeID, assigneeName, assigneeAvatar sql.NullString
	if err := rows.Scan(&t.ID, &t.CompanyID, &t.WorkspaceID, &t.CreatorID, &t.AssigneeID,
		&t.Title, &t.Description, &t.Status, &t.Priority, &t.Type, &t.DueDate, &t.CreatedAt,
		&assigneeID, &assigneeName, &assigneeAvatar); err != nil {
		return nil, fmt.Errorf("failed to scan ticket: %w", err)
	}
	if assigneeID.Valid {
		t.Assignee = &db.User{ID: assigneeID.String, Name: assigneeName.String, AvatarURL: assigneeAvatar.String}
	}
	return &t, nil
}
