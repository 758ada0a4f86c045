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

// KanbanService manages board tasks. It mirrors the ticket workflow with a
// board status domain and the same per-field audit diffing.
type KanbanService struct {
	PG    *sql.DB
	Authz authz.Authorizer
	Audit *AuditLogger
}

func NewKanbanService(pg *sql.DB, authorizer authz.Authorizer, audit *AuditLogger) *KanbanService {
	return &KanbanService{PG: pg, Authz: authorizer, Audit: audit}
}

var kanbanStatuses = map[string]bool{
	"backlog":     true,
	"todo":        true,
	"in_progress": true,
	"done":        true,
}

// CreateTaskInput carries kanban task creation arguments.
type CreateTaskInput struct {
	WorkspaceID string     `json:"workspace_id" binding:"required"`
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status,omitempty"`
	Priority    string     `json:"priority,omitempty"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// CreateTask adds a task to a workspace board. Active company members only.
func (s *KanbanService) CreateTask(ctx context.Context, userID string, input CreateTaskInput) (*db.KanbanTask, error) {
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

	status := input.Status
	if status == "" {
		status = "backlog"
	}
	if !kanbanStatuses[status] {
		return nil, authz.ErrInvalidInput
	}
	priority := input.Priority
	if priority == "" {
		priority = "medium"
	}

	task := &db.KanbanTask{
		ID:          uuid.New().String(),
		CompanyID:   companyID,
		WorkspaceID: input.WorkspaceID,
		CreatorID:   userID,
		AssigneeID:  input.AssigneeID,
		Title:       input.Title,
		Description: input.Description,
		Status:      status,
		Priority:    priority,
		DueDate:     input.DueDate,
		CreatedAt:   time.Now(),
	}
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO kanban_tasks (id, company_id, workspace_id, creator_id, assignee_id, title, description, status, priority, due_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, task.ID, task.CompanyID, task.WorkspaceID, task.CreatorID, task.AssigneeID,
		task.Title, nullable(task.Description), task.Status, task.Priority, task.DueDate, task.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.Audit.KanbanEvent(ctx, task.ID, userID, "created", "Task created")
	return task, nil
}

// GetForWorkspace lists a workspace's tasks with assignee details, ordered
// for board rendering.
func (s *KanbanService) GetForWorkspace(ctx context.Context, userID, workspaceID string) ([]db.KanbanTask, error) {
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
		       t.title, COALESCE(t.description, ''), t.status, t.priority, t.due_date, t.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, '')
		FROM kanban_tasks t
		LEFT JOIN users u ON u.id = t.assignee_id
		WHERE t.workspace_id = $1
		ORDER BY t.created_at DESC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []db.KanbanTask
	for rows.Next() {
		var t db.KanbanTask
		var assigneeID, assigneeName, assigneeAvatar sql.NullString
		if err := rows.Scan(&t.ID, &t.CompanyID, &t.WorkspaceID, &t.CreatorID, &t.AssigneeID,
			&t.Title, &t.Description, &t.Status, &t.Priority, &t.DueDate, &t.CreatedAt,
			&assigneeID, &assigneeName, &assigneeAvatar); err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		if assigneeID.Valid {
			t.Assignee = &db.User{ID: assigneeID.String, Name: assigneeName.String, AvatarURL: assigneeAvatar.String}
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTaskInput carries the full editable field set for a task.
type UpdateTaskInput struct {
	Title       string     `json:"title" binding:"required"`
	Description string     `json:"description,omitempty"`
	Status      string     `json:"status" binding:"required"`
	Priority    string     `json:"priority" binding:"required"`
	AssigneeID  *string    `json:"assignee_id,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpdateTask writes the new field values and logs one event per changed
// field; a no-op save logs nothing. Workspace admin rights required.
func (s *KanbanService) UpdateTask(ctx context.Context, userID, taskID string, input UpdateTaskInput) error {
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceTask, taskID) {
		return authz.ErrForbidden
	}
	if !kanbanStatuses[input.Status] {
		return authz.ErrInvalidInput
	}

	var cur db.KanbanTask
	err := s.PG.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(description, ''), status, priority, assignee_id, due_date
		FROM kanban_tasks WHERE id = $1
	`, taskID).Scan(&cur.ID, &cur.Title, &cur.Description, &cur.Status, &cur.Priority, &cur.AssigneeID, &cur.DueDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get task: %w", err)
	}

	_, err = s.PG.ExecContext(ctx, `
		UPDATE kanban_tasks SET title = $2, description = $3, status = $4, priority = $5, assignee_id = $6, due_date = $7
		WHERE id = $1
	`, taskID, input.Title, nullable(input.Description), input.Status, input.Priority, input.AssigneeID, input.DueDate)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	for _, ev := range diffWorkItem(kanbanFields(cur), kanbanFields(db.KanbanTask{
		Title: input.Title, Description: input.Description, Status: input.Status,
		Priority: input.Priority, AssigneeID: input.AssigneeID, DueDate: input.DueDate,
	})) {
		s.Audit.KanbanEvent(ctx, taskID, userID, ev.kind, ev.detail)
	}
	return nil
}

// MoveTask changes only the board column. Logged as a status change when the
// column actually differs. Workspace admin rights required.
func (s *KanbanService) MoveTask(ctx context.Context, userID, taskID, status string) error {
	if !s.Authz.Check(ctx, userID, authz.ActionUpdate, authz.ResourceTask, taskID) {
		return authz.ErrForbidden
	}
	if !kanbanStatuses[status] {
		return authz.ErrInvalidInput
	}

	var current string
	err := s.PG.QueryRowContext(ctx, `SELECT status FROM kanban_tasks WHERE id = $1`, taskID).Scan(&current)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get task: %w", err)
	}
	if current == status {
		return nil
	}

	if _, err := s.PG.ExecContext(ctx, `
		UPDATE kanban_tasks SET status = $2 WHERE id = $1
	`, taskID, status); err != nil {
		return fmt.Errorf("failed to move task: %w", err)
	}

	s.Audit.KanbanEvent(ctx, taskID, userID, "status_changed",
		fmt.Sprintf("Status changed from %s to %s", current, status))
	return nil
}

// DeleteTask removes a task with its comments and events in one transaction.
// Workspace admin rights required.
func (s *KanbanService) DeleteTask(ctx context.Context, userID, taskID string) error {
	if !s.Authz.Check(ctx, userID, authz.ActionDelete, authz.ResourceTask, taskID) {
		return authz.ErrForbidden
	}

	tx, err := s.PG.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{
		`DELETE FROM kanban_comments WHERE task_id = $1`,
		`DELETE FROM kanban_events WHERE task_id = $1`,
	} {
		if _, err := tx.ExecContext(ctx, q, taskID); err != nil {
			return fmt.Errorf("failed to cascade task delete: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM kanban_tasks WHERE id = $1`, taskID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}
	return tx.Commit()
}

// AddComment appends a comment to a task. Any active company member.
func (s *KanbanService) AddComment(ctx context.Context, userID, taskID, content string) (*db.KanbanComment, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionComment, authz.ResourceTask, taskID) {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(content) == "" {
		return nil, authz.ErrInvalidInput
	}

	comment := &db.KanbanComment{
		ID:        uuid.New().String(),
		TaskID:    taskID,
		AuthorID:  userID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO kanban_comments (id, task_id, author_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, comment.ID, comment.TaskID, comment.AuthorID, comment.Content, comment.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.Audit.KanbanEvent(ctx, taskID, userID, "commented", "")
	return comment, nil
}

// GetComments lists a task's comments, oldest first, with author details.
func (s *KanbanService) GetComments(ctx context.Context, userID, taskID string) ([]db.KanbanComment, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionView, authz.ResourceTask, taskID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT c.id, c.task_id, c.author_id, c.content, c.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, '')
		FROM kanban_comments c
		JOIN users u ON u.id = c.author_id
		WHERE c.task_id = $1
		ORDER BY c.created_at
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []db.KanbanComment
	for rows.Next() {
		var c db.KanbanComment
		var u db.User
		if err := rows.Scan(&c.ID, &c.TaskID, &c.AuthorID, &c.Content, &c.CreatedAt,
			&u.ID, &u.Name, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		c.Author = &u
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

// GetEvents lists a task's audit trail, newest first, with actor details.
func (s *KanbanService) GetEvents(ctx context.Context, userID, taskID string) ([]db.KanbanEvent, error) {
	if !s.Authz.Check(ctx, userID, authz.ActionView, authz.ResourceTask, taskID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT e.id, e.task_id, e.actor_id, e.type, COALESCE(e.metadata, ''), e.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, '')
		FROM kanban_events e
		JOIN users u ON u.id = e.actor_id
		WHERE e.task_id = $1
		ORDER BY e.created_at DESC
	`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []db.KanbanEvent
	for rows.Next() {
		var e db.KanbanEvent
		var u db.User
		if err := rows.Scan(&e.ID, &e.TaskID, &e.ActorID, &e.Type, &e.Metadata, &e.CreatedAt,
			&u.ID, &u.Name, &u.AvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Actor = &u
		events = append(events, e)
	}
	return events, rows.Err()
}
