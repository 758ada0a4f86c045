package services

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/db"
	"github.com/centrohq/centro/storage"
)

// ChatService handles company chat. A message without a workspace id belongs
// to the global channel every active member can read; workspace channels are
// gated on workspace access.
type ChatService struct {
	PG    *sql.DB
	Authz authz.Authorizer
	Blobs storage.BlobStore
}

func NewChatService(pg *sql.DB, authorizer authz.Authorizer, blobs storage.BlobStore) *ChatService {
	return &ChatService{PG: pg, Authz: authorizer, Blobs: blobs}
}

// SendMessageInput carries a chat message. AttachmentID references a vault
// asset in the same company.
type SendMessageInput struct {
	CompanyID    string  `json:"company_id" binding:"required"`
	WorkspaceID  *string `json:"workspace_id,omitempty"`
	Content      string  `json:"content" binding:"required"`
	AttachmentID *string `json:"attachment_id,omitempty"`
}

// Send posts a message. Active company members only; workspace channels
// additionally require workspace access.
func (s *ChatService) Send(ctx context.Context, userID string, input SendMessageInput) (*db.Message, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, input.CompanyID) {
		return nil, authz.ErrForbidden
	}
	if input.WorkspaceID != nil && s.Authz.GetWorkspaceRole(ctx, userID, *input.WorkspaceID) == "" {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(input.Content) == "" && input.AttachmentID == nil {
		return nil, authz.ErrInvalidInput
	}

	if input.AttachmentID != nil {
		var attachmentCompany string
		err := s.PG.QueryRowContext(ctx, `
			SELECT company_id FROM assets WHERE id = $1
		`, *input.AttachmentID).Scan(&attachmentCompany)
		if err != nil {
			if err == sql.ErrNoRows {
				return nil, authz.ErrNotFound
			}
			return nil, fmt.Errorf("failed to resolve attachment: %w", err)
		}
		if attachmentCompany != input.CompanyID {
			return nil, authz.ErrForbidden
		}
	}

	msg := &db.Message{
		ID:           uuid.New().String(),
		CompanyID:    input.CompanyID,
		WorkspaceID:  input.WorkspaceID,
		AuthorID:     userID,
		Content:      input.Content,
		AttachmentID: input.AttachmentID,
		CreatedAt:    time.Now(),
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO messages (id, company_id, workspace_id, author_id, content, attachment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, msg.ID, msg.CompanyID, msg.WorkspaceID, msg.AuthorID, msg.Content, msg.AttachmentID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return msg, nil
}

// List returns a channel's latest messages, newest first, with author
// details and presigned attachment URLs. workspaceID nil selects the global
// channel.
func (s *ChatService) List(ctx context.Context, userID, companyID string, workspaceID *string, limit int) ([]db.Message, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	if workspaceID != nil && s.Authz.GetWorkspaceRole(ctx, userID, *workspaceID) == "" {
		return nil, authz.ErrForbidden
	}
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	rows, err := s.PG.QueryContext(ctx, `
		SELECT m.id, m.company_id, m.workspace_id, m.author_id, m.content, m.attachment_id, m.created_at,
		       u.id, u.name, COALESCE(u.avatar_url, ''),
		       a.storage_key
		FROM messages m
		JOIN users u ON u.id = m.author_id
		LEFT JOIN assets a ON a.id = m.attachment_id
		WHERE m.company_id = $1 AND m.workspace_id IS NOT DISTINCT FROM $2
		ORDER BY m.created_at DESC
		LIMIT $3
	`, companyID, workspaceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []db.Message
	for rows.Next() {
		var m db.Message
		var u db.User
		var storageKey sql.NullString
		if err := rows.Scan(&m.ID, &m.CompanyID, &m.WorkspaceID, &m.AuthorID, &m.Content, &m.AttachmentID, &m.CreatedAt,
			&u.ID, &u.Name, &u.AvatarURL, &storageKey); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Author = &u
		if storageKey.Valid {
			url, err := s.Blobs.GetDownloadURL(ctx, storageKey.String)
			if err != nil {
				log.Printf("chat: attachment presign failed for %s: %v", storageKey.String, err)
			} else {
				m.AttachmentURL = url
			}
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
