package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/db"
)

// Principal is the external authenticated identity presented on each call.
type Principal struct {
	Subject   string
	Name      string
	Email     string
	AvatarURL string
}

// UserService resolves external principals to internal User rows and manages
// the small self-service surface (display name).
type UserService struct {
	PG *sql.DB
}

func NewUserService(pg *sql.DB) *UserService {
	return &UserService{PG: pg}
}

// Store syncs a principal to a User row: creates on first contact, re-patches
// the avatar URL when it changed. The display name is deliberately not
// re-synced after creation so self-service renames survive logins.
func (s *UserService) Store(ctx context.Context, p Principal) (*db.User, error) {
	if p.Subject == "" {
		return nil, authz.ErrUnauthorized
	}

	user, err := s.GetByExternalID(ctx, p.Subject)
	if err == nil {
		if p.AvatarURL != "" && p.AvatarURL != user.AvatarURL {
			if _, err := s.PG.ExecContext(ctx, `
				UPDATE users SET avatar_url = $2, updated_at = $3 WHERE id = $1
			`, user.ID, p.AvatarURL, time.Now()); err != nil {
				return nil, fmt.Errorf("failed to update avatar: %w", err)
			}
			user.AvatarURL = p.AvatarURL
		}
		return user, nil
	}
	if err != authz.ErrNotFound {
		return nil, err
	}

	now := time.Now()
	user = &db.User{
		ID:         uuid.New().String(),
		Name:       displayName(p),
		Email:      p.Email,
		AvatarURL:  p.AvatarURL,
		ExternalID: p.Subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO users (id, name, email, avatar_url, external_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_id) DO NOTHING
	`, user.ID, user.Name, user.Email, nullable(user.AvatarURL), user.ExternalID, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	// A concurrent first contact may have won the insert; read back the row
	// that actually exists.
	return s.GetByExternalID(ctx, p.Subject)
}

// CurrentUser returns the User row for a principal, without creating one.
func (s *UserService) CurrentUser(ctx context.Context, subject string) (*db.User, error) {
	if subject == "" {
		return nil, authz.ErrUnauthorized
	}
	return s.GetByExternalID(ctx, subject)
}

// UpdateName changes the user's display name.
func (s *UserService) UpdateName(ctx context.Context, userID, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return authz.ErrInvalidInput
	}
	res, err := s.PG.ExecContext(ctx, `
		UPDATE users SET name = $2, updated_at = $3 WHERE id = $1
	`, userID, name, time.Now())
	if err != nil {
		return fmt.Errorf("failed to update name: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// GetByID fetches a user by internal id.
func (s *UserService) GetByID(ctx context.Context, id string) (*db.User, error) {
	return s.scanUser(s.PG.QueryRowContext(ctx, `
		SELECT id, name, email, COALESCE(avatar_url, ''), external_id, created_at, updated_at
		FROM users WHERE id = $1
	`, id))
}

// GetByExternalID fetches a user by its external identity key.
func (s *UserService) GetByExternalID(ctx context.Context, externalID string) (*db.User, error) {
	return s.scanUser(s.PG.QueryRowContext(ctx, `
		SELECT id, name, email, COALESCE(avatar_url, ''), external_id, created_at, updated_at
		FROM users WHERE external_id = $1
	`, externalID))
}

func (s *UserService) scanUser(row *sql.Row) (*db.User, error) {
	var u db.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.AvatarURL, &u.ExternalID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, authz.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

var titleCaser = cases.Title(language.English)

// displayName falls back to the local part of the email, title-cased, when
// the identity provider supplies no name.
func displayName(p Principal) string {
	if p.Name != "" {
		return p.Name
	}
	if at := strings.IndexByte(p.Email, '@'); at > 0 {
		return titleCaser.String(strings.ReplaceAll(p.Email[:at], ".", " "))
	}
	return "Anonymous"
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
