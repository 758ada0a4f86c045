package services

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/db"
)

const apiKeyPrefix = "ck_"

// APIKeyService issues and resolves service credentials. A key is shown once
// at creation; only its bcrypt hash is stored.
type APIKeyService struct {
	PG *sql.DB
}

func NewAPIKeyService(pg *sql.DB) *APIKeyService {
	return &APIKeyService{PG: pg}
}

// CreatedKey pairs the stored record with the plaintext token, returned
// exactly once.
type CreatedKey struct {
	Key   *db.APIKey `json:"key"`
	Token string     `json:"token"`
}

// Create mints a key for the user. The token format is "ck_<id>.<secret>";
// lookups split on the dot so verification costs one bcrypt compare.
func (s *APIKeyService) Create(ctx context.Context, userID, name string) (*CreatedKey, error) {
	if strings.TrimSpace(name) == "" {
		return nil, authz.ErrInvalidInput
	}

	secret := make([]byte, 24)
	if _, err := rand.Read(secret); err != nil {
		return nil, fmt.Errorf("failed to generate key material: %w", err)
	}
	plaintext := hex.EncodeToString(secret)

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash key: %w", err)
	}

	key := &db.APIKey{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		KeyHash:   string(hash),
		CreatedAt: time.Now(),
	}
	_, err = s.PG.ExecContext(ctx, `
		INSERT INTO api_keys (id, user_id, name, key_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, key.ID, key.UserID, key.Name, key.KeyHash, key.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to store api key: %w", err)
	}

	return &CreatedKey{
		Key:   key,
		Token: fmt.Sprintf("%s%s.%s", apiKeyPrefix, key.ID, plaintext),
	}, nil
}

// List returns the caller's keys, hashes excluded by the model's json tags.
func (s *APIKeyService) List(ctx context.Context, userID string) ([]db.APIKey, error) {
	rows, err := s.PG.QueryContext(ctx, `
		SELECT id, user_id, name, key_hash, last_used_at, created_at
		FROM api_keys WHERE user_id = $1 ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list api keys: %w", err)
	}
	defer rows.Close()

	var keys []db.APIKey
	for rows.Next() {
		var k db.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.LastUsedAt, &k.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// Revoke deletes one of the caller's keys.
func (s *APIKeyService) Revoke(ctx context.Context, userID, keyID string) error {
	res, err := s.PG.ExecContext(ctx, `
		DELETE FROM api_keys WHERE id = $1 AND user_id = $2
	`, keyID, userID)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return authz.ErrNotFound
	}
	return nil
}

// Authenticate resolves a presented token to its owning user id. Any parse
// or compare failure maps to ErrUnauthorized without detail.
func (s *APIKeyService) Authenticate(ctx context.Context, token string) (string, error) {
	raw, ok := strings.CutPrefix(token, apiKeyPrefix)
	if !ok {
		return "", authz.ErrUnauthorized
	}
	keyID, secret, ok := strings.Cut(raw, ".")
	if !ok || keyID == "" || secret == "" {
		return "", authz.ErrUnauthorized
	}

	var userID, keyHash string
	err := s.PG.QueryRowContext(ctx, `
		SELECT user_id, key_hash FROM api_keys WHERE id = $1
	`, keyID).Scan(&userID, &keyHash)
	if err != nil {
		if err == sql.ErrNoRows {
			return "", authz.ErrUnauthorized
		}
		return "", fmt.Errorf("failed to look up api key: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(keyHash), []byte(secret)) != nil {
		return "", authz.ErrUnauthorized
	}

	if _, err := s.PG.ExecContext(ctx, `
		UPDATE api_keys SET last_used_at = $2 WHERE id = $1
	`, keyID, time.Now()); err != nil {
		log.Printf("apikeys: failed to record usage for %s: %v", keyID, err)
	}
	return userID, nil
}
