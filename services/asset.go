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

// AssetService manages the file vault: blob handoff through presigned URLs,
// the asset records pointing at them, visibility flags and the activity log.
type AssetService struct {
	PG    *sql.DB
	Authz authz.Authorizer
	Blobs storage.BlobStore
	Audit *AuditLogger
}

func NewAssetService(pg *sql.DB, authorizer authz.Authorizer, blobs storage.BlobStore, audit *AuditLogger) *AssetService {
	return &AssetService{PG: pg, Authz: authorizer, Blobs: blobs, Audit: audit}
}

// UploadURLResult pairs the presigned PUT URL with the storage key the client
// must echo back when registering the asset.
type UploadURLResult struct {
	URL string `json:"url"`
	Key string `json:"key"`
}

// GenerateUploadURL hands out a presigned upload slot. Active members of the
// company only.
func (s *AssetService) GenerateUploadURL(ctx context.Context, userID, companyID, fileName, contentType string) (*UploadURLResult, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	if strings.TrimSpace(fileName) == "" {
		return nil, authz.ErrInvalidInput
	}
	url, key, err := s.Blobs.GenerateUploadURL(ctx, fileName, contentType)
	if err != nil {
		return nil, fmt.Errorf("failed to presign upload: %w", err)
	}
	return &UploadURLResult{URL: url, Key: key}, nil
}

// RegisterAssetInput carries the record for a completed upload.
type RegisterAssetInput struct {
	CompanyID   string  `json:"company_id" binding:"required"`
	WorkspaceID *string `json:"workspace_id,omitempty"`
	StorageKey  string  `json:"storage_key" binding:"required"`
	FileName    string  `json:"file_name" binding:"required"`
	FileType    string  `json:"file_type,omitempty"`
}

// Register records an uploaded blob as a vault asset and logs the upload.
func (s *AssetService) Register(ctx context.Context, userID string, input RegisterAssetInput) (*db.Asset, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, input.CompanyID) {
		return nil, authz.ErrForbidden
	}

	asset := &db.Asset{
		ID:          uuid.New().String(),
		CompanyID:   input.CompanyID,
		WorkspaceID: input.WorkspaceID,
		StorageKey:  input.StorageKey,
		FileName:    input.FileName,
		FileType:    input.FileType,
		UploaderID:  userID,
		CreatedAt:   time.Now(),
	}
	_, err := s.PG.ExecContext(ctx, `
		INSERT INTO assets (id, company_id, workspace_id, storage_key, file_name, file_type, uploader_id, is_restricted, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, false, $8)
	`, asset.ID, asset.CompanyID, asset.WorkspaceID, asset.StorageKey, asset.FileName,
		asset.FileType, asset.UploaderID, asset.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to register asset: %w", err)
	}

	s.Audit.AssetEvent(ctx, input.CompanyID, userID, "upload", fmt.Sprintf("Uploaded %s", input.FileName))
	return asset, nil
}

// ListForCompany returns the company vault. Restricted assets are excluded
// unless the caller is a company admin; every row carries a fresh download
// URL and the uploader's name.
func (s *AssetService) ListForCompany(ctx context.Context, userID, companyID string) ([]db.Asset, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	includeRestricted := s.Authz.GetCompanyRole(ctx, userID, companyID) == authz.RoleAdmin

	rows, err := s.PG.QueryContext(ctx, `
		SELECT a.id, a.company_id, a.workspace_id, a.storage_key, a.file_name, a.file_type,
		       a.uploader_id, a.is_restricted, a.created_at, u.name
		FROM assets a
		JOIN users u ON u.id = a.uploader_id
		WHERE a.company_id = $1 AND (a.is_restricted = false OR $2)
		ORDER BY a.created_at DESC
	`, companyID, includeRestricted)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()
	return s.collectAssets(ctx, rows)
}

// ListForWorkspace returns a workspace's assets, restricted ones included;
// visibility restriction applies to the company-wide vault only. Workspace
// viewers only.
func (s *AssetService) ListForWorkspace(ctx context.Context, userID, workspaceID string) ([]db.Asset, error) {
	if s.Authz.GetWorkspaceRole(ctx, userID, workspaceID) == "" {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT a.id, a.company_id, a.workspace_id, a.storage_key, a.file_name, a.file_type,
		       a.uploader_id, a.is_restricted, a.created_at, u.name
		FROM assets a
		JOIN users u ON u.id = a.uploader_id
		WHERE a.workspace_id = $1
		ORDER BY a.created_at DESC
	`, workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspace assets: %w", err)
	}
	defer rows.Close()
	return s.collectAssets(ctx, rows)
}

func (s *AssetService) collectAssets(ctx context.Context, rows *sql.Rows) ([]db.Asset, error) {
	var assets []db.Asset
	for rows.Next() {
		var a db.Asset
		if err := rows.Scan(&a.ID, &a.CompanyID, &a.WorkspaceID, &a.StorageKey, &a.FileName,
			&a.FileType, &a.UploaderID, &a.IsRestricted, &a.CreatedAt, &a.UploaderName); err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		url, err := s.Blobs.GetDownloadURL(ctx, a.StorageKey)
		if err != nil {
			log.Printf("assets: presign failed for %s: %v", a.StorageKey, err)
		} else {
			a.URL = url
		}
		assets = append(assets, a)
	}
	return assets, rows.Err()
}

// SetRestricted toggles company-vault visibility. Company admins and the
// asset's workspace head only.
func (s *AssetService) SetRestricted(ctx context.Context, userID, assetID string, restricted bool) error {
	if !s.Authz.Check(ctx, userID, authz.ActionSetVisibility, authz.ResourceAsset, assetID) {
		return authz.ErrForbidden
	}

	var companyID, fileName string
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id, file_name FROM assets WHERE id = $1
	`, assetID).Scan(&companyID, &fileName)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get asset: %w", err)
	}

	if _, err := s.PG.ExecContext(ctx, `
		UPDATE assets SET is_restricted = $2 WHERE id = $1
	`, assetID, restricted); err != nil {
		return fmt.Errorf("failed to update asset visibility: %w", err)
	}

	verb := "Unrestricted"
	if restricted {
		verb = "Restricted"
	}
	s.Audit.AssetEvent(ctx, companyID, userID, "update", fmt.Sprintf("%s %s", verb, fileName))
	return nil
}

// Delete removes the asset record and its blob. Company admins only; the
// blob delete is best-effort after the record is gone.
func (s *AssetService) Delete(ctx context.Context, userID, assetID string) error {
	if !s.Authz.Check(ctx, userID, authz.ActionDelete, authz.ResourceAsset, assetID) {
		return authz.ErrForbidden
	}

	var companyID, storageKey, fileName string
	err := s.PG.QueryRowContext(ctx, `
		SELECT company_id, storage_key, file_name FROM assets WHERE id = $1
	`, assetID).Scan(&companyID, &storageKey, &fileName)
	if err != nil {
		if err == sql.ErrNoRows {
			return authz.ErrNotFound
		}
		return fmt.Errorf("failed to get asset: %w", err)
	}

	if _, err := s.PG.ExecContext(ctx, `DELETE FROM assets WHERE id = $1`, assetID); err != nil {
		return fmt.Errorf("failed to delete asset: %w", err)
	}

	if err := s.Blobs.DeleteObject(ctx, storageKey); err != nil {
		log.Printf("assets: blob delete failed for %s: %v", storageKey, err)
	}

	s.Audit.AssetEvent(ctx, companyID, userID, "delete", fmt.Sprintf("Deleted %s", fileName))
	return nil
}

// GetEvents lists the company vault activity log, newest first.
func (s *AssetService) GetEvents(ctx context.Context, userID, companyID string) ([]db.AssetEvent, error) {
	if !s.Authz.IsCompanyMember(ctx, userID, companyID) {
		return nil, authz.ErrForbidden
	}
	rows, err := s.PG.QueryContext(ctx, `
		SELECT e.id, e.company_id, e.actor_id, e.type, e.description, e.created_at, u.name
		FROM asset_events e
		JOIN users u ON u.id = e.actor_id
		WHERE e.company_id = $1
		ORDER BY e.created_at DESC
		LIMIT 100
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list asset events: %w", err)
	}
	defer rows.Close()

	var events []db.AssetEvent
	for rows.Next() {
		var e db.AssetEvent
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ActorID, &e.Type, &e.Description, &e.CreatedAt, &e.ActorName); err != nil {
			return nil, fmt.Errorf("failed to scan asset event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
