package services

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centrohq/centro/authz"
)

// mockBlobStore records calls instead of talking to object storage.
type mockBlobStore struct {
	uploads   []string
	deletes   []string
	deleteErr error
}

func (m *mockBlobStore) GenerateUploadURL(_ context.Context, fileName, _ string) (string, string, error) {
	m.uploads = append(m.uploads, fileName)
	return "https://blobs.test/put", "assets/test/" + fileName, nil
}

func (m *mockBlobStore) GetDownloadURL(_ context.Context, key string) (string, error) {
	return "https://blobs.test/get/" + key, nil
}

func (m *mockBlobStore) DeleteObject(_ context.Context, key string) error {
	m.deletes = append(m.deletes, key)
	return m.deleteErr
}

func newAssetService(t *testing.T) (sqlmock.Sqlmock, *AssetService, *mockAuthorizer, *mockBlobStore) {
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	az := &mockAuthorizer{}
	blobs := &mockBlobStore{}
	return mock, NewAssetService(pg, az, blobs, NewAuditLogger(pg)), az, blobs
}

func assetCols() []string {
	return []string{"id", "company_id", "workspace_id", "storage_key", "file_name",
		"file_type", "uploader_id", "is_restricted", "created_at", "name"}
}

func TestGenerateUploadURLRequiresMembership(t *testing.T) {
	_, svc, _, blobs := newAssetService(t)

	_, err := svc.GenerateUploadURL(context.Background(), "outsider", "company-1", "a.pdf", "application/pdf")
	assert.ErrorIs(t, err, authz.ErrForbidden)
	assert.Empty(t, blobs.uploads)
}

func TestListForCompanyHidesRestrictedFromNonAdmins(t *testing.T) {
	mock, svc, az, _ := newAssetService(t)
	az.IsMemberFunc = func(userID, companyID string) bool { return true }

	// Non-admin: the restricted filter argument is false.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM assets a`)).
		WithArgs("company-1", false).
		WillReturnRows(sqlmock.NewRows(assetCols()).
			AddRow("a-1", "company-1", nil, "assets/k1/a.pdf", "a.pdf", "application/pdf",
				"user-2", false, time.Now(), "Uploader"))

	assets, err := svc.ListForCompany(context.Background(), "user-1", "company-1")
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "https://blobs.test/get/assets/k1/a.pdf", assets[0].URL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForCompanyAdminSeesRestricted(t *testing.T) {
	mock, svc, az, _ := newAssetService(t)
	az.IsMemberFunc = func(userID, companyID string) bool { return true }
	az.CompanyRoleFunc = func(userID, companyID string) authz.Role { return authz.RoleAdmin }

	mock.ExpectQuery(regexp.QuoteMeta(`FROM assets a`)).
		WithArgs("company-1", true).
		WillReturnRows(sqlmock.NewRows(assetCols()))

	_, err := svc.ListForCompany(context.Background(), "admin-1", "company-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListForWorkspaceRequiresRole(t *testing.T) {
	_, svc, _, _ := newAssetService(t)

	_, err := svc.ListForWorkspace(context.Background(), "outsider", "ws-1")
	assert.ErrorIs(t, err, authz.ErrForbidden)
}

func TestDeleteAssetRemovesRecordThenBlob(t *testing.T) {
	mock, svc, az, blobs := newAssetService(t)
	az.CheckFunc = func(action authz.Action, resourceType authz.ResourceType, resourceID string) bool {
		return action == authz.ActionDelete && resourceType == authz.ResourceAsset
	}

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id, storage_key, file_name FROM assets`)).
		WithArgs("a-1").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "storage_key", "file_name"}).
			AddRow("company-1", "assets/k1/a.pdf", "a.pdf"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assets WHERE id = $1`)).
		WithArgs("a-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO asset_events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := svc.Delete(context.Background(), "admin-1", "a-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"assets/k1/a.pdf"}, blobs.deletes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAssetSurvivesBlobFailure(t *testing.T) {
	mock, svc, az, blobs := newAssetService(t)
	az.CheckFunc = func(authz.Action, authz.ResourceType, string) bool { return true }
	blobs.deleteErr = assert.AnError

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id, storage_key, file_name FROM assets`)).
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "storage_key", "file_name"}).
			AddRow("company-1", "assets/k1/a.pdf", "a.pdf"))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM assets WHERE id = $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO asset_events`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// The record delete stands even when the blob delete fails.
	err := svc.Delete(context.Background(), "admin-1", "a-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetRestrictedUnknownAsset(t *testing.T) {
	mock, svc, az, _ := newAssetService(t)
	az.CheckFunc = func(authz.Action, authz.ResourceType, string) bool { return true }

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT company_id, file_name FROM assets`)).
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"company_id", "file_name"}))

	err := svc.SetRestricted(context.Background(), "admin-1", "ghost", true)
	assert.ErrorIs(t, err, authz.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
