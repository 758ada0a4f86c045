package services

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/centrohq/centro/authz"
)

func newUserService(t *testing.T) (sqlmock.Sqlmock, *UserService) {
	pg, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { pg.Close() })
	return mock, NewUserService(pg)
}

func userRows(name, avatar string) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "email", "avatar_url", "external_id", "created_at", "updated_at"}).
		AddRow("user-1", name, "kim@example.com", avatar, "ext-1", time.Now(), time.Now())
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name      string
		principal Principal
		want      string
	}{
		{"provider name wins", Principal{Name: "Kim Lee", Email: "kim@example.com"}, "Kim Lee"},
		{"email local part fallback", Principal{Email: "kim.lee@example.com"}, "Kim Lee"},
		{"single word email", Principal{Email: "ops@example.com"}, "Ops"},
		{"no identity at all", Principal{}, "Anonymous"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, displayName(tt.principal))
		})
	}
}

func TestStoreRejectsEmptySubject(t *testing.T) {
	_, svc := newUserService(t)

	_, err := svc.Store(context.Background(), Principal{Name: "Kim"})
	assert.ErrorIs(t, err, authz.ErrUnauthorized)
}

func TestStoreCreatesOnFirstContact(t *testing.T) {
	mock, svc := newUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE external_id = $1`)).
		WithArgs("ext-1").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO users`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE external_id = $1`)).
		WithArgs("ext-1").
		WillReturnRows(userRows("Kim Lee", ""))

	user, err := svc.Store(context.Background(), Principal{Subject: "ext-1", Name: "Kim Lee", Email: "kim@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Kim Lee", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreDoesNotResyncName(t *testing.T) {
	mock, svc := newUserService(t)

	// The stored row keeps its (renamed) display name even though the
	// provider now reports a different one.
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE external_id = $1`)).
		WithArgs("ext-1").
		WillReturnRows(userRows("Chosen Name", ""))

	user, err := svc.Store(context.Background(), Principal{Subject: "ext-1", Name: "Provider Name"})
	require.NoError(t, err)
	assert.Equal(t, "Chosen Name", user.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStoreRepatchesAvatar(t *testing.T) {
	mock, svc := newUserService(t)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE external_id = $1`)).
		WithArgs("ext-1").
		WillReturnRows(userRows("Kim", "http://old"))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET avatar_url = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user, err := svc.Store(context.Background(), Principal{Subject: "ext-1", AvatarURL: "http://new"})
	require.NoError(t, err)
	assert.Equal(t, "http://new", user.AvatarURL)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateNameValidation(t *testing.T) {
	_, svc := newUserService(t)

	err := svc.UpdateName(context.Background(), "user-1", "   ")
	assert.ErrorIs(t, err, authz.ErrInvalidInput)
}

func TestUpdateNameMissingUser(t *testing.T) {
	mock, svc := newUserService(t)

	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET name = $2`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := svc.UpdateName(context.Background(), "ghost", "Kim")
	assert.ErrorIs(t, err, authz.ErrNotFound)
}
