package repository

import (
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	conn, err := db.Open(postgres.New(postgres.Config{Conn: sqlDB}))
	require.NoError(t, err)
	return conn, mock
}

func TestProductRepository_SoftDeleteRollsBackOnError(t *testing.T) {
	conn, mock := setupMockDB(t)
	repo := NewProductRepository(conn)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "products" SET "deleted_at"=`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "product_skus" SET "deleted_at"=`)).
		WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectRollback()

	err := repo.SoftDelete(42)
	assert.EqualError(t, err, "connection reset by peer")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductRepository_FindByIDNoRows(t *testing.T) {
	conn, mock := setupMockDB(t)
	repo := NewProductRepository(conn)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "products"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))

	_, err := repo.FindByID(7, ScopeActive)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_DeleteMissingRow(t *testing.T) {
	conn, mock := setupMockDB(t)
	repo := NewUserRepository(conn)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "deleted_at"=`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Delete(5)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
