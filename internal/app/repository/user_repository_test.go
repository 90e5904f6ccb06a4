package repository

import (
	"testing"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupUserTest(t *testing.T) (*gorm.DB, UserRepository) {
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)

	repo := NewUserRepository(testDB)
	return testDB, repo
}

func TestUserRepository_Create(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	tests := []struct {
		name    string
		user    *model.User
		wantErr bool
	}{
		{
			name: "Valid user",
			user: &model.User{
				Username:     "alice",
				Email:        "alice@example.com",
				PasswordHash: "hashedpassword",
				Role:         model.RoleUser,
			},
			wantErr: false,
		},
		{
			name: "Duplicate email",
			user: &model.User{
				Username:     "alice2",
				Email:        "alice@example.com",
				PasswordHash: "hashedpassword",
				Role:         model.RoleUser,
			},
			wantErr: true,
		},
		{
			name: "Duplicate username",
			user: &model.User{
				Username:     "alice",
				Email:        "other@example.com",
				PasswordHash: "hashedpassword",
				Role:         model.RoleUser,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(tt.user)

			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.NotZero(t, tt.user.ID)
			}
		})
	}
}

func TestUserRepository_FindByLogin(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	user := createTestUser(t, testDB, "bob")

	found, err := repo.FindByLogin("bob")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	found, err = repo.FindByLogin("BOB@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)

	_, err = repo.FindByLogin("nobody")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	user := createTestUser(t, testDB, "carol")

	exists, err := repo.ExistsByEmail("carol@example.com", 0)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = repo.ExistsByEmail("carol@example.com", user.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = repo.ExistsByUsername("carol")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_DeleteAndRestore(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	user := createTestUser(t, testDB, "dave")

	require.NoError(t, repo.Delete(user.ID))

	_, err := repo.FindByID(user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	deleted, err := repo.FindByIDUnscoped(user.ID)
	require.NoError(t, err)
	assert.False(t, deleted.IsActive())

	require.NoError(t, repo.Restore(user.ID))
	restored, err := repo.FindByID(user.ID)
	require.NoError(t, err)
	assert.True(t, restored.IsActive())

	assert.ErrorIs(t, repo.Delete(9999), gorm.ErrRecordNotFound)
}

func TestUserRepository_ListAndCount(t *testing.T) {
	testDB, repo := setupUserTest(t)
	defer db.CleanupTestDB(testDB)

	for _, name := range []string{"u1", "u2", "u3"} {
		createTestUser(t, testDB, name)
	}
	admin := createTestUser(t, testDB, "root")
	require.NoError(t, repo.UpdateRole(admin.ID, model.RoleAdmin))

	page, err := repo.List(Pagination{Page: 0, Size: 2, SortBy: "username", SortDir: "asc"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.TotalElements)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Content, 2)
	assert.Equal(t, "root", page.Content[0].Username)

	counts, err := repo.CountByRole()
	require.NoError(t, err)
	assert.Equal(t, int64(4), counts.Total)
	assert.Equal(t, int64(1), counts.Admins)
	assert.Equal(t, int64(3), counts.Regular)
}
