package service

import (
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserService_UpdateProfile(t *testing.T) {
	testDB := setupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(testDB))

	user := createUser(t, testDB, "gina")
	createUser(t, testDB, "hank")
	birth := time.Date(1990, 5, 17, 0, 0, 0, 0, time.UTC)

	updated, err := svc.UpdateProfile(user.ID, UpdateProfileInput{
		FirstName: strPtr(" Gina "),
		Phone:     strPtr("555-0100"),
		BirthDate: &birth,
	})
	require.NoError(t, err)
	assert.Equal(t, "Gina", updated.FirstName)
	assert.Equal(t, "555-0100", updated.Phone)
	require.NotNil(t, updated.BirthDate)

	_, err = svc.UpdateProfile(user.ID, UpdateProfileInput{Email: strPtr("HANK@example.com")})
	assert.ErrorIs(t, err, ErrEmailAlreadyExists)

	updated, err = svc.UpdateProfile(user.ID, UpdateProfileInput{Email: strPtr("gina.new@example.com")})
	require.NoError(t, err)
	assert.Equal(t, "gina.new@example.com", updated.Email)

	_, err = svc.UpdateProfile(9999, UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_AdminOperations(t *testing.T) {
	testDB := setupTestDB(t)
	svc := NewUserService(repository.NewUserRepository(testDB))

	user := createUser(t, testDB, "ivy")
	createUser(t, testDB, "jack")

	_, err := svc.SetRole(user.ID, "superuser")
	assert.ErrorIs(t, err, ErrInvalidRole)

	promoted, err := svc.SetRole(user.ID, model.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, promoted.Role)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, repository.UserRoleCounts{Total: 2, Admins: 1, Regular: 1}, stats)

	_, err = svc.Activate(user.ID)
	assert.ErrorIs(t, err, ErrUserAlreadyActive)

	require.NoError(t, svc.Delete(user.ID))
	_, err = svc.GetByID(user.ID)
	assert.ErrorIs(t, err, ErrUserNotFound)

	// the username stays reserved while deactivated
	exists, err := svc.ExistsByUsername("ivy")
	require.NoError(t, err)
	assert.True(t, exists)

	activated, err := svc.Activate(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "ivy", activated.Username)

	assert.ErrorIs(t, svc.Delete(9999), ErrUserNotFound)
}
