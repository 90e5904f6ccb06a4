package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "test-jwt-secret"

func setupAuthServiceTest(t *testing.T) (AuthService, repository.UserRepository, *memoryStore) {
	testDB := setupTestDB(t)
	userRepo := repository.NewUserRepository(testDB)
	store := newMemoryStore()
	authService := NewAuthService(userRepo, store, testJWTSecret, 15*time.Minute, 7*24*time.Hour)
	return authService, userRepo, store
}

func TestAuthService_Signup(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	tests := []struct {
		name    string
		input   SignupInput
		wantErr error
	}{
		{
			name:    "Valid signup",
			input:   SignupInput{Username: "alice", Email: "Alice@Example.com", Password: "password123", FirstName: "Alice"},
			wantErr: nil,
		},
		{
			name:    "Duplicate username",
			input:   SignupInput{Username: "alice", Email: "other@example.com", Password: "password123"},
			wantErr: ErrUsernameAlreadyExists,
		},
		{
			name:    "Duplicate email with different case",
			input:   SignupInput{Username: "alice2", Email: "ALICE@example.com", Password: "password123"},
			wantErr: ErrEmailAlreadyExists,
		},
		{
			name:    "Short password",
			input:   SignupInput{Username: "bob", Email: "bob@example.com", Password: "123"},
			wantErr: util.ErrWeakPassword,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := authService.Signup(tt.input)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
				assert.Nil(t, tokens)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, user.ID)
			assert.Equal(t, "alice@example.com", user.Email)
			assert.Equal(t, model.RoleUser, user.Role)
			assert.NotEqual(t, tt.input.Password, user.PasswordHash)
			assert.NotEmpty(t, tokens.AccessToken)
			assert.NotEmpty(t, tokens.RefreshToken)
		})
	}
}

func TestAuthService_Login(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	_, _, err := authService.Signup(SignupInput{Username: "carol", Email: "carol@example.com", Password: "password123"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{name: "Username", identifier: "carol", password: "password123"},
		{name: "Email", identifier: "carol@example.com", password: "password123"},
		{name: "Wrong password", identifier: "carol", password: "wrong-password", wantErr: ErrInvalidCredentials},
		{name: "Unknown user", identifier: "nobody", password: "password123", wantErr: ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, tokens, err := authService.Login(tt.identifier, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "carol", user.Username)
			assert.NotEmpty(t, tokens.AccessToken)
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	authService, userRepo, _ := setupAuthServiceTest(t)

	user, tokens, err := authService.Signup(SignupInput{Username: "dave", Email: "dave@example.com", Password: "password123"})
	require.NoError(t, err)

	// access tokens cannot be used to refresh
	_, _, err = authService.RefreshToken(tokens.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, _, err = authService.RefreshToken("garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	require.NoError(t, userRepo.UpdateRole(user.ID, model.RoleAdmin))
	refreshed, pair, err := authService.RefreshToken(tokens.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, refreshed.Role)

	claims, err := util.ValidateToken(pair.AccessToken, testJWTSecret)
	require.NoError(t, err)
	assert.Equal(t, string(model.RoleAdmin), claims.Role)
	assert.Equal(t, util.AccessToken, claims.TokenType)
}

func TestAuthService_Logout(t *testing.T) {
	authService, _, store := setupAuthServiceTest(t)

	_, tokens, err := authService.Signup(SignupInput{Username: "erin", Email: "erin@example.com", Password: "password123"})
	require.NoError(t, err)
	claims, err := util.ValidateToken(tokens.AccessToken, testJWTSecret)
	require.NoError(t, err)

	require.NoError(t, authService.Logout(context.Background(), tokens.AccessToken, claims))
	ttl, ok := store.revoked[tokens.AccessToken]
	require.True(t, ok)
	assert.True(t, ttl > 0 && ttl <= 15*time.Minute)

	// without a token store logout is a no-op
	noStore := NewAuthService(nil, nil, testJWTSecret, time.Minute, time.Hour)
	assert.NoError(t, noStore.Logout(context.Background(), tokens.AccessToken, claims))
}

func TestAuthService_GetUserByID(t *testing.T) {
	authService, _, _ := setupAuthServiceTest(t)

	user, _, err := authService.Signup(SignupInput{Username: "frank", Email: "frank@example.com", Password: "password123"})
	require.NoError(t, err)

	found, err := authService.GetUserByID(user.ID)
	require.NoError(t, err)
	assert.Equal(t, user.Username, found.Username)

	_, err = authService.GetUserByID(9999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
