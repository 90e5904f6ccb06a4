package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type captureNotifier struct {
	mu       sync.Mutex
	messages []events.PasswordResetRequested
	err      error
}

func (n *captureNotifier) PublishPasswordReset(_ context.Context, msg events.PasswordResetRequested) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.messages = append(n.messages, msg)
	return nil
}

func (n *captureNotifier) last(t *testing.T) events.PasswordResetRequested {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.messages)
	return n.messages[len(n.messages)-1]
}

type resetFixture struct {
	db       *gorm.DB
	svc      *passwordResetService
	notifier *captureNotifier
	user     *model.User
}

func setupPasswordResetTest(t *testing.T) *resetFixture {
	testDB := setupTestDB(t)
	hash, err := util.HashPassword("oldpassword")
	require.NoError(t, err)
	user := &model.User{
		Username:     "shopper",
		Email:        "shopper@example.com",
		PasswordHash: hash,
		Role:         model.RoleUser,
	}
	require.NoError(t, testDB.Create(user).Error)

	notifier := &captureNotifier{}
	svc := NewPasswordResetService(
		testDB,
		repository.NewPasswordResetRepository(testDB),
		repository.NewUserRepository(testDB),
		notifier,
	).(*passwordResetService)
	return &resetFixture{db: testDB, svc: svc, notifier: notifier, user: user}
}

func (f *resetFixture) passwordMatches(t *testing.T, password string) bool {
	t.Helper()
	var user model.User
	require.NoError(t, f.db.First(&user, f.user.ID).Error)
	return util.VerifyPassword(user.PasswordHash, password)
}

func TestPasswordReset_RequestAndReset(t *testing.T) {
	f := setupPasswordResetTest(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestReset(ctx, "  Shopper@Example.com "))
	msg := f.notifier.last(t)
	assert.Equal(t, f.user.ID, msg.UserID)
	assert.Len(t, msg.Token, 64)

	var stored model.PasswordReset
	require.NoError(t, f.db.First(&stored).Error)
	assert.Equal(t, util.HashToken(msg.Token), stored.TokenHash)
	assert.NotEqual(t, msg.Token, stored.TokenHash)

	require.NoError(t, f.svc.ResetPassword(ctx, msg.Token, "newpassword"))
	assert.True(t, f.passwordMatches(t, "newpassword"))

	// tokens are single use
	err := f.svc.ResetPassword(ctx, msg.Token, "another1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestPasswordReset_UnknownEmailIsSilent(t *testing.T) {
	f := setupPasswordResetTest(t)

	require.NoError(t, f.svc.RequestReset(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.notifier.messages)
}

func TestPasswordReset_NewRequestSupersedesOld(t *testing.T) {
	f := setupPasswordResetTest(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestReset(ctx, f.user.Email))
	first := f.notifier.last(t).Token
	require.NoError(t, f.svc.RequestReset(ctx, f.user.Email))
	second := f.notifier.last(t).Token

	assert.ErrorIs(t, f.svc.ResetPassword(ctx, first, "newpassword"), ErrInvalidResetToken)
	assert.NoError(t, f.svc.ResetPassword(ctx, second, "newpassword"))
}

func TestPasswordReset_ExpiredToken(t *testing.T) {
	f := setupPasswordResetTest(t)
	ctx := context.Background()

	require.NoError(t, f.svc.RequestReset(ctx, f.user.Email))
	token := f.notifier.last(t).Token

	f.svc.now = func() time.Time { return time.Now().Add(ResetTokenExpiry + time.Minute) }
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, token, "newpassword"), ErrInvalidResetToken)

	purged, err := f.svc.PurgeExpired()
	require.NoError(t, err)
	assert.Equal(t, 1, purged)
}

func TestPasswordReset_WeakPassword(t *testing.T) {
	f := setupPasswordResetTest(t)
	ctx := context.Background()
	require.NoError(t, f.svc.RequestReset(ctx, f.user.Email))

	err := f.svc.ResetPassword(ctx, f.notifier.last(t).Token, "123")
	assert.ErrorIs(t, err, util.ErrWeakPassword)
	assert.True(t, f.passwordMatches(t, "oldpassword"))
}

func TestPasswordReset_DeliveryFailure(t *testing.T) {
	f := setupPasswordResetTest(t)
	f.notifier.err = errors.New("broker down")

	assert.NoError(t, f.svc.RequestReset(context.Background(), f.user.Email))

	// the token is still issued so a retry after recovery supersedes it
	var issued int64
	require.NoError(t, f.db.Model(&model.PasswordReset{}).Where("user_id = ?", f.user.ID).Count(&issued).Error)
	assert.Equal(t, int64(1), issued)

	disabled := NewPasswordResetService(f.db, repository.NewPasswordResetRepository(f.db), repository.NewUserRepository(f.db), nil)
	assert.ErrorIs(t, disabled.RequestReset(context.Background(), f.user.Email), ErrResetDeliveryDisabled)
}

func TestChangePassword(t *testing.T) {
	f := setupPasswordResetTest(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.svc.ChangePassword(ctx, f.user.ID, "wrong", "newpassword"), ErrCurrentPasswordWrong)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, f.user.ID, "oldpassword", "oldpassword"), ErrPasswordUnchanged)
	assert.ErrorIs(t, f.svc.ChangePassword(ctx, f.user.ID, "oldpassword", "123"), util.ErrWeakPassword)

	require.NoError(t, f.svc.RequestReset(ctx, f.user.Email))
	pending := f.notifier.last(t).Token

	require.NoError(t, f.svc.ChangePassword(ctx, f.user.ID, "oldpassword", "newpassword"))
	assert.True(t, f.passwordMatches(t, "newpassword"))

	// a password change voids outstanding reset tokens
	assert.ErrorIs(t, f.svc.ResetPassword(ctx, pending, "thirdpassword"), ErrInvalidResetToken)
}
