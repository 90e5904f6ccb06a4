package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/events"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrInvalidResetToken     = errors.New("invalid or expired reset token")
	ErrCurrentPasswordWrong  = errors.New("current password is incorrect")
	ErrPasswordUnchanged     = errors.New("new password must differ from the current one")
	ErrResetDeliveryDisabled = errors.New("password reset delivery is not configured")
)

const (
	ResetTokenExpiry = time.Hour
	resetTokenBytes  = 32
)

// ResetNotifier delivers the reset token to the user, usually by mail.
type ResetNotifier interface {
	PublishPasswordReset(ctx context.Context, msg events.PasswordResetRequested) error
}

type PasswordResetService interface {
	RequestReset(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, newPassword string) error
	ChangePassword(ctx context.Context, userID uint, current, newPassword string) error
	PurgeExpired() (int, error)
}

type passwordResetService struct {
	db        *gorm.DB
	resetRepo repository.PasswordResetRepository
	userRepo  repository.UserRepository
	notifier  ResetNotifier
	now       func() time.Time
}

func NewPasswordResetService(
	db *gorm.DB,
	resetRepo repository.PasswordResetRepository,
	userRepo repository.UserRepository,
	notifier ResetNotifier,
) PasswordResetService {
	return &passwordResetService{
		db:        db,
		resetRepo: resetRepo,
		userRepo:  userRepo,
		notifier:  notifier,
		now:       time.Now,
	}
}

// RequestReset issues a token for the account with the email. Unknown
// emails succeed silently so the endpoint cannot be used to enumerate accounts.
func (s *passwordResetService) RequestReset(ctx context.Context, email string) error {
	if s.notifier == nil {
		return ErrResetDeliveryDisabled
	}
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.userRepo.FindByEmail(email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Warn("Password reset requested for unknown email", map[string]interface{}{
			"email": email,
		})
		return nil
	}
	if err != nil {
		return err
	}

	token, err := util.GenerateToken(resetTokenBytes)
	if err != nil {
		return err
	}
	now := s.now()
	reset := &model.PasswordReset{
		UserID:    user.ID,
		TokenHash: util.HashToken(token),
		ExpiresAt: now.Add(ResetTokenExpiry),
	}

	// a new request supersedes older tokens
	if err := s.resetRepo.InvalidateForUser(user.ID, now); err != nil {
		return err
	}
	if err := s.resetRepo.Create(reset); err != nil {
		return err
	}

	if err := s.notifier.PublishPasswordReset(ctx, events.PasswordResetRequested{
		UserID:    user.ID,
		Email:     user.Email,
		Username:  user.Username,
		Token:     token,
		ExpiresAt: reset.ExpiresAt,
	}); err != nil {
		// the caller gets the same answer whether or not the mail went out
		logger.Error("Failed to publish password reset", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil
	}

	logger.Info("Password reset requested", map[string]interface{}{
		"user_id":    user.ID,
		"expires_at": reset.ExpiresAt,
	})
	return nil
}

func (s *passwordResetService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if err := util.ValidatePassword(newPassword); err != nil {
		return err
	}

	now := s.now()
	reset, err := s.resetRepo.FindUsable(util.HashToken(strings.TrimSpace(token)), now)
	if err != nil {
		return notFound(err, ErrInvalidResetToken)
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := repository.NewPasswordResetRepository(tx).MarkUsed(reset.ID, now); err != nil {
			return notFound(err, ErrInvalidResetToken)
		}
		return s.setPasswordHash(tx, reset.UserID, hash)
	})
	if err != nil {
		return err
	}

	logger.Info("Password reset completed", map[string]interface{}{
		"user_id": reset.UserID,
	})
	return nil
}

func (s *passwordResetService) ChangePassword(ctx context.Context, userID uint, current, newPassword string) error {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return notFound(err, ErrUserNotFound)
	}
	if !util.VerifyPassword(user.PasswordHash, current) {
		return ErrCurrentPasswordWrong
	}
	if current == newPassword {
		return ErrPasswordUnchanged
	}
	if err := util.ValidatePassword(newPassword); err != nil {
		return err
	}

	hash, err := util.HashPassword(newPassword)
	if err != nil {
		return err
	}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.setPasswordHash(tx, userID, hash); err != nil {
			return err
		}
		return repository.NewPasswordResetRepository(tx).InvalidateForUser(userID, s.now())
	})
	if err != nil {
		return err
	}

	logger.Info("Password changed", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

func (s *passwordResetService) setPasswordHash(tx *gorm.DB, userID uint, hash string) error {
	result := tx.Model(&model.User{}).Where("id = ?", userID).Update("password_hash", hash)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// PurgeExpired deletes used and expired tokens.
func (s *passwordResetService) PurgeExpired() (int, error) {
	n, err := s.resetRepo.DeleteExpired(s.now())
	return int(n), err
}
