package repository

import (
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

type PasswordResetRepository interface {
	Create(reset *model.PasswordReset) error
	FindUsable(tokenHash string, now time.Time) (*model.PasswordReset, error)
	MarkUsed(id uint, at time.Time) error
	InvalidateForUser(userID uint, at time.Time) error
	DeleteExpired(before time.Time) (int64, error)
}

type passwordResetRepository struct {
	db *gorm.DB
}

func NewPasswordResetRepository(db *gorm.DB) PasswordResetRepository {
	return &passwordResetRepository{db: db}
}

func (r *passwordResetRepository) Create(reset *model.PasswordReset) error {
	if err := r.db.Create(reset).Error; err != nil {
		logger.Error("Failed to create password reset in database", err, map[string]interface{}{
			"user_id": reset.UserID,
		})
		return err
	}
	return nil
}

// FindUsable returns the unused, unexpired reset for the token hash.
func (r *passwordResetRepository) FindUsable(tokenHash string, now time.Time) (*model.PasswordReset, error) {
	var reset model.PasswordReset
	err := r.db.Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		First(&reset).Error
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

// MarkUsed consumes the token. It fails with gorm.ErrRecordNotFound when a
// concurrent request used it first.
func (r *passwordResetRepository) MarkUsed(id uint, at time.Time) error {
	result := r.db.Model(&model.PasswordReset{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", at)
	if result.Error != nil {
		logger.Error("Failed to mark password reset as used", result.Error, map[string]interface{}{
			"id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// InvalidateForUser consumes every outstanding token of the user.
func (r *passwordResetRepository) InvalidateForUser(userID uint, at time.Time) error {
	return r.db.Model(&model.PasswordReset{}).
		Where("user_id = ? AND used_at IS NULL", userID).
		Update("used_at", at).Error
}

func (r *passwordResetRepository) DeleteExpired(before time.Time) (int64, error) {
	result := r.db.Where("expires_at < ? OR used_at IS NOT NULL", before).Delete(&model.PasswordReset{})
	if result.Error != nil {
		logger.Error("Failed to delete expired password resets", result.Error, nil)
		return 0, result.Error
	}
	logger.Debug("Expired password resets deleted", map[string]interface{}{
		"count": result.RowsAffected,
	})
	return result.RowsAffected, nil
}
