package repository

import (
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var userSortColumns = map[string]string{
	"id":         "users.id",
	"username":   "users.username",
	"email":      "users.email",
	"createdAt":  "users.created_at",
	"created_at": "users.created_at",
}

type UserRoleCounts struct {
	Total   int64 `json:"total"`
	Admins  int64 `json:"admins"`
	Regular int64 `json:"regular"`
}

type UserRepository interface {
	Create(user *model.User) error
	FindByID(id uint) (*model.User, error)
	FindByIDUnscoped(id uint) (*model.User, error)
	FindByUsername(username string) (*model.User, error)
	FindByEmail(email string) (*model.User, error)
	FindByLogin(identifier string) (*model.User, error)
	ExistsByUsername(username string) (bool, error)
	ExistsByEmail(email string, excludeID uint) (bool, error)
	List(p Pagination) (*Page[model.User], error)
	ListActiveIDs() ([]uint, error)
	CountByRole() (UserRoleCounts, error)
	Update(user *model.User) error
	UpdateRole(id uint, role model.UserRole) error
	Delete(id uint) error
	Restore(id uint) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *model.User) error {
	logger.Debug("Creating user in database", map[string]interface{}{
		"username": user.Username,
		"email":    user.Email,
	})

	if err := r.db.Create(user).Error; err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"username": user.Username,
			"email":    user.Email,
		})
		return err
	}

	logger.Debug("User created in database", map[string]interface{}{
		"user_id": user.ID,
	})
	return nil
}

func (r *userRepository) FindByID(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.First(&user, id).Error; err != nil {
		logger.Debug("User not found by ID", map[string]interface{}{
			"user_id": id,
			"error":   err.Error(),
		})
		return nil, err
	}
	return &user, nil
}

// FindByIDUnscoped also returns deactivated users.
func (r *userRepository) FindByIDUnscoped(id uint) (*model.User, error) {
	var user model.User
	if err := r.db.Unscoped().First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(email string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("LOWER(email) = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin accepts either a username or an email address.
func (r *userRepository) FindByLogin(identifier string) (*model.User, error) {
	logger.Debug("Finding user by login identifier", map[string]interface{}{
		"identifier": identifier,
	})

	var user model.User
	err := r.db.
		Where("username = ? OR LOWER(email) = ?", identifier, strings.ToLower(identifier)).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) ExistsByUsername(username string) (bool, error) {
	var count int64
	err := r.db.Unscoped().Model(&model.User{}).Where("username = ?", username).Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks every account, deactivated ones included, except excludeID.
func (r *userRepository) ExistsByEmail(email string, excludeID uint) (bool, error) {
	var count int64
	query := r.db.Unscoped().Model(&model.User{}).Where("LOWER(email) = ?", strings.ToLower(email))
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *userRepository) List(p Pagination) (*Page[model.User], error) {
	var users []model.User
	total, err := paginate(r.db.Model(&model.User{}), p, orderClause(p, userSortColumns, "users.created_at"), &users)
	if err != nil {
		logger.Error("Failed to list users", err)
		return nil, err
	}
	return NewPage(users, p, total), nil
}

func (r *userRepository) ListActiveIDs() ([]uint, error) {
	var ids []uint
	err := r.db.Model(&model.User{}).Order("id").Pluck("id", &ids).Error
	return ids, err
}

func (r *userRepository) CountByRole() (UserRoleCounts, error) {
	var counts UserRoleCounts
	if err := r.db.Model(&model.User{}).Count(&counts.Total).Error; err != nil {
		return counts, err
	}
	if err := r.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&counts.Admins).Error; err != nil {
		return counts, err
	}
	counts.Regular = counts.Total - counts.Admins
	return counts, nil
}

func (r *userRepository) Update(user *model.User) error {
	logger.Debug("Updating user in database", map[string]interface{}{
		"user_id": user.ID,
	})

	if err := r.db.Save(user).Error; err != nil {
		logger.Error("Failed to update user in database", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return err
	}
	return nil
}

func (r *userRepository) UpdateRole(id uint, role model.UserRole) error {
	result := r.db.Model(&model.User{}).Where("id = ?", id).Update("role", role)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete soft deletes (deactivates) the user.
func (r *userRepository) Delete(id uint) error {
	logger.Debug("Deleting user from database", map[string]interface{}{
		"user_id": id,
	})

	result := r.db.Delete(&model.User{}, id)
	if result.Error != nil {
		logger.Error("Failed to delete user from database", result.Error, map[string]interface{}{
			"user_id": id,
		})
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) Restore(id uint) error {
	result := r.db.Unscoped().Model(&model.User{}).Where("id = ?", id).Update("deleted_at", nil)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
