package service

import (
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"gorm.io/gorm"
)

var (
	ErrInvalidRole       = errors.New("invalid role")
	ErrUserAlreadyActive = errors.New("user is already active")
)

// UpdateProfileInput holds optional profile changes; nil fields are left alone.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Avatar    *string
	Email     *string
	BirthDate *time.Time
}

type UserService interface {
	GetByID(id uint) (*model.User, error)
	GetByUsername(username string) (*model.User, error)
	GetByEmail(email string) (*model.User, error)
	List(p repository.Pagination) (*repository.Page[model.User], error)
	UpdateProfile(userID uint, input UpdateProfileInput) (*model.User, error)
	Delete(userID uint) error
	ExistsByUsername(username string) (bool, error)
	ExistsByEmail(email string) (bool, error)
	SetRole(userID uint, role model.UserRole) (*model.User, error)
	Activate(userID uint) (*model.User, error)
	Stats() (repository.UserRoleCounts, error)
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func (s *userService) GetByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) GetByUsername(username string) (*model.User, error) {
	user, err := s.userRepo.FindByUsername(username)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) GetByEmail(email string) (*model.User, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	return user, nil
}

func (s *userService) List(p repository.Pagination) (*repository.Page[model.User], error) {
	return s.userRepo.List(p)
}

func (s *userService) UpdateProfile(userID uint, input UpdateProfileInput) (*model.User, error) {
	logger.Info("Updating user profile", map[string]interface{}{
		"user_id": userID,
	})

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found for profile update", map[string]interface{}{
				"user_id": userID,
			})
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != "" && email != user.Email {
			taken, err := s.userRepo.ExistsByEmail(email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, ErrEmailAlreadyExists
			}
			user.Email = email
		}
	}
	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Phone != nil {
		user.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Avatar != nil {
		user.Avatar = strings.TrimSpace(*input.Avatar)
	}
	if input.BirthDate != nil {
		user.BirthDate = input.BirthDate
	}

	if err := s.userRepo.Update(user); err != nil {
		logger.Error("Failed to update user profile", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Info("User profile updated successfully", map[string]interface{}{
		"user_id": user.ID,
	})
	return user, nil
}

func (s *userService) Delete(userID uint) error {
	if err := s.userRepo.Delete(userID); err != nil {
		return notFound(err, ErrUserNotFound)
	}
	logger.Info("User deactivated", map[string]interface{}{
		"user_id": userID,
	})
	return nil
}

func (s *userService) ExistsByUsername(username string) (bool, error) {
	return s.userRepo.ExistsByUsername(strings.TrimSpace(username))
}

func (s *userService) ExistsByEmail(email string) (bool, error) {
	return s.userRepo.ExistsByEmail(strings.TrimSpace(email), 0)
}

func (s *userService) SetRole(userID uint, role model.UserRole) (*model.User, error) {
	if !role.Valid() {
		return nil, ErrInvalidRole
	}
	if err := s.userRepo.UpdateRole(userID, role); err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}

	logger.Info("User role changed", map[string]interface{}{
		"user_id": userID,
		"role":    role,
	})
	return s.GetByID(userID)
}

// Activate brings back a deactivated account.
func (s *userService) Activate(userID uint) (*model.User, error) {
	user, err := s.userRepo.FindByIDUnscoped(userID)
	if err != nil {
		return nil, notFound(err, ErrUserNotFound)
	}
	if user.IsActive() {
		return nil, ErrUserAlreadyActive
	}
	if err := s.userRepo.Restore(userID); err != nil {
		return nil, err
	}

	logger.Info("User activated", map[string]interface{}{
		"user_id": userID,
	})
	return s.GetByID(userID)
}

func (s *userService) Stats() (repository.UserRoleCounts, error) {
	return s.userRepo.CountByRole()
}
