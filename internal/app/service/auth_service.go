package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/ikkim/storefront-backend/internal/app/model"
	"github.com/ikkim/storefront-backend/internal/app/repository"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

var (
	ErrEmailAlreadyExists    = errors.New("email already exists")
	ErrUsernameAlreadyExists = errors.New("username already exists")
	ErrInvalidCredentials    = errors.New("invalid username or password")
	ErrInvalidRefreshToken   = errors.New("invalid refresh token")
	ErrUserNotFound          = errors.New("user not found")
)

type SignupInput struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
}

type AuthService interface {
	Signup(input SignupInput) (*model.User, *util.TokenPair, error)
	Login(identifier, password string) (*model.User, *util.TokenPair, error)
	RefreshToken(refreshToken string) (*model.User, *util.TokenPair, error)
	Logout(ctx context.Context, accessToken string, claims *util.Claims) error
	GetUserByID(id uint) (*model.User, error)
}

type authService struct {
	userRepo      repository.UserRepository
	revoker       TokenRevoker
	jwtSecret     string
	accessExpiry  time.Duration
	refreshExpiry time.Duration
}

// NewAuthService builds the auth service. revoker may be nil, in which case
// logout only succeeds on the client side.
func NewAuthService(
	userRepo repository.UserRepository,
	revoker TokenRevoker,
	jwtSecret string,
	accessExpiry, refreshExpiry time.Duration,
) AuthService {
	return &authService{
		userRepo:      userRepo,
		revoker:       revoker,
		jwtSecret:     jwtSecret,
		accessExpiry:  accessExpiry,
		refreshExpiry: refreshExpiry,
	}
}

func (s *authService) Signup(input SignupInput) (*model.User, *util.TokenPair, error) {
	input.Username = strings.TrimSpace(input.Username)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))

	logger.Info("Attempting user signup", map[string]interface{}{
		"username": input.Username,
		"email":    input.Email,
	})

	if err := util.ValidatePassword(input.Password); err != nil {
		return nil, nil, err
	}

	exists, err := s.userRepo.ExistsByUsername(input.Username)
	if err != nil {
		logger.Error("Failed to check existing username", err, map[string]interface{}{
			"username": input.Username,
		})
		return nil, nil, err
	}
	if exists {
		logger.Warn("Signup failed: username already exists", map[string]interface{}{
			"username": input.Username,
		})
		return nil, nil, ErrUsernameAlreadyExists
	}

	exists, err = s.userRepo.ExistsByEmail(input.Email, 0)
	if err != nil {
		logger.Error("Failed to check existing email", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, err
	}
	if exists {
		logger.Warn("Signup failed: email already exists", map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, ErrEmailAlreadyExists
	}

	hashedPassword, err := util.HashPassword(input.Password)
	if err != nil {
		logger.Error("Failed to hash password", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, err
	}

	user := &model.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hashedPassword,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Role:         model.RoleUser,
	}
	if err := s.userRepo.Create(user); err != nil {
		logger.Error("Failed to create user in database", err, map[string]interface{}{
			"email": input.Email,
		})
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User signed up successfully", map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	})
	return user, tokens, nil
}

func (s *authService) Login(identifier, password string) (*model.User, *util.TokenPair, error) {
	identifier = strings.TrimSpace(identifier)
	logger.Info("Login attempt", map[string]interface{}{
		"identifier": identifier,
	})

	user, err := s.userRepo.FindByLogin(identifier)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Login failed: user not found", map[string]interface{}{
				"identifier": identifier,
			})
			return nil, nil, ErrInvalidCredentials
		}
		logger.Error("Failed to find user", err, map[string]interface{}{
			"identifier": identifier,
		})
		return nil, nil, err
	}

	if !util.VerifyPassword(user.PasswordHash, password) {
		logger.Warn("Login failed: invalid password", map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, nil, ErrInvalidCredentials
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}

	logger.Info("User logged in successfully", map[string]interface{}{
		"user_id": user.ID,
		"role":    user.Role,
	})
	return user, tokens, nil
}

// RefreshToken trades a refresh token for a new pair. The role is reloaded so
// promotions take effect on the next refresh.
func (s *authService) RefreshToken(refreshToken string) (*model.User, *util.TokenPair, error) {
	claims, err := util.ValidateToken(refreshToken, s.jwtSecret)
	if err != nil {
		logger.Warn("Refresh failed: invalid token", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, nil, ErrInvalidRefreshToken
	}
	if claims.TokenType != util.RefreshToken {
		logger.Warn("Refresh failed: not a refresh token", map[string]interface{}{
			"user_id":    claims.UserID,
			"token_type": claims.TokenType,
		})
		return nil, nil, ErrInvalidRefreshToken
	}

	user, err := s.userRepo.FindByID(claims.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrInvalidRefreshToken
		}
		return nil, nil, err
	}

	tokens, err := s.issueTokens(user)
	if err != nil {
		return nil, nil, err
	}
	return user, tokens, nil
}

func (s *authService) Logout(ctx context.Context, accessToken string, claims *util.Claims) error {
	if s.revoker == nil || accessToken == "" || claims == nil {
		return nil
	}

	if err := s.revoker.BlacklistToken(ctx, accessToken, claims.RemainingTTL()); err != nil {
		logger.Error("Failed to revoke access token", err, map[string]interface{}{
			"user_id": claims.UserID,
		})
		return err
	}

	logger.Info("User logged out", map[string]interface{}{
		"user_id": claims.UserID,
	})
	return nil
}

func (s *authService) GetUserByID(id uint) (*model.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("User not found", map[string]interface{}{
				"user_id": id,
			})
			return nil, ErrUserNotFound
		}
		logger.Error("Failed to fetch user", err, map[string]interface{}{
			"user_id": id,
		})
		return nil, err
	}
	return user, nil
}

func (s *authService) issueTokens(user *model.User) (*util.TokenPair, error) {
	tokens, err := util.GenerateTokenPair(
		user.ID,
		user.Email,
		string(user.Role),
		s.jwtSecret,
		s.accessExpiry,
		s.refreshExpiry,
	)
	if err != nil {
		logger.Error("Failed to generate tokens", err, map[string]interface{}{
			"user_id": user.ID,
		})
		return nil, err
	}
	return tokens, nil
}
