// Package account implements user registration/login and company
// administration. It sits in front of the identity resolver: registration
// and password login are the explicit counterpart to identity-provider
// auto-provisioning.
package account

import (
	"context"
	"errors"
	"fmt"

	"github.com/quizhive/quizhive/internal/quizhive/db"
	e "github.com/quizhive/quizhive/internal/quizhive/errors"
	"github.com/quizhive/quizhive/internal/quizhive/identity"
	"github.com/quizhive/quizhive/internal/quizhive/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserRepository defines the storage interface for user accounts.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateUser(ctx context.Context, id uint, update *db.UserUpdate) error
	UpdateUserPassword(ctx context.Context, id uint, passwordHash string) error
	DeleteUser(ctx context.Context, id uint) error
	ListUsers(ctx context.Context, page models.Page) ([]models.User, int64, error)
}

type UserService struct {
	repo   UserRepository
	signer *identity.Signer
	logger *zap.Logger
}

func NewUserService(repo UserRepository, signer *identity.Signer, logger *zap.Logger) *UserService {
	return &UserService{
		repo:   repo,
		signer: signer,
		logger: logger.Named("users"),
	}
}

// RegisterInput is the explicit-registration payload.
type RegisterInput struct {
	Email       string
	Username    string
	Password    string
	FirstName   string
	LastName    string
	PhoneNumber string
	Age         int
	City        string
}

// Register creates an account with a hashed password. A taken email is a
// Conflict.
func (s *UserService) Register(ctx context.Context, input *RegisterInput) (*models.User, error) {
	if input.Email == "" {
		return nil, fmt.Errorf("%w: email is required", e.ErrInvalidInput)
	}
	if len(input.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", e.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:        input.Email,
		Username:     input.Username,
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		PhoneNumber:  input.PhoneNumber,
		Age:          input.Age,
		City:         input.City,
		PasswordHash: string(hash),
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, e.ErrConflict) {
			return nil, fmt.Errorf("%w: user with this email already exists", e.ErrConflict)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user registered", zap.Uint("user_id", user.ID))
	return user, nil
}

// Login verifies the password and mints a self-issued session token.
func (s *UserService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		return "", fmt.Errorf("%w: wrong email or password", e.ErrInvalidCredential)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", fmt.Errorf("%w: wrong email or password", e.ErrInvalidCredential)
	}
	return s.signer.Issue(user.Email)
}

// GetUser fetches one account.
func (s *UserService) GetUser(ctx context.Context, id uint) (*models.User, error) {
	return s.repo.GetUser(ctx, id)
}

// ListUsers pages through all accounts.
func (s *UserService) ListUsers(ctx context.Context, page models.Page) ([]models.User, models.PageInfo, error) {
	users, total, err := s.repo.ListUsers(ctx, page)
	if err != nil {
		return nil, models.PageInfo{}, err
	}
	return users, models.NewPageInfo(total, page.Limit), nil
}

// UpdateProfile lets a user change their own profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, callerID uint, update *db.UserUpdate) (*models.User, error) {
	if err := s.repo.UpdateUser(ctx, callerID, update); err != nil {
		return nil, err
	}
	return s.repo.GetUser(ctx, callerID)
}

// ChangePassword verifies the old password before storing the new hash.
func (s *UserService) ChangePassword(ctx context.Context, callerID uint, oldPassword, newPassword string) error {
	user, err := s.repo.GetUser(ctx, callerID)
	if err != nil {
		return err
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)) != nil {
		return fmt.Errorf("%w: wrong password", e.ErrInvalidCredential)
	}
	if len(newPassword) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", e.ErrInvalidInput)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.repo.UpdateUserPassword(ctx, callerID, string(hash))
}

// DeleteUser removes a user account. Only the user may delete themselves.
func (s *UserService) DeleteUser(ctx context.Context, callerID, userID uint) error {
	if callerID != userID {
		return fmt.Errorf("%w: cannot delete another user", e.ErrForbidden)
	}
	return s.repo.DeleteUser(ctx, userID)
}
