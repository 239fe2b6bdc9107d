package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/qwertttyyy/TaskManagement/internal/crypto"
	"github.com/qwertttyyy/TaskManagement/internal/model"
	"github.com/qwertttyyy/TaskManagement/internal/repository"
)

var (
	ErrFirstNameRequired  = errors.New("first_name is required")
	ErrFirstNameTooLong   = errors.New("first_name must be at most 150 characters")
	ErrEmailRequired      = errors.New("email is required")
	ErrEmailInvalid       = errors.New("invalid email address")
	ErrEmailTaken         = errors.New("email already exists")
	ErrPasswordRequired   = errors.New("password is required")
	ErrPasswordTooShort   = errors.New("password must be at least 8 characters")
	ErrPasswordNumeric    = errors.New("password cannot be entirely numeric")
	ErrPasswordLikeEmail  = errors.New("password is too similar to the email")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

const (
	firstNameMaxLength = 150
	passwordMinLength  = 8
)

// UserStore is the persistence contract the auth service depends on.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// AuthService handles registration and credential exchange.
type AuthService struct {
	users     UserStore
	jwtSecret string
	jwtExpiry time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: secret,
		jwtExpiry: expiry,
	}
}

// Register creates a new user account.
func (s *AuthService) Register(ctx context.Context, req model.RegisterRequest) (model.UserResponse, error) {
	if err := validateRegistration(req); err != nil {
		return model.UserResponse{}, err
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.UserResponse{}, err
	}

	user := &model.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		AuthHash:  hash,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.UserResponse{}, ErrEmailTaken
		}
		return model.UserResponse{}, err
	}

	return model.UserResponse{
		ID:        user.ID,
		FirstName: user.FirstName,
		Email:     user.Email,
	}, nil
}

// IssueToken authenticates a user and returns a bearer token.
func (s *AuthService) IssueToken(ctx context.Context, req model.TokenRequest) (model.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.TokenResponse{}, ErrInvalidCredentials
		}
		return model.TokenResponse{}, err
	}

	match, err := crypto.VerifyPassword(req.Password, user.AuthHash)
	if err != nil {
		return model.TokenResponse{}, err
	}
	if !match {
		return model.TokenResponse{}, ErrInvalidCredentials
	}

	token, err := crypto.GenerateToken(user.ID, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.TokenResponse{}, err
	}

	return model.TokenResponse{Token: token}, nil
}

func validateRegistration(req model.RegisterRequest) error {
	if req.FirstName == "" {
		return ErrFirstNameRequired
	}
	if utf8.RuneCountInString(req.FirstName) > firstNameMaxLength {
		return ErrFirstNameTooLong
	}
	if req.Email == "" {
		return ErrEmailRequired
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		return ErrEmailInvalid
	}
	return validatePassword(req.Password, req.Email)
}

// validatePassword applies the account password strength policy:
// minimum length in characters, not entirely numeric, not the email's
// local part.
func validatePassword(password, email string) error {
	if password == "" {
		return ErrPasswordRequired
	}
	if utf8.RuneCountInString(password) < passwordMinLength {
		return ErrPasswordTooShort
	}

	numeric := true
	for _, r := range password {
		if !unicode.IsDigit(r) {
			numeric = false
			break
		}
	}
	if numeric {
		return ErrPasswordNumeric
	}

	local, _, _ := strings.Cut(email, "@")
	if local != "" && strings.EqualFold(password, local) {
		return ErrPasswordLikeEmail
	}

	return nil
}
