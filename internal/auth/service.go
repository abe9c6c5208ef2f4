package auth

import (
	"context"

	"datapulse/domain/core"
	"datapulse/internal/errors"
	"datapulse/models"
	"datapulse/ports"
)

// Service implements registration, login and token-based identity.
type Service struct {
	users  ports.UserRepository
	issuer *TokenIssuer
}

// NewService creates an auth service.
func NewService(users ports.UserRepository, issuer *TokenIssuer) *Service {
	return &Service{users: users, issuer: issuer}
}

// Register creates a user account and returns a fresh access token.
func (s *Service) Register(ctx context.Context, req models.UserCreate) (*models.TokenResponse, error) {
	existing, err := s.users.GetByEmail(ctx, req.Email)
	if err == nil && existing != nil {
		return nil, errors.ValidationError("user already exists with this email")
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := models.NewUser(req.Username, req.Email, hash)
	if err := s.users.Create(ctx, user); err != nil {
		return nil, errors.Wrap(err, "failed to create user")
	}

	return s.tokenResponse(user)
}

// Login verifies credentials and returns an access token.
func (s *Service) Login(ctx context.Context, req models.UserLogin) (*models.TokenResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil || user == nil {
		return nil, errors.Unauthorized("invalid email or password")
	}
	if !VerifyPassword(req.Password, user.PasswordHash) {
		return nil, errors.Unauthorized("invalid email or password")
	}
	return s.tokenResponse(user)
}

// CurrentUser resolves the authenticated user by ID.
func (s *Service) CurrentUser(ctx context.Context, userID core.UserID) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil || user == nil {
		return nil, errors.Unauthorized("user not found")
	}
	return user, nil
}

// VerifyToken validates an access token and returns the user ID it carries.
func (s *Service) VerifyToken(tokenString string) (core.UserID, error) {
	claims, err := s.issuer.Verify(tokenString)
	if err != nil {
		return "", err
	}
	return core.UserID(claims.UserID), nil
}

func (s *Service) tokenResponse(user *models.User) (*models.TokenResponse, error) {
	token, err := s.issuer.Issue(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	return &models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        user,
	}, nil
}
