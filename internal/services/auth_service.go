package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ArowuTest/recyclehub-backend/internal/models"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"github.com/ArowuTest/recyclehub-backend/internal/utils"
	"github.com/ArowuTest/recyclehub-backend/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration, login and profile changes
type AuthService struct {
	userRepo repositories.UserRepository
	tokens   *jwt.TokenService
	sessions *SessionRegistry
	timeout  time.Duration
}

// NewAuthService creates a new AuthService
func NewAuthService(userRepo repositories.UserRepository, tokens *jwt.TokenService, sessions *SessionRegistry, timeout time.Duration) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		sessions: sessions,
		timeout:  timeout,
	}
}

func (s *AuthService) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Register creates a customer account. Collectors are provisioned by the seed import.
func (s *AuthService) Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error) {
	email := models.NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, newError(KindValidation, "a valid email is required")
	}
	if len(req.Password) < 6 {
		return nil, newError(KindValidation, "password must be at least 6 characters")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Message: "failed to hash password", Err: err}
	}

	user := &models.User{
		Email:       email,
		Password:    string(hashedPassword),
		FirstName:   strings.TrimSpace(req.FirstName),
		LastName:    strings.TrimSpace(req.LastName),
		Address:     req.Address,
		PhoneNumber: strings.TrimSpace(req.PhoneNumber),
		DateOfBirth: req.DateOfBirth,
		Role:        models.RoleCustomer,
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, newError(KindValidation, "user already exists")
		}
		slog.Error("Register: Failed to create user", "error", err, "email", utils.MaskEmail(email))
		return nil, gatewayError("user", err)
	}

	slog.Info("Customer registered", "email", utils.MaskEmail(email))
	return user.Clone(), nil
}

// Login checks the credentials, issues an access token and opens the session
func (s *AuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	email := models.NormalizeEmail(req.Email)

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, newError(KindNotAuthenticated, "invalid credentials")
		}
		return nil, gatewayError("user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		slog.Warn("Login: password mismatch", "email", utils.MaskEmail(email))
		return nil, newError(KindNotAuthenticated, "invalid credentials")
	}

	token, err := s.tokens.Issue(user.Email, string(user.Role))
	if err != nil {
		return nil, &Error{Kind: KindPersistence, Message: "failed to issue token", Err: err}
	}

	session := s.sessions.Open(user)
	return &models.LoginResponse{Token: token, User: session.Current()}, nil
}

// Logout tears down the user's session. Tokens issued earlier stop working
// because the auth middleware requires a live session.
func (s *AuthService) Logout(email string) {
	if s.sessions.Close(email) {
		slog.Info("User logged out", "email", utils.MaskEmail(email))
	}
}

// Authenticate resolves an access token to the live session identity
func (s *AuthService) Authenticate(token string) (*models.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, &Error{Kind: KindNotAuthenticated, Message: err.Error(), Err: err}
	}
	session, ok := s.sessions.Get(claims.Subject)
	if !ok {
		return nil, newError(KindNotAuthenticated, "session has ended, please log in again")
	}
	user := session.Current()
	if user == nil {
		return nil, newError(KindNotAuthenticated, "session has ended, please log in again")
	}
	return user, nil
}

// CurrentUser reloads the actor from storage
func (s *AuthService) CurrentUser(ctx context.Context, email string) (*models.User, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, gatewayError("user", err)
	}
	return user.Clone(), nil
}

// UpdateProfile applies a profile patch and refreshes the session
func (s *AuthService) UpdateProfile(ctx context.Context, actor *models.User, patch models.ProfilePatch) (*models.User, error) {
	if actor == nil {
		return nil, ErrNotAuthenticated
	}
	if patch.Address != nil && strings.TrimSpace(patch.Address.City) == "" {
		return nil, newError(KindValidation, "address city cannot be empty")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.FindByEmail(ctx, actor.Email)
	if err != nil {
		return nil, gatewayError("user", err)
	}
	updated := patch.Apply(*user)
	if err := s.userRepo.Update(ctx, &updated); err != nil {
		return nil, gatewayError("user", err)
	}

	s.sessions.Refresh(&updated)
	return updated.Clone(), nil
}

// ChangePassword replaces the password after checking the current one
func (s *AuthService) ChangePassword(ctx context.Context, actor *models.User, current, next string) error {
	if actor == nil {
		return ErrNotAuthenticated
	}
	if len(next) < 6 {
		return newError(KindValidation, "password must be at least 6 characters")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.userRepo.FindByEmail(ctx, actor.Email)
	if err != nil {
		return gatewayError("user", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(current)); err != nil {
		return newError(KindNotAuthenticated, "current password is incorrect")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return &Error{Kind: KindPersistence, Message: "failed to hash password", Err: err}
	}
	user.Password = string(hash)
	if err := s.userRepo.Update(ctx, user); err != nil {
		return gatewayError("user", err)
	}
	return nil
}
