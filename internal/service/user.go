package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/auth"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/domain"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/event"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/notification/templates"
	"github.com/abuzarkhan1/Ecommerce-Hoc/internal/repository"
	apperrors "github.com/abuzarkhan1/Ecommerce-Hoc/pkg/errors"
	"github.com/abuzarkhan1/Ecommerce-Hoc/pkg/pagination"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

const invalidCredentials = "invalid email or password"

// UserConfig holds the token lifetimes and links used by UserService.
type UserConfig struct {
	RefreshTTL time.Duration
	ResetTTL   time.Duration
	// ResetURL is the page that accepts a reset token. The token is appended.
	ResetURL string
}

// UserService implements accounts, authentication and user administration.
type UserService struct {
	users      repository.UserRepository
	tokens     repository.RefreshTokenRepository
	jwtManager *auth.JWTManager
	producer   *event.Producer
	notifier   Notifier
	cfg        UserConfig
	logger     *slog.Logger
	bcryptCost int
	now        func() time.Time
}

// NewUserService creates a new user service.
func NewUserService(
	users repository.UserRepository,
	tokens repository.RefreshTokenRepository,
	jwtManager *auth.JWTManager,
	producer *event.Producer,
	notifier Notifier,
	cfg UserConfig,
	logger *slog.Logger,
) *UserService {
	return &UserService{
		users:      users,
		tokens:     tokens,
		jwtManager: jwtManager,
		producer:   producer,
		notifier:   notifier,
		cfg:        cfg,
		logger:     logger,
		bcryptCost: bcryptCost,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Mobile    string
	Password  string
}

// UpdateProfileInput holds profile changes. Nil fields are left unchanged.
type UpdateProfileInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Mobile    *string
}

// Session is the result of a successful login.
type Session struct {
	User         *domain.User
	AccessToken  string
	ExpiresIn    int
	RefreshToken string
	// RefreshExpiresAt is when the refresh token, and so its cookie, expires.
	RefreshExpiresAt time.Time
}

// Register creates a user account with the user role.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	if len(input.Password) < minPasswordLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &domain.User{
		ID:           uuid.New().String(),
		FirstName:    strings.TrimSpace(input.FirstName),
		LastName:     strings.TrimSpace(input.LastName),
		Email:        normalizeEmail(input.Email),
		Mobile:       strings.TrimSpace(input.Mobile),
		PasswordHash: string(hash),
		Role:         domain.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered", slog.String("user_id", user.ID))
	return user, nil
}

// Login checks credentials and opens a session.
func (s *UserService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.openSession(ctx, user)
}

// AdminLogin is Login restricted to admin accounts.
func (s *UserService) AdminLogin(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	if !user.IsAdmin() {
		return nil, apperrors.Unauthorized("not authorized")
	}
	return s.openSession(ctx, user)
}

func (s *UserService) authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil, apperrors.Unauthorized(invalidCredentials)
		}
		return nil, fmt.Errorf("get user by email: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Unauthorized(invalidCredentials)
	}
	if user.IsBlocked {
		return nil, apperrors.Unauthorized("account is blocked")
	}
	return user, nil
}

func (s *UserService) openSession(ctx context.Context, user *domain.User) (*Session, error) {
	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	refreshToken, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate refresh token: %w", err)
	}
	expiresAt := s.now().Add(s.cfg.RefreshTTL)
	if err := s.tokens.Create(ctx, user.ID, hash, expiresAt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in", slog.String("user_id", user.ID))
	return &Session{
		User:             user,
		AccessToken:      accessToken,
		ExpiresIn:        int(s.jwtManager.AccessExpiry().Seconds()),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: expiresAt,
	}, nil
}

// Refresh issues a new access token for a valid refresh token.
func (s *UserService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if refreshToken == "" {
		return "", apperrors.Unauthorized("no refresh token")
	}

	stored, err := s.tokens.GetByHash(ctx, auth.HashToken(refreshToken))
	if err != nil && !isNotFound(err) {
		return "", fmt.Errorf("get refresh token: %w", err)
	}

	switch stored.Status(s.now()) {
	case domain.TokenValid:
	case domain.TokenExpired:
		return "", apperrors.Unauthorized("refresh token has expired")
	default:
		return "", apperrors.Unauthorized("invalid refresh token")
	}

	user, err := s.users.GetByID(ctx, stored.UserID)
	if err != nil {
		if isNotFound(err) {
			return "", apperrors.Unauthorized("invalid refresh token")
		}
		return "", fmt.Errorf("get user for refresh: %w", err)
	}
	if user.IsBlocked {
		return "", apperrors.Unauthorized("account is blocked")
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email, user.Role)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}
	return accessToken, nil
}

// Logout revokes the refresh token. An empty or unknown token is not an error.
func (s *UserService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	if err := s.tokens.Revoke(ctx, auth.HashToken(refreshToken)); err != nil {
		return fmt.Errorf("revoke refresh token: %w", err)
	}
	return nil
}

func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	return user, nil
}

// UpdateProfile changes names, email and mobile.
func (s *UserService) UpdateProfile(ctx context.Context, userID string, input UpdateProfileInput) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for update: %w", err)
	}

	if input.FirstName != nil {
		user.FirstName = strings.TrimSpace(*input.FirstName)
	}
	if input.LastName != nil {
		user.LastName = strings.TrimSpace(*input.LastName)
	}
	if input.Email != nil {
		user.Email = normalizeEmail(*input.Email)
	}
	if input.Mobile != nil {
		user.Mobile = strings.TrimSpace(*input.Mobile)
	}
	return s.save(ctx, user)
}

// SaveAddress stores the user's shipping address.
func (s *UserService) SaveAddress(ctx context.Context, userID, address string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for address: %w", err)
	}
	user.Address = strings.TrimSpace(address)
	return s.save(ctx, user)
}

// UpdatePassword changes the password after checking the current one and
// signs the user out everywhere.
func (s *UserService) UpdatePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("get user for password change: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(currentPassword)); err != nil {
		return apperrors.Unauthorized("current password is incorrect")
	}

	return s.setPassword(ctx, user.ID, newPassword)
}

// ForgotPassword emails a reset link. Unknown emails succeed silently.
func (s *UserService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			s.logger.InfoContext(ctx, "password reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("get user by email: %w", err)
	}

	token, hash, err := auth.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.users.SetPasswordReset(ctx, user.ID, hash, s.now().Add(s.cfg.ResetTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	msg, err := templates.PasswordReset(user.Email, s.cfg.ResetURL, token, s.cfg.ResetTTL)
	if err != nil {
		return fmt.Errorf("render reset email: %w", err)
	}
	s.notifier.Dispatch(ctx, msg)

	s.logger.InfoContext(ctx, "password reset requested", slog.String("user_id", user.ID))
	return nil
}

// ResetPassword sets a new password using an emailed reset token.
func (s *UserService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	hash := auth.HashToken(token)
	user, err := s.users.GetByResetHash(ctx, hash)
	if err != nil {
		if isNotFound(err) {
			return apperrors.Unauthorized("reset token is invalid or has expired")
		}
		return fmt.Errorf("get user by reset token: %w", err)
	}
	if !user.ResetTokenValid(hash, s.now()) {
		return apperrors.Unauthorized("reset token is invalid or has expired")
	}

	return s.setPassword(ctx, user.ID, newPassword)
}

// setPassword stores a new hash, which also clears any reset token, and
// revokes every refresh token of the user.
func (s *UserService) setPassword(ctx context.Context, userID, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(ctx, userID, string(hash)); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if err := s.tokens.RevokeByUserID(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens: %w", err)
	}

	s.logger.InfoContext(ctx, "password changed", slog.String("user_id", userID))
	return nil
}

func (s *UserService) ListUsers(ctx context.Context, page pagination.Params) ([]domain.User, int, error) {
	users, total, err := s.users.List(ctx, page)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// DeleteUser removes an account. Users with orders cannot be deleted.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.logger.InfoContext(ctx, "user deleted", slog.String("user_id", id))
	return nil
}

// BlockUser prevents the user from logging in and revokes their sessions.
func (s *UserService) BlockUser(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.setBlocked(ctx, id, true)
	if err != nil {
		return nil, err
	}
	if err := s.tokens.RevokeByUserID(ctx, id); err != nil {
		return nil, fmt.Errorf("revoke refresh tokens: %w", err)
	}
	return user, nil
}

func (s *UserService) UnblockUser(ctx context.Context, id string) (*domain.User, error) {
	return s.setBlocked(ctx, id, false)
}

func (s *UserService) setBlocked(ctx context.Context, id string, blocked bool) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	user.IsBlocked = blocked
	user, err = s.save(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "user block state changed",
		slog.String("user_id", id),
		slog.Bool("blocked", blocked),
	)
	return user, nil
}

func (s *UserService) save(ctx context.Context, user *domain.User) (*domain.User, error) {
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

