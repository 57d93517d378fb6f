package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"adaptive-quiz-service/internal/auth"
	"adaptive-quiz-service/internal/domain"
)

// UserStore persists accounts and spent reset tokens.
type UserStore interface {
	// CreateUser fails with domain.ErrUserExists on a duplicate username or email.
	CreateUser(ctx context.Context, user domain.User) (domain.User, error)
	UserByEmail(ctx context.Context, email string) (domain.User, error)
	UserByID(ctx context.Context, id int64) (domain.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	// ConsumeResetToken marks tokenID used, failing with domain.ErrTokenUsed if it already was.
	ConsumeResetToken(ctx context.Context, tokenID string) error
	// ListUsers returns every account ordered by id.
	ListUsers(ctx context.Context) ([]domain.User, error)
	// DeleteUser removes the account together with its datasets, queue and ledger.
	DeleteUser(ctx context.Context, id int64) error
}

// Mailer delivers password reset links.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// AccountOptions tunes token lifetimes and the reset cooldown.
type AccountOptions struct {
	TokenTTL      time.Duration
	ResetTTL      time.Duration
	ResetCooldown time.Duration
	// AdminEmail is the one account allowed to list and delete users.
	// Empty disables account management.
	AdminEmail string
}

// AccountService registers users and issues their credentials.
type AccountService struct {
	users    UserStore
	tokens   *auth.Tokens
	mailer   Mailer
	cooldown *auth.Cooldown
	opts     AccountOptions
	now      func() time.Time
}

func NewAccountService(users UserStore, tokens *auth.Tokens, mailer Mailer, opts AccountOptions) *AccountService {
	if opts.TokenTTL <= 0 {
		opts.TokenTTL = time.Hour
	}
	if opts.ResetTTL <= 0 {
		opts.ResetTTL = 15 * time.Minute
	}
	if opts.ResetCooldown <= 0 {
		opts.ResetCooldown = time.Minute
	}
	opts.AdminEmail = normalizeEmail(opts.AdminEmail)
	return &AccountService{
		users:    users,
		tokens:   tokens,
		mailer:   mailer,
		cooldown: auth.NewCooldown(opts.ResetCooldown),
		opts:     opts,
		now:      time.Now,
	}
}

// Register creates an account.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (domain.User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || email == "" || password == "" {
		return domain.User{}, fmt.Errorf("%w: username, email and password are required", domain.ErrInvalidInput)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	return s.users.CreateUser(ctx, domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	})
}

// Login exchanges credentials for an access token.
func (s *AccountService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.users.UserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return "", domain.ErrBadCredentials
		}
		return "", err
	}
	if !auth.CheckPassword(user.PasswordHash, password) {
		return "", domain.ErrBadCredentials
	}
	return s.tokens.IssueAccess(user.ID, s.opts.TokenTTL)
}

// Authenticate resolves a bearer token to an existing user.
func (s *AccountService) Authenticate(ctx context.Context, token string) (domain.User, error) {
	userID, err := s.tokens.ParseAccess(token)
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.users.UserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return domain.User{}, fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
		}
		return domain.User{}, err
	}
	return user, nil
}

// Me returns the account of userID.
func (s *AccountService) Me(ctx context.Context, userID int64) (domain.User, error) {
	return s.users.UserByID(ctx, userID)
}

// RequestPasswordReset mails a reset token. Each email may ask once per cooldown.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.users.UserByEmail(ctx, email)
	if err != nil {
		return err
	}
	if !s.cooldown.Allow(email) {
		return domain.ErrResetTooSoon
	}

	token, _, err := s.tokens.IssueReset(user.ID, s.opts.ResetTTL)
	if err != nil {
		return err
	}
	if err := s.mailer.SendPasswordReset(ctx, user.Email, token); err != nil {
		return fmt.Errorf("send reset email: %w", err)
	}
	log.Printf("password reset requested for user %d", user.ID)
	return nil
}

// ResetPassword sets a new password using a reset token. Tokens work once.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return fmt.Errorf("%w: password is required", domain.ErrInvalidInput)
	}
	userID, tokenID, err := s.tokens.ParseReset(token)
	if err != nil {
		return fmt.Errorf("%w: invalid or expired token", domain.ErrInvalidInput)
	}
	if _, err := s.users.UserByID(ctx, userID); err != nil {
		return err
	}
	if err := s.users.ConsumeResetToken(ctx, tokenID); err != nil {
		return err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// ListUsers returns every account. Only the admin may call it.
func (s *AccountService) ListUsers(ctx context.Context, callerID int64) ([]domain.User, error) {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return nil, err
	}
	return s.users.ListUsers(ctx)
}

// DeleteUser removes an account and everything it owns. Only the admin may call it.
func (s *AccountService) DeleteUser(ctx context.Context, callerID, userID int64) error {
	if err := s.requireAdmin(ctx, callerID); err != nil {
		return err
	}
	if err := s.users.DeleteUser(ctx, userID); err != nil {
		return err
	}
	log.Printf("user %d deleted by admin %d", userID, callerID)
	return nil
}

func (s *AccountService) requireAdmin(ctx context.Context, callerID int64) error {
	if s.opts.AdminEmail == "" {
		return domain.ErrAdminOnly
	}
	caller, err := s.users.UserByID(ctx, callerID)
	if err != nil {
		if isNotFound(err) {
			return fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
		}
		return err
	}
	if caller.Email != s.opts.AdminEmail {
		return domain.ErrAdminOnly
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
