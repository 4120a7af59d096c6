package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"storefront-service/internal/auth"
	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

var (
	ErrPasswordTooShort      = fmt.Errorf("password must be at least %d characters long", auth.MinPasswordLength)
	ErrEmailRegistered       = errors.New("email already registered")
	ErrGoogleAccountExists   = errors.New("account already exists with Google, please set a password instead")
	ErrVerificationResent    = errors.New("account already exists but email is not verified, verification email resent")
	ErrEmailNotVerified      = errors.New("email not verified")
	ErrPasswordNotSet        = errors.New("user registered via Google OAuth, set a password to log in with email and password")
	ErrIncorrectPassword     = errors.New("incorrect password")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrMissingAccountDetails = errors.New("email, password and username are required")
)

// AccountNotifier delivers account emails. Implementations must not block.
type AccountNotifier interface {
	SendVerificationEmail(email, token string)
	SendPasswordResetEmail(email, token string)
}

// AccountService implements signup, login, email verification, password reset and Google sign-in.
type AccountService struct {
	users    store.UserStorer
	tokens   *auth.TokenManager
	notifier AccountNotifier
	google   *auth.GoogleProvider
}

// NewAccountService wires the account flows. google may be nil when sign-in with Google is disabled.
func NewAccountService(users store.UserStorer, tokens *auth.TokenManager, notifier AccountNotifier, google *auth.GoogleProvider) *AccountService {
	return &AccountService{users: users, tokens: tokens, notifier: notifier, google: google}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Signup creates an unverified local account and emails a verification link.
func (s *AccountService) Signup(ctx context.Context, email, password, username string) (domain.PublicUser, error) {
	email = normalizeEmail(email)
	username = strings.TrimSpace(username)
	if email == "" || password == "" || username == "" {
		return domain.PublicUser{}, ErrMissingAccountDetails
	}
	if len(password) < auth.MinPasswordLength {
		return domain.PublicUser{}, ErrPasswordTooShort
	}

	existing, err := s.users.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		return domain.PublicUser{}, s.rejectExisting(ctx, existing)
	case !errors.Is(err, store.ErrUserNotFound):
		return domain.PublicUser{}, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.PublicUser{}, err
	}
	token, err := auth.NewOpaqueToken()
	if err != nil {
		return domain.PublicUser{}, err
	}

	user, err := s.users.CreateUser(ctx, &domain.User{
		Email:             email,
		Username:          username,
		PasswordHash:      &hash,
		Role:              domain.RoleUser,
		VerificationToken: &token,
	})
	if err != nil {
		return domain.PublicUser{}, err
	}
	s.notifier.SendVerificationEmail(user.Email, token)
	return user.Public(), nil
}

// rejectExisting explains why signup cannot reuse an email, resending the
// verification link when the account was never confirmed.
func (s *AccountService) rejectExisting(ctx context.Context, existing *domain.User) error {
	if existing.PasswordHash == nil {
		return ErrGoogleAccountExists
	}
	if !existing.IsVerified {
		if err := s.issueToken(ctx, existing, s.notifier.SendVerificationEmail); err != nil {
			return err
		}
		return ErrVerificationResent
	}
	return ErrEmailRegistered
}

func (s *AccountService) issueToken(ctx context.Context, u *domain.User, send func(email, token string)) error {
	token, err := auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	if err := s.users.SetVerificationToken(ctx, u.ID, token); err != nil {
		return err
	}
	send(u.Email, token)
	return nil
}

// VerifyEmail consumes a verification token.
func (s *AccountService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return ErrInvalidOrExpiredToken
	}
	user, err := s.users.GetUserByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			return ErrInvalidOrExpiredToken
		}
		return err
	}
	return s.users.MarkUserVerified(ctx, user.ID)
}

// SendVerifyEmail issues a fresh verification token for email.
func (s *AccountService) SendVerifyEmail(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	return s.issueToken(ctx, user, s.notifier.SendVerificationEmail)
}

// RequestPasswordSet emails a reset link. Google-only accounts use it to add a password.
func (s *AccountService) RequestPasswordSet(ctx context.Context, email string) error {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	return s.issueToken(ctx, user, s.notifier.SendPasswordResetEmail)
}

// ResetPassword sets a new password when token matches the one last issued to email.
func (s *AccountService) ResetPassword(ctx context.Context, email, token, newPassword string) error {
	if len(newPassword) < auth.MinPasswordLength {
		return ErrPasswordTooShort
	}
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if token == "" || user.VerificationToken == nil || *user.VerificationToken != token {
		return ErrInvalidOrExpiredToken
	}
	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}
	return s.users.SetPassword(ctx, user.ID, hash)
}

// Login checks credentials and returns a session token.
func (s *AccountService) Login(ctx context.Context, email, password string) (domain.PublicUser, string, error) {
	user, err := s.users.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return domain.PublicUser{}, "", err
	}
	if !user.IsVerified {
		return domain.PublicUser{}, "", ErrEmailNotVerified
	}
	if user.PasswordHash == nil {
		return domain.PublicUser{}, "", ErrPasswordNotSet
	}
	if !auth.CheckPassword(*user.PasswordHash, password) {
		return domain.PublicUser{}, "", ErrIncorrectPassword
	}
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return domain.PublicUser{}, "", err
	}
	return user.Public(), token, nil
}

func (s *AccountService) Me(ctx context.Context, userID int64) (domain.PublicUser, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return domain.PublicUser{}, err
	}
	return user.Public(), nil
}

// GoogleAuthURL returns the consent page URL carrying state.
func (s *AccountService) GoogleAuthURL(state string) (string, error) {
	if s.google == nil {
		return "", auth.ErrOAuthDisabled
	}
	return s.google.AuthCodeURL(state), nil
}

// GoogleCallback signs in with a Google authorization code. The account is found
// by Google id, then by email (and linked), or created. It always ends up verified.
func (s *AccountService) GoogleCallback(ctx context.Context, code string) (domain.PublicUser, string, error) {
	if s.google == nil {
		return domain.PublicUser{}, "", auth.ErrOAuthDisabled
	}
	profile, err := s.google.FetchProfile(ctx, code)
	if err != nil {
		return domain.PublicUser{}, "", err
	}
	user, err := s.resolveGoogleUser(ctx, profile)
	if err != nil {
		return domain.PublicUser{}, "", err
	}
	token, err := s.tokens.Issue(user.ID, user.Role)
	if err != nil {
		return domain.PublicUser{}, "", err
	}
	return user.Public(), token, nil
}

func (s *AccountService) resolveGoogleUser(ctx context.Context, profile *auth.GoogleProfile) (*domain.User, error) {
	user, err := s.users.GetUserByGoogleID(ctx, profile.ID)
	if errors.Is(err, store.ErrUserNotFound) {
		user, err = s.users.GetUserByEmail(ctx, normalizeEmail(profile.Email))
		if errors.Is(err, store.ErrUserNotFound) {
			googleID := profile.ID
			username := profile.Name
			if username == "" {
				username = normalizeEmail(profile.Email)
			}
			log.Printf("INFO: Creating account for Google user %s", profile.ID)
			return s.users.CreateUser(ctx, &domain.User{
				Email:      normalizeEmail(profile.Email),
				Username:   username,
				Role:       domain.RoleUser,
				IsVerified: true,
				GoogleID:   &googleID,
			})
		}
		if err != nil {
			return nil, err
		}
		if err := s.users.LinkGoogleAccount(ctx, user.ID, profile.ID); err != nil {
			return nil, err
		}
		user.GoogleID = &profile.ID
		user.IsVerified = true
		return user, nil
	}
	if err != nil {
		return nil, err
	}
	if !user.IsVerified {
		if err := s.users.MarkUserVerified(ctx, user.ID); err != nil {
			return nil, err
		}
		user.IsVerified = true
	}
	return user, nil
}
