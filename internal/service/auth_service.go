package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/carwash-dashboard/internal/model"
	"github.com/iliyamo/carwash-dashboard/internal/repository"
	"github.com/iliyamo/carwash-dashboard/internal/security"
	"github.com/iliyamo/carwash-dashboard/internal/session"
)

var (
	// ErrInvalidCredentials covers unknown emails, wrong passwords and
	// malformed input alike.
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrAccountNotActive     = errors.New("account not active")
	ErrServiceUnavailable   = errors.New("authentication service unavailable")
	ErrSessionUnavailable   = errors.New("session could not be established")
	ErrInvalidRememberToken = errors.New("remember token invalid or expired")
)

// UserStore is the user persistence used by AuthService.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash, role string) (int64, error)
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id int64) (model.User, error)
	UpdatePassword(ctx context.Context, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}

// RememberStore persists hashed remember-me tokens.
type RememberStore interface {
	StoreRemember(ctx context.Context, userID int64, tokenHash string, exp time.Time) error
	UserByRemember(ctx context.Context, tokenHash string, now time.Time) (model.User, error)
	ClearRemember(ctx context.Context, userID int64) error
}

// AuthOptions tune credential verification.
type AuthOptions struct {
	BcryptCost int
	// LegacyDeadline is the last instant plaintext rows are accepted and
	// migrated.  The zero value rejects them outright.
	LegacyDeadline time.Time
	RememberTTL    time.Duration
}

// AuthService verifies credentials and establishes sessions.
type AuthService struct {
	users  UserStore
	tokens RememberStore
	opts   AuthOptions
	log    zerolog.Logger
	now    func() time.Time
}

func NewAuthService(users UserStore, tokens RememberStore, opts AuthOptions, log zerolog.Logger) *AuthService {
	if opts.BcryptCost == 0 {
		opts.BcryptCost = 12
	}
	return &AuthService{users: users, tokens: tokens, opts: opts, log: log, now: time.Now}
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail reports whether email is a bare address such as a@b.c.
func ValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return false
	}
	at := strings.LastIndex(email, "@")
	return at > 0 && strings.Contains(email[at+1:], ".")
}

// Login verifies email and password and, on success, binds the user to
// sess under a freshly issued session id.
func (s *AuthService) Login(ctx context.Context, sess *session.Session, email, password string) (session.User, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" || !ValidEmail(email) {
		return session.User{}, ErrInvalidCredentials
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return session.User{}, ErrInvalidCredentials
	}
	if err != nil {
		s.log.Error().Err(err).Msg("user lookup failed")
		return session.User{}, ErrServiceUnavailable
	}

	ok, err := s.verify(ctx, u, password)
	if err != nil {
		return session.User{}, err
	}
	if !ok {
		return session.User{}, ErrInvalidCredentials
	}
	if u.Blocked() {
		return session.User{}, ErrAccountNotActive
	}

	su, err := s.establish(ctx, sess, u)
	if err != nil {
		return session.User{}, err
	}
	if err := s.users.TouchLastLogin(ctx, u.ID, s.now().UTC()); err != nil {
		s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("update last_login failed")
	}
	return su, nil
}

// verify checks password against the stored credential and upgrades the
// stored form when it is outdated.
func (s *AuthService) verify(ctx context.Context, u model.User, password string) (bool, error) {
	if security.Identify(u.Password) == security.AlgoUnknown {
		return s.verifyLegacy(ctx, u, password), nil
	}
	ok, err := security.VerifyPassword(u.Password, password)
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("stored password hash unreadable")
		return false, nil
	}
	if ok && security.NeedsRehash(u.Password, s.opts.BcryptCost) {
		s.rehash(ctx, u.ID, password)
	}
	return ok, nil
}

func (s *AuthService) verifyLegacy(ctx context.Context, u model.User, password string) bool {
	if s.opts.LegacyDeadline.IsZero() || s.now().After(s.opts.LegacyDeadline) {
		return false
	}
	if u.Password == "" || !security.EqualLegacy(u.Password, password) {
		return false
	}
	s.log.Warn().Int64("user_id", u.ID).Str("event", "legacy_password_migrated").
		Msg("plaintext password accepted and rehashed")
	s.rehash(ctx, u.ID, password)
	return true
}

// rehash is best effort: a failure leaves the old credential in place.
func (s *AuthService) rehash(ctx context.Context, userID int64, password string) {
	hash, err := security.HashPassword(password, s.opts.BcryptCost)
	if err == nil {
		err = s.users.UpdatePassword(ctx, userID, hash)
	}
	if err != nil {
		s.log.Warn().Err(err).Int64("user_id", userID).Msg("password rehash failed")
	}
}

// establish rotates the session id and stores the user projection and a
// new CSRF token.
func (s *AuthService) establish(ctx context.Context, sess *session.Session, u model.User) (session.User, error) {
	sess.Start()
	if err := sess.Regenerate(ctx); err != nil {
		s.log.Error().Err(err).Int64("user_id", u.ID).Msg("session regenerate failed")
		return session.User{}, ErrSessionUnavailable
	}
	su := session.User{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
	if su.Role == "" {
		su.Role = model.RoleCustomer
	}
	sess.SetUser(su)
	if _, err := IssueCSRFToken(sess, true); err != nil {
		return session.User{}, fmt.Errorf("issue csrf token: %w", err)
	}
	return su, nil
}

// IssueCSRFToken returns the session CSRF token, creating one when absent
// or when rotate is set.
func IssueCSRFToken(sess *session.Session, rotate bool) (string, error) {
	if tok := sess.String(session.KeyCSRFToken); tok != "" && !rotate {
		return tok, nil
	}
	tok, err := security.RandomHex(32)
	if err != nil {
		return "", err
	}
	sess.Start()
	sess.Set(session.KeyCSRFToken, tok)
	return tok, nil
}

// RegisterInput is the payload of a self-service signup.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

// Register validates in and creates a customer or carwash account.  Field
// problems are returned as a FieldErrors value.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (int64, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = NormalizeEmail(in.Email)
	role := strings.TrimSpace(in.Role)
	if role == "" {
		role = model.RoleCustomer
	}

	fields := FieldErrors{}
	if len(in.Name) < 2 {
		fields["name"] = "Name must be at least 2 characters"
	}
	if !ValidEmail(in.Email) {
		fields["email"] = "Invalid email address"
	}
	if len(in.Password) < 8 {
		fields["password"] = "Password must be at least 8 characters"
	}
	if role != model.RoleCustomer && role != model.RoleCarwash {
		fields["role"] = "Role must be customer or carwash"
	}
	if len(fields) > 0 {
		return 0, fields
	}

	hash, err := security.HashPassword(in.Password, s.opts.BcryptCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}
	return s.users.Create(ctx, in.Name, in.Email, hash, role)
}

// IssueRememberToken creates a remember-me token for userID and returns
// the raw cookie value.
func (s *AuthService) IssueRememberToken(ctx context.Context, userID int64) (security.RememberToken, error) {
	tok, err := security.NewRememberToken(s.opts.RememberTTL)
	if err != nil {
		return security.RememberToken{}, err
	}
	if err := s.tokens.StoreRemember(ctx, userID, security.HashToken(tok.Raw), tok.Exp); err != nil {
		return security.RememberToken{}, err
	}
	return tok, nil
}

// ResumeFromRememberToken logs the owner of raw back in.  Unknown, expired
// or blocked tokens yield ErrInvalidRememberToken.
func (s *AuthService) ResumeFromRememberToken(ctx context.Context, sess *session.Session, raw string) (session.User, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 64 {
		return session.User{}, ErrInvalidRememberToken
	}
	u, err := s.tokens.UserByRemember(ctx, security.HashToken(raw), s.now().UTC())
	if errors.Is(err, repository.ErrNotFound) {
		return session.User{}, ErrInvalidRememberToken
	}
	if err != nil {
		return session.User{}, err
	}
	if u.Blocked() {
		if err := s.tokens.ClearRemember(ctx, u.ID); err != nil {
			s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("clear remember token failed")
		}
		return session.User{}, ErrInvalidRememberToken
	}
	return s.establish(ctx, sess, u)
}

// Logout revokes the remember token of the session user and destroys the
// session.
func (s *AuthService) Logout(ctx context.Context, sess *session.Session) error {
	if u, ok := sess.User(); ok && u.ID != 0 {
		if err := s.tokens.ClearRemember(ctx, u.ID); err != nil {
			s.log.Warn().Err(err).Int64("user_id", u.ID).Msg("clear remember token failed")
		}
	}
	return sess.Destroy(ctx)
}
