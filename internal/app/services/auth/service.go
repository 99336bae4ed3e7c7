package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"hostelhunt/internal/app/handlers/support"
	"hostelhunt/internal/app/outbox"
	"hostelhunt/internal/app/uow"
	domainauth "hostelhunt/internal/domain/auth"
	domainuser "hostelhunt/internal/domain/user"
)

const (
	MinPasswordLength = 6

	defaultAccessTTL       = 15 * time.Minute
	defaultRefreshTTL      = 30 * 24 * time.Hour
	defaultVerificationTTL = 24 * time.Hour
	defaultResetTTL        = time.Hour
)

var (
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrPasswordTooShort   = errors.New("auth: password must be at least 6 characters")
	ErrCurrentPassword    = errors.New("auth: current password is incorrect")
	ErrUnauthenticated    = errors.New("auth: authentication required")
	ErrNotConfigured      = errors.New("auth: service missing dependencies")
)

type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

type SessionIDGenerator interface {
	NewSessionID() (domainauth.SessionID, error)
}

// Service owns accounts, credentials and sessions. Access tokens are short-lived
// JWTs bound to a session; refresh tokens renew them while the session lives.
type Service struct {
	UoWFactory      uow.UoWFactory
	Encoder         outbox.EventEncoder
	Flusher         outbox.Flusher
	Sessions        domainauth.SessionStore
	Passwords       PasswordHasher
	Tokens          domainauth.TokenSigner
	SessionIDs      SessionIDGenerator
	AccessTTL       time.Duration
	RefreshTTL      time.Duration
	VerificationTTL time.Duration
	ResetTTL        time.Duration
	Logger          *slog.Logger
	Now             func() time.Time
}

type RegisterParams struct {
	Email       string
	Password    string
	Name        string
	PhoneNumber string
}

type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

type AuthResult struct {
	User   *domainuser.User
	Tokens TokenPair
}

// Principal is the authenticated caller resolved from an access token.
type Principal struct {
	UserID    domainuser.ID
	Role      domainuser.Role
	SessionID domainauth.SessionID
}

func (p Principal) Actor() support.Actor {
	return support.Actor{ID: p.UserID, Role: p.Role}
}

func (s *Service) Register(ctx context.Context, params RegisterParams) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	if err := validatePassword(params.Password); err != nil {
		return nil, err
	}
	hash, err := s.Passwords.Hash(params.Password)
	if err != nil {
		return nil, err
	}
	user, err := domainuser.NewUser(domainuser.CreateParams{
		ID:           domainuser.ID(uuid.NewString()),
		Email:        params.Email,
		Name:         params.Name,
		PasswordHash: hash,
		PhoneNumber:  params.PhoneNumber,
		CreatedAt:    s.now(),
	})
	if err != nil {
		return nil, err
	}
	err = s.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		_, err := unit.Users().ByEmail(ctx, user.Email)
		switch {
		case err == nil:
			return domainuser.ErrEmailAlreadyUsed
		case !errors.Is(err, domainuser.ErrNotFound):
			return err
		}
		if err := unit.Users().Save(ctx, user); err != nil {
			return err
		}
		return support.RecordEvents(ctx, unit, s.Encoder, user)
	})
	if err != nil {
		return nil, err
	}
	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user registered", "user_id", user.ID, "email", user.Email)
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	email = domainuser.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	var user *domainuser.User
	err := s.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		user, err = unit.Users().ByEmail(ctx, email)
		return err
	})
	if errors.Is(err, domainuser.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := s.Passwords.Compare(user.PasswordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := user.EnsureActive(); err != nil {
		return nil, err
	}
	tokens, err := s.openSession(ctx, user)
	if err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("user authenticated", "user_id", user.ID)
	}
	return &AuthResult{User: user, Tokens: tokens}, nil
}

// Refresh issues a new access token for the session behind refreshToken.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	if err := s.ensureDependencies(); err != nil {
		return TokenPair{}, err
	}
	claims, err := s.Tokens.Parse(strings.TrimSpace(refreshToken), domainauth.TokenRefresh)
	if err != nil {
		return TokenPair{}, err
	}
	principal, err := s.resolve(ctx, claims)
	if err != nil {
		return TokenPair{}, err
	}
	access, err := s.Tokens.Sign(domainauth.TokenClaims{
		Kind:      domainauth.TokenAccess,
		UserID:    principal.UserID,
		Role:      principal.Role,
		SessionID: principal.SessionID,
	}, s.accessTTL())
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refreshToken, ExpiresIn: s.accessTTL()}, nil
}

func (s *Service) Logout(ctx context.Context, sessionID domainauth.SessionID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	if sessionID == "" {
		return nil
	}
	if err := s.Sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("session terminated")
	}
	return nil
}

// Authenticate resolves a bearer access token into the current principal. The
// role is read from the account, not the token, so role changes apply at once.
func (s *Service) Authenticate(ctx context.Context, accessToken string) (Principal, error) {
	if err := s.ensureDependencies(); err != nil {
		return Principal{}, err
	}
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return Principal{}, ErrUnauthenticated
	}
	claims, err := s.Tokens.Parse(accessToken, domainauth.TokenAccess)
	if err != nil {
		return Principal{}, err
	}
	return s.resolve(ctx, claims)
}

func (s *Service) resolve(ctx context.Context, claims domainauth.TokenClaims) (Principal, error) {
	session, err := s.Sessions.Get(ctx, claims.SessionID)
	if err != nil {
		return Principal{}, err
	}
	if session.UserID != claims.UserID {
		return Principal{}, domainauth.ErrTokenInvalid
	}
	var user *domainuser.User
	err = s.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		user, err = unit.Users().ByID(ctx, claims.UserID)
		return err
	})
	if errors.Is(err, domainuser.ErrNotFound) {
		_ = s.Sessions.Delete(ctx, session.ID)
		return Principal{}, domainauth.ErrSessionNotFound
	}
	if err != nil {
		return Principal{}, err
	}
	if err := user.EnsureActive(); err != nil {
		_ = s.Sessions.DeleteByUser(ctx, user.ID)
		return Principal{}, err
	}
	return Principal{UserID: user.ID, Role: user.Role, SessionID: session.ID}, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID domainuser.ID, current, next string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	if err := validatePassword(next); err != nil {
		return err
	}
	return s.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		user, err := unit.Users().ByID(ctx, userID)
		if err != nil {
			return err
		}
		if err := s.Passwords.Compare(user.PasswordHash, current); err != nil {
			return ErrCurrentPassword
		}
		hash, err := s.Passwords.Hash(next)
		if err != nil {
			return err
		}
		if err := user.SetPasswordHash(hash, s.now()); err != nil {
			return err
		}
		return unit.Users().Save(ctx, user)
	})
}

// Deactivate soft-deletes the account and revokes every session.
func (s *Service) Deactivate(ctx context.Context, userID domainuser.ID) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	err := s.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		user, err := unit.Users().ByID(ctx, userID)
		if err != nil {
			return err
		}
		user.Deactivate(s.now())
		if err := unit.Users().Save(ctx, user); err != nil {
			return err
		}
		return support.RecordEvents(ctx, unit, s.Encoder, user)
	})
	if err != nil {
		return err
	}
	return s.Sessions.DeleteByUser(ctx, userID)
}

func (s *Service) VerifyEmail(ctx context.Context, token string) (*domainuser.User, error) {
	if err := s.ensureDependencies(); err != nil {
		return nil, err
	}
	claims, err := s.Tokens.Parse(strings.TrimSpace(token), domainauth.TokenEmailVerification)
	if err != nil {
		return nil, err
	}
	var user *domainuser.User
	err = s.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		if user, err = unit.Users().ByID(ctx, claims.UserID); err != nil {
			return err
		}
		user.VerifyEmail(s.now())
		return unit.Users().Save(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// RequestPasswordReset emits a reset request for a known, active address. Unknown
// addresses succeed silently.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	email = domainuser.NormalizeEmail(email)
	err := s.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		user, err := unit.Users().ByEmail(ctx, email)
		if errors.Is(err, domainuser.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !user.Active {
			return nil
		}
		user.RequestPasswordReset(s.now())
		return support.RecordEvents(ctx, unit, s.Encoder, user)
	})
	return err
}

// ResetPassword sets a new password from a reset token and revokes all sessions.
// A token works once: the new hash no longer matches its fingerprint.
func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if err := s.ensureDependencies(); err != nil {
		return err
	}
	if err := validatePassword(password); err != nil {
		return err
	}
	claims, err := s.Tokens.Parse(strings.TrimSpace(token), domainauth.TokenPasswordReset)
	if err != nil {
		return err
	}
	hash, err := s.Passwords.Hash(password)
	if err != nil {
		return err
	}
	err = s.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		user, err := unit.Users().ByID(ctx, claims.UserID)
		if err != nil {
			return err
		}
		current := domainauth.PasswordFingerprint(user.PasswordHash)
		if subtle.ConstantTimeCompare([]byte(claims.Fingerprint), []byte(current)) != 1 {
			return domainauth.ErrTokenInvalid
		}
		if err := user.SetPasswordHash(hash, s.now()); err != nil {
			return err
		}
		return unit.Users().Save(ctx, user)
	})
	if err != nil {
		return err
	}
	return s.Sessions.DeleteByUser(ctx, claims.UserID)
}

func (s *Service) EmailVerificationToken(userID domainuser.ID) (string, error) {
	return s.Tokens.Sign(domainauth.TokenClaims{Kind: domainauth.TokenEmailVerification, UserID: userID}, durationOr(s.VerificationTTL, defaultVerificationTTL))
}

func (s *Service) PasswordResetToken(user *domainuser.User) (string, error) {
	return s.Tokens.Sign(domainauth.TokenClaims{
		Kind:        domainauth.TokenPasswordReset,
		UserID:      user.ID,
		Fingerprint: domainauth.PasswordFingerprint(user.PasswordHash),
	}, durationOr(s.ResetTTL, defaultResetTTL))
}

func (s *Service) openSession(ctx context.Context, user *domainuser.User) (TokenPair, error) {
	id, err := s.SessionIDs.NewSessionID()
	if err != nil {
		return TokenPair{}, err
	}
	refreshTTL := durationOr(s.RefreshTTL, defaultRefreshTTL)
	session, err := domainauth.NewSession(domainauth.CreateSessionParams{
		ID:     id,
		UserID: user.ID,
		Role:   user.Role,
		TTL:    refreshTTL,
		Now:    s.now(),
	})
	if err != nil {
		return TokenPair{}, err
	}
	if err := s.Sessions.Save(ctx, session); err != nil {
		return TokenPair{}, err
	}
	claims := domainauth.TokenClaims{UserID: user.ID, Role: user.Role, SessionID: session.ID}
	claims.Kind = domainauth.TokenAccess
	access, err := s.Tokens.Sign(claims, s.accessTTL())
	if err != nil {
		return TokenPair{}, err
	}
	claims.Kind = domainauth.TokenRefresh
	refresh, err := s.Tokens.Sign(claims, refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AccessToken: access, RefreshToken: refresh, ExpiresIn: s.accessTTL()}, nil
}

// write runs fn in its own unit and wakes the outbox relay after commit.
func (s *Service) write(ctx context.Context, fn func(context.Context, uow.UnitOfWork) error) error {
	unit, ctx, err := support.BeginUnit(ctx, s.UoWFactory)
	if err != nil {
		return err
	}
	defer unit.Release(ctx)
	if err := fn(ctx, unit); err != nil {
		return err
	}
	if err := unit.Commit(ctx); err != nil {
		return err
	}
	if s.Flusher != nil {
		return s.Flusher.Flush(ctx)
	}
	return nil
}

func (s *Service) read(ctx context.Context, fn func(context.Context, uow.UnitOfWork) error) error {
	unit, ctx, cleanup, err := support.BeginReadOnlyUnit(ctx, s.UoWFactory)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}
	return fn(ctx, unit)
}

func (s *Service) accessTTL() time.Duration {
	return durationOr(s.AccessTTL, defaultAccessTTL)
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *Service) ensureDependencies() error {
	if s.UoWFactory == nil || s.Sessions == nil || s.Passwords == nil || s.Tokens == nil || s.SessionIDs == nil {
		return ErrNotConfigured
	}
	return nil
}

func validatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	return nil
}

func durationOr(value, fallback time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return fallback
}
