package auth

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"

	"hostelhunt/internal/domain/user"
)

var ErrTokenInvalid = errors.New("auth: token invalid or expired")

// TokenKind separates the purposes a signed token can serve; a token of one kind
// is never accepted as another.
type TokenKind string

const (
	TokenAccess            TokenKind = "access"
	TokenRefresh           TokenKind = "refresh"
	TokenEmailVerification TokenKind = "email_verification"
	TokenPasswordReset     TokenKind = "password_reset"
)

// TokenClaims is the payload of a signed token. Fingerprint is set on password
// reset tokens only and ties them to the hash they replace.
type TokenClaims struct {
	Kind        TokenKind
	UserID      user.ID
	Role        user.Role
	SessionID   SessionID
	Fingerprint string
	ExpiresAt   time.Time
}

// PasswordFingerprint is a short digest of a password hash. It changes with
// every password change, which retires outstanding reset tokens.
func PasswordFingerprint(passwordHash string) string {
	sum := sha256.Sum256([]byte(passwordHash))
	return hex.EncodeToString(sum[:12])
}

// TokenSigner issues and verifies signed tokens. Parse returns ErrTokenInvalid for
// bad signatures, expired tokens and kind mismatches.
type TokenSigner interface {
	Sign(claims TokenClaims, ttl time.Duration) (string, error)
	Parse(token string, kind TokenKind) (TokenClaims, error)
}
