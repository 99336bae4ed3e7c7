package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	domainauth "hostelhunt/internal/domain/auth"
	domainuser "hostelhunt/internal/domain/user"
)

var ErrSecretRequired = errors.New("security: jwt secret required")

type jwtClaims struct {
	Kind      string `json:"kind"`
	Role      string `json:"role,omitempty"`
	SessionID string `json:"sid,omitempty"`
	PwdPrint  string `json:"pfp,omitempty"`
	jwt.RegisteredClaims
}

// JWT signs HS256 tokens carrying the user id as subject.
type JWT struct {
	Secret []byte
	Issuer string
	Now    func() time.Time
}

func NewJWT(secret, issuer string) (JWT, error) {
	if secret == "" {
		return JWT{}, ErrSecretRequired
	}
	return JWT{Secret: []byte(secret), Issuer: issuer}, nil
}

func (j JWT) Sign(claims domainauth.TokenClaims, ttl time.Duration) (string, error) {
	if len(j.Secret) == 0 {
		return "", ErrSecretRequired
	}
	now := j.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwtClaims{
		Kind:      string(claims.Kind),
		Role:      string(claims.Role),
		SessionID: string(claims.SessionID),
		PwdPrint:  claims.Fingerprint,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   string(claims.UserID),
			Issuer:    j.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(j.Secret)
}

func (j JWT) Parse(raw string, kind domainauth.TokenKind) (domainauth.TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	var claims jwtClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return domainauth.TokenClaims{}, fmt.Errorf("%w: %v", domainauth.ErrTokenInvalid, err)
	}
	if !token.Valid || claims.Kind != string(kind) || claims.Subject == "" {
		return domainauth.TokenClaims{}, domainauth.ErrTokenInvalid
	}
	return domainauth.TokenClaims{
		Kind:        kind,
		UserID:      domainuser.ID(claims.Subject),
		Role:        domainuser.Role(claims.Role),
		SessionID:   domainauth.SessionID(claims.SessionID),
		Fingerprint: claims.PwdPrint,
		ExpiresAt:   claims.ExpiresAt.Time,
	}, nil
}

func (j JWT) now() time.Time {
	if j.Now != nil {
		return j.Now().UTC()
	}
	return time.Now().UTC()
}

var _ domainauth.TokenSigner = JWT{}
