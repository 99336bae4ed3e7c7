package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	domainauth "hostelhunt/internal/domain/auth"
)

// SessionIDGenerator draws opaque session ids from crypto/rand.
type SessionIDGenerator struct {
	Size int
}

func (g SessionIDGenerator) NewSessionID() (domainauth.SessionID, error) {
	size := g.Size
	if size <= 0 {
		size = 24
	}
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session id: entropy read failed: %w", err)
	}
	return domainauth.SessionID(base64.RawURLEncoding.EncodeToString(buf)), nil
}
