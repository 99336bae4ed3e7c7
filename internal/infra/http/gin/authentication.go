package ginserver

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"hostelhunt/internal/app/handlers/support"
	authsvc "hostelhunt/internal/app/services/auth"
	domainauth "hostelhunt/internal/domain/auth"
)

const principalContextKey = "hostelhunt.principal"

type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (authsvc.Principal, error)
}

// AuthMiddleware resolves a bearer token into the request principal. Requests
// without a valid token continue anonymously; handlers decide what needs auth.
type AuthMiddleware struct {
	Service Authenticator
	Logger  *slog.Logger
}

func (m AuthMiddleware) Handle(c *gin.Context) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" || m.Service == nil {
		c.Next()
		return
	}
	principal, err := m.Service.Authenticate(c.Request.Context(), token)
	if err != nil {
		if !errors.Is(err, domainauth.ErrSessionNotFound) && !errors.Is(err, domainauth.ErrTokenInvalid) && m.Logger != nil {
			m.Logger.Warn("token validation failed", "error", err)
		}
		c.Next()
		return
	}
	c.Set(principalContextKey, principal)
	c.Next()
}

func currentPrincipal(c *gin.Context) (authsvc.Principal, bool) {
	val, exists := c.Get(principalContextKey)
	if !exists {
		return authsvc.Principal{}, false
	}
	p, ok := val.(authsvc.Principal)
	return p, ok
}

func requirePrincipal(c *gin.Context) (authsvc.Principal, bool) {
	p, ok := currentPrincipal(c)
	if !ok {
		respondMessage(c, http.StatusUnauthorized, "authentication required")
		return authsvc.Principal{}, false
	}
	return p, true
}

// actorOf returns the caller or an anonymous actor; role checks happen on the bus.
func actorOf(c *gin.Context) support.Actor {
	p, ok := currentPrincipal(c)
	if !ok {
		return support.Actor{}
	}
	return p.Actor()
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
		return ""
	}
	return strings.TrimSpace(header[7:])
}
