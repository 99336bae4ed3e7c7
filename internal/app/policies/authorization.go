package policies

import (
	"context"
	"errors"

	domainuser "hostelhunt/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("authentication required")
	ErrForbidden       = errors.New("insufficient permissions")
)

// RoleRestricted is implemented by messages that only some roles may send.
type RoleRestricted interface {
	ActorRole() domainuser.Role
	AllowedRoles() []domainuser.Role
}

// RoleAuthorizer enforces RoleRestricted messages; other messages pass through.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(_ context.Context, message any) error {
	restricted, ok := message.(RoleRestricted)
	if !ok {
		return nil
	}
	role := restricted.ActorRole()
	if role == "" {
		return ErrUnauthenticated
	}
	for _, allowed := range restricted.AllowedRoles() {
		if allowed == role {
			return nil
		}
	}
	return ErrForbidden
}
