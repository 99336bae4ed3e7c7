package policies

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	domainuser "hostelhunt/internal/domain/user"
)

type adminOnly struct {
	role domainuser.Role
}

func (m adminOnly) ActorRole() domainuser.Role { return m.role }

func (m adminOnly) AllowedRoles() []domainuser.Role {
	return []domainuser.Role{domainuser.RoleAdmin}
}

func TestRoleAuthorizer(t *testing.T) {
	var a RoleAuthorizer
	ctx := context.Background()
	assert.NoError(t, a.Authorize(ctx, struct{}{}))
	assert.NoError(t, a.Authorize(ctx, adminOnly{role: domainuser.RoleAdmin}))
	assert.ErrorIs(t, a.Authorize(ctx, adminOnly{role: domainuser.RoleStudent}), ErrForbidden)
	assert.ErrorIs(t, a.Authorize(ctx, adminOnly{}), ErrUnauthenticated)
}
