package user

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC)

func newStudent(t *testing.T) *User {
	t.Helper()
	u, err := NewUser(CreateParams{ID: "u1", Email: " Jane@Example.COM ", PasswordHash: "hash", CreatedAt: now})
	require.NoError(t, err)
	return u
}

func TestNewUserDefaults(t *testing.T) {
	u := newStudent(t)
	assert.Equal(t, "jane@example.com", u.Email)
	assert.Equal(t, "jane", u.Name)
	assert.Equal(t, RoleStudent, u.Role)
	assert.True(t, u.Active)
	assert.False(t, u.EmailVerified)
	require.Len(t, u.PendingEvents(), 1)
	assert.Equal(t, "user.registered", u.PendingEvents()[0].EventName())
}

func TestNewUserValidation(t *testing.T) {
	_, err := NewUser(CreateParams{ID: "u", Email: "nope", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrInvalidEmail)
	_, err = NewUser(CreateParams{ID: "u", Email: "a@b.c"})
	assert.ErrorIs(t, err, ErrPasswordHashMissing)
	_, err = NewUser(CreateParams{Email: "a@b.c", PasswordHash: "h"})
	assert.ErrorIs(t, err, ErrIDRequired)
}

func TestRoleTransitions(t *testing.T) {
	u := newStudent(t)
	u.ClearEvents()
	require.NoError(t, u.BecomeLandlord(now))
	assert.Equal(t, RoleLandlord, u.Role)
	require.NoError(t, u.BecomeLandlord(now))
	assert.Len(t, u.PendingEvents(), 1)

	admin := newStudent(t)
	require.NoError(t, admin.ChangeRole(RoleAdmin, now))
	assert.ErrorIs(t, admin.BecomeLandlord(now), ErrRoleTransition)
	assert.ErrorIs(t, admin.ChangeRole("owner", now), ErrInvalidRole)
}

func TestDeactivateIsSoft(t *testing.T) {
	u := newStudent(t)
	u.ClearEvents()
	u.Deactivate(now)
	u.Deactivate(now)
	assert.ErrorIs(t, u.EnsureActive(), ErrInactive)
	assert.Len(t, u.PendingEvents(), 1)
	u.Activate(now)
	assert.NoError(t, u.EnsureActive())
}

func TestNewLandlordRequiresRole(t *testing.T) {
	u := newStudent(t)
	_, err := NewLandlord(LandlordParams{ID: "l1", Owner: u, BusinessName: "Campus Homes"})
	assert.ErrorIs(t, err, ErrLandlordRoleRequired)

	require.NoError(t, u.BecomeLandlord(now))
	_, err = NewLandlord(LandlordParams{ID: "l1", Owner: u, BusinessName: "x"})
	assert.ErrorIs(t, err, ErrBusinessNameRequired)

	l, err := NewLandlord(LandlordParams{ID: "l1", Owner: u, BusinessName: "Campus Homes", CreatedAt: now})
	require.NoError(t, err)
	assert.Equal(t, u.ID, l.UserID)
	assert.Equal(t, u.Email, l.NotificationEmail(u))

	contact := "Bookings@Campus.example"
	require.NoError(t, l.Update(LandlordUpdate{ContactEmail: &contact}, now))
	assert.Equal(t, "bookings@campus.example", l.NotificationEmail(u))
}
