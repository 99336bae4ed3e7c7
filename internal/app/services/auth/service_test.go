package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostelhunt/internal/app/services/auth"
	domainauth "hostelhunt/internal/domain/auth"
	domainuser "hostelhunt/internal/domain/user"
	"hostelhunt/internal/infra/security"
	"hostelhunt/internal/infra/storage/memory"
	"hostelhunt/internal/infra/storage/memory/memtest"
)

type countingFlusher struct{ calls int }

func (f *countingFlusher) Flush(context.Context) error {
	f.calls++
	return nil
}

func newService(t *testing.T) (*auth.Service, *memtest.Fixture, *countingFlusher) {
	t.Helper()
	fx := memtest.New(t)
	signer, err := security.NewJWT("test-secret", "hostelhunt")
	require.NoError(t, err)
	flusher := &countingFlusher{}
	svc := &auth.Service{
		UoWFactory: fx.Factory,
		Flusher:    flusher,
		Sessions:   memory.NewSessionStore(),
		Passwords:  security.BcryptHasher{Cost: 4},
		Tokens:     signer,
		SessionIDs: security.SessionIDGenerator{},
	}
	return svc, fx, flusher
}

func register(t *testing.T, svc *auth.Service, email string) *auth.AuthResult {
	t.Helper()
	result, err := svc.Register(context.Background(), auth.RegisterParams{
		Email:    email,
		Password: "secret123",
		Name:     "Amina",
	})
	require.NoError(t, err)
	return result
}

func TestRegisterIssuesSessionAndRecordsEvent(t *testing.T) {
	svc, fx, flusher := newService(t)

	result := register(t, svc, "Amina@Example.com")

	assert.Equal(t, "amina@example.com", result.User.Email)
	assert.Equal(t, domainuser.RoleStudent, result.User.Role)
	assert.NotEmpty(t, result.Tokens.AccessToken)
	assert.NotEmpty(t, result.Tokens.RefreshToken)
	assert.Equal(t, 1, fx.Outbox.Pending())
	assert.Equal(t, 1, flusher.calls)

	principal, err := svc.Authenticate(context.Background(), result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, principal.UserID)
}

func TestRegisterRejectsDuplicateEmailAndShortPassword(t *testing.T) {
	svc, _, _ := newService(t)
	register(t, svc, "amina@example.com")

	_, err := svc.Register(context.Background(), auth.RegisterParams{Email: "AMINA@example.com", Password: "secret123"})
	assert.ErrorIs(t, err, domainuser.ErrEmailAlreadyUsed)

	_, err = svc.Register(context.Background(), auth.RegisterParams{Email: "other@example.com", Password: "12345"})
	assert.ErrorIs(t, err, auth.ErrPasswordTooShort)
}

func TestLogin(t *testing.T) {
	svc, _, _ := newService(t)
	register(t, svc, "amina@example.com")
	ctx := context.Background()

	_, err := svc.Login(ctx, "amina@example.com", "wrong-pass")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "secret123")
	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)

	result, err := svc.Login(ctx, " AMINA@example.com ", "secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Tokens.AccessToken)
}

func TestDeactivatedAccountCannotLogInOrAuthenticate(t *testing.T) {
	svc, _, _ := newService(t)
	result := register(t, svc, "amina@example.com")
	ctx := context.Background()

	require.NoError(t, svc.Deactivate(ctx, result.User.ID))

	_, err := svc.Login(ctx, "amina@example.com", "secret123")
	assert.ErrorIs(t, err, domainuser.ErrInactive)
	_, err = svc.Authenticate(ctx, result.Tokens.AccessToken)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestRefreshAndLogout(t *testing.T) {
	svc, _, _ := newService(t)
	result := register(t, svc, "amina@example.com")
	ctx := context.Background()

	_, err := svc.Refresh(ctx, result.Tokens.AccessToken)
	assert.ErrorIs(t, err, domainauth.ErrTokenInvalid)

	pair, err := svc.Refresh(ctx, result.Tokens.RefreshToken)
	require.NoError(t, err)
	principal, err := svc.Authenticate(ctx, pair.AccessToken)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, principal.SessionID))
	_, err = svc.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
}

func TestChangePassword(t *testing.T) {
	svc, _, _ := newService(t)
	result := register(t, svc, "amina@example.com")
	ctx := context.Background()

	err := svc.ChangePassword(ctx, result.User.ID, "not-it", "newsecret")
	assert.ErrorIs(t, err, auth.ErrCurrentPassword)

	require.NoError(t, svc.ChangePassword(ctx, result.User.ID, "secret123", "newsecret"))
	_, err = svc.Login(ctx, "amina@example.com", "newsecret")
	assert.NoError(t, err)
}

func TestVerifyEmail(t *testing.T) {
	svc, fx, _ := newService(t)
	result := register(t, svc, "amina@example.com")

	token, err := svc.EmailVerificationToken(result.User.ID)
	require.NoError(t, err)
	_, err = svc.VerifyEmail(context.Background(), result.Tokens.AccessToken)
	assert.ErrorIs(t, err, domainauth.ErrTokenInvalid)

	user, err := svc.VerifyEmail(context.Background(), token)
	require.NoError(t, err)
	assert.True(t, user.EmailVerified)
	assert.True(t, fx.LoadUser(result.User.ID).EmailVerified)
}

func TestPasswordResetFlow(t *testing.T) {
	svc, fx, _ := newService(t)
	result := register(t, svc, "amina@example.com")
	ctx := context.Background()
	before := fx.Outbox.Pending()

	require.NoError(t, svc.RequestPasswordReset(ctx, "unknown@example.com"))
	assert.Equal(t, before, fx.Outbox.Pending())

	require.NoError(t, svc.RequestPasswordReset(ctx, "amina@example.com"))
	assert.Equal(t, before+1, fx.Outbox.Pending())

	token, err := svc.PasswordResetToken(fx.LoadUser(result.User.ID))
	require.NoError(t, err)
	require.NoError(t, svc.ResetPassword(ctx, token, "brandnew1"))
	assert.ErrorIs(t, svc.ResetPassword(ctx, token, "sneaky123"), domainauth.ErrTokenInvalid)

	_, err = svc.Authenticate(ctx, result.Tokens.AccessToken)
	assert.ErrorIs(t, err, domainauth.ErrSessionNotFound)
	_, err = svc.Login(ctx, "amina@example.com", "brandnew1")
	assert.NoError(t, err)
}

func TestAuthenticateUsesCurrentRole(t *testing.T) {
	svc, fx, _ := newService(t)
	result := register(t, svc, "amina@example.com")

	user := fx.LoadUser(result.User.ID)
	require.NoError(t, user.BecomeLandlord(time.Now()))
	fx.SaveUser(user)

	principal, err := svc.Authenticate(context.Background(), result.Tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domainuser.RoleLandlord, principal.Role)
}
