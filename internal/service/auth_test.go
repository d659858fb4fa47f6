package service_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hiddenpay/backend/internal/domain"
	"github.com/hiddenpay/backend/internal/service"
	"github.com/hiddenpay/backend/internal/store/memory"
)

func newAuth(t *testing.T) *service.AuthService {
	t.Helper()
	return service.NewAuthService("test-secret", "admin@hiddenpay.io", "admin-password", memory.New())
}

func TestRegisterAndLogin(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, &domain.RegisterRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)
	assert.Equal(t, "user", user.Role)
	assert.NotEqual(t, "password123", user.Password, "password must be stored hashed")

	resp, err := auth.Login(ctx, "alice@example.com", "password123")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, user.ID, resp.User.ID)

	claims, err := auth.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Sub)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, "user", claims.Role)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, &domain.RegisterRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Register(ctx, &domain.RegisterRequest{Email: "alice@example.com", Password: "otherpassword"})
	requireAppCode(t, err, http.StatusConflict)
}

func TestRegisterValidation(t *testing.T) {
	auth := newAuth(t)

	_, err := auth.Register(context.Background(), &domain.RegisterRequest{Email: "not-an-email", Password: "password123"})
	requireAppCode(t, err, http.StatusUnprocessableEntity)

	_, err = auth.Register(context.Background(), &domain.RegisterRequest{Email: "alice@example.com", Password: "short"})
	requireAppCode(t, err, http.StatusUnprocessableEntity)
}

func TestLoginBadCredentials(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	_, err := auth.Register(ctx, &domain.RegisterRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	_, err = auth.Login(ctx, "alice@example.com", "wrong-password")
	requireAppCode(t, err, http.StatusUnauthorized)

	_, err = auth.Login(ctx, "nobody@example.com", "password123")
	requireAppCode(t, err, http.StatusUnauthorized)
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	auth := newAuth(t)

	_, err := auth.VerifyToken("not-a-jwt")
	requireAppCode(t, err, http.StatusUnauthorized)

	// Token signed with a different secret.
	other := service.NewAuthService("other-secret", "admin@hiddenpay.io", "admin-password", memory.New())
	_, err = other.Register(context.Background(), &domain.RegisterRequest{Email: "bob@example.com", Password: "password123"})
	require.NoError(t, err)
	resp, err := other.Login(context.Background(), "bob@example.com", "password123")
	require.NoError(t, err)

	_, err = auth.VerifyToken(resp.Token)
	requireAppCode(t, err, http.StatusUnauthorized)
}

func TestSeedAdmin(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	require.NoError(t, auth.SeedAdmin(ctx))
	// Idempotent.
	require.NoError(t, auth.SeedAdmin(ctx))

	resp, err := auth.Login(ctx, "admin@hiddenpay.io", "admin-password")
	require.NoError(t, err)

	claims, err := auth.VerifyToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}

func TestMe(t *testing.T) {
	auth := newAuth(t)
	ctx := context.Background()

	user, err := auth.Register(ctx, &domain.RegisterRequest{Email: "alice@example.com", Password: "password123"})
	require.NoError(t, err)

	got, err := auth.Me(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", got.Email)

	_, err = auth.Me(ctx, "missing-id")
	requireAppCode(t, err, http.StatusNotFound)
}
