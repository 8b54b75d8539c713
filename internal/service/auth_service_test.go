package service

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"truetestify/backend/internal/domain"
)

const testJWTSecret = "test-secret"

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo, *fakeBusinessRepo) {
	t.Helper()
	userRepo := newFakeUserRepo()
	businessRepo := newFakeBusinessRepo()
	svc := NewAuthService(userRepo, businessRepo, testJWTSecret, time.Hour)
	return svc, userRepo, businessRepo
}

func TestRegister_ProvisionsBusinessAndOwner(t *testing.T) {
	svc, _, businessRepo := newAuthFixture(t)

	user, business, err := svc.Register(context.Background(), "Alice", "alice@acme.test", "s3cret-pass", "Acme Inc", "acme")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleOwner, user.Role)
	assert.Equal(t, business.ID, user.BusinessID)
	assert.Equal(t, "acme", business.Slug)
	assert.Empty(t, user.PasswordHash, "hash never leaves the service")

	stored, err := businessRepo.GetBySlug(context.Background(), "acme")
	require.NoError(t, err)
	assert.Equal(t, "Acme Inc", stored.Name)
}

func TestRegister_DuplicateEmailAndSlug(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, _, err := svc.Register(context.Background(), "Alice", "alice@acme.test", "s3cret-pass", "Acme Inc", "acme")
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "Bob", "alice@acme.test", "s3cret-pass", "Other", "other")
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	_, _, err = svc.Register(context.Background(), "Bob", "bob@acme.test", "s3cret-pass", "Other", "acme")
	assert.ErrorIs(t, err, ErrSlugTaken)
}

func TestRegister_RejectsMalformedSlug(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	for _, slug := range []string{"Has Space", "UPPER!", "-leading", "trailing-", "dots.dots"} {
		_, _, err := svc.Register(context.Background(), "Alice", "a@b.test", "s3cret-pass", "Acme", slug)
		assert.ErrorIs(t, err, ErrInvalidSlug, "slug %q", slug)
	}
}

func TestLogin_IssuesTenantScopedToken(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	user, business, err := svc.Register(context.Background(), "Alice", "alice@acme.test", "s3cret-pass", "Acme Inc", "acme")
	require.NoError(t, err)

	token, loggedIn, err := svc.Login(context.Background(), "alice@acme.test", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, user.ID, loggedIn.ID)
	assert.Empty(t, loggedIn.PasswordHash)

	claims := &jwtClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return []byte(testJWTSecret), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, user.ID.Hex(), claims.UserID)
	assert.Equal(t, business.ID.Hex(), claims.BusinessID)
	assert.Equal(t, "truetestify", claims.Issuer)
}

func TestLogin_WrongPasswordAndUnknownUser(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, _, err := svc.Register(context.Background(), "Alice", "alice@acme.test", "s3cret-pass", "Acme Inc", "acme")
	require.NoError(t, err)

	_, _, err = svc.Login(context.Background(), "alice@acme.test", "wrong")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)

	// Unknown user is indistinguishable from a bad password.
	_, _, err = svc.Login(context.Background(), "ghost@acme.test", "s3cret-pass")
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
