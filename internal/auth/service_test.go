package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupService(t *testing.T) (*Service, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	return NewService(s, NewTokens("test-secret", time.Hour), NewMemoryRevocations()), s
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Username: "sam", Password: "hunter22", Email: "sam@example.com", FullName: "Sam Doe"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCustomer, sess.User.Role)
	assert.NotEqual(t, "hunter22", sess.User.PasswordHash)
	assert.NotEmpty(t, sess.Token)

	login, err := svc.Login(ctx, "sam", "hunter22")
	require.NoError(t, err)

	id, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, id.UserID)
	assert.Equal(t, domain.RoleCustomer, id.Role)

	u, err := svc.CurrentUser(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "sam@example.com", u.Email)
}

func TestRegister_Duplicates(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "sam", Password: "pw123456", Email: "sam@example.com", FullName: "Sam"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Username: "sam", Password: "pw123456", Email: "new@example.com", FullName: "Sam"})
	v, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "username")

	_, err = svc.Register(ctx, RegisterInput{Username: "other", Password: "pw123456", Email: "sam@example.com", FullName: "Sam"})
	v, ok = domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "email")
}

func TestLogin_InvalidCredentials(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Username: "sam", Password: "right-password", Email: "s@e.com", FullName: "Sam"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, "sam", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "nobody", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLogin_SeededAdmin(t *testing.T) {
	svc, s := setupService(t)
	ctx := context.Background()

	hash, err := HashPassword("adminpass")
	require.NoError(t, err)
	require.NoError(t, store.Seed(ctx, s, hash))

	sess, err := svc.Login(ctx, "admin", "adminpass")
	require.NoError(t, err)

	id, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.True(t, id.IsAdmin())
}

func TestAuthenticate_Rejects(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	_, err := svc.Authenticate(ctx, "")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	_, err = svc.Authenticate(ctx, "not-a-jwt")
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	other := NewTokens("other-secret", time.Hour)
	forged, _, err := other.Issue(&domain.User{ID: 1, Role: domain.RoleAdmin})
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, forged)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestAuthenticate_Expired(t *testing.T) {
	tokens := NewTokens("secret", time.Minute)
	tokens.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, _, err := tokens.Issue(&domain.User{ID: 3, Role: domain.RoleCustomer})
	require.NoError(t, err)

	tokens.now = time.Now
	svc := NewService(store.NewMemoryStore(), tokens, NewMemoryRevocations())
	_, err = svc.Authenticate(context.Background(), token)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)
}

func TestLogout_RevokesToken(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	sess, err := svc.Register(ctx, RegisterInput{Username: "sam", Password: "pw123456", Email: "s@e.com", FullName: "Sam"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	assert.NoError(t, svc.Logout(ctx, "garbage"))
}

func TestRedisRevocations(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	r := NewRedisRevocations(client)
	ctx := context.Background()

	revoked, err := r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, r.Revoke(ctx, "jti-1", time.Minute))
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	mr.FastForward(2 * time.Minute)
	revoked, err = r.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestMemoryRevocations_Expire(t *testing.T) {
	r := NewMemoryRevocations()
	now := time.Now()
	r.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, r.Revoke(ctx, "a", time.Minute))
	revoked, _ := r.IsRevoked(ctx, "a")
	assert.True(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = r.IsRevoked(ctx, "a")
	assert.False(t, revoked)
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, IdentityFrom(ctx))

	id := &domain.Identity{UserID: 4, Role: domain.RoleAdmin}
	assert.Equal(t, id, IdentityFrom(WithIdentity(ctx, id)))
}
