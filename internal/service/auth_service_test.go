package service

import (
	"context"
	"testing"

	"github.com/tea-tech/simple-inventory/internal/config"
	"github.com/tea-tech/simple-inventory/internal/dto"
	"github.com/tea-tech/simple-inventory/internal/model"
	"github.com/tea-tech/simple-inventory/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	users map[uuid.UUID]*model.User
}

var _ repository.UserRepository = (*stubUserRepo)(nil)

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[uuid.UUID]*model.User)}
}

func (r *stubUserRepo) Create(ctx context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *u
	return &c, nil
}

func (r *stubUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	for _, u := range r.users {
		if u.Username == username && u.Active {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) List(ctx context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		if u.Active {
			out = append(out, *u)
		}
	}
	return out, nil
}

func (r *stubUserRepo) ListAll(ctx context.Context) ([]model.User, error) {
	var out []model.User
	for _, u := range r.users {
		out = append(out, *u)
	}
	return out, nil
}

func (r *stubUserRepo) Update(ctx context.Context, u *model.User) error {
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *stubUserRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.Active = false
	}
	return nil
}

func (r *stubUserRepo) Reactivate(ctx context.Context, id uuid.UUID) error {
	if u, ok := r.users[id]; ok {
		u.Active = true
	}
	return nil
}

func newAuthFixture(t *testing.T) (AuthService, *stubUserRepo) {
	t.Helper()
	repo := newStubUserRepo()
	cfg := &config.Config{
		JWTSecret:          "test-secret",
		JWTExpirationHours: 1,
		JWTRefreshHours:    24,
	}
	return NewAuthService(repo, cfg), repo
}

func seedUser(t *testing.T, svc AuthService, username, password, role string) *dto.UserResponse {
	t.Helper()
	u, err := svc.CreateUser(context.Background(), dto.CreateUserRequest{
		Username: username,
		Password: password,
		FullName: "Test User",
		Role:     role,
	})
	require.NoError(t, err)
	return u
}

func TestLoginIssuesTokens(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	seedUser(t, svc, "alice", "s3cret", model.RoleManager)

	resp, err := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 3600, resp.ExpiresIn)
	assert.Equal(t, model.RoleManager, resp.User.Role)

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(resp.AccessToken, claims, func(t *jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, token.Valid)
	assert.Equal(t, "alice", claims.Username)
	assert.Equal(t, model.RoleManager, claims.Role)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	seedUser(t, svc, "alice", "s3cret", model.RoleViewer)

	_, badPassword := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "wrong"})
	require.Error(t, badPassword)
	_, noUser := svc.Login(ctx, dto.LoginRequest{Username: "bob", Password: "wrong"})
	require.Error(t, noUser)

	// Wrong password and unknown user are indistinguishable to the caller.
	assert.Equal(t, badPassword.Error(), noUser.Error())
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	seedUser(t, svc, "alice", "s3cret", model.RoleViewer)

	login, err := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "alice", refreshed.User.Username)

	_, err = svc.Refresh(ctx, "not-a-token")
	require.Error(t, err)
}

func TestRefreshRejectsDeactivatedUser(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	u := seedUser(t, svc, "alice", "s3cret", model.RoleViewer)

	login, err := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "s3cret"})
	require.NoError(t, err)

	require.NoError(t, svc.DeactivateUser(ctx, mustUUID(u.ID)))

	_, err = svc.Refresh(ctx, login.RefreshToken)
	require.Error(t, err, "a still-valid refresh token dies with the account")
}

func TestDeactivatedUserCannotLogin(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	u := seedUser(t, svc, "alice", "s3cret", model.RoleViewer)

	require.NoError(t, svc.DeactivateUser(ctx, mustUUID(u.ID)))
	_, err := svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "s3cret"})
	require.Error(t, err)

	// Inactive users still show up in the full listing.
	all, err := svc.ListUsers(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.False(t, all[0].Active)

	active, err := svc.ListUsers(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCreateUserRejectsDuplicateUsername(t *testing.T) {
	svc, _ := newAuthFixture(t)
	seedUser(t, svc, "alice", "s3cret", model.RoleViewer)

	_, err := svc.CreateUser(context.Background(), dto.CreateUserRequest{
		Username: "alice",
		Password: "other",
		FullName: "Alice Two",
		Role:     model.RoleViewer,
	})
	require.Error(t, err)
	assert.Equal(t, "conflict", KindOf(err))
}

func TestUpdateUserChangesPasswordAndRole(t *testing.T) {
	svc, _ := newAuthFixture(t)
	ctx := context.Background()
	u := seedUser(t, svc, "alice", "s3cret", model.RoleViewer)

	updated, err := svc.UpdateUser(ctx, mustUUID(u.ID), dto.UpdateUserRequest{
		Password: "newpass",
		Role:     model.RoleAdministrator,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdministrator, updated.Role)

	_, err = svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "s3cret"})
	require.Error(t, err)
	_, err = svc.Login(ctx, dto.LoginRequest{Username: "alice", Password: "newpass"})
	require.NoError(t, err)
}
