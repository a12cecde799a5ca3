package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
	appErrors "github.com/custodia-systems/welfare-canteen-api/pkg/errors"
)

type mockAuthRepo struct {
	users       map[string]*models.User
	byID        map[string]*models.User
	descriptors []models.User
	lastLoginID string
	passwordSet string
}

func (m *mockAuthRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginID = id
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	m.passwordSet = passwordHash
	return nil
}

func (m *mockAuthRepo) ListWithDescriptors(ctx context.Context) ([]models.User, error) {
	return m.descriptors, nil
}

type mockSessionStore struct {
	revoked map[string]bool
	cleared []string
}

func (m *mockSessionStore) RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if m.revoked == nil {
		m.revoked = map[string]bool{}
	}
	m.revoked[token] = true
	return nil
}

func (m *mockSessionStore) IsTokenRevoked(ctx context.Context, token string) (bool, error) {
	return m.revoked[token], nil
}

func (m *mockSessionStore) Clear(ctx context.Context, userID string) error {
	m.cleared = append(m.cleared, userID)
	return nil
}

func hashOf(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newAuthFixture(t *testing.T) (*AuthService, *mockAuthRepo, *mockSessionStore) {
	repo := &mockAuthRepo{
		users: map[string]*models.User{
			"clerk": {ID: "u1", Username: "clerk", Fullname: "POS Clerk", Role: "POS", Active: true, PasswordHash: hashOf(t, "secret1")},
			"old":   {ID: "u2", Username: "old", Fullname: "Legacy", Role: "STUDENT", Active: true, PasswordHash: hashOf(t, "secret1")},
		},
		byID: map[string]*models.User{},
	}
	for _, u := range repo.users {
		repo.byID[u.ID] = u
	}
	sessions := &mockSessionStore{}
	svc := NewAuthService(repo, sessions, &mockAudit{}, nil, nil, zap.NewNop(), AuthConfig{
		TokenSecret:    "test-secret",
		TokenExpiry:    time.Hour,
		Issuer:         "welfare-canteen",
		MatchThreshold: 0.6,
	})
	return svc, repo, sessions
}

func TestLoginIssuesValidToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "clerk", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RolePOS, resp.User.Role)
	assert.Equal(t, "u1", repo.lastLoginID)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, models.RolePOS, claims.Role)
}

func TestLoginNormalizesLegacyRole(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "old", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleInmate, resp.User.Role)
	assert.Equal(t, RouteInmateProfile, svc.DefaultRoute(resp.User.Role))
}

func TestLoginCarriesInmateLinkIntoClaims(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	inmateID := "INM-007"
	repo.users["old"].InmateID = &inmateID

	resp, err := svc.Login(context.Background(), models.LoginRequest{Username: "old", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "INM-007", resp.User.InmateID)

	claims, err := svc.ValidateToken(context.Background(), resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "INM-007", claims.InmateID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Username: "clerk", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)

	_, err = svc.Login(context.Background(), models.LoginRequest{Username: "ghost", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesTokenAndClearsScope(t *testing.T) {
	svc, _, sessions := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, models.LoginRequest{Username: "clerk", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(ctx, resp.Token)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, resp.Token, claims, "", ""))
	assert.Contains(t, sessions.cleared, "u1")

	// the revoked token no longer validates
	_, err = svc.ValidateToken(ctx, resp.Token)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	ctx := context.Background()

	resp, err := svc.Login(ctx, models.LoginRequest{Username: "clerk", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, resp.Token+"x")
	require.Error(t, err)

	_, err = svc.ValidateToken(ctx, "not-a-token")
	require.Error(t, err)
}

func TestFaceLoginMatchesClosestDescriptor(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	repo.descriptors = []models.User{
		{ID: "u1", Username: "clerk", Fullname: "POS Clerk", Role: "POS", Active: true, FaceDescriptor: models.Descriptor{0.1, 0.2, 0.3}},
		{ID: "u3", Username: "admin", Fullname: "Admin", Role: "ADMIN", Active: true, FaceDescriptor: models.Descriptor{0.9, 0.9, 0.9}},
	}

	resp, err := svc.FaceLogin(context.Background(), models.FaceLoginRequest{Descriptor: models.Descriptor{0.1, 0.2, 0.35}})
	require.NoError(t, err)
	assert.Equal(t, "u1", resp.User.ID)
}

func TestFaceLoginRejectsBeyondThreshold(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)

	repo.descriptors = []models.User{
		{ID: "u1", Username: "clerk", Role: "POS", Active: true, FaceDescriptor: models.Descriptor{0.1, 0.2, 0.3}},
	}

	_, err := svc.FaceLogin(context.Background(), models.FaceLoginRequest{Descriptor: models.Descriptor{5, 5, 5}})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoBiometricMatch.Code, appErrors.FromError(err).Code)
}

func TestChangePasswordRequiresCurrent(t *testing.T) {
	svc, repo, _ := newAuthFixture(t)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newsecret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	err = svc.ChangePassword(ctx, "u1", models.ChangePasswordRequest{CurrentPassword: "secret1", NewPassword: "newsecret"})
	require.NoError(t, err)
	assert.NotEmpty(t, repo.passwordSet)
}
