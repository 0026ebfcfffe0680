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

	"github.com/edutrack/gradebook-api/internal/models"
	appErrors "github.com/edutrack/gradebook-api/pkg/errors"
)

type mockUserRepo struct {
	users            map[string]*models.User
	lastLoginUpdated bool
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) FindByID(ctx context.Context, schoolID, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok && u.SchoolID == schoolID {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func authTestConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "gradebook-api",
	}
}

func authTestUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           "u1",
		SchoolID:     "school-1",
		Email:        "teacher@example.com",
		FullName:     "Teacher One",
		PasswordHash: string(hash),
		Role:         models.RoleTeacher,
		Active:       true,
	}
}

func TestAuthTokenCarriesTenantClaims(t *testing.T) {
	user := authTestUser(t)
	svc := NewAuthService(&mockUserRepo{users: map[string]*models.User{"u1": user}}, nil, nil, zap.NewNop(), authTestConfig())

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "school-1", claims.SchoolID)
	assert.Equal(t, models.RoleTeacher, claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestAuthValidateRejectsWrongSecret(t *testing.T) {
	user := authTestUser(t)
	issuer := NewAuthService(&mockUserRepo{}, nil, nil, zap.NewNop(), authTestConfig())
	token, err := issuer.generateAccessToken(user)
	require.NoError(t, err)

	cfg := authTestConfig()
	cfg.AccessTokenSecret = "other"
	verifier := NewAuthService(&mockUserRepo{}, nil, nil, zap.NewNop(), cfg)

	_, err = verifier.ValidateToken(context.Background(), token)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErr.Code)
}

func TestAuthValidateRejectsExpired(t *testing.T) {
	user := authTestUser(t)
	cfg := authTestConfig()
	cfg.AccessTokenExpiry = -time.Minute
	svc := NewAuthService(&mockUserRepo{}, nil, nil, zap.NewNop(), cfg)

	token, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	require.Error(t, err)
}

func TestAuthLoginWrongPassword(t *testing.T) {
	user := authTestUser(t)
	svc := NewAuthService(&mockUserRepo{users: map[string]*models.User{"u1": user}}, nil, nil, zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "wrong"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(&mockUserRepo{}, nil, nil, zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErr.Code)
}

func TestAuthLoginInactiveAccount(t *testing.T) {
	user := authTestUser(t)
	user.Active = false
	svc := NewAuthService(&mockUserRepo{users: map[string]*models.User{"u1": user}}, nil, nil, zap.NewNop(), authTestConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "password"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErr.Code)
}
