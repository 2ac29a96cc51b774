package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/lecturehub/lecturehub-api/internal/models"
	appErrors "github.com/lecturehub/lecturehub-api/pkg/errors"
)

type mockAuthRepo struct {
	userByEmail      *models.User
	userByID         *models.User
	created          *models.User
	createErr        error
	refreshTokens    map[string]*models.RefreshToken
	auditLogs        []*models.AuditLog
	lastLoginUpdated bool
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.userByEmail == nil || m.userByEmail.Email != email {
		return nil, sql.ErrNoRows
	}
	return m.userByEmail, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.userByID != nil {
		return m.userByID, nil
	}
	if m.userByEmail != nil && m.userByEmail.ID == id {
		return m.userByEmail, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.userByEmail != nil && m.userByEmail.ID == id {
		m.userByEmail.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, log)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
	})
}

func TestRegisterStudentIsApprovedImmediately(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Student One",
		Email:    "student@example.com",
		Password: "password",
		Role:     "STUDENT",
		Branch:   "CSE",
		Year:     "2nd",
	})
	require.NoError(t, err)
	assert.True(t, user.Approved)
	assert.True(t, user.Active)
	assert.Equal(t, models.RoleStudent, user.Role)
}

func TestRegisterTeacherAwaitsApproval(t *testing.T) {
	repo := &mockAuthRepo{}
	svc := newAuthService(repo)

	user, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName:   "Teacher One",
		Email:      "teacher@example.com",
		Password:   "password",
		Role:       "TEACHER",
		Department: "CSE",
	})
	require.NoError(t, err)
	assert.False(t, user.Approved)
}

func TestRegisterAdminRejected(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Sneaky",
		Email:    "admin@example.com",
		Password: "password",
		Role:     "ADMIN",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo := &mockAuthRepo{createErr: &pq.Error{Code: "23505"}}
	svc := newAuthService(repo)

	_, err := svc.Register(context.Background(), models.RegisterRequest{
		FullName: "Student One",
		Email:    "student@example.com",
		Password: "password",
		Role:     "STUDENT",
		Branch:   "CSE",
		Year:     "2nd",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDuplicateIdentity.Code, appErrors.FromError(err).Code)
}

func TestLoginSuccess(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID: "u1", Email: "user@example.com", PasswordHash: string(hash),
		Role: models.RoleStudent, Approved: true, Active: true,
	}}
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.True(t, repo.lastLoginUpdated)
}

func TestLoginErrorsDoNotRevealAccounts(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID: "u1", Email: "user@example.com", PasswordHash: string(hash),
		Role: models.RoleStudent, Approved: true, Active: true,
	}}
	svc := newAuthService(repo)

	_, unknownErr := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@example.com", Password: "password"})
	_, wrongPassErr := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "wrong"})

	require.Error(t, unknownErr)
	require.Error(t, wrongPassErr)
	assert.Equal(t, appErrors.FromError(unknownErr).Code, appErrors.FromError(wrongPassErr).Code)
	assert.Equal(t, appErrors.FromError(unknownErr).Message, appErrors.FromError(wrongPassErr).Message)
}

func TestLoginPendingApproval(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID: "t1", Email: "teacher@example.com", PasswordHash: string(hash),
		Role: models.RoleTeacher, Approved: false, Active: true,
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "teacher@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPendingApproval.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	hash, _ := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{
		ID: "u1", Email: "user@example.com", PasswordHash: string(hash),
		Role: models.RoleStudent, Approved: true, Active: false,
	}}
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "user@example.com", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestRefreshTokenRotates(t *testing.T) {
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleStudent, Approved: true, Active: true}
	repo := &mockAuthRepo{userByID: user, refreshTokens: map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: "u1", Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}}
	svc := newAuthService(repo)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	oldHash, _ := bcrypt.GenerateFromPassword([]byte("old"), bcrypt.DefaultCost)
	repo := &mockAuthRepo{userByEmail: &models.User{ID: "u1", Email: "user@example.com", PasswordHash: string(oldHash), Active: true}}
	svc := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), "u1", models.ChangePasswordRequest{OldPassword: "old", NewPassword: "newpassword"})
	require.NoError(t, err)
	assert.NotEqual(t, string(oldHash), repo.userByEmail.PasswordHash)
}

func TestValidateTokenRoundTrip(t *testing.T) {
	svc := newAuthService(&mockAuthRepo{})
	user := &models.User{ID: "u1", Email: "user@example.com", Role: models.RoleStudent}

	token, _, err := svc.generateAccessToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, models.RoleStudent, claims.Role)
}
