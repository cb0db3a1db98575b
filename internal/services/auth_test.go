package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/requestdata"
	"github.com/fiszkiapp/fiszki-backend/internal/types"
	"github.com/fiszkiapp/fiszki-backend/internal/utils"
)

const testJWTSecret = "test-secret"

type fakeUserRepo struct {
	users map[uuid.UUID]*types.User

	createErr error
	existsErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: map[uuid.UUID]*types.User{}}
}

func (f *fakeUserRepo) Create(_ context.Context, _ *gorm.DB, users []*types.User) ([]*types.User, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, user := range users {
		f.users[user.ID] = user
	}
	return users, nil
}

func (f *fakeUserRepo) GetByIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) ([]*types.User, error) {
	var out []*types.User
	for _, id := range userIDs {
		if user, ok := f.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (f *fakeUserRepo) GetByEmails(_ context.Context, _ *gorm.DB, userEmails []string) ([]*types.User, error) {
	var out []*types.User
	for _, email := range userEmails {
		for _, user := range f.users {
			if user.Email == email {
				out = append(out, user)
			}
		}
	}
	return out, nil
}

func (f *fakeUserRepo) EmailExists(_ context.Context, _ *gorm.DB, userEmail string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	for _, user := range f.users {
		if user.Email == userEmail {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, _ *gorm.DB, userID uuid.UUID, hashedPassword string) error {
	if user, ok := f.users[userID]; ok {
		user.Password = hashedPassword
	}
	return nil
}

func (f *fakeUserRepo) FullDeleteByIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) error {
	for _, id := range userIDs {
		delete(f.users, id)
	}
	return nil
}

type fakeUserTokenRepo struct {
	tokens map[uuid.UUID]*types.UserToken
}

func newFakeUserTokenRepo() *fakeUserTokenRepo {
	return &fakeUserTokenRepo{tokens: map[uuid.UUID]*types.UserToken{}}
}

func (f *fakeUserTokenRepo) Create(_ context.Context, _ *gorm.DB, userTokens []*types.UserToken) ([]*types.UserToken, error) {
	for _, token := range userTokens {
		f.tokens[token.ID] = token
	}
	return userTokens, nil
}

func (f *fakeUserTokenRepo) GetByUserIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) ([]*types.UserToken, error) {
	var out []*types.UserToken
	for _, id := range userIDs {
		for _, token := range f.tokens {
			if token.UserID == id {
				out = append(out, token)
			}
		}
	}
	return out, nil
}

func (f *fakeUserTokenRepo) GetByAccessTokens(_ context.Context, _ *gorm.DB, accessTokens []string) ([]*types.UserToken, error) {
	var out []*types.UserToken
	for _, access := range accessTokens {
		for _, token := range f.tokens {
			if token.AccessToken == access {
				out = append(out, token)
			}
		}
	}
	return out, nil
}

func (f *fakeUserTokenRepo) GetByRefreshTokens(_ context.Context, _ *gorm.DB, refreshTokens []string) ([]*types.UserToken, error) {
	var out []*types.UserToken
	for _, refresh := range refreshTokens {
		for _, token := range f.tokens {
			if token.RefreshToken == refresh {
				out = append(out, token)
			}
		}
	}
	return out, nil
}

func (f *fakeUserTokenRepo) FullDeleteByIDs(_ context.Context, _ *gorm.DB, tokenIDs []uuid.UUID) error {
	for _, id := range tokenIDs {
		delete(f.tokens, id)
	}
	return nil
}

func (f *fakeUserTokenRepo) FullDeleteByUserIDs(_ context.Context, _ *gorm.DB, userIDs []uuid.UUID) error {
	for _, userID := range userIDs {
		for id, token := range f.tokens {
			if token.UserID == userID {
				delete(f.tokens, id)
			}
		}
	}
	return nil
}

func newAuthFixture(t *testing.T) (AuthService, *fakeUserRepo, *fakeUserTokenRepo) {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger.New: %v", err)
	}
	userRepo := newFakeUserRepo()
	tokenRepo := newFakeUserTokenRepo()
	svc := NewAuthService(nil, log, userRepo, tokenRepo, testJWTSecret, time.Hour, 24*time.Hour)
	return svc, userRepo, tokenRepo
}

func signedAccessToken(t *testing.T, secret string, subject string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestRegisterUserRejectsInvalidCredentials(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)
	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"empty email", "", "password123"},
		{"malformed email", "not-an-email", "password123"},
		{"empty password", "user@example.com", ""},
		{"short password", "user@example.com", "short"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := svc.RegisterUser(context.Background(), tc.email, tc.password)
			if !errors.Is(err, errs.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(userRepo.users) != 0 {
		t.Fatalf("users created despite invalid input")
	}
}

func TestRegisterUserNormalizesEmailAndHashesPassword(t *testing.T) {
	svc, userRepo, _ := newAuthFixture(t)

	if err := svc.RegisterUser(context.Background(), "  User@Example.COM  ", "password123"); err != nil {
		t.Fatalf("RegisterUser: %v", err)
	}
	if len(userRepo.users) != 1 {
		t.Fatalf("user count: want=1 got=%d", len(userRepo.users))
	}
	for _, user := range userRepo.users {
		if user.Email != "user@example.com" {
			t.Fatalf("email not normalized: %q", user.Email)
		}
		if user.Password == "password123" {
			t.Fatalf("password stored in plaintext")
		}
		if !utils.CheckPassword(user.Password, "password123") {
			t.Fatalf("stored hash does not verify")
		}
	}
}

func TestRegisterUserDuplicateEmailConflicts(t *testing.T) {
	svc, _, _ := newAuthFixture(t)

	if err := svc.RegisterUser(context.Background(), "user@example.com", "password123"); err != nil {
		t.Fatalf("first RegisterUser: %v", err)
	}
	err := svc.RegisterUser(context.Background(), "USER@example.com", "password456")
	if !errors.Is(err, errs.ErrAlreadyExists) {
		t.Fatalf("expected already exists, got %v", err)
	}
}

func TestSetContextFromTokenAttachesRequestData(t *testing.T) {
	svc, _, tokenRepo := newAuthFixture(t)
	userID := uuid.New()
	access := signedAccessToken(t, testJWTSecret, userID.String(), time.Hour)
	tokenRepo.tokens[uuid.New()] = &types.UserToken{
		ID:           uuid.New(),
		UserID:       userID,
		AccessToken:  access,
		RefreshToken: "refresh-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	ctx, err := svc.SetContextFromToken(context.Background(), access)
	if err != nil {
		t.Fatalf("SetContextFromToken: %v", err)
	}
	rd := requestdata.GetRequestData(ctx)
	if rd == nil {
		t.Fatalf("request data not attached")
	}
	if rd.UserID != userID {
		t.Fatalf("user id: want=%s got=%s", userID, rd.UserID)
	}
	if rd.RefreshToken != "refresh-1" {
		t.Fatalf("refresh token: %q", rd.RefreshToken)
	}
}

func TestSetContextFromTokenRejectsBadTokens(t *testing.T) {
	svc, _, tokenRepo := newAuthFixture(t)
	userID := uuid.New()

	revoked := signedAccessToken(t, testJWTSecret, userID.String(), time.Hour)
	wrongKey := signedAccessToken(t, "other-secret", userID.String(), time.Hour)
	expired := signedAccessToken(t, testJWTSecret, userID.String(), -time.Minute)

	stored := signedAccessToken(t, testJWTSecret, "not-a-uuid", time.Hour)
	tokenRepo.tokens[uuid.New()] = &types.UserToken{
		ID:          uuid.New(),
		UserID:      userID,
		AccessToken: stored,
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not.a.jwt"},
		{"wrong signing key", wrongKey},
		{"expired", expired},
		{"valid but revoked", revoked},
		{"non-uuid subject", stored},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.SetContextFromToken(context.Background(), tc.token)
			if !errors.Is(err, errs.ErrUnauthenticated) {
				t.Fatalf("expected unauthenticated, got %v", err)
			}
		})
	}
}

func TestGetAccessTTL(t *testing.T) {
	svc, _, _ := newAuthFixture(t)
	if got := svc.GetAccessTTL(); got != time.Hour {
		t.Fatalf("access ttl: want=%s got=%s", time.Hour, got)
	}
}
