package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/fiszkiapp/fiszki-backend/internal/errs"
	"github.com/fiszkiapp/fiszki-backend/internal/logger"
	"github.com/fiszkiapp/fiszki-backend/internal/repos"
	"github.com/fiszkiapp/fiszki-backend/internal/requestdata"
	"github.com/fiszkiapp/fiszki-backend/internal/types"
	"github.com/fiszkiapp/fiszki-backend/internal/utils"
)

type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

type AuthService interface {
	RegisterUser(ctx context.Context, email, password string) error
	LoginUser(ctx context.Context, email, password string) (*TokenPair, error)
	RefreshUser(ctx context.Context) (*TokenPair, error)
	LogoutUser(ctx context.Context) error
	ChangePassword(ctx context.Context, currentPassword, newPassword string) error
	DeleteAccount(ctx context.Context, password string) error
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	GetAccessTTL() time.Duration
}

type authService struct {
	db            *gorm.DB
	log           *logger.Logger
	userRepo      repos.UserRepo
	userTokenRepo repos.UserTokenRepo
	jwtSecretKey  string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewAuthService(
	db *gorm.DB,
	log *logger.Logger,
	userRepo repos.UserRepo,
	userTokenRepo repos.UserTokenRepo,
	jwtSecretKey string,
	accessTTL time.Duration,
	refreshTTL time.Duration,
) AuthService {
	serviceLog := log.With("service", "AuthService")
	return &authService{
		db:            db,
		log:           serviceLog,
		userRepo:      userRepo,
		userTokenRepo: userTokenRepo,
		jwtSecretKey:  jwtSecretKey,
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

func (as *authService) RegisterUser(ctx context.Context, email, password string) error {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateCredentials(email, password); err != nil {
		return err
	}

	exists, err := as.userRepo.EmailExists(ctx, nil, email)
	if err != nil {
		return fmt.Errorf("failed to check user email: %w", errs.ErrPersistence)
	}
	if exists {
		return fmt.Errorf("email is already in use: %w", errs.ErrAlreadyExists)
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &types.User{
		ID:       uuid.New(),
		Email:    email,
		Password: hashed,
	}
	if _, err := as.userRepo.Create(ctx, nil, []*types.User{user}); err != nil {
		as.log.Error("Failed to create user", "error", err)
		return fmt.Errorf("failed to create user: %w", errs.ErrPersistence)
	}
	return nil
}

func (as *authService) LoginUser(ctx context.Context, email, password string) (*TokenPair, error) {
	email = utils.NormalizeEmail(email)
	if err := utils.ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	users, err := as.userRepo.GetByEmails(ctx, nil, []string{email})
	if err != nil {
		return nil, fmt.Errorf("failed to load user by email: %w", errs.ErrPersistence)
	}
	if len(users) == 0 {
		return nil, fmt.Errorf("invalid email or password: %w", errs.ErrUnauthenticated)
	}
	user := users[0]
	if !utils.CheckPassword(user.Password, password) {
		return nil, fmt.Errorf("invalid email or password: %w", errs.ErrUnauthenticated)
	}

	var pair *TokenPair
	err = as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Drop expired token rows for this user before issuing a new pair.
		existing, err := as.userTokenRepo.GetByUserIDs(ctx, tx, []uuid.UUID{user.ID})
		if err != nil {
			return fmt.Errorf("failed to check user tokens: %w", err)
		}
		var expired []uuid.UUID
		for _, token := range existing {
			if token.ExpiresAt.Before(time.Now()) {
				expired = append(expired, token.ID)
			}
		}
		if err := as.userTokenRepo.FullDeleteByIDs(ctx, tx, expired); err != nil {
			return fmt.Errorf("failed to delete expired tokens: %w", err)
		}

		issued, err := as.issueTokenPair(ctx, tx, user)
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		as.log.Error("Login failed", "error", err)
		return nil, fmt.Errorf("login failed: %w", errs.ErrPersistence)
	}
	return pair, nil
}

func (as *authService) RefreshUser(ctx context.Context) (*TokenPair, error) {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.RefreshToken == "" {
		return nil, fmt.Errorf("refresh token missing: %w", errs.ErrUnauthenticated)
	}

	var pair *TokenPair
	err := as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tokens, err := as.userTokenRepo.GetByRefreshTokens(ctx, tx, []string{rd.RefreshToken})
		if err != nil {
			return fmt.Errorf("failed to load refresh token: %w", err)
		}
		if len(tokens) == 0 {
			return fmt.Errorf("unknown refresh token: %w", errs.ErrUnauthenticated)
		}
		existing := tokens[0]
		if existing.ExpiresAt.Before(time.Now()) {
			_ = as.userTokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existing.ID})
			return fmt.Errorf("refresh token expired: %w", errs.ErrUnauthenticated)
		}

		users, err := as.userRepo.GetByIDs(ctx, tx, []uuid.UUID{existing.UserID})
		if err != nil {
			return fmt.Errorf("failed to load user for refresh: %w", err)
		}
		if len(users) == 0 {
			return fmt.Errorf("no user for refresh token: %w", errs.ErrUnauthenticated)
		}

		if err := as.userTokenRepo.FullDeleteByIDs(ctx, tx, []uuid.UUID{existing.ID}); err != nil {
			return fmt.Errorf("failed to rotate refresh token: %w", err)
		}
		issued, err := as.issueTokenPair(ctx, tx, users[0])
		if err != nil {
			return err
		}
		pair = issued
		return nil
	})
	if err != nil {
		return nil, err
	}
	return pair, nil
}

func (as *authService) LogoutUser(ctx context.Context) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.TokenString == "" {
		return fmt.Errorf("no token in context: %w", errs.ErrUnauthenticated)
	}
	tokens, err := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{rd.TokenString})
	if err != nil {
		return fmt.Errorf("failed to load token: %w", errs.ErrPersistence)
	}
	if len(tokens) == 0 {
		return nil
	}
	if err := as.userTokenRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{tokens[0].ID}); err != nil {
		return fmt.Errorf("failed to delete token: %w", errs.ErrPersistence)
	}
	return nil
}

func (as *authService) ChangePassword(ctx context.Context, currentPassword, newPassword string) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("no user in context: %w", errs.ErrUnauthenticated)
	}

	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil || len(users) == 0 {
		return fmt.Errorf("failed to load user: %w", errs.ErrPersistence)
	}
	user := users[0]

	if !utils.CheckPassword(user.Password, currentPassword) {
		return fmt.Errorf("current password does not match: %w", errs.ErrUnauthenticated)
	}
	if err := utils.ValidateCredentials(user.Email, newPassword); err != nil {
		return err
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return as.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := as.userRepo.UpdatePassword(ctx, tx, user.ID, hashed); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		// All sessions are revoked; the client must log in again.
		if err := as.userTokenRepo.FullDeleteByUserIDs(ctx, tx, []uuid.UUID{user.ID}); err != nil {
			return fmt.Errorf("failed to revoke tokens: %w", err)
		}
		return nil
	})
}

func (as *authService) DeleteAccount(ctx context.Context, password string) error {
	rd := requestdata.GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return fmt.Errorf("no user in context: %w", errs.ErrUnauthenticated)
	}

	users, err := as.userRepo.GetByIDs(ctx, nil, []uuid.UUID{rd.UserID})
	if err != nil || len(users) == 0 {
		return fmt.Errorf("failed to load user: %w", errs.ErrPersistence)
	}
	user := users[0]

	if !utils.CheckPassword(user.Password, password) {
		return fmt.Errorf("password does not match: %w", errs.ErrUnauthenticated)
	}

	// Tokens, generation sessions and flashcards go with the user via FK
	// cascades.
	if err := as.userRepo.FullDeleteByIDs(ctx, nil, []uuid.UUID{user.ID}); err != nil {
		as.log.Error("Failed to delete user", "error", err)
		return fmt.Errorf("failed to delete account: %w", errs.ErrPersistence)
	}
	return nil
}

// SetContextFromToken verifies a bearer token and attaches the caller's
// identity to the context. The JWT must verify and its matching token row
// must still exist; a logged-out token fails even before expiry.
func (as *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	claims := jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(as.jwtSecretKey), nil
	})
	if err != nil || !token.Valid {
		return ctx, fmt.Errorf("invalid access token: %w", errs.ErrUnauthenticated)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return ctx, fmt.Errorf("invalid token subject: %w", errs.ErrUnauthenticated)
	}

	rows, err := as.userTokenRepo.GetByAccessTokens(ctx, nil, []string{tokenString})
	if err != nil {
		return ctx, fmt.Errorf("failed to check token: %w", errs.ErrPersistence)
	}
	if len(rows) == 0 {
		return ctx, fmt.Errorf("access token revoked: %w", errs.ErrUnauthenticated)
	}

	rd := &requestdata.RequestData{
		TokenString:  tokenString,
		RefreshToken: rows[0].RefreshToken,
		UserID:       userID,
	}
	return requestdata.WithRequestData(ctx, rd), nil
}

func (as *authService) GetAccessTTL() time.Duration {
	return as.accessTTL
}

func (as *authService) issueTokenPair(ctx context.Context, tx *gorm.DB, user *types.User) (*TokenPair, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(as.accessTTL)),
	}
	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(as.jwtSecretKey))
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	userToken := &types.UserToken{
		ID:           uuid.New(),
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: uuid.New().String(),
		ExpiresAt:    now.Add(as.refreshTTL),
	}
	if _, err := as.userTokenRepo.Create(ctx, tx, []*types.UserToken{userToken}); err != nil {
		return nil, fmt.Errorf("failed to store user token: %w", err)
	}

	return &TokenPair{
		AccessToken:  userToken.AccessToken,
		RefreshToken: userToken.RefreshToken,
	}, nil
}
