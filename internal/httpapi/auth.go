package httpapi

import (
	"context"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"medipos/backend/internal/domain"
	"medipos/backend/internal/store"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type AuthManager struct {
	secret   []byte
	tokenTTL time.Duration
	users    UserStore
}

type UserStore interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type posCustomClaims struct {
	jwtlib.RegisteredClaims
	Username string `json:"username"`
	Role     string `json:"role"`
}

func NewAuthManager(secret string, tokenTTL time.Duration, users UserStore) *AuthManager {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 168 * time.Hour
	}
	return &AuthManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		users:    users,
	}
}

func (a *AuthManager) Register(ctx context.Context, req domain.RegisterRequest) (domain.User, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if len(username) < 4 || strings.ContainsAny(username, " \t\r\n") {
		return domain.User{}, store.ErrInvalidInput
	}
	if len(strings.TrimSpace(req.Password)) < 6 {
		return domain.User{}, store.ErrInvalidInput
	}

	role := req.Role
	if role == "" {
		role = domain.RoleInventory
	}
	if !domain.ValidRole(role) {
		return domain.User{}, store.ErrInvalidInput
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}

	created, err := a.users.CreateUser(ctx, domain.User{
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		Role:         role,
		PasswordHash: string(hash),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return domain.User{}, err
	}
	return *created, nil
}

func (a *AuthManager) Login(ctx context.Context, req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	user, err := a.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.LoginResponse{}, ErrInvalidCredentials
		}
		return domain.LoginResponse{}, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return domain.LoginResponse{}, ErrInvalidCredentials
	}

	token, err := a.sign(user.ID, user.Username, user.Role)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
		User:        *user,
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &posCustomClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{ID: sub, Username: claims.Username, Role: claims.Role}, nil
}

func (a *AuthManager) sign(userID, username, role string) (string, error) {
	now := time.Now().UTC()
	claims := posCustomClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(a.tokenTTL)),
			Issuer:    "medipos",
		},
		Username: username,
		Role:     role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}
