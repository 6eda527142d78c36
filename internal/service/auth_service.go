package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"leadhub-data/internal/domain"
	"leadhub-data/internal/repository"
	"leadhub-data/internal/store"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const sessionKeyPrefix = "session:"

// loginClaims 登录链接令牌的JWT claims
type loginClaims struct {
	Email string `json:"email"`
	jwt.StandardClaims
}

// AuthService email登录：
// 1) request: 校验email，签发短时效HS256令牌（投递渠道是外部协作方）
// 2) verify: 验令牌，首次登录即建号，发放Redis会话token
type AuthService struct {
	users      repository.UsersRepository
	kv         store.KV
	jwtSecret  []byte
	linkTTL    time.Duration
	sessionTTL time.Duration
	logger     *zap.Logger
}

func NewAuthService(users repository.UsersRepository, kv store.KV, jwtSecret string, linkTTL, sessionTTL time.Duration, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		kv:         kv,
		jwtSecret:  []byte(jwtSecret),
		linkTTL:    linkTTL,
		sessionTTL: sessionTTL,
		logger:     logger,
	}
}

// Session 已认证的会话
type Session struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// RequestLoginLink 签发登录链接令牌
func (s *AuthService) RequestLoginLink(_ context.Context, email string) (string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !validEmail(email) {
		verr := &ValidationError{}
		verr.add("email", "is not a valid email address")
		return "", verr
	}

	now := time.Now()
	claims := &loginClaims{
		Email: email,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: now.Add(s.linkTTL).Unix(),
			IssuedAt:  now.Unix(),
			Issuer:    "leadhub-data",
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign login token: %w", err)
	}
	return token, nil
}

// VerifyLoginLink 验证登录令牌并建立会话
func (s *AuthService) VerifyLoginLink(ctx context.Context, token string) (*Session, error) {
	claims := &loginClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil || !parsed.Valid || claims.Email == "" {
		return nil, ErrUnauthorized
	}

	user, err := s.users.UpsertUserByEmail(ctx, claims.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user on login: %w", err)
	}

	sessionToken := uuid.NewString()
	if err := s.kv.Set(ctx, sessionKeyPrefix+sessionToken, user.ID, s.sessionTTL); err != nil {
		return nil, fmt.Errorf("failed to store session: %w", err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &Session{Token: sessionToken, User: user}, nil
}

// ResolveSession 会话token换owner身份。不存在或过期返回 ErrUnauthorized。
func (s *AuthService) ResolveSession(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthorized
	}
	userID, err := s.kv.Get(ctx, sessionKeyPrefix+token)
	if err != nil {
		if errors.Is(err, store.ErrMiss) {
			return "", ErrUnauthorized
		}
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	return userID, nil
}

// Logout 删除会话
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	return s.kv.Del(ctx, sessionKeyPrefix+token)
}
