package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/AjAjish/manufacturing-erp/internal/config"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/entity"
	"github.com/AjAjish/manufacturing-erp/internal/mfg/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const minPasswordLength = 8

// HashPassword bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// AuthService 认证服务
type AuthService struct {
	db       *gorm.DB
	userRepo *repository.UserRepository
	rdb      *redis.Client
	cfg      *config.Config
}

func NewAuthService(db *gorm.DB, userRepo *repository.UserRepository, rdb *redis.Client, cfg *config.Config) *AuthService {
	return &AuthService{db: db, userRepo: userRepo, rdb: rdb, cfg: cfg}
}

// TokenPair Token对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login 邮箱密码登录，记录登录活动与审计
func (s *AuthService) Login(ctx context.Context, req *LoginRequest, actor Actor) (*entity.User, *TokenPair, error) {
	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, fmt.Errorf("find user: %w", err)
	}
	if !checkPassword(user.PasswordHash, req.Password) {
		return nil, nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, nil, ErrInactiveUser
	}

	tokens, err := s.generateTokenPair(ctx, user)
	if err != nil {
		return nil, nil, fmt.Errorf("generate token: %w", err)
	}

	actor.UserID = user.ID
	actor.Email = user.Email
	actor.Name = user.FullName()
	actor.Role = user.Role

	err = inTx(ctx, s.db, func(tx *gorm.DB) error {
		user.LastLoginAt = nowPtr()
		if err := tx.Model(user).Update("last_login_at", user.LastLoginAt).Error; err != nil {
			return err
		}
		return recordSession(tx, actor, entity.AuditLogin, "User logged in")
	})
	if err != nil {
		return nil, nil, fmt.Errorf("record login: %w", err)
	}
	return user, tokens, nil
}

// recordSession 登录/登出同时写用户活动与审计
func recordSession(tx *gorm.DB, actor Actor, action, description string) error {
	activity := &entity.UserActivity{
		ID:           entity.NewID(),
		UserID:       actor.UserID,
		ActivityType: action,
		Description:  description,
		IPAddress:    actor.IP,
		UserAgent:    actor.UserAgent,
	}
	if err := tx.Create(activity).Error; err != nil {
		return err
	}
	return writeAudit(tx, actor, auditEntry{
		Action:     action,
		EntityType: AuditEntityUser,
		EntityID:   actor.UserID,
		Repr:       actor.Email,
		Notes:      description,
	})
}

// generateTokenPair 生成Token对，refresh jti 存入 Redis
func (s *AuthService) generateTokenPair(ctx context.Context, user *entity.User) (*TokenPair, error) {
	now := time.Now()
	jti := uuid.New().String()

	accessClaims := jwt.MapClaims{
		"sub":   user.ID,
		"uid":   user.ID,
		"name":  user.FullName(),
		"email": user.Email,
		"role":  user.Role,
		"type":  "access",
		"iss":   s.cfg.JWT.Issuer,
		"iat":   now.Unix(),
		"exp":   now.Add(s.cfg.JWT.AccessTokenExpire).Unix(),
		"jti":   jti,
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, err
	}

	refreshJti := uuid.New().String()
	refreshClaims := jwt.MapClaims{
		"sub":  user.ID,
		"uid":  user.ID,
		"type": "refresh",
		"iss":  s.cfg.JWT.Issuer,
		"iat":  now.Unix(),
		"exp":  now.Add(s.cfg.JWT.RefreshTokenExpire).Unix(),
		"jti":  refreshJti,
	}
	refreshToken := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims)
	refreshTokenString, err := refreshToken.SignedString([]byte(s.cfg.JWT.Secret))
	if err != nil {
		return nil, err
	}

	if s.rdb != nil {
		if err := s.rdb.Set(ctx, "token:refresh:"+refreshJti, user.ID, s.cfg.JWT.RefreshTokenExpire).Err(); err != nil {
			return nil, fmt.Errorf("store refresh token: %w", err)
		}
	}

	return &TokenPair{
		AccessToken:  accessTokenString,
		RefreshToken: refreshTokenString,
		ExpiresIn:    int64(s.cfg.JWT.AccessTokenExpire.Seconds()),
	}, nil
}

func (s *AuthService) parseRefresh(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.cfg.JWT.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || claims["type"] != "refresh" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// RefreshToken 校验 refresh token 并轮换
func (s *AuthService) RefreshToken(ctx context.Context, refreshTokenString string) (*TokenPair, error) {
	claims, err := s.parseRefresh(refreshTokenString)
	if err != nil {
		return nil, err
	}
	jti, _ := claims["jti"].(string)
	userID, _ := claims["uid"].(string)
	if jti == "" || userID == "" {
		return nil, ErrInvalidToken
	}

	if s.rdb != nil {
		deleted, err := s.rdb.Del(ctx, "token:refresh:"+jti).Result()
		if err != nil {
			return nil, fmt.Errorf("check refresh token: %w", err)
		}
		if deleted == 0 {
			return nil, ErrInvalidToken
		}
	}

	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, ErrInactiveUser
	}
	return s.generateTokenPair(ctx, user)
}

// LogoutRequest 可选携带 refresh token 一并作废
type LogoutRequest struct {
	RefreshToken string `json:"refresh"`
}

// Logout access token jti 加入黑名单直到过期
func (s *AuthService) Logout(ctx context.Context, actor Actor, tokenID string, expiresAt time.Time, req *LogoutRequest) error {
	if s.rdb != nil && tokenID != "" {
		ttl := time.Until(expiresAt)
		if ttl <= 0 {
			ttl = time.Minute
		}
		if err := s.rdb.Set(ctx, "token:blacklist:"+tokenID, actor.UserID, ttl).Err(); err != nil {
			return fmt.Errorf("revoke token: %w", err)
		}
	}
	if s.rdb != nil && req != nil && strings.TrimSpace(req.RefreshToken) != "" {
		if claims, err := s.parseRefresh(req.RefreshToken); err == nil {
			if jti, _ := claims["jti"].(string); jti != "" {
				s.rdb.Del(ctx, "token:refresh:"+jti)
			}
		}
	}
	return inTx(ctx, s.db, func(tx *gorm.DB) error {
		return recordSession(tx, actor, entity.AuditLogout, "User logged out")
	})
}

// IsRevoked 实现 middleware.RevocationChecker
func (s *AuthService) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if s.rdb == nil {
		return false, nil
	}
	n, err := s.rdb.Exists(ctx, "token:blacklist:"+tokenID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// GetCurrentUser 当前用户
func (s *AuthService) GetCurrentUser(ctx context.Context, userID string) (*entity.User, error) {
	return s.userRepo.FindByID(ctx, userID)
}
