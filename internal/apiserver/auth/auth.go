// Package auth 用户认证：JWT 令牌管理、密码哈希、HTTP 认证/授权门
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"student-market/internal/shared/model"
)

// 认证/授权错误分类
var (
	// ErrTokenMissing 请求未携带 Bearer 凭证
	ErrTokenMissing = errors.New("missing bearer token")
	// ErrTokenInvalid 签名或结构非法
	ErrTokenInvalid = errors.New("invalid token")
	// ErrTokenExpired 令牌已过期
	ErrTokenExpired = errors.New("token expired")
	// ErrForbidden 角色不满足要求
	ErrForbidden = errors.New("forbidden")
)

// Identity 从 JWT 解析出的调用方身份
type Identity struct {
	ID   string
	Role model.UserRole
}

// IsAdmin 是否为管理员
func (id *Identity) IsAdmin() bool {
	return id != nil && id.Role == model.UserRoleAdmin
}

// Config 认证配置
type Config struct {
	JWTSecret      string
	AccessTokenTTL time.Duration
}

// DefaultConfig 返回默认认证配置
func DefaultConfig() Config {
	return Config{AccessTokenTTL: 7 * 24 * time.Hour}
}

// ============================================================================
// 密码哈希
// ============================================================================

// bcryptCost 与原系统一致
const bcryptCost = 11

// HashPassword 使用 bcrypt 哈希密码
// 只在密码被设置或变更时调用；重新保存未变更的哈希不得重复哈希
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(bytes), err
}

// CheckPassword 验证密码
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CredentialStore 凭证校验所需的最小存储接口
type CredentialStore interface {
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
}

// VerifyCredentials 按邮箱查找并验证密码
//
// 账号不存在与密码错误统一返回 (nil, nil)，对调用方不可区分，
// 避免泄露账号是否注册。只有存储故障才返回 error。
func VerifyCredentials(ctx context.Context, store CredentialStore, email, password string) (*model.User, error) {
	user, err := store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !CheckPassword(password, user.PasswordHash) {
		return nil, nil
	}
	return user, nil
}

// ============================================================================
// JWT Token
// ============================================================================

// Claims JWT 声明
type Claims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

// IssueToken 签发访问令牌（HS256，subject 为用户 ID）
func IssueToken(cfg Config, userID string, role model.UserRole) (string, error) {
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(cfg.AccessTokenTTL)),
		},
		Role: string(role),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(cfg.JWTSecret))
}

// VerifyToken 解析并验证 JWT，返回调用方身份
//
// 校验是全有或全无的：过期返回 ErrTokenExpired，
// 其余一切签名/结构问题返回 ErrTokenInvalid。
func VerifyToken(cfg Config, tokenString string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(cfg.JWTSecret), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	return &Identity{ID: claims.Subject, Role: model.UserRole(claims.Role)}, nil
}
