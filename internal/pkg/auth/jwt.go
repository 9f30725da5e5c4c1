/**
 * 工具类:JWT工具
 * @date 2026.10.16
 * @description HS256 令牌签发与校验。载荷只携带 sub(用户ID字符串) 与 type(access/refresh)，
 *              不做服务端吊销，过期是唯一失效方式。
 * @func
 * 	1.CreateAccessToken / CreateRefreshToken 签发
 * 	2.VerifyToken 校验失败返回 nil
 * 	3.DecodeToken 校验失败返回错误
 */

package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType 令牌类型
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// ErrInvalidToken 令牌无法解析、签名错误或已过期
var ErrInvalidToken = errors.New("invalid token")

// TokenClaims 令牌载荷
type TokenClaims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// UserID 将 sub 解析为用户ID
func (c *TokenClaims) UserID() (uint, error) {
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject %q: %w", c.Subject, err)
	}
	return uint(id), nil
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey       []byte
	issuer          string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey, issuer string, accessTokenTTL, refreshTokenTTL time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:       []byte(secretKey),
		issuer:          issuer,
		accessTokenTTL:  accessTokenTTL,
		refreshTokenTTL: refreshTokenTTL,
	}
}

// AccessTokenTTL 默认访问令牌有效期
func (j *JWTManager) AccessTokenTTL() time.Duration { return j.accessTokenTTL }

// RefreshTokenTTL 刷新令牌有效期
func (j *JWTManager) RefreshTokenTTL() time.Duration { return j.refreshTokenTTL }

func (j *JWTManager) sign(subject string, tokenType TokenType, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject cannot be empty")
	}
	now := time.Now()
	claims := &TokenClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secretKey)
}

// CreateAccessToken 签发访问令牌，ttl 为 0 时使用默认有效期
func (j *JWTManager) CreateAccessToken(subject string, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = j.accessTokenTTL
	}
	return j.sign(subject, TokenTypeAccess, ttl)
}

// CreateRefreshToken 签发刷新令牌
func (j *JWTManager) CreateRefreshToken(subject string) (string, error) {
	return j.sign(subject, TokenTypeRefresh, j.refreshTokenTTL)
}

// DecodeToken 解析并校验令牌
func (j *JWTManager) DecodeToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &TokenClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*TokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// VerifyToken 校验令牌，任何失败都返回 nil
func (j *JWTManager) VerifyToken(tokenString string) *TokenClaims {
	claims, err := j.DecodeToken(tokenString)
	if err != nil {
		return nil
	}
	return claims
}

// TokenPair 令牌对
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type"`
}

// CreateTokenPair 为用户签发访问令牌与刷新令牌
func (j *JWTManager) CreateTokenPair(userID uint) (*TokenPair, error) {
	subject := strconv.FormatUint(uint64(userID), 10)
	access, err := j.CreateAccessToken(subject, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to create access token: %w", err)
	}
	refresh, err := j.CreateRefreshToken(subject)
	if err != nil {
		return nil, fmt.Errorf("failed to create refresh token: %w", err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh, TokenType: "bearer"}, nil
}

// ExtractTokenFromHeader 从Authorization头中提取Bearer令牌
func ExtractTokenFromHeader(authHeader string) string {
	const prefix = "bearer "
	if len(authHeader) > len(prefix) && strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return strings.TrimSpace(authHeader[len(prefix):])
	}
	return ""
}
