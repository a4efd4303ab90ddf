// Package token 提供了本地 UI 网关使用的 JSON Web Tokens (JWT)。
package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// KindUI 是访问 /api/v1 的令牌
	KindUI = "ui"
	// KindStream 是建立状态推送 websocket 的一次性短期令牌，见 ConsumeStreamToken
	KindStream = "stream"
)

// JWTManager 负责管理 JWT 的生成和验证。
type JWTManager struct {
	secretKey      []byte        // secretKey 用于签名和验证 token 的密钥
	uiTokenDur     time.Duration // uiTokenDur 定义了 UI token 的有效期
	streamTokenDur time.Duration // streamTokenDur 定义了 stream token 的有效期

	mu   sync.Mutex
	used map[string]time.Time // 已使用的 stream token jti -> 过期时间
}

// CustomClaims 在标准声明之外记录令牌用途。
type CustomClaims struct {
	Kind string `json:"kind"`
	jwt.RegisteredClaims
}

// NewJWTManager 创建一个新的 JWTManager 实例。
func NewJWTManager(secret string, uiTokenExpireHours int, streamTokenTTL time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:      []byte(secret),
		uiTokenDur:     time.Duration(uiTokenExpireHours) * time.Hour,
		streamTokenDur: streamTokenTTL,
		used:           make(map[string]time.Time),
	}
}

// GenerateUIToken 为 UI 客户端签发访问令牌。
func (m *JWTManager) GenerateUIToken(subject string) (string, error) {
	return m.generate(KindUI, subject, m.uiTokenDur)
}

// GenerateStreamToken 签发建立 websocket 用的短期令牌。
func (m *JWTManager) GenerateStreamToken(subject string) (string, error) {
	return m.generate(KindStream, subject, m.streamTokenDur)
}

func (m *JWTManager) generate(kind, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := CustomClaims{
		Kind: kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ID:        GenerateRandomString(8),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", kind, err)
	}
	return signed, nil
}

// VerifyToken 验证 token 字符串及其用途。
// 签名不匹配、已过期或用途不符时返回错误。
func (m *JWTManager) VerifyToken(tokenString, kind string) (*CustomClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		// 检查签名方法是否为 HMAC
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secretKey, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*CustomClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.Kind != kind {
		return nil, fmt.Errorf("token kind %q cannot be used as %q", claims.Kind, kind)
	}
	return claims, nil
}

// ConsumeStreamToken 校验 stream token 并将其标记为已使用。
// 令牌只能使用一次，且 subject 必须与签发时一致。
func (m *JWTManager) ConsumeStreamToken(tokenString, subject string) (*CustomClaims, error) {
	claims, err := m.VerifyToken(tokenString, KindStream)
	if err != nil {
		return nil, err
	}
	if claims.Subject != subject {
		return nil, fmt.Errorf("stream token issued to %q, presented by %q", claims.Subject, subject)
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return nil, errors.New("stream token has no jti or expiry")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, exp := range m.used {
		if now.After(exp) {
			delete(m.used, id)
		}
	}
	if _, seen := m.used[claims.ID]; seen {
		return nil, errors.New("stream token already used")
	}
	m.used[claims.ID] = claims.ExpiresAt.Time
	return claims, nil
}

// GenerateRandomString generates a random hex string of a given length.
func GenerateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to a less random string on error
		return fmt.Sprintf("fallback%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(bytes)
}
