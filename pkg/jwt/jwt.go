package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("expired token")
)

// OwnerClaims is the JWT payload for an authenticated site owner session
type OwnerClaims struct {
	jwt.RegisteredClaims
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
}

// Manager signs and verifies owner session tokens
type Manager struct {
	secretKey []byte
	expiresIn time.Duration
}

// NewManager creates a new JWT manager
func NewManager(secret string, expiresIn time.Duration) *Manager {
	return &Manager{
		secretKey: []byte(secret),
		expiresIn: expiresIn,
	}
}

// GenerateToken issues a signed owner session token
func (m *Manager) GenerateToken(userID, email string) (string, error) {
	now := time.Now()
	claims := &OwnerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiresIn)),
			Subject:   userID,
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// VerifyToken parses and validates an owner session token
func (m *Manager) VerifyToken(tokenString string) (*OwnerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &OwnerClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secretKey, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if claims, ok := token.Claims.(*OwnerClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, ErrInvalidToken
}
