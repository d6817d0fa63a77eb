// Package auth issues and verifies the HS256 access tokens used by the API.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Mahmoudramadan21/Bookify/internal/domain"
	"github.com/Mahmoudramadan21/Bookify/pkg/middleware"
)

const issuer = "bookify"

// Claims are the access token claims.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates access tokens.
type JWTManager struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

func NewJWTManager(secret string, expiry time.Duration) *JWTManager {
	return &JWTManager{secret: []byte(secret), expiry: expiry, now: time.Now}
}

// Generate creates a signed access token for u.
func (m *JWTManager) Generate(u *domain.User) (string, error) {
	now := m.now().UTC()
	claims := &Claims{
		UserID: u.ID,
		Email:  u.Email,
		Role:   string(u.Role()),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiry)),
			Issuer:    issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Validate parses tokenString and returns its claims. Tokens signed with any
// method other than HMAC are rejected.
func (m *JWTManager) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithIssuer(issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		return nil, fmt.Errorf("parse access token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid access token claims")
	}
	if claims.UserID == "" {
		return nil, errors.New("access token has no user id")
	}
	return claims, nil
}

// Authenticator adapts m to the HTTP authentication middleware.
func (m *JWTManager) Authenticator() middleware.Authenticator {
	return func(_ context.Context, token string) (middleware.Identity, error) {
		claims, err := m.Validate(token)
		if err != nil {
			return middleware.Identity{}, err
		}
		return middleware.Identity{
			UserID:  claims.UserID,
			Email:   claims.Email,
			IsAdmin: claims.Role == string(domain.RoleAdmin),
		}, nil
	}
}
