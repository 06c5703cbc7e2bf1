// Package auth issues and checks the session tokens handed out at login.
package auth

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/golang-jwt/jwt/v5"
)

const issuer = "scrape-portal"

// Claims identifies the logged-in user. Email is the trusted identity every
// job and result lookup is scoped by.
type Claims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"uid"`
	Email  string `json:"email"`
}

// JWTManager signs and validates HS256 tokens.
type JWTManager struct {
	secret []byte
	ttl    time.Duration
}

func NewJWTManager(secret string, ttl time.Duration) (*JWTManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &JWTManager{secret: []byte(secret), ttl: ttl}, nil
}

// GenerateToken creates a token for the given user.
func (m *JWTManager) GenerateToken(userID uint, email string) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    issuer,
		},
		UserID: userID,
		Email:  email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token")
	}
	return signed, nil
}

// ValidateToken parses tokenString and returns its claims.
func (m *JWTManager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.Newf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return nil, errors.Wrap(err, "invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token claims")
	}
	if claims.Email == "" {
		return nil, errors.New("token carries no email")
	}
	return claims, nil
}

// TTL is how long issued tokens stay valid.
func (m *JWTManager) TTL() time.Duration {
	return m.ttl
}
