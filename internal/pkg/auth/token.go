package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kmathenge/powervend/internal/pkg/env"
)

// Claims is the JWT payload carried by every issued access token.
type Claims struct {
	UserID uint   `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// TokenService handles JWT creation and validation.
type TokenService struct {
	secret    []byte
	expiresIn time.Duration
}

// NewTokenService returns a configured token service.
func NewTokenService(secret string, expiresIn time.Duration) *TokenService {
	if expiresIn <= 0 {
		expiresIn = 30 * time.Minute
	}
	return &TokenService{secret: []byte(secret), expiresIn: expiresIn}
}

// NewTokenServiceFromEnv builds a token service from JWT_SECRET and
// JWT_EXPIRES_MINUTES.
func NewTokenServiceFromEnv() *TokenService {
	minutes, err := strconv.Atoi(env.GetEnv("JWT_EXPIRES_MINUTES", "30"))
	if err != nil || minutes <= 0 {
		minutes = 30
	}
	return NewTokenService(env.GetEnv("JWT_SECRET", "dev-only-secret"), time.Duration(minutes)*time.Minute)
}

// GenerateToken issues a JWT for the given user.
func (t *TokenService) GenerateToken(userID uint, role string) (string, error) {
	if userID == 0 {
		return "", errors.New("token: user id is required")
	}

	now := time.Now().UTC()
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.expiresIn)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// ValidateToken verifies and decodes a JWT.
func (t *TokenService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("token: unexpected signing method")
		}
		return t.secret, nil
	})
	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("token: invalid claims")
}
