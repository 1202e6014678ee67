package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// tokenTTL is how long an issued token stays valid
const tokenTTL = 24 * time.Hour

// Claims carries the traveler identity embedded in every token: the user ID
// used for participant resolution plus the email and system role shown in
// API responses.
type Claims struct {
	UserID     uint   `json:"user_id"`
	Email      string `json:"email"`
	SystemRole string `json:"system_role"`
	jwt.RegisteredClaims
}

// signingSecret resolves the HMAC key. WAYFARE_JWT_SECRET must be set in
// production; the fallback exists so a fresh checkout runs without setup.
func signingSecret() []byte {
	if secret := os.Getenv("WAYFARE_JWT_SECRET"); secret != "" {
		return []byte(secret)
	}
	return []byte("wayfare-dev-secret-change-in-production")
}

// GenerateToken issues a signed token for the given traveler
func GenerateToken(userID uint, email string, systemRole string) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:     userID,
		Email:      email,
		SystemRole: systemRole,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "wayfare",
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingSecret())
}

// ValidateToken parses and verifies a token, returning its claims. Expired
// tokens are reported distinctly so the middleware can say so.
func ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		// Only HMAC is ever issued; anything else is a forgery attempt
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return signingSecret(), nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
