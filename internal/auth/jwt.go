package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenTTL is how long an issued API token stays valid
const TokenTTL = 24 * time.Hour

const tokenIssuer = "investment-bot"

// Role scopes what an API token may reach
type Role string

const (
	RoleInvestor Role = "investor"
	RoleAdmin    Role = "admin"
)

var (
	jwtSecret []byte

	ErrSecretNotInitialized = errors.New("JWT secret not initialized")
	ErrUnknownRole          = errors.New("unknown token role")
)

// InitJWT initializes the JWT secret
func InitJWT(secret string) {
	jwtSecret = []byte(secret)
}

// Claims identify a telegram user and the role the token was issued for
type Claims struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

// IsAdmin reports whether the token was issued to an administrator
func (c *Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// GenerateToken signs a token for a telegram user
func GenerateToken(userID int64, role Role) (string, error) {
	if len(jwtSecret) == 0 {
		return "", ErrSecretNotInitialized
	}
	if role != RoleInvestor && role != RoleAdmin {
		return "", ErrUnknownRole
	}

	now := time.Now()
	claims := &Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   strconv.FormatInt(userID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken checks signature, issuer and expiry, and that the subject
// matches the user id claim.
func ValidateToken(tokenString string) (*Claims, error) {
	if len(jwtSecret) == 0 {
		return nil, ErrSecretNotInitialized
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(token *jwt.Token) (interface{}, error) { return jwtSecret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if claims.Subject != strconv.FormatInt(claims.UserID, 10) {
		return nil, fmt.Errorf("subject %q does not match user %d", claims.Subject, claims.UserID)
	}
	if claims.Role != RoleInvestor && claims.Role != RoleAdmin {
		return nil, ErrUnknownRole
	}
	return claims, nil
}
