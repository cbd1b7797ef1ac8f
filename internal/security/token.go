package security

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AdminClaims are the JWT claims carried by admin API tokens.
type AdminClaims struct {
	jwt.RegisteredClaims
	TenantID    string   `json:"tid"`             // Tenant the caller acts for.
	Username    string   `json:"username"`        // Operator name stamped on history.
	Permissions []string `json:"perms,omitempty"` // Permission keys; ignored for super admins.
	SuperAdmin  bool     `json:"super,omitempty"` // Bypasses permission checks.
}

// ErrEmptySecret is returned when signing or parsing without a secret.
var ErrEmptySecret = errors.New("security: jwt secret is empty")

// IssueAdminToken signs claims with HS256 and the configured expiry.
func IssueAdminToken(secret string, claims AdminClaims, expiry time.Duration, now time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrEmptySecret
	}
	if claims.Subject == "" {
		claims.Subject = claims.Username
	}
	claims.IssuedAt = jwt.NewNumericDate(now)
	if expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(expiry))
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, errSign := token.SignedString([]byte(secret))
	if errSign != nil {
		return "", fmt.Errorf("security: sign token: %w", errSign)
	}
	return signed, nil
}

// ParseAdminToken validates an HS256 token and returns its claims.
func ParseAdminToken(secret, tokenString string) (*AdminClaims, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, ErrEmptySecret
	}
	claims := &AdminClaims{}
	token, errParse := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if errParse != nil {
		return nil, fmt.Errorf("security: parse token: %w", errParse)
	}
	if !token.Valid {
		return nil, fmt.Errorf("security: invalid token")
	}
	if strings.TrimSpace(claims.TenantID) == "" {
		return nil, fmt.Errorf("security: token has no tenant")
	}
	return claims, nil
}
