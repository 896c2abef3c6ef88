package auth

import (
	"errors"
	"fmt"
	"time"

	"aiinfra/internal/config"

	"github.com/golang-jwt/jwt/v4"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingUser  = errors.New("token has no subject")
)

// UserClaims are the claims of a session token. The subject is the user id
// that scopes every provider and model row.
type UserClaims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// UserID returns the token subject.
func (c *UserClaims) UserID() string {
	return c.Subject
}

// HasRole reports whether any of the token roles grants required.
func (c *UserClaims) HasRole(required Role) bool {
	for _, r := range c.Roles {
		if Role(r).HasPermission(required) {
			return true
		}
	}
	return false
}

// GenerateUserJWT issues a token for userID valid for cfg.JWTTTL.
// Without roles the token is an editor token.
func GenerateUserJWT(userID string, cfg *config.Config, roles ...Role) (string, int64, error) {
	if userID == "" {
		return "", 0, ErrMissingUser
	}
	if len(roles) == 0 {
		roles = []Role{RoleEditor}
	}

	ttl := cfg.JWTTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	now := time.Now()
	expiresAt := now.Add(ttl)

	names := make([]string, 0, len(roles))
	for _, r := range roles {
		if !r.IsValid() {
			return "", 0, fmt.Errorf("invalid role %q", r)
		}
		names = append(names, r.String())
	}

	claims := UserClaims{
		Roles: names,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedToken, err := token.SignedString(cfg.JWTSecret)
	if err != nil {
		return "", 0, err
	}
	return signedToken, expiresAt.Unix(), nil
}

// ValidateUserJWT verifies the signature and expiry of tokenString.
func ValidateUserJWT(tokenString string, cfg *config.Config) (*UserClaims, error) {
	claims := &UserClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return cfg.JWTSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, ErrMissingUser
	}
	return claims, nil
}
