package session

import (
	"errors"
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
)

// ErrNoSession is returned by Claims when no token is set.
var ErrNoSession = errors.New("session: no token")

// Claims is the payload issued by the news API on login.
type Claims struct {
	UserID int64    `json:"userId"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// HasRole reports whether the token carries role.
func (c *Claims) HasRole(role string) bool {
	return slices.Contains(c.Roles, role)
}

// ParseClaims decodes token without verifying its signature. It is meant for
// navigation decisions only; the API verifies the token on every request.
func ParseClaims(token string) (*Claims, error) {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("session: malformed token: %w", err)
	}
	return claims, nil
}

// Claims decodes the current token.
func (s *Store) Claims() (*Claims, error) {
	token, ok := s.Get()
	if !ok {
		return nil, ErrNoSession
	}
	return ParseClaims(token)
}
