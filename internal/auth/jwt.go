// Package auth issues and verifies the HS256 bearer tokens that identify
// the principal of a request.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken is returned for tokens that parse but fail validation.
var ErrInvalidToken = errors.New("invalid token")

// Claims carries the principal. UID is the user's UUID, which doubles as the
// CRM contact id.
type Claims struct {
	UID        string `json:"uid"`
	UserName   string `json:"preferred_username,omitempty"`
	Email      string `json:"email,omitempty"`
	GivenName  string `json:"given_name,omitempty"`
	FamilyName string `json:"family_name,omitempty"`
	jwt.RegisteredClaims
}

// JWTer signs and parses tokens with a shared secret.
type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
}

// Issue signs c, stamping issuer and validity window.
func (j *JWTer) Issue(c Claims) (string, error) {
	now := time.Now()
	c.Issuer = j.Issuer
	c.IssuedAt = jwt.NewNumericDate(now)
	ttl := j.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	c.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	if c.Subject == "" {
		c.Subject = c.UID
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(j.Secret)
}

// Parse verifies tokenStr and returns its claims.
func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	opts := []jwt.ParserOption{jwt.WithLeeway(60 * time.Second), jwt.WithExpirationRequired()}
	if j.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(j.Issuer))
	}
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg %v", token.Header["alg"])
		}
		return j.Secret, nil
	}, opts...)
	if err != nil {
		return nil, err
	}
	c, ok := t.Claims.(*Claims)
	if !ok || !t.Valid {
		return nil, ErrInvalidToken
	}
	if c.UID == "" {
		c.UID = c.Subject
	}
	if c.UID == "" {
		return nil, ErrInvalidToken
	}
	return c, nil
}
