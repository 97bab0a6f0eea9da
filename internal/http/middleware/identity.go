// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the principal of a request. A Bearer JWT is verified
// with the configured TokenParser; when AllowUserHeader is set (development
// and tests) an X-User-ID header is accepted instead. The principal id must
// be a UUID because it doubles as the CRM contact id. The resolved user is
// upserted through the optional Upsert hook so inquiries can reference it.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-inquiry-backend/internal/auth"
	"github.com/tbourn/go-inquiry-backend/internal/domain"
)

// HeaderUserID is the development identity header.
const HeaderUserID = "X-User-ID"

// userIDKey is the Gin context key holding the resolved principal id.
const userIDKey = "userID"

// TokenParser verifies a bearer token (auth.JWTer in production).
type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

// UserUpserter persists the principal (repo.UpsertUser bound to a DB).
type UserUpserter func(ctx context.Context, u *domain.ApplicationUser) error

// IdentityOptions configures Identity.
type IdentityOptions struct {
	Tokens          TokenParser  // nil disables bearer tokens
	AllowUserHeader bool         // accept X-User-ID
	Upsert          UserUpserter // optional
}

// CurrentUserID returns the principal resolved by Identity, or "".
func CurrentUserID(c *gin.Context) string {
	s, _ := c.Value(userIDKey).(string)
	return s
}

// Identity authenticates the request and stores the user id under "userID".
// Unauthenticated requests are rejected with 401.
func Identity(opts IdentityOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := resolveUser(c, opts)
		if !ok {
			return
		}

		if opts.Upsert != nil {
			if err := opts.Upsert(c.Request.Context(), user); err != nil {
				lg := LoggerFrom(c)
				lg.Error().Err(err).Msg("user upsert failed")
				abortIdentity(c, http.StatusInternalServerError, "internal_error", "could not resolve user")
				return
			}
		}

		c.Set(userIDKey, user.ID)
		WithLogFields(c, func(z zerolog.Context) zerolog.Context { return z.Str("user_id", user.ID) })
		c.Next()
	}
}

func resolveUser(c *gin.Context, opts IdentityOptions) (*domain.ApplicationUser, bool) {
	if ah := c.GetHeader("Authorization"); ah != "" {
		if opts.Tokens == nil || !strings.HasPrefix(ah, "Bearer ") {
			abortIdentity(c, http.StatusUnauthorized, "unauthorized", "unsupported authorization scheme")
			return nil, false
		}
		claims, err := opts.Tokens.Parse(strings.TrimPrefix(ah, "Bearer "))
		if err != nil {
			abortIdentity(c, http.StatusUnauthorized, "unauthorized", "invalid token")
			return nil, false
		}
		id, ok := canonicalUUID(claims.UID)
		if !ok {
			abortIdentity(c, http.StatusUnauthorized, "unauthorized", "token subject must be a UUID")
			return nil, false
		}
		return &domain.ApplicationUser{
			ID:        id,
			UserName:  claims.UserName,
			Email:     claims.Email,
			FirstName: claims.GivenName,
			LastName:  claims.FamilyName,
		}, true
	}

	if opts.AllowUserHeader {
		if h := strings.TrimSpace(c.GetHeader(HeaderUserID)); h != "" {
			id, ok := canonicalUUID(h)
			if !ok {
				abortIdentity(c, http.StatusUnauthorized, "unauthorized", "X-User-ID must be a UUID")
				return nil, false
			}
			return &domain.ApplicationUser{ID: id}, true
		}
	}

	c.Header("WWW-Authenticate", `Bearer realm="inquiries"`)
	abortIdentity(c, http.StatusUnauthorized, "unauthorized", "authentication required")
	return nil, false
}

// canonicalUUID parses s and returns its lowercase hyphenated form.
func canonicalUUID(s string) (string, bool) {
	id, err := uuid.Parse(strings.TrimSpace(s))
	if err != nil || id == uuid.Nil {
		return "", false
	}
	return id.String(), true
}

func abortIdentity(c *gin.Context, status int, code, msg string) {
	c.AbortWithStatusJSON(status, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       code,
		"message":    msg,
	})
}
