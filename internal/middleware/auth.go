package middleware // middleware provides shared request processing for handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/roamly/tour-booking-api/internal/model"
	"github.com/roamly/tour-booking-api/internal/repository"
	"github.com/roamly/tour-booking-api/internal/token"
)

// SessionCookie is the name of the cookie carrying the session token for
// browser clients.  API clients use the Authorization header instead.
const SessionCookie = "jwt"

// userContextKey is where Protect/OptionalAuth stash the resolved user on
// the echo context.  Downstream code goes through CurrentUser /
// MustCurrentUser rather than touching the key directly.
const userContextKey = "auth.current_user"

// UserLoader is the slice of the credential store the guard needs: resolve
// a token subject to a live user record.
type UserLoader interface {
	GetByID(ctx context.Context, id uint64) (model.User, error)
}

// Protect returns middleware that only lets authenticated requests through.
// It extracts the token (Authorization bearer first, session cookie as the
// fallback), verifies it, loads the subject and rejects sessions issued
// before the user's last password change.  On success the user is attached
// to the request context for handlers and any view layer to pick up.
func Protect(codec *token.Codec, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, failMsg := resolveUser(c, codec, users)
			if failMsg != "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"status": "fail", "message": failMsg})
			}
			c.Set(userContextKey, u)
			return next(c)
		}
	}
}

// OptionalAuth runs the same resolution as Protect but never rejects the
// request: pages that merely personalize when a session rides along use
// this.  On any failure the request simply proceeds anonymously.
func OptionalAuth(codec *token.Codec, users UserLoader) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if u, failMsg := resolveUser(c, codec, users); failMsg == "" {
				c.Set(userContextKey, u)
			}
			return next(c)
		}
	}
}

// resolveUser walks the guard steps and returns either the resolved user or
// a client-facing failure message.  The message doubles as the failure
// signal: it is empty exactly when resolution succeeded.
func resolveUser(c echo.Context, codec *token.Codec, users UserLoader) (model.User, string) {
	raw := extractToken(c)
	if raw == "" {
		return model.User{}, "you are not logged in, please log in to get access"
	}

	subjectID, issuedAt, err := codec.Verify(raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrExpired):
			return model.User{}, "your session has expired, please log in again"
		case errors.Is(err, token.ErrBadSignature):
			return model.User{}, "invalid token signature"
		default:
			return model.User{}, "malformed token"
		}
	}

	u, err := users.GetByID(c.Request().Context(), subjectID)
	if err != nil || !u.IsActive {
		// The account was deleted or deactivated after the token was issued.
		return model.User{}, "the user belonging to this token no longer exists"
	}

	// A password change invalidates every token issued at or before the
	// change.  This comparison is the only bulk-revocation channel in the
	// stateless token design.
	if u.PasswordChangedAt != nil && !u.PasswordChangedAt.Before(issuedAt) {
		return model.User{}, "password was changed after this token was issued, please log in again"
	}

	return u, ""
}

// extractToken pulls the session token from the Authorization header,
// falling back to the session cookie.
func extractToken(c echo.Context) string {
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	if ck, err := c.Cookie(SessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	return ""
}

// RequireRole returns middleware that restricts a route to the given roles.
// It must run after Protect; calling it on a route with no resolved user is
// a wiring bug, not a client error, so it panics rather than mapping to a
// 401/403.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := MustCurrentUser(c)
			if !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{
					"status":  "fail",
					"message": "you do not have permission to perform this action",
				})
			}
			return next(c)
		}
	}
}

// CurrentUser returns the user resolved by Protect or OptionalAuth, and
// whether one is present.
func CurrentUser(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userContextKey).(model.User)
	return u, ok
}

// MustCurrentUser returns the resolved user and panics when there is none.
// Only use on routes behind Protect.
func MustCurrentUser(c echo.Context) model.User {
	u, ok := CurrentUser(c)
	if !ok {
		panic("middleware: route requires Protect before role/ownership checks")
	}
	return u
}

// The full credential store satisfies the narrow loader interface.
var _ UserLoader = repository.UserStore(nil)
