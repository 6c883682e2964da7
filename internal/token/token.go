// Package token implements the session token codec and the password-reset
// secret helpers.  Session tokens are signed HS256 JWTs carrying only the
// subject id and issue time; nothing is stored server-side, so validity is
// computed from the signature, the fixed lifetime and (at the middleware
// layer) the subject's password-changed-at timestamp.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Verification failures.  Callers branch on these with errors.Is; the guard
// middleware maps each to its own 401 message.
var (
	ErrMalformed    = errors.New("malformed token")
	ErrBadSignature = errors.New("invalid token signature")
	ErrExpired      = errors.New("token expired")
)

// Session is an issued token together with the timestamps handlers need to
// build the matching cookie.
type Session struct {
	Token     string    // the serialized JWT
	IssuedAt  time.Time // UTC issue time, second precision
	ExpiresAt time.Time // IssuedAt plus the configured lifetime
}

// Codec signs and verifies session tokens.  The signing key is fixed at
// construction: it is process-wide configuration, passed in explicitly so
// tests can run with their own keys.  Codec is stateless after construction
// and safe for concurrent use.
type Codec struct {
	secret   []byte
	lifetime time.Duration
}

// NewCodec returns a codec signing with secret; issued tokens expire after
// lifetime.
func NewCodec(secret string, lifetime time.Duration) *Codec {
	return &Codec{secret: []byte(secret), lifetime: lifetime}
}

// Issue signs a session token for the given subject.  The issue time is the
// server clock in UTC, truncated to whole seconds (JWT timestamp precision).
func (c *Codec) Issue(subjectID uint64) (Session, error) {
	now := time.Now().UTC().Truncate(time.Second)
	exp := now.Add(c.lifetime)
	claims := jwt.RegisteredClaims{
		Subject:   strconv.FormatUint(subjectID, 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify parses and validates a session token, returning the subject id and
// issue time.  Failures are reported as ErrMalformed, ErrBadSignature or
// ErrExpired; no other error shape escapes to callers.
func (c *Codec) Verify(raw string) (uint64, time.Time, error) {
	var claims jwt.RegisteredClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		// Reject any signing method other than HMAC before touching the key.
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrBadSignature
		}
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return 0, time.Time{}, ErrExpired
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, ErrBadSignature):
			return 0, time.Time{}, ErrBadSignature
		default:
			return 0, time.Time{}, ErrMalformed
		}
	}
	if !tok.Valid || claims.IssuedAt == nil {
		return 0, time.Time{}, ErrMalformed
	}
	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, time.Time{}, ErrMalformed
	}
	return id, claims.IssuedAt.Time, nil
}

// Lifetime reports the configured token lifetime.
func (c *Codec) Lifetime() time.Duration { return c.lifetime }

// NewResetSecret returns a cryptographically random password-reset secret as
// a 64-character hex string.  The plaintext goes to the user exactly once;
// only its digest is ever stored.
func NewResetSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// HashResetSecret returns the SHA-256 hex digest of a reset secret.  The
// digest is what gets persisted and later matched on consumption, so a
// leaked database row cannot be replayed as a reset link.
func HashResetSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
