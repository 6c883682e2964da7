package token

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewCodec("test-secret", time.Hour)
	for _, id := range []uint64{1, 42, 18446744073709551615} {
		sess, err := c.Issue(id)
		require.NoError(t, err)
		require.NotEmpty(t, sess.Token)
		assert.Equal(t, sess.IssuedAt.Add(time.Hour), sess.ExpiresAt)

		gotID, gotIssued, err := c.Verify(sess.Token)
		require.NoError(t, err)
		assert.Equal(t, id, gotID)
		assert.True(t, gotIssued.Equal(sess.IssuedAt))
	}
}

func TestVerifyExpired(t *testing.T) {
	t.Parallel()

	c := NewCodec("test-secret", -time.Minute)
	sess, err := c.Issue(7)
	require.NoError(t, err)

	_, _, err = c.Verify(sess.Token)
	require.ErrorIs(t, err, ErrExpired)
}

func TestVerifyNotExpiredWithinLifetime(t *testing.T) {
	t.Parallel()

	// A short but still-live lifetime must verify cleanly.
	c := NewCodec("test-secret", 2*time.Second)
	sess, err := c.Issue(7)
	require.NoError(t, err)

	_, _, err = c.Verify(sess.Token)
	require.NoError(t, err)
}

func TestVerifyWrongKey(t *testing.T) {
	t.Parallel()

	issuer := NewCodec("right-secret", time.Hour)
	verifier := NewCodec("wrong-secret", time.Hour)

	sess, err := issuer.Issue(9)
	require.NoError(t, err)

	_, _, err = verifier.Verify(sess.Token)
	require.ErrorIs(t, err, ErrBadSignature)
}

func TestVerifyMalformed(t *testing.T) {
	t.Parallel()

	c := NewCodec("test-secret", time.Hour)
	for _, raw := range []string{"", "garbage", "not.a.jwt", "a.b.c.d"} {
		_, _, err := c.Verify(raw)
		assert.ErrorIs(t, err, ErrMalformed, "input %q", raw)
	}
}

func TestVerifyRejectsDistinctCodecKeys(t *testing.T) {
	t.Parallel()

	// Two codecs with independent keys must not accept each other's
	// tokens: the signing key is injected configuration, not shared
	// process state.
	a := NewCodec("key-a", time.Hour)
	b := NewCodec("key-b", time.Hour)

	sess, err := a.Issue(3)
	require.NoError(t, err)
	_, _, err = b.Verify(sess.Token)
	require.Error(t, err)
}

func TestNewResetSecret(t *testing.T) {
	t.Parallel()

	s1, err := NewResetSecret()
	require.NoError(t, err)
	s2, err := NewResetSecret()
	require.NoError(t, err)

	assert.Len(t, s1, 64)
	assert.NotEqual(t, s1, s2)
}

func TestHashResetSecret(t *testing.T) {
	t.Parallel()

	d1 := HashResetSecret("some-secret")
	d2 := HashResetSecret("some-secret")
	d3 := HashResetSecret("other-secret")

	assert.Equal(t, d1, d2)
	assert.NotEqual(t, d1, d3)
	assert.Len(t, d1, 64)
	assert.NotContains(t, d1, "some-secret")
}
