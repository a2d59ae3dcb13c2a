package security

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	token, err := GenerateSessionToken("secret", "user-1", "sess-1", time.Hour)
	require.NoError(t, err)

	claims, err := VerifySessionToken(token, "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "sess-1", claims.SessionID)
}

func TestVerifySessionTokenIgnoresExpiry(t *testing.T) {
	token, err := GenerateSessionToken("secret", "user-1", "sess-1", -time.Hour)
	require.NoError(t, err)

	_, err = VerifySessionToken(token, "secret")
	assert.NoError(t, err)
}

func TestVerifySessionTokenRejectsForgery(t *testing.T) {
	token, err := GenerateSessionToken("secret", "user-1", "sess-1", time.Hour)
	require.NoError(t, err)

	_, err = VerifySessionToken(token, "other-secret")
	assert.ErrorIs(t, err, ErrMalformedToken)

	_, err = VerifySessionToken("not-a-token", "secret")
	assert.ErrorIs(t, err, ErrMalformedToken)
}

func TestHashTokenStable(t *testing.T) {
	assert.Equal(t, HashToken("abc"), HashToken("abc"))
	assert.NotEqual(t, HashToken("abc"), HashToken("abd"))
	assert.Len(t, HashToken("abc"), 32)
}
