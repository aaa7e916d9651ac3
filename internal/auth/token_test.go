package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueAndValidate(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("super-secret"), time.Hour)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	username, err := issuer.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestValidateExpiredToken(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("secret"), -1*time.Second)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = issuer.Validate(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestValidateWrongKey(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("right-secret"), time.Hour)
	other := NewIssuer([]byte("wrong-secret"), time.Hour)

	token, err := issuer.Issue("alice")
	require.NoError(t, err)

	_, err = other.Validate(token)
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateMalformedToken(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("k"), time.Hour)

	_, err := issuer.Validate("not.a.jwt")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestValidateMissingToken(t *testing.T) {
	t.Parallel()

	issuer := NewIssuer([]byte("k"), time.Hour)

	_, err := issuer.Validate("")
	assert.ErrorIs(t, err, ErrTokenMissing)
}

func TestIndependentIssuersDoNotTrustEachOther(t *testing.T) {
	t.Parallel()

	a := NewIssuer([]byte("key-a"), time.Hour)
	b := NewIssuer([]byte("key-b"), time.Hour)

	token, err := a.Issue("alice")
	require.NoError(t, err)

	_, err = b.Validate(token)
	assert.Error(t, err)
}
