package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hubgate/hubgate/internal/config"
)

func TestAddAndVerify(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore(nil)
	require.NoError(t, store.Add("alice", "correct horse battery staple"))

	assert.True(t, store.Verify("alice", "correct horse battery staple"))
	assert.False(t, store.Verify("alice", "wrong password"))
	assert.False(t, store.Verify("bob", "correct horse battery staple"))
}

func TestAddReplacesExistingUser(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore(nil)
	require.NoError(t, store.Add("alice", "first"))
	require.NoError(t, store.Add("alice", "second"))

	assert.False(t, store.Verify("alice", "first"))
	assert.True(t, store.Verify("alice", "second"))
}

func TestAddGeneratesDistinctSalts(t *testing.T) {
	t.Parallel()

	users := make(map[string]config.UserRecord)
	store := NewCredentialStore(users)
	require.NoError(t, store.Add("alice", "same password"))
	require.NoError(t, store.Add("bob", "same password"))

	assert.NotEqual(t, users["alice"].Salt, users["bob"].Salt)
	assert.NotEqual(t, users["alice"].Hash, users["bob"].Hash)
}

func TestRemoveIsIdempotent(t *testing.T) {
	t.Parallel()

	store := NewCredentialStore(nil)
	require.NoError(t, store.Add("alice", "pw"))

	store.Remove("alice")
	assert.False(t, store.Has("alice"))

	// Second removal, and removal of a user that never existed, are no-ops.
	store.Remove("alice")
	store.Remove("nobody")
	assert.False(t, store.Verify("alice", "pw"))
}

func TestStoreMutationsVisibleInBackingMap(t *testing.T) {
	t.Parallel()

	users := make(map[string]config.UserRecord)
	store := NewCredentialStore(users)
	require.NoError(t, store.Add("alice", "pw"))

	record, ok := users["alice"]
	require.True(t, ok)
	assert.NotEmpty(t, record.Hash)
	assert.NotEmpty(t, record.Salt)
	assert.NotContains(t, record.Hash, "pw")
}
