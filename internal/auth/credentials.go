// Package auth implements the gateway's two trust primitives: the credential
// store, which verifies username/password pairs against salted argon2id
// hashes, and the session issuer, which mints and validates signed
// time-bounded tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/hubgate/hubgate/internal/config"
)

// argon2id parameters for password hashing.
const (
	hashTime    = 1
	hashMemory  = 64 * 1024
	hashThreads = 4
	hashKeyLen  = 32
	saltLen     = 16
)

// CredentialStore verifies and manages user credentials backed by the
// configuration file's user table. Plaintext passwords are hashed immediately
// and never stored or logged.
type CredentialStore struct {
	mu    sync.RWMutex
	users map[string]config.UserRecord
}

// NewCredentialStore wraps an existing user table. The map is used directly,
// so mutations through Add and Remove are visible to the config on Save.
func NewCredentialStore(users map[string]config.UserRecord) *CredentialStore {
	if users == nil {
		users = make(map[string]config.UserRecord)
	}
	return &CredentialStore{users: users}
}

func hashPassword(password string, salt []byte) []byte {
	return argon2.IDKey([]byte(password), salt, hashTime, hashMemory, hashThreads, hashKeyLen)
}

// Add stores a user with a fresh random salt and the argon2id hash of
// salt+password. An existing user's credentials are replaced.
func (s *CredentialStore) Add(username, password string) error {
	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generating salt: %w", err)
	}

	hash := hashPassword(password, salt)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[username] = config.UserRecord{
		Hash: hex.EncodeToString(hash),
		Salt: hex.EncodeToString(salt),
	}
	return nil
}

// Remove deletes a user. Removing an absent user is a no-op.
func (s *CredentialStore) Remove(username string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, username)
}

// Has reports whether a user exists.
func (s *CredentialStore) Has(username string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.users[username]
	return ok
}

// Verify recomputes the hash with the stored salt and compares it to the
// stored hash in constant time.
func (s *CredentialStore) Verify(username, password string) bool {
	s.mu.RLock()
	record, ok := s.users[username]
	s.mu.RUnlock()
	if !ok {
		return false
	}

	salt, err := hex.DecodeString(record.Salt)
	if err != nil {
		return false
	}
	stored, err := hex.DecodeString(record.Hash)
	if err != nil {
		return false
	}

	computed := hashPassword(password, salt)
	return subtle.ConstantTimeCompare(computed, stored) == 1
}
