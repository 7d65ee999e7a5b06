// Package cryptox wraps the password hashing and token fingerprinting used by
// the identity store and the token blacklist.
package cryptox

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest input bcrypt accepts.
const MaxPasswordBytes = 72

var (
	dummyMu     sync.Mutex
	dummyHashes = map[int][]byte{}
)

func normalizeCost(cost int) int {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return bcrypt.DefaultCost
	}
	return cost
}

// HashPassword returns a salted bcrypt hash of password. A cost outside
// bcrypt's bounds falls back to bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), normalizeCost(cost))
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// CheckPassword reports whether password matches the stored bcrypt hash.
func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// DummyCheck burns roughly the same time as CheckPassword against a hash made
// with the given cost. Call it with the cost real accounts are hashed at when
// the account lookup missed, so that response timing does not reveal whether
// an email is registered.
func DummyCheck(password string, cost int) {
	_ = bcrypt.CompareHashAndPassword(dummyHash(cost), []byte(password))
}

// dummyHash returns a random-password hash at cost, computed once per cost.
func dummyHash(cost int) []byte {
	cost = normalizeCost(cost)

	dummyMu.Lock()
	defer dummyMu.Unlock()
	if h, ok := dummyHashes[cost]; ok {
		return h
	}
	h, err := bcrypt.GenerateFromPassword(common.GenerateRandByteArray(32), cost)
	if err != nil {
		panic(err)
	}
	dummyHashes[cost] = h
	return h
}

// IsPasswordTooLong reports bcrypt's input length rejection.
func IsPasswordTooLong(err error) bool {
	return errors.Is(err, bcrypt.ErrPasswordTooLong)
}

// Fingerprint returns the hex SHA-256 of a raw token. The blacklist stores
// fingerprints, never the tokens themselves.
func Fingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
