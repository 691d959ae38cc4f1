// Package crypto holds the hashing helpers used to recognise photos that
// were already identified.
package crypto

import (
	"encoding/hex"
	"errors"

	"golang.org/x/crypto/blake2b"
)

var ErrEmptyInput = errors.New("cannot fingerprint empty input")

// FingerprintSize is the digest length in bytes.
const FingerprintSize = 32

// Fingerprint returns the hex encoded BLAKE2b-256 digest of data.
// The same bytes always give the same fingerprint, which makes it usable as
// a cache key and as the gallery dedupe key.
func Fingerprint(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyInput
	}
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// KeyedFingerprint mixes a scope (for example the MIME type) into the digest
// so identical bytes under different scopes get different keys.
func KeyedFingerprint(scope string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyInput
	}
	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	h.Write([]byte(scope))
	h.Write([]byte{0})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil)), nil
}
