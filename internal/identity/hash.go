// Package identity implements the content-addressed identity scheme for
// graph entities.
//
// The hashing rule is a frozen contract (HashContractVersion): fields are
// joined with a NUL byte, digested with SHA-256, and truncated to 16 hex
// characters. Any alternate implementation must reproduce this byte-for-byte;
// a silent divergence corrupts the graph with duplicate entities or false
// no-ops.
package identity

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashContractVersion identifies the hashing contract. Bump only with a
// coordinated migration of every stored identity.
const HashContractVersion = 1

// KeyLength is the length in hex characters of a truncated identity hash.
const KeyLength = 16

// fieldSeparator joins identity fields before digesting. NUL is guaranteed
// never to appear inside a field (paths, names, and signatures are
// NUL-free by construction).
const fieldSeparator = byte(0x00)

// Hash joins the given fields with a NUL byte, computes SHA-256, and returns
// the first KeyLength hex characters. Field order is significant and part of
// the contract; callers must not sort or normalize.
func Hash(fields ...string) string {
	h := sha256.New()
	for i, f := range fields {
		if i > 0 {
			h.Write([]byte{fieldSeparator})
		}
		h.Write([]byte(f))
	}
	sum := h.Sum(nil)
	return hex.EncodeToString(sum)[:KeyLength]
}

// EntityKey computes the stable identity key for an entity. The tuple order
// (org, repo, path, kind, name, signature) is pinned: renaming a symbol or
// changing its kind yields a new key, so those changes surface as
// delete+add rather than update.
func EntityKey(org, repo, path, kind, name, signature string) string {
	return Hash(org, repo, path, kind, name, signature)
}

// ContentHash digests the mutable attributes of an entity (signature, body,
// line range). Two extractions of unchanged code produce the same value;
// the diff engine compares it to classify updates.
func ContentHash(fields ...string) string {
	return Hash(fields...)
}
