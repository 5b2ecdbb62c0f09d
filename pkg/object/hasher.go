package object

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/blake2b"
)

// Hasher computes the digest used to address objects. Implementations must
// be deterministic and hold no mutable state.
type Hasher interface {
	// Name is the identifier recorded in repository config, e.g. "sha256".
	Name() string
	Compute(data []byte) []byte
	// ToHex returns the lowercase hex form of digest, 2*DigestSize long.
	ToHex(digest []byte) string
	DigestSize() int
}

const (
	HashSHA256     = "sha256"
	HashBLAKE2b256 = "blake2b-256"
)

type sha256Hasher struct{}

// SHA256 returns the default hasher.
func SHA256() Hasher { return sha256Hasher{} }

func (sha256Hasher) Name() string    { return HashSHA256 }
func (sha256Hasher) DigestSize() int { return sha256.Size }

func (sha256Hasher) Compute(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

func (sha256Hasher) ToHex(digest []byte) string { return hex.EncodeToString(digest) }

type blake2bHasher struct{}

// BLAKE2b256 returns a hasher producing 32-byte BLAKE2b digests.
func BLAKE2b256() Hasher { return blake2bHasher{} }

func (blake2bHasher) Name() string    { return HashBLAKE2b256 }
func (blake2bHasher) DigestSize() int { return blake2b.Size256 }

func (blake2bHasher) Compute(data []byte) []byte {
	sum := blake2b.Sum256(data)
	return sum[:]
}

func (blake2bHasher) ToHex(digest []byte) string { return hex.EncodeToString(digest) }

// HasherByName resolves a hasher from its config name. An empty name selects
// the default.
func HasherByName(name string) (Hasher, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", HashSHA256:
		return SHA256(), nil
	case HashBLAKE2b256:
		return BLAKE2b256(), nil
	default:
		return nil, fmt.Errorf("hasher %q: %w", name, ErrInvalidArgument)
	}
}

// DefaultHasher is used by stores created without WithHasher.
var DefaultHasher = SHA256()

// HashBytes computes the raw digest of data with the default hasher and
// returns it as a lowercase hex-encoded Hash.
func HashBytes(data []byte) Hash {
	return Hash(DefaultHasher.ToHex(DefaultHasher.Compute(data)))
}

// HashObject computes the digest of the envelope "type len\0content" with
// the default hasher.
func HashObject(objType ObjectType, data []byte) Hash {
	return hashEnvelope(DefaultHasher, objType, data)
}

func hashEnvelope(h Hasher, objType ObjectType, data []byte) Hash {
	return Hash(h.ToHex(h.Compute(envelope(objType, data))))
}

// ValidHash reports whether s looks like an id produced by h: lowercase hex
// of exactly 2*DigestSize characters.
func ValidHash(h Hasher, s Hash) bool {
	if len(s) != 2*h.DigestSize() {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}
