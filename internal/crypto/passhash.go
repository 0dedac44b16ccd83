// Package crypto implements server-side password hashing and verification.
package crypto

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm names a supported password hashing scheme.
type Algorithm string

const (
	Argon2id Algorithm = "argon2id"
	Bcrypt   Algorithm = "bcrypt"
)

// Argon2id defaults (tuned for server-side hashing).
const (
	argonTime    uint32 = 3         // iterations
	argonMemory  uint32 = 64 * 1024 // 64 MB
	argonThreads uint8  = 1
	argonSaltLen        = 16
	argonKeyLen  uint32 = 32

	// upper bound accepted when parsing stored hashes
	argonMaxMemory uint32 = 1 << 22 // 4 GB
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = errors.New("password cannot be empty")

// HashParams tunes the work factor of new hashes.
type HashParams struct {
	Algorithm  Algorithm
	Time       uint32 // argon2 iterations
	Memory     uint32 // argon2 memory in KiB
	Threads    uint8  // argon2 parallelism
	BcryptCost int
}

// DefaultParams returns argon2id parameters used when nothing is configured.
func DefaultParams() HashParams {
	return HashParams{
		Algorithm:  Argon2id,
		Time:       argonTime,
		Memory:     argonMemory,
		Threads:    argonThreads,
		BcryptCost: bcrypt.DefaultCost,
	}
}

// Validate checks that params produce usable hashes.
func (p HashParams) Validate() error {
	switch p.Algorithm {
	case Argon2id:
		if p.Time == 0 || p.Memory < 8*uint32(p.Threads) || p.Threads == 0 {
			return fmt.Errorf("argon2id: invalid params t=%d m=%d p=%d", p.Time, p.Memory, p.Threads)
		}
	case Bcrypt:
		if p.BcryptCost < bcrypt.MinCost || p.BcryptCost > bcrypt.MaxCost {
			return fmt.Errorf("bcrypt: cost %d out of range", p.BcryptCost)
		}
	default:
		return fmt.Errorf("unknown hash algorithm %q", p.Algorithm)
	}
	return nil
}

// Hasher produces self-describing hash strings and verifies any supported format.
type Hasher struct {
	p HashParams
}

// NewHasher constructs a Hasher. Invalid params are rejected.
func NewHasher(p HashParams) (*Hasher, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Hasher{p: p}, nil
}

// RandBytes returns n cryptographically secure random bytes.
func RandBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	return b, err
}

// Hash returns a new hash of password with a fresh random salt.
func (h *Hasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if h.p.Algorithm == Bcrypt {
		out, err := bcrypt.GenerateFromPassword([]byte(password), h.p.BcryptCost)
		if err != nil {
			return "", fmt.Errorf("bcrypt: %w", err)
		}
		return string(out), nil
	}

	salt, err := RandBytes(argonSaltLen)
	if err != nil {
		return "", fmt.Errorf("salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, h.p.Time, h.p.Memory, h.p.Threads, argonKeyLen)

	// $argon2id$v=19$m=65536,t=3,p=1$<salt>$<key>
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.p.Memory, h.p.Time, h.p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches hash. Malformed or unknown hashes never match.
func (h *Hasher) Verify(password, hash string) bool {
	if password == "" {
		return false
	}
	switch {
	case strings.HasPrefix(hash, "$argon2id$"):
		return verifyArgon2id(password, hash)
	case isBcrypt(hash):
		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	default:
		return false
	}
}

// NeedsRehash reports whether hash was produced by another algorithm or weaker params.
func (h *Hasher) NeedsRehash(hash string) bool {
	switch h.p.Algorithm {
	case Bcrypt:
		if !isBcrypt(hash) {
			return true
		}
		cost, err := bcrypt.Cost([]byte(hash))
		return err != nil || cost < h.p.BcryptCost
	default:
		ap, ok := parseArgon2id(hash)
		if !ok {
			return true
		}
		return ap.time < h.p.Time || ap.memory < h.p.Memory || ap.threads < h.p.Threads
	}
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}

type argonHash struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func parseArgon2id(encoded string) (argonHash, bool) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return argonHash{}, false
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argonHash{}, false
	}
	var memory, time, threads uint32
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &memory, &time, &threads); err != nil {
		return argonHash{}, false
	}
	if time == 0 || threads == 0 || threads > 255 || memory == 0 || memory > argonMaxMemory {
		return argonHash{}, false
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return argonHash{}, false
	}
	key, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(key) == 0 || len(key) > 1024 {
		return argonHash{}, false
	}
	return argonHash{time: time, memory: memory, threads: uint8(threads), salt: salt, key: key}, true
}

func verifyArgon2id(password, encoded string) bool {
	ah, ok := parseArgon2id(encoded)
	if !ok {
		return false
	}
	got := argon2.IDKey([]byte(password), ah.salt, ah.time, ah.memory, ah.threads, uint32(len(ah.key)))
	return subtle.ConstantTimeCompare(got, ah.key) == 1
}
