// Package security holds password hashing, random tokens and the signed
// ops tokens used by monitoring tools.
package security

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// Algorithm identifies the scheme of a stored password value.
type Algorithm int

const (
	// AlgoUnknown means the value is not a recognized hash.  Legacy rows
	// holding plaintext fall in this bucket.
	AlgoUnknown Algorithm = iota
	AlgoBcrypt
	AlgoArgon2id
)

var errMalformedHash = errors.New("malformed password hash")

// Identify classifies a stored password value by its prefix.
func Identify(stored string) Algorithm {
	switch {
	case strings.HasPrefix(stored, "$2a$"), strings.HasPrefix(stored, "$2b$"), strings.HasPrefix(stored, "$2y$"):
		return AlgoBcrypt
	case strings.HasPrefix(stored, "$argon2id$"):
		return AlgoArgon2id
	}
	return AlgoUnknown
}

// HashPassword returns a bcrypt hash using the given cost.
func HashPassword(plain string, cost int) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword checks plain against a recognized hash in constant time.
// An unrecognized stored value returns an error; callers decide whether a
// legacy plaintext comparison applies.
func VerifyPassword(stored, plain string) (bool, error) {
	switch Identify(stored) {
	case AlgoBcrypt:
		err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain))
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return err == nil, err
	case AlgoArgon2id:
		return verifyArgon2id(stored, plain)
	}
	return false, errMalformedHash
}

// NeedsRehash reports whether a verified hash should be replaced with a
// bcrypt hash at the configured cost.
func NeedsRehash(stored string, cost int) bool {
	if Identify(stored) != AlgoBcrypt {
		return true
	}
	c, err := bcrypt.Cost([]byte(stored))
	return err != nil || c != cost
}

// Argon2Params are the argon2id tuning knobs.
type Argon2Params struct {
	Time    uint32
	Memory  uint32
	Threads uint8
	KeyLen  uint32
	SaltLen uint32
}

var defaultArgon2 = Argon2Params{Time: 3, Memory: 64 * 1024, Threads: 2, KeyLen: 32, SaltLen: 16}

// HashArgon2id encodes plain in the PHC format written by older account
// imports ("$argon2id$v=19$m=..,t=..,p=..$salt$hash").
func HashArgon2id(plain string) (string, error) {
	p := defaultArgon2
	salt := make([]byte, p.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, p.Memory, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key)), nil
}

func verifyArgon2id(stored, plain string) (bool, error) {
	// "", "argon2id", "v=19", "m=..,t=..,p=..", salt, hash
	parts := strings.Split(stored, "$")
	if len(parts) != 6 {
		return false, errMalformedHash
	}
	var p Argon2Params
	for _, kv := range strings.Split(parts[3], ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return false, errMalformedHash
		}
		n, err := strconv.ParseUint(v, 10, 32)
		if err != nil {
			return false, errMalformedHash
		}
		switch k {
		case "m":
			p.Memory = uint32(n)
		case "t":
			p.Time = uint32(n)
		case "p":
			p.Threads = uint8(n)
		}
	}
	if p.Memory == 0 || p.Time == 0 || p.Threads == 0 {
		return false, errMalformedHash
	}
	salt, err := decodeB64(parts[4])
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}
	want, err := decodeB64(parts[5])
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}
	got := argon2.IDKey([]byte(plain), salt, p.Time, p.Memory, p.Threads, uint32(len(want)))
	return subtle.ConstantTimeCompare(want, got) == 1, nil
}

func decodeB64(s string) ([]byte, error) {
	if b, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return b, nil
	}
	return base64.StdEncoding.DecodeString(s)
}

// EqualLegacy compares a plaintext stored value in constant time.
func EqualLegacy(stored, plain string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(plain)) == 1
}
