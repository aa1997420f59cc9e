package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RememberToken is a long-lived login credential.  Raw goes to the client
// cookie; only HashToken(Raw) is stored.
type RememberToken struct {
	Raw string
	Exp time.Time
}

// NewRememberToken returns 32 random bytes, hex encoded, valid for ttl.
func NewRememberToken(ttl time.Duration) (RememberToken, error) {
	raw, err := RandomHex(32)
	if err != nil {
		return RememberToken{}, err
	}
	return RememberToken{Raw: raw, Exp: time.Now().UTC().Add(ttl)}, nil
}

// HashToken returns the SHA-256 of raw as hex.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// RandomHex returns n bytes of crypto-random data, hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// OpsScope is the only scope ops tokens carry.
const OpsScope = "diagnostics"

// OpsClaims are the claims of an ops token.
type OpsClaims struct {
	Role  string `json:"role"`
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// OpsToken is a signed bearer token for read-only diagnostics.
type OpsToken struct {
	Token string
	Exp   time.Time
}

// NewOpsToken signs an HS256 token for subject.
func NewOpsToken(secret string, subject string, ttl time.Duration) (OpsToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := OpsClaims{
		Role:  "admin",
		Scope: OpsScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
			ID:        strconv.FormatInt(now.UnixNano(), 36),
		},
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return OpsToken{}, fmt.Errorf("sign ops token: %w", err)
	}
	return OpsToken{Token: signed, Exp: exp}, nil
}

// ParseOpsToken validates raw and returns its claims.
func ParseOpsToken(secret, raw string) (*OpsClaims, error) {
	tok, err := jwt.ParseWithClaims(raw, &OpsClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(*OpsClaims)
	if !ok || !tok.Valid {
		return nil, errors.New("invalid ops token")
	}
	if claims.Scope != OpsScope {
		return nil, errors.New("ops token lacks diagnostics scope")
	}
	return claims, nil
}
