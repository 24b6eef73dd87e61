// Package identity signs and verifies the passcode token that carries a
// user's (public_id, private_id) pair, and generates the ids themselves
// (component C1).
package identity

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidPasscode is returned for any malformed or unverifiable token.
// Decoding fails closed: callers must not distinguish between a bad
// signature and a malformed body.
var ErrInvalidPasscode = errors.New("identity: invalid passcode")

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// Claims is the payload carried inside a signed passcode.
type Claims struct {
	PublicID  string `json:"publicId"`
	PrivateID string `json:"privateId"`
	jwt.RegisteredClaims
}

// Signer issues and verifies passcodes using a process-wide HMAC key
// loaded once at startup.
type Signer struct {
	key []byte
}

// NewSigner builds a Signer around a symmetric signing key. The key is
// read-only for the lifetime of the process (spec.md §9).
func NewSigner(key []byte) (*Signer, error) {
	if len(key) == 0 {
		return nil, errors.New("identity: signing key must not be empty")
	}
	return &Signer{key: key}, nil
}

// Issue signs a fresh passcode for the given (public_id, private_id) pair.
func (s *Signer) Issue(publicID, privateID string) (string, error) {
	claims := Claims{
		PublicID:  publicID,
		PrivateID: privateID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "eratosthenes",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("identity: signing passcode: %w", err)
	}
	return signed, nil
}

// Decode verifies a passcode and extracts its claims. Any failure -
// bad signature, wrong algorithm, malformed body - collapses to
// ErrInvalidPasscode so callers cannot branch on the failure mode.
func (s *Signer) Decode(passcode string) (Claims, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(passcode, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidPasscode
		}
		return s.key, nil
	})
	if err != nil || !token.Valid {
		return Claims{}, ErrInvalidPasscode
	}
	if claims.PublicID == "" || claims.PrivateID == "" {
		return Claims{}, ErrInvalidPasscode
	}
	if !PublicIDIsValid(claims.PublicID) {
		return Claims{}, ErrInvalidPasscode
	}
	return claims, nil
}

// GenerateID produces a random id of the form "XXXeXXXRXXX": three
// 3-char alphanumeric groups separated by the fixed letters 'e' and 'R'.
func GenerateID() (string, error) {
	g1, err := randomGroup(3)
	if err != nil {
		return "", err
	}
	g2, err := randomGroup(3)
	if err != nil {
		return "", err
	}
	g3, err := randomGroup(3)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%se%sR%s", g1, g2, g3), nil
}

// PublicIDIsValid checks the length-11, fixed-separator shape of an id
// produced by GenerateID, without re-deriving it.
func PublicIDIsValid(id string) bool {
	if len(id) != 11 {
		return false
	}
	return id[3] == 'e' && id[7] == 'R'
}

func randomGroup(n int) (string, error) {
	buf := make([]byte, n)
	for i := range buf {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(idAlphabet))))
		if err != nil {
			return "", fmt.Errorf("identity: generating random id: %w", err)
		}
		buf[i] = idAlphabet[idx.Int64()]
	}
	return string(buf), nil
}
