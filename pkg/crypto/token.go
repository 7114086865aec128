package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"math/big"
)

// tokenAlphabet is the 62-symbol set used for invite tokens. 32 symbols from
// this alphabet carry roughly 190 bits of entropy, which makes guessing a
// live token infeasible.
const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

var alphabetSize = big.NewInt(int64(len(tokenAlphabet)))

// GenerateInviteToken returns a random alphanumeric token of the requested
// length using a cryptographically strong source. Selection is unbiased.
func GenerateInviteToken(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("crypto: token length must be positive")
	}

	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		out[i] = tokenAlphabet[n.Int64()]
	}
	return string(out), nil
}

// GenerateToken returns a random URL-safe token of the requested byte length.
func GenerateToken(length int) (string, error) {
	buffer := make([]byte, length)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buffer), nil
}
