package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const matchCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const MatchCodeLength = 6

// NewToken returns 32 random bytes hex-encoded.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// NewMatchCode returns a short join code without look-alike characters (0/O, 1/I).
func NewMatchCode() (string, error) {
	code := make([]byte, MatchCodeLength)
	max := big.NewInt(int64(len(matchCodeAlphabet)))
	for i := range code {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		code[i] = matchCodeAlphabet[n.Int64()]
	}
	return string(code), nil
}
