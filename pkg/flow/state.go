package flow

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	// StateAlphabet is the character set of generated anti-replay tokens.
	StateAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	// StateLength is the number of characters in a generated anti-replay token.
	StateLength = 32
)

// GenerateState returns n characters drawn uniformly from alphabet using crypto/rand.
// n == 0 yields "".
func GenerateState(n int, alphabet string) (string, error) {
	if n < 0 {
		return "", errors.New("state length cannot be negative")
	}
	chars := []rune(alphabet)
	if len(chars) == 0 {
		return "", errors.New("state alphabet cannot be empty")
	}

	max := big.NewInt(int64(len(chars)))
	out := make([]rune, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = chars[idx.Int64()]
	}
	return string(out), nil
}
