package service

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"github.com/oklog/ulid/v2"
)

const (
	shareIDLength   = 12
	shareIDAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// newID returns a lexicographically sortable unique id.
func newID() string {
	return ulid.Make().String()
}

// generateShareID returns a fresh random share slug drawn from random.
// Collisions are not checked.
func generateShareID(random io.Reader) (string, error) {
	b := make([]byte, shareIDLength)
	for i := range b {
		idx, err := randInt(random, len(shareIDAlphabet))
		if err != nil {
			return "", fmt.Errorf("generate share id: %w", err)
		}
		b[i] = shareIDAlphabet[idx]
	}
	return string(b), nil
}

// randInt returns a uniform random integer in [0, max).
func randInt(random io.Reader, max int) (int, error) {
	n, err := rand.Int(random, big.NewInt(int64(max)))
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}
