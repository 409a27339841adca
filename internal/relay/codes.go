package relay

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// codeAlphabet is the character set for room codes: URL-safe and
// human-typeable. A 6-character code gives 36^6 ≈ 2.2 billion values,
// so collisions are regenerated rather than prevented.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateCode produces a random room code of the given length.
//
// Precondition: length must be > 0.
// Postcondition: Returns a string of exactly length characters drawn
// from codeAlphabet, or a non-nil error if the randomness source fails.
func generateCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading randomness: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
