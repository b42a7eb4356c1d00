package idempotency

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// GenerateKey builds a deterministic key from the parts. Each part is
// length-prefixed so ("ab", "c") and ("a", "bc") never collide.
func GenerateKey(parts ...string) string {
	h := sha256.New()
	for _, part := range parts {
		fmt.Fprintf(h, "%d:%s;", len(part), part)
	}

	return hex.EncodeToString(h.Sum(nil))
}
