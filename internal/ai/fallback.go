package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// FallbackDimensions is the vector length of the deterministic backend.
const FallbackDimensions = 384

// FallbackEmbed derives a vector from a SHA-256 digest of the text. It is not
// a semantic embedding; it only guarantees that identical text maps to an
// identical vector, which keeps retrieval functional with no provider
// configured.
func FallbackEmbed(text string) []float32 {
	sum := sha256.Sum256([]byte(text))
	digest := hex.EncodeToString(sum[:])

	vec := make([]float32, FallbackDimensions)
	for i := range vec {
		pos := (i * 2) % (len(digest) - 1)
		v, _ := strconv.ParseUint(digest[pos:pos+2], 16, 16)
		vec[i] = float32(v)/256.0 - 0.5
	}
	return vec
}
