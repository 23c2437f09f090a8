package embedder

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
)

// FallbackDimensions is the length of every vector produced by Fallback.
const FallbackDimensions = 128

// Fallback derives a deterministic unit-length embedding from the SHA-256
// digest of text. The digest is stretched by re-hashing digest||counter
// (counter as a little-endian uint32 starting at 0); every 8-byte slice of each
// block is read as a little-endian IEEE-754 float64 and squashed with tanh.
// The FallbackDimensions values are then L2-normalised.
//
// Identical text always yields a bit-identical vector. A slice that decodes to
// NaN contributes 0.
func Fallback(text string) []float64 {
	seed := sha256.Sum256([]byte(text))

	buf := make([]byte, sha256.Size+4)
	copy(buf, seed[:])

	vec := make([]float64, 0, FallbackDimensions)
	for counter := uint32(0); len(vec) < FallbackDimensions; counter++ {
		binary.LittleEndian.PutUint32(buf[sha256.Size:], counter)
		block := sha256.Sum256(buf)
		for j := 0; j+8 <= len(block) && len(vec) < FallbackDimensions; j += 8 {
			v := math.Tanh(math.Float64frombits(binary.LittleEndian.Uint64(block[j : j+8])))
			if math.IsNaN(v) {
				v = 0
			}
			vec = append(vec, v)
		}
	}

	normalize(vec)
	return vec
}

// normalize scales v in place to unit L2 norm. A zero vector is left as is.
func normalize(v []float64) {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range v {
		v[i] /= norm
	}
}
