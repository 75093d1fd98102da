package memstore

import (
	"encoding/binary"
	"math"
)

// embeddingToBytes converts a []float32 to a little-endian byte slice.
func embeddingToBytes(vec []float32) []byte {
	data := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(data[i*4:i*4+4], math.Float32bits(v))
	}
	return data
}

// bytesToEmbedding converts a little-endian byte slice to []float32.
// Each 4 bytes = one LE float32. Short trailing chunk → 0.0.
func bytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	if len(data)%4 != 0 {
		n++ // include partial chunk as 0.0
	}
	result := make([]float32, n)
	for i := 0; i < len(data)/4; i++ {
		bits := binary.LittleEndian.Uint32(data[i*4 : i*4+4])
		result[i] = math.Float32frombits(bits)
	}
	return result
}

// cosineSimilarity computes cosine similarity between two vectors.
// Returns 0.0 for zero-norm vectors or mismatched lengths.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0.0
	}

	var dot, normA, normB float32
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	na := float32(math.Sqrt(float64(normA)))
	nb := float32(math.Sqrt(float64(normB)))

	if na == 0 || nb == 0 {
		return 0.0
	}

	return dot / (na * nb)
}
