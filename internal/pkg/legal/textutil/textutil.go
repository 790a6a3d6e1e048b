// Package textutil provides text and vector helpers shared by the legal
// retrieval and attribution packages.
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CosineSimilarity computes the cosine similarity of two vectors.
// The result is in [-1, 1]; mismatched or empty vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// L2Normalize returns a copy of v scaled to unit length. A zero vector is
// returned unchanged. Stored and query vectors are normalized once so the
// dot product equals cosine similarity.
func L2Normalize(v []float32) []float32 {
	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	if norm == 0 {
		copy(out, v)
		return out
	}
	inv := 1 / math.Sqrt(norm)
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Dot computes the dot product of two equal-length vectors.
func Dot(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

// Tokenize lowercases the text and splits it on whitespace. Keyword index
// construction and query tokenization must use the same function so keyword
// ranking is reproducible across builds.
func Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// NormalizeWhitespace collapses every run of whitespace to a single space
// and trims the ends.
func NormalizeWhitespace(s string) string {
	normalized, _ := NormalizeWhitespaceMapped(s)
	return normalized
}

// NormalizeWhitespaceMapped collapses whitespace runs to single spaces and
// returns, for every byte of the normalized string, the byte offset of the
// originating character in s. Offsets let a match against the normalized
// text be mapped back to exact positions in the original.
func NormalizeWhitespaceMapped(s string) (string, []int) {
	var sb strings.Builder
	offsets := make([]int, 0, len(s))
	inSpace := false
	pendingSpaceAt := -1

	for i, r := range s {
		if unicode.IsSpace(r) {
			if !inSpace {
				inSpace = true
				pendingSpaceAt = i
			}
			continue
		}
		if inSpace && sb.Len() > 0 {
			sb.WriteByte(' ')
			offsets = append(offsets, pendingSpaceAt)
		}
		inSpace = false
		var buf [utf8.UTFMax]byte
		n := utf8.EncodeRune(buf[:], r)
		sb.Write(buf[:n])
		for j := 0; j < n; j++ {
			offsets = append(offsets, i)
		}
	}

	return sb.String(), offsets
}

// SimilarityRatio computes a difflib-style similarity of two strings:
// 2*LCS / (len(a)+len(b)) over runes. Returns a value in [0, 1].
func SimilarityRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	// Two-row LCS table keeps memory linear in the shorter string.
	if len(rb) < len(ra) {
		ra, rb = rb, ra
	}
	prev := make([]int, len(ra)+1)
	curr := make([]int, len(ra)+1)
	for j := 1; j <= len(rb); j++ {
		for i := 1; i <= len(ra); i++ {
			if ra[i-1] == rb[j-1] {
				curr[i] = prev[i-1] + 1
			} else if prev[i] >= curr[i-1] {
				curr[i] = prev[i]
			} else {
				curr[i] = curr[i-1]
			}
		}
		prev, curr = curr, prev
	}

	lcs := prev[len(ra)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}

// EstimateTokens approximates the token count of a text as chars/4. The
// context assembler uses this proxy against its token budget.
func EstimateTokens(s string) int {
	return utf8.RuneCountInString(s) / 4
}

// HashString computes the SHA-256 hex digest of a string. Cache keys are
// derived from it.
func HashString(s string) string {
	hash := sha256.Sum256([]byte(s))
	return hex.EncodeToString(hash[:])
}

// TruncateString truncates a string to at most maxLen Unicode characters.
func TruncateString(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen])
}

// ContainsString reports whether the slice contains the given item.
func ContainsString(slice []string, item string) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}
