package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"length mismatch", []float32{1, 0}, []float32{1}, 0},
		{"empty", nil, nil, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 0}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestL2NormalizeDotEqualsCosine(t *testing.T) {
	a := []float32{3, 4}
	b := []float32{4, 3}
	assert.InDelta(t, CosineSimilarity(a, b), Dot(L2Normalize(a), L2Normalize(b)), 1e-6)

	zero := L2Normalize([]float32{0, 0})
	assert.Equal(t, []float32{0, 0}, zero)
}

func TestTokenize(t *testing.T) {
	assert.Equal(t, []string{"section", "64", "punishment"}, Tokenize("  Section 64\tPUNISHMENT \n"))
	assert.Empty(t, Tokenize("   "))
}

func TestNormalizeWhitespaceMapped(t *testing.T) {
	normalized, offsets := NormalizeWhitespaceMapped("  foo \t bar  ")

	assert.Equal(t, "foo bar", normalized)
	require.Len(t, offsets, len(normalized))
	// Each normalized byte maps back to its originating byte in the input;
	// a collapsed run maps to the run's first whitespace character.
	assert.Equal(t, []int{2, 3, 4, 5, 8, 9, 10}, offsets)
}

func TestNormalizeWhitespace(t *testing.T) {
	assert.Equal(t, "a b c", NormalizeWhitespace("a\n\nb\t c"))
	assert.Equal(t, "", NormalizeWhitespace("  \t\n "))
}

func TestSimilarityRatio(t *testing.T) {
	assert.InDelta(t, 1.0, SimilarityRatio("abc", "abc"), 1e-9)
	assert.InDelta(t, 0.0, SimilarityRatio("abc", "xyz"), 1e-9)
	assert.InDelta(t, 1.0, SimilarityRatio("", ""), 1e-9)
	assert.InDelta(t, 0.0, SimilarityRatio("abc", ""), 1e-9)

	// 2*LCS/(lenA+lenB): LCS("abcd","abed") = 3 -> 6/8.
	assert.InDelta(t, 0.75, SimilarityRatio("abcd", "abed"), 1e-9)

	// Symmetric regardless of which argument is longer.
	assert.InDelta(t, SimilarityRatio("short", "a much longer string"), SimilarityRatio("a much longer string", "short"), 1e-9)
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 1, EstimateTokens("abcd"))
	assert.Equal(t, 25, EstimateTokens(string(make([]rune, 100))))
}

func TestHashString(t *testing.T) {
	h := HashString("what is zero fir")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashString("what is zero fir"))
	assert.NotEqual(t, h, HashString("what is zero fir?"))
}

func TestTruncateString(t *testing.T) {
	assert.Equal(t, "abc", TruncateString("abc", 5))
	assert.Equal(t, "abc", TruncateString("abcdef", 3))
	assert.Equal(t, "日本語", TruncateString("日本語テキスト", 3))
}

func TestContainsString(t *testing.T) {
	assert.True(t, ContainsString([]string{"a", "b"}, "b"))
	assert.False(t, ContainsString([]string{"a", "b"}, "c"))
	assert.False(t, ContainsString(nil, "a"))
}
