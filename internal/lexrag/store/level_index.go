package store

import (
	"fmt"
	"sort"

	"github.com/kart-io/logger"

	"github.com/kart-io/lexrag/internal/pkg/legal/textutil"
)

// Candidate is one raw hit from a LevelIndex search: the entry id plus
// whichever of the two signal scores were computed for it. A score of zero
// means the entry was absent from that ranking.
type Candidate struct {
	ID           int
	VectorScore  float64
	KeywordScore float64
}

// LevelIndex is a flat cosine-similarity vector index plus a BM25 keyword
// index over one homogeneous set of texts. Entries are append-only; ids are
// positions. After BuildKeywordIndex the index is read-only and safe for
// concurrent Search calls.
type LevelIndex struct {
	dim     int
	vectors [][]float32
	texts   []string
	keyword *bm25Index
}

// NewLevelIndex creates an empty index for vectors of the given dimension.
func NewLevelIndex(dim int) *LevelIndex {
	return &LevelIndex{dim: dim}
}

// Add appends a text with its embedding, L2-normalizing the vector, and
// returns the assigned entry id.
func (ix *LevelIndex) Add(vector []float32, text string) (int, error) {
	if len(vector) != ix.dim {
		return 0, fmt.Errorf("vector dimension %d does not match index dimension %d", len(vector), ix.dim)
	}
	ix.vectors = append(ix.vectors, textutil.L2Normalize(vector))
	ix.texts = append(ix.texts, text)
	return len(ix.vectors) - 1, nil
}

// BuildKeywordIndex tokenizes all stored texts into the BM25 inverted
// index. Call it exactly once per offline build, after the last Add.
func (ix *LevelIndex) BuildKeywordIndex() {
	ix.keyword = buildBM25(ix.texts)
}

// Len returns the number of entries.
func (ix *LevelIndex) Len() int { return len(ix.vectors) }

// Dim returns the vector dimension.
func (ix *LevelIndex) Dim() int { return ix.dim }

// Text returns the stored text of an entry.
func (ix *LevelIndex) Text(id int) string { return ix.texts[id] }

// Vector returns the stored (normalized) vector of an entry.
func (ix *LevelIndex) Vector(id int) []float32 { return ix.vectors[id] }

// Search returns the union of the top-k' vector hits and the top-k'
// keyword hits, where k' = min(3k, N). Each candidate carries whichever
// scores were computed for it. queryText may be empty to skip the keyword
// leg; the keyword leg is also skipped before BuildKeywordIndex has run.
func (ix *LevelIndex) Search(queryVector []float32, queryText string, k int) []Candidate {
	n := len(ix.vectors)
	if n == 0 || k <= 0 {
		return nil
	}

	overfetch := 3 * k
	if overfetch > n {
		overfetch = n
	}

	merged := make(map[int]*Candidate)

	if len(queryVector) != ix.dim {
		logger.Warnw("query vector dimension mismatch, skipping vector search",
			"query_dim", len(queryVector),
			"index_dim", ix.dim,
		)
	} else {
		qv := textutil.L2Normalize(queryVector)
		type vecHit struct {
			id    int
			score float64
		}
		hits := make([]vecHit, n)
		for i, v := range ix.vectors {
			hits[i] = vecHit{id: i, score: textutil.Dot(qv, v)}
		}
		sort.Slice(hits, func(i, j int) bool {
			if hits[i].score != hits[j].score {
				return hits[i].score > hits[j].score
			}
			return hits[i].id < hits[j].id
		})
		for _, h := range hits[:overfetch] {
			merged[h.id] = &Candidate{ID: h.id, VectorScore: h.score}
		}
	}

	if queryText != "" && ix.keyword != nil {
		for _, h := range ix.keyword.topK(textutil.Tokenize(queryText), overfetch) {
			if c, ok := merged[h.doc]; ok {
				c.KeywordScore = h.score
			} else {
				merged[h.doc] = &Candidate{ID: h.doc, KeywordScore: h.score}
			}
		}
	}

	out := make([]Candidate, 0, len(merged))
	for _, c := range merged {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
