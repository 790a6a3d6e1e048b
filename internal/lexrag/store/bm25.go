package store

import (
	"math"
	"sort"

	"github.com/kart-io/lexrag/internal/pkg/legal/textutil"
)

// bm25Parameters are the standard Okapi defaults.
const (
	bm25K1 = 1.5
	bm25B  = 0.75
)

type posting struct {
	doc int
	tf  int
}

// bm25Index is an inverted index over tokenized texts. It is built once
// after all adds and never updated incrementally; loading a persisted store
// rebuilds it from the raw texts so ranking is reproducible across versions.
type bm25Index struct {
	postings  map[string][]posting
	docLens   []int
	avgDocLen float64
	numDocs   int
}

// buildBM25 tokenizes every text (lowercase, whitespace split) and builds
// the inverted index.
func buildBM25(texts []string) *bm25Index {
	ix := &bm25Index{
		postings: make(map[string][]posting),
		docLens:  make([]int, len(texts)),
		numDocs:  len(texts),
	}

	totalLen := 0
	for doc, text := range texts {
		tokens := textutil.Tokenize(text)
		ix.docLens[doc] = len(tokens)
		totalLen += len(tokens)

		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok, count := range tf {
			ix.postings[tok] = append(ix.postings[tok], posting{doc: doc, tf: count})
		}
	}

	if ix.numDocs > 0 {
		ix.avgDocLen = float64(totalLen) / float64(ix.numDocs)
	}
	return ix
}

// scoredDoc pairs a document id with its BM25 relevance.
type scoredDoc struct {
	doc   int
	score float64
}

// topK scores the query tokens against the index and returns at most k
// documents ordered by score descending, document id ascending on ties.
func (ix *bm25Index) topK(queryTokens []string, k int) []scoredDoc {
	if ix.numDocs == 0 || len(queryTokens) == 0 || k <= 0 {
		return nil
	}

	scores := make(map[int]float64)
	for _, tok := range queryTokens {
		plist, ok := ix.postings[tok]
		if !ok {
			continue
		}
		df := float64(len(plist))
		idf := math.Log(1 + (float64(ix.numDocs)-df+0.5)/(df+0.5))
		for _, p := range plist {
			tf := float64(p.tf)
			norm := tf * (bm25K1 + 1) / (tf + bm25K1*(1-bm25B+bm25B*float64(ix.docLens[p.doc])/ix.avgDocLen))
			scores[p.doc] += idf * norm
		}
	}

	ranked := make([]scoredDoc, 0, len(scores))
	for doc, score := range scores {
		ranked = append(ranked, scoredDoc{doc: doc, score: score})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].doc < ranked[j].doc
	})

	if len(ranked) > k {
		ranked = ranked[:k]
	}
	return ranked
}
