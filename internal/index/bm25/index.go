// Package bm25 provides an in-memory BM25 keyword index.
//
// The index complements semantic retrieval: exact keyword matching
// catches abbreviations, product names and identifiers that embedding
// models blur. Scores are computed with the standard BM25 formula and
// are fully deterministic for a fixed corpus.
package bm25

import (
	"context"
	"encoding/json"
	"math"
	"os"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/custodia-labs/curator/internal/core/domain"
	"github.com/custodia-labs/curator/internal/core/ports/driven"
	"github.com/custodia-labs/curator/internal/logger"
)

// Ensure Index implements the interface.
var _ driven.SearchEngine = (*Index)(nil)

// BM25 parameters. k1 controls term-frequency saturation, b controls
// document-length normalisation.
const (
	DefaultK1 = 1.2
	DefaultB  = 0.75
)

// Index is an in-memory BM25 index over chunk contents.
// Safe for concurrent use: queries take a read lock, Build and Load
// replace the corpus under a write lock.
type Index struct {
	mu sync.RWMutex

	k1 float64
	b  float64

	built    bool
	ids      []string
	contents []string
	metadata []map[string]string

	// Derived state, recomputed from the tokenized corpus.
	tokens  [][]string
	tf      []map[string]int
	df      map[string]int
	docLen  []int
	avgLen  float64
}

// Option configures the index.
type Option func(*Index)

// WithParameters overrides the BM25 k1 and b constants.
func WithParameters(k1, b float64) Option {
	return func(idx *Index) {
		if k1 > 0 {
			idx.k1 = k1
		}
		if b >= 0 && b <= 1 {
			idx.b = b
		}
	}
}

// New creates an empty index.
func New(opts ...Option) *Index {
	idx := &Index{
		k1: DefaultK1,
		b:  DefaultB,
		df: make(map[string]int),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build replaces the entire index with the given corpus.
// Empty inputs are a logged no-op; mismatched list lengths are
// rejected as invalid input.
func (idx *Index) Build(_ context.Context, chunkIDs []string, contents []string, metadata []map[string]string) error {
	if len(chunkIDs) == 0 && len(contents) == 0 {
		logger.Warn("BM25 build: empty corpus, keeping existing index")
		return nil
	}
	if len(chunkIDs) != len(contents) {
		return domain.ErrInvalidInput
	}
	if metadata != nil && len(metadata) != len(chunkIDs) {
		return domain.ErrInvalidInput
	}

	tokens := make([][]string, len(contents))
	for i, content := range contents {
		tokens[i] = Tokenize(content)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.ids = append([]string(nil), chunkIDs...)
	idx.contents = append([]string(nil), contents...)
	idx.metadata = metadata
	idx.tokens = tokens
	idx.recompute()
	idx.built = true

	logger.Debug("BM25 build: indexed %d chunks, %d distinct terms", len(chunkIDs), len(idx.df))
	return nil
}

// recompute rebuilds term statistics from the tokenized corpus.
// Caller must hold the write lock.
func (idx *Index) recompute() {
	idx.tf = make([]map[string]int, len(idx.tokens))
	idx.df = make(map[string]int)
	idx.docLen = make([]int, len(idx.tokens))

	var total int
	for i, docTokens := range idx.tokens {
		freq := make(map[string]int, len(docTokens))
		for _, tok := range docTokens {
			freq[tok]++
		}
		idx.tf[i] = freq
		idx.docLen[i] = len(docTokens)
		total += len(docTokens)
		for term := range freq {
			idx.df[term]++
		}
	}

	idx.avgLen = 0
	if len(idx.tokens) > 0 {
		idx.avgLen = float64(total) / float64(len(idx.tokens))
	}
}

// Search returns the top-k chunks by descending BM25 score.
// Zero and negative scores are excluded. An unbuilt index or an empty
// tokenized query yields an empty result, never an error.
func (idx *Index) Search(_ context.Context, query string, k int) ([]driven.SearchHit, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if !idx.built {
		logger.Warn("BM25 search: index not built yet, returning no results")
		return []driven.SearchHit{}, nil
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		logger.Debug("BM25 search: query tokenized to nothing")
		return []driven.SearchHit{}, nil
	}
	if k <= 0 {
		k = domain.DefaultTopK
	}

	n := float64(len(idx.ids))
	hits := make([]driven.SearchHit, 0, len(idx.ids))

	for i := range idx.ids {
		var score float64
		dl := float64(idx.docLen[i])
		for _, term := range terms {
			tf := float64(idx.tf[i][term])
			if tf == 0 {
				continue
			}
			df := float64(idx.df[term])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			score += idf * (tf * (idx.k1 + 1)) / (tf + idx.k1*(1-idx.b+idx.b*dl/idx.avgLen))
		}
		if score > 0 {
			hits = append(hits, driven.SearchHit{ChunkID: idx.ids[i], Score: score})
		}
	}

	// Deterministic ordering: score descending, then chunk ID.
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// Content returns the stored content for a chunk ID, if indexed.
func (idx *Index) Content(chunkID string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	for i, id := range idx.ids {
		if id == chunkID {
			return idx.contents[i], true
		}
	}
	return "", false
}

// Size returns the number of indexed chunks.
func (idx *Index) Size() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.ids)
}

// snapshot is the persisted form of the index. The derived BM25
// statistics are recomputed on load so a reloaded index reproduces
// identical scores.
type snapshot struct {
	IDs      []string            `json:"ids"`
	Contents []string            `json:"contents"`
	Metadata []map[string]string `json:"metadata,omitempty"`
	Tokens   [][]string          `json:"tokens"`
}

// Save persists the tokenized corpus to path.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	snap := snapshot{
		IDs:      idx.ids,
		Contents: idx.contents,
		Metadata: idx.metadata,
		Tokens:   idx.tokens,
	}
	idx.mu.RUnlock()

	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// Load restores a saved corpus from path and rebuilds the BM25
// statistics.
func (idx *Index) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}
	if len(snap.IDs) != len(snap.Contents) || len(snap.IDs) != len(snap.Tokens) {
		return domain.ErrInvalidInput
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.ids = snap.IDs
	idx.contents = snap.Contents
	idx.metadata = snap.Metadata
	idx.tokens = snap.Tokens
	idx.recompute()
	idx.built = len(idx.ids) > 0

	logger.Debug("BM25 load: restored %d chunks from %s", len(idx.ids), path)
	return nil
}

// Tokenize splits text into lowercase alphanumeric runs. Single
// character tokens are dropped except "a" and "i", which carry
// meaning in prose queries.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		tok := current.String()
		current.Reset()
		if len(tok) > 1 || tok == "a" || tok == "i" {
			tokens = append(tokens, tok)
		}
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}
