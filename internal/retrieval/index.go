// Package retrieval implements the in-process evidence index backing the
// assessment pipeline. Documents are chunked, embedded, and scored by
// cosine similarity; queries are fully deterministic so that the same
// corpus and query always cite the same evidence.
package retrieval

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
)

const (
	defaultChunkSize    = 800
	defaultChunkOverlap = 150
	defaultTopK         = 6

	// overfetchK widens the candidate pool before tier sorting and
	// noise filtering so that filtering cannot empty a good result set.
	overfetchK = 18

	// maxExcerptChars caps each chunk excerpt handed to the prompt.
	maxExcerptChars = 1200
)

var ErrRetrievalUnavailable = errors.New("evidence retrieval unavailable")

// Tier orders evidence sources: clinical guidelines and decision pathways
// outrank general reference material regardless of similarity score.
const (
	TierGuideline = 1
	TierReference = 2
)

// noiseMarkers identify boilerplate chunks (citations, front matter,
// copyright pages) that should only be cited when nothing else matches.
var noiseMarkers = []string{
	"et al",
	"doi:",
	"table of contents",
	"all rights reserved",
	"downloaded from",
	"permissions",
}

// Document is one source text registered with the index.
type Document struct {
	ID       string
	Title    string
	Category string
	Text     string
}

// Result is one scored evidence chunk.
type Result struct {
	DocID   string
	Title   string
	Offset  int
	Score   float64
	Tier    int
	Excerpt string
}

type indexedChunk struct {
	docID  string
	title  string
	offset int
	text   string
	tier   int
	noise  bool
	vector []float64
}

type Options struct {
	ChunkSize    int
	ChunkOverlap int
	Embedder     Embedder
}

// Index is an immutable-snapshot chunk index. Reindexing builds a fresh
// chunk set and swaps it in under the write lock, so concurrent queries
// always see a consistent corpus.
type Index struct {
	mu       sync.RWMutex
	chunks   []indexedChunk
	docs     map[string]Document
	embedder Embedder
	size     int
	overlap  int
}

func NewIndex(opts Options) *Index {
	size := opts.ChunkSize
	if size <= 0 {
		size = defaultChunkSize
	}
	overlap := opts.ChunkOverlap
	if overlap < 0 || overlap >= size {
		overlap = defaultChunkOverlap
	}
	emb := opts.Embedder
	if emb == nil {
		emb = NewHashEmbedder(defaultEmbeddingDim)
	}
	return &Index{
		docs:     make(map[string]Document),
		embedder: emb,
		size:     size,
		overlap:  overlap,
	}
}

// Upsert registers or replaces documents. Re-indexing the same document is
// idempotent: its previous chunks are dropped before the new ones land.
func (ix *Index) Upsert(ctx context.Context, docs ...Document) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	next := make(map[string]Document, len(ix.docs)+len(docs))
	for id, d := range ix.docs {
		next[id] = d
	}
	for _, d := range docs {
		if d.ID == "" || strings.TrimSpace(d.Text) == "" {
			continue
		}
		next[d.ID] = d
	}

	chunks, err := ix.buildChunks(ctx, next)
	if err != nil {
		return err
	}
	ix.docs = next
	ix.chunks = chunks
	return nil
}

// Remove drops documents from the index.
func (ix *Index) Remove(ctx context.Context, docIDs ...string) error {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	next := make(map[string]Document, len(ix.docs))
	for id, d := range ix.docs {
		next[id] = d
	}
	for _, id := range docIDs {
		delete(next, id)
	}

	chunks, err := ix.buildChunks(ctx, next)
	if err != nil {
		return err
	}
	ix.docs = next
	ix.chunks = chunks
	return nil
}

func (ix *Index) buildChunks(ctx context.Context, docs map[string]Document) ([]indexedChunk, error) {
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var chunks []indexedChunk
	for _, id := range ids {
		doc := docs[id]
		tier := docTier(doc.Category, doc.ID)
		for _, c := range splitChunks(doc.Text, ix.size, ix.overlap) {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			vec, err := ix.embedder.Embed(ctx, c.Text)
			if err != nil {
				return nil, err
			}
			chunks = append(chunks, indexedChunk{
				docID:  doc.ID,
				title:  doc.Title,
				offset: c.Offset,
				text:   c.Text,
				tier:   tier,
				noise:  isNoiseChunk(c.Text),
				vector: vec,
			})
		}
	}
	return chunks, nil
}

// DocumentCount reports how many documents are currently indexed.
func (ix *Index) DocumentCount() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.docs)
}

// QueryParams bounds one retrieval call.
type QueryParams struct {
	TopK       int
	CharBudget int
}

// Query returns the best evidence chunks for text, at most TopK results
// and at most CharBudget total excerpt characters. Ordering is strict:
// tier ascending, score descending, then doc ID and chunk offset ascending
// as tie-breaks. Noisy chunks are cited only when nothing clean matched.
// Returns ErrRetrievalUnavailable when the index holds no documents.
func (ix *Index) Query(ctx context.Context, text string, p QueryParams) ([]Result, error) {
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	topK := p.TopK
	if topK <= 0 {
		topK = defaultTopK
	}

	ix.mu.RLock()
	chunks := ix.chunks
	docCount := len(ix.docs)
	ix.mu.RUnlock()

	if docCount == 0 {
		return nil, ErrRetrievalUnavailable
	}

	qvec, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	var clean, noisy []Result
	for i := range chunks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := &chunks[i]
		r := Result{
			DocID:   c.docID,
			Title:   c.title,
			Offset:  c.offset,
			Score:   cosine(qvec, c.vector),
			Tier:    c.tier,
			Excerpt: truncateRunes(c.text, maxExcerptChars),
		}
		if c.noise {
			noisy = append(noisy, r)
		} else {
			clean = append(clean, r)
		}
	}

	sortResults(clean)
	sortResults(noisy)

	fetch := topK
	if fetch < overfetchK {
		fetch = overfetchK
	}
	pool := clean
	if len(pool) > fetch {
		pool = pool[:fetch]
	}
	if len(pool) == 0 {
		pool = noisy
		if len(pool) > fetch {
			pool = pool[:fetch]
		}
	}

	return applyBudget(pool, topK, p.CharBudget), nil
}

// applyBudget keeps at most topK results whose excerpts fit the char
// budget. The first result always fits, truncated to the budget if needed,
// so a large top chunk cannot produce an empty citation list.
func applyBudget(pool []Result, topK, budget int) []Result {
	var out []Result
	used := 0
	for _, r := range pool {
		if len(out) == topK {
			break
		}
		n := len([]rune(r.Excerpt))
		if budget > 0 && used+n > budget {
			if len(out) == 0 {
				r.Excerpt = truncateRunes(r.Excerpt, budget)
				out = append(out, r)
			}
			break
		}
		used += n
		out = append(out, r)
	}
	return out
}

func sortResults(rs []Result) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DocID != b.DocID {
			return a.DocID < b.DocID
		}
		return a.Offset < b.Offset
	})
}

func docTier(category, id string) int {
	combined := strings.ReplaceAll(strings.ToLower(category+" "+id), "-", "_")
	for _, marker := range []string{"clinical_guideline", "practice_guideline", "clinical_pathway", "decision_pathway"} {
		if strings.Contains(combined, marker) {
			return TierGuideline
		}
	}
	return TierReference
}

func isNoiseChunk(text string) bool {
	lower := strings.ToLower(text)
	for _, marker := range noiseMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
