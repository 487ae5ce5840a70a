package retrieval

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDocs() []Document {
	return []Document{
		{
			ID:       "clinical-guideline-dyspnea",
			Title:    "Dyspnea Pathway",
			Category: "clinical_guideline",
			Text: "Dyspnea with low oxygen saturation requires escalation. Check respiratory " +
				"rate and oxygen saturation every two hours. Consider pneumonia when fever " +
				"accompanies a productive cough.",
		},
		{
			ID:       "reference-cough",
			Title:    "Cough Reference",
			Category: "reference",
			Text: "Cough is a common ward complaint. Productive cough with fever and dyspnea " +
				"suggests a lower respiratory infection. Dyspnea and cough with fever warrant " +
				"vital sign review and escalation when oxygen saturation falls.",
		},
	}
}

func newTestIndex(t *testing.T, docs ...Document) *Index {
	t.Helper()
	ix := NewIndex(Options{ChunkSize: 200, ChunkOverlap: 40})
	require.NoError(t, ix.Upsert(context.Background(), docs...))
	return ix
}

func TestQueryEmptyIndexUnavailable(t *testing.T) {
	ix := NewIndex(Options{})
	_, err := ix.Query(context.Background(), "fever and cough", QueryParams{})
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
}

func TestQueryEmptyTextReturnsNothing(t *testing.T) {
	ix := newTestIndex(t, testDocs()...)
	results, err := ix.Query(context.Background(), "   ", QueryParams{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestQueryIsDeterministic(t *testing.T) {
	ix := newTestIndex(t, testDocs()...)

	first, err := ix.Query(context.Background(), "fever productive cough dyspnea", QueryParams{TopK: 4})
	require.NoError(t, err)
	second, err := ix.Query(context.Background(), "fever productive cough dyspnea", QueryParams{TopK: 4})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestQueryGuidelineTierRanksFirst(t *testing.T) {
	ix := newTestIndex(t, testDocs()...)

	// The reference doc repeats the query words far more often, but the
	// guideline tier must still lead the result list.
	results, err := ix.Query(context.Background(), "dyspnea cough fever", QueryParams{TopK: 4})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	assert.Equal(t, TierGuideline, results[0].Tier)
	assert.Equal(t, "clinical-guideline-dyspnea", results[0].DocID)
}

func TestQueryTopKCapsResults(t *testing.T) {
	ix := newTestIndex(t, testDocs()...)
	results, err := ix.Query(context.Background(), "oxygen saturation escalation", QueryParams{TopK: 1})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestQueryCharBudgetGuaranteesFirstResult(t *testing.T) {
	ix := newTestIndex(t, testDocs()...)

	results, err := ix.Query(context.Background(), "fever cough dyspnea", QueryParams{TopK: 4, CharBudget: 30})
	require.NoError(t, err)

	require.Len(t, results, 1, "tiny budget keeps exactly the first result")
	assert.LessOrEqual(t, len([]rune(results[0].Excerpt)), 30)
}

func TestUpsertIsIdempotent(t *testing.T) {
	ix := newTestIndex(t, testDocs()...)

	before, err := ix.Query(context.Background(), "fever cough", QueryParams{TopK: 4})
	require.NoError(t, err)

	require.NoError(t, ix.Upsert(context.Background(), testDocs()...))
	assert.Equal(t, 2, ix.DocumentCount())

	after, err := ix.Query(context.Background(), "fever cough", QueryParams{TopK: 4})
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestRemoveDropsDocument(t *testing.T) {
	ix := newTestIndex(t, testDocs()...)

	require.NoError(t, ix.Remove(context.Background(), "reference-cough"))
	assert.Equal(t, 1, ix.DocumentCount())

	results, err := ix.Query(context.Background(), "fever cough", QueryParams{TopK: 6})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "reference-cough", r.DocID)
	}
}

func TestNoiseChunksOnlyCitedAsLastResort(t *testing.T) {
	noisy := Document{
		ID:       "reference-biblio",
		Title:    "Bibliography",
		Category: "reference",
		Text:     "Smith et al describe fever management, doi:10.1000/x. All rights reserved.",
	}

	ix := newTestIndex(t, append(testDocs(), noisy)...)
	results, err := ix.Query(context.Background(), "fever management", QueryParams{TopK: 6})
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "reference-biblio", r.DocID, "clean chunks exist, noise must not be cited")
	}

	onlyNoise := newTestIndex(t, noisy)
	results, err = onlyNoise.Query(context.Background(), "fever management", QueryParams{TopK: 6})
	require.NoError(t, err)
	require.NotEmpty(t, results, "noise is cited when nothing clean matched")
	assert.Equal(t, "reference-biblio", results[0].DocID)
}

func TestSplitChunksOverlap(t *testing.T) {
	text := strings.Repeat("abcdefghij ", 60)
	chunks := splitChunks(text, 200, 40)

	require.Greater(t, len(chunks), 1)
	for i, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c.Text)), 200)
		assert.NotEmpty(t, c.Text)
		if i == 0 {
			continue
		}
		prev := chunks[i-1]
		assert.Greater(t, c.Offset, prev.Offset, "offsets advance monotonically")
		assert.Less(t, c.Offset, prev.Offset+200, "consecutive chunks share context")
	}
}

func TestSplitChunksDeterministic(t *testing.T) {
	text := strings.Repeat("ward round note with observations ", 40)
	assert.Equal(t, splitChunks(text, 150, 30), splitChunks(text, 150, 30))
}
