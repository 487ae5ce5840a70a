package retrieval

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)

	a, err := e.Embed(context.Background(), "Fever and productive cough")
	require.NoError(t, err)
	b, err := e.Embed(context.Background(), "Fever and productive cough")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 64)
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(128)
	vec, err := e.Embed(context.Background(), "oxygen saturation respiratory rate blood pressure")
	require.NoError(t, err)

	var sum float64
	for _, v := range vec {
		sum += v * v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestHashEmbedderCaseInsensitive(t *testing.T) {
	e := NewHashEmbedder(64)
	a, _ := e.Embed(context.Background(), "CHEST PAIN")
	b, _ := e.Embed(context.Background(), "chest pain")
	assert.Equal(t, a, b)
}

func TestCosineSelfSimilarity(t *testing.T) {
	e := NewHashEmbedder(64)
	vec, err := e.Embed(context.Background(), "shortness of breath")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, cosine(vec, vec), 1e-9)

	empty, err := e.Embed(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, math.Abs(cosine(vec, empty)) < 1e-9)
}
