package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAstFilterActive(t *testing.T) {
	depth := 2
	assert.False(t, AstFilter{}.Active())
	assert.True(t, AstFilter{Kinds: []string{"function_item"}}.Active())
	assert.True(t, AstFilter{Inside: "impl_item"}.Active())
	assert.True(t, AstFilter{Contains: "if_expression"}.Active())
	assert.True(t, AstFilter{MaxDepth: &depth}.Active())
	assert.False(t, AstFilter{Inside: "impl_item"}.DepthActive())
}

func TestMetricBoundsActive(t *testing.T) {
	zero := 0
	assert.False(t, MetricBounds{}.Active())
	assert.True(t, MetricBounds{MinFanIn: &zero}.Active())
	assert.True(t, MetricBounds{MaxComplexity: &zero}.Active())
}

func TestNormalizedContextLines(t *testing.T) {
	opts := SearchOptions{}.Normalized()
	assert.Nil(t, opts.ContextLines, "no window requested")

	opts = SearchOptions{WithContext: true}.Normalized()
	require.NotNil(t, opts.ContextLines)
	assert.Equal(t, DefaultContextLines, *opts.ContextLines)

	zero := 0
	opts = SearchOptions{WithContext: true, ContextLines: &zero}.Normalized()
	require.NotNil(t, opts.ContextLines)
	assert.Equal(t, 0, *opts.ContextLines, "explicit zero is kept")
}
