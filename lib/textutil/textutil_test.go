package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeHandle(t *testing.T) {
	require.Equal(t, "veritasium", NormalizeHandle("  @Veritasium "))
	require.Equal(t, "mkbhd", NormalizeHandle("MKBHD"))
}

func TestSimilarity(t *testing.T) {
	require.Equal(t, 1.0, Similarity("@Veritasium", "veritasium"))
	require.Equal(t, 0.0, Similarity("@veritasium", ""))
	require.Greater(t, Similarity("@veritasium", "@veritasiumm"), 0.85)
	require.Less(t, Similarity("@veritasium", "@mrbeast"), 0.85)
}

func TestCollapseWhitespace(t *testing.T) {
	require.Equal(t, "1 234 subscribers", CollapseWhitespace("  1 234\n\t subscribers "))
}
