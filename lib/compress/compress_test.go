package compress

import (
	"strings"
	"testing"

	"github.com/VictoriaMetrics/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdRoundTrip(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)

	for _, text := range []string{"a", strings.Repeat("temperature=21.5;", 100)} {
		data := c.Compress(text)
		out, err := c.Decompress(data)
		require.NoError(t, err)
		assert.Equal(t, text, out)
	}
}

func TestZstdRejectsGarbage(t *testing.T) {
	c, err := NewZstdCompressor()
	require.NoError(t, err)

	_, err = c.Decompress([]byte("definitely not zstd"))
	assert.Error(t, err)
}

func TestWithStatsCountsCalls(t *testing.T) {
	inner, err := NewZstdCompressor()
	require.NoError(t, err)
	m := NewMetrics(metrics.NewSet())
	c := WithStats(inner, m)

	data := c.Compress("hello")
	_, err = c.Decompress(data)
	require.NoError(t, err)
	_, err = c.Decompress(data)
	require.NoError(t, err)
	_, _ = c.Decompress([]byte{1, 2, 3})

	assert.Equal(t, uint64(1), m.Compressed())
	assert.Equal(t, uint64(2), m.Decompressed())
}
