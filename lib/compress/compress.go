package compress

import (
	"fmt"

	"github.com/VictoriaMetrics/metrics"
	"github.com/klauspost/compress/zstd"
)

// --------------------------------------------------------------------------
// Interfaces
// --------------------------------------------------------------------------

// Compressor compresses text payloads. Implementations must be safe for
// concurrent use since the codec and all query workers share one instance.
type Compressor interface {
	Compress(text string) []byte
	Decompress(data []byte) (string, error)
}

// Stats receives one call per compressed and per decompressed string.
type Stats interface {
	StringCompressed()
	StringDecompressed()
}

// --------------------------------------------------------------------------
// zstd Compressor
// --------------------------------------------------------------------------

type zstdCompressorImpl struct {
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// NewZstdCompressor creates a stateless zstd compressor. EncodeAll and
// DecodeAll of the underlying coder are safe for concurrent use.
func NewZstdCompressor() (Compressor, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &zstdCompressorImpl{encoder: enc, decoder: dec}, nil
}

func (z *zstdCompressorImpl) Compress(text string) []byte {
	return z.encoder.EncodeAll([]byte(text), nil)
}

func (z *zstdCompressorImpl) Decompress(data []byte) (string, error) {
	out, err := z.decoder.DecodeAll(data, nil)
	if err != nil {
		return "", fmt.Errorf("failed to decompress %d bytes: %w", len(data), err)
	}
	return string(out), nil
}

// --------------------------------------------------------------------------
// Counting wrapper
// --------------------------------------------------------------------------

type countingImpl struct {
	inner Compressor
	stats Stats
}

// WithStats reports every Compress and every successful Decompress call of c to s.
func WithStats(c Compressor, s Stats) Compressor {
	return &countingImpl{inner: c, stats: s}
}

func (c *countingImpl) Compress(text string) []byte {
	out := c.inner.Compress(text)
	c.stats.StringCompressed()
	return out
}

func (c *countingImpl) Decompress(data []byte) (string, error) {
	out, err := c.inner.Decompress(data)
	if err == nil {
		c.stats.StringDecompressed()
	}
	return out, err
}

// --------------------------------------------------------------------------
// Stats implementations
// --------------------------------------------------------------------------

// Metrics counts compression calls in a VictoriaMetrics set.
type Metrics struct {
	compressed   *metrics.Counter
	decompressed *metrics.Counter
}

// NewMetrics registers the compression counters in set.
func NewMetrics(set *metrics.Set) *Metrics {
	return &Metrics{
		compressed:   set.GetOrCreateCounter("edqs_string_compressed_total"),
		decompressed: set.GetOrCreateCounter("edqs_string_decompressed_total"),
	}
}

func (m *Metrics) StringCompressed()   { m.compressed.Inc() }
func (m *Metrics) StringDecompressed() { m.decompressed.Inc() }

// Compressed returns the number of compressed strings so far.
func (m *Metrics) Compressed() uint64 { return m.compressed.Get() }

// Decompressed returns the number of decompressed strings so far.
func (m *Metrics) Decompressed() uint64 { return m.decompressed.Get() }

// NoopStats discards all events.
type NoopStats struct{}

func (NoopStats) StringCompressed()   {}
func (NoopStats) StringDecompressed() {}
