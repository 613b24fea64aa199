package codec

import (
	"fmt"
	"unicode/utf8"

	"github.com/ValentinKolb/edqs/lib/compress"
	"github.com/ValentinKolb/edqs/lib/dict"
	"github.com/ValentinKolb/edqs/lib/edqs"
)

// DefaultCompressionThreshold is the string length (in characters) from
// which string and json values are stored compressed.
const DefaultCompressionThreshold = 512

// Options configures a codec.
type Options struct {
	// CompressionThreshold in characters (0 = DefaultCompressionThreshold).
	CompressionThreshold int
	// Compressor for large values (required).
	Compressor compress.Compressor
	// Stats is notified on every compression and decompression (nil = discard).
	Stats compress.Stats
	// Keys resolves key names to dictionary ids (nil = private dictionary).
	Keys edqs.KeyResolver
	// Pool interns strings decoded by the generic strategy (nil = no interning).
	Pool Interner
}

// strategy encodes and decodes one family of object types
type strategy interface {
	serialize(t edqs.ObjectType, obj edqs.Object) ([]byte, error)
	deserialize(t edqs.ObjectType, data []byte, onlyKey bool) (edqs.Object, error)
}

type codecImpl struct {
	threshold  int
	compressor compress.Compressor
	keys       edqs.KeyResolver
	pool       Interner

	strategies [edqs.NumObjectTypes]strategy
	fallback   strategy
}

// New creates a codec. The strategy for every object type is resolved here
// once, lookups on the hot path are plain array accesses.
//
// Thread-safety: the returned codec is safe for concurrent use.
func New(opts Options) (ObjectCodec, error) {
	if opts.Compressor == nil {
		return nil, fmt.Errorf("codec: compressor is required")
	}
	if opts.CompressionThreshold <= 0 {
		opts.CompressionThreshold = DefaultCompressionThreshold
	}
	if opts.Stats == nil {
		opts.Stats = compress.NoopStats{}
	}
	if opts.Keys == nil {
		opts.Keys = dict.NewKeyDictionary()
	}
	if opts.Pool == nil {
		opts.Pool = identityInterner{}
	}

	c := &codecImpl{
		threshold:  opts.CompressionThreshold,
		compressor: compress.WithStats(opts.Compressor, opts.Stats),
		keys:       opts.Keys,
		pool:       opts.Pool,
	}

	binary := &protoStrategy{codec: c}
	generic := &genericStrategy{codec: c}
	for i := range c.strategies {
		switch edqs.ObjectType(i) {
		case edqs.ObjectTypeAttributeKv, edqs.ObjectTypeLatestTsKv:
			c.strategies[i] = binary
		default:
			c.strategies[i] = generic
		}
	}
	c.fallback = generic
	return c, nil
}

// --------------------------------------------------------------------------
// Interface Methods (docu see codec.ObjectCodec)
// --------------------------------------------------------------------------

func (c *codecImpl) Serialize(t edqs.ObjectType, obj edqs.Object) ([]byte, error) {
	if obj == nil {
		return nil, fmt.Errorf("codec: cannot serialize nil %s", t)
	}
	return c.strategyFor(t).serialize(t, obj)
}

func (c *codecImpl) Deserialize(t edqs.ObjectType, data []byte, onlyKey bool) (edqs.Object, error) {
	return c.strategyFor(t).deserialize(t, data, onlyKey)
}

func (c *codecImpl) Key(obj edqs.Object) edqs.ObjectKey {
	return obj.IdentityKey(c.keys)
}

func (c *codecImpl) Compact(dp edqs.DataPoint) edqs.DataPoint {
	switch dp.Type {
	case edqs.DataTypeString, edqs.DataTypeJSON:
		if utf8.RuneCountInString(dp.Str) >= c.threshold {
			return edqs.NewCompressedDataPoint(dp.Ts, c.compressor.Compress(dp.Str), dp.Type == edqs.DataTypeJSON)
		}
	}
	return dp
}

func (c *codecImpl) Decompressor() edqs.Decompressor {
	return c.compressor
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func (c *codecImpl) strategyFor(t edqs.ObjectType) strategy {
	if int(t) < len(c.strategies) {
		return c.strategies[t]
	}
	return c.fallback
}

type identityInterner struct{}

func (identityInterner) Intern(s string) string { return s }
