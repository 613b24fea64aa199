package codec

import (
	"fmt"

	"github.com/ValentinKolb/edqs/lib/edqs"
)

// ObjectCodec turns store objects into bytes and back. The encoding is
// selected by the object type: attributes and latest time series values use
// a compact binary layout, every other type a self-describing generic one.
type ObjectCodec interface {
	// Serialize encodes obj. t selects the strategy and must match obj.ObjectType()
	// for specialized layouts. It only fails for values that cannot be
	// represented (for example a field holding NaN).
	Serialize(t edqs.ObjectType, obj edqs.Object) ([]byte, error)

	// Deserialize decodes data as an object of type t. With onlyKey set,
	// value payloads may be skipped: attributes and latest values are
	// returned without their data point. Malformed input yields a *DecodeError.
	// Unknown object types are decoded with the generic strategy.
	Deserialize(t edqs.ObjectType, data []byte, onlyKey bool) (edqs.Object, error)

	// Key returns the identity key of obj without any encoding.
	Key(obj edqs.Object) edqs.ObjectKey

	// Compact returns dp with string and json payloads at or above the
	// compression threshold replaced by their compressed variant.
	Compact(dp edqs.DataPoint) edqs.DataPoint

	// Decompressor returns the decompressor matching the codec's compressor,
	// for lazy access to compressed data points.
	Decompressor() edqs.Decompressor
}

// Interner deduplicates decoded strings.
type Interner interface {
	Intern(s string) string
}

// --------------------------------------------------------------------------
// Errors
// --------------------------------------------------------------------------

// DecodeError reports a payload that does not match the layout of its declared type.
type DecodeError struct {
	Type   edqs.ObjectType
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("failed to decode %s: %s: %v", e.Type, e.Reason, e.Err)
	}
	return fmt.Sprintf("failed to decode %s: %s", e.Type, e.Reason)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func newDecodeError(t edqs.ObjectType, reason string, err error) *DecodeError {
	return &DecodeError{Type: t, Reason: reason, Err: err}
}
