package dict

import "github.com/puzpuzpuz/xsync/v3"

// StringPool deduplicates strings so that records sharing the same
// enumeration-like values (types, names, labels) share one backing array.
//
// Thread-safety: all methods are safe for concurrent use.
type StringPool struct {
	strings *xsync.MapOf[string, string]
}

func NewStringPool() *StringPool {
	return &StringPool{strings: xsync.NewMapOf[string, string]()}
}

// Intern returns the pooled instance equal to s.
func (p *StringPool) Intern(s string) string {
	if s == "" {
		return s
	}
	actual, _ := p.strings.LoadOrStore(s, s)
	return actual
}

// Size returns the number of distinct strings in the pool.
func (p *StringPool) Size() int {
	return p.strings.Size()
}
