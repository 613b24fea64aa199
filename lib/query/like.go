package query

import (
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
)

// --------------------------------------------------------------------------
// SQL-LIKE Patterns
// --------------------------------------------------------------------------

const (
	patternCacheTTL     = 10 * time.Minute
	patternCacheCleanup = 20 * time.Minute
)

// likeExpression translates a LIKE value into a regular expression. '%'
// matches any run of characters, '_' exactly one, everything else literally.
// The result is matched against the whole input.
//
// Without wildcards the escaped value is wrapped in prefix and suffix. With
// wildcards only the "^" prefix and the "$" suffix are honoured, an implicit
// ".*" is added on the open side unless the value already starts or ends
// with '%'.
func likeExpression(value, prefix, suffix string) string {
	if !strings.ContainsAny(value, "%_") {
		return prefix + regexp.QuoteMeta(value) + suffix
	}

	var sb strings.Builder
	for _, r := range value {
		switch r {
		case '%':
			sb.WriteString(".*")
		case '_':
			sb.WriteByte('.')
		default:
			sb.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	expr := sb.String()

	switch {
	case prefix == "^":
		expr = "^" + expr
		if !strings.HasSuffix(value, "%") {
			expr += ".*"
		}
	case suffix == "$":
		if !strings.HasPrefix(value, "%") {
			expr = ".*" + expr
		}
		expr += "$"
	}
	return expr
}

// patternCache memoizes compiled LIKE patterns by their full expression.
// Entries expire patternCacheTTL after they were compiled.
type patternCache struct {
	compiled *cache.Cache
}

func newPatternCache() *patternCache {
	return &patternCache{compiled: cache.New(patternCacheTTL, patternCacheCleanup)}
}

// match reports whether the whole input matches the LIKE value.
func (c *patternCache) match(input, value, prefix, suffix string, ignoreCase bool) bool {
	re := c.get(likeExpression(value, prefix, suffix), ignoreCase)
	return re != nil && re.MatchString(input)
}

func (c *patternCache) get(expr string, ignoreCase bool) *regexp.Regexp {
	full := "^(?:" + expr + ")$"
	if ignoreCase {
		full = "(?i)" + full
	}
	if cached, ok := c.compiled.Get(full); ok {
		return cached.(*regexp.Regexp)
	}
	re, err := regexp.Compile(full)
	if err != nil {
		log.Errorf("cannot compile pattern %q: %v", full, err)
		return nil
	}
	c.compiled.SetDefault(full, re)
	return re
}

// --------------------------------------------------------------------------
// IN Lists
// --------------------------------------------------------------------------

var commaSeparator = regexp.MustCompile(`\s*,\s*`)

// splitByCommaWithoutQuotes splits an IN list on commas. If every entry is
// wrapped in the same kind of quotes (' or "), the quotes are removed.
// Otherwise the entries are returned as split.
func splitByCommaWithoutQuotes(value string) []string {
	parts := commaSeparator.Split(strings.TrimSpace(value), -1)
	for len(parts) > 0 && parts[len(parts)-1] == "" {
		parts = parts[:len(parts)-1]
	}

	unquoted := make([]string, 0, len(parts))
	var quote byte
	for _, p := range parts {
		if len(p) < 2 {
			return parts
		}
		first, last := p[0], p[len(p)-1]
		if (first != '\'' && first != '"') || first != last || (quote != 0 && first != quote) {
			return parts
		}
		unquoted = append(unquoted, p[1:len(p)-1])
		quote = first
	}
	return unquoted
}

func equalsAny(value string, candidates []string) bool {
	for _, c := range candidates {
		if value == c {
			return true
		}
	}
	return false
}
