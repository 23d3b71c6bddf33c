package normalizer

import (
	"fmt"
	"regexp"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/dshills/chatcontext-mcp/internal/scanner"
	"github.com/dshills/chatcontext-mcp/pkg/types"
)

// Names of the built-in patterns
const (
	PatternTimestamp = "timestamp"
	PatternURL       = "url"
)

// URLRegex matches http and https links up to the next whitespace
const URLRegex = `https?://\S+`

// Patterns maps a pattern name to its compiled expression, in application order
type Patterns = orderedmap.OrderedMap[string, *regexp.Regexp]

// Exprs maps a pattern name to its source expression, in application order
type Exprs = orderedmap.OrderedMap[string, string]

// DefaultExprs returns the timestamp prefix pattern followed by the URL pattern
func DefaultExprs() *Exprs {
	exprs := orderedmap.New[string, string]()
	exprs.Set(PatternTimestamp, scanner.DefaultTimestampRegex)
	exprs.Set(PatternURL, URLRegex)
	return exprs
}

// CompilePatterns compiles every expression, keeping the insertion order
func CompilePatterns(exprs *Exprs) (*Patterns, error) {
	patterns := orderedmap.New[string, *regexp.Regexp]()
	if exprs == nil {
		return patterns, nil
	}
	for pair := exprs.Oldest(); pair != nil; pair = pair.Next() {
		re, err := regexp.Compile(pair.Value)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", pair.Key, err)
		}
		patterns.Set(pair.Key, re)
	}
	return patterns, nil
}

// StripPatterns removes every match of every pattern from text, applying the
// patterns in insertion order. A later pattern sees the output of the earlier ones.
func StripPatterns(text string, patterns *Patterns) string {
	if patterns == nil {
		return text
	}
	for pair := patterns.Oldest(); pair != nil; pair = pair.Next() {
		text = pair.Value.ReplaceAllLiteralString(text, "")
	}
	return text
}

// Normalizer strips a fixed set of patterns from chunk text
type Normalizer struct {
	patterns *Patterns
}

// New compiles exprs into a Normalizer
func New(exprs *Exprs) (*Normalizer, error) {
	patterns, err := CompilePatterns(exprs)
	if err != nil {
		return nil, err
	}
	return &Normalizer{patterns: patterns}, nil
}

// Default returns a Normalizer for DefaultExprs
func Default() *Normalizer {
	n, err := New(DefaultExprs())
	if err != nil {
		panic(err)
	}
	return n
}

// Timestamps returns a Normalizer that strips only the timestamps matched by p
func Timestamps(p *scanner.Pattern) *Normalizer {
	patterns := orderedmap.New[string, *regexp.Regexp]()
	patterns.Set(PatternTimestamp, p.Regexp())
	return &Normalizer{patterns: patterns}
}

// Names returns the pattern names in application order
func (n *Normalizer) Names() []string {
	names := make([]string, 0, n.patterns.Len())
	for pair := n.patterns.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Clean strips every configured pattern from text
func (n *Normalizer) Clean(text string) string {
	return StripPatterns(text, n.patterns)
}

// CleanChunk strips every configured pattern from the chunk text
func (n *Normalizer) CleanChunk(c types.Chunk) string {
	return n.Clean(c.Text())
}

// CleanLines strips every configured pattern from each line separately
func (n *Normalizer) CleanLines(lines []string) []string {
	cleaned := make([]string, len(lines))
	for i, line := range lines {
		cleaned[i] = n.Clean(line)
	}
	return cleaned
}
