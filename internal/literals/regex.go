package literals

import (
	"context"
	"regexp"
)

// quoted matches single, double and template literals with escapes.
var quoted = regexp.MustCompile("'(?:[^'\\\\\\n]|\\\\.)*'|\"(?:[^\"\\\\\\n]|\\\\.)*\"|`(?:[^`\\\\]|\\\\.)*`")

// RegexExtractor is a grammar-free extractor. It can be fooled by quotes inside
// comments or regex literals but never fails.
type RegexExtractor struct{}

func (RegexExtractor) Extract(_ context.Context, _ string, src []byte) ([]string, error) {
	matches := quoted.FindAll(src, -1)
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		out = append(out, string(m[1:len(m)-1]))
	}
	return out, nil
}
