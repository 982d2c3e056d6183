//go:build !cgo

package literals

// NewExtractor returns the regex extractor; tree-sitter needs cgo.
func NewExtractor() Extractor {
	return RegexExtractor{}
}
