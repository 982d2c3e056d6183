// Package literals finds string-literal-like spans in JavaScript and TypeScript
// sources and counts the distinct ones whose text needs translation.
package literals

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"
)

// Language identifies a source grammar.
type Language string

const (
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangUnknown    Language = ""
)

// LanguageFromPath maps a file extension to its grammar. JSX is parsed by
// the JavaScript grammar.
func LanguageFromPath(path string) Language {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript
	case ".ts", ".mts", ".cts":
		return LangTypeScript
	case ".tsx":
		return LangTSX
	default:
		return LangUnknown
	}
}

// Extractor returns the text of every string-literal-like span in src,
// without surrounding quotes, in source order. Duplicates are kept.
type Extractor interface {
	Extract(ctx context.Context, path string, src []byte) ([]string, error)
}

// DefaultTextPattern matches CJK unified ideographs.
var DefaultTextPattern = regexp.MustCompile(`[\x{4e00}-\x{9fff}]`)

// Qualifying returns the distinct texts matching pattern, in first-seen order.
// Texts are compared after trimming surrounding whitespace.
func Qualifying(texts []string, pattern *regexp.Regexp) []string {
	if pattern == nil {
		pattern = DefaultTextPattern
	}
	seen := make(map[string]struct{}, len(texts))
	out := make([]string, 0, len(texts))
	for _, t := range texts {
		t = strings.TrimSpace(t)
		if t == "" || !pattern.MatchString(t) {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Count extracts src and returns the distinct qualifying texts.
func Count(ctx context.Context, ex Extractor, path string, src []byte, pattern *regexp.Regexp) ([]string, error) {
	texts, err := ex.Extract(ctx, path, src)
	if err != nil {
		return nil, err
	}
	return Qualifying(texts, pattern), nil
}
