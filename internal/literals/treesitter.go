//go:build cgo

package literals

import (
	"context"
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// literalNodeTypes are the node kinds whose text may need translation.
var literalNodeTypes = map[string]bool{
	"string":          true,
	"template_string": true,
	"jsx_text":        true,
}

// TreeSitterExtractor parses the file and collects string, template and JSX
// text nodes. Files of unknown language fall back to the regex extractor.
type TreeSitterExtractor struct {
	fallback RegexExtractor
}

// NewExtractor returns the best extractor available in this build.
func NewExtractor() Extractor {
	return &TreeSitterExtractor{}
}

func (e *TreeSitterExtractor) Extract(ctx context.Context, path string, src []byte) ([]string, error) {
	lang, err := getLanguage(LanguageFromPath(path))
	if err != nil {
		return e.fallback.Extract(ctx, path, src)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(lang)
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	var out []string
	collect(tree.RootNode(), src, &out)
	return out, nil
}

func collect(node *sitter.Node, src []byte, out *[]string) {
	if node == nil {
		return
	}
	if literalNodeTypes[node.Type()] {
		*out = append(*out, unquote(node.Type(), node.Content(src)))
		// template substitutions may hold nested literals
		if node.Type() != "template_string" {
			return
		}
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collect(node.Child(i), src, out)
	}
}

func unquote(nodeType, text string) string {
	if nodeType == "jsx_text" || len(text) < 2 {
		return text
	}
	return text[1 : len(text)-1]
}

func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %q", lang)
	}
}
