// Package translator defines the boundary to the external translation capability.
package translator

import (
	"context"
	"encoding/json"
)

// Source records where an outcome came from.
type Source string

const (
	SourceTranslator  Source = "translator"
	SourceResponse    Source = "response-cache"
	SourceStringIndex Source = "string-index"
)

// StringResult is one translated literal.
type StringResult struct {
	OriginalText   string `json:"originalText"`
	Key            string `json:"key"`
	TranslatedText string `json:"translatedText"`
}

// Outcome is the serializable result of translating one file.
// Payload carries translator-specific data the pipeline stores but never interprets.
type Outcome struct {
	FilePath string          `json:"filePath"`
	Strings  []StringResult  `json:"strings"`
	Payload  json.RawMessage `json:"payload,omitempty"`
	Source   Source          `json:"source,omitempty"`
}

// Translator turns one file's content into translated strings. Implementations
// must honor ctx cancellation; the scheduler cancels ctx on timeout.
type Translator interface {
	Translate(ctx context.Context, filePath, content string) (*Outcome, error)
}

// Func adapts a plain function to the Translator interface.
type Func func(ctx context.Context, filePath, content string) (*Outcome, error)

func (f Func) Translate(ctx context.Context, filePath, content string) (*Outcome, error) {
	return f(ctx, filePath, content)
}
