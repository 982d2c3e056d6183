package literals

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLanguageFromPath(t *testing.T) {
	tests := map[string]Language{
		"a.js":      LangJavaScript,
		"a.JSX":     LangJavaScript,
		"a.mjs":     LangJavaScript,
		"a.ts":      LangTypeScript,
		"a.cts":     LangTypeScript,
		"a.tsx":     LangTSX,
		"README.md": LangUnknown,
	}
	for path, want := range tests {
		assert.Equal(t, want, LanguageFromPath(path), path)
	}
}

func TestRegexExtractor(t *testing.T) {
	src := []byte("const a = '你好';\nconst b = \"世界\";\nconst c = `模板 ${x}`;\nconst d = 'it\\'s';\n")

	texts, err := RegexExtractor{}.Extract(context.Background(), "a.js", src)
	require.NoError(t, err)
	assert.Equal(t, []string{"你好", "世界", "模板 ${x}", "it\\'s"}, texts)
}

func TestQualifying(t *testing.T) {
	texts := []string{"你好", "hello", " 你好 ", "世界", "", "你好"}

	got := Qualifying(texts, nil)
	assert.Equal(t, []string{"你好", "世界"}, got, "duplicates count once, non-matching text is dropped")

	latin := regexp.MustCompile(`^[a-z]+$`)
	assert.Equal(t, []string{"hello"}, Qualifying(texts, latin))
}

func TestCount_IgnoresBareText(t *testing.T) {
	// CJK outside string literals (comments) does not count.
	src := []byte("// 注释\nconst a = '你好';\nconst b = '你好';\n")

	got, err := Count(context.Background(), RegexExtractor{}, "a.ts", src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"你好"}, got)
}

func TestNewExtractor(t *testing.T) {
	src := []byte("export const title = '標題';\n")
	got, err := Count(context.Background(), NewExtractor(), "a.ts", src, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"標題"}, got)
}
