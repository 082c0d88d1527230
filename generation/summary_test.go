package generation

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProvider struct {
	response   string
	err        error
	lastSystem string
	lastUser   string
}

func (m *mockProvider) Summarize(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	m.lastSystem = systemPrompt
	m.lastUser = userPrompt
	return m.response, m.err
}

func (m *mockProvider) Name() string  { return "mock" }
func (m *mockProvider) Model() string { return "mock-1" }

func TestGenerate(t *testing.T) {
	provider := &mockProvider{response: "  Defines the Parser class.\n"}
	generator := NewSummaryGenerator(provider, nil, 0)
	generator.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	modTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	content := []byte("class Parser:\n\n    def parse(self):\n        pass\n")
	doc, err := generator.Generate(context.Background(), "src/parser.py", content, modTime)
	require.NoError(t, err)

	assert.Equal(t, "src/parser.py", doc.Path)
	assert.Equal(t, "Defines the Parser class.", doc.Summary)
	assert.Equal(t, ".py", doc.Type)
	assert.Equal(t, "class Parser:\n    def parse(self):\n        pass", doc.Preview)
	assert.Len(t, doc.ContentHash, 32)
	assert.Equal(t, modTime, doc.LastModified)
	assert.Equal(t, 2024, doc.LastUpdated.Year())
	assert.Equal(t, string(content), doc.Content)

	assert.Contains(t, provider.lastSystem, "reference documentation")
	assert.Contains(t, provider.lastUser, "File: src/parser.py")
	assert.Contains(t, provider.lastUser, "Language: python")
	assert.Contains(t, provider.lastUser, "class Parser:")
}

func TestGenerate_Errors(t *testing.T) {
	generator := NewSummaryGenerator(&mockProvider{err: errors.New("boom")}, nil, 0)
	_, err := generator.Generate(context.Background(), "a.py", []byte("x = 1"), time.Now())
	assert.ErrorContains(t, err, "boom")

	generator = NewSummaryGenerator(&mockProvider{response: " \n\t"}, nil, 0)
	_, err = generator.Generate(context.Background(), "a.py", []byte("x = 1"), time.Now())
	assert.ErrorContains(t, err, "empty summary")
}

func TestBuildPrompt_TruncatesLongContent(t *testing.T) {
	generator := NewSummaryGenerator(&mockProvider{}, nil, 10)

	prompt := generator.BuildPrompt("big.go", strings.Repeat("é", 500))
	assert.Contains(t, prompt, truncatedMarker)
	assert.True(t, utf8.ValidString(prompt))
	assert.Less(t, strings.Count(prompt, "é"), 500)

	prompt = generator.BuildPrompt("small.go", "package small")
	assert.NotContains(t, prompt, truncatedMarker)
	assert.Contains(t, prompt, "Language: go")
}

func TestLanguageTag(t *testing.T) {
	assert.Equal(t, "python", LanguageTag("a/b/c.py"))
	assert.Equal(t, "go", LanguageTag("main.go"))
	assert.Equal(t, "zzq", LanguageTag("data.zzq"))
	assert.Equal(t, "text", LanguageTag("LICENSE_NO_EXT_zz"))
}

func TestPreview(t *testing.T) {
	content := "\n\nline1\n\nline2\nline3\n   \nline4\nline5\nline6\n"
	assert.Equal(t, "line1\nline2\nline3\nline4\nline5", Preview(content))

	long := strings.Repeat("ü", 400)
	preview := Preview(long)
	assert.LessOrEqual(t, len(preview), previewMaxBytes)
	assert.True(t, utf8.ValidString(preview))
	assert.Empty(t, Preview("\n \n"))
}
