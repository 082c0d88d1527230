package generation

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/meysamhadeli/codedoc/code_analyzer"
	"github.com/meysamhadeli/codedoc/documentation/models"
	"github.com/meysamhadeli/codedoc/embed_data"
	"github.com/meysamhadeli/codedoc/providers/contracts"
	"github.com/meysamhadeli/codedoc/token_management"
	contracts2 "github.com/meysamhadeli/codedoc/token_management/contracts"
)

const (
	DefaultMaxInputTokens = 6000

	previewLines    = 5
	previewMaxBytes = 300
	truncatedMarker = "\n... [truncated: the rest of the file exceeds the input limit]"
)

// SummaryGenerator asks a provider to document one file.
type SummaryGenerator struct {
	provider        contracts.ISummaryProvider
	tokenManagement contracts2.ITokenManagement
	maxInputTokens  int
	systemPrompt    string
	now             func() time.Time
}

func NewSummaryGenerator(provider contracts.ISummaryProvider, tokenManagement contracts2.ITokenManagement, maxInputTokens int) *SummaryGenerator {
	if maxInputTokens <= 0 {
		maxInputTokens = DefaultMaxInputTokens
	}
	if tokenManagement == nil {
		tokenManagement = token_management.NewTokenManager()
	}
	return &SummaryGenerator{
		provider:        provider,
		tokenManagement: tokenManagement,
		maxInputTokens:  maxInputTokens,
		systemPrompt:    string(embed_data.SummarizeFilePrompt),
		now:             time.Now,
	}
}

// Generate produces the documentation record for relPath.
func (g *SummaryGenerator) Generate(ctx context.Context, relPath string, content []byte, modTime time.Time) (*models.FileDocumentation, error) {
	text := string(content)
	summary, err := g.provider.Summarize(ctx, g.systemPrompt, g.BuildPrompt(relPath, text))
	if err != nil {
		return nil, fmt.Errorf("failed to summarize %s: %w", relPath, err)
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return nil, fmt.Errorf("empty summary for %s", relPath)
	}

	return &models.FileDocumentation{
		Path:         relPath,
		Summary:      summary,
		Preview:      Preview(text),
		Type:         strings.ToLower(filepath.Ext(relPath)),
		ContentHash:  code_analyzer.HashBytes(content),
		LastModified: modTime,
		LastUpdated:  g.now(),
		Content:      text,
	}, nil
}

// BuildPrompt renders the user prompt, capping the file content to the input budget.
func (g *SummaryGenerator) BuildPrompt(relPath string, content string) string {
	language := LanguageTag(relPath)

	body, truncated := g.tokenManagement.TruncateToTokens(content, g.maxInputTokens)

	var b strings.Builder
	fmt.Fprintf(&b, "File: %s\n", relPath)
	fmt.Fprintf(&b, "Language: %s\n\n", language)
	fmt.Fprintf(&b, "```%s\n", language)
	b.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```")
	if truncated {
		b.WriteString(truncatedMarker)
	}
	return b.String()
}

// LanguageTag names the language of a file for the prompt.
func LanguageTag(relPath string) string {
	if lexer := lexers.Match(filepath.Base(relPath)); lexer != nil {
		return strings.ToLower(lexer.Config().Name)
	}
	if ext := strings.TrimPrefix(filepath.Ext(relPath), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "text"
}

// Preview returns the first non-empty lines of content, bounded in size.
func Preview(content string) string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimRight(line, " \t\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == previewLines {
			break
		}
	}

	preview := strings.Join(lines, "\n")
	if len(preview) <= previewMaxBytes {
		return preview
	}
	cut := previewMaxBytes
	for cut > 0 && !utf8.RuneStart(preview[cut]) {
		cut--
	}
	return preview[:cut]
}
