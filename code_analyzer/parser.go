package code_analyzer

import (
	"context"
	"errors"
	"fmt"

	"github.com/meysamhadeli/codedoc/utils"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// ErrUnsupportedLanguage is returned for files without a grammar.
var ErrUnsupportedLanguage = errors.New("unsupported language")

// ParsedFile is a syntax tree together with the text it was parsed from.
type ParsedFile struct {
	Path     string
	Language string
	Scheme   string
	Grammar  *sitter.Language
	Tree     *sitter.Tree
	Source   []byte
}

// SyntaxParser parses source files with tree-sitter, selecting the grammar by extension.
type SyntaxParser struct{}

// NewSyntaxParser creates a parser service.
func NewSyntaxParser() *SyntaxParser {
	return &SyntaxParser{}
}

// grammarFor returns the grammar and query scheme name for a parser language.
func grammarFor(language string) (*sitter.Language, string) {
	switch language {
	case "csharp":
		return csharp.GetLanguage(), "csharp"
	case "go":
		return golang.GetLanguage(), "go"
	case "python":
		return python.GetLanguage(), "python"
	case "java":
		return java.GetLanguage(), "java"
	case "javascript":
		return javascript.GetLanguage(), "javascript"
	case "typescript":
		return typescript.GetLanguage(), "typescript"
	case "tsx":
		// TSX shares the TypeScript node types.
		return tsx.GetLanguage(), "typescript"
	default:
		return nil, ""
	}
}

// Supports reports whether a grammar exists for the file's extension.
func (p *SyntaxParser) Supports(filePath string) bool {
	grammar, _ := grammarFor(utils.GetSupportedLanguage(filePath))
	return grammar != nil
}

// Parse builds a syntax tree for source. Unsupported extensions fail closed.
func (p *SyntaxParser) Parse(ctx context.Context, filePath string, source []byte) (*ParsedFile, error) {
	language := utils.GetSupportedLanguage(filePath)
	grammar, scheme := grammarFor(language)
	if grammar == nil {
		return nil, fmt.Errorf("%s: %w", filePath, ErrUnsupportedLanguage)
	}

	parser := sitter.NewParser()
	parser.SetLanguage(grammar)

	tree, err := parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	return &ParsedFile{
		Path:     filePath,
		Language: language,
		Scheme:   scheme,
		Grammar:  grammar,
		Tree:     tree,
		Source:   source,
	}, nil
}
