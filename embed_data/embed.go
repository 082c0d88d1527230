package embed_data

import (
	"embed"
	"fmt"
)

//go:embed queries/*.json
var queryFiles embed.FS

//go:embed prompts/summarize_file_prompt.tmpl
var SummarizeFilePrompt []byte

//go:embed templates/file_documentation.md.tmpl
var FileDocumentationTemplate string

// QueryScheme returns the capture query scheme for a parser language.
func QueryScheme(language string) ([]byte, error) {
	data, err := queryFiles.ReadFile(fmt.Sprintf("queries/%s.json", language))
	if err != nil {
		return nil, fmt.Errorf("no query scheme for %s: %w", language, err)
	}
	return data, nil
}
