package utils

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2/quick"
)

// RenderMarkdown highlights a markdown document for a terminal.
// Falls back to the plain text when highlighting fails.
func RenderMarkdown(ctx context.Context, w io.Writer, content string, theme string) error {
	if theme == "" {
		theme = "dracula"
	}

	var builder strings.Builder
	if err := quick.Highlight(&builder, content, "markdown", "terminal256", theme); err != nil {
		_, werr := io.WriteString(w, content)
		return werr
	}

	for _, line := range strings.SplitAfter(builder.String(), "\n") {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if _, err := io.WriteString(w, line); err != nil {
			return fmt.Errorf("failed to write rendered markdown: %w", err)
		}
	}
	return nil
}
