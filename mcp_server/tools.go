package mcp_server

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/meysamhadeli/codedoc/utils"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

func (s *Server) handleGetFileDocumentation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	relPath, errResult := s.pathArgument(request, true)
	if errResult != nil {
		return errResult, nil
	}

	doc, ok := s.docs.Get(relPath)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no documentation for %s", relPath)), nil
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"path":         doc.Path,
		"type":         doc.Type,
		"summary":      doc.Summary,
		"preview":      doc.Preview,
		"contentHash":  doc.ContentHash,
		"lastModified": doc.LastModified,
		"lastUpdated":  doc.LastUpdated,
	})), nil
}

func (s *Server) handleListDocumentedFiles(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := arguments(request)

	prefix := ""
	if raw, ok := args["prefix"].(string); ok && raw != "" {
		normalized, err := utils.NormalizePath(s.root, raw)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid prefix: %v", err)), nil
		}
		prefix = normalized
	}

	limit := defaultListLimit
	if raw, ok := args["limit"].(float64); ok {
		limit = int(raw)
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	files := make([]map[string]interface{}, 0)
	total := 0
	for _, doc := range s.docs.List() {
		if prefix != "" && doc.Path != prefix && !strings.HasPrefix(doc.Path, prefix+"/") {
			continue
		}
		total++
		if len(files) < limit {
			files = append(files, map[string]interface{}{
				"path":        doc.Path,
				"type":        doc.Type,
				"firstLine":   firstLine(doc.Summary),
				"lastUpdated": doc.LastUpdated,
			})
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"total": total,
		"files": files,
	})), nil
}

func (s *Server) handleGetFileStructure(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	relPath, errResult := s.pathArgument(request, true)
	if errResult != nil {
		return errResult, nil
	}
	if s.structures == nil {
		return mcp.NewToolResultError("structure lookup is not available"), nil
	}

	structure, ok := s.structures.LookupStructure(relPath)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no structure recorded for %s; run a scan first", relPath)), nil
	}
	return mcp.NewToolResultText(formatJSON(structure)), nil
}

func (s *Server) handleRegenerateDocumentation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.regenerator == nil {
		return mcp.NewToolResultError("documentation generation is not configured"), nil
	}

	relPath, errResult := s.pathArgument(request, false)
	if errResult != nil {
		return errResult, nil
	}

	if relPath != "" {
		if s.filter != nil && !s.filter.ShouldTrack(relPath) {
			s.logger.Warn("refusing to regenerate ineligible path", "path", relPath)
			return mcp.NewToolResultError(fmt.Sprintf("%s is ignored or not a tracked file type", relPath)), nil
		}
		queued := s.regenerator.Enqueue(relPath)
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"path":   relPath,
			"queued": queued,
		})), nil
	}

	count, err := s.regenerator.RegenerateAll(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("regeneration failed: %v", err)), nil
	}
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"queued": count,
	})), nil
}

// pathArgument reads and normalizes the "path" argument.
func (s *Server) pathArgument(request mcp.CallToolRequest, required bool) (string, *mcp.CallToolResult) {
	raw, _ := arguments(request)["path"].(string)
	if raw == "" {
		if required {
			return "", mcp.NewToolResultError("path parameter is required")
		}
		return "", nil
	}

	relPath, err := utils.NormalizePath(s.root, raw)
	if err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("invalid path: %v", err))
	}
	if relPath == "" && required {
		return "", mcp.NewToolResultError("path must name a file")
	}
	return relPath, nil
}

func arguments(request mcp.CallToolRequest) map[string]interface{} {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}
	return args
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

func formatJSON(v interface{}) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}
