// Package mcp_server exposes the documentation store and scan results over MCP stdio.
package mcp_server

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"
	analyzer_models "github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/meysamhadeli/codedoc/documentation/models"
	"github.com/meysamhadeli/codedoc/logger"
)

const (
	ServerName    = "codedoc"
	ServerVersion = "1.0.0"
)

// DocumentReader is the read side of the documentation store.
type DocumentReader interface {
	Get(relPath string) (models.FileDocumentation, bool)
	List() []models.FileDocumentation
}

// StructureLookup resolves the extracted structure of a file.
type StructureLookup interface {
	LookupStructure(relPath string) (*analyzer_models.FileStructure, bool)
}

// Regenerator queues documentation work.
type Regenerator interface {
	Enqueue(relPath string) bool
	RegenerateAll(ctx context.Context) (int, error)
}

// PathFilter decides which workspace files may be sent for summarization.
type PathFilter interface {
	ShouldTrack(relPath string) bool
}

// Server wraps the MCP server with the workspace it answers for.
type Server struct {
	mcp         *server.MCPServer
	root        string
	docs        DocumentReader
	structures  StructureLookup
	regenerator Regenerator
	filter      PathFilter
	logger      *slog.Logger
}

// NewServer registers the tools. regenerator may be nil, in which case regenerate_documentation reports an error.
// Paths rejected by filter are never queued; a nil filter accepts every path.
func NewServer(root string, docs DocumentReader, structures StructureLookup, regenerator Regenerator, filter PathFilter, log *slog.Logger) *Server {
	s := &Server{
		mcp:         server.NewMCPServer(ServerName, ServerVersion),
		root:        root,
		docs:        docs,
		structures:  structures,
		regenerator: regenerator,
		filter:      filter,
		logger:      logger.OrDiscard(log).With("component", "mcp"),
	}
	s.registerTools()
	return s
}

// Serve answers requests on stdio until the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("serving documentation over stdio", "root", s.root)
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(getFileDocumentationTool(), s.handleGetFileDocumentation)
	s.mcp.AddTool(listDocumentedFilesTool(), s.handleListDocumentedFiles)
	s.mcp.AddTool(getFileStructureTool(), s.handleGetFileStructure)
	s.mcp.AddTool(regenerateDocumentationTool(), s.handleRegenerateDocumentation)
}
