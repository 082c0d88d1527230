package mcp_server

import "github.com/mark3labs/mcp-go/mcp"

func getFileDocumentationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_file_documentation",
		Description: "Return the generated documentation for one workspace file",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path, relative to the workspace root or absolute",
				},
			},
			Required: []string{"path"},
		},
	}
}

func listDocumentedFilesTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_documented_files",
		Description: "List documented files with the first line of each summary",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"prefix": map[string]interface{}{
					"type":        "string",
					"description": "Only list files under this directory",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of files to return (1-1000)",
					"default":     100,
					"minimum":     1,
					"maximum":     1000,
				},
			},
		},
	}
}

func getFileStructureTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_file_structure",
		Description: "Return the classes, methods and functions found in a file by the last scan",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "File path, relative to the workspace root or absolute",
				},
			},
			Required: []string{"path"},
		},
	}
}

func regenerateDocumentationTool() mcp.Tool {
	return mcp.Tool{
		Name:        "regenerate_documentation",
		Description: "Queue documentation generation for one file, or for the whole workspace when no path is given",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Optional file path to regenerate",
				},
			},
		},
	}
}
