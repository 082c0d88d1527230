package mcp_server

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	analyzer_models "github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/meysamhadeli/codedoc/documentation/models"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockDocs map[string]models.FileDocumentation

func (m mockDocs) Get(relPath string) (models.FileDocumentation, bool) {
	doc, ok := m[relPath]
	return doc, ok
}

func (m mockDocs) List() []models.FileDocumentation {
	keys := []string{"lib/util.py", "src/app.py", "src/sub/deep.py"}
	var docs []models.FileDocumentation
	for _, key := range keys {
		if doc, ok := m[key]; ok {
			docs = append(docs, doc)
		}
	}
	return docs
}

type mockStructures map[string]*analyzer_models.FileStructure

func (m mockStructures) LookupStructure(relPath string) (*analyzer_models.FileStructure, bool) {
	s, ok := m[relPath]
	return s, ok
}

type mockRegenerator struct {
	mutex    sync.Mutex
	enqueued []string
	all      int
}

func (m *mockRegenerator) Enqueue(relPath string) bool {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.enqueued = append(m.enqueued, relPath)
	return true
}

func (m *mockRegenerator) RegenerateAll(ctx context.Context) (int, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.all++
	return 7, nil
}

func newTestServer(t *testing.T) (*Server, *mockRegenerator) {
	t.Helper()
	docs := mockDocs{
		"src/app.py":      {Path: "src/app.py", Type: ".py", Summary: "\nRuns the app.\nMore detail."},
		"src/sub/deep.py": {Path: "src/sub/deep.py", Type: ".py", Summary: "Deep helper."},
		"lib/util.py":     {Path: "lib/util.py", Type: ".py", Summary: "Utilities."},
	}
	structures := mockStructures{
		"src/app.py": {
			Path:        "src/app.py",
			ContentHash: "h",
			Items:       []analyzer_models.CodeItem{{Kind: analyzer_models.KindFunction, Name: "main", StartLine: 1, EndLine: 3}},
		},
	}
	regenerator := &mockRegenerator{}
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("secret.py\n"), 0644))
	matcher, err := utils.NewIgnoreMatcher(root, nil, nil)
	require.NoError(t, err)
	return NewServer("/work", docs, structures, regenerator, matcher, nil), regenerator
}

func callTool(name string, args map[string]interface{}) mcp.CallToolRequest {
	request := mcp.CallToolRequest{}
	request.Params.Name = name
	request.Params.Arguments = args
	return request
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return text.Text
}

func TestGetFileDocumentation(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleGetFileDocumentation(context.Background(), callTool("get_file_documentation", map[string]interface{}{
		"path": filepath.Join("/work", "src", "app.py"),
	}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, "src/app.py", payload["path"])
	assert.Contains(t, payload["summary"], "Runs the app.")
}

func TestGetFileDocumentation_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleGetFileDocumentation(context.Background(), callTool("get_file_documentation", map[string]interface{}{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = s.handleGetFileDocumentation(context.Background(), callTool("get_file_documentation", map[string]interface{}{"path": "missing.py"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "missing.py")

	result, err = s.handleGetFileDocumentation(context.Background(), callTool("get_file_documentation", map[string]interface{}{"path": "../etc/passwd"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestListDocumentedFiles(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleListDocumentedFiles(context.Background(), callTool("list_documented_files", map[string]interface{}{
		"prefix": "src",
		"limit":  float64(1),
	}))
	require.NoError(t, err)

	var payload struct {
		Total int `json:"total"`
		Files []struct {
			Path      string `json:"path"`
			FirstLine string `json:"firstLine"`
		} `json:"files"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &payload))
	assert.Equal(t, 2, payload.Total)
	require.Len(t, payload.Files, 1)
	assert.Equal(t, "src/app.py", payload.Files[0].Path)
	assert.Equal(t, "Runs the app.", payload.Files[0].FirstLine)
}

func TestGetFileStructure(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleGetFileStructure(context.Background(), callTool("get_file_structure", map[string]interface{}{"path": "./src/app.py"}))
	require.NoError(t, err)

	var structure analyzer_models.FileStructure
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &structure))
	require.Len(t, structure.Items, 1)
	assert.Equal(t, "main", structure.Items[0].Name)

	result, err = s.handleGetFileStructure(context.Background(), callTool("get_file_structure", map[string]interface{}{"path": "lib/util.py"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRegenerateDocumentation(t *testing.T) {
	s, regenerator := newTestServer(t)

	result, err := s.handleRegenerateDocumentation(context.Background(), callTool("regenerate_documentation", map[string]interface{}{"path": "src/app.py"}))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"queued": true`)
	assert.Equal(t, []string{"src/app.py"}, regenerator.enqueued)

	result, err = s.handleRegenerateDocumentation(context.Background(), callTool("regenerate_documentation", nil))
	require.NoError(t, err)
	assert.Contains(t, resultText(t, result), `"queued": 7`)
	assert.Equal(t, 1, regenerator.all)
}

func TestRegenerateDocumentation_NotConfigured(t *testing.T) {
	s := NewServer("/work", mockDocs{}, nil, nil, nil, nil)
	result, err := s.handleRegenerateDocumentation(context.Background(), callTool("regenerate_documentation", nil))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestRegenerateDocumentation_RejectsIneligiblePaths(t *testing.T) {
	s, regenerator := newTestServer(t)

	for _, path := range []string{".env", ".git/config", "secret.py", "notes.bin"} {
		result, err := s.handleRegenerateDocumentation(context.Background(), callTool("regenerate_documentation", map[string]interface{}{"path": path}))
		require.NoError(t, err)
		assert.True(t, result.IsError, path)
		assert.Contains(t, resultText(t, result), "ignored or not a tracked file type")
	}
	assert.Empty(t, regenerator.enqueued)
}
