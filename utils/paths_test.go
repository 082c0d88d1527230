package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "project")

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"absolute", filepath.Join(root, "src", "a.py"), "src/a.py"},
		{"dot prefix", "./src/a.py", "src/a.py"},
		{"backslashes", `src\pkg\b.go`, "src/pkg/b.go"},
		{"redundant segments", "src//pkg/../a.py", "src/a.py"},
		{"root itself", root, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePath(root, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePath_OutsideRoot(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "work", "project")

	_, err := NormalizePath(root, filepath.Join(string(filepath.Separator), "work", "other", "a.py"))
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = NormalizePath(root, "../a.py")
	assert.ErrorIs(t, err, ErrOutsideRoot)
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "nested", "state.json")

	require.NoError(t, WriteFileAtomic(target, []byte(`{"a":1}`), 0644))
	require.NoError(t, WriteFileAtomic(target, []byte(`{"a":2}`), 0644))

	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, `{"a":2}`, string(data))

	entries, err := os.ReadDir(filepath.Dir(target))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files must not be left behind")
}
