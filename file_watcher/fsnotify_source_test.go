package file_watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func waitForEvent(t *testing.T, source *FSNotifySource, kind EventKind, path string) {
	t.Helper()
	timeout := time.After(5 * time.Second)
	for {
		select {
		case ev, ok := <-source.Events():
			require.True(t, ok, "event channel closed early")
			if ev.Kind == kind && ev.Path == path {
				return
			}
		case <-timeout:
			t.Fatalf("no %s event for %s", kind, path)
		}
	}
}

func TestFSNotifySource(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "skipped"), 0755))

	source, err := NewFSNotifySource(root, func(absPath string) bool {
		return filepath.Base(absPath) == "skipped"
	}, nil)
	require.NoError(t, err)
	defer source.Close()

	file := filepath.Join(root, "a.py")
	require.NoError(t, os.WriteFile(file, []byte("x = 1\n"), 0644))
	waitForEvent(t, source, EventAdd, file)

	// Files inside a newly created directory are reported once the directory is watched.
	nested := filepath.Join(root, "pkg", "b.py")
	require.NoError(t, os.MkdirAll(filepath.Dir(nested), 0755))
	require.NoError(t, os.WriteFile(nested, []byte("y = 2\n"), 0644))
	waitForEvent(t, source, EventAdd, nested)

	require.NoError(t, os.Remove(file))
	waitForEvent(t, source, EventUnlink, file)

	require.NoError(t, source.Close())
	require.NoError(t, source.Close())
}
