package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePorcelainStatus(t *testing.T) {
	output := " M src/a.py\n" +
		"M  src/b.py\n" +
		"A  web/new.ts\n" +
		"R  old.go -> pkg/renamed.go\n" +
		" D gone.java\n" +
		"?? scratch/notes.py\n" +
		"\n"

	status := ParsePorcelainStatus("/repo", output)

	assert.Equal(t, []string{"src/a.py", "src/b.py"}, status.Modified)
	assert.Equal(t, []string{"web/new.ts", "pkg/renamed.go"}, status.Added)
	assert.Equal(t, []string{"scratch/notes.py"}, status.Untracked)
	assert.Equal(t, []string{"gone.java"}, status.Deleted)

	assert.Equal(t, []string{
		"pkg/renamed.go", "scratch/notes.py", "src/a.py", "src/b.py", "web/new.ts",
	}, status.Changed())
}
