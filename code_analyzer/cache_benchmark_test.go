package code_analyzer

import (
	"crypto/md5"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/meysamhadeli/codedoc/code_analyzer/models"
	"github.com/zeebo/xxh3"
)

// BenchmarkContentHash compares the change-detection digest with xxh3 on typical source sizes.
func BenchmarkContentHash(b *testing.B) {
	sizes := map[string]int{"4KB": 4 * 1024, "64KB": 64 * 1024, "512KB": 512 * 1024}

	for name, size := range sizes {
		content := make([]byte, size)
		rand.New(rand.NewSource(1)).Read(content)

		b.Run("MD5/"+name, func(b *testing.B) {
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				_ = md5.Sum(content)
			}
		})

		b.Run("XXH3/"+name, func(b *testing.B) {
			b.SetBytes(int64(size))
			for i := 0; i < b.N; i++ {
				_ = xxh3.Hash(content)
			}
		})
	}
}

// BenchmarkHasChanged measures a full read-and-compare against a warm cache entry.
func BenchmarkHasChanged(b *testing.B) {
	dir := b.TempDir()
	path := filepath.Join(dir, "bench.py")
	content := make([]byte, 32*1024)
	rand.New(rand.NewSource(2)).Read(content)
	if err := os.WriteFile(path, content, 0644); err != nil {
		b.Fatal(err)
	}

	cache := newWarmCache(path)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if HasChanged(path, cache).Changed {
			b.Fatal("unexpected change")
		}
	}
}

func newWarmCache(path string) *models.ProjectCache {
	cache := models.NewProjectCache()
	cache.Files[path] = models.FileRecord{ContentHash: HasChanged(path, cache).Hash}
	return cache
}
