// Package documentation holds the generated per-file documentation and persists it under the output directory.
package docstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/meysamhadeli/codedoc/debouncer"
	"github.com/meysamhadeli/codedoc/documentation/models"
	"github.com/meysamhadeli/codedoc/embed_data"
	"github.com/meysamhadeli/codedoc/logger"
	"github.com/meysamhadeli/codedoc/utils"
	"github.com/zeebo/xxh3"
)

const (
	DocumentationFile   = "documentation.json"
	FilesDirName        = "files"
	StoreVersion        = "1.0"
	DefaultSaveDebounce = 2 * time.Second

	maxArtifactStem = 200
	saveKey         = "documentation"
)

var digestSuffix = regexp.MustCompile(`-[0-9a-f]{16}$`)

var artifactTemplate = template.Must(template.New("file_documentation").Parse(embed_data.FileDocumentationTemplate))

// StoreOptions configures a Store. Zero values select the defaults.
type StoreOptions struct {
	SaveDebounce time.Duration
	Clock        debouncer.Clock
	Logger       *slog.Logger
}

// Store is the in-memory documentation map backed by documentation.json and one Markdown artifact per file.
type Store struct {
	mutex      sync.RWMutex
	writeMutex sync.Mutex
	outputDir  string
	docs       *models.ProjectDocumentation
	saver      *debouncer.Debouncer
	clock      debouncer.Clock
	logger     *slog.Logger
}

// NewStore creates an empty store rooted at outputDir. Call Load to read persisted state.
func NewStore(outputDir string, opts StoreOptions) *Store {
	if opts.SaveDebounce <= 0 {
		opts.SaveDebounce = DefaultSaveDebounce
	}
	if opts.Clock == nil {
		opts.Clock = debouncer.RealClock()
	}

	return &Store{
		outputDir: outputDir,
		docs:      models.NewProjectDocumentation(StoreVersion),
		saver:     debouncer.New(opts.SaveDebounce, opts.Clock),
		clock:     opts.Clock,
		logger:    logger.OrDiscard(opts.Logger).With("component", "documentation"),
	}
}

// OutputDir returns the directory holding documentation.json and the artifacts.
func (s *Store) OutputDir() string {
	return s.outputDir
}

func (s *Store) storePath() string {
	return filepath.Join(s.outputDir, DocumentationFile)
}

// Load replaces the in-memory state with the persisted one.
// A missing or corrupt file leaves the store empty.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.storePath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.reset()
			return nil
		}
		return fmt.Errorf("failed to read documentation store: %w", err)
	}

	var docs models.ProjectDocumentation
	if err := json.Unmarshal(data, &docs); err != nil {
		s.logger.Warn("documentation store is corrupt, starting empty", "path", s.storePath(), "error", err)
		s.reset()
		return nil
	}
	if docs.Files == nil {
		docs.Files = make(map[string]models.FileDocumentation)
	}
	if docs.Version == "" {
		docs.Version = StoreVersion
	}

	s.mutex.Lock()
	s.docs = &docs
	s.mutex.Unlock()

	s.logger.Debug("documentation store loaded", "files", len(docs.Files))
	return nil
}

func (s *Store) reset() {
	s.mutex.Lock()
	s.docs = models.NewProjectDocumentation(StoreVersion)
	s.mutex.Unlock()
}

// Get returns the documentation for a normalized path.
func (s *Store) Get(relPath string) (models.FileDocumentation, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	doc, ok := s.docs.Files[cleanKey(relPath)]
	return doc, ok
}

// Upsert stores doc, writes its Markdown artifact and schedules a save.
// The record is kept even when the artifact cannot be written.
func (s *Store) Upsert(doc models.FileDocumentation) error {
	doc.Path = cleanKey(doc.Path)
	doc.Content = ""

	s.mutex.Lock()
	s.docs.Files[doc.Path] = doc
	s.mutex.Unlock()

	s.Save()

	if err := s.writeArtifact(doc); err != nil {
		return fmt.Errorf("failed to write documentation for %s: %w", doc.Path, err)
	}
	return nil
}

// Remove deletes the record for relPath together with its artifact.
func (s *Store) Remove(relPath string) (bool, error) {
	key := cleanKey(relPath)

	s.mutex.Lock()
	_, existed := s.docs.Files[key]
	delete(s.docs.Files, key)
	s.mutex.Unlock()

	if existed {
		s.Save()
	}

	if err := removeIfExists(s.ArtifactPath(key)); err != nil {
		return existed, fmt.Errorf("failed to remove documentation for %s: %w", key, err)
	}
	return existed, nil
}

// RemoveUnder deletes every record at prefix or below it. An empty prefix removes everything.
func (s *Store) RemoveUnder(prefix string) ([]string, error) {
	prefix = cleanKey(prefix)

	s.mutex.Lock()
	var removed []string
	for key := range s.docs.Files {
		if prefix == "" || key == prefix || strings.HasPrefix(key, prefix+"/") {
			removed = append(removed, key)
			delete(s.docs.Files, key)
		}
	}
	s.mutex.Unlock()

	sort.Strings(removed)
	if len(removed) > 0 {
		s.Save()
	}

	var errs []error
	for _, key := range removed {
		if err := removeIfExists(s.ArtifactPath(key)); err != nil {
			errs = append(errs, err)
		}
	}
	return removed, errors.Join(errs...)
}

// List returns every record ordered by path.
func (s *Store) List() []models.FileDocumentation {
	s.mutex.RLock()
	docs := make([]models.FileDocumentation, 0, len(s.docs.Files))
	for _, doc := range s.docs.Files {
		docs = append(docs, doc)
	}
	s.mutex.RUnlock()

	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs
}

// Len returns the number of documented files.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.docs.Files)
}

// LastUpdated returns the time of the last flush.
func (s *Store) LastUpdated() time.Time {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.docs.LastUpdated
}

// Save schedules a debounced flush. Repeated calls inside the window collapse into one write.
func (s *Store) Save() {
	s.saver.Trigger(saveKey, func() {
		if err := s.Flush(); err != nil {
			s.logger.Error("failed to save documentation store", "error", err)
		}
	})
}

// Flush writes documentation.json synchronously and cancels any pending debounced save.
func (s *Store) Flush() error {
	s.saver.Cancel(saveKey)

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	s.mutex.Lock()
	s.docs.LastUpdated = s.clock.Now()
	data, err := json.MarshalIndent(s.docs, "", "  ")
	count := len(s.docs.Files)
	s.mutex.Unlock()
	if err != nil {
		return fmt.Errorf("failed to encode documentation store: %w", err)
	}

	if err := utils.WriteFileAtomic(s.storePath(), data, 0644); err != nil {
		return fmt.Errorf("failed to write documentation store: %w", err)
	}

	s.logger.Debug("documentation store saved", "files", count)
	return nil
}

// Reset forgets every record and deletes documentation.json and all artifacts.
func (s *Store) Reset() error {
	s.saver.Cancel(saveKey)

	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	s.reset()
	if err := removeIfExists(s.storePath()); err != nil {
		return fmt.Errorf("failed to delete documentation store: %w", err)
	}
	if err := os.RemoveAll(filepath.Join(s.outputDir, FilesDirName)); err != nil {
		return fmt.Errorf("failed to delete documentation files: %w", err)
	}
	return nil
}

// Close stops the debounced saver and performs a final flush.
func (s *Store) Close() error {
	s.saver.Stop()
	return s.Flush()
}

// ArtifactPath returns the Markdown file for a normalized path.
func (s *Store) ArtifactPath(relPath string) string {
	return filepath.Join(s.outputDir, FilesDirName, ArtifactName(relPath))
}

func (s *Store) writeArtifact(doc models.FileDocumentation) error {
	var buf bytes.Buffer
	if err := artifactTemplate.Execute(&buf, doc); err != nil {
		return err
	}
	return utils.WriteFileAtomic(s.ArtifactPath(doc.Path), buf.Bytes(), 0644)
}

// ArtifactName maps a normalized path to a flat file name.
// Separators become "__". A path the mapping cannot spell back exactly (one holding "_" or
// an unsafe byte, an over-long one, or one already ending like a digest) gets its readable
// part suffixed with an xxh3 digest of the path, so distinct paths never share an artifact.
func ArtifactName(relPath string) string {
	relPath = cleanKey(relPath)

	var b strings.Builder
	lossy := false
	for i := 0; i < len(relPath); i++ {
		c := relPath[i]
		switch {
		case c == '/':
			b.WriteString("__")
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-':
			b.WriteByte(c)
		default:
			lossy = true
			b.WriteByte('_')
		}
	}

	stem := b.String()
	if lossy || len(stem) > maxArtifactStem || digestSuffix.MatchString(stem) {
		suffix := fmt.Sprintf("-%016x", xxh3.HashString(relPath))
		if len(stem) > maxArtifactStem-len(suffix) {
			stem = stem[:maxArtifactStem-len(suffix)]
		}
		stem += suffix
	}
	return stem + ".md"
}

func cleanKey(relPath string) string {
	if relPath == "" {
		return ""
	}
	cleaned := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	if cleaned == "." {
		return ""
	}
	return strings.TrimPrefix(cleaned, "./")
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
