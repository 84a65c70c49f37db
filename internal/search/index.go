package search

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
)

// mappingVersion is bumped whenever buildIndexMapping changes shape. A
// mismatch against the version file forces a rebuild on startup, since bleve
// applies a mapping only at index creation.
const mappingVersion = "1"

// SearchIndex owns the on-disk bleve index for books and pages. Safe for
// concurrent use; Rebuild takes the write lock and blocks everything else
// while the directory is swapped out.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // directory holding search.bleve and search.version
	Logger   *slog.Logger // nil means stderr
}

// NewSearchIndex opens the index under opts.DataPath, creating it when
// missing. A stale mapping version or an index that fails to open is thrown
// away and recreated empty; the caller decides whether to refill it.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}

	indexPath := filepath.Join(opts.DataPath, "search.bleve")
	versionPath := filepath.Join(opts.DataPath, "search.version")

	var index bleve.Index
	if _, err := os.Stat(indexPath); err == nil {
		if stale, onDisk := staleMapping(versionPath); stale {
			logger.Info("search index mapping is stale, recreating",
				"disk_version", onDisk,
				"want_version", mappingVersion,
			)
		} else {
			opened, err := bleve.Open(indexPath)
			if err != nil {
				logger.Warn("could not open search index, recreating",
					"path", indexPath,
					"error", err,
				)
			} else {
				index = opened
			}
		}

		if index == nil {
			if err := os.RemoveAll(indexPath); err != nil {
				return nil, fmt.Errorf("remove old index: %w", err)
			}
		}
	}

	if index == nil {
		created, err := bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		index = created
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			logger.Warn("could not write search version file", "error", err)
		}
		logger.Info("created search index", "path", indexPath, "mapping_version", mappingVersion)
	} else {
		logger.Info("opened search index", "path", indexPath)
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: logger,
	}, nil
}

// staleMapping reports whether the version file disagrees with
// mappingVersion. A missing file counts as stale: it predates versioning.
func staleMapping(versionPath string) (bool, string) {
	onDisk, err := os.ReadFile(versionPath)
	if err != nil {
		return true, ""
	}
	return string(onDisk) != mappingVersion, string(onDisk)
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument indexes one document.
func (s *SearchIndex) IndexDocument(doc *SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	// Index the map form so field names line up with the mapping.
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes documents in bounded batches, so a full reindex of
// a large library does not hold one giant batch in memory.
func (s *SearchIndex) IndexDocuments(docs []*SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}

		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}

	return nil
}

// DeleteDocument removes one document.
func (s *SearchIndex) DeleteDocument(id string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Delete(id)
}

// DeleteDocuments removes documents as a single batch.
func (s *SearchIndex) DeleteDocuments(ids []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}

	return s.index.Batch(batch)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the index directory and starts over empty. Queries block
// until it returns; the caller refills via IndexDocuments.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}
	if err := os.RemoveAll(s.path); err != nil {
		return fmt.Errorf("remove index: %w", err)
	}

	index, err := bleve.New(s.path, buildIndexMapping())
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt search index", "path", s.path)

	return nil
}
