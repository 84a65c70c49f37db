package search

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestIndex creates a temporary search index for testing.
func setupTestIndex(t *testing.T) (*SearchIndex, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "search-test-*")
	require.NoError(t, err)

	index, err := NewSearchIndex(Options{
		DataPath: tmpDir,
		Logger:   nil,
	})
	require.NoError(t, err)

	cleanup := func() {
		_ = index.Close()
		_ = os.RemoveAll(tmpDir)
	}

	return index, cleanup
}

func TestNewSearchIndex(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_IndexDocument(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := &SearchDocument{
		ID:   "page-123",
		Type: DocTypePage,
		Name: "Understanding B-Trees",
		URL:  "https://example.com/btrees",
	}

	err := index.IndexDocument(doc)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)
}

func TestSearchIndex_IndexDocuments_Batch(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*SearchDocument{
		{ID: "page-1", Type: DocTypePage, Name: "Page One"},
		{ID: "page-2", Type: DocTypePage, Name: "Page Two"},
		{ID: "page-3", Type: DocTypePage, Name: "Page Three"},
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), count)
}

func TestSearchIndex_DeleteDocument(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := &SearchDocument{
		ID:   "page-123",
		Type: DocTypePage,
		Name: "Test Page",
	}

	err := index.IndexDocument(doc)
	require.NoError(t, err)

	err = index.DeleteDocument("page-123")
	require.NoError(t, err)

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_Search_Basic(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	// Index some test documents
	docs := []*SearchDocument{
		{ID: "page-1", Type: DocTypePage, Name: "Database Internals", Content: "How storage engines work."},
		{ID: "page-2", Type: DocTypePage, Name: "SQLite Architecture", Content: "Inside a database file."},
		{ID: "page-3", Type: DocTypePage, Name: "Cooking Pasta", Content: "Boil water first."},
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	ctx := context.Background()

	// Search for "database"
	result, err := index.Search(ctx, SearchParams{
		Query: "database",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), result.Total)
	assert.Len(t, result.Hits, 2)
}

func TestSearchIndex_Search_ContentOnly(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	// The term appears only in the content, never in a title.
	doc := &SearchDocument{
		ID:      "page-1",
		Type:    DocTypePage,
		Name:    "Reading Notes",
		Content: "The quokka is a small macropod.",
	}
	err := index.IndexDocument(doc)
	require.NoError(t, err)

	ctx := context.Background()

	result, err := index.Search(ctx, SearchParams{
		Query: "quokka",
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "page-1", result.Hits[0].ID)
}

func TestSearchIndex_Search_ByType(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*SearchDocument{
		{ID: "book-1", Type: DocTypeBook, Name: "Research"},
		{ID: "page-1", Type: DocTypePage, Name: "Research Paper"},
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	ctx := context.Background()

	// Search for books only
	result, err := index.Search(ctx, SearchParams{
		Query: "",
		Types: []string{string(DocTypeBook)},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "book-1", result.Hits[0].ID)
}

func TestSearchIndex_Search_Prefix(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	doc := &SearchDocument{
		ID:   "page-1",
		Type: DocTypePage,
		Name: "Kubernetes Networking",
	}

	err := index.IndexDocument(doc)
	require.NoError(t, err)

	ctx := context.Background()

	// Search with prefix - should find result
	result, err := index.Search(ctx, SearchParams{
		Query: "Kuber", // Prefix of Kubernetes
		Limit: 10,
	})
	require.NoError(t, err)
	// Prefix search should find the result
	assert.GreaterOrEqual(t, result.Total, uint64(1))
}

func TestSearchIndex_Search_ByTag(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*SearchDocument{
		{ID: "page-1", Type: DocTypePage, Name: "Go Generics", Tags: []string{"golang", "to read"}},
		{ID: "page-2", Type: DocTypePage, Name: "Rust Lifetimes", Tags: []string{"rust"}},
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	ctx := context.Background()

	// Multi-word tag names survive the keyword analyzer intact.
	result, err := index.Search(ctx, SearchParams{
		Query: "",
		Tags:  []string{"to read"},
		Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "page-1", result.Hits[0].ID)
	assert.Contains(t, result.Hits[0].Tags, "to read")
}

func TestSearchIndex_Search_ByBook(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	docs := []*SearchDocument{
		{ID: "page-1", Type: DocTypePage, Name: "Chapter Notes", BookID: "book-abc"},
		{ID: "page-2", Type: DocTypePage, Name: "Other Notes", BookID: "book-xyz"},
		{ID: "page-3", Type: DocTypePage, Name: "Loose Notes"},
	}

	err := index.IndexDocuments(docs)
	require.NoError(t, err)

	ctx := context.Background()

	result, err := index.Search(ctx, SearchParams{
		Query:  "notes",
		BookID: "book-abc",
		Limit:  10,
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
	assert.Equal(t, "page-1", result.Hits[0].ID)
}

func TestSearchIndex_Rebuild(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	// Index a document
	doc := &SearchDocument{ID: "page-1", Type: DocTypePage, Name: "Test"}
	err := index.IndexDocument(doc)
	require.NoError(t, err)

	// Verify it exists
	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Rebuild - should clear the index
	err = index.Rebuild()
	require.NoError(t, err)

	// Verify it's empty
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}

func TestSearchIndex_Persistence(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "search-persist-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	// Create index and add document
	index1, err := NewSearchIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)

	doc := &SearchDocument{ID: "page-1", Type: DocTypePage, Name: "Test Page"}
	err = index1.IndexDocument(doc)
	require.NoError(t, err)

	err = index1.Close()
	require.NoError(t, err)

	// Reopen index and verify document is still there
	index2, err := NewSearchIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer index2.Close()

	count, err := index2.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	// Verify we can search for it
	ctx := context.Background()
	result, err := index2.Search(ctx, SearchParams{Query: "Test", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), result.Total)
}

func TestSearchIndex_StaleMappingVersionRecreates(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "search-version-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	index1, err := NewSearchIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	require.NoError(t, index1.IndexDocument(&SearchDocument{ID: "page-1", Type: DocTypePage, Name: "Old Mapping"}))
	require.NoError(t, index1.Close())

	// An outdated version file means the on-disk mapping predates the
	// current one; reopening must start from an empty index.
	versionPath := filepath.Join(tmpDir, "search.version")
	require.NoError(t, os.WriteFile(versionPath, []byte("0"), 0o644))

	index2, err := NewSearchIndex(Options{DataPath: tmpDir})
	require.NoError(t, err)
	defer index2.Close()

	count, err := index2.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)

	onDisk, err := os.ReadFile(versionPath)
	require.NoError(t, err)
	assert.Equal(t, mappingVersion, string(onDisk))
}

func TestBookToSearchDocument(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	book := &domain.Book{
		ID:        "book-123",
		Title:     "Systems Reading",
		Emoji:     "🗂",
		CreatedAt: domain.NewFlexTime(created),
		UpdatedAt: domain.NewFlexTime(created),
	}

	doc := BookToSearchDocument(book)

	assert.Equal(t, "book-123", doc.ID)
	assert.Equal(t, DocTypeBook, doc.Type)
	assert.Equal(t, "Systems Reading", doc.Name)
	assert.Equal(t, created.UnixMilli(), doc.CreatedAt)
}

func TestPageToSearchDocument(t *testing.T) {
	bookID := "book-456"
	now := time.Now()
	page := &domain.Page{
		ID:               "page-123",
		Title:            "Write-Ahead Logging",
		URL:              "https://example.com/wal",
		Content:          "<p>raw html</p>",
		ExtractedContent: "raw html",
		BookID:           &bookID,
		Status:           "read",
		Tags: []*domain.Tag{
			{ID: "tag-1", Name: "databases"},
			{ID: "tag-2", Name: "to read"},
		},
		CreatedAt: domain.NewFlexTime(now),
		UpdatedAt: domain.NewFlexTime(now),
	}

	doc := PageToSearchDocument(page)

	assert.Equal(t, "page-123", doc.ID)
	assert.Equal(t, DocTypePage, doc.Type)
	assert.Equal(t, "Write-Ahead Logging", doc.Name)
	assert.Equal(t, "https://example.com/wal", doc.URL)
	// Extracted text wins over raw content.
	assert.Equal(t, "raw html", doc.Content)
	assert.Equal(t, "book-456", doc.BookID)
	assert.Equal(t, "read", doc.Status)
	assert.Equal(t, []string{"databases", "to read"}, doc.Tags)
}

func TestPageToSearchDocument_FallsBackToRawContent(t *testing.T) {
	page := &domain.Page{
		ID:      "page-raw",
		Title:   "Raw Only",
		Content: "plain notes",
	}

	doc := PageToSearchDocument(page)
	assert.Equal(t, "plain notes", doc.Content)
}

func TestSearchIndex_LargeBatch(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping large batch test in short mode")
	}

	index, cleanup := setupTestIndex(t)
	defer cleanup()

	// Create 1000 documents to test chunking (batch size is 500)
	docs := make([]*SearchDocument, 1000)
	for i := 0; i < 1000; i++ {
		docs[i] = &SearchDocument{
			ID:   "page-" + string(rune('0'+i%10)) + string(rune('0'+i/10%10)) + string(rune('0'+i/100%10)),
			Type: DocTypePage,
			Name: "Page Number " + string(rune('0'+i%10)),
		}
	}

	start := time.Now()
	err := index.IndexDocuments(docs)
	require.NoError(t, err)
	t.Logf("Indexed 1000 documents in %v", time.Since(start))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), count)
}

func TestIndexer_AdaptsStoreHook(t *testing.T) {
	index, cleanup := setupTestIndex(t)
	defer cleanup()

	indexer := NewIndexer(index)
	ctx := context.Background()

	book := &domain.Book{ID: "book-1", Title: "Hooked"}
	require.NoError(t, indexer.IndexBook(ctx, book))

	page := &domain.Page{ID: "page-1", Title: "Hooked Page"}
	require.NoError(t, indexer.IndexPage(ctx, page))

	count, err := index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)

	require.NoError(t, indexer.Delete(ctx, "book-1"))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	require.NoError(t, indexer.Clear(ctx))
	count, err = index.DocumentCount()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), count)
}
