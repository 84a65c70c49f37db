package search

import (
	"context"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
)

// Indexer adapts SearchIndex to the store's indexer hook. The store calls
// it after commits; errors are the store's to log, never to fail a write on.
type Indexer struct {
	index *SearchIndex
}

// NewIndexer creates an Indexer over an open search index.
func NewIndexer(index *SearchIndex) *Indexer {
	return &Indexer{index: index}
}

// IndexBook adds or updates a book document.
func (i *Indexer) IndexBook(_ context.Context, book *domain.Book) error {
	return i.index.IndexDocument(BookToSearchDocument(book))
}

// IndexPage adds or updates a page document. Tags are indexed from
// page.Tags as given.
func (i *Indexer) IndexPage(_ context.Context, page *domain.Page) error {
	return i.index.IndexDocument(PageToSearchDocument(page))
}

// Delete removes an entity's document. Missing documents are not an error.
func (i *Indexer) Delete(_ context.Context, entityID string) error {
	return i.index.DeleteDocument(entityID)
}

// Clear drops every document by rebuilding the index.
func (i *Indexer) Clear(_ context.Context) error {
	return i.index.Rebuild()
}
