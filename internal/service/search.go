package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/search"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// SearchService runs full-text queries and rebuilds the index from the
// store. Writes never go through here; the store feeds the index itself
// after each commit.
type SearchService struct {
	index  *search.SearchIndex
	store  store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search executes a query against the index.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// DocumentCount returns the number of indexed documents.
func (s *SearchService) DocumentCount() (uint64, error) {
	return s.index.DocumentCount()
}

// ReindexAll drops the index and rebuilds it from the entity tables.
// Heavy; meant for recovery after index corruption or mapping changes.
func (s *SearchService) ReindexAll(ctx context.Context) (int, error) {
	s.logger.Info("starting full reindex")

	if err := s.index.Rebuild(); err != nil {
		return 0, fmt.Errorf("rebuild index: %w", err)
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list books: %w", err)
	}

	docs := make([]*search.SearchDocument, 0, len(books))
	for _, book := range books {
		docs = append(docs, search.BookToSearchDocument(book))
	}

	pages, err := s.store.ListPages(ctx)
	if err != nil {
		return 0, fmt.Errorf("list pages: %w", err)
	}

	// Page documents denormalize tag names, so load associations first.
	if err := s.attachTags(ctx, pages); err != nil {
		return 0, err
	}
	for _, page := range pages {
		docs = append(docs, search.PageToSearchDocument(page))
	}

	if len(docs) > 0 {
		if err := s.index.IndexDocuments(docs); err != nil {
			return 0, fmt.Errorf("index documents: %w", err)
		}
	}

	s.logger.Info("full reindex complete",
		"books", len(books),
		"pages", len(pages),
	)

	return len(docs), nil
}

func (s *SearchService) attachTags(ctx context.Context, pages []*domain.Page) error {
	if len(pages) == 0 {
		return nil
	}

	ids := make([]string, len(pages))
	for i, p := range pages {
		ids[i] = p.ID
	}

	tagsByPage, err := s.store.GetTagsForPages(ctx, ids)
	if err != nil {
		return fmt.Errorf("get page tags: %w", err)
	}
	for _, p := range pages {
		p.Tags = tagsByPage[p.ID]
	}
	return nil
}
