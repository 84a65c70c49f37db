// Package store defines the persistence interface for the Pagemark server.
package store

import (
	"context"
	"time"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
)

// Store defines the interface for all persistence operations.
//
// Entity upserts and deletes write the change ledger in the same transaction
// as the entity row, so the ledger can never drift from table state. Upserts
// and deletes return the resulting ledger record.
type Store interface {
	// Lifecycle
	Close() error
	SetSearchIndexer(indexer SearchIndexer)

	// Books
	UpsertBook(ctx context.Context, book *domain.Book) (*domain.ChangeRecord, error)
	GetBook(ctx context.Context, id string) (*domain.Book, error)
	GetBooksByIDs(ctx context.Context, ids []string) ([]*domain.Book, error)
	ListBooks(ctx context.Context) ([]*domain.Book, error)
	DeleteBook(ctx context.Context, id string) (*domain.ChangeRecord, error)
	CountBooks(ctx context.Context) (int, error)

	// Pages
	UpsertPage(ctx context.Context, page *domain.Page) (*domain.ChangeRecord, error)
	GetPage(ctx context.Context, id string) (*domain.Page, error)
	GetPagesByIDs(ctx context.Context, ids []string) ([]*domain.Page, error)
	ListPages(ctx context.Context) ([]*domain.Page, error)
	DeletePage(ctx context.Context, id string) (*domain.ChangeRecord, error)
	CountPages(ctx context.Context) (int, error)

	// Tags
	UpsertTag(ctx context.Context, tag *domain.Tag) (*domain.ChangeRecord, error)
	GetTag(ctx context.Context, id string) (*domain.Tag, error)
	GetTagsByIDs(ctx context.Context, ids []string) ([]*domain.Tag, error)
	GetTagByName(ctx context.Context, name string) (*domain.Tag, error)
	FindOrCreateTagByName(ctx context.Context, name string) (*domain.Tag, bool, error)
	ListTags(ctx context.Context) ([]*domain.Tag, error)
	DeleteTag(ctx context.Context, id string) (*domain.ChangeRecord, error)
	CountTags(ctx context.Context) (int, error)

	// Page tags
	ReplacePageTags(ctx context.Context, pageID string, tagIDs []string) error
	GetTagsForPage(ctx context.Context, pageID string) ([]*domain.Tag, error)
	GetTagsForPages(ctx context.Context, pageIDs []string) (map[string][]*domain.Tag, error)

	// Change ledger
	RecordChange(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.ChangeRecord, error)
	RecordDeletion(ctx context.Context, entityType domain.EntityType, entityID string) (*domain.ChangeRecord, error)
	GetChange(ctx context.Context, entityID string) (*domain.ChangeRecord, error)
	GetChangesSince(ctx context.Context, since *time.Time) ([]*domain.ChangeRecord, error)
	GetChangeBatch(ctx context.Context, limit int) ([]*domain.ChangeRecord, error)
	DeleteChanges(ctx context.Context, entityIDs []string) (int, error)
	PurgeTombstones(ctx context.Context) (int, error)
	ResetLedger(ctx context.Context) error

	// Maintenance
	GetStats(ctx context.Context) (*Stats, error)
	ClearAllData(ctx context.Context) error

	// Instance
	GetInstance(ctx context.Context) (*domain.Instance, error)
	CreateInstance(ctx context.Context, instance *domain.Instance) error
}

// Stats summarizes ledger and table sizes for the stats endpoint.
type Stats struct {
	OldestChange *time.Time `json:"oldestChange,omitempty"`
	NewestChange *time.Time `json:"newestChange,omitempty"`
	TotalChanges int        `json:"totalChanges"`
	Tombstones   int        `json:"totalTombstones"`
	Books        int        `json:"books"`
	Pages        int        `json:"pages"`
	Tags         int        `json:"tags"`
}

// SearchIndexer is the interface for updating the search index.
// The store notifies it after commits, best-effort: index failures are
// logged by the store and never fail the write.
type SearchIndexer interface {
	IndexBook(ctx context.Context, book *domain.Book) error
	IndexPage(ctx context.Context, page *domain.Page) error
	Delete(ctx context.Context, entityID string) error
	Clear(ctx context.Context) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

func (NoopSearchIndexer) IndexBook(context.Context, *domain.Book) error { return nil }
func (NoopSearchIndexer) IndexPage(context.Context, *domain.Page) error { return nil }
func (NoopSearchIndexer) Delete(context.Context, string) error          { return nil }
func (NoopSearchIndexer) Clear(context.Context) error                   { return nil }
