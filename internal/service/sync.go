package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	domainerrors "github.com/pagemarkapp/pagemark-server/internal/errors"
	"github.com/pagemarkapp/pagemark-server/internal/store"
	"github.com/pagemarkapp/pagemark-server/internal/validation"
)

// Prune tuning defaults. The opportunistic prune after a push examines only
// the oldest DefaultPruneBatchSize ledger rows, and a tombstone is only
// eligible once it has been sitting there for DefaultTombstoneRetention.
// The retention window is what lets devices that sync rarely still learn
// about deletions; without it a tombstone written by one push could be
// pruned by the same push before any other device pulls it.
const (
	DefaultPruneBatchSize     = 500
	DefaultTombstoneRetention = 30 * 24 * time.Hour
)

// SyncService orchestrates pull, push, and ledger maintenance.
type SyncService struct {
	store              store.Store
	logger             *slog.Logger
	validator          *validation.Validator
	pruneBatchSize     int
	tombstoneRetention time.Duration
}

// SyncOptions tunes the opportunistic prune that runs after each push.
// Zero values fall back to the defaults above.
type SyncOptions struct {
	PruneBatchSize     int
	TombstoneRetention time.Duration
}

// NewSyncService creates a new sync service.
func NewSyncService(store store.Store, logger *slog.Logger, opts SyncOptions) *SyncService {
	if opts.PruneBatchSize <= 0 {
		opts.PruneBatchSize = DefaultPruneBatchSize
	}
	if opts.TombstoneRetention <= 0 {
		opts.TombstoneRetention = DefaultTombstoneRetention
	}
	return &SyncService{
		store:              store,
		logger:             logger,
		validator:          validation.New(),
		pruneBatchSize:     opts.PruneBatchSize,
		tombstoneRetention: opts.TombstoneRetention,
	}
}

// PullResponse is the body of GET /sync: every ledger record newer than the
// cursor, plus the live entities those records point at. Deletions travel
// only as records with Deleted set; the entity arrays never contain deleted
// entities. Clients apply the entity payloads, drop everything tombstoned in
// Changes, and persist the newest change timestamp as their next cursor.
type PullResponse struct {
	Changes []*domain.ChangeRecord `json:"changes"`
	Books   []*domain.Book         `json:"books"`
	Pages   []*domain.Page         `json:"pages"`
	Tags    []*domain.Tag          `json:"tags"`
}

// Pull computes the change set since the given cursor. A nil cursor means a
// full sync. A change record whose entity row has vanished out-of-band still
// appears in Changes; the entity arrays simply lack it.
func (s *SyncService) Pull(ctx context.Context, since *time.Time) (*PullResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	changes, err := s.store.GetChangesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("get changes: %w", err)
	}

	// Group live entity ids by type. Tombstoned ids stay out: they are
	// reported through Changes alone.
	var bookIDs, pageIDs, tagIDs []string
	for _, c := range changes {
		if c.Deleted {
			continue
		}
		switch c.EntityType {
		case domain.EntityTypeBook:
			bookIDs = append(bookIDs, c.EntityID)
		case domain.EntityTypePage:
			pageIDs = append(pageIDs, c.EntityID)
		case domain.EntityTypeTag:
			tagIDs = append(tagIDs, c.EntityID)
		}
	}

	books, err := s.store.GetBooksByIDs(ctx, bookIDs)
	if err != nil {
		return nil, fmt.Errorf("get books: %w", err)
	}
	pages, err := s.store.GetPagesByIDs(ctx, pageIDs)
	if err != nil {
		return nil, fmt.Errorf("get pages: %w", err)
	}
	tags, err := s.store.GetTagsByIDs(ctx, tagIDs)
	if err != nil {
		return nil, fmt.Errorf("get tags: %w", err)
	}
	if err := s.attachPageTags(ctx, pages); err != nil {
		return nil, err
	}

	s.logger.Info("pull computed",
		"full_sync", since == nil,
		"changes", len(changes),
		"books", len(books),
		"pages", len(pages),
		"tags", len(tags),
	)

	return &PullResponse{
		Changes: changes,
		Books:   books,
		Pages:   pages,
		Tags:    tags,
	}, nil
}

// BookPush is one book element of a push payload. Fields mirror domain.Book;
// everything the client sent, timestamps included, is written as-is.
type BookPush struct {
	ID        string           `json:"id" validate:"required"`
	Title     string           `json:"title"`
	Emoji     string           `json:"emoji,omitempty"`
	Order     domain.FlexInt64 `json:"order"`
	ParentID  *string          `json:"parentId,omitempty"`
	CreatedAt domain.FlexTime  `json:"createdAt"`
	UpdatedAt domain.FlexTime  `json:"updatedAt"`
}

func (b *BookPush) toDomain() *domain.Book {
	return &domain.Book{
		ID:        b.ID,
		Title:     b.Title,
		Emoji:     b.Emoji,
		Order:     b.Order,
		ParentID:  b.ParentID,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

// PagePush is one page element of a push payload.
//
// TagIDs carries tag NAMES; the field keeps the name clients have always
// sent. nil leaves the page's tag associations alone, an empty list clears
// them, anything else replaces them wholesale.
type PagePush struct {
	ID               string           `json:"id" validate:"required"`
	BookID           *string          `json:"bookId,omitempty"`
	Title            string           `json:"title"`
	URL              string           `json:"url,omitempty"`
	Content          string           `json:"content,omitempty"`
	ExtractedContent string           `json:"extractedContent,omitempty"`
	Order            domain.FlexInt64 `json:"order"`
	Pinned           bool             `json:"pinned"`
	Status           string           `json:"status,omitempty"`
	CreatedAt        domain.FlexTime  `json:"createdAt"`
	UpdatedAt        domain.FlexTime  `json:"updatedAt"`
	TagIDs           []string         `json:"tagIds,omitempty"`
}

func (p *PagePush) toDomain() *domain.Page {
	return &domain.Page{
		ID:               p.ID,
		BookID:           p.BookID,
		Title:            p.Title,
		URL:              p.URL,
		Content:          p.Content,
		ExtractedContent: p.ExtractedContent,
		Order:            p.Order,
		Pinned:           p.Pinned,
		Status:           p.Status,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// TagPush is one tag element of a push payload.
type TagPush struct {
	ID    string  `json:"id" validate:"required"`
	Name  string  `json:"name" validate:"required"`
	Color *string `json:"color,omitempty"`
}

func (t *TagPush) toDomain() *domain.Tag {
	return &domain.Tag{
		ID:    t.ID,
		Name:  t.Name,
		Color: t.Color,
	}
}

// DeletionPush names one entity to delete.
type DeletionPush struct {
	EntityType string `json:"entityType" validate:"required,oneof=book page tag"`
	EntityID   string `json:"entityId" validate:"required"`
}

// PushRequest is the body of POST /sync. All arrays are optional.
type PushRequest struct {
	Books     []BookPush     `json:"books,omitempty" validate:"dive"`
	Pages     []PagePush     `json:"pages,omitempty" validate:"dive"`
	Tags      []TagPush      `json:"tags,omitempty" validate:"dive"`
	Deletions []DeletionPush `json:"deletions,omitempty" validate:"dive"`
}

// Push applies a batch of client mutations: book and page and tag upserts,
// then deletions. Every write is blind last-write-wins; whatever the client
// sent replaces what is stored, no timestamp or version comparison anywhere.
// The whole payload is validated up front, but each entity then commits in
// its own transaction, so a store failure partway leaves earlier entities
// applied. The returned error names the entity that failed.
func (s *SyncService) Push(ctx context.Context, req *PushRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	for i := range req.Books {
		book := req.Books[i].toDomain()
		if _, err := s.store.UpsertBook(ctx, book); err != nil {
			return fmt.Errorf("apply book %s: %w", book.ID, err)
		}
	}

	for i := range req.Pages {
		if err := s.applyPage(ctx, &req.Pages[i]); err != nil {
			return err
		}
	}

	for i := range req.Tags {
		tag := req.Tags[i].toDomain()
		if _, err := s.store.UpsertTag(ctx, tag); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return domainerrors.Conflictf("tag name %q is already taken by another tag", tag.Name).WithCause(err)
			}
			return fmt.Errorf("apply tag %s: %w", tag.ID, err)
		}
	}

	for _, d := range req.Deletions {
		if _, err := s.DeleteEntity(ctx, d.EntityType, d.EntityID); err != nil {
			return fmt.Errorf("apply deletion %s/%s: %w", d.EntityType, d.EntityID, err)
		}
	}

	s.logger.Info("push applied",
		"books", len(req.Books),
		"pages", len(req.Pages),
		"tags", len(req.Tags),
		"deletions", len(req.Deletions),
	)

	s.pruneAfterPush(ctx)

	return nil
}

// applyPage upserts one pushed page and, when the payload carried a tag
// list, replaces the page's associations with it. Tag names resolve through
// find-or-create before the upsert so the indexed document already carries
// the final tag set; a name nobody has used yet becomes a new tag with its
// own ledger entry.
func (s *SyncService) applyPage(ctx context.Context, p *PagePush) error {
	page := p.toDomain()

	replaceTags := p.TagIDs != nil
	var tagIDs []string
	if replaceTags {
		tags := make([]*domain.Tag, 0, len(p.TagIDs))
		seen := make(map[string]bool, len(p.TagIDs))
		for _, name := range p.TagIDs {
			if name == "" {
				continue
			}
			tag, created, err := s.store.FindOrCreateTagByName(ctx, name)
			if err != nil {
				return fmt.Errorf("resolve tag %q for page %s: %w", name, page.ID, err)
			}
			if seen[tag.ID] {
				continue
			}
			seen[tag.ID] = true
			tags = append(tags, tag)
			tagIDs = append(tagIDs, tag.ID)
			if created {
				s.logger.Info("tag created from push", "tag_id", tag.ID, "tag_name", tag.Name)
			}
		}
		page.Tags = tags
	} else {
		tags, err := s.store.GetTagsForPage(ctx, page.ID)
		if err != nil {
			return fmt.Errorf("get tags for page %s: %w", page.ID, err)
		}
		page.Tags = tags
	}

	if _, err := s.store.UpsertPage(ctx, page); err != nil {
		return fmt.Errorf("apply page %s: %w", page.ID, err)
	}

	if replaceTags {
		if err := s.store.ReplacePageTags(ctx, page.ID, tagIDs); err != nil {
			return fmt.Errorf("replace tags for page %s: %w", page.ID, err)
		}
	}

	return nil
}

// DeleteEntity hard-deletes one entity, cascading as needed, and records its
// tombstone. Deleting an id that never existed (or was already deleted)
// still writes the tombstone, so replays from two devices converge on the
// same ledger state.
func (s *SyncService) DeleteEntity(ctx context.Context, entityType, entityID string) (*domain.ChangeRecord, error) {
	t, err := domain.ParseEntityType(entityType)
	if err != nil {
		return nil, domainerrors.Validationf("unknown entity type %q", entityType)
	}
	if entityID == "" {
		return nil, domainerrors.Validation("entity id is required")
	}

	var record *domain.ChangeRecord
	switch t {
	case domain.EntityTypeBook:
		record, err = s.store.DeleteBook(ctx, entityID)
	case domain.EntityTypePage:
		record, err = s.store.DeletePage(ctx, entityID)
	case domain.EntityTypeTag:
		record, err = s.store.DeleteTag(ctx, entityID)
	}
	if err != nil {
		return nil, fmt.Errorf("delete %s %s: %w", t, entityID, err)
	}

	s.logger.Info("entity deleted",
		"entity_type", t,
		"entity_id", entityID,
		"version", record.Version.Int64(),
	)

	return record, nil
}

// pruneAfterPush runs a bounded tombstone prune. Failures are logged and
// swallowed; a push never fails because cleanup did.
func (s *SyncService) pruneAfterPush(ctx context.Context) {
	pruned, err := s.PruneDeleted(ctx)
	if err != nil {
		s.logger.Warn("prune after push", "error", err)
		return
	}
	if pruned > 0 {
		s.logger.Info("pruned tombstones", "count", pruned)
	}
}

// PruneDeleted removes expired tombstones from the oldest pruneBatchSize
// ledger rows. The batch bound keeps the pass cheap no matter how large the
// ledger grows; repeated pushes drain a backlog batch by batch. Tombstones
// younger than the retention window are kept so slow devices still see them.
func (s *SyncService) PruneDeleted(ctx context.Context) (int, error) {
	batch, err := s.store.GetChangeBatch(ctx, s.pruneBatchSize)
	if err != nil {
		return 0, fmt.Errorf("get change batch: %w", err)
	}

	cutoff := time.Now().Add(-s.tombstoneRetention)
	var ids []string
	for _, c := range batch {
		if c.Deleted && c.UpdatedAt.Before(cutoff) {
			ids = append(ids, c.EntityID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	pruned, err := s.store.DeleteChanges(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("delete changes: %w", err)
	}
	return pruned, nil
}

// Cleanup removes every tombstone from the ledger regardless of age. Behind
// the manual maintenance endpoint; a device that has not pulled since before
// the cleanup will never learn about the purged deletions, which is the
// operator's call to make.
func (s *SyncService) Cleanup(ctx context.Context) (int, error) {
	purged, err := s.store.PurgeTombstones(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge tombstones: %w", err)
	}

	s.logger.Info("tombstones purged", "count", purged)
	return purged, nil
}

// Stats reports ledger and entity table sizes.
func (s *SyncService) Stats(ctx context.Context) (*store.Stats, error) {
	return s.store.GetStats(ctx)
}

// ResetLedger wipes the change ledger. Entity tables are untouched; clients
// must resync from a full pull or /sync/all-data, and versions restart at 1.
func (s *SyncService) ResetLedger(ctx context.Context) error {
	if err := s.store.ResetLedger(ctx); err != nil {
		return fmt.Errorf("reset ledger: %w", err)
	}

	s.logger.Warn("change ledger reset")
	return nil
}

// ClearAll wipes every entity table and the ledger. The instance row
// survives, so the server keeps its identity across a factory reset.
func (s *SyncService) ClearAll(ctx context.Context) error {
	if err := s.store.ClearAllData(ctx); err != nil {
		return fmt.Errorf("clear all data: %w", err)
	}

	s.logger.Warn("all data cleared")
	return nil
}

// AllDataResponse is the body of GET /sync/all-data: the complete library,
// straight from the entity tables, ignoring the ledger.
type AllDataResponse struct {
	Books []*domain.Book `json:"books"`
	Pages []*domain.Page `json:"pages"`
	Tags  []*domain.Tag  `json:"tags"`
}

// AllData dumps every entity for debugging and client recovery.
func (s *SyncService) AllData(ctx context.Context) (*AllDataResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	books, err := s.store.ListBooks(ctx)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}
	pages, err := s.store.ListPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	tags, err := s.store.ListTags(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	if err := s.attachPageTags(ctx, pages); err != nil {
		return nil, err
	}

	return &AllDataResponse{
		Books: books,
		Pages: pages,
		Tags:  tags,
	}, nil
}

// attachPageTags batch-loads tag associations for the given pages and fills
// each page's Tags field, defaulting to an empty slice so responses always
// carry a tags array.
func (s *SyncService) attachPageTags(ctx context.Context, pages []*domain.Page) error {
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
		if tags, ok := tagsByPage[p.ID]; ok {
			p.Tags = tags
		} else {
			p.Tags = []*domain.Tag{}
		}
	}
	return nil
}
