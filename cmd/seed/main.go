// Package main provides a tool to seed the database with sample library data.
//
// It applies a push the way a client would: nested books, tagged pages, and
// one deletion so the ledger carries a tombstone. Useful for exercising pull
// and the maintenance endpoints against realistic data.
//
// Usage:
//
//	PAGEMARK_DATA_DIR=~/Pagemark go run ./cmd/seed
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/pagemarkapp/pagemark-server/internal/config"
	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/service"
	"github.com/pagemarkapp/pagemark-server/internal/store/sqlite"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	dbPath := cfg.Storage.DatabasePath()
	fmt.Printf("Opening database at: %s\n", dbPath)

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		log.Fatalf("Failed to create data dir: %v", err)
	}

	// Progress goes to stdout; structured logs would just be noise here.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))

	st, err := sqlite.Open(dbPath, quiet)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	sync := service.NewSyncService(st, quiet, service.SyncOptions{})

	ctx := context.Background()
	now := domain.NewFlexTime(time.Now().UTC())

	// Client-style ids: clients generate UUIDs, only the server hands out
	// prefixed nanoids.
	readingID := uuid.NewString()
	goID := uuid.NewString()
	cookingID := uuid.NewString()
	doomedID := uuid.NewString()

	req := &service.PushRequest{
		Books: []service.BookPush{
			{ID: readingID, Title: "Reading List", Emoji: "📚", Order: 1, CreatedAt: now, UpdatedAt: now},
			{ID: goID, Title: "Go", Emoji: "🐹", Order: 1, ParentID: &readingID, CreatedAt: now, UpdatedAt: now},
			{ID: cookingID, Title: "Cooking", Emoji: "🍳", Order: 2, CreatedAt: now, UpdatedAt: now},
		},
		Pages: []service.PagePush{
			{
				ID: uuid.NewString(), BookID: &goID, Title: "Effective Go",
				URL: "https://go.dev/doc/effective_go", Order: 1, Pinned: true,
				Status: "reading", CreatedAt: now, UpdatedAt: now,
				TagIDs: []string{"golang", "reference"},
			},
			{
				ID: uuid.NewString(), BookID: &goID, Title: "Go Concurrency Patterns",
				URL: "https://go.dev/blog/pipelines", Order: 2,
				Status: "unread", CreatedAt: now, UpdatedAt: now,
				TagIDs: []string{"golang"},
			},
			{
				ID: uuid.NewString(), BookID: &cookingID, Title: "No-Knead Bread",
				URL: "https://cooking.nytimes.com/recipes/11376", Order: 1,
				Status: "read", CreatedAt: now, UpdatedAt: now,
				TagIDs: []string{"recipes"},
			},
			{
				ID: uuid.NewString(), Title: "Unfiled article",
				URL: "https://example.com/article", Order: 3,
				CreatedAt: now, UpdatedAt: now,
			},
			{
				ID: doomedID, Title: "Deleted on another device",
				URL: "https://example.com/gone", Order: 4,
				CreatedAt: now, UpdatedAt: now,
			},
		},
	}

	if err := sync.Push(ctx, req); err != nil {
		log.Fatalf("Failed to apply seed push: %v", err)
	}

	// A second push deletes one page so pull responses carry a tombstone.
	del := &service.PushRequest{
		Deletions: []service.DeletionPush{
			{EntityType: "page", EntityID: doomedID},
		},
	}
	if err := sync.Push(ctx, del); err != nil {
		log.Fatalf("Failed to apply seed deletion: %v", err)
	}

	stats, err := sync.Stats(ctx)
	if err != nil {
		log.Fatalf("Failed to read stats: %v", err)
	}

	fmt.Printf("Seeded %d books, %d pages, %d tags (%d ledger rows, %d tombstones)\n",
		stats.Books, stats.Pages, stats.Tags, stats.TotalChanges, stats.Tombstones)
}
