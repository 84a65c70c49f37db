package sqlite

import (
	"context"
	"errors"
	"testing"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

func TestRecordChange_VersionsNeverSkip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 5; want++ {
		record, err := s.RecordChange(ctx, domain.EntityTypeBook, "book-v1")
		if err != nil {
			t.Fatalf("RecordChange #%d: %v", want, err)
		}
		if record.Version.Int64() != want {
			t.Errorf("version after write %d: got %d, want %d", want, record.Version.Int64(), want)
		}
		if record.Deleted {
			t.Errorf("write %d: expected deleted=false", want)
		}
		if record.EntityType != domain.EntityTypeBook {
			t.Errorf("write %d: got type %q, want %q", want, record.EntityType, domain.EntityTypeBook)
		}
	}
}

func TestRecordChange_RefreshesTimestamp(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.RecordChange(ctx, domain.EntityTypePage, "page-ts")
	if err != nil {
		t.Fatalf("RecordChange: %v", err)
	}

	second, err := s.RecordChange(ctx, domain.EntityTypePage, "page-ts")
	if err != nil {
		t.Fatalf("RecordChange again: %v", err)
	}

	if second.UpdatedAt.Time.Before(first.UpdatedAt.Time) {
		t.Errorf("timestamp went backwards: %v then %v", first.UpdatedAt.Time, second.UpdatedAt.Time)
	}
}

func TestRecordDeletion_Tombstone(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordChange(ctx, domain.EntityTypeTag, "tag-del"); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}

	record, err := s.RecordDeletion(ctx, domain.EntityTypeTag, "tag-del")
	if err != nil {
		t.Fatalf("RecordDeletion: %v", err)
	}
	if !record.Deleted {
		t.Error("expected deleted=true")
	}
	if record.Version.Int64() != 2 {
		t.Errorf("version: got %d, want 2", record.Version.Int64())
	}
}

func TestRecordDeletion_UnknownEntity(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// A deletion for an entity that was never recorded still writes a
	// tombstone at version 1, so the deletion propagates to other devices.
	record, err := s.RecordDeletion(ctx, domain.EntityTypePage, "page-never-seen")
	if err != nil {
		t.Fatalf("RecordDeletion: %v", err)
	}
	if !record.Deleted {
		t.Error("expected deleted=true")
	}
	if record.Version.Int64() != 1 {
		t.Errorf("version: got %d, want 1", record.Version.Int64())
	}
}

func TestRecordChange_LeavesTombstoneFlag(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordDeletion(ctx, domain.EntityTypeBook, "book-gone"); err != nil {
		t.Fatalf("RecordDeletion: %v", err)
	}

	// Only RecordDeletion may write the flag; a plain mutation after a
	// deletion bumps the version but the tombstone stands.
	record, err := s.RecordChange(ctx, domain.EntityTypeBook, "book-gone")
	if err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
	if !record.Deleted {
		t.Error("expected deleted to stay true after RecordChange")
	}
	if record.Version.Int64() != 2 {
		t.Errorf("version: got %d, want 2", record.Version.Int64())
	}
}

func TestGetChange_NotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.GetChange(ctx, "nonexistent")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetChangesSince(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first, err := s.RecordChange(ctx, domain.EntityTypeBook, "book-cs1")
	if err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
	if _, err := s.RecordChange(ctx, domain.EntityTypePage, "page-cs2"); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
	if _, err := s.RecordDeletion(ctx, domain.EntityTypeTag, "tag-cs3"); err != nil {
		t.Fatalf("RecordDeletion: %v", err)
	}

	// Nil cursor returns the whole ledger, oldest first.
	all, err := s.GetChangesSince(ctx, nil)
	if err != nil {
		t.Fatalf("GetChangesSince(nil): %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 records, got %d", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].UpdatedAt.Time.Before(all[i-1].UpdatedAt.Time) {
			t.Errorf("records out of order at %d", i)
		}
	}
	if all[0].EntityID != "book-cs1" {
		t.Errorf("first record: got %q, want %q", all[0].EntityID, "book-cs1")
	}

	// The cursor is exclusive: a record whose timestamp equals since is
	// not returned again.
	cursor := first.UpdatedAt.Time
	after, err := s.GetChangesSince(ctx, &cursor)
	if err != nil {
		t.Fatalf("GetChangesSince(cursor): %v", err)
	}
	if len(after) != 2 {
		t.Fatalf("expected 2 records after cursor, got %d", len(after))
	}
	for _, record := range after {
		if record.EntityID == "book-cs1" {
			t.Error("cursor record leaked back into results")
		}
	}

	// Tombstones are part of the feed.
	var sawTombstone bool
	for _, record := range after {
		if record.EntityID == "tag-cs3" && record.Deleted {
			sawTombstone = true
		}
	}
	if !sawTombstone {
		t.Error("expected tombstone for tag-cs3 in results")
	}

	// A cursor past everything returns an empty, non-nil slice.
	last := all[len(all)-1].UpdatedAt.Time
	none, err := s.GetChangesSince(ctx, &last)
	if err != nil {
		t.Fatalf("GetChangesSince(last): %v", err)
	}
	if none == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(none) != 0 {
		t.Errorf("expected 0 records, got %d", len(none))
	}
}

func TestGetChangeBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ids := []string{"page-b1", "page-b2", "page-b3", "page-b4"}
	for _, id := range ids {
		if _, err := s.RecordChange(ctx, domain.EntityTypePage, id); err != nil {
			t.Fatalf("RecordChange(%s): %v", id, err)
		}
	}

	batch, err := s.GetChangeBatch(ctx, 2)
	if err != nil {
		t.Fatalf("GetChangeBatch: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 records, got %d", len(batch))
	}

	// Oldest first.
	if batch[0].EntityID != "page-b1" {
		t.Errorf("batch[0]: got %q, want %q", batch[0].EntityID, "page-b1")
	}
	if batch[1].EntityID != "page-b2" {
		t.Errorf("batch[1]: got %q, want %q", batch[1].EntityID, "page-b2")
	}

	// A limit beyond the ledger size returns everything.
	batch, err = s.GetChangeBatch(ctx, 100)
	if err != nil {
		t.Fatalf("GetChangeBatch(100): %v", err)
	}
	if len(batch) != 4 {
		t.Errorf("expected 4 records, got %d", len(batch))
	}
}

func TestDeleteChanges(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"book-d1", "book-d2", "book-d3"} {
		if _, err := s.RecordChange(ctx, domain.EntityTypeBook, id); err != nil {
			t.Fatalf("RecordChange(%s): %v", id, err)
		}
	}

	// Missing ids are not an error; only real rows count.
	n, err := s.DeleteChanges(ctx, []string{"book-d1", "book-d3", "book-missing"})
	if err != nil {
		t.Fatalf("DeleteChanges: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted count: got %d, want 2", n)
	}

	remaining, err := s.GetChangesSince(ctx, nil)
	if err != nil {
		t.Fatalf("GetChangesSince: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 record left, got %d", len(remaining))
	}
	if remaining[0].EntityID != "book-d2" {
		t.Errorf("remaining: got %q, want %q", remaining[0].EntityID, "book-d2")
	}

	// Empty input is a no-op.
	n, err = s.DeleteChanges(ctx, nil)
	if err != nil {
		t.Fatalf("DeleteChanges(nil): %v", err)
	}
	if n != 0 {
		t.Errorf("deleted count for nil input: got %d, want 0", n)
	}
}

func TestPurgeTombstones(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordChange(ctx, domain.EntityTypeBook, "book-keep"); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
	if _, err := s.RecordDeletion(ctx, domain.EntityTypePage, "page-gone"); err != nil {
		t.Fatalf("RecordDeletion: %v", err)
	}
	if _, err := s.RecordDeletion(ctx, domain.EntityTypeTag, "tag-gone"); err != nil {
		t.Fatalf("RecordDeletion: %v", err)
	}

	n, err := s.PurgeTombstones(ctx)
	if err != nil {
		t.Fatalf("PurgeTombstones: %v", err)
	}
	if n != 2 {
		t.Errorf("purged count: got %d, want 2", n)
	}

	remaining, err := s.GetChangesSince(ctx, nil)
	if err != nil {
		t.Fatalf("GetChangesSince: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("expected 1 record left, got %d", len(remaining))
	}
	if remaining[0].EntityID != "book-keep" {
		t.Errorf("remaining: got %q, want %q", remaining[0].EntityID, "book-keep")
	}
}

func TestResetLedger(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.RecordChange(ctx, domain.EntityTypeBook, "book-r1"); err != nil {
		t.Fatalf("RecordChange: %v", err)
	}
	if _, err := s.RecordDeletion(ctx, domain.EntityTypePage, "page-r2"); err != nil {
		t.Fatalf("RecordDeletion: %v", err)
	}

	if err := s.ResetLedger(ctx); err != nil {
		t.Fatalf("ResetLedger: %v", err)
	}

	records, err := s.GetChangesSince(ctx, nil)
	if err != nil {
		t.Fatalf("GetChangesSince: %v", err)
	}
	if len(records) != 0 {
		t.Errorf("expected empty ledger, got %d records", len(records))
	}

	// Versions restart from 1 after a reset.
	record, err := s.RecordChange(ctx, domain.EntityTypeBook, "book-r1")
	if err != nil {
		t.Fatalf("RecordChange after reset: %v", err)
	}
	if record.Version.Int64() != 1 {
		t.Errorf("version after reset: got %d, want 1", record.Version.Int64())
	}
}
