package sqlite

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestOpen(t *testing.T) {
	s := newTestStore(t)

	// Verify WAL mode is set.
	var journalMode string
	err := s.db.QueryRow("PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("expected wal, got %s", journalMode)
	}

	// Verify foreign keys are enabled.
	var fk int
	err = s.db.QueryRow("PRAGMA foreign_keys").Scan(&fk)
	if err != nil {
		t.Fatalf("query foreign_keys: %v", err)
	}
	if fk != 1 {
		t.Errorf("expected foreign_keys=1, got %d", fk)
	}

	// Verify tables exist.
	tables := []string{
		"books", "pages", "tags", "page_tags", "change_records", "instance",
	}
	for _, table := range tables {
		var name string
		err := s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		if err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestOpenClose(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "test.db")
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	s, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("close store: %v", err)
	}

	// Re-open should work (schema is idempotent).
	s2, err := Open(dbPath, logger)
	if err != nil {
		t.Fatalf("re-open store: %v", err)
	}
	defer s2.Close()
}

func TestTimeFormatSortsLexicographically(t *testing.T) {
	// Ledger reads compare updated_at as text, so the stored format must
	// sort the same way the times do. RFC3339Nano would not: it trims
	// trailing zeros, and "...05.1Z" sorts before "...05Z".
	times := []string{
		"2026-01-02T15:04:05.000000000Z",
		"2026-01-02T15:04:05.100000000Z",
		"2026-01-02T15:04:05.123456789Z",
		"2026-01-02T15:04:06.000000000Z",
	}
	for i := 1; i < len(times); i++ {
		a, err := parseTime(times[i-1])
		if err != nil {
			t.Fatalf("parse %q: %v", times[i-1], err)
		}
		b, err := parseTime(times[i])
		if err != nil {
			t.Fatalf("parse %q: %v", times[i], err)
		}
		if !a.Before(b) {
			t.Fatalf("expected %q < %q as times", times[i-1], times[i])
		}
		if formatTime(a) >= formatTime(b) {
			t.Errorf("formatted %q >= %q, breaks text ordering", formatTime(a), formatTime(b))
		}
	}
}

func TestFormatTimeRoundTrip(t *testing.T) {
	in, err := parseTime("2026-03-15T09:30:00.5Z")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	out, err := parseTime(formatTime(in))
	if err != nil {
		t.Fatalf("re-parse: %v", err)
	}
	if !out.Equal(in) {
		t.Errorf("round trip changed time: got %v, want %v", out, in)
	}
}
