package sqlite

import (
	"context"
	"database/sql"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// GetInstance retrieves the server's identity row.
// Returns store.ErrNotFound if the server has never been initialized.
func (s *Store) GetInstance(ctx context.Context) (*domain.Instance, error) {
	var inst domain.Instance
	var createdAt string

	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, created_at FROM instance LIMIT 1`).
		Scan(&inst.ID, &inst.Name, &createdAt)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	inst.CreatedAt, err = parseTime(createdAt)
	if err != nil {
		return nil, err
	}

	return &inst, nil
}

// CreateInstance writes the server's identity row. Called once on first
// boot; the row never changes afterwards.
func (s *Store) CreateInstance(ctx context.Context, inst *domain.Instance) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO instance (id, name, created_at) VALUES (?, ?, ?)`,
		inst.ID,
		inst.Name,
		formatTime(inst.CreatedAt),
	)
	return err
}
