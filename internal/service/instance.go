package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	domainerrors "github.com/pagemarkapp/pagemark-server/internal/errors"
	"github.com/pagemarkapp/pagemark-server/internal/id"
	"github.com/pagemarkapp/pagemark-server/internal/store"
)

// InstanceService manages the server's identity row. The id it mints on
// first boot goes out in mDNS TXT records and /health so clients can tell
// two Pagemark servers on the same network apart.
type InstanceService struct {
	store      store.Store
	logger     *slog.Logger
	serverName string
}

// NewInstanceService creates a new instance service. serverName is used
// only when the instance row does not exist yet.
func NewInstanceService(store store.Store, logger *slog.Logger, serverName string) *InstanceService {
	return &InstanceService{
		store:      store,
		logger:     logger,
		serverName: serverName,
	}
}

// GetInstance retrieves the server identity.
func (s *InstanceService) GetInstance(ctx context.Context) (*domain.Instance, error) {
	instance, err := s.store.GetInstance(ctx)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, domainerrors.NotFound("instance not initialized").WithCause(err)
		}
		return nil, fmt.Errorf("get instance: %w", err)
	}
	return instance, nil
}

// Initialize returns the server identity, creating it on first boot.
// The row never changes once written.
func (s *InstanceService) Initialize(ctx context.Context) (*domain.Instance, error) {
	instance, err := s.store.GetInstance(ctx)
	if err == nil {
		return instance, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get instance: %w", err)
	}

	instanceID, err := id.Generate("srv")
	if err != nil {
		return nil, fmt.Errorf("generate instance id: %w", err)
	}

	instance = &domain.Instance{
		ID:        instanceID,
		Name:      s.serverName,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateInstance(ctx, instance); err != nil {
		return nil, fmt.Errorf("create instance: %w", err)
	}

	s.logger.Info("instance created",
		"instance_id", instance.ID,
		"name", instance.Name,
	)

	return instance, nil
}
