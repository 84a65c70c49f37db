package providers

import (
	"github.com/samber/do/v2"

	"github.com/pagemarkapp/pagemark-server/internal/config"
	"github.com/pagemarkapp/pagemark-server/internal/logger"
	"github.com/pagemarkapp/pagemark-server/internal/service"
)

// ProvideInstanceService provides the server identity service.
func ProvideInstanceService(i do.Injector) (*service.InstanceService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewInstanceService(storeHandle.Store, log.Logger, cfg.Server.Name), nil
}

// ProvideSyncService provides the sync service.
func ProvideSyncService(i do.Injector) (*service.SyncService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSyncService(storeHandle.Store, log.Logger, service.SyncOptions{
		PruneBatchSize:     cfg.Sync.PruneBatchSize,
		TombstoneRetention: cfg.Sync.TombstoneRetention,
	}), nil
}
