package api

import (
	"github.com/pagemarkapp/pagemark-server/internal/service"
)

// Services groups all business logic services used by the API server.
// This reduces the parameter count for NewServer and improves testability.
type Services struct {
	Instance *service.InstanceService
	Sync     *service.SyncService
	Search   *service.SearchService
}
