package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
)

func (s *Server) registerMaintenanceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getSyncStats",
		Method:      http.MethodGet,
		Path:        "/sync/stats",
		Summary:     "Get sync statistics",
		Description: "Returns ledger and entity table counts",
		Tags:        []string{"Maintenance"},
	}, s.handleSyncStats)

	huma.Register(s.api, huma.Operation{
		OperationID: "resetSyncLedger",
		Method:      http.MethodPost,
		Path:        "/sync/reset",
		Summary:     "Reset the change ledger",
		Description: "Wipes every change record. Entities are untouched; clients must resync from a full pull.",
		Tags:        []string{"Maintenance"},
	}, s.handleSyncReset)

	huma.Register(s.api, huma.Operation{
		OperationID: "cleanupTombstones",
		Method:      http.MethodPost,
		Path:        "/sync/cleanup",
		Summary:     "Purge tombstones",
		Description: "Removes every tombstone from the ledger regardless of age",
		Tags:        []string{"Maintenance"},
	}, s.handleSyncCleanup)

	huma.Register(s.api, huma.Operation{
		OperationID: "clearAllData",
		Method:      http.MethodPost,
		Path:        "/sync/clear-all-data",
		Summary:     "Clear all data",
		Description: "Wipes every entity table and the change ledger. The server keeps its identity.",
		Tags:        []string{"Maintenance"},
	}, s.handleClearAllData)

	huma.Register(s.api, huma.Operation{
		OperationID: "getAllData",
		Method:      http.MethodGet,
		Path:        "/sync/all-data",
		Summary:     "Dump all data",
		Description: "Returns the complete library straight from the entity tables, ignoring the ledger",
		Tags:        []string{"Maintenance"},
	}, s.handleAllData)
}

// === DTOs ===

// SyncStatsResponse contains ledger and entity table counts.
type SyncStatsResponse struct {
	TotalChanges    int        `json:"totalChanges" doc:"Rows in the change ledger"`
	TotalTombstones int        `json:"totalTombstones" doc:"Ledger rows marking deletions"`
	Books           int        `json:"books" doc:"Books stored"`
	Pages           int        `json:"pages" doc:"Pages stored"`
	Tags            int        `json:"tags" doc:"Tags stored"`
	OldestChange    *time.Time `json:"oldestChange,omitempty" doc:"Timestamp of the oldest ledger row"`
	NewestChange    *time.Time `json:"newestChange,omitempty" doc:"Timestamp of the newest ledger row"`
}

// SyncStatsOutput wraps the stats response for Huma.
type SyncStatsOutput struct {
	Body SyncStatsResponse
}

// MaintenanceResponse acknowledges a maintenance action.
type MaintenanceResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message" doc:"Human-readable summary of what happened"`
}

// MaintenanceOutput wraps the maintenance acknowledgement for Huma.
type MaintenanceOutput struct {
	Body MaintenanceResponse
}

// AllDataResponseBody contains the full entity dump.
type AllDataResponseBody struct {
	Books []*domain.Book `json:"books" doc:"Every book"`
	Pages []*domain.Page `json:"pages" doc:"Every page, tags attached"`
	Tags  []*domain.Tag  `json:"tags" doc:"Every tag"`
}

// AllDataOutput wraps the full dump for Huma.
type AllDataOutput struct {
	Body AllDataResponseBody
}

// === Handlers ===

func (s *Server) handleSyncStats(ctx context.Context, _ *struct{}) (*SyncStatsOutput, error) {
	stats, err := s.services.Sync.Stats(ctx)
	if err != nil {
		return nil, err
	}

	return &SyncStatsOutput{
		Body: SyncStatsResponse{
			TotalChanges:    stats.TotalChanges,
			TotalTombstones: stats.Tombstones,
			Books:           stats.Books,
			Pages:           stats.Pages,
			Tags:            stats.Tags,
			OldestChange:    stats.OldestChange,
			NewestChange:    stats.NewestChange,
		},
	}, nil
}

func (s *Server) handleSyncReset(ctx context.Context, _ *struct{}) (*MaintenanceOutput, error) {
	if err := s.services.Sync.ResetLedger(ctx); err != nil {
		return nil, err
	}

	return &MaintenanceOutput{
		Body: MaintenanceResponse{
			Success: true,
			Message: "change ledger reset",
		},
	}, nil
}

func (s *Server) handleSyncCleanup(ctx context.Context, _ *struct{}) (*MaintenanceOutput, error) {
	purged, err := s.services.Sync.Cleanup(ctx)
	if err != nil {
		return nil, err
	}

	return &MaintenanceOutput{
		Body: MaintenanceResponse{
			Success: true,
			Message: fmt.Sprintf("purged %d tombstones", purged),
		},
	}, nil
}

func (s *Server) handleClearAllData(ctx context.Context, _ *struct{}) (*MaintenanceOutput, error) {
	if err := s.services.Sync.ClearAll(ctx); err != nil {
		return nil, err
	}

	return &MaintenanceOutput{
		Body: MaintenanceResponse{
			Success: true,
			Message: "all data cleared",
		},
	}, nil
}

func (s *Server) handleAllData(ctx context.Context, _ *struct{}) (*AllDataOutput, error) {
	result, err := s.services.Sync.AllData(ctx)
	if err != nil {
		return nil, err
	}

	return &AllDataOutput{
		Body: AllDataResponseBody{
			Books: orEmpty(result.Books),
			Pages: orEmpty(result.Pages),
			Tags:  orEmpty(result.Tags),
		},
	}, nil
}
