package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/pagemarkapp/pagemark-server/internal/domain"
	"github.com/pagemarkapp/pagemark-server/internal/service"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "pullChanges",
		Method:      http.MethodGet,
		Path:        "/sync",
		Summary:     "Pull changes",
		Description: "Returns every change record newer than the cursor plus the live entities they point at",
		Tags:        []string{"Sync"},
	}, s.handlePull)

	huma.Register(s.api, huma.Operation{
		OperationID: "pushChanges",
		Method:      http.MethodPost,
		Path:        "/sync",
		Summary:     "Push changes",
		Description: "Applies a batch of client mutations with last-write-wins semantics",
		Tags:        []string{"Sync"},
		// Payload validation belongs to the sync service, which reports
		// malformed items as 400 envelopes naming the field.
		SkipValidateBody: true,
	}, s.handlePush)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteEntity",
		Method:      http.MethodDelete,
		Path:        "/sync/entity/{entityType}/{entityId}",
		Summary:     "Delete an entity",
		Description: "Deletes one entity, cascades to children, and records tombstones. Idempotent.",
		Tags:        []string{"Sync"},
	}, s.handleDeleteEntity)
}

// === DTOs ===

// PullInput contains parameters for pulling changes.
type PullInput struct {
	Since string `query:"since" doc:"Only return changes after this RFC3339 timestamp. Omit for a full sync."`
}

// PullResponseBody contains the change set for a pull.
type PullResponseBody struct {
	Changes []*domain.ChangeRecord `json:"changes" doc:"Ledger records newer than the cursor, tombstones included"`
	Books   []*domain.Book         `json:"books" doc:"Live books referenced by the changes"`
	Pages   []*domain.Page         `json:"pages" doc:"Live pages referenced by the changes, tags attached"`
	Tags    []*domain.Tag          `json:"tags" doc:"Live tags referenced by the changes"`
}

// PullOutput wraps the pull response for Huma.
type PullOutput struct {
	Body PullResponseBody
}

// PushInput wraps the push payload.
type PushInput struct {
	Body service.PushRequest
}

// PushResponseBody acknowledges an applied push.
type PushResponseBody struct {
	Success bool `json:"success" doc:"Always true; failures surface as error envelopes"`
}

// PushOutput wraps the push acknowledgement for Huma.
type PushOutput struct {
	Body PushResponseBody
}

// DeleteEntityInput contains path parameters for a single-entity delete.
type DeleteEntityInput struct {
	EntityType string `path:"entityType" doc:"Entity type: book, page, or tag"`
	EntityID   string `path:"entityId" doc:"Entity ID"`
}

// DeleteEntityResponseBody acknowledges a delete.
type DeleteEntityResponseBody struct {
	Success bool   `json:"success"`
	Message string `json:"message" doc:"Human-readable confirmation"`
}

// DeleteEntityOutput wraps the delete acknowledgement for Huma.
type DeleteEntityOutput struct {
	Body DeleteEntityResponseBody
}

// === Handlers ===

func (s *Server) handlePull(ctx context.Context, input *PullInput) (*PullOutput, error) {
	var since *time.Time
	if input.Since != "" {
		t, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return nil, huma.Error400BadRequest("invalid since format, expected RFC3339")
		}
		since = &t
	}

	result, err := s.services.Sync.Pull(ctx, since)
	if err != nil {
		return nil, err
	}

	return &PullOutput{
		Body: PullResponseBody{
			Changes: orEmpty(result.Changes),
			Books:   orEmpty(result.Books),
			Pages:   orEmpty(result.Pages),
			Tags:    orEmpty(result.Tags),
		},
	}, nil
}

func (s *Server) handlePush(ctx context.Context, input *PushInput) (*PushOutput, error) {
	if err := s.services.Sync.Push(ctx, &input.Body); err != nil {
		return nil, err
	}

	return &PushOutput{
		Body: PushResponseBody{Success: true},
	}, nil
}

func (s *Server) handleDeleteEntity(ctx context.Context, input *DeleteEntityInput) (*DeleteEntityOutput, error) {
	record, err := s.services.Sync.DeleteEntity(ctx, input.EntityType, input.EntityID)
	if err != nil {
		return nil, err
	}

	return &DeleteEntityOutput{
		Body: DeleteEntityResponseBody{
			Success: true,
			Message: fmt.Sprintf("%s %s deleted", record.EntityType, record.EntityID),
		},
	}, nil
}
