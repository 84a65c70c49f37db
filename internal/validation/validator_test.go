package validation_test

import (
	"errors"
	"net/http"
	"testing"

	domainerrors "github.com/pagemarkapp/pagemark-server/internal/errors"
	"github.com/pagemarkapp/pagemark-server/internal/validation"
	"github.com/stretchr/testify/assert"
)

type TestRequest struct {
	EntityID string `json:"entityId" validate:"required"`
	URL      string `json:"url" validate:"omitempty,url"`
	Name     string `json:"name" validate:"required,min=1,max=200"`
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		EntityID: "page-abc123",
		URL:      "https://example.com/article",
		Name:     "Test Page",
	}

	err := v.Validate(req)
	assert.NoError(t, err)
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	//nolint:govet // fieldalignment: Minor memory optimization not worth the complexity in test code
	tests := []struct {
		name        string
		req         TestRequest
		wantErrCode int
		wantField   string
	}{
		{
			name: "missing required field",
			req: TestRequest{
				EntityID: "page-abc123",
				Name:     "", // Missing
			},
			wantErrCode: http.StatusBadRequest,
			wantField:   "name",
		},
		{
			name: "invalid url",
			req: TestRequest{
				EntityID: "page-abc123",
				URL:      "not a url",
				Name:     "Test",
			},
			wantErrCode: http.StatusBadRequest,
			wantField:   "url",
		},
		{
			name: "name too long",
			req: TestRequest{
				EntityID: "page-abc123",
				Name:     string(make([]byte, 201)),
			},
			wantErrCode: http.StatusBadRequest,
			wantField:   "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.req)
			assert.Error(t, err)

			var domainErr *domainerrors.Error
			if assert.True(t, errors.As(err, &domainErr)) {
				assert.Equal(t, tt.wantErrCode, domainErr.HTTPStatus())
				fields, ok := domainErr.Details.(map[string]string)
				if assert.True(t, ok, "details should be a field error map") {
					assert.Contains(t, fields, tt.wantField)
				}
			}
		})
	}
}

func TestValidator_MessageWording(t *testing.T) {
	v := validation.New()

	type deletion struct {
		EntityType string `json:"entityType" validate:"required,oneof=book page tag"`
		Name       string `json:"name" validate:"max=200"`
	}

	err := v.Validate(deletion{EntityType: "folder", Name: string(make([]byte, 201))})
	assert.Error(t, err)

	var domainErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domainErr)) {
		fields, ok := domainErr.Details.(map[string]string)
		if assert.True(t, ok) {
			assert.Equal(t, "must be one of: book page tag", fields["entityType"])
			assert.Equal(t, "must not exceed 200 characters", fields["name"])
		}
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()

	req := TestRequest{
		EntityID: "",
		Name:     "Test",
	}

	err := v.Validate(req)
	assert.Error(t, err)

	// Should use JSON tag name "entityId", not struct field name "EntityID"
	var domainErr *domainerrors.Error
	if assert.True(t, errors.As(err, &domainErr)) {
		fields, ok := domainErr.Details.(map[string]string)
		if assert.True(t, ok) {
			assert.Contains(t, fields, "entityId")
			assert.NotContains(t, fields, "EntityID")
		}
	}
}
