package domain

import "github.com/danielgtaylor/huma/v2"

// Schema tells huma that FlexTime accepts a string or a number on the wire.
// Without this, reflection would produce an empty object schema from the
// embedded time.Time and request validation would reject every payload.
func (FlexTime) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "RFC3339 timestamp, or epoch milliseconds as number or string",
		OneOf: []*huma.Schema{
			{Type: huma.TypeString},
			{Type: huma.TypeNumber},
		},
	}
}

// Schema tells huma that FlexInt64 accepts an integer or its decimal string
// form. Marshaling always emits the string form.
func (FlexInt64) Schema(_ huma.Registry) *huma.Schema {
	return &huma.Schema{
		Description: "64-bit integer, as number or decimal string",
		OneOf: []*huma.Schema{
			{Type: huma.TypeInteger},
			{Type: huma.TypeString, Pattern: "^-?[0-9]+$"},
		},
	}
}
