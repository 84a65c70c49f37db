package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlexTime_UnmarshalJSON_RFC3339(t *testing.T) {
	input := `"2024-01-15T10:30:00Z"`
	var ft FlexTime
	err := json.Unmarshal([]byte(input), &ft)
	require.NoError(t, err)

	expected := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, expected, ft.Time)
}

func TestFlexTime_UnmarshalJSON_RFC3339Nano(t *testing.T) {
	input := `"2024-01-15T10:30:00.123456789Z"`
	var ft FlexTime
	err := json.Unmarshal([]byte(input), &ft)
	require.NoError(t, err)

	expected := time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)
	assert.Equal(t, expected, ft.Time)
}

func TestFlexTime_UnmarshalJSON_EpochMs_Number(t *testing.T) {
	// 2024-01-15T10:30:00Z in epoch milliseconds
	input := `1705314600000`
	var ft FlexTime
	err := json.Unmarshal([]byte(input), &ft)
	require.NoError(t, err)

	expected := time.UnixMilli(1705314600000)
	assert.Equal(t, expected, ft.Time)
}

func TestFlexTime_UnmarshalJSON_EpochMs_String(t *testing.T) {
	// Same time as above, but as string
	input := `"1705314600000"`
	var ft FlexTime
	err := json.Unmarshal([]byte(input), &ft)
	require.NoError(t, err)

	expected := time.UnixMilli(1705314600000)
	assert.Equal(t, expected, ft.Time)
}

func TestFlexTime_MarshalJSON(t *testing.T) {
	ft := FlexTime{Time: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)}
	data, err := json.Marshal(ft)
	require.NoError(t, err)

	assert.Equal(t, `"2024-01-15T10:30:00Z"`, string(data))
}

func TestFlexTime_MarshalJSON_KeepsSubSecond(t *testing.T) {
	ft := FlexTime{Time: time.Date(2024, 1, 15, 10, 30, 0, 123456789, time.UTC)}
	data, err := json.Marshal(ft)
	require.NoError(t, err)
	assert.Equal(t, `"2024-01-15T10:30:00.123456789Z"`, string(data))

	// The wire form must parse back to the identical instant; a cursor
	// built from it may not drift below the original timestamp.
	var back FlexTime
	require.NoError(t, json.Unmarshal(data, &back))
	assert.True(t, back.Time.Equal(ft.Time))
}

func TestFlexInt64_UnmarshalJSON_Number(t *testing.T) {
	var f FlexInt64
	err := json.Unmarshal([]byte(`42`), &f)
	require.NoError(t, err)
	assert.Equal(t, int64(42), f.Int64())
}

func TestFlexInt64_UnmarshalJSON_String(t *testing.T) {
	var f FlexInt64
	err := json.Unmarshal([]byte(`"9007199254740993"`), &f)
	require.NoError(t, err)

	// 2^53+1: the first integer a float64 parse would silently corrupt
	assert.Equal(t, int64(9007199254740993), f.Int64())
}

func TestFlexInt64_MarshalJSON(t *testing.T) {
	f := FlexInt64(9007199254740993)
	data, err := json.Marshal(f)
	require.NoError(t, err)

	assert.Equal(t, `"9007199254740993"`, string(data))
}

func TestFlexInt64_UnmarshalJSON_Invalid(t *testing.T) {
	var f FlexInt64
	err := json.Unmarshal([]byte(`"not-a-number"`), &f)
	assert.Error(t, err)
}

func TestBook_JSONRoundTrip(t *testing.T) {
	parent := "b-parent"
	book := Book{
		ID:        "b-1",
		Title:     "Reading List",
		Emoji:     "📚",
		Order:     3,
		ParentID:  &parent,
		CreatedAt: NewFlexTime(time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)),
		UpdatedAt: NewFlexTime(time.Date(2024, 1, 16, 9, 0, 0, 0, time.UTC)),
	}

	data, err := json.Marshal(book)
	require.NoError(t, err)

	var decoded Book
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, book.ID, decoded.ID)
	assert.Equal(t, book.Title, decoded.Title)
	assert.Equal(t, book.Order, decoded.Order)
	require.NotNil(t, decoded.ParentID)
	assert.Equal(t, parent, *decoded.ParentID)
}

func TestBook_JSONFieldNames(t *testing.T) {
	data, err := json.Marshal(Book{ID: "b-1", Title: "Inbox"})
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	assert.Contains(t, m, "createdAt")
	assert.Contains(t, m, "updatedAt")
	assert.NotContains(t, m, "parentId", "nil parent should be omitted")
}

func TestParseEntityType(t *testing.T) {
	tests := []struct {
		input   string
		want    EntityType
		wantErr bool
	}{
		{"book", EntityTypeBook, false},
		{"page", EntityTypePage, false},
		{"tag", EntityTypeTag, false},
		{"bookmark", "", true},
		{"", "", true},
		{"Book", "", true},
	}

	for _, tt := range tests {
		got, err := ParseEntityType(tt.input)
		if tt.wantErr {
			assert.Error(t, err, "input %q", tt.input)
			continue
		}
		require.NoError(t, err, "input %q", tt.input)
		assert.Equal(t, tt.want, got)
	}
}
