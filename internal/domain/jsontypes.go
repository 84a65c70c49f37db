package domain

import (
	"encoding/json/v2"
	"fmt"
	"strconv"
	"time"
)

// FlexTime is a time type that can unmarshal from either:
// - RFC3339 string: "2024-01-15T10:30:00Z"
// - Epoch milliseconds (number): 1705314600000
// - Epoch milliseconds (string): "1705314600000"
//
// It always marshals to RFC3339 with nanosecond precision. Entity timestamps
// cross the wire in every pull and push, and older extension builds sent
// epoch milliseconds, so the server keeps accepting all three encodings.
type FlexTime struct {
	time.Time
}

// NewFlexTime wraps a time.Time.
func NewFlexTime(t time.Time) FlexTime {
	return FlexTime{Time: t}
}

// UnmarshalJSON handles flexible time parsing from JSON.
func (ft *FlexTime) UnmarshalJSON(data []byte) error {
	// Try to unmarshal as string first
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		// Try RFC3339 first
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			ft.Time = t
			return nil
		}
		// Try RFC3339Nano
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			ft.Time = t
			return nil
		}
		// Try as epoch milliseconds string
		if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
			ft.Time = time.UnixMilli(ms)
			return nil
		}
		return fmt.Errorf("cannot parse time string: %s", s)
	}

	// Try as number (epoch milliseconds)
	var ms int64
	if err := json.Unmarshal(data, &ms); err == nil {
		ft.Time = time.UnixMilli(ms)
		return nil
	}

	// Try as float (some JSON encoders use float for large numbers)
	var msFloat float64
	if err := json.Unmarshal(data, &msFloat); err == nil {
		ft.Time = time.UnixMilli(int64(msFloat))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexTime", string(data))
}

// MarshalJSON outputs time in RFC3339 format with sub-second precision.
// Ledger timestamps carry nanoseconds; truncating them on the wire would
// make a client cursor built from max(changes[].updatedAt) land just before
// the newest record and re-fetch it on every pull.
func (ft FlexTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(ft.Format(time.RFC3339Nano))
}

// ToTime returns the underlying time.Time value.
func (ft FlexTime) ToTime() time.Time {
	return ft.Time
}

// FlexInt64 is an int64 that marshals as a decimal string and unmarshals
// from either a number or a string. Sort positions and versions are full
// 64-bit values; above 2^53 they do not survive a round trip through a
// float64-based JSON parser, so the string form is the output of record.
type FlexInt64 int64

// UnmarshalJSON accepts both `42` and `"42"`.
func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return fmt.Errorf("cannot parse int64 string: %s", s)
		}
		*f = FlexInt64(n)
		return nil
	}

	var n int64
	if err := json.Unmarshal(data, &n); err == nil {
		*f = FlexInt64(n)
		return nil
	}

	// Some encoders emit large integers as floats
	var fl float64
	if err := json.Unmarshal(data, &fl); err == nil {
		*f = FlexInt64(int64(fl))
		return nil
	}

	return fmt.Errorf("cannot unmarshal %s into FlexInt64", string(data))
}

// MarshalJSON outputs the value as a decimal string.
func (f FlexInt64) MarshalJSON() ([]byte, error) {
	return json.Marshal(strconv.FormatInt(int64(f), 10))
}

// Int64 returns the underlying value.
func (f FlexInt64) Int64() int64 {
	return int64(f)
}
