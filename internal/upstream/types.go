package upstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// flexString accepts a JSON string or number; DRF serialises primary keys as numbers.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", data)
	}
	*f = flexString(n.String())
	return nil
}

// flexFloat accepts a JSON number or a numeric string; DRF serialises decimals as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	if s == "" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(string(s), 64)
	if err != nil {
		return fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	*f = flexFloat(v)
	return nil
}

// flexMinutes accepts minutes as a number or a duration string "HH:MM[:SS]".
type flexMinutes int

func (f *flexMinutes) UnmarshalJSON(data []byte) error {
	var s flexString
	if err := s.UnmarshalJSON(data); err != nil {
		return err
	}
	raw := strings.TrimSpace(string(s))
	if raw == "" {
		*f = 0
		return nil
	}
	if !strings.Contains(raw, ":") {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", raw, err)
		}
		*f = flexMinutes(int(v))
		return nil
	}
	parts := strings.Split(raw, ":")
	if len(parts) < 2 {
		return fmt.Errorf("invalid duration %q", raw)
	}
	hours, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*f = flexMinutes(hours*60 + minutes)
	return nil
}

// page unwraps DRF pagination; a bare array decodes as-is.
type page[T any] struct {
	Results []T
}

func (p *page[T]) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		return json.Unmarshal(data, &p.Results)
	}
	var wrapped struct {
		Results []T `json:"results"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return err
	}
	p.Results = wrapped.Results
	return nil
}
