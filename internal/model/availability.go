package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Lots is an open-slot count or the "unknown" sentinel.
// The zero value is Unknown.
type Lots struct {
	count int
	known bool
}

// Unknown is the sentinel for facilities without usable availability data
var Unknown = Lots{}

// LotsOf returns a known slot count
func LotsOf(n int) Lots {
	return Lots{count: n, known: true}
}

// Count returns the slot count and whether it is known
func (l Lots) Count() (int, bool) {
	return l.count, l.known
}

// Known reports whether l carries a real count
func (l Lots) Known() bool {
	return l.known
}

func (l Lots) String() string {
	if !l.known {
		return "unknown"
	}
	return strconv.Itoa(l.count)
}

// MarshalJSON renders a number or the string "unknown"
func (l Lots) MarshalJSON() ([]byte, error) {
	if !l.known {
		return []byte(`"unknown"`), nil
	}
	return []byte(strconv.Itoa(l.count)), nil
}

// UnmarshalJSON accepts a whole non-negative number, a numeric string or "unknown"
func (l *Lots) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		if v < 0 || v != math.Trunc(v) || v > math.MaxInt32 {
			return fmt.Errorf("invalid lot count %s", string(data))
		}
		*l = LotsOf(int(v))
	case string:
		if v == "unknown" {
			*l = Unknown
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid lot count %q", v)
		}
		*l = LotsOf(n)
	case nil:
		*l = Unknown
	default:
		return fmt.Errorf("invalid lot count %s", string(data))
	}
	return nil
}

// Snapshot is one point-in-time availability fetch across all facilities.
// It is rebuilt on every fetch and never kept between fetches.
type Snapshot struct {
	lots map[string]Lots
}

// NewSnapshot wraps a facility id -> lots mapping
func NewSnapshot(lots map[string]Lots) *Snapshot {
	if lots == nil {
		lots = make(map[string]Lots)
	}
	return &Snapshot{lots: lots}
}

// Lots returns the availability for id; absent ids are Unknown
func (s *Snapshot) Lots(id string) Lots {
	if s == nil {
		return Unknown
	}
	return s.lots[id]
}

// Len returns the number of facilities present in the response
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.lots)
}

// For projects the snapshot onto the given facilities only
func (s *Snapshot) For(facilities []Facility) map[string]Lots {
	out := make(map[string]Lots, len(facilities))
	for _, f := range facilities {
		out[f.ID] = s.Lots(f.ID)
	}
	return out
}
