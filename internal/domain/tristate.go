package domain

import (
	"bytes"
	"fmt"
)

// TriState is a criterion value that distinguishes "no data" from "false".
// The zero value is TriUnknown so an unset criterion never reads as a negative finding.
type TriState int8

const (
	TriUnknown TriState = iota
	TriTrue
	TriFalse
)

// TriStateOf converts a boolean finding into a TriState.
func TriStateOf(v bool) TriState {
	if v {
		return TriTrue
	}
	return TriFalse
}

func (t TriState) IsTrue() bool    { return t == TriTrue }
func (t TriState) IsFalse() bool   { return t == TriFalse }
func (t TriState) IsUnknown() bool { return t == TriUnknown }

func (t TriState) String() string {
	switch t {
	case TriTrue:
		return "true"
	case TriFalse:
		return "false"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the criterion as true, false or null.
func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case TriTrue:
		return []byte("true"), nil
	case TriFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts true, false or null.
func (t *TriState) UnmarshalJSON(data []byte) error {
	switch string(bytes.TrimSpace(data)) {
	case "true":
		*t = TriTrue
	case "false":
		*t = TriFalse
	case "null":
		*t = TriUnknown
	default:
		return fmt.Errorf("invalid tri-state value %s", string(data))
	}
	return nil
}
