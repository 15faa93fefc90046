package game_vo

import (
	"fmt"
	"strings"
)

// Faction is a closed enumeration; wire names are lowercase, parsing is
// case-insensitive, and the display form is deterministically capitalized.
type Faction int

const (
	FactionArm Faction = iota
	FactionCore
	FactionGoK
)

// AllFactions returns every faction in canonical order.
func AllFactions() []Faction {
	return []Faction{FactionArm, FactionCore, FactionGoK}
}

// IsValid reports whether f is one of the closed enumeration members.
func (f Faction) IsValid() bool {
	switch f {
	case FactionArm, FactionCore, FactionGoK:
		return true
	default:
		return false
	}
}

// String returns the lowercase wire form.
func (f Faction) String() string {
	switch f {
	case FactionArm:
		return "arm"
	case FactionCore:
		return "core"
	case FactionGoK:
		return "gok"
	default:
		return "unknown"
	}
}

// Capitalized returns the deterministic display form used in scenario files
// and planet score maps.
func (f Faction) Capitalized() string {
	switch f {
	case FactionArm:
		return "Arm"
	case FactionCore:
		return "Core"
	case FactionGoK:
		return "GoK"
	default:
		return "Unknown"
	}
}

// MarshalText renders the wire form, so Faction can be used as a JSON/bson
// map key (planet score and belligerent maps are keyed by faction).
func (f Faction) MarshalText() ([]byte, error) {
	if !f.IsValid() {
		return nil, fmt.Errorf("unsupported faction %d", int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText parses the wire form produced by MarshalText.
func (f *Faction) UnmarshalText(text []byte) error {
	parsed, err := ParseFaction(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// ParseFaction parses a wire-form faction name case-insensitively.
func ParseFaction(value string) (Faction, error) {
	switch strings.ToLower(value) {
	case "arm":
		return FactionArm, nil
	case "core":
		return FactionCore, nil
	case "gok":
		return FactionGoK, nil
	default:
		return 0, fmt.Errorf("unsupported faction %q", value)
	}
}

// Opposite returns the other faction in a two-faction Galactic War conflict.
// GoK does not currently hold Galactic War capitals, so this is only
// meaningful for arm/core and panics otherwise.
func (f Faction) Opposite() Faction {
	switch f {
	case FactionArm:
		return FactionCore
	case FactionCore:
		return FactionArm
	default:
		panic(fmt.Sprintf("faction %s has no two-capital opposite", f))
	}
}
