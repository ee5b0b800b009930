// Package subsystem names the physical mechanisms a routine can claim.
//
// A subsystem is an exclusivity domain, not a lock: the routine manager keeps
// at most one running routine per subsystem by evicting the incumbent.
package subsystem

import "strings"

// ID identifies one mechanism.
type ID uint8

const (
	Drive ID = iota
	Slider
	Spatula
	Intake
	Climber

	count
)

var names = [count]string{
	Drive:   "drive",
	Slider:  "slider",
	Spatula: "spatula",
	Intake:  "intake",
	Climber: "climber",
}

func (id ID) String() string {
	if id < count {
		return names[id]
	}
	return "unknown"
}

// All lists every known subsystem in ID order.
func All() []ID {
	ids := make([]ID, 0, count)
	for id := ID(0); id < count; id++ {
		ids = append(ids, id)
	}
	return ids
}

// Set is a bitset of subsystem IDs. The zero value is the empty set.
type Set uint32

// Of builds a set from the given IDs.
func Of(ids ...ID) Set {
	var s Set
	for _, id := range ids {
		s |= 1 << id
	}
	return s
}

// Union returns the set of IDs present in s or other.
func (s Set) Union(other Set) Set { return s | other }

// Intersects reports whether s and other share at least one subsystem.
func (s Set) Intersects(other Set) bool { return s&other != 0 }

// Contains reports whether id is a member of s.
func (s Set) Contains(id ID) bool { return s&(1<<id) != 0 }

// Empty reports whether s has no members.
func (s Set) Empty() bool { return s == 0 }

// IDs returns the members of s in ID order.
func (s Set) IDs() []ID {
	var ids []ID
	for id := ID(0); id < count; id++ {
		if s.Contains(id) {
			ids = append(ids, id)
		}
	}
	return ids
}

// Strings returns member names, in ID order.
func (s Set) Strings() []string {
	ids := s.IDs()
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

func (s Set) String() string {
	return "{" + strings.Join(s.Strings(), ",") + "}"
}
