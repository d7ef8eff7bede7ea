package permissions

import (
	"encoding/json"
	"sort"
)

// ActionSet is the effective set of actions a user holds on one resource.
type ActionSet map[string]struct{}

// NewActionSet builds a set from the supplied actions.
func NewActionSet(actions ...string) ActionSet {
	set := make(ActionSet, len(actions))
	for _, action := range actions {
		set[action] = struct{}{}
	}
	return set
}

// Has reports whether action is in the set. A nil set holds nothing.
func (s ActionSet) Has(action string) bool {
	_, ok := s[action]
	return ok
}

// Add inserts action into the set.
func (s ActionSet) Add(action string) {
	s[action] = struct{}{}
}

// Clone returns an independent copy of the set.
func (s ActionSet) Clone() ActionSet {
	out := make(ActionSet, len(s))
	for action := range s {
		out[action] = struct{}{}
	}
	return out
}

// Sorted returns the actions in lexical order.
func (s ActionSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for action := range s {
		out = append(out, action)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON renders the set as a sorted array.
func (s ActionSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// Overrides maps an action to its per-user polarity: true grants, false denies.
type Overrides map[string]bool

// Merge applies overrides on top of role grants. Denials win over role
// grants for the same action; grants add actions the role lacks. Neither
// input is modified.
func Merge(roleGrants ActionSet, overrides Overrides) ActionSet {
	out := roleGrants.Clone()
	for action, granted := range overrides {
		if granted {
			out[action] = struct{}{}
			continue
		}
		delete(out, action)
	}
	return out
}
