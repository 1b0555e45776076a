package calculator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyRoster is returned when a roster is built without members.
var ErrEmptyRoster = errors.New("roster must have at least one member")

// Roster is the fixed, ordered set of members known in advance.
// Balances are keyed by roster position, so a name outside the roster can
// never create a balance entry.
type Roster struct {
	members []string
	index   map[string]int
}

// NewRoster builds a roster from display names, keeping their order.
// Names are trimmed; blank and duplicate names are rejected.
func NewRoster(names []string) (*Roster, error) {
	if len(names) == 0 {
		return nil, ErrEmptyRoster
	}

	r := &Roster{
		members: make([]string, 0, len(names)),
		index:   make(map[string]int, len(names)),
	}
	for _, n := range names {
		name := strings.TrimSpace(n)
		if name == "" {
			return nil, fmt.Errorf("roster member name cannot be blank")
		}
		if _, dup := r.index[name]; dup {
			return nil, fmt.Errorf("duplicate roster member %q", name)
		}
		r.index[name] = len(r.members)
		r.members = append(r.members, name)
	}
	return r, nil
}

// Members returns the member names in roster order.
func (r *Roster) Members() []string {
	return append([]string(nil), r.members...)
}

// Len returns the number of members.
func (r *Roster) Len() int {
	return len(r.members)
}

// Contains reports whether name is a roster member.
func (r *Roster) Contains(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Index returns the roster position of name.
func (r *Roster) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}
