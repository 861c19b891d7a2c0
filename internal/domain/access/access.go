// Package access maps caller roles onto the metric groups they may see.
package access

import (
	"sort"
	"strings"

	"github.com/okian/gympulse/internal/domain/types"
)

// Caller identifies who is asking for a snapshot.
type Caller struct {
	TenantID string
	Role     string
	RepID    string // the caller's own representative id, if any
}

// Rule is one row of the permission table.
type Rule struct {
	Groups   []types.Group
	SelfOnly bool
}

// Table is the role to visibility mapping. Roles match case insensitively.
type Table struct {
	rules map[string]Rule
}

// NewTable builds a Table from rules keyed by role.
func NewTable(rules map[string]Rule) *Table {
	t := &Table{rules: make(map[string]Rule, len(rules))}
	for role, r := range rules {
		t.rules[normalizeRole(role)] = r
	}
	return t
}

// DefaultTable is the stock gym permission table.
func DefaultTable() *Table {
	all := types.AllGroups()
	return NewTable(map[string]Rule{
		"owner":   {Groups: all},
		"admin":   {Groups: all},
		"manager": {Groups: all},
		"sales": {
			Groups:   []types.Group{types.GroupFunnel, types.GroupFollowUp, types.GroupLeaderboard},
			SelfOnly: true,
		},
		"front_desk": {Groups: []types.Group{types.GroupFunnel}},
	})
}

// Roles lists the configured roles in alphabetical order.
func (t *Table) Roles() []string {
	out := make([]string, 0, len(t.rules))
	for role := range t.rules {
		out = append(out, role)
	}
	sort.Strings(out)
	return out
}

// Resolve turns a caller into its Grant. Unknown roles get an empty grant.
func (t *Table) Resolve(c Caller) Grant {
	r, ok := t.rules[normalizeRole(c.Role)]
	if !ok {
		return Grant{}
	}
	g := Grant{
		groups:   make(map[types.Group]struct{}, len(r.Groups)),
		selfOnly: r.SelfOnly,
		repID:    c.RepID,
	}
	for _, group := range r.Groups {
		g.groups[group] = struct{}{}
	}
	return g
}

// Grant is the resolved, opaque permission token handed to the engine.
type Grant struct {
	groups   map[types.Group]struct{}
	selfOnly bool
	repID    string
}

// Allows reports whether group g is visible.
func (g Grant) Allows(group types.Group) bool {
	_, ok := g.groups[group]
	return ok
}

// SelfOnly reports whether the leaderboard is limited to the caller's own
// representative row, and which one.
func (g Grant) SelfOnly() (string, bool) {
	return g.repID, g.selfOnly
}

// Key is a stable fingerprint of what the grant can see, used to key caches.
func (g Grant) Key() string {
	var b strings.Builder
	for _, group := range types.AllGroups() {
		if g.Allows(group) {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(string(group))
		}
	}
	if b.Len() == 0 {
		b.WriteString("none")
	}
	if g.selfOnly {
		b.WriteString("|self:")
		b.WriteString(g.repID)
	}
	return b.String()
}

func normalizeRole(role string) string {
	return strings.ToLower(strings.TrimSpace(role))
}
