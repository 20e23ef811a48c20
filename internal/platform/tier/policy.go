// Package tier implements the tiered row-visibility policy. A principal sees
// rows at its own tier level and below; administrators see everything; a
// principal without a tier sees nothing.
package tier

import (
	"strconv"

	"github.com/google/uuid"
)

// Principal is a resolved platform user. TierLevel is nil when the principal
// has no tier assigned (closed-world default: sees nothing).
type Principal struct {
	ID          uuid.UUID `json:"id"`
	Subject     string    `json:"subject"`
	DisplayName string    `json:"display_name"`
	TierLevel   *int      `json:"tier_level,omitempty"`
	IsAdmin     bool      `json:"is_administrator"`
}

// Scope is the compact form of a principal's visible-tier set, suitable for
// turning into a single SQL clause without enumerating levels.
type Scope struct {
	All      bool // administrator: no tier clause at all
	None     bool // no tier assigned: query is guaranteed empty
	MaxLevel int  // otherwise: tier_level <= MaxLevel
}

// ScopeFor computes the visibility scope for a principal. Pure function of
// principal state, O(1).
func ScopeFor(p *Principal) Scope {
	if p == nil {
		return Scope{None: true}
	}
	if p.IsAdmin {
		return Scope{All: true}
	}
	if p.TierLevel == nil {
		return Scope{None: true}
	}
	return Scope{MaxLevel: *p.TierLevel}
}

// CanAccess reports whether the principal may see a row at the given tier
// level. Reflexive and monotonic: access at level N implies access at all
// levels below N.
func CanAccess(p *Principal, level int) bool {
	s := ScopeFor(p)
	switch {
	case s.All:
		return true
	case s.None:
		return false
	default:
		return level <= s.MaxLevel
	}
}

// VisibleTiers filters the platform's tier levels down to those the principal
// may see. allLevels is the full ordered set of configured tier levels.
func VisibleTiers(p *Principal, allLevels []int) []int {
	s := ScopeFor(p)
	if s.None {
		return nil
	}
	out := make([]int, 0, len(allLevels))
	for _, lvl := range allLevels {
		if s.All || lvl <= s.MaxLevel {
			out = append(out, lvl)
		}
	}
	return out
}

// Key returns a stable cache key for the scope, used to partition cached
// aggregates by visibility.
func (s Scope) Key() string {
	switch {
	case s.All:
		return "all"
	case s.None:
		return "none"
	default:
		return "lte-" + strconv.Itoa(s.MaxLevel)
	}
}
