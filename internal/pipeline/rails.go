package pipeline

import (
	"fmt"
	"strconv"
	"strings"
)

// Rail is one supply voltage measured during the power stage. Nil bounds are
// not checked. Gate decides whether an out-of-range or unreadable rail
// aborts the run.
type Rail struct {
	Name    string
	Channel int
	Min     *float64
	Max     *float64
	Gate    bool
}

// Bound is a convenience for building Rail bounds.
func Bound(v float64) *float64 { return &v }

// Condition renders the acceptance bounds as recorded in the audit trail.
func (r Rail) Condition() string {
	switch {
	case r.Min != nil && r.Max != nil:
		return fmt.Sprintf("%sV < %s < %sV", formatVolts(*r.Min), r.Name, formatVolts(*r.Max))
	case r.Min != nil:
		return fmt.Sprintf("%s > %sV", r.Name, formatVolts(*r.Min))
	case r.Max != nil:
		return fmt.Sprintf("%s < %sV", r.Name, formatVolts(*r.Max))
	}
	return "none"
}

// InRange reports whether v satisfies the rail's bounds.
func (r Rail) InRange(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Rail) bounds() string {
	var parts []string
	if r.Min != nil {
		parts = append(parts, "> "+formatVolts(*r.Min)+"V")
	}
	if r.Max != nil {
		parts = append(parts, "< "+formatVolts(*r.Max)+"V")
	}
	return strings.Join(parts, " ")
}

func formatVolts(v float64) string {
	s := strconv.FormatFloat(v, 'f', 3, 64)
	s = strings.TrimRight(s, "0")
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	return s
}

// DefaultRails are the main board supplies: VOUT is informational, B+ and
// 3V3 gate the run.
func DefaultRails() []Rail {
	return []Rail{
		{Name: "VOUT", Channel: 2},
		{Name: "B+", Channel: 3, Min: Bound(4.0), Gate: true},
		{Name: "3V3", Channel: 0, Min: Bound(2.8), Max: Bound(3.2), Gate: true},
	}
}
