// Package simulate answers "what if this part were made differently":
// it re-runs the rule engine under another process filter, diffs the
// violations, compares cost, and plans the redesign work.
package simulate

import (
	"fmt"

	"github.com/cadlyhq/cadly/internal/rules"
)

// Diff is the violation delta between two analyses of the same geometry.
//
// Violations are matched across runs by (rule_id, feature_id); each run
// builds fresh values, so identity means nothing here.
type Diff struct {
	Removed    []rules.Violation `json:"removed_violations"`
	Added      []rules.Violation `json:"new_violations"`
	Persistent []rules.Violation `json:"persistent_violations"`
}

// Compare diffs two violation sets. Symmetric by construction:
// Compare(a, b).Removed matches Compare(b, a).Added pairwise, and
// Persistent is the same either way (drawn from the second argument, whose
// measurements are current).
func Compare(before, after []rules.Violation) Diff {
	beforeKeys := keySet(before)
	afterKeys := keySet(after)

	var d Diff
	for _, v := range before {
		if !afterKeys[v.Key()] {
			d.Removed = append(d.Removed, v)
		}
	}
	for _, v := range after {
		if beforeKeys[v.Key()] {
			d.Persistent = append(d.Persistent, v)
		} else {
			d.Added = append(d.Added, v)
		}
	}
	return d
}

func keySet(violations []rules.Violation) map[string]bool {
	s := make(map[string]bool, len(violations))
	for _, v := range violations {
		s[v.Key()] = true
	}
	return s
}

// Recommendation is the qualitative call on a process switch.
type Recommendation string

const (
	SwitchRecommended    Recommendation = "recommended"
	SwitchNotRecommended Recommendation = "not_recommended"
	SwitchNeutral        Recommendation = "neutral"
)

// Cost deltas inside this band are treated as noise, not a signal.
const costNoiseBandUSD = 1.0

// Verdict weighs the violation delta against the cost delta. Each signal
// votes at most once; agreement decides, a tie or a split vote is neutral.
type Verdict struct {
	Recommendation Recommendation `json:"recommendation"`
	Label          string         `json:"label"`
	Reasons        []string       `json:"reasons"`
}

// BuildVerdict derives the switch verdict from a diff and a cost delta
// (positive = the target process costs more).
func BuildVerdict(d Diff, costDelta float64) Verdict {
	score := 0
	var reasons []string

	removed, added := len(d.Removed), len(d.Added)
	switch {
	case removed > added:
		score++
		reasons = append(reasons, fmt.Sprintf("Resolves %d more violations than it introduces", removed-added))
	case added > removed:
		score--
		reasons = append(reasons, fmt.Sprintf("Introduces %d more violations than it resolves", added-removed))
	}

	switch {
	case costDelta < -costNoiseBandUSD:
		score++
		reasons = append(reasons, fmt.Sprintf("Saves $%.2f per unit", -costDelta))
	case costDelta > costNoiseBandUSD:
		score--
		reasons = append(reasons, fmt.Sprintf("Costs $%.2f more per unit", costDelta))
	}

	switch {
	case score > 0:
		return Verdict{SwitchRecommended, "Switch Recommended", reasons}
	case score < 0:
		return Verdict{SwitchNotRecommended, "Switch Not Recommended", reasons}
	default:
		return Verdict{SwitchNeutral, "Trade-offs are Balanced", reasons}
	}
}
