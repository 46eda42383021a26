package simulate_test

import (
	"testing"

	"github.com/cadlyhq/cadly/internal/rules"
	"github.com/cadlyhq/cadly/internal/simulate"
)

func v(ruleID, featureID string) rules.Violation {
	return rules.Violation{RuleID: ruleID, FeatureID: featureID}
}

func keys(violations []rules.Violation) map[string]bool {
	out := make(map[string]bool, len(violations))
	for _, x := range violations {
		out[x.Key()] = true
	}
	return out
}

func sameKeys(a, b []rules.Violation) bool {
	ka, kb := keys(a), keys(b)
	if len(ka) != len(kb) {
		return false
	}
	for k := range ka {
		if !kb[k] {
			return false
		}
	}
	return true
}

func TestCompare_Partition(t *testing.T) {
	before := []rules.Violation{v("FDM-001", "wall_0_1"), v("FDM-003", "hole_2"), v("GEN-001", "hole_2")}
	after := []rules.Violation{v("FDM-003", "hole_2"), v("CNC-001", "edge_7")}

	d := simulate.Compare(before, after)

	if !sameKeys(d.Removed, []rules.Violation{v("FDM-001", "wall_0_1"), v("GEN-001", "hole_2")}) {
		t.Errorf("Removed = %v", d.Removed)
	}
	if !sameKeys(d.Added, []rules.Violation{v("CNC-001", "edge_7")}) {
		t.Errorf("Added = %v", d.Added)
	}
	if !sameKeys(d.Persistent, []rules.Violation{v("FDM-003", "hole_2")}) {
		t.Errorf("Persistent = %v", d.Persistent)
	}
}

func TestCompare_MatchesByRuleAndFeature_NotIdentity(t *testing.T) {
	// Same (rule, feature) but fresh measurements: must count as persistent.
	before := []rules.Violation{{RuleID: "FDM-001", FeatureID: "wall_0_1", CurrentValue: 1.0}}
	after := []rules.Violation{{RuleID: "FDM-001", FeatureID: "wall_0_1", CurrentValue: 1.01}}

	d := simulate.Compare(before, after)
	if len(d.Persistent) != 1 || len(d.Removed) != 0 || len(d.Added) != 0 {
		t.Errorf("diff = %+v, want one persistent violation", d)
	}
}

func TestCompare_Symmetry(t *testing.T) {
	sets := [][]rules.Violation{
		nil,
		{v("FDM-001", "wall_0_1")},
		{v("FDM-001", "wall_0_1"), v("FDM-003", "hole_2")},
		{v("CNC-001", "edge_7"), v("FDM-003", "hole_2"), v("GEN-001", "hole_9")},
	}

	for i, a := range sets {
		for j, b := range sets {
			ab := simulate.Compare(a, b)
			ba := simulate.Compare(b, a)
			if !sameKeys(ab.Removed, ba.Added) {
				t.Errorf("sets %d/%d: removed(a,b) != added(b,a)", i, j)
			}
			if !sameKeys(ab.Added, ba.Removed) {
				t.Errorf("sets %d/%d: added(a,b) != removed(b,a)", i, j)
			}
			if !sameKeys(ab.Persistent, ba.Persistent) {
				t.Errorf("sets %d/%d: persistent not symmetric", i, j)
			}
		}
	}
}

func TestBuildVerdict(t *testing.T) {
	diff := func(removed, added int) simulate.Diff {
		var d simulate.Diff
		for i := 0; i < removed; i++ {
			d.Removed = append(d.Removed, v("R", string(rune('a'+i))))
		}
		for i := 0; i < added; i++ {
			d.Added = append(d.Added, v("A", string(rune('a'+i))))
		}
		return d
	}

	tests := []struct {
		name      string
		d         simulate.Diff
		costDelta float64
		want      simulate.Recommendation
	}{
		{"fewer violations and cheaper", diff(3, 1), -10, simulate.SwitchRecommended},
		{"fewer violations, same cost", diff(2, 0), 0, simulate.SwitchRecommended},
		{"more violations and pricier", diff(0, 2), 25, simulate.SwitchNotRecommended},
		{"mixed signals cancel", diff(3, 0), 100, simulate.SwitchNeutral},
		{"no signals at all", diff(0, 0), 0, simulate.SwitchNeutral},
		{"equal counts, cost inside noise band", diff(1, 1), 0.5, simulate.SwitchNeutral},
		{"cheaper only", diff(0, 0), -50, simulate.SwitchRecommended},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := simulate.BuildVerdict(tt.d, tt.costDelta)
			if got.Recommendation != tt.want {
				t.Errorf("recommendation = %q, want %q (reasons %v)", got.Recommendation, tt.want, got.Reasons)
			}
		})
	}
}
