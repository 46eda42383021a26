package fixes

import (
	"context"
	"fmt"
	"math"

	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

// fixCorner fillets a sharp concave edge to the rule's minimum radius.
//
// The radius is capped at 40% of the thinnest wall adjacent to the edge: a
// fillet larger than that can consume the wall outright. A capped fillet is
// still a success — it is the largest radius the part can take — and the
// result message says so.
func (r *Runner) fixCorner(ctx context.Context, rule rules.Rule, v rules.Violation, snap *geometry.Snapshot) (Result, error) {
	corner, ok := findCorner(snap, v.FeatureID)
	if !ok {
		return failed(v.RuleID, v.FeatureID, "edge no longer present in geometry", 0, 0), nil
	}
	if !corner.Concave {
		return failed(v.RuleID, v.FeatureID, "edge is convex; only concave corners need fillets", 0, 0), nil
	}

	target := v.RequiredValue
	if target <= 0 {
		target = rule.Threshold
	}
	current := corner.RadiusMM

	if current+matchToleranceMM >= target {
		return confirmed(v.RuleID, v.FeatureID,
			fmt.Sprintf("corner already %.2fmm radius, nothing to do", current), current, current), nil
	}

	radius := target
	capNote := ""
	if corner.AdjacentMinWallMM > 0 {
		if maxSafe := corner.AdjacentMinWallMM * cornerCapFraction; radius > maxSafe {
			radius = maxSafe
			capNote = fmt.Sprintf(" (capped from %.1fmm to protect thin walls)", target)
		}
	}

	before := cornersAtRadius(snap, radius)

	if err := r.cad.FilletEdge(ctx, corner.EdgeIndex, radius); err != nil {
		return Result{}, fmt.Errorf("fix %s: fillet edge %d: %w", v.RuleID, corner.EdgeIndex, err)
	}

	after, err := r.settleAndSnapshot(ctx)
	if err != nil {
		r.rollback(ctx, v.RuleID)
		return rolledBack(v.RuleID, v.FeatureID,
			fmt.Sprintf("could not re-query geometry after fillet: %v", err), current, radius), nil
	}

	// Filleting replaces the edge and renumbers its neighbors, so the
	// originating feature id is useless here. Confirm by counting arc
	// edges at the applied radius: the fillet must have added one.
	if cornersAtRadius(after, radius) > before {
		return confirmed(v.RuleID, v.FeatureID,
			fmt.Sprintf("corner filleted to %.2fmm radius%s", radius, capNote), current, radius), nil
	}

	r.rollback(ctx, v.RuleID)
	return rolledBack(v.RuleID, v.FeatureID,
		fmt.Sprintf("fillet at %.2fmm did not appear in geometry; change undone", radius),
		current, radius), nil
}

// cornersAtRadius counts arc edges whose radius matches within tolerance.
func cornersAtRadius(snap *geometry.Snapshot, radius float64) int {
	n := 0
	for _, c := range snap.Corners {
		if c.RadiusMM > 0 && math.Abs(c.RadiusMM-radius) <= matchToleranceMM {
			n++
		}
	}
	return n
}

func findCorner(snap *geometry.Snapshot, featureID string) (geometry.Corner, bool) {
	for _, c := range snap.Corners {
		if c.FeatureID == featureID {
			return c, true
		}
	}
	return geometry.Corner{}, false
}
