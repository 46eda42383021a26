package fixes

import (
	"context"
	"fmt"

	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

// fixHole enlarges (or resizes to a standard drill) a hole by editing the
// sketch circle it was extruded from. The hole's current diameter keys the
// sketch search, so the pre-check snapshot must still show the violation.
func (r *Runner) fixHole(ctx context.Context, rule rules.Rule, v rules.Violation, snap *geometry.Snapshot) (Result, error) {
	hole, ok := findHole(snap, v.FeatureID)
	if !ok {
		return failed(v.RuleID, v.FeatureID, "hole no longer present in geometry", 0, 0), nil
	}

	current := hole.DiameterMM

	target := v.RequiredValue
	if target <= 0 {
		// For standard-size rules the threshold is a tolerance, not a
		// diameter; the target is the nearest allowed drill size.
		if rule.Category == rules.CategoryStandardSize {
			target = r.engine.Registry().NearestStandardSize(current)
		} else {
			target = rule.Threshold
		}
	}

	if !r.stillViolates(snap, v.RuleID, v.FeatureID) {
		return confirmed(v.RuleID, v.FeatureID,
			fmt.Sprintf("hole already %.2fmm, nothing to do", current), current, current), nil
	}

	found, err := r.cad.ResizeSketchCircle(ctx, current, target)
	if err != nil {
		return Result{}, fmt.Errorf("fix %s: resize circle: %w", v.RuleID, err)
	}
	if !found {
		return failed(v.RuleID, v.FeatureID,
			fmt.Sprintf("no sketch circle matching %.2fmm diameter; edit the sketch manually", current),
			current, target), nil
	}

	after, err := r.settleAndSnapshot(ctx)
	if err != nil {
		r.rollback(ctx, v.RuleID)
		return rolledBack(v.RuleID, v.FeatureID,
			fmt.Sprintf("could not re-query geometry after resize: %v", err), current, target), nil
	}

	if holeConfirmed(after, v.FeatureID, target, r, v.RuleID) {
		return confirmed(v.RuleID, v.FeatureID,
			fmt.Sprintf("hole resized from %.2fmm to %.2fmm", current, target), current, target), nil
	}

	r.rollback(ctx, v.RuleID)
	return rolledBack(v.RuleID, v.FeatureID,
		fmt.Sprintf("resize did not take effect (hole still below %.2fmm); change undone", target),
		current, target), nil
}

// holeConfirmed reports whether the resize held. Primary check: the
// originating rule no longer flags the same feature. If the feature id went
// stale (extrude rebuilds renumber faces), fall back to content: some hole
// now measures within tolerance of the target.
func holeConfirmed(snap *geometry.Snapshot, featureID string, target float64, r *Runner, ruleID string) bool {
	if _, present := findHole(snap, featureID); present {
		return !r.stillViolates(snap, ruleID, featureID)
	}
	for _, h := range snap.Holes {
		if h.DiameterMM >= target-matchToleranceMM {
			return true
		}
	}
	return false
}

func findHole(snap *geometry.Snapshot, featureID string) (geometry.Hole, bool) {
	for _, h := range snap.Holes {
		if h.FeatureID == featureID {
			return h, true
		}
	}
	return geometry.Hole{}, false
}
