package fixes

import (
	"context"
	"fmt"

	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

// fixWall thickens a thin wall. Two strategies, in order:
//
//  1. Shrink the pocket whose floor forms the wall — reduces a cut-extrude
//     depth by the missing thickness. Preferred because it never moves
//     outer surfaces.
//  2. Re-thicken a shell feature to the target.
//
// If neither feature exists nothing is mutated and the fix fails cleanly.
func (r *Runner) fixWall(ctx context.Context, rule rules.Rule, v rules.Violation, snap *geometry.Snapshot) (Result, error) {
	wall, ok := findWall(snap, v.FeatureID)
	if !ok {
		return failed(v.RuleID, v.FeatureID, "wall no longer present in geometry", 0, 0), nil
	}

	target := v.RequiredValue
	if target <= 0 {
		target = rule.Threshold
	}
	current := wall.ThicknessMM

	if !r.stillViolates(snap, v.RuleID, v.FeatureID) {
		return confirmed(v.RuleID, v.FeatureID,
			fmt.Sprintf("wall already %.2fmm, nothing to do", current), current, current), nil
	}

	increase := target - current
	if increase <= 0 {
		return confirmed(v.RuleID, v.FeatureID,
			fmt.Sprintf("wall already %.2fmm, nothing to do", current), current, current), nil
	}

	mutated := false
	how := ""

	adj, err := r.cad.ReducePocketDepth(ctx, increase)
	if err != nil {
		return Result{}, fmt.Errorf("fix %s: reduce pocket depth: %w", v.RuleID, err)
	}
	if adj.Adjusted {
		mutated = true
		how = fmt.Sprintf("pocket %s reduced from %.2fmm to %.2fmm deep",
			adj.ParamName, adj.OldDepthCM*10, adj.NewDepthCM*10)
	} else {
		thickened, err := r.cad.ThickenShell(ctx, target)
		if err != nil {
			return Result{}, fmt.Errorf("fix %s: thicken shell: %w", v.RuleID, err)
		}
		if thickened {
			mutated = true
			how = fmt.Sprintf("shell thickness set to %.2fmm", target)
		}
	}

	if !mutated {
		return failed(v.RuleID, v.FeatureID,
			fmt.Sprintf("no pocket or shell feature drives this wall; thicken to %.2fmm manually", target),
			current, target), nil
	}

	after, err := r.settleAndSnapshot(ctx)
	if err != nil {
		r.rollback(ctx, v.RuleID)
		return rolledBack(v.RuleID, v.FeatureID,
			fmt.Sprintf("could not re-query geometry after edit: %v", err), current, target), nil
	}

	if wallConfirmed(after, v.FeatureID, target, r, v.RuleID) {
		return confirmed(v.RuleID, v.FeatureID,
			fmt.Sprintf("wall thickened from %.2fmm to %.2fmm (%s)", current, target, how),
			current, target), nil
	}

	r.rollback(ctx, v.RuleID)
	return rolledBack(v.RuleID, v.FeatureID,
		fmt.Sprintf("wall still below %.2fmm after edit; change undone", target),
		current, target), nil
}

// wallConfirmed checks the originating rule against the same wall, or — if
// the wall's face pair was renumbered by the rebuild — accepts when no wall
// anywhere still measures under the target.
func wallConfirmed(snap *geometry.Snapshot, featureID string, target float64, r *Runner, ruleID string) bool {
	if _, present := findWall(snap, featureID); present {
		return !r.stillViolates(snap, ruleID, featureID)
	}
	for _, w := range snap.Walls {
		if w.ThicknessMM < target-matchToleranceMM {
			return false
		}
	}
	return true
}

func findWall(snap *geometry.Snapshot, featureID string) (geometry.Wall, bool) {
	for _, w := range snap.Walls {
		if w.FeatureID == featureID {
			return w, true
		}
	}
	return geometry.Wall{}, false
}
