package rules

import (
	"fmt"
	"math"
	"sort"

	"github.com/cadlyhq/cadly/internal/geometry"
)

// Engine evaluates the loaded rule table against geometry snapshots.
// It is a pure transformation: no CAD access, no caching, no state
// beyond the immutable registry.
type Engine struct {
	reg *Registry
}

// NewEngine creates an Engine over a loaded registry.
func NewEngine(reg *Registry) *Engine {
	return &Engine{reg: reg}
}

// Registry exposes the engine's rule table for lookups.
func (e *Engine) Registry() *Registry { return e.reg }

// Evaluate applies every rule matching the process filter to the
// snapshot and returns the violations sorted severity-major (critical,
// warning, suggestion); ties keep feature discovery order.
//
// Features with missing or non-finite measurements are skipped, never
// fatal: a bad measurement produces no violation rather than a wrong one.
func (e *Engine) Evaluate(snap *geometry.Snapshot, filter string) []Violation {
	var out []Violation
	for _, rule := range e.reg.ForProcess(filter) {
		switch rule.Category {
		case CategoryWall:
			out = append(out, e.checkWalls(rule, snap)...)
		case CategoryHole:
			out = append(out, e.checkHoles(rule, snap)...)
		case CategoryDepthRatio:
			out = append(out, e.checkDepthRatios(rule, snap)...)
		case CategoryStandardSize:
			out = append(out, e.checkStandardSizes(rule, snap)...)
		case CategoryCorner:
			out = append(out, e.checkCorners(rule, snap)...)
		case CategoryOverhang:
			out = append(out, e.checkOverhangs(rule, snap)...)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Severity.Rank() < out[j].Severity.Rank()
	})
	return out
}

// RecommendProcess picks the process with the fewest critical violations;
// ties break by fewest total violations, then by the fixed preference
// order fdm, sla, cnc, injection_molding. Always yields exactly one
// winner and is recomputed from the snapshot on every call.
func (e *Engine) RecommendProcess(snap *geometry.Snapshot) Process {
	best := Processes[0]
	bestCritical, bestTotal := math.MaxInt, math.MaxInt

	for _, p := range Processes {
		violations := e.Evaluate(snap, string(p))
		critical := 0
		for _, v := range violations {
			if v.Severity == SeverityCritical {
				critical++
			}
		}
		total := len(violations)

		if critical < bestCritical || (critical == bestCritical && total < bestTotal) {
			best, bestCritical, bestTotal = p, critical, total
		}
	}
	return best
}

func (e *Engine) checkWalls(rule Rule, snap *geometry.Snapshot) []Violation {
	var out []Violation
	for _, w := range snap.Walls {
		if !finiteNonNegative(w.ThicknessMM) {
			continue
		}
		if !rule.Violates(w.ThicknessMM) {
			continue
		}
		var msg string
		if rule.Comparator == ComparatorMin {
			msg = fmt.Sprintf("Wall thickness %.1fmm is below the %.1fmm minimum for %s",
				w.ThicknessMM, rule.Threshold, rule.Process.Label())
		} else {
			msg = fmt.Sprintf("Wall thickness %.1fmm exceeds the %.1fmm maximum for %s",
				w.ThicknessMM, rule.Threshold, rule.Process.Label())
		}
		out = append(out, violation(rule, w.FeatureID, w.ThicknessMM, rule.Threshold, msg, w.Location))
	}
	return out
}

func (e *Engine) checkHoles(rule Rule, snap *geometry.Snapshot) []Violation {
	var out []Violation
	for _, h := range snap.Holes {
		if h.DiameterMM <= 0 || !finiteNonNegative(h.DiameterMM) {
			continue
		}
		if !rule.Violates(h.DiameterMM) {
			continue
		}
		var msg string
		if rule.Comparator == ComparatorMin {
			msg = fmt.Sprintf("Hole diameter %.1fmm is below the %.1fmm minimum for %s",
				h.DiameterMM, rule.Threshold, rule.Process.Label())
		} else {
			msg = fmt.Sprintf("Hole diameter %.1fmm exceeds the %.1fmm maximum for %s",
				h.DiameterMM, rule.Threshold, rule.Process.Label())
		}
		out = append(out, violation(rule, h.FeatureID, h.DiameterMM, rule.Threshold, msg, h.Location))
	}
	return out
}

// checkDepthRatios flags holes whose depth-to-diameter ratio exceeds the
// threshold. The ratio is unitless, rendered "X.X:1" — never in mm. A
// zero measured depth means the measurement failed, so the hole is
// skipped rather than treated as shallow.
func (e *Engine) checkDepthRatios(rule Rule, snap *geometry.Snapshot) []Violation {
	var out []Violation
	for _, h := range snap.Holes {
		ratio, ok := h.DepthRatio()
		if !ok || !finiteNonNegative(ratio) {
			continue
		}
		if ratio <= rule.Threshold {
			continue
		}
		msg := fmt.Sprintf("Hole depth ratio %.1f:1 exceeds the %.1f:1 maximum for %s",
			ratio, rule.Threshold, rule.Process.Label())
		out = append(out, violation(rule, h.FeatureID, ratio, rule.Threshold, msg, h.Location))
	}
	return out
}

// checkStandardSizes flags holes whose diameter deviates from the nearest
// allowed drill size by more than the tolerance. The required value is
// the nearest allowed size, not the tolerance.
func (e *Engine) checkStandardSizes(rule Rule, snap *geometry.Snapshot) []Violation {
	var out []Violation
	for _, h := range snap.Holes {
		if h.DiameterMM <= 0 || !finiteNonNegative(h.DiameterMM) {
			continue
		}
		nearest := e.reg.NearestStandardSize(h.DiameterMM)
		if math.Abs(h.DiameterMM-nearest) <= rule.Threshold {
			continue
		}
		msg := fmt.Sprintf("Hole diameter %.1fmm is not a standard drill size (nearest: %.1fmm)",
			h.DiameterMM, nearest)
		out = append(out, violation(rule, h.FeatureID, h.DiameterMM, nearest, msg, h.Location))
	}
	return out
}

// checkCorners evaluates concave corners only; convex corners never
// violate regardless of radius.
func (e *Engine) checkCorners(rule Rule, snap *geometry.Snapshot) []Violation {
	var out []Violation
	for _, c := range snap.Corners {
		if !c.Concave {
			continue
		}
		if !finiteNonNegative(c.RadiusMM) {
			continue
		}
		if !rule.Violates(c.RadiusMM) {
			continue
		}
		msg := fmt.Sprintf("Internal corner radius %.1fmm is below the %.1fmm minimum for %s",
			c.RadiusMM, rule.Threshold, rule.Process.Label())
		out = append(out, violation(rule, c.FeatureID, c.RadiusMM, rule.Threshold, msg, c.Location))
	}
	return out
}

// checkOverhangs flags downward-facing planar faces steeper than the
// threshold. Angles are in degrees and render with no decimals.
func (e *Engine) checkOverhangs(rule Rule, snap *geometry.Snapshot) []Violation {
	var out []Violation
	for _, f := range snap.Faces {
		angle, ok := f.OverhangAngle()
		if !ok || !finiteNonNegative(angle) {
			continue
		}
		if !rule.Violates(angle) {
			continue
		}
		msg := fmt.Sprintf("Overhang angle %.0f° exceeds the %.0f° maximum for %s without supports",
			angle, rule.Threshold, rule.Process.Label())
		out = append(out, violation(rule, f.FeatureID, angle, rule.Threshold, msg, f.Location))
	}
	return out
}

func violation(rule Rule, featureID string, current, required float64, msg string, loc []float64) Violation {
	return Violation{
		RuleID:        rule.RuleID,
		Severity:      rule.Severity,
		Process:       rule.Process,
		Category:      rule.Category,
		Message:       msg,
		FeatureID:     featureID,
		CurrentValue:  current,
		RequiredValue: required,
		Fixable:       rule.Fixable,
		Location:      loc,
	}
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}
