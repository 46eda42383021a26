package fixes

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cadlyhq/cadly/internal/fusion"
	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

// Mutator is the write side of the CAD host plus the undo stack.
type Mutator interface {
	ResizeSketchCircle(ctx context.Context, currentDiameterMM, targetDiameterMM float64) (bool, error)
	ReducePocketDepth(ctx context.Context, increaseMM float64) (fusion.PocketAdjustment, error)
	ThickenShell(ctx context.Context, targetMM float64) (bool, error)
	FilletEdge(ctx context.Context, edgeIndex int, radiusMM float64) error
	Undo(ctx context.Context) error
}

// Source supplies fresh geometry snapshots for pre-checks and validation.
type Source interface {
	Snapshot(ctx context.Context) (*geometry.Snapshot, error)
}

// Tolerance used when matching a measured dimension against a fix target.
// The CAD host rounds aggressively on re-query, so exact equality is hopeless.
const matchToleranceMM = 0.2

// cornerCapFraction limits a fillet radius to this fraction of the thinnest
// adjacent wall so the fillet cannot eat through it.
const cornerCapFraction = 0.4

// maxCornerRounds bounds the fix-all corner loop; each round re-queries
// geometry because filleting renumbers edges.
const maxCornerRounds = 20

// Runner executes fixes one at a time. The mutex serializes mutations:
// concurrent edits against a single undo stack cannot be untangled.
type Runner struct {
	cad    Mutator
	src    Source
	engine *rules.Engine
	settle time.Duration
	log    *slog.Logger

	mu sync.Mutex
}

// NewRunner wires a fix runner. settle is how long to wait after a mutation
// before re-querying geometry; the host applies some edits asynchronously.
func NewRunner(cad Mutator, src Source, engine *rules.Engine, settle time.Duration, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{cad: cad, src: src, engine: engine, settle: settle, log: log}
}

// FixViolation attempts to resolve a single violation.
//
// A non-nil error means the CAD host could not be reached and nothing was
// mutated; every other outcome, including rollback, is reported through the
// Result. Calling this twice for the same violation is safe: once the
// geometry complies, the second call is a no-op.
func (r *Runner) FixViolation(ctx context.Context, v rules.Violation) (Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.fixLocked(ctx, v)
}

func (r *Runner) fixLocked(ctx context.Context, v rules.Violation) (Result, error) {
	rule, ok := r.engine.Registry().Rule(v.RuleID)
	if !ok {
		return failed(v.RuleID, v.FeatureID, fmt.Sprintf("unknown rule %q", v.RuleID), 0, 0), nil
	}
	if !rule.Fixable {
		return failed(v.RuleID, v.FeatureID, fmt.Sprintf("%s is not automatically fixable", rule.Name), 0, 0), nil
	}

	snap, err := r.src.Snapshot(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("fix %s: pre-check: %w", v.RuleID, err)
	}

	r.log.Info("fix attempt", "rule", v.RuleID, "feature", v.FeatureID, "category", rule.Category)

	switch rule.Category {
	case rules.CategoryHole, rules.CategoryStandardSize:
		return r.fixHole(ctx, rule, v, snap)
	case rules.CategoryWall:
		return r.fixWall(ctx, rule, v, snap)
	case rules.CategoryCorner:
		return r.fixCorner(ctx, rule, v, snap)
	default:
		return failed(v.RuleID, v.FeatureID,
			fmt.Sprintf("no automatic fix for %s violations", rule.Category), 0, 0), nil
	}
}

// FixAll resolves every fixable violation in the list, holes first, then
// walls, then corners. Corners go last because filleting renumbers edges
// and invalidates everything captured before it.
//
// It stops early only when the CAD host becomes unreachable; per-fix
// failures are recorded in the returned results and the run continues.
func (r *Runner) FixAll(ctx context.Context, violations []rules.Violation) ([]Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	holes, walls, corners := partition(violations)
	results := make([]Result, 0, len(holes)+len(walls)+len(corners))

	for _, v := range append(holes, walls...) {
		res, err := r.fixLocked(ctx, v)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}

	if len(corners) > 0 {
		cornerResults, err := r.fixCornersBatch(ctx, corners)
		results = append(results, cornerResults...)
		if err != nil {
			return results, err
		}
	}
	return results, nil
}

// partition splits fixable violations into the three fix families and
// dedupes per feature, keeping the largest required value so one mutation
// satisfies every rule that flagged the feature.
func partition(violations []rules.Violation) (holes, walls, corners []rules.Violation) {
	type bucket struct {
		order []string
		byID  map[string]rules.Violation
	}
	newBucket := func() *bucket { return &bucket{byID: make(map[string]rules.Violation)} }
	h, w, c := newBucket(), newBucket(), newBucket()

	put := func(b *bucket, v rules.Violation) {
		prev, seen := b.byID[v.FeatureID]
		if !seen {
			b.order = append(b.order, v.FeatureID)
			b.byID[v.FeatureID] = v
			return
		}
		if v.RequiredValue > prev.RequiredValue {
			b.byID[v.FeatureID] = v
		}
	}

	for _, v := range violations {
		if !v.Fixable {
			continue
		}
		switch v.Category {
		case rules.CategoryHole, rules.CategoryStandardSize:
			put(h, v)
		case rules.CategoryWall:
			put(w, v)
		case rules.CategoryCorner:
			put(c, v)
		}
	}

	collect := func(b *bucket) []rules.Violation {
		out := make([]rules.Violation, 0, len(b.order))
		for _, id := range b.order {
			out = append(out, b.byID[id])
		}
		return out
	}
	return collect(h), collect(w), collect(c)
}

// fixCornersBatch fillets sharp concave edges one at a time, re-querying
// geometry between fixes. Edge indices shift after every fillet, so the
// violations passed in only tell us the target radius; the edges themselves
// are re-resolved from fresh geometry each round.
func (r *Runner) fixCornersBatch(ctx context.Context, corners []rules.Violation) ([]Result, error) {
	var radius float64
	var ruleID string
	for _, v := range corners {
		if v.RequiredValue > radius {
			radius = v.RequiredValue
			ruleID = v.RuleID
		}
	}
	rule, ok := r.engine.Registry().Rule(ruleID)
	if !ok {
		return []Result{failed(ruleID, "", fmt.Sprintf("unknown rule %q", ruleID), 0, 0)}, nil
	}

	var results []Result
	for round := 0; round < maxCornerRounds; round++ {
		snap, err := r.src.Snapshot(ctx)
		if err != nil {
			return results, fmt.Errorf("fix corners: re-query: %w", err)
		}
		target, ok := nextSharpCorner(snap, radius)
		if !ok {
			break
		}
		v := rules.Violation{
			RuleID:        ruleID,
			Category:      rules.CategoryCorner,
			FeatureID:     target.FeatureID,
			CurrentValue:  target.RadiusMM,
			RequiredValue: radius,
			Fixable:       true,
		}
		res, err := r.fixCorner(ctx, rule, v, snap)
		results = append(results, res)
		if err != nil {
			return results, err
		}
		if !res.Success {
			// A fillet the host rejects once it will reject again;
			// stop rather than spin on the same edge.
			break
		}
	}
	return results, nil
}

func nextSharpCorner(snap *geometry.Snapshot, radius float64) (geometry.Corner, bool) {
	for _, c := range snap.Corners {
		if c.Concave && c.RadiusMM+matchToleranceMM < radius {
			return c, true
		}
	}
	return geometry.Corner{}, false
}

// settleAndSnapshot waits out the host's asynchronous apply window, then
// re-queries geometry for validation.
func (r *Runner) settleAndSnapshot(ctx context.Context) (*geometry.Snapshot, error) {
	if r.settle > 0 {
		select {
		case <-time.After(r.settle):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return r.src.Snapshot(ctx)
}

// rollback issues a single undo. Fire and forget: the undo outcome is not
// re-verified, and a failed undo is only logged — the result already says
// the fix did not hold.
func (r *Runner) rollback(ctx context.Context, ruleID string) {
	if err := r.cad.Undo(ctx); err != nil {
		r.log.Warn("rollback undo failed", "rule", ruleID, "error", err)
	}
}

// stillViolates re-runs the originating rule against fresh geometry and
// reports whether the same (rule, feature) pair still violates.
func (r *Runner) stillViolates(snap *geometry.Snapshot, ruleID, featureID string) bool {
	for _, v := range r.engine.Evaluate(snap, rules.FilterAll) {
		if v.RuleID == ruleID && v.FeatureID == featureID {
			return true
		}
	}
	return false
}
