package fixes_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/cadlyhq/cadly/internal/fixes"
	"github.com/cadlyhq/cadly/internal/fusion"
	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

type filletCall struct {
	edge   int
	radius float64
}

type fakeCAD struct {
	resizeCalls [][2]float64
	resizeFound bool
	resizeErr   error

	pocket    fusion.PocketAdjustment
	pocketErr error
	shell     bool

	filletCalls []filletCall
	filletErr   error

	undos int
}

func (f *fakeCAD) ResizeSketchCircle(ctx context.Context, cur, target float64) (bool, error) {
	f.resizeCalls = append(f.resizeCalls, [2]float64{cur, target})
	return f.resizeFound, f.resizeErr
}

func (f *fakeCAD) ReducePocketDepth(ctx context.Context, increaseMM float64) (fusion.PocketAdjustment, error) {
	return f.pocket, f.pocketErr
}

func (f *fakeCAD) ThickenShell(ctx context.Context, targetMM float64) (bool, error) {
	return f.shell, nil
}

func (f *fakeCAD) FilletEdge(ctx context.Context, edgeIndex int, radiusMM float64) error {
	f.filletCalls = append(f.filletCalls, filletCall{edgeIndex, radiusMM})
	return f.filletErr
}

func (f *fakeCAD) Undo(ctx context.Context) error {
	f.undos++
	return nil
}

// fakeSource hands out snapshots in order, repeating the last one once the
// script runs out.
type fakeSource struct {
	snaps []*geometry.Snapshot
	err   error
	calls int
}

func (f *fakeSource) Snapshot(ctx context.Context) (*geometry.Snapshot, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.snaps) == 0 {
		return &geometry.Snapshot{PartName: "empty"}, nil
	}
	snap := f.snaps[0]
	if len(f.snaps) > 1 {
		f.snaps = f.snaps[1:]
	}
	return snap, nil
}

func testEngine(t *testing.T, ruleList []rules.Rule) *rules.Engine {
	t.Helper()
	reg, err := rules.NewRegistry(ruleList, []float64{4.0, 4.5, 5.0})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	return rules.NewEngine(reg)
}

func newRunner(t *testing.T, cad *fakeCAD, src *fakeSource, ruleList []rules.Rule) *fixes.Runner {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return fixes.NewRunner(cad, src, testEngine(t, ruleList), 0, log)
}

func holeRule() rules.Rule {
	return rules.Rule{
		RuleID: "FDM-003", Name: "Min hole diameter", Process: rules.ProcessFDM,
		Category: rules.CategoryHole, Severity: rules.SeverityWarning,
		Threshold: 2.0, Comparator: rules.ComparatorMin, Fixable: true,
	}
}

func wallRule() rules.Rule {
	return rules.Rule{
		RuleID: "FDM-001", Name: "Min wall thickness", Process: rules.ProcessFDM,
		Category: rules.CategoryWall, Severity: rules.SeverityCritical,
		Threshold: 1.2, Comparator: rules.ComparatorMin, Fixable: true,
	}
}

func cornerRule() rules.Rule {
	return rules.Rule{
		RuleID: "CNC-001", Name: "Min internal corner radius", Process: rules.ProcessCNC,
		Category: rules.CategoryCorner, Severity: rules.SeverityWarning,
		Threshold: 1.5, Comparator: rules.ComparatorMin, Fixable: true,
	}
}

func holeSnap(diameterMM float64) *geometry.Snapshot {
	return &geometry.Snapshot{
		PartName: "bracket",
		Holes:    []geometry.Hole{{FeatureID: "hole_3", FaceIndex: 3, DiameterMM: diameterMM, DepthMM: 5}},
	}
}

func holeViolation() rules.Violation {
	return rules.Violation{
		RuleID: "FDM-003", Category: rules.CategoryHole, FeatureID: "hole_3",
		CurrentValue: 1.5, RequiredValue: 2.0, Fixable: true,
	}
}

// --- Hole fixes ---

func TestFixViolation_Hole_Confirmed(t *testing.T) {
	cad := &fakeCAD{resizeFound: true}
	src := &fakeSource{snaps: []*geometry.Snapshot{holeSnap(1.5), holeSnap(2.0)}}
	r := newRunner(t, cad, src, []rules.Rule{holeRule()})

	res, err := r.FixViolation(context.Background(), holeViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if !res.Success || res.RolledBack {
		t.Fatalf("result = %+v, want confirmed", res)
	}
	if res.State != fixes.StateConfirmed {
		t.Errorf("State = %q, want %q", res.State, fixes.StateConfirmed)
	}
	if len(cad.resizeCalls) != 1 || cad.resizeCalls[0] != [2]float64{1.5, 2.0} {
		t.Errorf("resize calls = %v, want one call 1.5 -> 2.0", cad.resizeCalls)
	}
	if cad.undos != 0 {
		t.Errorf("undos = %d, want 0", cad.undos)
	}
}

func TestFixViolation_Hole_SecondCallIsNoOp(t *testing.T) {
	// Geometry already complies: nothing must be mutated.
	cad := &fakeCAD{resizeFound: true}
	src := &fakeSource{snaps: []*geometry.Snapshot{holeSnap(2.0)}}
	r := newRunner(t, cad, src, []rules.Rule{holeRule()})

	res, err := r.FixViolation(context.Background(), holeViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want success no-op", res)
	}
	if len(cad.resizeCalls) != 0 {
		t.Errorf("resize was called %d times on compliant geometry", len(cad.resizeCalls))
	}
	if cad.undos != 0 {
		t.Errorf("undos = %d, want 0", cad.undos)
	}
}

func TestFixViolation_Hole_ValidationFailureRollsBack(t *testing.T) {
	cad := &fakeCAD{resizeFound: true}
	// The hole never changes: the resize silently failed.
	src := &fakeSource{snaps: []*geometry.Snapshot{holeSnap(1.5), holeSnap(1.5)}}
	r := newRunner(t, cad, src, []rules.Rule{holeRule()})

	res, err := r.FixViolation(context.Background(), holeViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if res.Success {
		t.Fatal("fix reported success but geometry never changed")
	}
	if !res.RolledBack {
		t.Error("RolledBack = false, want true")
	}
	if res.State != fixes.StateRolledBack {
		t.Errorf("State = %q, want %q", res.State, fixes.StateRolledBack)
	}
	if cad.undos != 1 {
		t.Errorf("undos = %d, want exactly 1", cad.undos)
	}
}

func TestFixViolation_Hole_NoMatchingCircleFailsWithoutUndo(t *testing.T) {
	cad := &fakeCAD{resizeFound: false}
	src := &fakeSource{snaps: []*geometry.Snapshot{holeSnap(1.5)}}
	r := newRunner(t, cad, src, []rules.Rule{holeRule()})

	res, err := r.FixViolation(context.Background(), holeViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if res.Success || res.RolledBack {
		t.Fatalf("result = %+v, want plain failure", res)
	}
	if res.State != fixes.StateFailed {
		t.Errorf("State = %q, want %q", res.State, fixes.StateFailed)
	}
	if cad.undos != 0 {
		t.Errorf("undos = %d: nothing was mutated, nothing to undo", cad.undos)
	}
}

func TestFixViolation_StandardSize_DefaultsToNearestDrill(t *testing.T) {
	cad := &fakeCAD{resizeFound: true}
	src := &fakeSource{snaps: []*geometry.Snapshot{holeSnap(4.3), holeSnap(4.5)}}
	rule := rules.Rule{
		RuleID: "GEN-001", Name: "Standard drill size", Process: rules.ProcessAny,
		Category: rules.CategoryStandardSize, Severity: rules.SeveritySuggestion,
		Threshold: 0.1, Comparator: rules.ComparatorTolerance, Fixable: true,
	}
	r := newRunner(t, cad, src, []rules.Rule{rule})

	// required_value omitted by the caller: the target must come from the
	// drill table, never from the rule's tolerance.
	res, err := r.FixViolation(context.Background(), rules.Violation{
		RuleID: "GEN-001", Category: rules.CategoryStandardSize, FeatureID: "hole_3",
		CurrentValue: 4.3, Fixable: true,
	})
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want confirmed", res)
	}
	if len(cad.resizeCalls) != 1 || cad.resizeCalls[0] != [2]float64{4.3, 4.5} {
		t.Errorf("resize calls = %v, want one call 4.3 -> 4.5", cad.resizeCalls)
	}
}

func TestFixViolation_UnreachableHostPropagates(t *testing.T) {
	cad := &fakeCAD{resizeErr: fusion.ErrUnreachable}
	src := &fakeSource{snaps: []*geometry.Snapshot{holeSnap(1.5)}}
	r := newRunner(t, cad, src, []rules.Rule{holeRule()})

	_, err := r.FixViolation(context.Background(), holeViolation())
	if !errors.Is(err, fusion.ErrUnreachable) {
		t.Fatalf("err = %v, want ErrUnreachable", err)
	}
}

// --- Wall fixes ---

func wallSnap(thicknessMM float64) *geometry.Snapshot {
	return &geometry.Snapshot{
		PartName: "bracket",
		Walls:    []geometry.Wall{{FeatureID: "wall_1_2", FaceIndex1: 1, FaceIndex2: 2, ThicknessMM: thicknessMM}},
	}
}

func wallViolation() rules.Violation {
	return rules.Violation{
		RuleID: "FDM-001", Category: rules.CategoryWall, FeatureID: "wall_1_2",
		CurrentValue: 0.8, RequiredValue: 1.2, Fixable: true,
	}
}

func TestFixViolation_Wall_PocketDepthConfirmed(t *testing.T) {
	cad := &fakeCAD{pocket: fusion.PocketAdjustment{
		Adjusted: true, ParamName: "d4", OldDepthCM: 0.9, NewDepthCM: 0.86,
	}}
	src := &fakeSource{snaps: []*geometry.Snapshot{wallSnap(0.8), wallSnap(1.2)}}
	r := newRunner(t, cad, src, []rules.Rule{wallRule()})

	res, err := r.FixViolation(context.Background(), wallViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want confirmed", res)
	}
	if !strings.Contains(res.Message, "pocket d4") {
		t.Errorf("message %q does not describe the pocket adjustment", res.Message)
	}
}

func TestFixViolation_Wall_FallsBackToShell(t *testing.T) {
	cad := &fakeCAD{pocket: fusion.PocketAdjustment{Adjusted: false}, shell: true}
	src := &fakeSource{snaps: []*geometry.Snapshot{wallSnap(0.8), wallSnap(1.2)}}
	r := newRunner(t, cad, src, []rules.Rule{wallRule()})

	res, err := r.FixViolation(context.Background(), wallViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want confirmed via shell", res)
	}
	if !strings.Contains(res.Message, "shell") {
		t.Errorf("message %q does not mention the shell fallback", res.Message)
	}
}

func TestFixViolation_Wall_NoStrategyFailsWithoutMutation(t *testing.T) {
	cad := &fakeCAD{pocket: fusion.PocketAdjustment{Adjusted: false}, shell: false}
	src := &fakeSource{snaps: []*geometry.Snapshot{wallSnap(0.8)}}
	r := newRunner(t, cad, src, []rules.Rule{wallRule()})

	res, err := r.FixViolation(context.Background(), wallViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if res.Success || res.RolledBack {
		t.Fatalf("result = %+v, want plain failure", res)
	}
	if cad.undos != 0 {
		t.Errorf("undos = %d: nothing was mutated", cad.undos)
	}
	if !strings.Contains(res.Message, "manually") {
		t.Errorf("message %q should point at a manual fix", res.Message)
	}
}

// --- Corner fixes ---

func cornerSnap(radiusMM, adjacentWallMM float64) *geometry.Snapshot {
	return &geometry.Snapshot{
		PartName: "bracket",
		Corners: []geometry.Corner{{
			FeatureID: "edge_7", EdgeIndex: 7, Concave: true,
			RadiusMM: radiusMM, AdjacentMinWallMM: adjacentWallMM,
		}},
	}
}

func cornerViolation() rules.Violation {
	return rules.Violation{
		RuleID: "CNC-001", Category: rules.CategoryCorner, FeatureID: "edge_7",
		CurrentValue: 0, RequiredValue: 1.5, Fixable: true,
	}
}

func TestFixViolation_Corner_CappedByAdjacentWall(t *testing.T) {
	cad := &fakeCAD{}
	// Adjacent wall is 1.0mm, so 1.5mm would eat it; expect 40% of 1.0mm.
	before := cornerSnap(0, 1.0)
	after := cornerSnap(0.4, 1.0)
	src := &fakeSource{snaps: []*geometry.Snapshot{before, after}}
	r := newRunner(t, cad, src, []rules.Rule{cornerRule()})

	res, err := r.FixViolation(context.Background(), cornerViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want confirmed", res)
	}
	if len(cad.filletCalls) != 1 {
		t.Fatalf("fillet calls = %d, want 1", len(cad.filletCalls))
	}
	if got := cad.filletCalls[0]; got.edge != 7 || got.radius != 0.4 {
		t.Errorf("FilletEdge(%d, %v), want (7, 0.4)", got.edge, got.radius)
	}
	if !strings.Contains(res.Message, "(capped from 1.5mm to protect thin walls)") {
		t.Errorf("message %q does not flag the cap", res.Message)
	}
	if res.NewValue != 0.4 {
		t.Errorf("NewValue = %v, want the applied radius 0.4", res.NewValue)
	}
}

func TestFixViolation_Corner_FullRadiusWhenWallsAreThick(t *testing.T) {
	cad := &fakeCAD{}
	src := &fakeSource{snaps: []*geometry.Snapshot{cornerSnap(0, 10), cornerSnap(1.5, 10)}}
	r := newRunner(t, cad, src, []rules.Rule{cornerRule()})

	res, err := r.FixViolation(context.Background(), cornerViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if !res.Success {
		t.Fatalf("result = %+v, want confirmed", res)
	}
	if got := cad.filletCalls[0].radius; got != 1.5 {
		t.Errorf("fillet radius = %v, want full 1.5", got)
	}
	if strings.Contains(res.Message, "capped") {
		t.Errorf("message %q mentions a cap that was not applied", res.Message)
	}
}

func TestFixViolation_Corner_NoNewArcRollsBack(t *testing.T) {
	cad := &fakeCAD{}
	// After the fillet the geometry looks exactly as before: no new arc.
	src := &fakeSource{snaps: []*geometry.Snapshot{cornerSnap(0, 10), cornerSnap(0, 10)}}
	r := newRunner(t, cad, src, []rules.Rule{cornerRule()})

	res, err := r.FixViolation(context.Background(), cornerViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if res.Success {
		t.Fatal("fix reported success but no arc appeared")
	}
	if !res.RolledBack || cad.undos != 1 {
		t.Errorf("RolledBack = %v, undos = %d, want rollback with one undo", res.RolledBack, cad.undos)
	}
}

func TestFixViolation_Corner_ConvexEdgeRefused(t *testing.T) {
	snap := cornerSnap(0, 10)
	snap.Corners[0].Concave = false
	cad := &fakeCAD{}
	src := &fakeSource{snaps: []*geometry.Snapshot{snap}}
	r := newRunner(t, cad, src, []rules.Rule{cornerRule()})

	res, err := r.FixViolation(context.Background(), cornerViolation())
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if res.Success || len(cad.filletCalls) != 0 {
		t.Fatalf("result = %+v with %d fillet calls; convex edges must be refused", res, len(cad.filletCalls))
	}
}

// --- Fix-all ---

func TestFixAll_OrderAndDedupe(t *testing.T) {
	state := func(holeMM, wallMM float64) *geometry.Snapshot {
		return &geometry.Snapshot{
			PartName: "bracket",
			Holes:    []geometry.Hole{{FeatureID: "hole_3", FaceIndex: 3, DiameterMM: holeMM, DepthMM: 5}},
			Walls:    []geometry.Wall{{FeatureID: "wall_1_2", FaceIndex1: 1, FaceIndex2: 2, ThicknessMM: wallMM}},
		}
	}
	cad := &fakeCAD{resizeFound: true, pocket: fusion.PocketAdjustment{
		Adjusted: true, ParamName: "d4", OldDepthCM: 0.9, NewDepthCM: 0.86,
	}}
	src := &fakeSource{snaps: []*geometry.Snapshot{
		state(1.5, 0.8), // hole pre-check
		state(2.0, 0.8), // hole validation
		state(2.0, 0.8), // wall pre-check
		state(2.0, 1.2), // wall validation
	}}
	r := newRunner(t, cad, src, []rules.Rule{holeRule(), wallRule()})

	// Two rules flag the same hole with different targets: only the
	// larger one should drive the single fix.
	violations := []rules.Violation{
		{RuleID: "FDM-001", Category: rules.CategoryWall, FeatureID: "wall_1_2",
			CurrentValue: 0.8, RequiredValue: 1.2, Fixable: true},
		{RuleID: "FDM-003", Category: rules.CategoryHole, FeatureID: "hole_3",
			CurrentValue: 1.5, RequiredValue: 1.8, Fixable: true},
		{RuleID: "FDM-003", Category: rules.CategoryHole, FeatureID: "hole_3",
			CurrentValue: 1.5, RequiredValue: 2.0, Fixable: true},
		{RuleID: "FDM-002", Category: rules.CategoryOverhang, FeatureID: "face_9",
			CurrentValue: 60, RequiredValue: 45, Fixable: false},
	}

	results, err := r.FixAll(context.Background(), violations)
	if err != nil {
		t.Fatalf("FixAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (hole deduped, overhang skipped)", len(results))
	}
	if results[0].FeatureID != "hole_3" {
		t.Errorf("first fix was %s, want the hole (holes go before walls)", results[0].FeatureID)
	}
	if len(cad.resizeCalls) != 1 || cad.resizeCalls[0][1] != 2.0 {
		t.Errorf("resize calls = %v, want one call targeting the larger requirement 2.0", cad.resizeCalls)
	}
	if results[1].FeatureID != "wall_1_2" {
		t.Errorf("second fix was %s, want the wall", results[1].FeatureID)
	}
}

func TestFixAll_CornersRequeryBetweenFixes(t *testing.T) {
	sharp := func(ids ...int) *geometry.Snapshot {
		snap := &geometry.Snapshot{PartName: "bracket"}
		for _, id := range ids {
			snap.Corners = append(snap.Corners, geometry.Corner{
				FeatureID: geometry.EdgeID(id), EdgeIndex: id, Concave: true,
				RadiusMM: 0, AdjacentMinWallMM: 10,
			})
		}
		return snap
	}
	filleted := func(n int) *geometry.Snapshot {
		snap := &geometry.Snapshot{PartName: "bracket"}
		for i := 0; i < n; i++ {
			snap.Corners = append(snap.Corners, geometry.Corner{
				FeatureID: geometry.EdgeID(100 + i), EdgeIndex: 100 + i, Concave: true,
				RadiusMM: 1.5, AdjacentMinWallMM: 10,
			})
		}
		return snap
	}

	cad := &fakeCAD{}
	src := &fakeSource{snaps: []*geometry.Snapshot{
		sharp(7, 8),       // round 1: pick edge 7 (pre-check inside fixCorner reuses this)
		filleted(1),       // validation after first fillet
		sharp(8),          // round 2 re-query: edge 8 is still sharp, renumbered world
		filleted(2),       // validation after second fillet
		filleted(2),       // round 3 re-query: nothing sharp left
	}}
	r := newRunner(t, cad, src, []rules.Rule{cornerRule()})

	violations := []rules.Violation{
		{RuleID: "CNC-001", Category: rules.CategoryCorner, FeatureID: "edge_7",
			CurrentValue: 0, RequiredValue: 1.5, Fixable: true},
		{RuleID: "CNC-001", Category: rules.CategoryCorner, FeatureID: "edge_8",
			CurrentValue: 0, RequiredValue: 1.5, Fixable: true},
	}
	results, err := r.FixAll(context.Background(), violations)
	if err != nil {
		t.Fatalf("FixAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	for i, res := range results {
		if !res.Success {
			t.Errorf("corner fix %d = %+v, want success", i, res)
		}
	}
	if len(cad.filletCalls) != 2 {
		t.Fatalf("fillet calls = %d, want 2", len(cad.filletCalls))
	}
	if cad.filletCalls[0].edge != 7 || cad.filletCalls[1].edge != 8 {
		t.Errorf("fillet order = %v, want edges 7 then 8", cad.filletCalls)
	}
}

func TestFixViolation_NotFixableRule(t *testing.T) {
	rule := rules.Rule{
		RuleID: "FDM-002", Name: "Max overhang angle", Process: rules.ProcessFDM,
		Category: rules.CategoryOverhang, Severity: rules.SeverityWarning,
		Threshold: 45, Comparator: rules.ComparatorMax,
	}
	cad := &fakeCAD{}
	src := &fakeSource{}
	r := newRunner(t, cad, src, []rules.Rule{rule})

	res, err := r.FixViolation(context.Background(), rules.Violation{
		RuleID: "FDM-002", Category: rules.CategoryOverhang, FeatureID: "face_9",
	})
	if err != nil {
		t.Fatalf("FixViolation: %v", err)
	}
	if res.Success {
		t.Fatal("non-fixable rule reported success")
	}
	if src.calls != 0 {
		t.Errorf("geometry was queried %d times for a non-fixable rule", src.calls)
	}
}
