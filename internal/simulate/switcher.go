package simulate

import (
	"context"
	"fmt"
	"strings"

	"github.com/cadlyhq/cadly/internal/costs"
	"github.com/cadlyhq/cadly/internal/dfm"
	"github.com/cadlyhq/cadly/internal/rules"
)

// Result is the full outcome of simulating a process switch. Nothing in the
// CAD document is touched; the simulation runs entirely on one snapshot.
type Result struct {
	FromProcess rules.Process `json:"from_process"`
	ToProcess   rules.Process `json:"to_process"`
	PartName    string        `json:"part_name"`

	Diff

	CostBefore costs.Estimate `json:"cost_before"`
	CostAfter  costs.Estimate `json:"cost_after"`
	CostDelta  float64        `json:"cost_delta"` // positive = target costs more

	RedesignSteps []Step  `json:"redesign_steps"`
	Verdict       Verdict `json:"verdict"`
	Summary       string  `json:"summary"`
}

// Switcher simulates moving a part between manufacturing processes.
type Switcher struct {
	src       dfm.Source
	analyzer  *dfm.Analyzer
	estimator *costs.Estimator
}

// NewSwitcher wires a process-switch simulator. The analyzer must share the
// same rule table the caller uses for plain analyses, or diffs will lie.
func NewSwitcher(src dfm.Source, analyzer *dfm.Analyzer, estimator *costs.Estimator) *Switcher {
	return &Switcher{src: src, analyzer: analyzer, estimator: estimator}
}

// Simulate captures geometry once and evaluates it under both process
// filters. Quantity drives the cost comparison; below 1 it defaults to 1.
func (s *Switcher) Simulate(ctx context.Context, from, to rules.Process, quantity int) (*Result, error) {
	if from == to {
		return nil, fmt.Errorf("simulate switch: source and target process are both %q", from)
	}

	snap, err := s.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("simulate switch: %w", err)
	}

	before := s.analyzer.AnalyzeSnapshot(snap, string(from))
	after := s.analyzer.AnalyzeSnapshot(snap, string(to))
	diff := Compare(before.Violations, after.Violations)

	part := costs.PartFromSnapshot(snap)
	costBefore, err := s.estimator.Estimate(from, part, quantity)
	if err != nil {
		return nil, fmt.Errorf("simulate switch: %w", err)
	}
	costAfter, err := s.estimator.Estimate(to, part, quantity)
	if err != nil {
		return nil, fmt.Errorf("simulate switch: %w", err)
	}
	delta := costAfter.TotalCost - costBefore.TotalCost

	res := &Result{
		FromProcess:   from,
		ToProcess:     to,
		PartName:      snap.PartName,
		Diff:          diff,
		CostBefore:    costBefore,
		CostAfter:     costAfter,
		CostDelta:     delta,
		RedesignSteps: PlanRedesign(after.Violations),
		Verdict:       BuildVerdict(diff, delta),
	}
	res.Summary = buildSummary(res)
	return res, nil
}

func buildSummary(r *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Switching from %s to %s: ", r.FromProcess.Label(), r.ToProcess.Label())
	if n := len(r.Removed); n > 0 {
		fmt.Fprintf(&b, "%d violation(s) resolved. ", n)
	}
	if n := len(r.Added); n > 0 {
		fmt.Fprintf(&b, "%d new violation(s) introduced. ", n)
	}
	if len(r.Removed) == 0 && len(r.Added) == 0 {
		b.WriteString("No change in violations. ")
	}
	switch {
	case r.CostDelta < 0:
		fmt.Fprintf(&b, "Saves $%.2f.", -r.CostDelta)
	case r.CostDelta > 0:
		fmt.Fprintf(&b, "Costs $%.2f more.", r.CostDelta)
	default:
		b.WriteString("Same cost.")
	}
	return b.String()
}
