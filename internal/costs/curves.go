package costs

import (
	"fmt"
	"sort"

	"github.com/cadlyhq/cadly/internal/rules"
)

// StandardQuantities are the points a cost-vs-quantity curve is sampled at.
var StandardQuantities = []int{1, 10, 50, 100, 500, 1000, 5000, 10000}

const maxCrossoverQty = 10000

// Breakdown is one process's curve across quantities.
type Breakdown struct {
	Process   rules.Process `json:"process"`
	Estimates []Estimate    `json:"estimates"`
}

// Crossover marks the quantity where one process overtakes another on unit
// cost.
type Crossover struct {
	Quantity int           `json:"quantity"`
	From     rules.Process `json:"from"`
	To       rules.Process `json:"to"`
	Message  string        `json:"message"`
}

// Curves samples every process at the given quantities (StandardQuantities
// when nil).
func (est *Estimator) Curves(part Part, quantities []int) []Breakdown {
	if len(quantities) == 0 {
		quantities = StandardQuantities
	}
	out := make([]Breakdown, 0, len(rules.Processes))
	for _, p := range rules.Processes {
		bd := Breakdown{Process: p, Estimates: make([]Estimate, 0, len(quantities))}
		for _, q := range quantities {
			e, err := est.Estimate(p, part, q)
			if err != nil {
				continue
			}
			bd.Estimates = append(bd.Estimates, e)
		}
		out = append(out, bd)
	}
	return out
}

// Crossovers finds, for every process pair whose unit-cost ranking flips
// between quantity 1 and 10000, the quantity where it flips. Sorted by
// quantity ascending.
func (est *Estimator) Crossovers(part Part) []Crossover {
	var out []Crossover
	for i, a := range rules.Processes {
		for _, b := range rules.Processes[i+1:] {
			if c, ok := est.crossoverPair(part, a, b); ok {
				out = append(out, c)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Quantity < out[j].Quantity })
	return out
}

func (est *Estimator) crossoverPair(part Part, a, b rules.Process) (Crossover, bool) {
	aCheaperAtOne := est.unitCost(a, part, 1) < est.unitCost(b, part, 1)
	aCheaperAtMax := est.unitCost(a, part, maxCrossoverQty) < est.unitCost(b, part, maxCrossoverQty)
	if aCheaperAtOne == aCheaperAtMax {
		return Crossover{}, false
	}

	// Unit cost curves are monotone in quantity, so bisect for the flip.
	lo, hi := 1, maxCrossoverQty
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		aCheaper := est.unitCost(a, part, mid) < est.unitCost(b, part, mid)
		if aCheaper == aCheaperAtOne {
			lo = mid
		} else {
			hi = mid
		}
	}

	from, to := a, b
	if !aCheaperAtOne {
		from, to = b, a
	}
	return Crossover{
		Quantity: hi,
		From:     from,
		To:       to,
		Message: fmt.Sprintf("%s becomes cheaper than %s above %d units",
			to.Label(), from.Label(), hi),
	}, true
}

func (est *Estimator) unitCost(p rules.Process, part Part, quantity int) float64 {
	e, err := est.Estimate(p, part, quantity)
	if err != nil {
		return 0
	}
	return e.UnitCost()
}
