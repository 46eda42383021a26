// Package costs estimates per-process manufacturing cost from part geometry.
//
// The models are deliberately coarse: good enough to rank processes against
// each other and to show where tooling amortization flips the ranking, not
// good enough to quote a job.
package costs

import (
	"fmt"

	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

// Rate constants, USD.
const (
	fdmMaterialPerCM3 = 0.05 // PLA filament
	fdmMachinePerHr   = 0.50
	fdmPrintRateCM3Hr = 15.0 // ~20% infill

	slaMaterialPerCM3 = 0.15 // standard resin
	slaMachinePerHr   = 1.00
	slaPrintRateCM3Hr = 30.0

	cncMachinePerHr    = 80.0 // 3-axis mill
	cncSetupCost       = 50.0
	cncMaterialPerCM3  = 0.01 // aluminum 6061 stock
	cncRemovalRateCM3  = 50.0 // cm3/hr
	cncMinHoursPerPart = 0.25

	imBaseTooling      = 5000.0
	imPerFaceTooling   = 500.0 // face count as a complexity proxy
	imMaxTooling       = 50000.0
	imMaterialPerCM3   = 0.02 // ABS pellets
	imCycleBaseSeconds = 15.0
	imMachinePerHr     = 40.0
)

// Part is the geometry slice the cost models need.
type Part struct {
	VolumeCM3     float64
	FaceCount     int
	BoundingBoxMM geometry.BoundingBox
}

// PartFromSnapshot extracts the costing inputs from a full snapshot.
func PartFromSnapshot(s *geometry.Snapshot) Part {
	return Part{
		VolumeCM3:     s.VolumeCM3,
		FaceCount:     s.FaceCount,
		BoundingBoxMM: s.BoundingBoxMM,
	}
}

// stockVolumeCM3 is the bounding-box volume, the billet a CNC job starts from.
func (p Part) stockVolumeCM3() float64 {
	mm3 := p.BoundingBoxMM.X * p.BoundingBoxMM.Y * p.BoundingBoxMM.Z
	return mm3 / 1000.0
}

// Estimate is one process's cost at one quantity.
type Estimate struct {
	Process        rules.Process `json:"process"`
	Quantity       int           `json:"quantity"`
	MaterialCost   float64       `json:"material_cost"`
	MachineTimeHrs float64       `json:"machine_time_hrs"`
	TimeCost       float64       `json:"time_cost"`
	SetupCost      float64       `json:"setup_cost"`
	TotalCost      float64       `json:"total_cost"`
}

// UnitCost amortizes the total (including one-time setup) over the quantity.
func (e Estimate) UnitCost() float64 {
	q := e.Quantity
	if q < 1 {
		q = 1
	}
	return e.TotalCost / float64(q)
}

func (e Estimate) String() string {
	return fmt.Sprintf("%s: $%.2f total ($%.2f/unit at qty %d)",
		e.Process.Label(), e.TotalCost, e.UnitCost(), e.Quantity)
}

// Estimator holds no state; it exists so callers depend on a value they can
// swap in tests.
type Estimator struct{}

func NewEstimator() *Estimator { return &Estimator{} }

// Estimate costs a part for one process at one quantity.
func (est *Estimator) Estimate(process rules.Process, part Part, quantity int) (Estimate, error) {
	if quantity < 1 {
		quantity = 1
	}
	switch process {
	case rules.ProcessFDM:
		return est.fdm(part, quantity), nil
	case rules.ProcessSLA:
		return est.sla(part, quantity), nil
	case rules.ProcessCNC:
		return est.cnc(part, quantity), nil
	case rules.ProcessIM:
		return est.injectionMolding(part, quantity), nil
	default:
		return Estimate{}, fmt.Errorf("no cost model for process %q", process)
	}
}

// EstimateAll costs a part for every supported process at one quantity.
func (est *Estimator) EstimateAll(part Part, quantity int) []Estimate {
	out := make([]Estimate, 0, len(rules.Processes))
	for _, p := range rules.Processes {
		e, err := est.Estimate(p, part, quantity)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out
}

// Cheapest returns the lowest-total estimate. Ties keep the earlier process
// in the preference order.
func Cheapest(estimates []Estimate) (Estimate, bool) {
	if len(estimates) == 0 {
		return Estimate{}, false
	}
	best := estimates[0]
	for _, e := range estimates[1:] {
		if e.TotalCost < best.TotalCost {
			best = e
		}
	}
	return best, true
}

func (est *Estimator) fdm(part Part, quantity int) Estimate {
	material := part.VolumeCM3 * fdmMaterialPerCM3 * float64(quantity)
	hours := part.VolumeCM3 / fdmPrintRateCM3Hr * float64(quantity)
	timeCost := hours * fdmMachinePerHr
	return Estimate{
		Process: rules.ProcessFDM, Quantity: quantity,
		MaterialCost: material, MachineTimeHrs: hours, TimeCost: timeCost,
		TotalCost: material + timeCost,
	}
}

func (est *Estimator) sla(part Part, quantity int) Estimate {
	material := part.VolumeCM3 * slaMaterialPerCM3 * float64(quantity)
	hours := part.VolumeCM3 / slaPrintRateCM3Hr * float64(quantity)
	timeCost := hours * slaMachinePerHr
	return Estimate{
		Process: rules.ProcessSLA, Quantity: quantity,
		MaterialCost: material, MachineTimeHrs: hours, TimeCost: timeCost,
		TotalCost: material + timeCost,
	}
}

func (est *Estimator) cnc(part Part, quantity int) Estimate {
	stock := part.stockVolumeCM3()
	material := stock * cncMaterialPerCM3 * float64(quantity)
	removal := stock - part.VolumeCM3
	if removal < 0 {
		removal = 0
	}
	perPart := removal / cncRemovalRateCM3
	if perPart < cncMinHoursPerPart {
		perPart = cncMinHoursPerPart
	}
	hours := perPart * float64(quantity)
	timeCost := hours * cncMachinePerHr
	return Estimate{
		Process: rules.ProcessCNC, Quantity: quantity,
		MaterialCost: material, MachineTimeHrs: hours, TimeCost: timeCost,
		SetupCost: cncSetupCost, // one-time, regardless of quantity
		TotalCost: material + timeCost + cncSetupCost,
	}
}

func (est *Estimator) injectionMolding(part Part, quantity int) Estimate {
	tooling := imBaseTooling + float64(part.FaceCount)*imPerFaceTooling
	if tooling > imMaxTooling {
		tooling = imMaxTooling
	}
	material := part.VolumeCM3 * imMaterialPerCM3 * float64(quantity)
	cycleSeconds := imCycleBaseSeconds + part.VolumeCM3*0.5
	hours := cycleSeconds / 3600.0 * float64(quantity)
	timeCost := hours * imMachinePerHr
	return Estimate{
		Process: rules.ProcessIM, Quantity: quantity,
		MaterialCost: material, MachineTimeHrs: hours, TimeCost: timeCost,
		SetupCost: tooling, // mold cost, amortized via UnitCost
		TotalCost: material + timeCost + tooling,
	}
}
