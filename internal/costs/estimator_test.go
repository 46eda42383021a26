package costs_test

import (
	"math"
	"testing"

	"github.com/cadlyhq/cadly/internal/costs"
	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

func approx(t *testing.T, name string, got, want float64) {
	t.Helper()
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("%s = %v, want %v", name, got, want)
	}
}

// 30 cm3 part in a 50x40x30mm box (60 cm3 stock), 10 faces.
func samplePart() costs.Part {
	return costs.Part{
		VolumeCM3:     30,
		FaceCount:     10,
		BoundingBoxMM: geometry.BoundingBox{X: 50, Y: 40, Z: 30},
	}
}

func TestEstimate_FDM(t *testing.T) {
	est := costs.NewEstimator()
	e, err := est.Estimate(rules.ProcessFDM, samplePart(), 1)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	approx(t, "MaterialCost", e.MaterialCost, 30*0.05)
	approx(t, "MachineTimeHrs", e.MachineTimeHrs, 2.0) // 30 cm3 at 15 cm3/hr
	approx(t, "TimeCost", e.TimeCost, 2.0*0.50)
	approx(t, "SetupCost", e.SetupCost, 0)
	approx(t, "TotalCost", e.TotalCost, 1.5+1.0)
}

func TestEstimate_CNC_UsesStockVolumeAndSetup(t *testing.T) {
	est := costs.NewEstimator()
	e, err := est.Estimate(rules.ProcessCNC, samplePart(), 1)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	// Stock 60 cm3, removal 30 cm3 at 50 cm3/hr = 0.6 hrs.
	approx(t, "MaterialCost", e.MaterialCost, 60*0.01)
	approx(t, "MachineTimeHrs", e.MachineTimeHrs, 0.6)
	approx(t, "SetupCost", e.SetupCost, 50)
	approx(t, "TotalCost", e.TotalCost, 0.6+48.0+50)
}

func TestEstimate_CNC_MinimumMachineTime(t *testing.T) {
	est := costs.NewEstimator()
	// Nearly solid part: removal volume rounds to almost nothing.
	part := costs.Part{VolumeCM3: 59.9, BoundingBoxMM: geometry.BoundingBox{X: 50, Y: 40, Z: 30}}
	e, err := est.Estimate(rules.ProcessCNC, part, 1)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	approx(t, "MachineTimeHrs", e.MachineTimeHrs, 0.25)
}

func TestEstimate_InjectionMolding_ToolingCap(t *testing.T) {
	est := costs.NewEstimator()

	e, err := est.Estimate(rules.ProcessIM, samplePart(), 1)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	approx(t, "SetupCost", e.SetupCost, 5000+10*500)

	complex := samplePart()
	complex.FaceCount = 1000
	e, err = est.Estimate(rules.ProcessIM, complex, 1)
	if err != nil {
		t.Fatalf("Estimate: %v", err)
	}
	approx(t, "SetupCost (capped)", e.SetupCost, 50000)
}

func TestEstimate_QuantityScalesEverythingButSetup(t *testing.T) {
	est := costs.NewEstimator()
	one, _ := est.Estimate(rules.ProcessCNC, samplePart(), 1)
	hundred, _ := est.Estimate(rules.ProcessCNC, samplePart(), 100)

	approx(t, "MaterialCost x100", hundred.MaterialCost, one.MaterialCost*100)
	approx(t, "MachineTimeHrs x100", hundred.MachineTimeHrs, one.MachineTimeHrs*100)
	approx(t, "SetupCost unchanged", hundred.SetupCost, one.SetupCost)
}

func TestUnitCost_AmortizesSetup(t *testing.T) {
	est := costs.NewEstimator()
	one, _ := est.Estimate(rules.ProcessIM, samplePart(), 1)
	many, _ := est.Estimate(rules.ProcessIM, samplePart(), 10000)

	if many.UnitCost() >= one.UnitCost() {
		t.Errorf("unit cost at 10000 (%v) should be far below unit cost at 1 (%v)",
			many.UnitCost(), one.UnitCost())
	}
}

func TestEstimateAll_CoversEveryProcess(t *testing.T) {
	est := costs.NewEstimator()
	all := est.EstimateAll(samplePart(), 1)
	if len(all) != len(rules.Processes) {
		t.Fatalf("got %d estimates, want %d", len(all), len(rules.Processes))
	}
	seen := map[rules.Process]bool{}
	for _, e := range all {
		seen[e.Process] = true
	}
	for _, p := range rules.Processes {
		if !seen[p] {
			t.Errorf("no estimate for %s", p)
		}
	}
}

func TestCheapest(t *testing.T) {
	est := costs.NewEstimator()
	all := est.EstimateAll(samplePart(), 1)
	best, ok := costs.Cheapest(all)
	if !ok {
		t.Fatal("Cheapest returned no estimate")
	}
	// At quantity 1 a 30 cm3 part prints for a few dollars; nothing beats FDM.
	if best.Process != rules.ProcessFDM {
		t.Errorf("cheapest at qty 1 = %s, want fdm", best.Process)
	}

	if _, ok := costs.Cheapest(nil); ok {
		t.Error("Cheapest(nil) reported an estimate")
	}
}

func TestCrossovers_IMOvertakesFDM(t *testing.T) {
	est := costs.NewEstimator()
	crossovers := est.Crossovers(samplePart())

	var found *costs.Crossover
	for i := range crossovers {
		c := crossovers[i]
		if c.From == rules.ProcessFDM && c.To == rules.ProcessIM {
			found = &crossovers[i]
			break
		}
	}
	if found == nil {
		t.Fatalf("no FDM -> injection molding crossover in %v", crossovers)
	}
	if found.Quantity <= 1 || found.Quantity >= 10000 {
		t.Errorf("crossover quantity = %d, want inside (1, 10000)", found.Quantity)
	}

	// At the reported quantity molding must actually be cheaper per unit.
	fdm, _ := est.Estimate(rules.ProcessFDM, samplePart(), found.Quantity)
	im, _ := est.Estimate(rules.ProcessIM, samplePart(), found.Quantity)
	if im.UnitCost() >= fdm.UnitCost() {
		t.Errorf("at qty %d molding unit cost %v is not below FDM %v",
			found.Quantity, im.UnitCost(), fdm.UnitCost())
	}

	for i := 1; i < len(crossovers); i++ {
		if crossovers[i].Quantity < crossovers[i-1].Quantity {
			t.Errorf("crossovers not sorted by quantity: %v", crossovers)
		}
	}
}

func TestCurves_SamplesStandardQuantities(t *testing.T) {
	est := costs.NewEstimator()
	curves := est.Curves(samplePart(), nil)
	if len(curves) != len(rules.Processes) {
		t.Fatalf("got %d curves, want %d", len(curves), len(rules.Processes))
	}
	for _, bd := range curves {
		if len(bd.Estimates) != len(costs.StandardQuantities) {
			t.Errorf("%s curve has %d points, want %d",
				bd.Process, len(bd.Estimates), len(costs.StandardQuantities))
		}
	}
}
