// Package catalog holds the static machine and material databases and the
// matchers that rank entries against a part's requirements.
package catalog

import (
	"embed"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

//go:embed data/machines.json data/materials.json
var dataFS embed.FS

// BuildVolume is a machine's working envelope in millimeters.
type BuildVolume struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// CanFit checks whether a part fits the envelope in any axis-aligned
// orientation: both dimension sets are sorted before comparing.
func (bv BuildVolume) CanFit(box geometry.BoundingBox) bool {
	part := []float64{box.X, box.Y, box.Z}
	vol := []float64{bv.X, bv.Y, bv.Z}
	sort.Float64s(part)
	sort.Float64s(vol)
	for i := range part {
		if part[i] > vol[i] {
			return false
		}
	}
	return true
}

// Machine is one catalog entry.
type Machine struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Manufacturer    string        `json:"manufacturer"`
	Process         rules.Process `json:"process"`
	BuildVolume     BuildVolume   `json:"build_volume"`
	ToleranceMM     float64       `json:"tolerance_mm"`
	Materials       []string      `json:"materials"`
	PriceUSD        float64       `json:"price_usd"`
	SpeedRating     int           `json:"speed_rating"`     // 1-10
	PrecisionRating int           `json:"precision_rating"` // 1-10
	Axes            int           `json:"axes,omitempty"`
	Limitations     []string      `json:"limitations,omitempty"`
	BestFor         []string      `json:"best_for,omitempty"`
}

// MachineDB is the loaded machine catalog.
type MachineDB struct {
	machines []Machine
}

// LoadMachines reads the embedded machine catalog.
func LoadMachines() (*MachineDB, error) {
	raw, err := dataFS.ReadFile("data/machines.json")
	if err != nil {
		return nil, fmt.Errorf("machine catalog: %w", err)
	}
	var wrapper struct {
		Machines []Machine `json:"machines"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("machine catalog: %w", err)
	}
	if len(wrapper.Machines) == 0 {
		return nil, fmt.Errorf("machine catalog: no entries")
	}
	return &MachineDB{machines: wrapper.Machines}, nil
}

// All returns every machine in catalog order.
func (db *MachineDB) All() []Machine { return db.machines }

// ForProcess returns the machines that run the given process.
func (db *MachineDB) ForProcess(p rules.Process) []Machine {
	var out []Machine
	for _, m := range db.machines {
		if m.Process == p {
			out = append(out, m)
		}
	}
	return out
}

// Priorities weight the machine score. Values are relative; they need not
// sum to one.
type Priorities struct {
	Speed     float64 `json:"speed"`
	Precision float64 `json:"precision"`
	Cost      float64 `json:"cost"`
}

// DefaultPriorities favors precision slightly, the usual trade for DFM work.
var DefaultPriorities = Priorities{Speed: 0.3, Precision: 0.4, Cost: 0.3}

// Normalizing anchor for the cost score: the priciest machine in the
// catalog's class.
const maxMachinePriceUSD = 150000

// MachineMatch is one ranked machine with the reasoning behind its rank.
type MachineMatch struct {
	Machine  Machine  `json:"machine"`
	Score    float64  `json:"score"`
	FitsPart bool     `json:"fits_part"`
	Reasons  []string `json:"reasons,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// MatchMachines ranks the machines for a process against a part. Machines
// that physically fit the part always rank above ones that do not,
// regardless of score.
func (db *MachineDB) MatchMachines(p rules.Process, box geometry.BoundingBox, pri Priorities) []MachineMatch {
	if pri == (Priorities{}) {
		pri = DefaultPriorities
	}
	candidates := db.ForProcess(p)
	out := make([]MachineMatch, 0, len(candidates))
	for _, m := range candidates {
		out = append(out, scoreMachine(m, box, pri))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FitsPart != out[j].FitsPart {
			return out[i].FitsPart
		}
		return out[i].Score > out[j].Score
	})
	return out
}

func scoreMachine(m Machine, box geometry.BoundingBox, pri Priorities) MachineMatch {
	match := MachineMatch{Machine: m, FitsPart: true}

	if box != (geometry.BoundingBox{}) {
		if m.BuildVolume.CanFit(box) {
			match.Reasons = append(match.Reasons, "Part fits within build volume")
		} else {
			match.FitsPart = false
			match.Warnings = append(match.Warnings, fmt.Sprintf(
				"Part (%.0fx%.0fx%.0fmm) exceeds build volume (%.0fx%.0fx%.0fmm)",
				box.X, box.Y, box.Z, m.BuildVolume.X, m.BuildVolume.Y, m.BuildVolume.Z))
		}
	}

	costScore := 10 * (1 - m.PriceUSD/maxMachinePriceUSD)
	if costScore < 0 {
		costScore = 0
	}
	match.Score = round1(float64(m.SpeedRating)*pri.Speed +
		float64(m.PrecisionRating)*pri.Precision +
		costScore*pri.Cost)

	for _, bf := range m.BestFor {
		match.Reasons = append(match.Reasons, "Best for: "+bf)
	}
	return match
}

func round1(f float64) float64 {
	return float64(int(f*10+0.5)) / 10
}
