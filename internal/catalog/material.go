package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/cadlyhq/cadly/internal/rules"
)

// MaterialProperties are the raw datasheet numbers. Zero means unpublished.
type MaterialProperties struct {
	TensileStrengthMPa  float64 `json:"tensile_strength_mpa,omitempty"`
	ElongationPct       float64 `json:"elongation_pct,omitempty"`
	DensityGCM3         float64 `json:"density_g_cm3,omitempty"`
	HeatDeflectionC     float64 `json:"heat_deflection_c,omitempty"`
	CostPerKgUSD        float64 `json:"cost_per_kg_usd,omitempty"`
	MachinabilityRating int     `json:"machinability_rating,omitempty"` // 1-10
}

// Scores normalizes the datasheet numbers onto a 0-10 scale per axis so
// materials can be compared on one chart.
func (p MaterialProperties) Scores() map[string]float64 {
	machinability := float64(p.MachinabilityRating)
	if machinability == 0 {
		machinability = 5 // unpublished: assume average
	}
	return map[string]float64{
		"strength":        clamp10(p.TensileStrengthMPa / 100),
		"heat_resistance": clamp10(p.HeatDeflectionC / 30),
		"flexibility":     clamp10(p.ElongationPct / 10),
		"cost":            clamp10(10 - p.CostPerKgUSD/10),
		"machinability":   machinability,
	}
}

func clamp10(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 10 {
		return 10
	}
	return f
}

// Material is one catalog entry.
type Material struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Category      string             `json:"category"` // thermoplastic, resin, metal, engineering_plastic
	Processes     []rules.Process    `json:"processes"`
	Properties    MaterialProperties `json:"properties"`
	Advantages    []string           `json:"advantages,omitempty"`
	Disadvantages []string           `json:"disadvantages,omitempty"`
	TypicalUses   []string           `json:"typical_uses,omitempty"`
}

// SupportsProcess reports whether the material runs on the given process.
func (m Material) SupportsProcess(p rules.Process) bool {
	for _, mp := range m.Processes {
		if mp == p {
			return true
		}
	}
	return false
}

// MaterialDB is the loaded material catalog.
type MaterialDB struct {
	materials []Material
}

// LoadMaterials reads the embedded material catalog.
func LoadMaterials() (*MaterialDB, error) {
	raw, err := dataFS.ReadFile("data/materials.json")
	if err != nil {
		return nil, fmt.Errorf("material catalog: %w", err)
	}
	var wrapper struct {
		Materials []Material `json:"materials"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, fmt.Errorf("material catalog: %w", err)
	}
	if len(wrapper.Materials) == 0 {
		return nil, fmt.Errorf("material catalog: no entries")
	}
	return &MaterialDB{materials: wrapper.Materials}, nil
}

// All returns every material in catalog order.
func (db *MaterialDB) All() []Material { return db.materials }

// ForProcess returns the materials compatible with the given process.
func (db *MaterialDB) ForProcess(p rules.Process) []Material {
	var out []Material
	for _, m := range db.materials {
		if m.SupportsProcess(p) {
			out = append(out, m)
		}
	}
	return out
}

// Requirements weight the per-axis material scores. Keys match the axes of
// MaterialProperties.Scores.
type Requirements map[string]float64

// DefaultRequirements balances strength and cost, the common ask.
var DefaultRequirements = Requirements{
	"strength":        0.25,
	"heat_resistance": 0.2,
	"flexibility":     0.1,
	"cost":            0.25,
	"machinability":   0.2,
}

// MaterialMatch is one ranked material.
type MaterialMatch struct {
	Material   Material           `json:"material"`
	Score      float64            `json:"score"`
	AxisScores map[string]float64 `json:"axis_scores"`
	Highlights []string           `json:"highlights,omitempty"`
}

// MatchMaterials ranks the materials available for a process against the
// requirement weights, best first.
func (db *MaterialDB) MatchMaterials(p rules.Process, req Requirements) []MaterialMatch {
	if len(req) == 0 {
		req = DefaultRequirements
	}
	candidates := db.ForProcess(p)
	out := make([]MaterialMatch, 0, len(candidates))
	for _, m := range candidates {
		out = append(out, scoreMaterial(m, req))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

func scoreMaterial(m Material, req Requirements) MaterialMatch {
	scores := m.Properties.Scores()
	total := 0.0
	for axis, weight := range req {
		total += scores[axis] * weight
	}

	// Call out the material's two strongest axes.
	type axisScore struct {
		axis  string
		score float64
	}
	ranked := make([]axisScore, 0, len(scores))
	for axis, s := range scores {
		ranked = append(ranked, axisScore{axis, s})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].axis < ranked[j].axis
	})

	var highlights []string
	for _, as := range ranked[:2] {
		label := axisLabel(as.axis)
		switch {
		case as.score >= 7:
			highlights = append(highlights, "Excellent "+label)
		case as.score >= 5:
			highlights = append(highlights, "Good "+label)
		}
	}

	return MaterialMatch{
		Material:   m,
		Score:      round1(total),
		AxisScores: scores,
		Highlights: highlights,
	}
}

func axisLabel(axis string) string {
	words := strings.Split(axis, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
