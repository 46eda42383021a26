package simulate

import "github.com/cadlyhq/cadly/internal/rules"

// ProcessInfo is the static profile of a manufacturing process, used for
// side-by-side comparisons.
type ProcessInfo struct {
	Process            rules.Process `json:"process"`
	Name               string        `json:"name"`
	Strengths          []string      `json:"strengths"`
	Weaknesses         []string      `json:"weaknesses"`
	BestFor            string        `json:"best_for"`
	TypicalToleranceMM float64       `json:"typical_tolerance_mm"`
	SurfaceFinish      string        `json:"surface_finish"`
}

var processInfos = map[rules.Process]ProcessInfo{
	rules.ProcessFDM: {
		Process: rules.ProcessFDM,
		Name:    "FDM (Fused Deposition Modeling)",
		Strengths: []string{
			"Low cost for prototyping",
			"Wide material selection",
			"Large build volumes available",
			"Easy to iterate quickly",
		},
		Weaknesses: []string{
			"Visible layer lines",
			"Anisotropic strength (weak between layers)",
			"Requires supports for overhangs beyond 45°",
			"Lower dimensional accuracy (±0.2mm)",
		},
		BestFor:            "Prototyping, functional testing, low-volume production",
		TypicalToleranceMM: 0.2,
		SurfaceFinish:      "Rough (layered)",
	},
	rules.ProcessSLA: {
		Process: rules.ProcessSLA,
		Name:    "SLA (Stereolithography)",
		Strengths: []string{
			"Excellent surface finish",
			"High detail resolution",
			"Thin walls down to 1mm",
			"Isotropic material properties",
		},
		Weaknesses: []string{
			"Limited material options",
			"UV-sensitive parts (can yellow or turn brittle)",
			"Requires post-curing",
			"Smaller build volumes",
		},
		BestFor:            "Detailed prototypes, dental/jewelry, presentation models",
		TypicalToleranceMM: 0.05,
		SurfaceFinish:      "Smooth",
	},
	rules.ProcessCNC: {
		Process: rules.ProcessCNC,
		Name:    "CNC Machining",
		Strengths: []string{
			"Excellent dimensional accuracy",
			"Real engineering materials (metals, plastics)",
			"Superior surface finish",
			"No layer lines, isotropic",
		},
		Weaknesses: []string{
			"Higher cost per part",
			"Internal corners need a fillet radius",
			"Limited by tool access (undercuts are difficult)",
			"Material waste from subtractive stock",
		},
		BestFor:            "Production parts, metal parts, tight-tolerance components",
		TypicalToleranceMM: 0.025,
		SurfaceFinish:      "Excellent",
	},
	rules.ProcessIM: {
		Process: rules.ProcessIM,
		Name:    "Injection Molding",
		Strengths: []string{
			"Lowest per-unit cost at volume",
			"Extremely fast cycle times",
			"Excellent repeatability",
			"Wide material selection",
		},
		Weaknesses: []string{
			"Very high upfront tooling cost ($5k-$50k+)",
			"Requires draft angles on all faces",
			"Wall thickness must stay uniform",
			"Long lead time for mold fabrication",
		},
		BestFor:            "High-volume production (1000+ units)",
		TypicalToleranceMM: 0.05,
		SurfaceFinish:      "Excellent (mold-dependent)",
	},
}

// Info returns a process's static profile.
func Info(p rules.Process) (ProcessInfo, bool) {
	info, ok := processInfos[p]
	return info, ok
}

// AllInfos lists every process profile in preference order.
func AllInfos() []ProcessInfo {
	out := make([]ProcessInfo, 0, len(rules.Processes))
	for _, p := range rules.Processes {
		out = append(out, processInfos[p])
	}
	return out
}
