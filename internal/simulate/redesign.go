package simulate

import (
	"fmt"
	"sort"

	"github.com/cadlyhq/cadly/internal/rules"
)

// Effort buckets for redesign steps.
const (
	EffortLow    = "low"
	EffortMedium = "medium"
	EffortHigh   = "high"
)

// Step is one entry in a redesign roadmap, ordered by severity then by how
// structural the change is (walls before cosmetics).
type Step struct {
	Number      int    `json:"step"`
	Action      string `json:"action"`
	Detail      string `json:"detail"`
	Effort      string `json:"effort"`
	AutoFixable bool   `json:"auto_fixable"`
	Severity    string `json:"severity"`
	RuleID      string `json:"rule_id"`
	FeatureID   string `json:"feature_id"`
}

type stepTemplate struct {
	action string
	detail func(current, required float64) string
	effort string
	auto   bool
}

// Lower priority runs first. Wall changes ripple into everything else, so
// they lead; standardization tweaks trail.
var categoryPriority = map[rules.Category]int{
	rules.CategoryWall:         1,
	rules.CategoryCorner:       2,
	rules.CategoryHole:         3,
	rules.CategoryDepthRatio:   4,
	rules.CategoryOverhang:     5,
	rules.CategoryStandardSize: 11,
}

var stepTemplates = map[string]stepTemplate{
	"FDM-001": {
		action: "Increase wall thickness",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Thicken wall from %.1fmm to at least %.1fmm. FDM cannot reliably print thinner walls due to nozzle diameter constraints.", c, r)
		},
		effort: EffortLow, auto: true,
	},
	"FDM-002": {
		action: "Reduce overhang angle or add supports",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Face at %.0f° overhang exceeds the %.0f° FDM limit. Options: redesign to reduce angle, split into a multi-part assembly, or accept support material (adds cost and cleanup).", c, r)
		},
		effort: EffortMedium,
	},
	"FDM-003": {
		action: "Enlarge hole diameter",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Resize hole from %.1fmm to at least %.1fmm. Small holes tend to close up during FDM printing.", c, r)
		},
		effort: EffortLow, auto: true,
	},
	"SLA-001": {
		action: "Increase wall thickness",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Thicken wall from %.1fmm to at least %.1fmm for SLA resin strength.", c, r)
		},
		effort: EffortLow, auto: true,
	},
	"SLA-002": {
		action: "Enlarge hole diameter",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Resize hole from %.1fmm to at least %.1fmm so resin can drain during printing.", c, r)
		},
		effort: EffortLow, auto: true,
	},
	"CNC-001": {
		action: "Add fillet to internal corner",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Add a fillet radius of at least %.1fmm. CNC tools cannot cut perfectly sharp internal corners due to tool geometry.", r)
		},
		effort: EffortLow, auto: true,
	},
	"CNC-002": {
		action: "Thicken machined wall",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Wall at %.1fmm is below the %.1fmm CNC minimum; thin machined walls chatter and deflect. Thicken or support the wall.", c, r)
		},
		effort: EffortMedium, auto: true,
	},
	"CNC-003": {
		action: "Reduce hole depth or increase diameter",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Hole depth-to-diameter ratio of %.1f:1 exceeds the %.1f:1 CNC limit. Use a larger drill or reduce the hole depth.", c, r)
		},
		effort: EffortMedium,
	},
	"GEN-001": {
		action: "Use standard drill size",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Resize hole from %.2fmm to the standard %.2fmm drill size. Off-the-shelf tooling cuts cost.", c, r)
		},
		effort: EffortLow, auto: true,
	},
	"IM-001": {
		action: "Increase wall thickness",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Thicken wall from %.1fmm to at least %.1fmm so the mold cavity fills before the melt freezes.", c, r)
		},
		effort: EffortMedium, auto: true,
	},
	"IM-002": {
		action: "Core out thick section",
		detail: func(c, r float64) string {
			return fmt.Sprintf("Wall at %.1fmm exceeds the %.1fmm molding maximum. Thick sections sink and warp; core them out to a uniform wall.", c, r)
		},
		effort: EffortHigh,
	},
}

// PlanRedesign turns the violations a target process would see into an
// ordered roadmap. Critical items first, then structural before cosmetic.
func PlanRedesign(violations []rules.Violation) []Step {
	if len(violations) == 0 {
		return nil
	}

	type ranked struct {
		Step
		priority int
	}
	steps := make([]ranked, 0, len(violations))

	for _, v := range violations {
		priority := 50
		if p, ok := categoryPriority[v.Category]; ok {
			priority = p
		}
		s := Step{
			Severity:    string(v.Severity),
			RuleID:      v.RuleID,
			FeatureID:   v.FeatureID,
			AutoFixable: v.Fixable,
		}
		if tpl, ok := stepTemplates[v.RuleID]; ok {
			s.Action = tpl.action
			s.Detail = tpl.detail(v.CurrentValue, v.RequiredValue)
			s.Effort = tpl.effort
			s.AutoFixable = tpl.auto
		} else {
			s.Action = fmt.Sprintf("Address %s violation", v.RuleID)
			s.Detail = v.Message
			s.Effort = EffortMedium
		}
		steps = append(steps, ranked{Step: s, priority: priority})
	}

	sort.SliceStable(steps, func(i, j int) bool {
		si, sj := rules.Severity(steps[i].Severity).Rank(), rules.Severity(steps[j].Severity).Rank()
		if si != sj {
			return si < sj
		}
		return steps[i].priority < steps[j].priority
	})

	out := make([]Step, len(steps))
	for i, s := range steps {
		s.Number = i + 1
		out[i] = s.Step
	}
	return out
}
