package rules

import (
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
)

//go:embed data/rules.json data/standard_holes.json
var dataFS embed.FS

// Registry is the immutable, loaded rule table plus the standard
// drill-size table. Create once at startup, share by reference, never
// mutate after load.
type Registry struct {
	rules         []Rule
	byID          map[string]Rule
	standardSizes []float64 // sorted ascending, mm
}

type ruleFile struct {
	Rules []Rule `json:"rules"`
}

type standardHolesFile struct {
	MetricMM []float64 `json:"metric_mm"`
}

// Load builds a Registry from the embedded rule and standard-size tables.
func Load() (*Registry, error) {
	rulesRaw, err := dataFS.ReadFile("data/rules.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded rules: %w", err)
	}
	sizesRaw, err := dataFS.ReadFile("data/standard_holes.json")
	if err != nil {
		return nil, fmt.Errorf("reading embedded standard holes: %w", err)
	}
	return build(rulesRaw, sizesRaw)
}

// LoadFile builds a Registry from external table files, for deployments
// that override the built-in rules.
func LoadFile(rulesPath, sizesPath string) (*Registry, error) {
	rulesRaw, err := os.ReadFile(rulesPath)
	if err != nil {
		return nil, fmt.Errorf("reading rules table: %w", err)
	}
	sizesRaw, err := os.ReadFile(sizesPath)
	if err != nil {
		return nil, fmt.Errorf("reading standard holes table: %w", err)
	}
	return build(rulesRaw, sizesRaw)
}

func build(rulesRaw, sizesRaw []byte) (*Registry, error) {
	var rf ruleFile
	if err := json.Unmarshal(rulesRaw, &rf); err != nil {
		return nil, fmt.Errorf("parsing rules table: %w", err)
	}
	var sf standardHolesFile
	if err := json.Unmarshal(sizesRaw, &sf); err != nil {
		return nil, fmt.Errorf("parsing standard holes table: %w", err)
	}
	return NewRegistry(rf.Rules, sf.MetricMM)
}

// NewRegistry validates a rule list and standard-size table and builds a
// Registry. Duplicate rule IDs and malformed rules are rejected — a bad
// table is a startup-time fatal condition, never a per-request one.
func NewRegistry(ruleList []Rule, sizesMM []float64) (*Registry, error) {
	if len(ruleList) == 0 {
		return nil, fmt.Errorf("rules table is empty")
	}

	byID := make(map[string]Rule, len(ruleList))
	for _, r := range ruleList {
		if err := r.validate(); err != nil {
			return nil, fmt.Errorf("rules table: %w", err)
		}
		if _, dup := byID[r.RuleID]; dup {
			return nil, fmt.Errorf("rules table: duplicate rule_id %q", r.RuleID)
		}
		byID[r.RuleID] = r
	}

	sizes := append([]float64(nil), sizesMM...)
	sort.Float64s(sizes)

	return &Registry{rules: append([]Rule(nil), ruleList...), byID: byID, standardSizes: sizes}, nil
}

// Rules returns a copy of the full rule list in table order.
func (reg *Registry) Rules() []Rule {
	return append([]Rule(nil), reg.rules...)
}

// Rule looks up one rule by ID.
func (reg *Registry) Rule(ruleID string) (Rule, bool) {
	r, ok := reg.byID[ruleID]
	return r, ok
}

// ForProcess returns the rules that participate under a process filter,
// in table order. The filter is either a concrete process name or
// FilterAll.
func (reg *Registry) ForProcess(filter string) []Rule {
	var out []Rule
	for _, r := range reg.rules {
		if r.AppliesTo(filter) {
			out = append(out, r)
		}
	}
	return out
}

// StandardSizes returns the allowed drill sizes in mm, ascending.
func (reg *Registry) StandardSizes() []float64 {
	return append([]float64(nil), reg.standardSizes...)
}

// NearestStandardSize finds the allowed size closest to diameterMM.
// With an empty table the input is returned unchanged (no deviation,
// so standard-size rules can never fire).
func (reg *Registry) NearestStandardSize(diameterMM float64) float64 {
	if len(reg.standardSizes) == 0 {
		return diameterMM
	}
	best := reg.standardSizes[0]
	bestDist := math.Abs(diameterMM - best)
	for _, s := range reg.standardSizes[1:] {
		if d := math.Abs(diameterMM - s); d < bestDist {
			best, bestDist = s, d
		}
	}
	return best
}
