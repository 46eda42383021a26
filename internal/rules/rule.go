// Package rules implements the DFM rule table and the evaluation engine
// that turns a geometry snapshot into an ordered list of violations.
//
// The rule table is declarative JSON, embedded in the binary and loaded
// once at startup into an immutable registry. A malformed table (duplicate
// IDs, unknown enums) is a startup-time fatal; per-feature data problems
// during evaluation are never fatal — the feature is skipped.
package rules

import (
	"fmt"
	"math"
)

// Severity classifies how serious a violation is.
type Severity string

const (
	SeverityCritical   Severity = "critical"
	SeverityWarning    Severity = "warning"
	SeveritySuggestion Severity = "suggestion"
)

// Rank orders severities for display: critical first.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityWarning:
		return 1
	case SeveritySuggestion:
		return 2
	}
	return 3
}

func (s Severity) valid() bool {
	return s.Rank() < 3
}

// Process is a manufacturing method whose rule subset differs.
type Process string

const (
	ProcessFDM Process = "fdm"
	ProcessSLA Process = "sla"
	ProcessCNC Process = "cnc"
	ProcessIM  Process = "injection_molding"

	// ProcessAny marks rules that apply under every process filter.
	ProcessAny Process = "any"
)

// FilterAll is the process filter that considers every rule.
const FilterAll = "all"

// Processes lists the concrete processes in recommendation preference
// order: when violation counts tie, the earlier process wins.
var Processes = []Process{ProcessFDM, ProcessSLA, ProcessCNC, ProcessIM}

// Label renders the process for human-readable messages.
func (p Process) Label() string {
	switch p {
	case ProcessFDM:
		return "FDM"
	case ProcessSLA:
		return "SLA"
	case ProcessCNC:
		return "CNC"
	case ProcessIM:
		return "injection molding"
	case ProcessAny:
		return "all processes"
	}
	return string(p)
}

func (p Process) valid() bool {
	switch p {
	case ProcessFDM, ProcessSLA, ProcessCNC, ProcessIM, ProcessAny:
		return true
	}
	return false
}

// Category names the geometry feature class a rule measures.
type Category string

const (
	CategoryWall         Category = "wall"
	CategoryHole         Category = "hole"
	CategoryCorner       Category = "corner"
	CategoryOverhang     Category = "overhang"
	CategoryDepthRatio   Category = "depth_ratio"
	CategoryStandardSize Category = "standard_size"
)

func (c Category) valid() bool {
	switch c {
	case CategoryWall, CategoryHole, CategoryCorner, CategoryOverhang,
		CategoryDepthRatio, CategoryStandardSize:
		return true
	}
	return false
}

// Comparator fixes the threshold semantics of a rule.
type Comparator string

const (
	// ComparatorMin violates when measured < threshold (strict:
	// measured == threshold passes).
	ComparatorMin Comparator = "min"
	// ComparatorMax violates when measured > threshold.
	ComparatorMax Comparator = "max"
	// ComparatorTolerance violates when |measured − nearest allowed
	// value| > threshold. Only meaningful for standard_size rules.
	ComparatorTolerance Comparator = "tolerance"
)

func (c Comparator) valid() bool {
	switch c {
	case ComparatorMin, ComparatorMax, ComparatorTolerance:
		return true
	}
	return false
}

// Rule is one declarative manufacturing rule.
type Rule struct {
	RuleID     string     `json:"rule_id"`
	Name       string     `json:"name"`
	Process    Process    `json:"process"`
	Category   Category   `json:"category"`
	Severity   Severity   `json:"severity"`
	Threshold  float64    `json:"threshold"`
	Comparator Comparator `json:"comparator"`
	Fixable    bool       `json:"fixable"`
}

// Violates applies the rule's comparator to a measured value. Tolerance
// rules cannot be decided from the measured value alone (they need the
// allowed-values table) and always return false here; the engine handles
// them separately.
func (r Rule) Violates(measured float64) bool {
	switch r.Comparator {
	case ComparatorMin:
		return measured < r.Threshold
	case ComparatorMax:
		return measured > r.Threshold
	}
	return false
}

// AppliesTo reports whether the rule participates under a process filter.
func (r Rule) AppliesTo(filter string) bool {
	if filter == FilterAll || r.Process == ProcessAny {
		return true
	}
	return string(r.Process) == filter
}

func (r Rule) validate() error {
	if r.RuleID == "" {
		return fmt.Errorf("rule with empty rule_id")
	}
	if !r.Process.valid() {
		return fmt.Errorf("rule %s: unknown process %q", r.RuleID, r.Process)
	}
	if !r.Category.valid() {
		return fmt.Errorf("rule %s: unknown category %q", r.RuleID, r.Category)
	}
	if !r.Severity.valid() {
		return fmt.Errorf("rule %s: unknown severity %q", r.RuleID, r.Severity)
	}
	if !r.Comparator.valid() {
		return fmt.Errorf("rule %s: unknown comparator %q", r.RuleID, r.Comparator)
	}
	if math.IsNaN(r.Threshold) || math.IsInf(r.Threshold, 0) || r.Threshold < 0 {
		return fmt.Errorf("rule %s: invalid threshold %v", r.RuleID, r.Threshold)
	}
	if r.Category == CategoryDepthRatio && r.Comparator != ComparatorMax {
		return fmt.Errorf("rule %s: depth_ratio rules must use the max comparator", r.RuleID)
	}
	if r.Category == CategoryStandardSize && r.Comparator != ComparatorTolerance {
		return fmt.Errorf("rule %s: standard_size rules must use the tolerance comparator", r.RuleID)
	}
	return nil
}

// Violation is one rule/feature pair found out of compliance. Created
// fresh on every analysis call, never persisted by the engine.
type Violation struct {
	RuleID        string    `json:"rule_id"`
	Severity      Severity  `json:"severity"`
	Process       Process   `json:"process"`
	Category      Category  `json:"category"`
	Message       string    `json:"message"`
	FeatureID     string    `json:"feature_id"`
	CurrentValue  float64   `json:"current_value"`
	RequiredValue float64   `json:"required_value"`
	Fixable       bool      `json:"fixable"`
	Location      []float64 `json:"location,omitempty"`
}

// Key identifies a violation across analysis runs: two violations from
// different runs are the same finding when rule and feature match.
func (v Violation) Key() string {
	return v.RuleID + "|" + v.FeatureID
}
