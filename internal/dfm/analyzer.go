// Package dfm assembles manufacturability reports: it captures a fresh
// geometry snapshot from the CAD host and runs the rule engine over it.
package dfm

import (
	"context"
	"fmt"

	"github.com/cadlyhq/cadly/internal/geometry"
	"github.com/cadlyhq/cadly/internal/rules"
)

// Source produces fresh geometry snapshots. *geometry.Builder satisfies
// it; tests supply canned snapshots.
type Source interface {
	Snapshot(ctx context.Context) (*geometry.Snapshot, error)
}

// Report is the outcome of one analysis call. It is derived data —
// never persisted by the engine, superseded by the next analysis.
type Report struct {
	PartName           string            `json:"part_name"`
	Process            string            `json:"process"`
	Violations         []rules.Violation `json:"violations"`
	ViolationCount     int               `json:"violation_count"`
	CriticalCount      int               `json:"critical_count"`
	WarningCount       int               `json:"warning_count"`
	SuggestionCount    int               `json:"suggestion_count"`
	IsManufacturable   bool              `json:"is_manufacturable"`
	RecommendedProcess rules.Process     `json:"recommended_process"`

	// Body-level properties carried through for cost estimation and
	// machine matching.
	VolumeCM3     float64              `json:"body_volume_cm3"`
	AreaCM2       float64              `json:"body_area_cm2"`
	FaceCount     int                  `json:"face_count"`
	BoundingBoxMM geometry.BoundingBox `json:"bounding_box_mm"`
}

// Analyzer runs full DFM analyses.
type Analyzer struct {
	src    Source
	engine *rules.Engine
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(src Source, engine *rules.Engine) *Analyzer {
	return &Analyzer{src: src, engine: engine}
}

// Analyze captures a fresh snapshot and evaluates it under the process
// filter. An unreachable CAD host propagates as an error — it is fatal
// for the request, not a violation.
func (a *Analyzer) Analyze(ctx context.Context, filter string) (*Report, error) {
	snap, err := a.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("capturing geometry: %w", err)
	}
	return a.AnalyzeSnapshot(snap, filter), nil
}

// AnalyzeSnapshot evaluates pre-fetched geometry. The process-switch
// simulator uses this to re-analyze the same snapshot under different
// process filters without re-querying the CAD host.
func (a *Analyzer) AnalyzeSnapshot(snap *geometry.Snapshot, filter string) *Report {
	violations := a.engine.Evaluate(snap, filter)

	r := &Report{
		PartName:           snap.PartName,
		Process:            filter,
		Violations:         violations,
		ViolationCount:     len(violations),
		IsManufacturable:   true,
		RecommendedProcess: a.engine.RecommendProcess(snap),
		VolumeCM3:          snap.VolumeCM3,
		AreaCM2:            snap.AreaCM2,
		FaceCount:          snap.FaceCount,
		BoundingBoxMM:      snap.BoundingBoxMM,
	}

	for _, v := range violations {
		switch v.Severity {
		case rules.SeverityCritical:
			r.CriticalCount++
			r.IsManufacturable = false
		case rules.SeverityWarning:
			r.WarningCount++
		case rules.SeveritySuggestion:
			r.SuggestionCount++
		}
	}
	return r
}
