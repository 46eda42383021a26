// Package geometry defines the immutable snapshot of a part's measurable
// features and builds it from the CAD host's query endpoints.
//
// A Snapshot is captured fresh for every analysis or validation step and
// never mutated in place — after any fix attempt the old snapshot is
// superseded by a new one. Feature IDs are only stable between mutations:
// a fillet renumbers sibling edges, so callers re-resolve by content after
// anything that can change topology.
package geometry

import (
	"fmt"
	"math"
)

// Snapshot is a read-only capture of a part's measurable geometry at one
// instant.
type Snapshot struct {
	PartName string

	// Body-level properties, used by cost estimation and machine matching.
	VolumeCM3     float64
	AreaCM2       float64
	FaceCount     int
	BoundingBoxMM BoundingBox

	Walls   []Wall
	Holes   []Hole
	Corners []Corner
	Faces   []Face
}

// BoundingBox is the part's axis-aligned extents in millimeters.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Wall is a pair of parallel faces measured by their separation.
type Wall struct {
	FeatureID   string
	FaceIndex1  int
	FaceIndex2  int
	ThicknessMM float64
	Location    []float64
}

// Hole is a detected cylindrical hole. DepthMM may be 0 when the depth is
// indeterminate (blind hole inside a shell with no measurable cylindrical
// extent); it is never negative.
type Hole struct {
	FeatureID  string
	FaceIndex  int
	DiameterMM float64
	DepthMM    float64
	Location   []float64
}

// DepthRatio returns depth/diameter. ok is false when either measurement
// is missing — a zero depth is indistinguishable from a failed
// measurement, so it is treated as unmeasurable rather than as a true 0.
func (h Hole) DepthRatio() (ratio float64, ok bool) {
	if h.DepthMM <= 0 || h.DiameterMM <= 0 {
		return 0, false
	}
	return h.DepthMM / h.DiameterMM, true
}

// Corner is an edge classified by concavity. Only concave corners matter
// for manufacturability; a convex radius can only be too large for
// aesthetics, which is outside the rule table's concern.
type Corner struct {
	FeatureID string
	EdgeIndex int
	Concave   bool

	// RadiusMM is 0 for a sharp (line) edge.
	RadiusMM float64

	// AdjacentMinWallMM is the thinnest wall touching this edge, used to
	// cap fillet radii. 0 means unknown (no wall data available).
	AdjacentMinWallMM float64

	Location []float64
}

// Face carries the orientation data needed for overhang analysis.
type Face struct {
	FeatureID string
	Index     int
	Planar    bool
	Normal    []float64
	Location  []float64
}

// OverhangAngle returns the face's overhang angle in degrees for
// downward-facing planar faces. ok is false for faces that cannot
// overhang (non-planar, missing normal, or facing upward).
func (f Face) OverhangAngle() (deg float64, ok bool) {
	if !f.Planar || len(f.Normal) != 3 {
		return 0, false
	}
	nz := f.Normal[2]
	if nz >= 0 {
		return 0, false
	}
	angleFromDown := math.Acos(clamp(-nz, -1, 1)) * 180 / math.Pi
	overhang := 90 - angleFromDown
	if overhang < 0 {
		return 0, false
	}
	return overhang, true
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// WallID renders the canonical feature ID for a face pair.
func WallID(face1, face2 int) string {
	if face2 < face1 {
		face1, face2 = face2, face1
	}
	return fmt.Sprintf("wall_%d_%d", face1, face2)
}

// HoleID renders the canonical feature ID for a hole's cylindrical face.
func HoleID(faceIndex int) string { return fmt.Sprintf("hole_%d", faceIndex) }

// EdgeID renders the canonical feature ID for an edge.
func EdgeID(edgeIndex int) string { return fmt.Sprintf("edge_%d", edgeIndex) }

// FaceID renders the canonical feature ID for a face.
func FaceID(faceIndex int) string { return fmt.Sprintf("face_%d", faceIndex) }
