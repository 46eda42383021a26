package geometry

import (
	"context"
	"fmt"
	"math"

	"github.com/cadlyhq/cadly/internal/fusion"
)

// Querier is the read side of the CAD host: idempotent, side-effect-free
// geometry queries. *fusion.Client satisfies it; tests use a fake.
type Querier interface {
	Bodies(ctx context.Context) ([]fusion.BodyInfo, error)
	Faces(ctx context.Context) ([]fusion.FaceInfo, error)
	Edges(ctx context.Context) ([]fusion.EdgeInfo, error)
	Holes(ctx context.Context) ([]fusion.HoleInfo, error)
}

// Builder constructs Snapshots from a Querier.
type Builder struct {
	cad Querier
}

// NewBuilder creates a Builder.
func NewBuilder(cad Querier) *Builder {
	return &Builder{cad: cad}
}

// Snapshot queries the CAD host and assembles a fresh Snapshot. Each call
// hits every geometry endpoint; nothing is cached between calls.
func (b *Builder) Snapshot(ctx context.Context) (*Snapshot, error) {
	bodies, err := b.cad.Bodies(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying bodies: %w", err)
	}

	rawFaces, err := b.cad.Faces(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying faces: %w", err)
	}

	rawEdges, err := b.cad.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying edges: %w", err)
	}

	rawHoles, err := b.cad.Holes(ctx)
	if err != nil {
		return nil, fmt.Errorf("querying holes: %w", err)
	}

	snap := &Snapshot{PartName: "Unknown"}
	if len(bodies) > 0 {
		body := bodies[0]
		snap.PartName = body.Name
		snap.VolumeCM3 = body.VolumeCM3
		snap.AreaCM2 = body.AreaCM2
		snap.FaceCount = body.FaceCount
		snap.BoundingBoxMM = BoundingBox{
			X: body.BoundingBox["x"],
			Y: body.BoundingBox["y"],
			Z: body.BoundingBox["z"],
		}
	}

	snap.Faces = buildFaces(rawFaces)
	snap.Walls = DetectWalls(rawFaces)
	snap.Holes = buildHoles(rawHoles)
	snap.Corners = buildCorners(rawEdges, snap.Walls)

	return snap, nil
}

func buildFaces(raw []fusion.FaceInfo) []Face {
	faces := make([]Face, 0, len(raw))
	for _, f := range raw {
		faces = append(faces, Face{
			FeatureID: FaceID(f.Index),
			Index:     f.Index,
			Planar:    f.FaceType == "plane",
			Normal:    f.Normal,
			Location:  f.Centroid,
		})
	}
	return faces
}

func buildHoles(raw []fusion.HoleInfo) []Hole {
	holes := make([]Hole, 0, len(raw))
	for _, h := range raw {
		holes = append(holes, Hole{
			FeatureID:  HoleID(h.FaceIndex),
			FaceIndex:  h.FaceIndex,
			DiameterMM: h.DiameterMM,
			DepthMM:    h.DepthMM,
			Location:   h.Centroid,
		})
	}
	return holes
}

// buildCorners classifies edges into corners. Line edges are sharp
// (radius 0); arc and circle edges carry their radius; anything else
// (splines, ellipses) is not a corner candidate and is dropped.
func buildCorners(raw []fusion.EdgeInfo, walls []Wall) []Corner {
	corners := make([]Corner, 0, len(raw))
	for _, e := range raw {
		var radiusMM float64
		switch e.EdgeType {
		case "line":
			radiusMM = 0
		case "arc", "circle":
			radiusMM = e.RadiusCM * 10
		default:
			continue
		}

		corners = append(corners, Corner{
			FeatureID:         EdgeID(e.Index),
			EdgeIndex:         e.Index,
			Concave:           e.IsConcave,
			RadiusMM:          radiusMM,
			AdjacentMinWallMM: adjacentMinWall(e, walls),
			Location:          e.Start,
		})
	}
	return corners
}

// adjacentMinWall finds the thinnest wall touching the edge. When the
// add-in reports no face adjacency, the thinnest wall anywhere is used as
// a conservative stand-in; with no wall data at all the result is 0
// (unknown).
func adjacentMinWall(e fusion.EdgeInfo, walls []Wall) float64 {
	if len(walls) == 0 {
		return 0
	}

	adjacent := map[int]bool{}
	for _, fi := range e.FaceIndices {
		adjacent[fi] = true
	}

	minAll := math.Inf(1)
	minAdjacent := math.Inf(1)
	for _, w := range walls {
		if w.ThicknessMM < minAll {
			minAll = w.ThicknessMM
		}
		if adjacent[w.FaceIndex1] || adjacent[w.FaceIndex2] {
			if w.ThicknessMM < minAdjacent {
				minAdjacent = w.ThicknessMM
			}
		}
	}

	if len(adjacent) > 0 && !math.IsInf(minAdjacent, 1) {
		return minAdjacent
	}
	return minAll
}

// parallelTolerance is how far two face normals' dot product may deviate
// from +1 and still count as parallel.
const parallelTolerance = 0.05

// DetectWalls pairs parallel planar faces into walls. In a shelled body
// the inner and outer faces of the same wall share the same geometric
// normal direction, so a wall is the closest parallel partner of each
// face, deduplicated by pair.
func DetectWalls(raw []fusion.FaceInfo) []Wall {
	type candidate struct {
		partner     int
		thicknessMM float64
		centroid    []float64
	}

	var planar []fusion.FaceInfo
	for _, f := range raw {
		if f.FaceType == "plane" && len(f.Normal) == 3 {
			planar = append(planar, f)
		}
	}

	closest := map[int]candidate{}
	var order []int // face indices in discovery order, for stable output

	for i := 0; i < len(planar); i++ {
		f1 := planar[i]
		for j := i + 1; j < len(planar); j++ {
			f2 := planar[j]

			dot := f1.Normal[0]*f2.Normal[0] + f1.Normal[1]*f2.Normal[1] + f1.Normal[2]*f2.Normal[2]
			if math.Abs(dot-1.0) > parallelTolerance {
				continue
			}

			c1, c2 := centroidOrOrigin(f1.Centroid), centroidOrOrigin(f2.Centroid)
			dx, dy, dz := c1[0]-c2[0], c1[1]-c2[1], c1[2]-c2[2]
			distCM := math.Abs(f2.Normal[0]*dx + f2.Normal[1]*dy + f2.Normal[2]*dz)
			thicknessMM := math.Round(distCM*10*100) / 100
			if thicknessMM < 0.01 {
				continue // coplanar, not a wall
			}

			mid := []float64{
				(c1[0] + c2[0]) / 2,
				(c1[1] + c2[1]) / 2,
				(c1[2] + c2[2]) / 2,
			}

			for _, pair := range [2][2]int{{f1.Index, f2.Index}, {f2.Index, f1.Index}} {
				face, partner := pair[0], pair[1]
				prev, seen := closest[face]
				if !seen {
					order = append(order, face)
				}
				if !seen || thicknessMM < prev.thicknessMM {
					closest[face] = candidate{partner: partner, thicknessMM: thicknessMM, centroid: mid}
				}
			}
		}
	}

	var walls []Wall
	seenPair := map[string]bool{}
	for _, faceIdx := range order {
		cand := closest[faceIdx]
		id := WallID(faceIdx, cand.partner)
		if seenPair[id] {
			continue
		}
		seenPair[id] = true

		f1, f2 := faceIdx, cand.partner
		if f2 < f1 {
			f1, f2 = f2, f1
		}
		walls = append(walls, Wall{
			FeatureID:   id,
			FaceIndex1:  f1,
			FaceIndex2:  f2,
			ThicknessMM: cand.thicknessMM,
			Location:    cand.centroid,
		})
	}
	return walls
}

func centroidOrOrigin(c []float64) []float64 {
	if len(c) == 3 {
		return c
	}
	return []float64{0, 0, 0}
}
