package fusion

import (
	"context"
	"encoding/json"
	"fmt"
)

// Wire types for the add-in's geometry query endpoints. Linear values
// arrive in centimeters except where the field name says otherwise
// (the hole analyzer endpoint reports millimeters directly).

// BodyInfo describes one solid body.
type BodyInfo struct {
	Name        string             `json:"name"`
	VolumeCM3   float64            `json:"volume_cm3"`
	AreaCM2     float64            `json:"area_cm2"`
	FaceCount   int                `json:"face_count"`
	EdgeCount   int                `json:"edge_count"`
	BoundingBox map[string]float64 `json:"bounding_box"` // x/y/z extents in mm
}

// FaceInfo describes one face.
type FaceInfo struct {
	Index    int       `json:"index"`
	FaceType string    `json:"type"` // "plane", "cylinder", ...
	AreaCM2  float64   `json:"area_cm2"`
	Normal   []float64 `json:"normal,omitempty"` // unit vector, planar faces only
	RadiusCM float64   `json:"radius_cm,omitempty"`
	Centroid []float64 `json:"centroid,omitempty"`
}

// EdgeInfo describes one edge. FaceIndices lists the faces the edge
// bounds when the add-in reports adjacency (newer add-in builds only).
type EdgeInfo struct {
	Index       int       `json:"index"`
	EdgeType    string    `json:"type"` // "line", "arc", "circle"
	LengthCM    float64   `json:"length_cm"`
	RadiusCM    float64   `json:"radius_cm,omitempty"`
	IsConcave   bool      `json:"is_concave"`
	Start       []float64 `json:"start,omitempty"`
	FaceIndices []int     `json:"faces,omitempty"`
}

// HoleInfo describes one detected cylindrical hole. Already in mm.
type HoleInfo struct {
	FaceIndex  int       `json:"face_index"`
	DiameterMM float64   `json:"diameter_mm"`
	DepthMM    float64   `json:"depth_mm"`
	Centroid   []float64 `json:"centroid,omitempty"`
}

// Bodies returns all solid bodies in the active design.
func (c *Client) Bodies(ctx context.Context) ([]BodyInfo, error) {
	resp, err := c.get(ctx, epBodyProperties)
	if err != nil {
		return nil, err
	}
	var bodies []BodyInfo
	if err := decodeList(resp, "bodies", &bodies); err != nil {
		return nil, fmt.Errorf("parsing body properties: %w", err)
	}
	return bodies, nil
}

// Faces returns all faces of the active design.
func (c *Client) Faces(ctx context.Context) ([]FaceInfo, error) {
	resp, err := c.get(ctx, epFacesInfo)
	if err != nil {
		return nil, err
	}
	var faces []FaceInfo
	if err := decodeList(resp, "faces", &faces); err != nil {
		return nil, fmt.Errorf("parsing faces: %w", err)
	}
	return faces, nil
}

// Edges returns all edges of the active design.
func (c *Client) Edges(ctx context.Context) ([]EdgeInfo, error) {
	resp, err := c.get(ctx, epEdgesInfo)
	if err != nil {
		return nil, err
	}
	var edges []EdgeInfo
	if err := decodeList(resp, "edges", &edges); err != nil {
		return nil, fmt.Errorf("parsing edges: %w", err)
	}
	return edges, nil
}

// Holes returns all detected cylindrical holes.
func (c *Client) Holes(ctx context.Context) ([]HoleInfo, error) {
	resp, err := c.get(ctx, epAnalyzeHoles)
	if err != nil {
		return nil, err
	}
	var holes []HoleInfo
	if err := decodeList(resp, "holes", &holes); err != nil {
		return nil, fmt.Errorf("parsing holes: %w", err)
	}
	return holes, nil
}

// decodeList unmarshals a named array out of an add-in response. A missing
// key decodes to an empty list — the add-in omits empty collections.
func decodeList(resp map[string]json.RawMessage, key string, out any) error {
	raw, ok := resp[key]
	if !ok {
		return nil
	}
	return json.Unmarshal(raw, out)
}
