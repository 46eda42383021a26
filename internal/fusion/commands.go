package fusion

import (
	"context"
	"encoding/json"
	"fmt"
)

// The add-in works in centimeters internally; everything above this
// package works in millimeters.
const mmPerCM = 10.0

// circleMatchToleranceCM is how close a sketch circle's radius must be to
// the measured hole radius to count as the originating circle.
const circleMatchToleranceCM = 0.005

// ResizeSketchCircle finds the sketch circle whose radius matches the
// current hole and sets it to the target. Returns false when no matching
// circle exists (nothing was mutated).
func (c *Client) ResizeSketchCircle(ctx context.Context, currentDiameterMM, targetDiameterMM float64) (bool, error) {
	currentRadiusCM := currentDiameterMM / (2 * mmPerCM)
	targetRadiusCM := targetDiameterMM / (2 * mmPerCM)

	script := fmt.Sprintf(`found = False
for si in range(rootComp.sketches.count):
    sketch = rootComp.sketches.item(si)
    circles = sketch.sketchCurves.sketchCircles
    for ci in range(circles.count):
        c = circles.item(ci)
        if abs(c.radius - %.6f) < %.4f:
            c.radius = %.6f
            found = True
            break
    if found:
        break
result['found'] = found
`, currentRadiusCM, circleMatchToleranceCM, targetRadiusCM)

	resp, err := c.ExecuteScript(ctx, script)
	if err != nil {
		return false, err
	}
	return boolField(resp, "found"), nil
}

// PocketAdjustment reports which extrude parameter a ReducePocketDepth
// call changed.
type PocketAdjustment struct {
	Adjusted   bool
	ParamName  string
	OldDepthCM float64
	NewDepthCM float64
}

// ReducePocketDepth walks the body's cut-extrude features and shrinks the
// first one whose depth parameter accepts the change, freeing increaseMM
// of wall material. Adjusted is false when no cut extrude could be
// changed (nothing was mutated).
func (c *Client) ReducePocketDepth(ctx context.Context, increaseMM float64) (PocketAdjustment, error) {
	increaseCM := increaseMM / mmPerCM

	script := fmt.Sprintf(`increase = %.6f
fixed = False
extrudes = rootComp.features.extrudeFeatures
for ei in range(extrudes.count):
    ext = extrudes.item(ei)
    if ext.operation != 1:
        continue
    extent = ext.extentOne
    if not hasattr(extent, 'distance'):
        continue
    param = extent.distance
    old_val = param.value
    if old_val < 0:
        new_val = old_val + increase
    else:
        new_val = old_val - increase
    param.value = new_val
    if abs(param.value - new_val) > 0.001:
        param.value = old_val
        continue
    fixed = True
    result['param_name'] = param.name if hasattr(param, 'name') else 'unknown'
    result['old_depth_cm'] = round(old_val, 4)
    result['new_depth_cm'] = round(new_val, 4)
    break
result['fixed'] = fixed
`, increaseCM)

	resp, err := c.ExecuteScript(ctx, script)
	if err != nil {
		return PocketAdjustment{}, err
	}

	adj := PocketAdjustment{Adjusted: boolField(resp, "fixed")}
	if adj.Adjusted {
		adj.ParamName = stringField(resp, "param_name")
		adj.OldDepthCM = floatField(resp, "old_depth_cm")
		adj.NewDepthCM = floatField(resp, "new_depth_cm")
	}
	return adj, nil
}

// ThickenShell raises the wall-thickness parameter of the body's shell
// feature to targetMM. Returns false when the body has no shell feature
// (nothing was mutated).
func (c *Client) ThickenShell(ctx context.Context, targetMM float64) (bool, error) {
	targetCM := targetMM / mmPerCM

	script := fmt.Sprintf(`thickened = False
shells = rootComp.features.shellFeatures
for si in range(shells.count):
    shell = shells.item(si)
    thickness = shell.insideThickness
    if thickness is None:
        thickness = shell.outsideThickness
    if thickness is None:
        continue
    if thickness.value < %.6f:
        thickness.value = %.6f
        thickened = True
        break
result['thickened'] = thickened
`, targetCM, targetCM)

	resp, err := c.ExecuteScript(ctx, script)
	if err != nil {
		return false, err
	}
	return boolField(resp, "thickened"), nil
}

// FilletEdge applies a fillet of radiusMM to one edge, addressed by the
// add-in's current edge index. The add-in queues the fillet and applies
// it asynchronously; callers must wait a settle delay before validating.
func (c *Client) FilletEdge(ctx context.Context, edgeIndex int, radiusMM float64) error {
	_, err := c.post(ctx, epFilletEdges, map[string]any{
		"edge_indices": []int{edgeIndex},
		"radius":       radiusMM / mmPerCM,
	})
	return err
}

// --- response field helpers ---

func boolField(resp map[string]json.RawMessage, key string) bool {
	raw, ok := resp[key]
	if !ok {
		return false
	}
	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	return v
}

func stringField(resp map[string]json.RawMessage, key string) string {
	raw, ok := resp[key]
	if !ok {
		return ""
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return ""
	}
	return v
}

func floatField(resp map[string]json.RawMessage, key string) float64 {
	raw, ok := resp[key]
	if !ok {
		return 0
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v
}
