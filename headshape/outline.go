package headshape

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Plane selects the 2-D projection plane for outlines and renders.
type Plane int

const (
	// PlaneXY projects onto X/Y (top-down view).
	PlaneXY Plane = iota
	// PlaneXZ projects onto X/Z (side view).
	PlaneXZ
)

// Project maps a 3-D point onto the plane.
func (pl Plane) Project(p Point) orb.Point {
	if pl == PlaneXZ {
		return orb.Point{p.X, p.Z}
	}
	return orb.Point{p.X, p.Y}
}

// OutlineFeatureCollection builds a GeoJSON view of the visible and reference
// sets projected onto the given plane: one MultiPoint feature per set plus a
// bounding-box polygon of the visible set, for consumption by 2-D inspection
// tools.
func OutlineFeatureCollection(visible, reference Cloud, plane Plane) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	visiblePts := projectCloud(visible, plane)
	refPts := projectCloud(reference, plane)

	vf := geojson.NewFeature(visiblePts)
	vf.Properties["set"] = "visible"
	vf.Properties["count"] = len(visiblePts)
	fc.Append(vf)

	rf := geojson.NewFeature(refPts)
	rf.Properties["set"] = "reference"
	rf.Properties["count"] = len(refPts)
	fc.Append(rf)

	if len(visiblePts) > 0 {
		bound := visiblePts.Bound()
		bf := geojson.NewFeature(bound.ToPolygon())
		bf.Properties["set"] = "bounds"
		fc.Append(bf)
	}

	return fc
}

func projectCloud(cloud Cloud, plane Plane) orb.MultiPoint {
	mp := make(orb.MultiPoint, 0, len(cloud))
	for _, p := range cloud {
		mp = append(mp, plane.Project(p))
	}
	return mp
}
