package headshape

import (
	"gonum.org/v1/gonum/stat"
)

// CloudSummary describes a cloud's extent and spread, printed by the CLI
// parse mode and reported over HTTP.
type CloudSummary struct {
	Count    int   `json:"count"`
	Centroid Point `json:"centroid"`
	Min      Point `json:"min"`
	Max      Point `json:"max"`
	// Spread is the per-axis standard deviation in millimeters.
	Spread Point `json:"spread"`
}

// Summarize computes extent and spread statistics for a cloud.
func Summarize(cloud Cloud) CloudSummary {
	if len(cloud) == 0 {
		return CloudSummary{}
	}

	xs := make([]float64, len(cloud))
	ys := make([]float64, len(cloud))
	zs := make([]float64, len(cloud))
	min := cloud[0]
	max := cloud[0]
	for i, p := range cloud {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}

	return CloudSummary{
		Count: len(cloud),
		Centroid: Point{
			X: stat.Mean(xs, nil),
			Y: stat.Mean(ys, nil),
			Z: stat.Mean(zs, nil),
		},
		Min: min,
		Max: max,
		Spread: Point{
			X: stat.StdDev(xs, nil),
			Y: stat.StdDev(ys, nil),
			Z: stat.StdDev(zs, nil),
		},
	}
}
