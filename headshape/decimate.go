package headshape

import (
	"math"
	"sort"
)

// Decimator reduces a dense point cloud to a sparser representative set at a
// target spatial resolution. Implementations must be deterministic: the same
// cloud and resolution always yield the same points in the same order.
type Decimator interface {
	Decimate(points Cloud, resolutionMM int) Cloud
}

// VoxelDecimator reduces a cloud by snapping points into a cubic voxel grid
// with edge length equal to the resolution and emitting one centroid per
// occupied voxel. Voxels are emitted in ascending grid-address order, so the
// output is a pure function of the input cloud and resolution.
type VoxelDecimator struct{}

type voxelAddr struct {
	x, y, z int
}

type voxelAccum struct {
	sumX, sumY, sumZ float64
	count            int
}

// Decimate implements Decimator.
func (VoxelDecimator) Decimate(points Cloud, resolutionMM int) Cloud {
	if len(points) == 0 || resolutionMM <= 0 {
		return Cloud{}
	}

	cell := float64(resolutionMM)

	// Anchor the grid at the cloud minimum so voxel addresses are
	// non-negative and independent of point order.
	origin := points[0]
	for _, p := range points[1:] {
		origin.X = math.Min(origin.X, p.X)
		origin.Y = math.Min(origin.Y, p.Y)
		origin.Z = math.Min(origin.Z, p.Z)
	}

	cells := make(map[voxelAddr]*voxelAccum)
	for _, p := range points {
		addr := voxelAddr{
			x: int((p.X - origin.X) / cell),
			y: int((p.Y - origin.Y) / cell),
			z: int((p.Z - origin.Z) / cell),
		}
		acc, ok := cells[addr]
		if !ok {
			acc = &voxelAccum{}
			cells[addr] = acc
		}
		acc.sumX += p.X
		acc.sumY += p.Y
		acc.sumZ += p.Z
		acc.count++
	}

	addrs := make([]voxelAddr, 0, len(cells))
	for a := range cells {
		addrs = append(addrs, a)
	}
	sort.Slice(addrs, func(i, j int) bool {
		ai, aj := addrs[i], addrs[j]
		if ai.z != aj.z {
			return ai.z < aj.z
		}
		if ai.y != aj.y {
			return ai.y < aj.y
		}
		return ai.x < aj.x
	})

	out := make(Cloud, 0, len(addrs))
	for _, a := range addrs {
		acc := cells[a]
		n := float64(acc.count)
		out = append(out, Point{
			X: acc.sumX / n,
			Y: acc.sumY / n,
			Z: acc.sumZ / n,
		})
	}
	return out
}
