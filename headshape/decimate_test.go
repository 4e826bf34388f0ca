package headshape

import (
	"math"
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// VoxelDecimator
// ---------------------------------------------------------------------------

func TestVoxelDecimator_Decimate(t *testing.T) {
	d := VoxelDecimator{}

	t.Run("empty cloud", func(t *testing.T) {
		got := d.Decimate(Cloud{}, 10)
		if len(got) != 0 {
			t.Errorf("Decimate(empty) = %v, want empty", got)
		}
	})

	t.Run("non-positive resolution", func(t *testing.T) {
		got := d.Decimate(testCloud(5), 0)
		if len(got) != 0 {
			t.Errorf("Decimate(res=0) = %v, want empty", got)
		}
	})

	t.Run("single point passes through", func(t *testing.T) {
		cloud := Cloud{{X: 1.5, Y: 2.5, Z: 3.5}}
		got := d.Decimate(cloud, 10)
		if len(got) != 1 || got[0] != cloud[0] {
			t.Errorf("Decimate(single) = %v, want %v", got, cloud)
		}
	})

	t.Run("points in one voxel merge to centroid", func(t *testing.T) {
		cloud := Cloud{
			{X: 0, Y: 0, Z: 0},
			{X: 2, Y: 2, Z: 2},
			{X: 4, Y: 4, Z: 4},
		}
		got := d.Decimate(cloud, 10)
		if len(got) != 1 {
			t.Fatalf("Decimate = %d points, want 1", len(got))
		}
		want := Point{X: 2, Y: 2, Z: 2}
		if got[0] != want {
			t.Errorf("centroid = %v, want %v", got[0], want)
		}
	})

	t.Run("distant points stay separate", func(t *testing.T) {
		cloud := Cloud{
			{X: 0, Y: 0, Z: 0},
			{X: 100, Y: 0, Z: 0},
			{X: 0, Y: 100, Z: 0},
		}
		got := d.Decimate(cloud, 10)
		if len(got) != 3 {
			t.Errorf("Decimate = %d points, want 3", len(got))
		}
	})

	t.Run("coarser resolution yields fewer or equal points", func(t *testing.T) {
		cloud := make(Cloud, 0, 125)
		for x := 0; x < 5; x++ {
			for y := 0; y < 5; y++ {
				for z := 0; z < 5; z++ {
					cloud = append(cloud, Point{
						X: float64(x) * 12,
						Y: float64(y) * 12,
						Z: float64(z) * 12,
					})
				}
			}
		}
		fine := d.Decimate(cloud, 5)
		coarse := d.Decimate(cloud, 30)
		if len(coarse) >= len(fine) {
			t.Errorf("coarse %d points >= fine %d points", len(coarse), len(fine))
		}
	})
}

// Same cloud and resolution must always yield the same points in the same
// order, regardless of input point order.
func TestVoxelDecimator_Deterministic(t *testing.T) {
	d := VoxelDecimator{}

	cloud := make(Cloud, 0, 200)
	for i := 0; i < 200; i++ {
		cloud = append(cloud, Point{
			X: math.Sin(float64(i)) * 90,
			Y: math.Cos(float64(i)) * 90,
			Z: float64(i%13) * 7,
		})
	}

	first := d.Decimate(cloud, 15)
	for i := 0; i < 5; i++ {
		again := d.Decimate(cloud, 15)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}

	// Reversed input hits the same voxels with the same accumulated sums.
	reversed := make(Cloud, len(cloud))
	for i, p := range cloud {
		reversed[len(cloud)-1-i] = p
	}
	fromReversed := d.Decimate(reversed, 15)
	if len(fromReversed) != len(first) {
		t.Fatalf("reversed input: %d points, want %d", len(fromReversed), len(first))
	}
	for i := range first {
		if math.Abs(first[i].X-fromReversed[i].X) > 1e-9 ||
			math.Abs(first[i].Y-fromReversed[i].Y) > 1e-9 ||
			math.Abs(first[i].Z-fromReversed[i].Z) > 1e-9 {
			t.Fatalf("point %d differs: %v vs %v", i, first[i], fromReversed[i])
		}
	}
}

func TestVoxelDecimator_InputUnmodified(t *testing.T) {
	d := VoxelDecimator{}
	cloud := testCloud(50)
	snapshot := cloud.Copy()

	d.Decimate(cloud, 10)

	if !reflect.DeepEqual(cloud, snapshot) {
		t.Error("Decimate modified its input cloud")
	}
}
