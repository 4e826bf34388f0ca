package headshape

import (
	"errors"
	"reflect"
	"testing"
)

// identityDecimator returns the cloud unchanged at every resolution, so
// visible-set indices map 1:1 to source indices until exclusions apply.
type identityDecimator struct{}

func (identityDecimator) Decimate(points Cloud, resolutionMM int) Cloud {
	return points.Copy()
}

func testBounds() ResolutionConfig {
	return ResolutionConfig{MinMM: 5, MaxMM: 50, DefaultMM: 35, ReferenceMM: 10}
}

func loadedSession(t *testing.T, n int) *Session {
	t.Helper()
	s := NewSession(testBounds(), identityDecimator{})
	if err := s.SetSourceCloud(testCloud(n)); err != nil {
		t.Fatalf("SetSourceCloud: %v", err)
	}
	return s
}

// ---------------------------------------------------------------------------
// Unloaded state
// ---------------------------------------------------------------------------

func TestSession_NotReady(t *testing.T) {
	s := NewSession(testBounds(), identityDecimator{})

	if err := s.SetResolution(20); !errors.Is(err, ErrNotReady) {
		t.Errorf("SetResolution: err = %v, want ErrNotReady", err)
	}
	if err := s.ExcludePoint(0); !errors.Is(err, ErrNotReady) {
		t.Errorf("ExcludePoint: err = %v, want ErrNotReady", err)
	}
	if _, err := s.Visible(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Visible: err = %v, want ErrNotReady", err)
	}
	if _, err := s.Reference(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Reference: err = %v, want ErrNotReady", err)
	}
	if _, err := s.Excluded(); !errors.Is(err, ErrNotReady) {
		t.Errorf("Excluded: err = %v, want ErrNotReady", err)
	}
	if _, err := s.CanPersist(); !errors.Is(err, ErrNotReady) {
		t.Errorf("CanPersist: err = %v, want ErrNotReady", err)
	}
	if err := s.Warm(10, 20); !errors.Is(err, ErrNotReady) {
		t.Errorf("Warm: err = %v, want ErrNotReady", err)
	}

	// A failed operation must not flip the active resolution.
	if got := s.Resolution(); got != 35 {
		t.Errorf("Resolution after failed ops = %d, want default 35", got)
	}
}

// ---------------------------------------------------------------------------
// SetSourceCloud / LoadFile
// ---------------------------------------------------------------------------

func TestSession_SetSourceCloud(t *testing.T) {
	s := loadedSession(t, 10)

	visible, err := s.Visible()
	if err != nil {
		t.Fatalf("Visible: %v", err)
	}
	if len(visible) != 10 {
		t.Errorf("visible = %d points, want 10", len(visible))
	}

	reference, err := s.Reference()
	if err != nil {
		t.Fatalf("Reference: %v", err)
	}
	if len(reference) != 10 {
		t.Errorf("reference = %d points, want 10", len(reference))
	}

	t.Run("reload clears exclusions", func(t *testing.T) {
		if err := s.SetExclusion([]int{2, 5}); err != nil {
			t.Fatalf("SetExclusion: %v", err)
		}
		if err := s.SetSourceCloud(testCloud(8)); err != nil {
			t.Fatalf("SetSourceCloud: %v", err)
		}
		excluded, err := s.Excluded()
		if err != nil {
			t.Fatalf("Excluded: %v", err)
		}
		if len(excluded) != 0 {
			t.Errorf("excluded after reload = %v, want empty", excluded)
		}
		count, _ := s.PointCount()
		if count != 8 {
			t.Errorf("point count after reload = %d, want 8", count)
		}
	})
}

func TestSession_LoadFileFailureLeavesStateUntouched(t *testing.T) {
	s := loadedSession(t, 10)
	if err := s.SetExclusion([]int{4}); err != nil {
		t.Fatalf("SetExclusion: %v", err)
	}

	err := s.LoadFile("/nonexistent/headshape.txt")
	var loadErr *LoadError
	if !errors.As(err, &loadErr) {
		t.Fatalf("LoadFile: err = %v, want *LoadError", err)
	}

	excluded, _ := s.Excluded()
	if !reflect.DeepEqual(excluded, []int{4}) {
		t.Errorf("excluded after failed load = %v, want [4]", excluded)
	}
	count, _ := s.PointCount()
	if count != 9 {
		t.Errorf("point count after failed load = %d, want 9", count)
	}
}

// ---------------------------------------------------------------------------
// SetResolution
// ---------------------------------------------------------------------------

func TestSession_SetResolution(t *testing.T) {
	s := loadedSession(t, 10)

	t.Run("in bounds", func(t *testing.T) {
		if err := s.SetResolution(20); err != nil {
			t.Fatalf("SetResolution(20): %v", err)
		}
		if got := s.Resolution(); got != 20 {
			t.Errorf("Resolution = %d, want 20", got)
		}
	})

	t.Run("out of bounds leaves state unchanged", func(t *testing.T) {
		for _, mm := range []int{4, 51, 0, -10} {
			if err := s.SetResolution(mm); !errors.Is(err, ErrInvalidResolution) {
				t.Errorf("SetResolution(%d): err = %v, want ErrInvalidResolution", mm, err)
			}
		}
		if got := s.Resolution(); got != 20 {
			t.Errorf("Resolution after rejected changes = %d, want 20", got)
		}
	})

	t.Run("boundary values accepted", func(t *testing.T) {
		if err := s.SetResolution(5); err != nil {
			t.Errorf("SetResolution(5): %v", err)
		}
		if err := s.SetResolution(50); err != nil {
			t.Errorf("SetResolution(50): %v", err)
		}
	})
}

// Each resolution remembers its own exclusion set across switches.
func TestSession_ExclusionMemoryAcrossResolutions(t *testing.T) {
	s := loadedSession(t, 10)

	if err := s.SetExclusion([]int{1, 3}); err != nil {
		t.Fatalf("SetExclusion at 35: %v", err)
	}

	if err := s.SetResolution(20); err != nil {
		t.Fatalf("SetResolution(20): %v", err)
	}
	excluded, _ := s.Excluded()
	if len(excluded) != 0 {
		t.Errorf("excluded at fresh resolution = %v, want empty", excluded)
	}
	count, _ := s.PointCount()
	if count != 10 {
		t.Errorf("point count at fresh resolution = %d, want 10", count)
	}

	if err := s.SetResolution(35); err != nil {
		t.Fatalf("SetResolution(35): %v", err)
	}
	excluded, _ = s.Excluded()
	if !reflect.DeepEqual(excluded, []int{1, 3}) {
		t.Errorf("excluded after switching back = %v, want [1 3]", excluded)
	}
	count, _ = s.PointCount()
	if count != 8 {
		t.Errorf("point count after switching back = %d, want 8", count)
	}
}

// ---------------------------------------------------------------------------
// ExcludePoint
// ---------------------------------------------------------------------------

// A pick index counts surviving points only; prior exclusions shift it back
// to the decimated set.
func TestSession_ExcludePoint_IndexTranslation(t *testing.T) {
	s := loadedSession(t, 10)
	source := testCloud(10)

	if err := s.SetExclusion([]int{2, 5}); err != nil {
		t.Fatalf("SetExclusion: %v", err)
	}

	// Visible is source minus rows 2 and 5, so visible index 2 is source
	// row 3.
	if err := s.ExcludePoint(2); err != nil {
		t.Fatalf("ExcludePoint(2): %v", err)
	}

	excluded, _ := s.Excluded()
	if !reflect.DeepEqual(excluded, []int{2, 3, 5}) {
		t.Errorf("excluded = %v, want [2 3 5]", excluded)
	}

	visible, _ := s.Visible()
	if len(visible) != 7 {
		t.Fatalf("visible = %d points, want 7", len(visible))
	}
	for _, p := range visible {
		if p == source[3] {
			t.Errorf("source row 3 still visible after pick")
		}
	}

	t.Run("repeated picks walk the survivors", func(t *testing.T) {
		// Visible rows are now source rows [0 1 4 6 7 8 9]; pick index 2
		// is source row 4.
		if err := s.ExcludePoint(2); err != nil {
			t.Fatalf("ExcludePoint(2): %v", err)
		}
		excluded, _ := s.Excluded()
		if !reflect.DeepEqual(excluded, []int{2, 3, 4, 5}) {
			t.Errorf("excluded = %v, want [2 3 4 5]", excluded)
		}
	})
}

func TestSession_ExcludePoint_NoHitSentinel(t *testing.T) {
	s := loadedSession(t, 10)

	var notified int
	s.Subscribe(func(Snapshot) { notified++ })

	if err := s.ExcludePoint(-1); err != nil {
		t.Fatalf("ExcludePoint(-1): %v", err)
	}

	excluded, _ := s.Excluded()
	if len(excluded) != 0 {
		t.Errorf("excluded after no-hit = %v, want empty", excluded)
	}
	if notified != 0 {
		t.Errorf("observers notified %d times for a no-hit pick, want 0", notified)
	}
}

func TestSession_ExcludePoint_OutOfRangeDropped(t *testing.T) {
	s := loadedSession(t, 10)

	if err := s.ExcludePoint(42); err != nil {
		t.Fatalf("ExcludePoint(42): %v", err)
	}
	excluded, _ := s.Excluded()
	if len(excluded) != 0 {
		t.Errorf("excluded = %v, want empty", excluded)
	}
}

// ---------------------------------------------------------------------------
// CanPersist
// ---------------------------------------------------------------------------

func TestSession_CanPersist(t *testing.T) {
	s := loadedSession(t, 3)

	ok, err := s.CanPersist()
	if err != nil || !ok {
		t.Fatalf("CanPersist = %v, %v, want true, nil", ok, err)
	}

	// Exclude everything.
	if err := s.SetExclusion([]int{0, 1, 2}); err != nil {
		t.Fatalf("SetExclusion: %v", err)
	}
	ok, err = s.CanPersist()
	if err != nil || ok {
		t.Fatalf("CanPersist with empty visible set = %v, %v, want false, nil", ok, err)
	}

	// One survivor flips it back.
	if err := s.SetExclusion([]int{0, 1}); err != nil {
		t.Fatalf("SetExclusion: %v", err)
	}
	ok, _ = s.CanPersist()
	if !ok {
		t.Error("CanPersist with one visible point = false, want true")
	}
}

// ---------------------------------------------------------------------------
// Observers
// ---------------------------------------------------------------------------

func TestSession_Observers(t *testing.T) {
	s := NewSession(testBounds(), identityDecimator{})

	var snaps []Snapshot
	s.Subscribe(func(snap Snapshot) { snaps = append(snaps, snap) })

	if err := s.SetSourceCloud(testCloud(10)); err != nil {
		t.Fatalf("SetSourceCloud: %v", err)
	}
	if err := s.SetResolution(20); err != nil {
		t.Fatalf("SetResolution: %v", err)
	}
	if err := s.ExcludePoint(0); err != nil {
		t.Fatalf("ExcludePoint: %v", err)
	}

	if len(snaps) != 3 {
		t.Fatalf("observer notified %d times, want 3", len(snaps))
	}

	last := snaps[2]
	if last.ResolutionMM != 20 {
		t.Errorf("snapshot resolution = %d, want 20", last.ResolutionMM)
	}
	if last.PointCount != 9 || last.TotalPoints != 10 {
		t.Errorf("snapshot counts = %d/%d, want 9/10", last.PointCount, last.TotalPoints)
	}
	if !reflect.DeepEqual(last.Excluded, []int{0}) {
		t.Errorf("snapshot excluded = %v, want [0]", last.Excluded)
	}
	if !last.CanPersist {
		t.Error("snapshot CanPersist = false, want true")
	}
	if last.SessionID != s.ID() {
		t.Errorf("snapshot session id = %q, want %q", last.SessionID, s.ID())
	}

	t.Run("failed mutation does not notify", func(t *testing.T) {
		before := len(snaps)
		if err := s.SetResolution(999); !errors.Is(err, ErrInvalidResolution) {
			t.Fatalf("SetResolution(999): err = %v", err)
		}
		if len(snaps) != before {
			t.Errorf("observer notified on failed mutation")
		}
	})

	t.Run("observer may call back into the session", func(t *testing.T) {
		s2 := NewSession(testBounds(), identityDecimator{})
		s2.Subscribe(func(snap Snapshot) {
			// Reading state from inside an observer must not deadlock.
			_ = s2.Resolution()
		})
		if err := s2.SetSourceCloud(testCloud(5)); err != nil {
			t.Fatalf("SetSourceCloud: %v", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Warm
// ---------------------------------------------------------------------------

func TestSession_Warm(t *testing.T) {
	d := newCountingDecimator()
	s := NewSession(testBounds(), d)
	if err := s.SetSourceCloud(testCloud(60)); err != nil {
		t.Fatalf("SetSourceCloud: %v", err)
	}

	t.Run("range clamped to bounds", func(t *testing.T) {
		if err := s.Warm(1, 7); err != nil {
			t.Fatalf("Warm: %v", err)
		}
		if got := d.callCount(4); got != 0 {
			t.Errorf("out-of-bounds resolution 4 computed %d times, want 0", got)
		}
		for mm := 5; mm <= 7; mm++ {
			if got := d.callCount(mm); got != 1 {
				t.Errorf("resolution %d computed %d times, want 1", mm, got)
			}
		}
	})

	t.Run("does not disturb exclusions", func(t *testing.T) {
		if err := s.SetExclusion([]int{1}); err != nil {
			t.Fatalf("SetExclusion: %v", err)
		}
		if err := s.Warm(10, 12); err != nil {
			t.Fatalf("Warm: %v", err)
		}
		excluded, _ := s.Excluded()
		if !reflect.DeepEqual(excluded, []int{1}) {
			t.Errorf("excluded after warm = %v, want [1]", excluded)
		}
	})
}
