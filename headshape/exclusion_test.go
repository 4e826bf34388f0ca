package headshape

import (
	"reflect"
	"testing"
)

// ---------------------------------------------------------------------------
// Get / Set
// ---------------------------------------------------------------------------

func TestExclusionStore_Get(t *testing.T) {
	store := NewExclusionStore()

	t.Run("unknown resolution defaults to empty", func(t *testing.T) {
		got := store.Get(35)
		if len(got) != 0 {
			t.Errorf("Get(35) = %v, want empty", got)
		}
	})

	t.Run("returned slice is a copy", func(t *testing.T) {
		store.Set(35, []int{1, 2}, 10)
		got := store.Get(35)
		got[0] = 99
		if again := store.Get(35); again[0] != 1 {
			t.Errorf("stored set mutated through returned slice: %v", again)
		}
	})
}

func TestExclusionStore_Set(t *testing.T) {
	tests := []struct {
		name    string
		indices []int
		setSize int
		want    []int
	}{
		{"sorts ascending", []int{5, 1, 3}, 10, []int{1, 3, 5}},
		{"drops duplicates", []int{2, 2, 4, 2}, 10, []int{2, 4}},
		{"drops negative", []int{-1, 0, 3}, 10, []int{0, 3}},
		{"drops out of range", []int{3, 9, 10, 11}, 10, []int{3, 9}},
		{"empty input", []int{}, 10, []int{}},
		{"all invalid", []int{-5, 42}, 10, []int{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewExclusionStore()
			got := store.Set(35, tt.indices, tt.setSize)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Set(%v, %d) = %v, want %v", tt.indices, tt.setSize, got, tt.want)
			}
		})
	}
}

// Validating an already-valid set must not change it.
func TestExclusionStore_ValidationIdempotent(t *testing.T) {
	store := NewExclusionStore()

	first := store.Set(20, []int{7, 1, 1, -3, 25}, 12)
	second := store.Set(20, first, 12)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("re-validation changed set: %v -> %v", first, second)
	}
}

// ---------------------------------------------------------------------------
// Append / Clear
// ---------------------------------------------------------------------------

func TestExclusionStore_Append(t *testing.T) {
	store := NewExclusionStore()
	store.Set(35, []int{2, 5}, 10)

	t.Run("appends and keeps order", func(t *testing.T) {
		got := store.Append(35, 3, 10)
		want := []int{2, 3, 5}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Append(3) = %v, want %v", got, want)
		}
	})

	t.Run("duplicate append is a no-op", func(t *testing.T) {
		got := store.Append(35, 3, 10)
		want := []int{2, 3, 5}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("duplicate Append(3) = %v, want %v", got, want)
		}
	})

	t.Run("out-of-range append dropped silently", func(t *testing.T) {
		got := store.Append(35, 42, 10)
		want := []int{2, 3, 5}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Append(42) = %v, want %v", got, want)
		}
	})
}

func TestExclusionStore_PerResolutionIsolation(t *testing.T) {
	store := NewExclusionStore()
	store.Set(20, []int{1}, 10)
	store.Set(35, []int{7}, 10)

	if got := store.Get(20); !reflect.DeepEqual(got, []int{1}) {
		t.Errorf("Get(20) = %v, want [1]", got)
	}
	if got := store.Get(35); !reflect.DeepEqual(got, []int{7}) {
		t.Errorf("Get(35) = %v, want [7]", got)
	}
}

func TestExclusionStore_Clear(t *testing.T) {
	store := NewExclusionStore()
	store.Set(20, []int{1}, 10)
	store.Set(35, []int{7}, 10)

	store.Clear()

	if got := store.Get(20); len(got) != 0 {
		t.Errorf("Get(20) after Clear = %v, want empty", got)
	}
	if got := store.Get(35); len(got) != 0 {
		t.Errorf("Get(35) after Clear = %v, want empty", got)
	}
}

// Shrinking the set size drops stale indices on the next store, matching a
// reload that produced a smaller decimated set under the same key.
func TestExclusionStore_StaleIndicesAfterShrink(t *testing.T) {
	store := NewExclusionStore()
	store.Set(35, []int{2, 8}, 10)

	got := store.Set(35, store.Get(35), 5)
	want := []int{2}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("revalidated against size 5 = %v, want %v", got, want)
	}
}
