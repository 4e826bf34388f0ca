package headshape

import (
	"sort"
	"sync"
)

// ExclusionStore remembers user-marked outlier indices per resolution, so
// switching resolutions back and forth preserves each resolution's exclusion
// set. Indices are relative to that resolution's decimated point set.
//
// Every stored set is validated: deduplicated, sorted ascending, and clamped
// to the decimated set size. Out-of-range indices are dropped silently rather
// than rejected, since stale indices are expected after reloading a
// differently sized cloud under the same resolution key. Validation is
// idempotent.
type ExclusionStore struct {
	mu           sync.RWMutex
	byResolution map[int][]int
}

// NewExclusionStore creates an empty store.
func NewExclusionStore() *ExclusionStore {
	return &ExclusionStore{byResolution: make(map[int][]int)}
}

// Get returns the validated exclusion set for a resolution, defaulting to
// empty for a resolution never seen. The returned slice is a copy.
func (s *ExclusionStore) Get(resolutionMM int) []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.byResolution[resolutionMM]
	out := make([]int, len(stored))
	copy(out, stored)
	return out
}

// Set replaces the stored set for a resolution after validating it against
// the decimated set size. The validated result is returned.
func (s *ExclusionStore) Set(resolutionMM int, indices []int, setSize int) []int {
	valid := validateIndices(indices, setSize)
	s.mu.Lock()
	s.byResolution[resolutionMM] = valid
	s.mu.Unlock()

	out := make([]int, len(valid))
	copy(out, valid)
	return out
}

// Append adds a single index to a resolution's set and re-validates.
func (s *ExclusionStore) Append(resolutionMM, index, setSize int) []int {
	s.mu.Lock()
	combined := append(append([]int(nil), s.byResolution[resolutionMM]...), index)
	valid := validateIndices(combined, setSize)
	s.byResolution[resolutionMM] = valid
	s.mu.Unlock()

	out := make([]int, len(valid))
	copy(out, valid)
	return out
}

// Clear drops the exclusion sets for all resolutions.
func (s *ExclusionStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byResolution = make(map[int][]int)
}

// validateIndices deduplicates and sorts indices and silently drops any index
// outside [0, setSize).
func validateIndices(indices []int, setSize int) []int {
	seen := make(map[int]struct{}, len(indices))
	out := make([]int, 0, len(indices))
	for _, i := range indices {
		if i < 0 || i >= setSize {
			continue
		}
		if _, dup := seen[i]; dup {
			continue
		}
		seen[i] = struct{}{}
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}
