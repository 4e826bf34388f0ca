package headshape

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Observer receives a state snapshot after every session mutation. Rendering
// layers register here instead of intercepting attribute changes.
type Observer func(Snapshot)

// Session owns the interactive state for one digitized head-shape cloud: the
// resolution-keyed decimation cache, the per-resolution exclusion sets, the
// currently visible point set, and the fixed-resolution reference set.
//
// A session starts unloaded; every operation other than SetSourceCloud (or a
// load that reaches it) returns ErrNotReady until a cloud has been loaded.
// Mutating operations arrive one at a time from the host event loop; the
// mutex below serializes the HTTP/MQTT surface onto that model.
type Session struct {
	mu         sync.Mutex
	id         uuid.UUID
	bounds     ResolutionConfig
	cache      *DecimationCache
	exclusions *ExclusionStore

	loaded       bool
	resolutionMM int
	visible      Cloud
	reference    Cloud

	observers []Observer
}

// NewSession creates an unloaded session with the given resolution bounds
// and decimation provider. The active resolution starts at the configured
// default.
func NewSession(bounds ResolutionConfig, d Decimator) *Session {
	return &Session{
		id:           uuid.New(),
		bounds:       bounds,
		cache:        NewDecimationCache(d),
		exclusions:   NewExclusionStore(),
		resolutionMM: bounds.DefaultMM,
	}
}

// ID returns the session identity used in published messages and exports.
func (s *Session) ID() string {
	return s.id.String()
}

// Subscribe registers an observer. Observers are invoked synchronously, in
// registration order, after each completed mutation.
func (s *Session) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// SetSourceCloud replaces the source cloud wholesale: every cached decimated
// set and every exclusion set is discarded, the reference set is recomputed,
// and the visible set is recomputed at the current resolution (now free of
// exclusions). The session enters the Loaded state.
func (s *Session) SetSourceCloud(cloud Cloud) error {
	s.mu.Lock()
	s.cache.SetSource(cloud.Copy())
	s.exclusions.Clear()
	s.loaded = true

	ref, err := s.cache.Get(s.bounds.ReferenceMM)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.reference = ref

	if err := s.recomputeVisible(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// LoadFile reads a head-shape cloud from disk and installs it as the source
// cloud. A parse failure surfaces as a *LoadError and leaves the prior
// source cloud, caches, and exclusion state untouched.
func (s *Session) LoadFile(path string) error {
	cloud, err := ReadCloudFile(path)
	if err != nil {
		return err
	}
	return s.SetSourceCloud(cloud)
}

// SetResolution changes the active resolution, computing the decimated set on
// demand and restoring that resolution's remembered exclusion set. Values
// outside the configured bounds fail with ErrInvalidResolution and leave all
// state unchanged.
func (s *Session) SetResolution(resolutionMM int) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotReady
	}
	if !s.bounds.Contains(resolutionMM) {
		s.mu.Unlock()
		return ErrInvalidResolution
	}

	prev := s.resolutionMM
	s.resolutionMM = resolutionMM
	if err := s.recomputeVisible(); err != nil {
		s.resolutionMM = prev
		s.mu.Unlock()
		return err
	}
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Resolution returns the active resolution in millimeters.
func (s *Session) Resolution() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolutionMM
}

// ExcludePoint marks the point at the given index into the currently visible
// set as an outlier. The index is translated back to the decimated set by
// walking the sorted exclusion list and shifting past every already-excluded
// slot; the translated index is then appended with validation and the
// visible set recomputed.
//
// A pick of -1 means "no point hit" and is a no-op, not an error.
func (s *Session) ExcludePoint(visibleIndex int) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotReady
	}
	if visibleIndex == -1 {
		s.mu.Unlock()
		return nil
	}

	decimated, err := s.cache.Get(s.resolutionMM)
	if err != nil {
		s.mu.Unlock()
		return err
	}

	// Each prior exclusion removes one slot below the candidate, so the
	// k-th surviving index is found by advancing past every excluded index
	// it has reached.
	idx := visibleIndex
	for _, e := range s.exclusions.Get(s.resolutionMM) {
		if idx >= e {
			idx++
		}
	}

	s.exclusions.Append(s.resolutionMM, idx, len(decimated))
	if err := s.recomputeVisible(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// SetExclusion replaces the active resolution's exclusion set, validating it
// against the current decimated set size, and recomputes the visible set.
func (s *Session) SetExclusion(indices []int) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotReady
	}
	decimated, err := s.cache.Get(s.resolutionMM)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.exclusions.Set(s.resolutionMM, indices, len(decimated))
	if err := s.recomputeVisible(); err != nil {
		s.mu.Unlock()
		return err
	}
	snap := s.snapshot()
	s.mu.Unlock()

	s.notify(snap)
	return nil
}

// Excluded returns the active resolution's validated exclusion set.
func (s *Session) Excluded() ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotReady
	}
	return s.exclusions.Get(s.resolutionMM), nil
}

// Visible returns the current visible point set: the decimated set at the
// active resolution with excluded rows removed, in original relative order.
func (s *Session) Visible() (Cloud, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotReady
	}
	return s.visible.Copy(), nil
}

// Reference returns the fixed-resolution reference set used for visual
// comparison. It does not participate in exclusion.
func (s *Session) Reference() (Cloud, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return nil, ErrNotReady
	}
	return s.reference.Copy(), nil
}

// PointCount returns the number of points in the visible set.
func (s *Session) PointCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return 0, ErrNotReady
	}
	return len(s.visible), nil
}

// TotalPoints returns the size of the decimated set at the active resolution,
// before exclusions.
func (s *Session) TotalPoints() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return 0, ErrNotReady
	}
	decimated, err := s.cache.Get(s.resolutionMM)
	if err != nil {
		return 0, err
	}
	return len(decimated), nil
}

// CanPersist reports whether the visible set is non-empty. Persistence of an
// empty point set is disallowed upstream.
func (s *Session) CanPersist() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return false, ErrNotReady
	}
	return len(s.visible) > 0, nil
}

// Warm precomputes decimated sets for every in-bounds resolution in the
// inclusive range. Purely a latency optimization: exclusion state and
// existing cache entries are untouched.
func (s *Session) Warm(fromMM, toMM int) error {
	s.mu.Lock()
	if !s.loaded {
		s.mu.Unlock()
		return ErrNotReady
	}
	cache := s.cache
	lo, hi := fromMM, toMM
	if lo < s.bounds.MinMM {
		lo = s.bounds.MinMM
	}
	if hi > s.bounds.MaxMM {
		hi = s.bounds.MaxMM
	}
	s.mu.Unlock()

	var resolutions []int
	for r := lo; r <= hi; r++ {
		resolutions = append(resolutions, r)
	}
	return cache.Warm(resolutions)
}

// recomputeVisible rebuilds the visible set from the decimated set and the
// exclusion set at the active resolution. Caller holds s.mu.
func (s *Session) recomputeVisible() error {
	decimated, err := s.cache.Get(s.resolutionMM)
	if err != nil {
		return err
	}
	excluded := s.exclusions.Get(s.resolutionMM)

	drop := make(map[int]struct{}, len(excluded))
	for _, i := range excluded {
		drop[i] = struct{}{}
	}

	visible := make(Cloud, 0, len(decimated)-len(excluded))
	for i, p := range decimated {
		if _, skip := drop[i]; skip {
			continue
		}
		visible = append(visible, p)
	}
	s.visible = visible
	return nil
}

// snapshot builds the observer/publish payload. Caller holds s.mu.
func (s *Session) snapshot() Snapshot {
	decimated, _ := s.cache.Get(s.resolutionMM)
	return Snapshot{
		SessionID:    s.id.String(),
		ResolutionMM: s.resolutionMM,
		PointCount:   len(s.visible),
		TotalPoints:  len(decimated),
		Excluded:     s.exclusions.Get(s.resolutionMM),
		CanPersist:   len(s.visible) > 0,
		Timestamp:    time.Now().Unix(),
	}
}

// notify invokes observers outside the session lock so an observer may call
// back into the session.
func (s *Session) notify(snap Snapshot) {
	s.mu.Lock()
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}
