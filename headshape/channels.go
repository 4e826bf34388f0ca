package headshape

import (
	"fmt"
	"log"
	"sort"
)

// Recording is a measurement with named channels and one data row per
// channel. Rows stay parallel to Channels through any drop.
type Recording struct {
	Name     string      `json:"name"`
	Channels []string    `json:"channels"`
	Data     [][]float64 `json:"data,omitempty"`

	// Bads lists channels marked bad by the operator; dropped entries are
	// removed from here too.
	Bads []string `json:"bads,omitempty"`
}

// DropChannels removes the named channels from the recording, keeping the
// remaining channel order and data rows aligned. Unknown names are an error
// and leave the recording unchanged.
func (r *Recording) DropChannels(names []string) error {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	for n := range drop {
		if !containsString(r.Channels, n) {
			return fmt.Errorf("recording %s has no channel %q", r.Name, n)
		}
	}

	keptChannels := make([]string, 0, len(r.Channels))
	var keptData [][]float64
	if r.Data != nil {
		keptData = make([][]float64, 0, len(r.Data))
	}
	for i, ch := range r.Channels {
		if _, gone := drop[ch]; gone {
			continue
		}
		keptChannels = append(keptChannels, ch)
		if r.Data != nil && i < len(r.Data) {
			keptData = append(keptData, r.Data[i])
		}
	}
	r.Channels = keptChannels
	r.Data = keptData

	if len(r.Bads) > 0 {
		keptBads := r.Bads[:0]
		for _, b := range r.Bads {
			if _, gone := drop[b]; !gone {
				keptBads = append(keptBads, b)
			}
		}
		r.Bads = keptBads
	}
	return nil
}

// EqualizeChannels restricts every recording to the channels common to all of
// them, dropping the rest consistently. It operates in place and returns the
// sorted set of dropped channel names.
func EqualizeChannels(recordings []*Recording) ([]string, error) {
	if len(recordings) == 0 {
		return nil, nil
	}

	common := make(map[string]struct{}, len(recordings[0].Channels))
	for _, ch := range recordings[0].Channels {
		common[ch] = struct{}{}
	}
	for _, rec := range recordings[1:] {
		present := make(map[string]struct{}, len(rec.Channels))
		for _, ch := range rec.Channels {
			present[ch] = struct{}{}
		}
		for ch := range common {
			if _, ok := present[ch]; !ok {
				delete(common, ch)
			}
		}
	}

	droppedSet := make(map[string]struct{})
	for _, rec := range recordings {
		var drop []string
		for _, ch := range rec.Channels {
			if _, ok := common[ch]; !ok {
				drop = append(drop, ch)
			}
		}
		if len(drop) == 0 {
			continue
		}
		if err := rec.DropChannels(drop); err != nil {
			return nil, fmt.Errorf("equalizing %s: %w", rec.Name, err)
		}
		for _, ch := range drop {
			droppedSet[ch] = struct{}{}
		}
	}

	if len(droppedSet) == 0 {
		log.Println("all channels are corresponding, nothing to do")
		return nil, nil
	}

	dropped := make([]string, 0, len(droppedSet))
	for ch := range droppedSet {
		dropped = append(dropped, ch)
	}
	sort.Strings(dropped)
	log.Printf("dropped non-common channels: %v", dropped)
	return dropped, nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
