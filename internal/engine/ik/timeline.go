package ik

import (
	"sort"

	"github.com/Faultbox/mmd-pose/pkg/formats"
)

type timelineRecord struct {
	frame  uint32
	states map[string]bool
}

// Timeline holds IK enable records sorted by frame.
type Timeline struct {
	records []timelineRecord
}

// NewTimeline builds a timeline from VMD IK-enable keys. Keys sharing a frame
// keep their file order, so the last of them wins.
func NewTimeline(keys []formats.VMDIKKey) *Timeline {
	tl := &Timeline{records: make([]timelineRecord, 0, len(keys))}
	for _, k := range keys {
		states := make(map[string]bool, len(k.States))
		for _, st := range k.States {
			states[st.Name] = st.Enabled
		}
		tl.records = append(tl.records, timelineRecord{frame: k.Frame, states: states})
	}
	sort.SliceStable(tl.records, func(i, j int) bool {
		return tl.records[i].frame < tl.records[j].frame
	})
	return tl
}

// Len returns the number of records.
func (tl *Timeline) Len() int {
	if tl == nil {
		return 0
	}
	return len(tl.records)
}

// Enabled reports whether the chain named name runs at frame. The latest
// record at or before frame decides; chains it does not mention, and frames
// before the first record, are enabled.
func (tl *Timeline) Enabled(name string, frame uint32) bool {
	if tl == nil {
		return true
	}
	i := sort.Search(len(tl.records), func(i int) bool {
		return tl.records[i].frame > frame
	}) - 1
	if i < 0 {
		return true
	}
	enabled, ok := tl.records[i].states[name]
	return !ok || enabled
}
