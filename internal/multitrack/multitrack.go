// Package multitrack manages the configuration of multiple regions-of-interest
// ("tracks") on a row-addressable detector, for multi-track spectroscopy.
//
// A track is a contiguous row range [start, end] with a binning factor that
// must evenly divide its height. The three attribute arrays are kept
// consistent: writing one may re-derive another. There are three use cases:
//
//  1. Only track starts are set. Each track is a single row at that position.
//  2. Starts and ends are set. Each track is fully binned between the two.
//  3. Starts, ends and binnings are set. Each track is a (less than fully
//     binned) range between the start and end positions.
//
// A TrackSet is not internally synchronized; the owning driver serializes
// access.
package multitrack

import "slices"

// Quantity identifies one of the three logical track arrays.
type Quantity int

const (
	QuantityStart Quantity = iota
	QuantityEnd
	QuantityBin
)

// String returns the array name used in logs and notifications.
func (q Quantity) String() string {
	switch q {
	case QuantityStart:
		return "track_start"
	case QuantityEnd:
		return "track_end"
	case QuantityBin:
		return "track_bin"
	default:
		return "unknown"
	}
}

// Change reports that a derived array was re-computed and committed during a
// mutation. Values is a copy of the newly stored array.
type Change struct {
	Quantity Quantity
	Values   []int32
}

// ValidationError reports a rejected track array write. When a mutator
// returns one, the track set is left exactly as it was before the call.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Fixed validation messages, surfaced to the rejecting client verbatim.
const (
	msgStartMin     = "track starts must be >= 1"
	msgStartOrder   = "track starts must be in ascending order"
	msgEndMin       = "track ends must be >= 2"
	msgEndOrder     = "track ends must be in ascending order"
	msgBinMin       = "track binning must be >= 1"
	msgBinDivisible = "track height must be divisible by binning"
)

// TrackSet holds the start, end and binning arrays for the configured
// tracks, indexed by track number. Rows are 1-based from the device's
// perspective. A zero-value TrackSet is an empty, usable track set.
type TrackSet struct {
	start []int32
	end   []int32
	bin   []int32
}

// NewTrackSet returns an empty track set.
func NewTrackSet() *TrackSet {
	return &TrackSet{}
}

// SetStarts replaces the track start array. Each start must be >= 1 and the
// array strictly ascending. On success the end and binning arrays are
// re-derived from the prior bin/end state (binning, when set, implies the
// track height; an explicit end otherwise preserves it); any derived array
// that changed by value is committed and reported. On error the call is a
// no-op.
func (ts *TrackSet) SetStarts(values []int32) ([]Change, error) {
	for i, v := range values {
		if v < 1 {
			return nil, &ValidationError{msgStartMin}
		}
		if i > 0 && v <= values[i-1] {
			return nil, &ValidationError{msgStartOrder}
		}
	}

	oldEnd := ts.end
	ts.start = slices.Clone(values)

	end := make([]int32, len(values))
	bin := make([]int32, len(values))
	for i := range values {
		h := ts.heightHint(i, oldEnd)
		end[i] = values[i] + h - 1
		if i < len(ts.bin) {
			bin[i] = ts.bin[i]
		} else {
			bin[i] = h
		}
	}

	var changes []Change
	if !slices.Equal(ts.end, end) {
		ts.end = end
		changes = append(changes, Change{QuantityEnd, slices.Clone(end)})
	}
	if !slices.Equal(ts.bin, bin) {
		ts.bin = bin
		changes = append(changes, Change{QuantityBin, slices.Clone(bin)})
	}
	return changes, nil
}

// heightHint is the track height implied by the state prior to a start
// write: an already-set binning defines the height (the track is assumed
// fully binned), an already-set end preserves the row range, and a track
// with neither is a single row.
func (ts *TrackSet) heightHint(i int, oldEnd []int32) int32 {
	if i < len(ts.bin) {
		return ts.bin[i]
	}
	if i < len(oldEnd) {
		return oldEnd[i] - ts.start[i] + 1
	}
	return 1
}

// SetEnds replaces the track end array. Each end must be >= 2 and the array
// strictly ascending. On success the binning array is re-derived as the full
// track height (fully binned); if it changed by value it is committed and
// reported. The start array is never touched. On error the call is a no-op.
func (ts *TrackSet) SetEnds(values []int32) ([]Change, error) {
	for i, v := range values {
		if v < 2 {
			return nil, &ValidationError{msgEndMin}
		}
		if i > 0 && v <= values[i-1] {
			return nil, &ValidationError{msgEndOrder}
		}
	}

	ts.end = slices.Clone(values)

	bin := make([]int32, len(values))
	for i := range values {
		bin[i] = ts.Height(i)
	}

	var changes []Change
	if !slices.Equal(ts.bin, bin) {
		ts.bin = bin
		changes = append(changes, Change{QuantityBin, slices.Clone(bin)})
	}
	return changes, nil
}

// SetBins replaces the track binning array. Each binning must be >= 1 and
// must evenly divide the corresponding track height as derived from the
// already-stored start/end arrays. Binning is a leaf in the derivation
// graph: nothing else is re-computed. On error the call is a no-op.
func (ts *TrackSet) SetBins(values []int32) ([]Change, error) {
	for i, v := range values {
		if v < 1 {
			return nil, &ValidationError{msgBinMin}
		}
		if ts.Height(i)%v != 0 {
			return nil, &ValidationError{msgBinDivisible}
		}
	}

	ts.bin = slices.Clone(values)
	return nil, nil
}

// TrackCount returns the number of configured tracks. The start array
// defines the track set's cardinality.
func (ts *TrackSet) TrackCount() int {
	return len(ts.start)
}

// Start returns the first row of track i. An unset start defaults to the
// first device row.
func (ts *TrackSet) Start(i int) int32 {
	if i < len(ts.start) {
		return ts.start[i]
	}
	return 1
}

// End returns the last row of track i, derived from the start and height
// when not explicitly set.
func (ts *TrackSet) End(i int) int32 {
	if i < len(ts.end) {
		return ts.end[i]
	}
	return ts.Start(i) + ts.Height(i) - 1
}

// Height returns the nominal, unbinned height of track i: the number of raw
// detector rows it spans. An explicit end defines it; otherwise an explicit
// binning implies it (fully binned); otherwise the track is a single row.
func (ts *TrackSet) Height(i int) int32 {
	if i < len(ts.end) {
		return ts.end[i] - ts.Start(i) + 1
	}
	if i < len(ts.bin) {
		return ts.bin[i]
	}
	return 1
}

// Bin returns the binning factor of track i. An unset binning defaults to
// the full track height, producing one output row for the track.
func (ts *TrackSet) Bin(i int) int32 {
	if i < len(ts.bin) {
		return ts.bin[i]
	}
	return ts.Height(i)
}

// DataHeight returns the binned output height of track i.
func (ts *TrackSet) DataHeight(i int) int32 {
	bin := ts.Bin(i)
	if bin == 0 {
		// Degenerate layout: a start moved past a stale end can zero the
		// derived binning. No rows are delivered for such a track.
		return 0
	}
	return ts.Height(i) / bin
}

// TotalDataHeight returns the total number of detector rows an acquisition
// must deliver once all tracks are binned and concatenated.
func (ts *TrackSet) TotalDataHeight() int32 {
	var total int32
	for i := 0; i < ts.TrackCount(); i++ {
		total += ts.DataHeight(i)
	}
	return total
}

// Starts returns a copy of the track start array.
func (ts *TrackSet) Starts() []int32 { return slices.Clone(ts.start) }

// Ends returns a copy of the track end array.
func (ts *TrackSet) Ends() []int32 { return slices.Clone(ts.end) }

// Bins returns a copy of the track binning array.
func (ts *TrackSet) Bins() []int32 { return slices.Clone(ts.bin) }
