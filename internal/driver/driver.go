// Package driver routes int32 array parameter writes to the multi-track
// configurator and fans out derived-array change notifications to
// registered observers. It is the only boundary the configurator has: the
// control surface above it speaks in opaque parameter tags, never in
// configurator internals.
package driver

import (
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ericonr/ADCore/internal/multitrack"
)

// Param is the opaque identification tag of one logical int32 array
// parameter. Tags are assigned once at dispatcher construction and are used
// both to route incoming writes and to tag outgoing change notifications.
type Param string

// Observer receives the new value of a derived array after it has been
// committed. Observers run on the writing goroutine, after the commit and
// before the write returns, so reading the track set from inside one sees
// fully consistent state.
type Observer func(p Param, values []int32)

// Dispatcher owns a track set and serializes all access to it. The
// configurator itself is not synchronized; the dispatcher's mutex is the
// single-writer contract the surrounding server relies on.
type Dispatcher struct {
	mu        sync.Mutex
	tracks    *multitrack.TrackSet
	params    map[Param]multitrack.Quantity
	byQty     map[multitrack.Quantity]Param
	observers []Observer
}

// NewDispatcher creates a dispatcher around an empty track set and assigns
// the three parameter tags.
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{
		tracks: multitrack.NewTrackSet(),
		params: make(map[Param]multitrack.Quantity),
		byQty:  make(map[multitrack.Quantity]Param),
	}
	for _, q := range []multitrack.Quantity{
		multitrack.QuantityStart,
		multitrack.QuantityEnd,
		multitrack.QuantityBin,
	} {
		p := Param(uuid.NewString())
		d.params[p] = q
		d.byQty[q] = p
	}
	return d
}

// StartParam returns the tag of the track start array parameter.
func (d *Dispatcher) StartParam() Param { return d.byQty[multitrack.QuantityStart] }

// EndParam returns the tag of the track end array parameter.
func (d *Dispatcher) EndParam() Param { return d.byQty[multitrack.QuantityEnd] }

// BinParam returns the tag of the track binning array parameter.
func (d *Dispatcher) BinParam() Param { return d.byQty[multitrack.QuantityBin] }

// ParamName returns the logical array name for a tag, or "" for an unknown
// tag. Intended for logs.
func (d *Dispatcher) ParamName(p Param) string {
	q, ok := d.params[p]
	if !ok {
		return ""
	}
	return q.String()
}

// Observe registers an observer for derived-array changes. Must be called
// before writes start; the observer list is not guarded.
func (d *Dispatcher) Observe(fn Observer) {
	d.observers = append(d.observers, fn)
}

// WriteInt32Array routes a parameter write to the matching mutator. On
// success any derived-array changes are delivered to the observers before
// the call returns. A *multitrack.ValidationError means the write was
// rejected and no state changed.
func (d *Dispatcher) WriteInt32Array(p Param, values []int32) error {
	q, ok := d.params[p]
	if !ok {
		return fmt.Errorf("unknown parameter %q", p)
	}

	d.mu.Lock()
	var changes []multitrack.Change
	var err error
	switch q {
	case multitrack.QuantityStart:
		changes, err = d.tracks.SetStarts(values)
	case multitrack.QuantityEnd:
		changes, err = d.tracks.SetEnds(values)
	case multitrack.QuantityBin:
		changes, err = d.tracks.SetBins(values)
	}
	d.mu.Unlock()
	if err != nil {
		return fmt.Errorf("write %s: %w", q, err)
	}

	// Notify after the commit is visible so an observer reading back
	// through the dispatcher sees the consistent post-write state.
	for _, c := range changes {
		tag := d.byQty[c.Quantity]
		for _, fn := range d.observers {
			fn(tag, c.Values)
		}
	}
	return nil
}

// TrackInfo is the per-track view assembled for readers of the current
// configuration.
type TrackInfo struct {
	Start      int32 `json:"start"`
	End        int32 `json:"end"`
	Bin        int32 `json:"bin"`
	Height     int32 `json:"height"`
	DataHeight int32 `json:"data_height"`
}

// Snapshot is a consistent read of the whole track configuration.
type Snapshot struct {
	Tracks          []TrackInfo `json:"tracks"`
	TrackCount      int         `json:"track_count"`
	TotalDataHeight int32       `json:"total_data_height"`
}

// Snapshot assembles the current configuration under the dispatcher lock.
func (d *Dispatcher) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	n := d.tracks.TrackCount()
	snap := Snapshot{
		Tracks:          make([]TrackInfo, n),
		TrackCount:      n,
		TotalDataHeight: d.tracks.TotalDataHeight(),
	}
	for i := 0; i < n; i++ {
		snap.Tracks[i] = TrackInfo{
			Start:      d.tracks.Start(i),
			End:        d.tracks.End(i),
			Bin:        d.tracks.Bin(i),
			Height:     d.tracks.Height(i),
			DataHeight: d.tracks.DataHeight(i),
		}
	}
	return snap
}
