// Package config loads the boot-time track layout. The layout file seeds
// the configurator through the same write path the control surface uses, so
// the usual validation and derivation rules apply to it. Nothing is ever
// written back: runtime changes live only in the configurator.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ericonr/ADCore/internal/driver"
)

// TrackLayout is the root configuration for the initial track set. All
// fields are optional; absent arrays are simply not written, leaving the
// configurator to derive them.
type TrackLayout struct {
	TrackStarts []int32 `json:"track_starts,omitempty"`
	TrackEnds   []int32 `json:"track_ends,omitempty"`
	TrackBins   []int32 `json:"track_bins,omitempty"`
}

// Load reads a TrackLayout from a JSON file. The file must have a .json
// extension and stay under the size cap.
func Load(path string) (*TrackLayout, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("layout file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat layout file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("layout file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read layout file: %w", err)
	}

	layout := &TrackLayout{}
	if err := json.Unmarshal(data, layout); err != nil {
		return nil, fmt.Errorf("failed to parse layout JSON: %w", err)
	}

	if err := layout.Validate(); err != nil {
		return nil, fmt.Errorf("invalid layout: %w", err)
	}
	return layout, nil
}

// Validate performs the cheap shape checks that give a clearer error than
// the configurator's rejection message would. The configurator remains the
// authority on the full invariants.
func (c *TrackLayout) Validate() error {
	for i, v := range c.TrackStarts {
		if v < 1 {
			return fmt.Errorf("track_starts[%d] must be >= 1, got %d", i, v)
		}
	}
	for i, v := range c.TrackEnds {
		if v < 2 {
			return fmt.Errorf("track_ends[%d] must be >= 2, got %d", i, v)
		}
	}
	for i, v := range c.TrackBins {
		if v < 1 {
			return fmt.Errorf("track_bins[%d] must be >= 1, got %d", i, v)
		}
	}
	return nil
}

// Apply pushes the layout through the dispatcher in start, end, bin order.
// Writing starts first lets an explicit end override the derived single-row
// ends, and binnings are validated against the final heights.
func (c *TrackLayout) Apply(d *driver.Dispatcher) error {
	writes := []struct {
		name   string
		param  driver.Param
		values []int32
	}{
		{"track_starts", d.StartParam(), c.TrackStarts},
		{"track_ends", d.EndParam(), c.TrackEnds},
		{"track_bins", d.BinParam(), c.TrackBins},
	}
	for _, w := range writes {
		if w.values == nil {
			continue
		}
		if err := d.WriteInt32Array(w.param, w.values); err != nil {
			return fmt.Errorf("apply %s: %w", w.name, err)
		}
	}
	return nil
}
