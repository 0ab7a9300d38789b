// Package vlist computes visible windows over long item lists so a
// renderer only materializes rows near the viewport.
package vlist

import "sort"

// Config tunes a Virtualizer. DefaultSize is the fallback row size;
// Estimate, when set, supplies a per-index guess used until a real
// measurement lands. Overscan rows are added on both sides of the
// visible range.
type Config struct {
	DefaultSize float64
	Overscan    int
	Estimate    func(index int) float64
}

// VirtualItem is one renderable row with its resolved geometry.
type VirtualItem struct {
	Index int
	Start float64
	Size  float64
}

// Virtualizer maps a scroll offset and viewport size onto the range
// of item indices worth rendering. Sizes resolve in order: measured
// value, Estimate, DefaultSize.
type Virtualizer struct {
	count    int
	cfg      Config
	measured map[int]float64

	offsets []float64
	dirty   bool
}

// New creates a Virtualizer over count items.
func New(count int, cfg Config) *Virtualizer {
	if cfg.DefaultSize <= 0 {
		cfg.DefaultSize = 1
	}
	if cfg.Overscan < 0 {
		cfg.Overscan = 0
	}
	return &Virtualizer{
		count:    count,
		cfg:      cfg,
		measured: make(map[int]float64),
		dirty:    true,
	}
}

// Count returns the current item count.
func (v *Virtualizer) Count() int { return v.count }

// Reset replaces the item count and discards all measurements.
func (v *Virtualizer) Reset(count int) {
	v.count = count
	v.measured = make(map[int]float64)
	v.dirty = true
}

// Measure records the rendered size of one item. Out-of-range indices
// are ignored.
func (v *Virtualizer) Measure(index int, size float64) {
	if index < 0 || index >= v.count || size <= 0 {
		return
	}
	if v.measured[index] == size {
		return
	}
	v.measured[index] = size
	v.dirty = true
}

func (v *Virtualizer) sizeOf(index int) float64 {
	if size, ok := v.measured[index]; ok {
		return size
	}
	if v.cfg.Estimate != nil {
		if size := v.cfg.Estimate(index); size > 0 {
			return size
		}
	}
	return v.cfg.DefaultSize
}

// rebuild recomputes the prefix-sum offset table. offsets has
// count+1 entries; offsets[i] is where item i starts and the final
// entry is the total size.
func (v *Virtualizer) rebuild() {
	if !v.dirty && len(v.offsets) == v.count+1 {
		return
	}
	v.offsets = make([]float64, v.count+1)
	for i := 0; i < v.count; i++ {
		v.offsets[i+1] = v.offsets[i] + v.sizeOf(i)
	}
	v.dirty = false
}

// TotalSize returns the summed size of all items.
func (v *Virtualizer) TotalSize() float64 {
	v.rebuild()
	return v.offsets[v.count]
}

// Window returns the items overlapping [scrollOffset,
// scrollOffset+viewport], expanded by the configured overscan. An
// item touching the viewport edge counts as visible.
func (v *Virtualizer) Window(scrollOffset, viewport float64) []VirtualItem {
	if v.count == 0 || viewport <= 0 {
		return nil
	}
	v.rebuild()

	if scrollOffset < 0 {
		scrollOffset = 0
	}

	first := sort.Search(v.count, func(i int) bool {
		return v.offsets[i+1] > scrollOffset
	})
	last := sort.Search(v.count, func(i int) bool {
		return v.offsets[i] > scrollOffset+viewport
	}) - 1

	first -= v.cfg.Overscan
	last += v.cfg.Overscan
	if first < 0 {
		first = 0
	}
	if last > v.count-1 {
		last = v.count - 1
	}
	if last < first {
		return nil
	}

	items := make([]VirtualItem, 0, last-first+1)
	for i := first; i <= last; i++ {
		items = append(items, VirtualItem{
			Index: i,
			Start: v.offsets[i],
			Size:  v.offsets[i+1] - v.offsets[i],
		})
	}
	return items
}
