package series

import (
	"math"
	"sort"
	"time"

	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// Frame is a table of aligned columns over a shared timestamp index. Columns
// are inner-joined at construction: only timestamps present in every source
// series survive, and rows containing NaN are dropped. Misaligned calendars
// would otherwise smear attribution across assets.
type Frame struct {
	names []string
	times []time.Time
	cols  map[string][]float64
}

// NewFrame inner-joins the given series into a frame. Column order follows
// the sorted column names for determinism.
func NewFrame(columns map[string]*Series) (*Frame, error) {
	if len(columns) == 0 {
		return nil, errors.NoPriceData("no columns to join")
	}

	names := make([]string, 0, len(columns))
	for name := range columns {
		names = append(names, name)
	}
	sort.Strings(names)

	// Timestamps present in every column.
	counts := make(map[time.Time]int)
	for _, s := range columns {
		for _, t := range s.times {
			counts[t]++
		}
	}
	var times []time.Time
	for t, c := range counts {
		if c == len(columns) {
			times = append(times, t)
		}
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

	cols := make(map[string][]float64, len(columns))
	for _, name := range names {
		cols[name] = make([]float64, 0, len(times))
	}
	kept := make([]time.Time, 0, len(times))
	for _, t := range times {
		row := make([]float64, len(names))
		valid := true
		for i, name := range names {
			v, ok := columns[name].ValueAt(t)
			if !ok || math.IsNaN(v) {
				valid = false
				break
			}
			row[i] = v
		}
		if !valid {
			continue
		}
		kept = append(kept, t)
		for i, name := range names {
			cols[name] = append(cols[name], row[i])
		}
	}

	if len(kept) == 0 {
		return nil, errors.NoPriceData("no overlapping observations across columns")
	}
	return &Frame{names: names, times: kept, cols: cols}, nil
}

// Names returns the column names in deterministic order
func (f *Frame) Names() []string {
	return f.names
}

// Times returns the shared timestamp index as a read-only view
func (f *Frame) Times() []time.Time {
	return f.times
}

// Len returns the number of rows
func (f *Frame) Len() int {
	return len(f.times)
}

// Column returns the values of a column as a read-only view
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.cols[name]
	return col, ok
}

// ColumnSeries returns a column as a standalone Series
func (f *Frame) ColumnSeries(name string) (*Series, bool) {
	col, ok := f.cols[name]
	if !ok {
		return nil, false
	}
	return &Series{times: f.times, values: col}, true
}

// WeightedSum collapses the frame into a single series of row-wise weighted
// sums. Weights are taken as given; normalization is the caller's concern.
func (f *Frame) WeightedSum(weights map[string]float64) (*Series, error) {
	values := make([]float64, f.Len())
	matched := false
	for name, w := range weights {
		col, ok := f.cols[name]
		if !ok {
			continue
		}
		matched = true
		for i, v := range col {
			values[i] += w * v
		}
	}
	if !matched {
		return nil, errors.WeightMismatch("no weight keys match frame columns")
	}
	return &Series{times: f.times, values: values}, nil
}

// Returns applies the per-column return transform at the requested frequency
// and re-joins the results into a new frame.
func (f *Frame) Returns(freq Frequency) (*Frame, error) {
	out := make(map[string]*Series, len(f.names))
	for _, name := range f.names {
		s, _ := f.ColumnSeries(name)
		r, err := s.Returns(freq)
		if err != nil {
			return nil, errors.Wrapf(err, "returns for column %s", name)
		}
		out[name] = r
	}
	return NewFrame(out)
}
