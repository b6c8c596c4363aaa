package series

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// Series is an ordered sequence of (timestamp, value) observations with
// strictly increasing timestamps. A Series is immutable once constructed;
// transforms return new instances.
type Series struct {
	times  []time.Time
	values []float64
}

// New builds a Series from parallel slices. Timestamps must be strictly
// increasing with no duplicates.
func New(times []time.Time, values []float64) (*Series, error) {
	if len(times) != len(values) {
		return nil, errors.Newf("times and values length mismatch: %d vs %d", len(times), len(values))
	}
	for i := 1; i < len(times); i++ {
		if !times[i].After(times[i-1]) {
			return nil, errors.Newf("timestamps not strictly increasing at index %d", i)
		}
	}
	t := make([]time.Time, len(times))
	v := make([]float64, len(values))
	copy(t, times)
	copy(v, values)
	return &Series{times: t, values: v}, nil
}

// Empty returns a zero-length Series
func Empty() *Series {
	return &Series{}
}

// Len returns the number of observations
func (s *Series) Len() int {
	return len(s.values)
}

// Times returns the timestamps as a read-only view
func (s *Series) Times() []time.Time {
	return s.times
}

// Values returns the observation values as a read-only view
func (s *Series) Values() []float64 {
	return s.values
}

// At returns the observation at index i
func (s *Series) At(i int) (time.Time, float64) {
	return s.times[i], s.values[i]
}

// ValueAt returns the value for an exact timestamp
func (s *Series) ValueAt(t time.Time) (float64, bool) {
	i := sort.Search(len(s.times), func(i int) bool { return !s.times[i].Before(t) })
	if i < len(s.times) && s.times[i].Equal(t) {
		return s.values[i], true
	}
	return 0, false
}

// First returns the earliest observation; ok is false when empty
func (s *Series) First() (time.Time, float64, bool) {
	if s.Len() == 0 {
		return time.Time{}, 0, false
	}
	return s.times[0], s.values[0], true
}

// Last returns the latest observation; ok is false when empty
func (s *Series) Last() (time.Time, float64, bool) {
	if s.Len() == 0 {
		return time.Time{}, 0, false
	}
	n := s.Len() - 1
	return s.times[n], s.values[n], true
}

// AddAligned returns a Series whose values are s plus the values of other at
// matching timestamps, treating missing entries in other as zero. Used to
// fold a dividend stream into a price series before return computation.
func (s *Series) AddAligned(other *Series) *Series {
	if other == nil || other.Len() == 0 {
		return s
	}
	values := make([]float64, s.Len())
	for i, t := range s.times {
		values[i] = s.values[i]
		if v, ok := other.ValueAt(t); ok {
			values[i] += v
		}
	}
	return &Series{times: s.times, values: values}
}

// InnerJoin returns the values of a and b restricted to their common
// timestamps, in timestamp order.
func InnerJoin(a, b *Series) ([]float64, []float64) {
	var av, bv []float64
	i, j := 0, 0
	for i < a.Len() && j < b.Len() {
		switch {
		case a.times[i].Before(b.times[j]):
			i++
		case b.times[j].Before(a.times[i]):
			j++
		default:
			av = append(av, a.values[i])
			bv = append(bv, b.values[j])
			i++
			j++
		}
	}
	return av, bv
}

// RollingStd returns the trailing-window sample standard deviation, one
// output point per input point once window observations have accumulated.
// The first window-1 points are omitted.
func (s *Series) RollingStd(window int) (*Series, error) {
	if window <= 1 {
		return nil, errors.Newf("rolling window must be greater than 1, got %d", window)
	}
	if s.Len() < window {
		return nil, errors.InsufficientData("series shorter than rolling window")
	}
	n := s.Len() - window + 1
	times := make([]time.Time, n)
	values := make([]float64, n)
	for i := 0; i < n; i++ {
		times[i] = s.times[i+window-1]
		values[i] = stat.StdDev(s.values[i:i+window], nil)
	}
	return &Series{times: times, values: values}, nil
}

// Quantile returns the lower empirical quantile of values: the element with
// rank ceil(q*n) in the ascending order statistics. With five observations
// and q=0.2 this is the single worst value. Callers need enough history that
// the target rank is meaningful; with q in (0,1) and a non-empty sample the
// rank is always at least 1.
func Quantile(values []float64, q float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.InsufficientData("cannot take quantile of empty sample")
	}
	if q <= 0 || q >= 1 {
		return 0, errors.Newf("quantile probability must be in (0, 1), got %g", q)
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	rank := int(math.Ceil(q * float64(len(sorted))))
	if rank < 1 {
		rank = 1
	}
	return sorted[rank-1], nil
}
