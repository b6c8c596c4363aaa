package series

import (
	"math"
	"time"

	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// Frequency tags the sampling interval of a return series
type Frequency string

const (
	Daily   Frequency = "daily"
	Monthly Frequency = "monthly"
	Yearly  Frequency = "yearly"
)

// PeriodsPerYear returns the annualization factor for a frequency. The factor
// scales periodic means and variances linearly; it is not the sqrt-time
// horizon scaling used for VaR.
func PeriodsPerYear(freq Frequency) (float64, error) {
	switch freq {
	case Daily:
		return 252, nil
	case Monthly:
		return 12, nil
	case Yearly:
		return 1, nil
	default:
		return 0, errors.UnsupportedFrequency("unknown frequency: " + string(freq))
	}
}

// Returns derives simple percentage returns at the requested frequency.
// Monthly and yearly returns are computed on the last observation of each
// calendar month or year. The first period has no prior reference and is
// dropped, so the result has one fewer point than the (resampled) source.
func (s *Series) Returns(freq Frequency) (*Series, error) {
	switch freq {
	case Daily:
		return s.PctChange()
	case Monthly, Yearly:
		resampled, err := s.Resample(freq)
		if err != nil {
			return nil, err
		}
		return resampled.PctChange()
	default:
		return nil, errors.UnsupportedFrequency("unknown frequency: " + string(freq))
	}
}

// PctChange returns the simple percentage change between consecutive
// observations
func (s *Series) PctChange() (*Series, error) {
	if s.Len() <= 1 {
		return nil, errors.InsufficientData("need at least two observations to compute returns")
	}
	times := make([]time.Time, s.Len()-1)
	values := make([]float64, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		times[i-1] = s.times[i]
		values[i-1] = s.values[i]/s.values[i-1] - 1
	}
	return &Series{times: times, values: values}, nil
}

// LogReturns returns the natural-log price relatives between consecutive
// observations
func (s *Series) LogReturns() (*Series, error) {
	if s.Len() <= 1 {
		return nil, errors.InsufficientData("need at least two observations to compute returns")
	}
	times := make([]time.Time, s.Len()-1)
	values := make([]float64, s.Len()-1)
	for i := 1; i < s.Len(); i++ {
		times[i-1] = s.times[i]
		values[i-1] = math.Log(s.values[i] / s.values[i-1])
	}
	return &Series{times: times, values: values}, nil
}

// Resample reduces the series to the last observation in each calendar month
// or year
func (s *Series) Resample(freq Frequency) (*Series, error) {
	var key func(time.Time) int
	switch freq {
	case Monthly:
		key = func(t time.Time) int { return t.Year()*100 + int(t.Month()) }
	case Yearly:
		key = func(t time.Time) int { return t.Year() }
	default:
		return nil, errors.UnsupportedFrequency("resample supports monthly and yearly, got " + string(freq))
	}

	var times []time.Time
	var values []float64
	for i := 0; i < s.Len(); i++ {
		if i+1 < s.Len() && key(s.times[i+1]) == key(s.times[i]) {
			continue
		}
		times = append(times, s.times[i])
		values = append(values, s.values[i])
	}
	return &Series{times: times, values: values}, nil
}
