// Package analysis contains the return-table analyzers. Every analyzer is a
// pure function of the return data it is handed plus its own configuration;
// nothing here mutates an input frame, so analyzers over the same table can
// run concurrently without coordination.
package analysis

import (
	"github.com/empirical-ra/riskengine/internal/series"
	"github.com/empirical-ra/riskengine/pkg/utils/errors"
)

// annualize scales a periodic mean or variance by the periods-per-year
// constant for the frequency. Linear scaling only; horizon scaling for VaR
// uses the sqrt-time rule and lives with the risk calculators.
func annualize(periodic float64, freq series.Frequency) (float64, error) {
	periods, err := series.PeriodsPerYear(freq)
	if err != nil {
		return 0, err
	}
	return periodic * periods, nil
}

func errNoColumn(name string) error {
	return errors.NotFound("no column named " + name)
}
