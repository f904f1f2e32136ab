// Package analysis summarizes how a cache was used during a replay.
package analysis

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/sarchlab/csim/mem/cache"
)

// SetUsageReport describes how evenly the accesses spread over the sets of a
// cache.
type SetUsageReport struct {
	NumSets int `json:"num_sets"`

	AccessMean   float64 `json:"access_mean"`
	AccessStdDev float64 `json:"access_std_dev"`

	// Miss ratios only consider sets that were accessed at least once.
	MissRatioMean   float64 `json:"miss_ratio_mean"`
	MissRatioStdDev float64 `json:"miss_ratio_std_dev"`

	HottestSet         int    `json:"hottest_set"`
	HottestSetAccesses uint64 `json:"hottest_set_accesses"`
	UntouchedSets      int    `json:"untouched_sets"`
}

// SetUsage builds the SetUsageReport of a cache from its per-set counters.
func SetUsage(c *cache.Cache) SetUsageReport {
	sets := c.Sets()

	accesses := make([]float64, len(sets))
	missRatios := make([]float64, 0, len(sets))
	report := SetUsageReport{NumSets: len(sets)}

	for i, set := range sets {
		n := set.Accesses()
		accesses[i] = float64(n)

		if n == 0 {
			report.UntouchedSets++
			continue
		}

		missRatios = append(missRatios, float64(set.Misses)/float64(n))
	}

	report.AccessMean, report.AccessStdDev = stat.PopMeanStdDev(accesses, nil)

	if len(missRatios) > 0 {
		report.MissRatioMean, report.MissRatioStdDev =
			stat.PopMeanStdDev(missRatios, nil)
	}

	report.HottestSet = floats.MaxIdx(accesses)
	report.HottestSetAccesses = sets[report.HottestSet].Accesses()

	return report
}

func (r SetUsageReport) String() string {
	return fmt.Sprintf(
		"sets:%d untouched:%d accesses/set:%.2f±%.2f "+
			"miss-ratio/set:%.4f±%.4f hottest:%d(%d)",
		r.NumSets, r.UntouchedSets,
		r.AccessMean, r.AccessStdDev,
		r.MissRatioMean, r.MissRatioStdDev,
		r.HottestSet, r.HottestSetAccesses,
	)
}
