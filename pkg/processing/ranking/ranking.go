// Package ranking computes lap completion and the race order per tick.
package ranking

import (
	"sort"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/laps"
)

type Result struct {
	// same order as the input samples
	Samples []model.RankedSample
	// end of the final lap of the first finisher
	EndOfRaceTime null.Val[int64]
	// first tick with frozen positions, 0 if positions were never frozen
	FrozenFromTick int
}

// Rank computes the lap completion of every sample and the position index
// at every tick. Once the race is decided the positions are frozen.
//
//nolint:funlen // ok here
func Rank(samples []model.PositionSample, idx *laps.Index, totalLaps int) *Result {
	logger := log.Default().Named("proc.ranking")
	ret := &Result{
		Samples:       make([]model.RankedSample, len(samples)),
		EndOfRaceTime: EndOfRaceTime(idx, samples, totalLaps),
	}
	for i := range samples {
		ret.Samples[i] = model.RankedSample{
			PositionSample: samples[i],
			LapCompletion:  Completion(&samples[i], idx, totalLaps),
		}
	}

	ticks := GroupByTick(len(ret.Samples), func(i int) int {
		return ret.Samples[i].Tick
	})
	end, hasEnd := ret.EndOfRaceTime.Get()
	frozen := false
	lastIndex := make(map[string]int)
	for tickIdx, rows := range ticks {
		if len(rows) == 0 {
			continue
		}
		if !frozen && hasEnd {
			frozen = lo.SomeBy(rows, func(i int) bool {
				return ret.Samples[i].SessionTime >= end
			})
			if frozen {
				ret.FrozenFromTick = tickIdx + 1
			}
		}
		ordered := make([]int, len(rows))
		copy(ordered, rows)
		if frozen {
			sort.SliceStable(ordered, func(a, b int) bool {
				return frozenKey(lastIndex, &ret.Samples[ordered[a]]) <
					frozenKey(lastIndex, &ret.Samples[ordered[b]])
			})
		} else {
			sort.SliceStable(ordered, func(a, b int) bool {
				return ret.Samples[ordered[a]].LapCompletion >
					ret.Samples[ordered[b]].LapCompletion
			})
		}
		for pos, i := range ordered {
			ret.Samples[i].PositionIndex = pos
			lastIndex[ret.Samples[i].DriverID] = pos
		}
	}
	markFastestLap(ret.Samples, ticks, idx, totalLaps)

	logger.Debug("samples ranked",
		log.Int("samples", len(ret.Samples)),
		log.Int("ticks", len(ticks)),
		log.Int("frozenFromTick", ret.FrozenFromTick))
	return ret
}

// frozenKey orders drivers by their last known position.
// Drivers without a position are appended.
func frozenKey(lastIndex map[string]int, s *model.RankedSample) int {
	if v, ok := lastIndex[s.DriverID]; ok {
		return v
	}
	return len(lastIndex)
}

// Completion returns lap number - 1 + fraction of the lap done.
// Samples without lap get 0, samples on the pseudo lap get totalLaps.
func Completion(s *model.PositionSample, idx *laps.Index, totalLaps int) float64 {
	lap, ok := s.LapNumber.Get()
	if !ok {
		return 0
	}
	if totalLaps > 0 && lap > totalLaps {
		return float64(totalLaps)
	}
	return float64(lap-1) + lapPercentage(idx.Lap(s.DriverID, lap), s.SessionTime)
}

func lapPercentage(rec *model.LapRecord, t int64) float64 {
	if rec == nil || !rec.LapTimeKnown {
		return 0
	}
	start, ok := rec.LapStartTime.Get()
	if !ok {
		return 0
	}
	pct := float64(t-start) / float64(rec.LapTime)
	return min(max(pct, 0), 1)
}

// EndOfRaceTime is the earliest end of a completed final lap among the
// drivers present in the samples. Null if totalLaps is unknown or nobody
// completed the final lap.
func EndOfRaceTime(idx *laps.Index, samples []model.PositionSample, totalLaps int) null.Val[int64] {
	var ret null.Val[int64]
	if totalLaps <= 0 {
		return ret
	}
	drivers := lo.Uniq(lo.Map(samples, func(s model.PositionSample, _ int) string {
		return s.DriverID
	}))
	for _, d := range drivers {
		rec := idx.Lap(d, totalLaps)
		if rec == nil || !rec.LapTimeKnown {
			continue
		}
		if end, ok := rec.LapEndTime.Get(); ok {
			if cur, curOk := ret.Get(); !curOk || end < cur {
				ret = null.From(end)
			}
		}
	}
	return ret
}

// GroupByTick returns the row indexes per tick (index 0 is tick 1)
// keeping the input order within a tick.
func GroupByTick(n int, tick func(i int) int) [][]int {
	maxTick := 0
	for i := 0; i < n; i++ {
		maxTick = max(maxTick, tick(i))
	}
	ret := make([][]int, maxTick)
	for i := 0; i < n; i++ {
		t := tick(i) - 1
		ret[t] = append(ret[t], i)
	}
	return ret
}

// markFastestLap evaluates the fastest lap so far in (tick, completion
// descending) order, also after the positions are frozen.
// The driver who first reaches a new session best holds the flag until
// somebody beats it.
func markFastestLap(rows []model.RankedSample, ticks [][]int, idx *laps.Index, totalLaps int) {
	var best null.Val[int64]
	holder := ""
	for _, tickRows := range ticks {
		ordered := make([]int, len(tickRows))
		copy(ordered, tickRows)
		sort.SliceStable(ordered, func(a, b int) bool {
			return rows[ordered[a]].LapCompletion > rows[ordered[b]].LapCompletion
		})
		for _, i := range ordered {
			r := &rows[i]
			if fsf, ok := fastestSoFar(r, idx, totalLaps).Get(); ok {
				if b, bOk := best.Get(); !bOk || fsf < b {
					best = null.From(fsf)
					holder = r.DriverID
				}
			}
			r.HasFastestLap = holder != "" && r.DriverID == holder
		}
	}
}

func fastestSoFar(r *model.RankedSample, idx *laps.Index, totalLaps int) null.Val[int64] {
	lap, ok := r.LapNumber.Get()
	if !ok {
		return null.Val[int64]{}
	}
	if totalLaps > 0 && lap > totalLaps {
		if rec := idx.Lap(r.DriverID, totalLaps); rec != nil {
			return rec.FastestIncluding()
		}
		return null.Val[int64]{}
	}
	if rec := idx.Lap(r.DriverID, lap); rec != nil {
		return rec.FastestSoFar
	}
	return null.Val[int64]{}
}
