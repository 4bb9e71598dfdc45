// Package merge tags the position samples with the lap in progress.
package merge

import (
	"sort"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/laps"
)

// Merge returns a copy of the samples with LapNumber set.
//
// A sample is tagged with a lap if its session time is within
// [LapStartTime, LapEndTime). Untagged samples carry the lap of the
// previous sample of the same driver. Samples after the end of the final
// lap get the pseudo lap totalLaps+1.
func Merge(samples []model.PositionSample, idx *laps.Index, totalLaps int) []model.PositionSample {
	logger := log.Default().Named("proc.merge")
	ret := make([]model.PositionSample, len(samples))
	copy(ret, samples)

	byStart := make(map[string][]*model.LapRecord)
	lastLap := make(map[string]null.Val[int])
	tagged, filled, finished := 0, 0, 0
	for i := range ret {
		s := &ret[i]
		starts, ok := byStart[s.DriverID]
		if !ok {
			starts = lapsByStart(idx.Laps(s.DriverID))
			byStart[s.DriverID] = starts
		}
		if lap := lapAt(starts, s.SessionTime); lap != nil {
			s.LapNumber = null.From(lap.LapNumber)
			tagged++
		} else if prev := lastLap[s.DriverID]; prev.IsValue() {
			s.LapNumber = prev
			filled++
		}
		lastLap[s.DriverID] = s.LapNumber

		if crossedFinish(s, idx, totalLaps) {
			s.LapNumber = null.From(totalLaps + 1)
			finished++
		}
	}
	logger.Debug("samples merged",
		log.Int("tagged", tagged),
		log.Int("filled", filled),
		log.Int("finished", finished),
		log.Int("untagged", len(ret)-tagged-filled))
	return ret
}

// lapsByStart returns the laps with a known start time ordered by start time
func lapsByStart(recs []*model.LapRecord) []*model.LapRecord {
	ret := make([]*model.LapRecord, 0, len(recs))
	for _, r := range recs {
		if r.LapStartTime.IsValue() && r.LapEndTime.IsValue() {
			ret = append(ret, r)
		}
	}
	sort.SliceStable(ret, func(a, b int) bool {
		return ret[a].LapStartTime.MustGet() < ret[b].LapStartTime.MustGet()
	})
	return ret
}

// lapAt returns the lap whose interval [start,end) contains t
func lapAt(recs []*model.LapRecord, t int64) *model.LapRecord {
	i := sort.Search(len(recs), func(i int) bool {
		return recs[i].LapStartTime.MustGet() > t
	})
	if i == 0 {
		return nil
	}
	if t < recs[i-1].LapEndTime.MustGet() {
		return recs[i-1]
	}
	return nil
}

// crossedFinish is true if the sample is on the final lap but after its end.
// Only laps with a known lap time count as completed.
func crossedFinish(s *model.PositionSample, idx *laps.Index, totalLaps int) bool {
	if totalLaps <= 0 {
		return false
	}
	if lap, ok := s.LapNumber.Get(); !ok || lap != totalLaps {
		return false
	}
	rec := idx.Lap(s.DriverID, totalLaps)
	if rec == nil || !rec.LapTimeKnown {
		return false
	}
	end, ok := rec.LapEndTime.Get()
	return ok && s.SessionTime > end
}
