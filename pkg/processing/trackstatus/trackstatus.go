// Package trackstatus maps the track status entries onto the tick axis.
package trackstatus

import (
	"math"
	"sort"
	"time"

	"github.com/aarondl/opt/null"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
)

// Build creates the track status intervals for the ticks 1..tickSpan.
// Each entry is valid until the next entry, the last one until sessionEnd
// (open-ended if null). A tick belongs to an interval if its reference time
// (the earliest session time of all drivers at that tick) is within
// [start, end). Intervals without ticks are dropped.
func Build(
	entries []model.TrackStatusEntry,
	sessionEnd null.Val[time.Duration],
	rows []model.RaceStateRow,
	tickSpan int,
) []model.TrackStatusInterval {
	logger := log.Default().Named("proc.trackstatus")
	ref := ReferenceTimes(rows, tickSpan)
	ret := make([]model.TrackStatusInterval, 0, len(entries))

	sorted := make([]model.TrackStatusEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(a, b int) bool { return sorted[a].Time < sorted[b].Time })

	for k, e := range sorted {
		start := e.Time.Milliseconds()
		end := int64(math.MaxInt64)
		if k+1 < len(sorted) {
			end = sorted[k+1].Time.Milliseconds()
		} else if v, ok := sessionEnd.Get(); ok {
			end = v.Milliseconds()
		}
		// first tick with ref >= start
		first := sort.Search(len(ref), func(i int) bool { return ref[i] >= start })
		// last tick with ref < end
		last := sort.Search(len(ref), func(i int) bool { return ref[i] >= end }) - 1
		if first > last {
			continue
		}
		code := model.TrackStatusCode(e.Status)
		label, color, textColor := model.TrackStatusStyle(code)
		ret = append(ret, model.TrackStatusInterval{
			Status:    code,
			Label:     label,
			Message:   e.Message,
			Color:     color,
			TextColor: textColor,
			StartTick: first + 1,
			EndTick:   last + 1,
		})
	}
	logger.Debug("track status mapped",
		log.Int("entries", len(entries)),
		log.Int("intervals", len(ret)))
	return ret
}

// ReferenceTimes returns the earliest session time per tick (index 0 is tick 1)
func ReferenceTimes(rows []model.RaceStateRow, tickSpan int) []int64 {
	ret := make([]int64, tickSpan)
	for i := range ret {
		ret[i] = math.MaxInt64
	}
	for i := range rows {
		if t := rows[i].Tick; t >= 1 && t <= tickSpan {
			ret[t-1] = min(ret[t-1], rows[i].SessionTime)
		}
	}
	return ret
}
