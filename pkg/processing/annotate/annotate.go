// Package annotate derives the status, gap and tire columns of the race state.
package annotate

import (
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/aarondl/opt/null"
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/floats"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/laps"
	"github.com/mpapenbr/sessionreplay/pkg/processing/ranking"
)

var tireColors = map[string]model.Color{
	"S": model.Red,
	"M": model.Yellow,
	"H": model.White,
	"I": model.Green,
	"W": model.Blue,
}

// TireColor returns the color for a compound code.
// Unknown or empty codes get transparent black.
func TireColor(code string) model.Color {
	if c, ok := tireColors[code]; ok {
		return c
	}
	return model.Transparent
}

// CompoundCode reduces a compound name like "SOFT" to its code "S"
func CompoundCode(compound string) string {
	compound = strings.TrimSpace(compound)
	if compound == "" {
		return ""
	}
	r, _ := utf8.DecodeRuneInString(compound)
	return string(unicode.ToUpper(r))
}

// driverState holds the values carried forward per driver
type driverState struct {
	gapMs    null.Val[int64]
	compound string
	tyreLife null.Val[float64]
}

// Annotate creates the race state rows (same order as ranked).
func Annotate(ranked []model.RankedSample, idx *laps.Index, totalLaps int) []model.RaceStateRow {
	logger := log.Default().Named("proc.annotate")
	ret := make([]model.RaceStateRow, len(ranked))
	pitIns := make(map[string][]int64)
	states := make(map[string]*driverState)

	// rows of a driver have to be processed in tick order for the forward fill
	order := make([]int, len(ranked))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return ranked[order[a]].Tick < ranked[order[b]].Tick
	})
	for _, i := range order {
		r := &ranked[i]
		st, ok := states[r.DriverID]
		if !ok {
			st = &driverState{}
			states[r.DriverID] = st
			pitIns[r.DriverID] = pitInTimes(idx.Laps(r.DriverID))
		}
		row := model.RaceStateRow{RankedSample: *r}
		lapNum := r.LapNumber.GetOr(0)
		pseudo := totalLaps > 0 && lapNum > totalLaps
		cur := idx.Lap(r.DriverID, lapNum)
		if pseudo {
			cur = idx.Lap(r.DriverID, totalLaps)
		}

		row.IsFinished = isFinished(r, idx, totalLaps)
		row.IsDNF = !row.IsFinished && isUnclassified(idx, r.DriverID, lapNum)
		if !pseudo {
			row.InPit = inPit(cur, r.SessionTime)
		}
		row.PitStops = sort.Search(len(pitIns[r.DriverID]), func(k int) bool {
			return pitIns[r.DriverID][k] > r.SessionTime
		})
		if cur != nil {
			if gap, ok := sectorGap(cur, r.SessionTime).Get(); ok {
				st.gapMs = null.From(gap)
			}
			if c, ok := cur.Compound.Get(); ok && CompoundCode(c) != "" {
				st.compound = CompoundCode(c)
			}
			if cur.TyreLife.IsValue() {
				st.tyreLife = cur.TyreLife
			}
		}
		if r.PositionIndex > 0 {
			row.DiffToCarInFront = toSeconds(st.gapMs.GetOr(0))
		}
		row.TireCompound = st.compound
		row.TireCompoundColor = TireColor(st.compound)
		row.TyreLife = st.tyreLife
		ret[i] = row
	}
	computeDiffToLeader(ret)
	logger.Debug("rows annotated", log.Int("rows", len(ret)))
	return ret
}

func isFinished(r *model.RankedSample, idx *laps.Index, totalLaps int) bool {
	if totalLaps <= 0 || r.LapCompletion != float64(totalLaps) {
		return false
	}
	final := idx.Lap(r.DriverID, totalLaps)
	return final != nil && final.Position.IsValue()
}

// isUnclassified is true if the classification record of the lap has no position
func isUnclassified(idx *laps.Index, driverID string, lap int) bool {
	rec := idx.Classification(driverID, lap)
	return rec == nil || rec.Position.IsNull()
}

// inPit checks the pit timestamps of the current lap
func inPit(rec *model.LapRecord, t int64) bool {
	if rec == nil {
		return false
	}
	if in, ok := rec.PitInTime.Get(); ok && in <= t {
		return true
	}
	if out, ok := rec.PitOutTime.Get(); ok && out >= t {
		return true
	}
	return false
}

func pitInTimes(recs []*model.LapRecord) []int64 {
	ret := make([]int64, 0)
	for _, r := range recs {
		if v, ok := r.PitInTime.Get(); ok {
			ret = append(ret, v)
		}
	}
	sort.Slice(ret, func(a, b int) bool { return ret[a] < ret[b] })
	return ret
}

// sectorGap returns the delta of the last sector boundary passed at t.
// Null if no boundary was passed or the delta is unknown.
func sectorGap(rec *model.LapRecord, t int64) null.Val[int64] {
	for s := model.NumSectors - 1; s >= 0; s-- {
		if st, ok := rec.SectorSessionTime[s].Get(); ok && st <= t {
			return rec.SectorDelta[s]
		}
	}
	return null.Val[int64]{}
}

func toSeconds(ms int64) float64 {
	return roundSeconds(decimal.NewFromInt(ms))
}

func roundSeconds(ms decimal.Decimal) float64 {
	return ms.Shift(-3).Round(3).InexactFloat64()
}

// computeDiffToLeader sums up the gaps to the car in front in position order
func computeDiffToLeader(rows []model.RaceStateRow) {
	ticks := ranking.GroupByTick(len(rows), func(i int) int { return rows[i].Tick })
	for _, tickRows := range ticks {
		if len(tickRows) == 0 {
			continue
		}
		ordered := make([]int, len(tickRows))
		copy(ordered, tickRows)
		sort.SliceStable(ordered, func(a, b int) bool {
			return rows[ordered[a]].PositionIndex < rows[ordered[b]].PositionIndex
		})
		// gaps are summed up in ms to avoid accumulating rounding errors
		gaps := make([]float64, len(ordered))
		for k, i := range ordered {
			gaps[k] = rows[i].DiffToCarInFront * 1000
		}
		floats.CumSum(gaps, gaps)
		for k, i := range ordered {
			rows[i].DiffToLeader = roundSeconds(decimal.NewFromFloat(gaps[k]).Round(0))
		}
	}
}
