// Package laps turns provider lap rows into normalized LapRecords.
package laps

import (
	"fmt"
	"sort"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/samber/lo"

	"github.com/mpapenbr/sessionreplay/log"
	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/procerr"
)

// UnknownLapTime is used for laps without a lap time
const UnknownLapTime int64 = 1

type Result struct {
	// same order and row count as the input
	Laps []model.LapRecord
	Gaps []*procerr.GapError
}

type driverLap struct {
	driverID string
	lap      int
}

// Normalize validates the raw lap rows, repairs missing sector session times
// and computes sector deltas, last lap time and fastest lap so far.
// If totalLaps is > 0 lap numbers above totalLaps are rejected.
//
//nolint:funlen // ok here
func Normalize(raw []model.RawLap, totalLaps int) (*Result, error) {
	logger := log.Default().Named("proc.laps")
	if err := validate(raw, totalLaps); err != nil {
		return nil, err
	}
	ret := &Result{
		Laps: make([]model.LapRecord, len(raw)),
		Gaps: make([]*procerr.GapError, 0),
	}
	for i := range raw {
		rec, gaps := convert(&raw[i])
		if err := checkSectorOrder(i, &rec); err != nil {
			return nil, err
		}
		ret.Laps[i] = rec
		ret.Gaps = append(ret.Gaps, gaps...)
	}
	computeLapHistory(ret.Laps)
	for s := 0; s < model.NumSectors; s++ {
		computeSectorDelta(ret.Laps, s)
	}
	for _, g := range ret.Gaps {
		logger.Debug("gap in lap data",
			log.String("driver", g.DriverID),
			log.Int("lap", g.Lap),
			log.String("field", g.Field))
	}
	logger.Debug("laps normalized",
		log.Int("laps", len(ret.Laps)),
		log.Int("gaps", len(ret.Gaps)))
	return ret, nil
}

//nolint:gocyclo,cyclop // a list of simple checks
func validate(raw []model.RawLap, totalLaps int) error {
	invalid := func(row int, field, reason string) error {
		return &procerr.ValidationError{
			Source: "lap", Row: row, Field: field, Reason: reason,
		}
	}
	seen := make(map[driverLap]int, len(raw))
	for i := range raw {
		r := &raw[i]
		if r.DriverID == "" {
			return invalid(i, "DriverID", "must not be empty")
		}
		if r.LapNumber < 1 {
			return invalid(i, "LapNumber", fmt.Sprintf("%d is below 1", r.LapNumber))
		}
		if totalLaps > 0 && r.LapNumber > totalLaps {
			return invalid(i, "LapNumber",
				fmt.Sprintf("%d exceeds total laps %d", r.LapNumber, totalLaps))
		}
		key := driverLap{r.DriverID, r.LapNumber}
		if prev, ok := seen[key]; ok {
			return invalid(i, "LapNumber",
				fmt.Sprintf("duplicate of row %d", prev))
		}
		seen[key] = i

		durations := []struct {
			name string
			v    null.Val[time.Duration]
		}{
			{"LapStartTime", r.LapStartTime},
			{"Sector1Time", r.SectorTime[0]},
			{"Sector2Time", r.SectorTime[1]},
			{"Sector3Time", r.SectorTime[2]},
			{"Sector1SessionTime", r.SectorSessionTime[0]},
			{"Sector2SessionTime", r.SectorSessionTime[1]},
			{"Sector3SessionTime", r.SectorSessionTime[2]},
			{"LapTime", r.LapTime},
			{"PitInTime", r.PitInTime},
			{"PitOutTime", r.PitOutTime},
		}
		for _, d := range durations {
			if v, ok := d.v.Get(); ok && v < 0 {
				return invalid(i, d.name, fmt.Sprintf("negative duration %s", v))
			}
		}
		if v, ok := r.LapTime.Get(); ok && v == 0 {
			return invalid(i, "LapTime", "must not be zero")
		}
		if v, ok := r.Position.Get(); ok && v < 1 {
			return invalid(i, "Position", fmt.Sprintf("%d is below 1", v))
		}
	}
	return nil
}

func toMillis(v null.Val[time.Duration]) null.Val[int64] {
	if d, ok := v.Get(); ok {
		return null.From(d.Milliseconds())
	}
	return null.Val[int64]{}
}

// convert repairs the sector session times and converts all values to ms
func convert(r *model.RawLap) (model.LapRecord, []*procerr.GapError) {
	var gaps []*procerr.GapError
	gap := func(field string) {
		gaps = append(gaps, &procerr.GapError{
			DriverID: r.DriverID, Lap: r.LapNumber, Field: field,
		})
	}
	if r.LapStartTime.IsNull() {
		gap("LapStartTime")
	}

	// sector boundaries are repaired before truncation to ms
	sessionTimes := r.SectorSessionTime
	prev := r.LapStartTime
	for s := 0; s < model.NumSectors; s++ {
		if sessionTimes[s].IsNull() {
			p, pOk := prev.Get()
			st, stOk := r.SectorTime[s].Get()
			if pOk && stOk {
				sessionTimes[s] = null.From(p + st)
			} else {
				gap(fmt.Sprintf("Sector%dSessionTime", s+1))
			}
		}
		prev = sessionTimes[s]
	}

	ret := model.LapRecord{
		DriverID:     r.DriverID,
		LapNumber:    r.LapNumber,
		LapStartTime: toMillis(r.LapStartTime),
		LapTime:      UnknownLapTime,
		PitInTime:    toMillis(r.PitInTime),
		PitOutTime:   toMillis(r.PitOutTime),
		Position:     r.Position,
		Compound:     r.Compound,
		TyreLife:     r.TyreLife,
	}
	for s := 0; s < model.NumSectors; s++ {
		ret.SectorTime[s] = toMillis(r.SectorTime[s])
		ret.SectorSessionTime[s] = toMillis(sessionTimes[s])
	}
	if lt, ok := r.LapTime.Get(); ok {
		ret.LapTime = max(lt.Milliseconds(), UnknownLapTime)
		ret.LapTimeKnown = true
	}
	if start, ok := ret.LapStartTime.Get(); ok {
		ret.LapEndTime = null.From(start + ret.LapTime)
	}
	return ret, gaps
}

// checkSectorOrder verifies the known sector session times are ascending and
// do not exceed the lap end. The lap end may be 1 ms early because start and
// lap time are truncated separately.
func checkSectorOrder(row int, rec *model.LapRecord) error {
	prevField := ""
	var prev int64
	for s := 0; s < model.NumSectors; s++ {
		st, ok := rec.SectorSessionTime[s].Get()
		if !ok {
			continue
		}
		field := fmt.Sprintf("Sector%dSessionTime", s+1)
		if prevField != "" && st < prev {
			return &procerr.ValidationError{
				Source: "lap", Row: row, Field: field,
				Reason: fmt.Sprintf("%dms is before %s %dms", st, prevField, prev),
			}
		}
		prevField, prev = field, st
	}
	end, ok := rec.LapEndTime.Get()
	if prevField != "" && ok && rec.LapTimeKnown && prev > end+1 {
		return &procerr.ValidationError{
			Source: "lap", Row: row, Field: prevField,
			Reason: fmt.Sprintf("%dms is after lap end %dms", prev, end),
		}
	}
	return nil
}

// computeLapHistory sets LastLapTime and FastestSoFar per driver
func computeLapHistory(recs []model.LapRecord) {
	byDriver := lo.GroupBy(lo.Range(len(recs)), func(i int) string {
		return recs[i].DriverID
	})
	for _, idx := range byDriver {
		sort.SliceStable(idx, func(a, b int) bool {
			return recs[idx[a]].LapNumber < recs[idx[b]].LapNumber
		})
		var fastest null.Val[int64]
		for k, i := range idx {
			if k > 0 {
				prev := &recs[idx[k-1]]
				if prev.LapTimeKnown {
					recs[i].LastLapTime = null.From(prev.LapTime)
				}
			}
			if last, ok := recs[i].LastLapTime.Get(); ok {
				if f, fOk := fastest.Get(); !fOk || last < f {
					fastest = null.From(last)
				}
			}
			recs[i].FastestSoFar = fastest
		}
	}
}

// computeSectorDelta sets the gap to the car which crossed the sector boundary
// right before within the same lap number. Rows without sector session time
// are ordered last and get no delta.
func computeSectorDelta(recs []model.LapRecord, sector int) {
	byLap := lo.GroupBy(lo.Range(len(recs)), func(i int) int {
		return recs[i].LapNumber
	})
	for _, idx := range byLap {
		sort.SliceStable(idx, func(a, b int) bool {
			va, okA := recs[idx[a]].SectorSessionTime[sector].Get()
			vb, okB := recs[idx[b]].SectorSessionTime[sector].Get()
			switch {
			case okA && okB:
				return va < vb
			default:
				return okA && !okB
			}
		})
		for k := 1; k < len(idx); k++ {
			cur, curOk := recs[idx[k]].SectorSessionTime[sector].Get()
			prev, prevOk := recs[idx[k-1]].SectorSessionTime[sector].Get()
			if curOk && prevOk {
				recs[idx[k]].SectorDelta[sector] = null.From(cur - prev)
			}
		}
	}
}
