// Package replay provides read access to a computed race state by tick.
package replay

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/mpapenbr/sessionreplay/pkg/model"
)

// Table is a read-only view on a RaceState.
// All methods are safe for concurrent use.
type Table struct {
	state    *model.RaceState
	byTick   [][]*model.RaceStateRow // index tick-1, ordered by position index
	byDriver map[string][]*model.RaceStateRow
	drivers  map[string]model.Driver
}

func NewTable(state *model.RaceState) *Table {
	ret := &Table{
		state:    state,
		byDriver: make(map[string][]*model.RaceStateRow),
		drivers:  lo.KeyBy(state.Drivers, func(d model.Driver) string { return d.ID }),
	}
	maxTick := lo.Reduce(state.Rows, func(agg int, r model.RaceStateRow, _ int) int {
		return max(agg, r.Tick)
	}, 0)
	ret.byTick = make([][]*model.RaceStateRow, maxTick)
	for i := range state.Rows {
		r := &state.Rows[i]
		ret.byTick[r.Tick-1] = append(ret.byTick[r.Tick-1], r)
		ret.byDriver[r.DriverID] = append(ret.byDriver[r.DriverID], r)
	}
	for _, rows := range ret.byTick {
		sort.SliceStable(rows, func(a, b int) bool {
			return rows[a].PositionIndex < rows[b].PositionIndex
		})
	}
	for _, rows := range ret.byDriver {
		sort.SliceStable(rows, func(a, b int) bool { return rows[a].Tick < rows[b].Tick })
	}
	return ret
}

func (t *Table) State() *model.RaceState {
	return t.state
}

func (t *Table) TickSpan() int {
	return t.state.TickSpan
}

func (t *Table) Driver(id string) (model.Driver, bool) {
	d, ok := t.drivers[id]
	return d, ok
}

// Row returns the row of a driver at a tick
func (t *Table) Row(driverID string, tick int) (*model.RaceStateRow, bool) {
	rows := t.byDriver[driverID]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Tick >= tick })
	if i < len(rows) && rows[i].Tick == tick {
		return rows[i], true
	}
	return nil, false
}

// Frame returns the rows at a tick ordered by position index
func (t *Table) Frame(tick int) []*model.RaceStateRow {
	if tick < 1 || tick > len(t.byTick) {
		return nil
	}
	return t.byTick[tick-1]
}

// CurrentLap is the lap of the leader at tick, limited to [1, total laps]
func (t *Table) CurrentLap(tick int) int {
	frame := t.Frame(tick)
	lap := 1
	if len(frame) > 0 {
		lap = max(frame[0].LapNumber.GetOr(1), 1)
	}
	if t.state.TotalLaps > 0 {
		lap = min(lap, t.state.TotalLaps)
	}
	return lap
}

func (t *Table) LapCounterText(tick int) string {
	return fmt.Sprintf("LAP %d/%d", t.CurrentLap(tick), t.state.TotalLaps)
}

// TrackStatus returns the track status interval containing tick
func (t *Table) TrackStatus(tick int) (model.TrackStatusInterval, bool) {
	return lo.Find(t.state.TrackStatus, func(i model.TrackStatusInterval) bool {
		return i.StartTick <= tick && tick <= i.EndTick
	})
}

type Mode string

const (
	ModeInterval Mode = "interval"
	ModeLeader   Mode = "leader"
	ModePits     Mode = "pits"
	ModeTires    Mode = "tires"
)

func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	if !lo.Contains([]Mode{ModeInterval, ModeLeader, ModePits, ModeTires}, m) {
		return "", fmt.Errorf("unknown leaderboard mode %q", s)
	}
	return m, nil
}

type LeaderboardEntry struct {
	Position      int         `json:"position"`
	DriverID      string      `json:"driverId"`
	Abbreviation  string      `json:"abbreviation"`
	TeamColor     model.Color `json:"teamColor"`
	Text          string      `json:"text"`
	Tire          string      `json:"tire"`
	TireColor     model.Color `json:"tireColor"`
	Finished      bool        `json:"finished"`
	FastestLap    bool        `json:"fastestLap"`
	DNF           bool        `json:"dnf"`
	HighlightText bool        `json:"highlightText"`
}

// Leaderboard returns the entries at tick ordered by position
func (t *Table) Leaderboard(tick int, mode Mode) []LeaderboardEntry {
	frame := t.Frame(tick)
	ret := make([]LeaderboardEntry, 0, len(frame))
	for _, r := range frame {
		d := t.drivers[r.DriverID]
		e := LeaderboardEntry{
			Position:     r.PositionIndex + 1,
			DriverID:     r.DriverID,
			Abbreviation: d.Abbreviation,
			TeamColor:    d.TeamColor,
			Finished:     r.IsFinished,
			FastestLap:   r.HasFastestLap,
			DNF:          r.IsDNF,
		}
		if e.Abbreviation == "" {
			e.Abbreviation = r.DriverID
		}
		if !r.IsDNF {
			e.Tire = r.TireCompound
			e.TireColor = r.TireCompoundColor
		}
		e.Text, e.HighlightText = entryText(r, mode)
		ret = append(ret, e)
	}
	return ret
}

// entryText returns the time column text. highlight is set for cars in the pit lane.
func entryText(r *model.RaceStateRow, mode Mode) (text string, highlight bool) {
	switch mode {
	case ModeInterval, ModeLeader:
		switch {
		case r.PositionIndex == 0 && mode == ModeInterval:
			return "Interval", false
		case r.PositionIndex == 0:
			return "Leader", false
		case r.IsDNF:
			return "OUT", false
		case r.InPit:
			return "IN PIT", true
		case mode == ModeInterval:
			return "+" + formatGap(r.DiffToCarInFront), false
		default:
			return "+" + formatGap(r.DiffToLeader), false
		}
	case ModePits:
		if r.IsDNF {
			return "OUT", false
		}
		return strconv.Itoa(r.PitStops), r.InPit
	case ModeTires:
		if r.IsDNF {
			return "OUT", false
		}
		if v, ok := r.TyreLife.Get(); ok {
			return strconv.Itoa(int(v)), false
		}
		return "", false
	}
	return "", false
}

func formatGap(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
