package laps

import (
	"sort"

	"github.com/mpapenbr/sessionreplay/pkg/model"
)

// Index provides the laps of each driver ordered by lap number.
type Index struct {
	byDriver map[string][]*model.LapRecord
}

func NewIndex(recs []model.LapRecord) *Index {
	ret := &Index{byDriver: make(map[string][]*model.LapRecord)}
	for i := range recs {
		r := &recs[i]
		ret.byDriver[r.DriverID] = append(ret.byDriver[r.DriverID], r)
	}
	for _, l := range ret.byDriver {
		sort.SliceStable(l, func(a, b int) bool {
			return l[a].LapNumber < l[b].LapNumber
		})
	}
	return ret
}

// Laps returns the laps of the driver ordered by lap number
func (idx *Index) Laps(driverID string) []*model.LapRecord {
	return idx.byDriver[driverID]
}

// Lap returns the record of the given lap or nil if there is none
func (idx *Index) Lap(driverID string, lap int) *model.LapRecord {
	l := idx.byDriver[driverID]
	i := sort.Search(len(l), func(i int) bool { return l[i].LapNumber >= lap })
	if i < len(l) && l[i].LapNumber == lap {
		return l[i]
	}
	return nil
}

// Classification returns the record used to classify a driver on the given lap.
// Lap numbers outside the recorded range are clamped to the first/last record.
func (idx *Index) Classification(driverID string, lap int) *model.LapRecord {
	l := idx.byDriver[driverID]
	if len(l) == 0 {
		return nil
	}
	if lap <= l[0].LapNumber {
		return l[0]
	}
	if lap >= l[len(l)-1].LapNumber {
		return l[len(l)-1]
	}
	// last record with LapNumber <= lap
	i := sort.Search(len(l), func(i int) bool { return l[i].LapNumber > lap })
	return l[i-1]
}
