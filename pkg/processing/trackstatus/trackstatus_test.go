//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package trackstatus

import (
	"testing"
	"time"

	"github.com/aarondl/opt/null"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/sessionreplay/pkg/model"
)

func sampleRows() []model.RaceStateRow {
	ret := make([]model.RaceStateRow, 0)
	for _, d := range []struct {
		id     string
		offset int64
	}{{"A", 0}, {"B", 100}} {
		for tick := 1; tick <= 5; tick++ {
			row := model.RaceStateRow{}
			row.DriverID = d.id
			row.Tick = tick
			row.SessionTime = int64(tick)*1000 + d.offset
			ret = append(ret, row)
		}
	}
	return ret
}

func TestReferenceTimes(t *testing.T) {
	assert.Equal(t, []int64{1000, 2000, 3000, 4000}, ReferenceTimes(sampleRows(), 4))
}

func TestBuild(t *testing.T) {
	entry := func(ms int64, status string) model.TrackStatusEntry {
		return model.TrackStatusEntry{Time: time.Duration(ms) * time.Millisecond, Status: status, Message: "msg" + status}
	}
	tests := []struct {
		name       string
		entries    []model.TrackStatusEntry
		sessionEnd null.Val[time.Duration]
		want       []model.TrackStatusInterval
	}{
		{
			name: "intervals without ticks are dropped",
			entries: []model.TrackStatusEntry{
				entry(0, "1"), entry(2500, "2"), entry(2600, "1"), entry(3000, "4"),
			},
			sessionEnd: null.From(4500 * time.Millisecond),
			want: []model.TrackStatusInterval{
				{Status: "1", Label: "Green Flag", Message: "msg1", Color: model.Green, TextColor: model.Black, StartTick: 1, EndTick: 2},
				{Status: "4", Label: "Safety Car", Message: "msg4", Color: model.Yellow, TextColor: model.Black, StartTick: 3, EndTick: 4},
			},
		},
		{
			name:    "unsorted and open ended",
			entries: []model.TrackStatusEntry{entry(3500, "5"), entry(1500, "6")},
			want: []model.TrackStatusInterval{
				{Status: "6", Label: "Virtual Safety Car", Message: "msg6", Color: model.Yellow, TextColor: model.Black, StartTick: 2, EndTick: 3},
				{Status: "5", Label: "Red Flag", Message: "msg5", Color: model.Red, TextColor: model.White, StartTick: 4, EndTick: 4},
			},
		},
		{
			name:       "boundary on tick reference time",
			entries:    []model.TrackStatusEntry{entry(2000, "7")},
			sessionEnd: null.From(3000 * time.Millisecond),
			want: []model.TrackStatusInterval{
				{Status: "7", Label: "VSC Ending", Message: "msg7", Color: model.Yellow, TextColor: model.Black, StartTick: 2, EndTick: 2},
			},
		},
		{
			name:       "unknown status",
			entries:    []model.TrackStatusEntry{entry(0, "99")},
			sessionEnd: null.From(1500 * time.Millisecond),
			want: []model.TrackStatusInterval{
				{Status: "99", Label: "99", Message: "msg99", Color: model.Transparent, TextColor: model.White, StartTick: 1, EndTick: 1},
			},
		},
		{
			name:    "no entries",
			entries: nil,
			want:    []model.TrackStatusInterval{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Build(tt.entries, tt.sessionEnd, sampleRows(), 4)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Build() mismatch (-want +got):\n%v", diff)
			}
		})
	}
}
