//nolint:dupl,funlen,errcheck,gocognit //ok for this test code
package capture

import (
	"context"
	"errors"
	"log"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"gotest.tools/v3/assert"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/testsupport/basedata"
	tcpg "github.com/mpapenbr/sessionreplay/testsupport/tcpostgres"
	"github.com/mpapenbr/sessionreplay/testsupport/testdb"
)

func createSampleEntry(db *pgxpool.Pool, in *model.SessionInput) *DbSession {
	ctx := context.Background()
	var ret *DbSession
	err := pgx.BeginFunc(ctx, db, func(tx pgx.Tx) error {
		var err error
		ret, err = Create(ctx, tx, in)
		return err
	})
	if err != nil {
		log.Fatalf("createSampleEntry: %v\n", err)
	}
	return ret
}

func TestCreate(t *testing.T) {
	pool := testdb.InitTestDb()
	createSampleEntry(pool, basedata.TwoDriverOneLap())

	tests := []struct {
		name    string
		input   *model.SessionInput
		wantErr bool
	}{
		{
			name: "new entry",
			input: func() *model.SessionInput {
				in := basedata.TwoDriverOneLap()
				in.Info.Selection.Session = model.Qualifying
				return in
			}(),
		},
		{
			name:    "duplicate selection",
			input:   basedata.TwoDriverOneLap(),
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			err := pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
				_, err := Create(ctx, tx, tt.input)
				return err
			})
			if (err != nil) != tt.wantErr {
				t.Errorf("Create error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadInput(t *testing.T) {
	pool := testdb.InitTestDb()
	for name, input := range map[string]*model.SessionInput{
		"two drivers":   basedata.TwoDriverOneLap(),
		"three drivers": basedata.ThreeDriverRace(),
	} {
		t.Run(name, func(t *testing.T) {
			tcpg.ClearAllTables(pool)
			ctx := context.Background()
			header := createSampleEntry(pool, input)
			assert.Equal(t, header.Selection, input.Info.Selection)
			assert.Equal(t, header.TotalLaps, input.Info.TotalLaps)

			got, err := LoadInput(ctx, pool, header.ID)
			assert.NilError(t, err)
			require.Equal(t, input, got)
		})
	}
}

func TestLoadBySelection(t *testing.T) {
	pool := testdb.InitTestDb()
	sample := createSampleEntry(pool, basedata.TwoDriverOneLap())
	ctx := context.Background()

	got, err := LoadBySelection(ctx, pool, basedata.SampleSelection())
	assert.NilError(t, err)
	assert.Equal(t, got.ID, sample.ID)
	assert.Equal(t, got.ExternalID, sample.ExternalID)

	other := basedata.SampleSelection()
	other.Year = 2019
	_, err = LoadBySelection(ctx, pool, other)
	assert.Assert(t, errors.Is(err, ErrNotFound))

	_, err = LoadInput(ctx, pool, sample.ID+1000)
	assert.Assert(t, errors.Is(err, ErrNotFound))
}

func TestListAndDelete(t *testing.T) {
	pool := testdb.InitTestDb()
	ctx := context.Background()
	race := basedata.TwoDriverOneLap()
	quali := basedata.TwoDriverOneLap()
	quali.Info.Selection.Session = model.Qualifying
	createSampleEntry(pool, race)
	createSampleEntry(pool, quali)

	list, err := List(ctx, pool)
	assert.NilError(t, err)
	assert.Equal(t, len(list), 2)
	assert.Equal(t, list[0].Selection.Session, model.Qualifying)
	assert.Equal(t, list[1].Selection.Session, model.Race)

	num, err := DeleteBySelection(ctx, pool, race.Info.Selection)
	assert.NilError(t, err)
	assert.Equal(t, num, 1)

	num, err = DeleteBySelection(ctx, pool, race.Info.Selection)
	assert.NilError(t, err)
	assert.Equal(t, num, 0)

	var laps int
	err = pool.QueryRow(ctx, "select count(*) from lap").Scan(&laps)
	assert.NilError(t, err)
	assert.Equal(t, laps, len(quali.Laps))
}
