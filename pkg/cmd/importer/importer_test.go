//nolint:thelper,whitespace,lll,funlen,gocritic,dupl // ok for tests
package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mpapenbr/sessionreplay/pkg/model"
	"github.com/mpapenbr/sessionreplay/pkg/processing/procerr"
	"github.com/mpapenbr/sessionreplay/testsupport/basedata"
)

type memStore struct {
	saved []model.SessionSelection
}

func (m *memStore) Save(_ context.Context, in *model.SessionInput) error {
	m.saved = append(m.saved, in.Info.Selection)
	return nil
}

func TestImport(t *testing.T) {
	quali := basedata.TwoDriverOneLap()
	quali.Info.Selection.Session = model.Qualifying
	broken := basedata.TwoDriverOneLap()
	broken.Info.StatusEvents = nil

	tests := []struct {
		name      string
		inputs    []*model.SessionInput
		validate  bool
		wantSaved int
		wantErr   error
	}{
		{
			name:      "valid sessions",
			inputs:    []*model.SessionInput{basedata.ThreeDriverRace(), quali},
			validate:  true,
			wantSaved: 2,
		},
		{
			name:     "invalid session stops import",
			inputs:   []*model.SessionInput{quali, broken},
			validate: true,
			wantErr:  procerr.ErrValidation,
		},
		{
			name:      "without validation",
			inputs:    []*model.SessionInput{quali, broken},
			wantSaved: 2,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &memStore{}
			err := Import(context.Background(), store, tt.inputs, tt.validate)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, store.saved, tt.wantSaved)
		})
	}
}
