package source

import (
	"context"
	"errors"

	"github.com/mpapenbr/sessionreplay/pkg/model"
)

var ErrNotFound = errors.New("session not found")

// Source provides the raw input of a session
type Source interface {
	Load(ctx context.Context, sel model.SessionSelection) (*model.SessionInput, error)
}

// Store persists the raw input of a session
type Store interface {
	Save(ctx context.Context, input *model.SessionInput) error
}
