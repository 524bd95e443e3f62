package database

import (
	"context"
	"errors"

	"github.com/Coin333/courage-reps/pkg/models"
)

var (
	// ErrNotFound is returned when no record exists for the key
	ErrNotFound = errors.New("record not found")
	// ErrRevisionConflict is returned when a save lost a race with another writer
	ErrRevisionConflict = errors.New("revision conflict")
	// ErrCorrupt is returned when a stored record cannot be decoded
	ErrCorrupt = errors.New("corrupt record")
)

// ProgressStore persists one progress record per user.
//
// Save is a compare-and-swap on Revision: a record with Revision 0 must not
// exist yet, any other value must match the stored revision. On success the
// store increments p.Revision and sets p.UpdatedAt.
type ProgressStore interface {
	Load(ctx context.Context, userID int64) (models.UserProgress, error)
	Save(ctx context.Context, p *models.UserProgress) error
	Delete(ctx context.Context, userID int64) error
	UserIDs(ctx context.Context) ([]int64, error)
}
