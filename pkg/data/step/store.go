package step

import (
	"context"

	"github.com/pkg/errors"

	"github.com/alizeeshan1234/er-transfer/pkg/database/query"
)

var (
	ErrStepNotFound = errors.New("step record not found")
	ErrRunMismatch  = errors.New("step record belongs to a different run")
)

type Store interface {
	// Save creates or updates a step record, keyed by signature. Only the
	// state, error and slot are mutable once a record exists.
	//
	// Returns ErrRunMismatch if the signature is already recorded for another
	// run or step.
	Save(ctx context.Context, record *Record) error

	// Get finds the step record for a given transaction signature
	//
	// Returns ErrStepNotFound if no record is found.
	Get(ctx context.Context, signature string) (*Record, error)

	// GetAllByRun returns every step recorded for a run, in insertion order.
	//
	// Returns ErrStepNotFound if no records are found.
	GetAllByRun(ctx context.Context, runId string) ([]*Record, error)

	// GetAllByState returns a page of step records in the provided state.
	//
	// Returns ErrStepNotFound if no records are found.
	GetAllByState(ctx context.Context, state State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)

	// CountByState counts all step records in a provided state
	CountByState(ctx context.Context, state State) (uint64, error)
}
