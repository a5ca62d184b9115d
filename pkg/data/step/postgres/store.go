package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	"github.com/alizeeshan1234/er-transfer/pkg/database/query"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres-backed step.Store
func New(db *sql.DB) step.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements step.Store.Save
func (s *store) Save(ctx context.Context, record *step.Record) error {
	obj, err := toModel(record)
	if err != nil {
		return err
	}

	err = obj.dbSave(ctx, s.db)
	if err != nil {
		return err
	}

	res := fromModel(obj)
	res.CopyTo(record)

	return nil
}

// Get implements step.Store.Get
func (s *store) Get(ctx context.Context, signature string) (*step.Record, error) {
	model, err := dbGetBySignature(ctx, s.db, signature)
	if err != nil {
		return nil, err
	}

	return fromModel(model), nil
}

// GetAllByRun implements step.Store.GetAllByRun
func (s *store) GetAllByRun(ctx context.Context, runId string) ([]*step.Record, error) {
	models, err := dbGetAllByRun(ctx, s.db, runId)
	if err != nil {
		return nil, err
	}

	res := make([]*step.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// GetAllByState implements step.Store.GetAllByState
func (s *store) GetAllByState(ctx context.Context, state step.State, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*step.Record, error) {
	models, err := dbGetAllByState(ctx, s.db, state, cursor, limit, direction)
	if err != nil {
		return nil, err
	}

	res := make([]*step.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// CountByState implements step.Store.CountByState
func (s *store) CountByState(ctx context.Context, state step.State) (uint64, error) {
	return dbCountByState(ctx, s.db, state)
}
