package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/alizeeshan1234/er-transfer/pkg/data/step"
	pgutil "github.com/alizeeshan1234/er-transfer/pkg/database/postgres"
	q "github.com/alizeeshan1234/er-transfer/pkg/database/query"
	"github.com/alizeeshan1234/er-transfer/pkg/pointer"
)

const (
	tableName = "ertransfer__core_step"

	allColumns = `id, run_id, step_name, signature, layer, state, error, slot, created_at`
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	RunId     string `db:"run_id"`
	Step      string `db:"step_name"`
	Signature string `db:"signature"`
	Layer     uint8  `db:"layer"`

	State uint8          `db:"state"`
	Error sql.NullString `db:"error"`
	Slot  sql.NullInt64  `db:"slot"`

	CreatedAt time.Time `db:"created_at"`
}

func toModel(obj *step.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		RunId:     obj.RunId,
		Step:      obj.Step,
		Signature: obj.Signature,
		Layer:     uint8(obj.Layer),

		State: uint8(obj.State),
		Error: sql.NullString{
			Valid:  obj.Error != nil,
			String: *pointer.StringOrDefault(obj.Error, ""),
		},
		Slot: sql.NullInt64{
			Valid: obj.Slot != nil,
			Int64: int64(*pointer.Uint64OrDefault(obj.Slot, 0)),
		},

		CreatedAt: obj.CreatedAt,
	}, nil
}

func fromModel(obj *model) *step.Record {
	return &step.Record{
		Id: uint64(obj.Id.Int64),

		RunId:     obj.RunId,
		Step:      obj.Step,
		Signature: obj.Signature,
		Layer:     step.Layer(obj.Layer),

		State: step.State(obj.State),
		Error: pointer.StringIfValid(obj.Error.Valid, obj.Error.String),
		Slot:  pointer.Uint64IfValid(obj.Slot.Valid, uint64(obj.Slot.Int64)),

		CreatedAt: obj.CreatedAt,
	}
}

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	err := pgutil.ExecuteInTx(ctx, db, sql.LevelDefault, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(run_id, step_name, signature, layer, state, error, slot, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)

			ON CONFLICT (signature)
			DO UPDATE
				SET state = $5, error = $6, slot = $7
				WHERE ` + tableName + `.signature = $3 AND ` + tableName + `.run_id = $1 AND ` + tableName + `.step_name = $2

			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}

		return tx.QueryRowxContext(
			ctx,
			query,
			m.RunId,
			m.Step,
			m.Signature,
			m.Layer,
			m.State,
			m.Error,
			m.Slot,
			m.CreatedAt,
		).StructScan(m)
	})

	// The conditional update yields no row when the signature is owned by
	// another run or step.
	return pgutil.CheckNoRows(err, step.ErrRunMismatch)
}

func dbGetBySignature(ctx context.Context, db *sqlx.DB, signature string) (*model, error) {
	var res model
	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE signature = $1
	`

	err := db.GetContext(ctx, &res, query, signature)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, step.ErrStepNotFound)
	}
	return &res, nil
}

func dbGetAllByRun(ctx context.Context, db *sqlx.DB, runId string) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE run_id = $1
		ORDER BY id ASC
	`

	err := db.SelectContext(ctx, &res, query, runId)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, step.ErrStepNotFound)
	}

	if len(res) == 0 {
		return nil, step.ErrStepNotFound
	}
	return res, nil
}

func dbGetAllByState(ctx context.Context, db *sqlx.DB, state step.State, cursor q.Cursor, limit uint64, direction q.Ordering) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + ` FROM ` + tableName + `
		WHERE (state = $1)
	`

	opts := []interface{}{state}
	query, opts = q.PaginateQuery(query, opts, cursor, limit, direction)

	err := db.SelectContext(ctx, &res, query, opts...)
	if err != nil {
		return nil, pgutil.CheckNoRows(err, step.ErrStepNotFound)
	}

	if len(res) == 0 {
		return nil, step.ErrStepNotFound
	}
	return res, nil
}

func dbCountByState(ctx context.Context, db *sqlx.DB, state step.State) (uint64, error) {
	var res uint64
	query := `SELECT COUNT(*) FROM ` + tableName + `
		WHERE state = $1
	`

	err := db.GetContext(ctx, &res, query, state)
	if err != nil {
		return 0, err
	}
	return res, nil
}
