package pg

import (
	"database/sql"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestCheckNoRows(t *testing.T) {
	errNotFound := errors.New("not found")
	other := errors.New("other")

	assert.Equal(t, errNotFound, CheckNoRows(sql.ErrNoRows, errNotFound))
	assert.Equal(t, errNotFound, CheckNoRows(errors.Wrap(sql.ErrNoRows, "wrapped"), errNotFound))
	assert.Equal(t, other, CheckNoRows(other, errNotFound))
	assert.NoError(t, CheckNoRows(nil, errNotFound))
}

func TestIsSerializationFailure(t *testing.T) {
	assert.True(t, IsSerializationFailure(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.True(t, IsSerializationFailure(errors.Wrap(&pgconn.PgError{Code: pgerrcode.SerializationFailure}, "wrapped")))
	assert.False(t, IsSerializationFailure(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, IsSerializationFailure(errors.New("other")))
	assert.False(t, IsSerializationFailure(nil))

	assert.True(t, retryOnSerializationFailure(1, &pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.False(t, retryOnSerializationFailure(1, sql.ErrNoRows))
}
