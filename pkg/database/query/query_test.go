package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCursor(t *testing.T) {
	assert.EqualValues(t, 12345, ToCursor(12345).ToUint64())
	assert.Empty(t, EmptyCursor)
}

func TestPaginateQuery(t *testing.T) {
	base := "SELECT id FROM t WHERE (state = $1)"

	for _, tc := range []struct {
		cursor    Cursor
		limit     uint64
		direction Ordering
		query     string
		opts      []interface{}
	}{
		{
			cursor:    nil,
			limit:     0,
			direction: Ascending,
			query:     base + " ORDER BY id ASC",
			opts:      []interface{}{1},
		},
		{
			cursor:    ToCursor(10),
			limit:     5,
			direction: Ascending,
			query:     base + " AND id > $2 ORDER BY id ASC LIMIT $3",
			opts:      []interface{}{1, uint64(10), uint64(5)},
		},
		{
			cursor:    ToCursor(10),
			limit:     0,
			direction: Descending,
			query:     base + " AND id < $2 ORDER BY id DESC",
			opts:      []interface{}{1, uint64(10)},
		},
		{
			cursor:    EmptyCursor,
			limit:     7,
			direction: Descending,
			query:     base + " ORDER BY id DESC LIMIT $2",
			opts:      []interface{}{1, uint64(7)},
		},
	} {
		query, opts := PaginateQuery(base, []interface{}{1}, tc.cursor, tc.limit, tc.direction)
		assert.Equal(t, tc.query, query)
		assert.Equal(t, tc.opts, opts)
	}
}
