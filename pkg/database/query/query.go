// Package query holds the cursor pagination shared by the in memory and
// postgres stores.
package query

import (
	"encoding/binary"
	"strconv"
)

// Ordering is the direction records are returned in, by id.
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

func (o Ordering) String() string {
	if o == Descending {
		return "DESC"
	}
	return "ASC"
}

// Cursor is a big endian record id. Pages start after it, exclusive.
type Cursor []byte

var EmptyCursor = Cursor([]byte{})

func ToCursor(val uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	return b
}

func (c Cursor) ToUint64() uint64 {
	return binary.BigEndian.Uint64(c)
}

// PaginateQuery appends cursor, ordering and limit clauses to query, which
// must end in a bracketed WHERE clause, and the matching args to opts:
//
//	"SELECT ... WHERE (...)"
//
// becomes
//
//	"SELECT ... WHERE (...) AND id > $n ORDER BY id ASC LIMIT $n+1"
//
// A zero limit is unbounded.
func PaginateQuery(query string, opts []interface{}, cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {
	if len(cursor) > 0 {
		comparison := " > $"
		if direction == Descending {
			comparison = " < $"
		}

		opts = append(opts, cursor.ToUint64())
		query += " AND id" + comparison + strconv.Itoa(len(opts))
	}

	query += " ORDER BY id " + direction.String()

	if limit > 0 {
		opts = append(opts, limit)
		query += " LIMIT $" + strconv.Itoa(len(opts))
	}

	return query, opts
}
