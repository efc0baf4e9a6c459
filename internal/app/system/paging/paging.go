// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PageSize is the default number of rows returned by list endpoints.
const PageSize = 50

// MaxPageSize caps the "limit" query parameter.
const MaxPageSize = 100

// ParseLimit reads the "limit" query parameter. A missing value yields
// PageSize; ok is false when the value is present but not in 1..MaxPageSize.
func ParseLimit(r *http.Request) (limit int, ok bool) {
	s := query.Get(r, "limit")
	if s == "" {
		return PageSize, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 || n > MaxPageSize {
		return 0, false
	}
	return n, true
}

// ParseAfter reads the opaque "after" cursor query parameter.
func ParseAfter(r *http.Request) string {
	return query.Get(r, "after")
}

// TrimPage trims rows fetched with limit+1 look-ahead back to limit and
// reports whether another page exists.
func TrimPage[T any](rows *[]T, limit int) (hasMore bool) {
	if len(*rows) > limit {
		*rows = (*rows)[:limit]
		return true
	}
	return false
}

/* -------------------------------------------------------------------------- */
/* Name keyset: ascending (username_ci, _id), used by user listings            */
/* -------------------------------------------------------------------------- */

// NameCursor encodes the position after a row sorted by a folded name.
func NameCursor(nameCI string, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(nameCI, id)
}

// NameWindow returns the filter selecting rows strictly after the cursor,
// or nil when after is empty or malformed (first page).
func NameWindow(field, after string) bson.M {
	if after == "" {
		return nil
	}
	c, ok := wafflemongo.DecodeCursor(after)
	if !ok {
		return nil
	}
	return wafflemongo.KeysetWindow(field, "gt", c.CI, c.ID)
}

/* -------------------------------------------------------------------------- */
/* Time keyset: descending (timestamp, _id), used by the activity feed        */
/* -------------------------------------------------------------------------- */

// TimeCursor encodes the position after a row sorted newest first.
func TimeCursor(ts time.Time, id primitive.ObjectID) string {
	return wafflemongo.EncodeCursor(ts.UTC().Format(time.RFC3339Nano), id)
}

// DecodeTimeCursor reverses TimeCursor. ok is false for malformed input.
func DecodeTimeCursor(after string) (ts time.Time, id primitive.ObjectID, ok bool) {
	c, ok := wafflemongo.DecodeCursor(after)
	if !ok {
		return time.Time{}, primitive.NilObjectID, false
	}
	ts, err := time.Parse(time.RFC3339Nano, c.CI)
	if err != nil {
		return time.Time{}, primitive.NilObjectID, false
	}
	return ts, c.ID, true
}

// TimeWindow returns the filter selecting rows older than the cursor, or nil
// when after is empty or malformed.
func TimeWindow(field, after string) bson.M {
	if after == "" {
		return nil
	}
	ts, id, ok := DecodeTimeCursor(after)
	if !ok {
		return nil
	}
	return bson.M{"$or": []bson.M{
		{field: bson.M{"$lt": ts}},
		{field: ts, "_id": bson.M{"$lt": id}},
	}}
}
