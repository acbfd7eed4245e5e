package cache

import (
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"github.com/mpetrie/taskboard-api/internal/store"
)

// keySeparator delimits the segments of the serialized query tuple.
const keySeparator = "::"

// QueryFingerprint produces a stable 64-bit fingerprint of a normalized
// listing query. Two queries that would produce the same listing result
// serialize to the same segment string and therefore the same hash.
//
// The fingerprint is stored alongside the cached snapshot so a read can
// detect that the cached view was computed for different
// filter/sort/pagination parameters and treat it as a miss instead of
// spuriously hitting.
func QueryFingerprint(q store.TaskQuery) uint64 {
	q = q.Normalize()

	dueDay := ""
	if !q.DueDate.IsZero() {
		dueDay = q.DueDate.UTC().Format("2006-01-02")
	}

	assignedTo := ""
	if q.AssignedTo != uuid.Nil {
		assignedTo = q.AssignedTo.String()
	}

	segments := []string{
		"tasks.list",
		string(q.Status),
		strconv.Itoa(q.Priority),
		assignedTo,
		dueDay,
		strings.ToLower(q.Search),
		q.SortBy,
		q.SortOrder,
		strconv.Itoa(q.Page),
		strconv.Itoa(q.Limit),
	}

	return xxhash.Sum64String(strings.Join(segments, keySeparator))
}
