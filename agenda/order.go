package agenda

import (
	"sync/atomic"
	"time"

	"agenda-api/domain"
)

var lastSortOrder int64

// NextSortOrder returns a strictly increasing ordering key based on the
// wall clock. A freshly stamped task sorts after every task stamped before
// it in any view that orders ascending by sort order.
func NextSortOrder() int64 {
	for {
		now := time.Now().UnixNano()
		last := atomic.LoadInt64(&lastSortOrder)
		if now <= last {
			now = last + 1
		}
		if atomic.CompareAndSwapInt64(&lastSortOrder, last, now) {
			return now
		}
	}
}

// InsertAt moves movedID to toIndex within the visible id order, returning
// the resulting permutation and whether the id was found. toIndex is
// clamped to the list bounds; an id not present in visible leaves the order
// untouched and reports false.
func InsertAt(visible []string, movedID string, toIndex int) ([]string, bool) {
	from := -1
	for i, id := range visible {
		if id == movedID {
			from = i
			break
		}
	}
	if from < 0 {
		return append([]string(nil), visible...), false
	}
	out := make([]string, 0, len(visible))
	out = append(out, visible[:from]...)
	out = append(out, visible[from+1:]...)
	if toIndex < 0 {
		toIndex = 0
	}
	if toIndex > len(out) {
		toIndex = len(out)
	}
	out = append(out[:toIndex], append([]string{movedID}, out[toIndex:]...)...)
	return out, true
}

// Renumber assigns each task named in order a sort order equal to its index
// in that order. This is a full renumber of the visible subset; tasks not
// named are left untouched. The visible subset is always one day bucket or
// one flat list, so the rewrite stays small.
func Renumber(tasks []domain.Task, order []string) {
	index := make(map[string]int64, len(order))
	for i, id := range order {
		index[id] = int64(i)
	}
	for i := range tasks {
		if pos, ok := index[tasks[i].ID]; ok {
			v := pos
			tasks[i].SortOrder = &v
		}
	}
}
