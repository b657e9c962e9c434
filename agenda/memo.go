package agenda

import (
	"strings"
	"sync"
	"time"

	"agenda-api/domain"
)

type agendaKey struct {
	anchor   string
	days     int
	revision uint64
	search   string
}

// agendaMemo caches the most recent BuildAgenda result. The agenda is
// recomputed in full on every keystroke of the search box; memoizing on the
// (anchor, window, collection revision, search) tuple keeps that cheap
// without any incremental patching.
type agendaMemo struct {
	mu       sync.Mutex
	key      agendaKey
	valid    bool
	sections []DaySection
}

// get returns the cached sections when the key tuple is unchanged, otherwise
// rebuilds and caches. Identical inputs yield the identical slice.
func (m *agendaMemo) get(anchor time.Time, days int, revision uint64, tasks []domain.Task, search string) []DaySection {
	key := agendaKey{
		anchor:   domain.FormatDateKey(domain.Midnight(anchor)),
		days:     days,
		revision: revision,
		search:   foldString(strings.TrimSpace(search)),
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.valid && m.key == key {
		return m.sections
	}
	m.sections = BuildAgenda(anchor, days, tasks, search)
	m.key = key
	m.valid = true
	return m.sections
}

func (m *agendaMemo) invalidate() {
	m.mu.Lock()
	m.valid = false
	m.sections = nil
	m.mu.Unlock()
}
