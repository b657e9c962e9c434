package agenda

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"agenda-api/domain"
)

// Storage keys owned by the planner. Each key maps to one per-user JSON
// blob in the gateway.
const (
	keyTasks      = "tasks"
	keyCategories = "categories"
	keyFilter     = "category-filter"
	keyAgendaDays = "agenda-days"
)

// searchDeferDelay is the trailing edge on which the deferred search term
// resynchronizes with the authoritative one.
const searchDeferDelay = 50 * time.Millisecond

// ErrInvalidAgendaDays is returned when a window length other than 7, 15 or
// 30 is requested.
var ErrInvalidAgendaDays = errors.New("agenda window must be 7, 15 or 30 days")

// Store is the persistence gateway the planner writes through. Load returns
// false on any failure so the planner can seed defaults; Save is
// best-effort and never reports failure.
type Store interface {
	Load(ctx context.Context, userID, key string) ([]byte, bool)
	Save(ctx context.Context, userID, key string, data []byte)
}

// Planner owns one user's in-memory task collection, category set and
// ambient settings, and applies every mutation synchronously and
// optimistically before handing the whole updated collection to the
// gateway. It is the single writer for its user; callers from multiple
// goroutines are serialized by its lock.
type Planner struct {
	mu     sync.Mutex
	userID string
	store  Store

	tasks      []domain.Task
	categories []domain.Category
	settings   domain.Settings
	revision   uint64

	memo   agendaMemo
	search *DeferredString

	// now is the planner's clock; swapped out in tests.
	now func() time.Time
}

// NewPlanner loads the user's persisted state through the gateway. Missing
// or malformed blobs seed empty collections and default settings, never an
// error.
func NewPlanner(ctx context.Context, userID string, store Store) *Planner {
	p := &Planner{
		userID:   userID,
		store:    store,
		settings: domain.Settings{AgendaDays: domain.DefaultAgendaDays},
		search:   NewDeferredString(searchDeferDelay),
		now:      time.Now,
	}
	if data, ok := store.Load(ctx, userID, keyTasks); ok {
		var tasks []domain.Task
		if sonic.Unmarshal(data, &tasks) == nil {
			p.tasks = tasks
		}
	}
	if data, ok := store.Load(ctx, userID, keyCategories); ok {
		var cats []domain.Category
		if sonic.Unmarshal(data, &cats) == nil {
			p.categories = cats
		}
	}
	if data, ok := store.Load(ctx, userID, keyFilter); ok {
		var id string
		if sonic.Unmarshal(data, &id) == nil {
			p.settings.ActiveCategoryID = id
		}
	}
	if data, ok := store.Load(ctx, userID, keyAgendaDays); ok {
		var days int
		if sonic.Unmarshal(data, &days) == nil && domain.ValidAgendaDays(days) {
			p.settings.AgendaDays = days
		}
	}
	return p
}

// Settings returns the planner's ambient settings.
func (p *Planner) Settings() domain.Settings {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.settings
}

// Tasks returns a snapshot of the full collection.
func (p *Planner) Tasks() []domain.Task {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Task(nil), p.tasks...)
}

// Categories returns a snapshot of the category set.
func (p *Planner) Categories() []domain.Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.Category(nil), p.categories...)
}

// Mode reports which projection the active filter selects.
func (p *Planner) Mode() ViewMode {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.mode()
}

func (p *Planner) mode() ViewMode {
	if p.settings.ActiveCategoryID == "" {
		return ModeAllCategoriesAgenda
	}
	return ViewModeFor([]string{p.settings.ActiveCategoryID})
}

// SetSearch records a new authoritative search term. The projections pick
// it up on the trailing edge.
func (p *Planner) SetSearch(term string) {
	p.search.Set(term)
}

// FlushSearch forces the deferred term to catch up immediately.
func (p *Planner) FlushSearch() {
	p.search.Flush()
}

// Agenda returns the rolling day-section window anchored at anchor, using
// the persisted window length and the deferred search term.
func (p *Planner) Agenda(anchor time.Time) []DaySection {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.memo.get(anchor, p.settings.AgendaDays, p.revision, p.tasks, p.search.Deferred())
}

// CategoryList returns the flat single-category projection. The second
// return is false while no single category filter is active.
func (p *Planner) CategoryList() ([]domain.Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.mode() != ModeSingleCategoryList {
		return nil, false
	}
	return BuildCategoryList(p.settings.ActiveCategoryID, p.tasks, p.search.Deferred()), true
}

// InlineAdd creates a task from free-typed title text. A date or weekday
// token embedded in the title wins over the clicked bucket's date, which in
// turn wins over today; the category defaults to the active single-category
// filter. Empty titles are ignored.
func (p *Planner) InlineAdd(ctx context.Context, title, bucketKey, categoryID string) (domain.Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	title = strings.TrimSpace(title)
	if title == "" {
		return domain.Task{}, false
	}
	today := p.now()
	name, when, found := ExtractDate(title, today)
	dateKey := domain.FormatDateKey(domain.Midnight(today))
	switch {
	case found:
		dateKey = domain.FormatDateKey(when)
	case bucketKey != "":
		if _, err := domain.ParseDateKey(bucketKey); err == nil {
			dateKey = bucketKey
		}
	}
	if categoryID == "" {
		categoryID = p.settings.ActiveCategoryID
	}
	order := NextSortOrder()
	task := domain.Task{
		ID:        uuid.NewString(),
		Name:      name,
		Date:      dateKey,
		SortOrder: &order,
	}
	if categoryID != "" {
		task.CategoryIDs = []string{categoryID}
	}
	p.tasks = append(p.tasks, task)
	p.mutated(ctx)
	return task, true
}

// ToggleDone flips a task's done flag. Unknown ids are a no-op.
func (p *Planner) ToggleDone(ctx context.Context, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.tasks {
		if p.tasks[i].ID == id {
			p.tasks[i].Done = !p.tasks[i].Done
			p.mutated(ctx)
			return true
		}
	}
	return false
}

// Remove deletes a task outright; there is no tombstone or undo log.
func (p *Planner) Remove(ctx context.Context, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i := range p.tasks {
		if p.tasks[i].ID == id {
			p.tasks = append(p.tasks[:i], p.tasks[i+1:]...)
			p.mutated(ctx)
			return true
		}
	}
	return false
}

// Reorder applies a drag within one flat, date-agnostic list: the dragged
// id is reinserted at toIndex and every task in the resulting visible order
// is renumbered to its index. Tasks outside the visible subset keep their
// keys. A drag whose id cannot be resolved in the visible list is a silent
// no-op: nothing is renumbered and nothing is persisted.
func (p *Planner) Reorder(ctx context.Context, visibleIDs []string, movedID string, toIndex int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	order, moved := InsertAt(visibleIDs, movedID, toIndex)
	if !moved {
		return
	}
	Renumber(p.tasks, order)
	p.mutated(ctx)
}

// Reschedule applies a drag from one day bucket onto another. Dropping a
// task onto its own day, an unknown id, or an unparseable target key is a
// silent no-op. The moved task gets a fresh sort order so it lands after
// the target day's existing tasks.
func (p *Planner) Reschedule(ctx context.Context, id, targetKey string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if id == "" {
		return false
	}
	if _, err := domain.ParseDateKey(targetKey); err != nil {
		return false
	}
	for i := range p.tasks {
		if p.tasks[i].ID != id {
			continue
		}
		if p.tasks[i].Date == targetKey {
			return false
		}
		order := NextSortOrder()
		p.tasks[i].Date = targetKey
		p.tasks[i].SortOrder = &order
		p.mutated(ctx)
		return true
	}
	return false
}

// SetAgendaDays persists a new window length preference.
func (p *Planner) SetAgendaDays(ctx context.Context, days int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !domain.ValidAgendaDays(days) {
		return ErrInvalidAgendaDays
	}
	p.settings.AgendaDays = days
	p.save(ctx, keyAgendaDays, days)
	p.bump()
	return nil
}

// SetActiveCategory persists the single-category filter; an empty id clears
// it. The "today" action clears it the same way. Changing the filter is a
// pure view switch and touches no task data.
func (p *Planner) SetActiveCategory(ctx context.Context, id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.settings.ActiveCategoryID = id
	p.save(ctx, keyFilter, id)
}

// AddCategory creates a category and persists the set.
func (p *Planner) AddCategory(ctx context.Context, name, color string) domain.Category {
	p.mu.Lock()
	defer p.mu.Unlock()
	cat := domain.Category{ID: uuid.NewString(), Name: strings.TrimSpace(name), Color: color}
	p.categories = append(p.categories, cat)
	p.save(ctx, keyCategories, p.categories)
	return cat
}

// RemoveCategory deletes a category, strips it from every task and clears
// the filter when it was the active one.
func (p *Planner) RemoveCategory(ctx context.Context, id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	found := false
	for i := range p.categories {
		if p.categories[i].ID == id {
			p.categories = append(p.categories[:i], p.categories[i+1:]...)
			found = true
			break
		}
	}
	if !found {
		return false
	}
	for i := range p.tasks {
		ids := p.tasks[i].CategoryIDs
		for j := range ids {
			if ids[j] == id {
				// Copy before removing: previously returned snapshots alias
				// the backing array.
				kept := make([]string, 0, len(ids)-1)
				kept = append(kept, ids[:j]...)
				kept = append(kept, ids[j+1:]...)
				p.tasks[i].CategoryIDs = kept
				break
			}
		}
	}
	if p.settings.ActiveCategoryID == id {
		p.settings.ActiveCategoryID = ""
		p.save(ctx, keyFilter, "")
	}
	p.save(ctx, keyCategories, p.categories)
	p.mutated(ctx)
	return true
}

// mutated persists the whole task collection and invalidates projections.
// Mutations are optimistic: in-memory state is already updated by the time
// the gateway sees the snapshot.
func (p *Planner) mutated(ctx context.Context) {
	p.save(ctx, keyTasks, p.tasks)
	p.bump()
}

func (p *Planner) bump() {
	p.revision++
	p.memo.invalidate()
}

func (p *Planner) save(ctx context.Context, key string, v any) {
	data, err := sonic.Marshal(v)
	if err != nil {
		return
	}
	p.store.Save(ctx, p.userID, key, data)
}
