package agenda

import (
	"context"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/bytedance/sonic"

	"agenda-api/domain"
)

// fakeStore is an in-memory Store recording every save.
type fakeStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
	saves int
}

func newFakeStore() *fakeStore {
	return &fakeStore{blobs: make(map[string][]byte)}
}

func (f *fakeStore) Load(_ context.Context, userID, key string) ([]byte, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[userID+"/"+key]
	return data, ok
}

func (f *fakeStore) Save(_ context.Context, userID, key string, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[userID+"/"+key] = append([]byte(nil), data...)
	f.saves++
}

func (f *fakeStore) storedTasks(t *testing.T, userID string) []domain.Task {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.blobs[userID+"/"+keyTasks]
	if !ok {
		t.Fatal("no tasks blob persisted")
	}
	var tasks []domain.Task
	if err := sonic.Unmarshal(data, &tasks); err != nil {
		t.Fatalf("persisted tasks blob malformed: %v", err)
	}
	return tasks
}

func newTestPlanner(t *testing.T, store *fakeStore) *Planner {
	t.Helper()
	p := NewPlanner(context.Background(), "user-1", store)
	p.now = func() time.Time { return monday }
	return p
}

func TestNewPlannerSeedsDefaultsOnMalformedBlobs(t *testing.T) {
	store := newFakeStore()
	store.blobs["user-1/"+keyTasks] = []byte("{not json")
	store.blobs["user-1/"+keyAgendaDays] = []byte("9")

	p := newTestPlanner(t, store)
	if len(p.Tasks()) != 0 {
		t.Fatal("malformed tasks blob must seed an empty collection")
	}
	if got := p.Settings().AgendaDays; got != domain.DefaultAgendaDays {
		t.Fatalf("unsupported window length must fall back to default, got %d", got)
	}
}

func TestNewPlannerLoadsPersistedState(t *testing.T) {
	store := newFakeStore()
	seed := newTestPlanner(t, store)
	seed.InlineAdd(context.Background(), "Pagar conta", "2024-01-03", "")
	if err := seed.SetAgendaDays(context.Background(), 15); err != nil {
		t.Fatalf("set agenda days: %v", err)
	}
	seed.SetActiveCategory(context.Background(), "cat-1")

	p := newTestPlanner(t, store)
	if got := len(p.Tasks()); got != 1 {
		t.Fatalf("expected 1 loaded task, got %d", got)
	}
	want := domain.Settings{AgendaDays: 15, ActiveCategoryID: "cat-1"}
	if got := p.Settings(); got != want {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestInlineAddUsesExtractedDate(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)

	task, ok := p.InlineAdd(context.Background(), "Ligar cliente terça", "2024-01-05", "")
	if !ok {
		t.Fatal("expected task to be created")
	}
	if task.Name != "Ligar cliente" {
		t.Fatalf("token not stripped from name: %q", task.Name)
	}
	// The embedded weekday token wins over the clicked bucket.
	if task.Date != "2024-01-02" {
		t.Fatalf("unexpected date: %s", task.Date)
	}
	if task.SortOrder == nil {
		t.Fatal("new task must get a sort order")
	}
	if task.ID == "" {
		t.Fatal("new task must get an id")
	}
}

func TestInlineAddDefaultsToBucketThenToday(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)

	bucket, _ := p.InlineAdd(context.Background(), "Sem token", "2024-01-05", "")
	if bucket.Date != "2024-01-05" {
		t.Fatalf("expected bucket date, got %s", bucket.Date)
	}

	today, _ := p.InlineAdd(context.Background(), "Sem token nem bucket", "", "")
	if today.Date != "2024-01-01" {
		t.Fatalf("expected today, got %s", today.Date)
	}

	badBucket, _ := p.InlineAdd(context.Background(), "Bucket inválido", "05/01/2024", "")
	if badBucket.Date != "2024-01-01" {
		t.Fatalf("invalid bucket key must fall back to today, got %s", badBucket.Date)
	}
}

func TestInlineAddDefaultsCategoryToActiveFilter(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	p.SetActiveCategory(context.Background(), "cat-1")

	task, _ := p.InlineAdd(context.Background(), "Na lista", "", "")
	if task.CategoryID() != "cat-1" {
		t.Fatalf("expected active filter category, got %q", task.CategoryID())
	}
	if task.Date != "2024-01-01" {
		t.Fatalf("list-mode add must default to today, got %s", task.Date)
	}
}

func TestInlineAddRejectsEmptyTitle(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	if _, ok := p.InlineAdd(context.Background(), "   ", "", ""); ok {
		t.Fatal("blank title must not create a task")
	}
	if store.saves != 0 {
		t.Fatal("nothing should be persisted")
	}
}

func TestToggleDoneHidesTaskFromAgenda(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	task, _ := p.InlineAdd(context.Background(), "Pagar conta", "2024-01-01", "")

	if !p.ToggleDone(context.Background(), task.ID) {
		t.Fatal("toggle must find the task")
	}
	sections := p.Agenda(monday)
	if len(sections[0].Tasks) != 0 {
		t.Fatal("done task must not appear in the agenda")
	}

	if !p.ToggleDone(context.Background(), task.ID) {
		t.Fatal("second toggle must find the task")
	}
	sections = p.Agenda(monday)
	if len(sections[0].Tasks) != 1 {
		t.Fatal("reopened task must reappear")
	}

	if p.ToggleDone(context.Background(), "missing") {
		t.Fatal("unknown id must be a no-op")
	}
}

func TestRescheduleMovesAndAppends(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	a, _ := p.InlineAdd(context.Background(), "primeira", "2024-01-01", "")
	b, _ := p.InlineAdd(context.Background(), "segunda-tarefa", "2024-01-03", "")

	if !p.Reschedule(context.Background(), a.ID, "2024-01-03") {
		t.Fatal("expected the move to apply")
	}
	var moved domain.Task
	for _, task := range p.Tasks() {
		if task.ID == a.ID {
			moved = task
		}
	}
	if moved.Date != "2024-01-03" {
		t.Fatalf("date not updated: %s", moved.Date)
	}
	if *moved.SortOrder <= *b.SortOrder {
		t.Fatal("moved task must sort after the target day's existing tasks")
	}

	sections := p.Agenda(monday)
	if got := taskIDs(sections[2].Tasks); !reflect.DeepEqual(got, []string{b.ID, a.ID}) {
		t.Fatalf("unexpected target-day order: %v", got)
	}
}

func TestRescheduleNoOps(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	task, _ := p.InlineAdd(context.Background(), "fixa", "2024-01-01", "")
	savesBefore := store.saves

	if p.Reschedule(context.Background(), task.ID, "2024-01-01") {
		t.Fatal("same-day drop must be a no-op")
	}
	if p.Reschedule(context.Background(), "missing", "2024-01-02") {
		t.Fatal("unknown id must be a no-op")
	}
	if p.Reschedule(context.Background(), task.ID, "01/02/2024") {
		t.Fatal("unparseable target must be a no-op")
	}
	if p.Reschedule(context.Background(), "", "2024-01-02") {
		t.Fatal("empty id must be a no-op")
	}
	if store.saves != savesBefore {
		t.Fatal("no-ops must not persist anything")
	}
}

func TestReorderUnknownIDIsANoOp(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	a, _ := p.InlineAdd(context.Background(), "um", "2024-01-01", "")
	b, _ := p.InlineAdd(context.Background(), "dois", "2024-01-01", "")

	before := map[string]int64{}
	for _, task := range p.Tasks() {
		before[task.ID] = *task.SortOrder
	}
	savesBefore := store.saves

	p.Reorder(context.Background(), []string{a.ID, b.ID}, "no-such-task", 0)

	for _, task := range p.Tasks() {
		if *task.SortOrder != before[task.ID] {
			t.Fatalf("task %s order rewritten: %d -> %d", task.ID, before[task.ID], *task.SortOrder)
		}
	}
	if store.saves != savesBefore {
		t.Fatal("unresolvable drag must not persist anything")
	}
}

func TestReorderIsAPermutation(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	a, _ := p.InlineAdd(context.Background(), "um", "2024-01-01", "")
	b, _ := p.InlineAdd(context.Background(), "dois", "2024-01-01", "")
	c, _ := p.InlineAdd(context.Background(), "tres", "2024-01-01", "")

	visible := []string{a.ID, b.ID, c.ID}
	p.Reorder(context.Background(), visible, c.ID, 0)

	sections := p.Agenda(monday)
	got := taskIDs(sections[0].Tasks)
	if !reflect.DeepEqual(got, []string{c.ID, a.ID, b.ID}) {
		t.Fatalf("unexpected order: %v", got)
	}
	if len(p.Tasks()) != 3 {
		t.Fatal("reorder must not add or drop tasks")
	}
}

func TestCategoryListOnlyInSingleCategoryMode(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	if _, ok := p.CategoryList(); ok {
		t.Fatal("no filter active: list mode must be off")
	}

	cat := p.AddCategory(context.Background(), "Trabalho", "blue")
	p.SetActiveCategory(context.Background(), cat.ID)
	if p.Mode() != ModeSingleCategoryList {
		t.Fatal("single filter must switch to list mode")
	}

	p.InlineAdd(context.Background(), "No trabalho", "", "")
	p.InlineAdd(context.Background(), "Solta", "", "none-category")
	list, ok := p.CategoryList()
	if !ok {
		t.Fatal("list mode must be on")
	}
	if len(list) != 1 || list[0].Name != "No trabalho" {
		t.Fatalf("unexpected list: %+v", list)
	}

	// Switching back is a pure view change.
	before := p.Tasks()
	p.SetActiveCategory(context.Background(), "")
	if p.Mode() != ModeAllCategoriesAgenda {
		t.Fatal("cleared filter must switch back to the agenda")
	}
	if !reflect.DeepEqual(before, p.Tasks()) {
		t.Fatal("view switch must not mutate task data")
	}
}

func TestRemoveCategoryStripsTasksAndFilter(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	cat := p.AddCategory(context.Background(), "Temporária", "red")
	p.SetActiveCategory(context.Background(), cat.ID)
	task, _ := p.InlineAdd(context.Background(), "Com categoria", "", "")

	if !p.RemoveCategory(context.Background(), cat.ID) {
		t.Fatal("category must be removed")
	}
	if p.Settings().ActiveCategoryID != "" {
		t.Fatal("active filter must be cleared")
	}
	for _, got := range p.Tasks() {
		if got.ID == task.ID && got.CategoryID() != "" {
			t.Fatal("category must be stripped from tasks")
		}
	}
	if p.RemoveCategory(context.Background(), cat.ID) {
		t.Fatal("second removal must report not found")
	}
}

func TestRemoveCategoryLeavesSnapshotsIntact(t *testing.T) {
	store := newFakeStore()
	cats, _ := sonic.Marshal([]domain.Category{
		{ID: "cat-1", Name: "Trabalho"},
		{ID: "cat-2", Name: "Casa"},
	})
	tasks, _ := sonic.Marshal([]domain.Task{
		{ID: "t1", Name: "Ambos", Date: "2024-01-01", CategoryIDs: []string{"cat-1", "cat-2"}},
	})
	store.blobs["user-1/"+keyCategories] = cats
	store.blobs["user-1/"+keyTasks] = tasks

	p := newTestPlanner(t, store)
	snapshot := p.Tasks()

	if !p.RemoveCategory(context.Background(), "cat-1") {
		t.Fatal("category must be removed")
	}

	if !reflect.DeepEqual(snapshot[0].CategoryIDs, []string{"cat-1", "cat-2"}) {
		t.Fatalf("earlier snapshot was mutated: %v", snapshot[0].CategoryIDs)
	}
	if got := p.Tasks()[0].CategoryIDs; !reflect.DeepEqual(got, []string{"cat-2"}) {
		t.Fatalf("expected only cat-2 to remain, got %v", got)
	}
}

func TestSetAgendaDaysValidation(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	for _, n := range []int{7, 15, 30} {
		if err := p.SetAgendaDays(context.Background(), n); err != nil {
			t.Fatalf("window %d: %v", n, err)
		}
	}
	if err := p.SetAgendaDays(context.Background(), 10); err != ErrInvalidAgendaDays {
		t.Fatalf("expected ErrInvalidAgendaDays, got %v", err)
	}
	sections := p.Agenda(monday)
	if len(sections) != 30 {
		t.Fatalf("expected the last valid window (30), got %d sections", len(sections))
	}
}

func TestMutationsPersistWholeCollection(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	a, _ := p.InlineAdd(context.Background(), "um", "2024-01-01", "")
	p.InlineAdd(context.Background(), "dois", "2024-01-02", "")

	p.Reschedule(context.Background(), a.ID, "2024-01-04")

	persisted := store.storedTasks(t, "user-1")
	if len(persisted) != 2 {
		t.Fatalf("snapshot must hold the whole collection, got %d tasks", len(persisted))
	}
	for _, task := range persisted {
		if task.ID == a.ID && task.Date != "2024-01-04" {
			t.Fatalf("snapshot is stale: %s", task.Date)
		}
	}
}

func TestSearchTermIsDeferred(t *testing.T) {
	store := newFakeStore()
	p := newTestPlanner(t, store)
	p.InlineAdd(context.Background(), "Reunião", "2024-01-01", "")
	p.InlineAdd(context.Background(), "Outra", "2024-01-01", "")

	p.SetSearch("reuniao")
	// The authoritative term updated, the recompute input has not yet.
	sections := p.Agenda(monday)
	if len(sections[0].Tasks) != 2 {
		t.Fatalf("deferred term must lag, got %d tasks", len(sections[0].Tasks))
	}

	p.FlushSearch()
	sections = p.Agenda(monday)
	if len(sections[0].Tasks) != 1 {
		t.Fatalf("flushed term must filter, got %d tasks", len(sections[0].Tasks))
	}
}
