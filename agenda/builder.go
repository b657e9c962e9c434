package agenda

import (
	"sort"
	"strings"
	"time"

	"agenda-api/domain"
)

// DaySection holds the pending tasks for one calendar day inside the agenda
// window.
type DaySection struct {
	DateKey string        `json:"dateKey"`
	Date    time.Time     `json:"date"`
	Tasks   []domain.Task `json:"tasks"`
}

// BuildAgenda buckets tasks into exactly days consecutive day sections
// starting at anchor. Every day in the window appears even when empty; no
// day outside it ever does. Done tasks are excluded, and when search is
// non-empty only tasks matching it case- and accent-insensitively are
// included. Within a day, tasks order by sort order ascending with unordered
// tasks last, ties broken by locale-aware name comparison.
func BuildAgenda(anchor time.Time, days int, tasks []domain.Task, search string) []DaySection {
	if days <= 0 {
		return []DaySection{}
	}
	start := domain.Midnight(anchor)
	term := foldString(strings.TrimSpace(search))

	byDay := make(map[string][]domain.Task)
	for _, t := range tasks {
		if t.Done || !matchesSearch(t, term) {
			continue
		}
		byDay[t.Date] = append(byDay[t.Date], t)
	}

	sections := make([]DaySection, 0, days)
	for i := 0; i < days; i++ {
		day := start.AddDate(0, 0, i)
		key := domain.FormatDateKey(day)
		bucket := make([]domain.Task, 0, len(byDay[key]))
		bucket = append(bucket, byDay[key]...)
		sortTasks(bucket)
		sections = append(sections, DaySection{DateKey: key, Date: day, Tasks: bucket})
	}
	return sections
}

// BuildCategoryList is the flat, date-agnostic projection used when exactly
// one category filter is active: that category's pending tasks matching the
// search term, ordered the same way as a day bucket.
func BuildCategoryList(categoryID string, tasks []domain.Task, search string) []domain.Task {
	term := foldString(strings.TrimSpace(search))
	out := make([]domain.Task, 0)
	for _, t := range tasks {
		if t.Done || t.CategoryID() != categoryID || !matchesSearch(t, term) {
			continue
		}
		out = append(out, t)
	}
	sortTasks(out)
	return out
}

// matchesSearch reports whether the folded term occurs anywhere in the
// task's searchable text. An empty term matches everything.
func matchesSearch(t domain.Task, term string) bool {
	if term == "" {
		return true
	}
	return strings.Contains(foldString(searchText(t)), term)
}

// searchText concatenates every field the search box is allowed to see.
func searchText(t domain.Task) string {
	var b strings.Builder
	b.WriteString(t.Name)
	if t.Link != "" {
		b.WriteByte(' ')
		b.WriteString(t.Link)
	}
	if t.Location != "" {
		b.WriteByte(' ')
		b.WriteString(t.Location)
	}
	if t.Description != "" {
		b.WriteByte(' ')
		b.WriteString(stripMarkup(t.Description))
	}
	for _, s := range t.Subtasks {
		b.WriteByte(' ')
		b.WriteString(s.Name)
	}
	return b.String()
}

func sortTasks(tasks []domain.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		li, lok := tasks[i].SortOrderValue()
		ri, rok := tasks[j].SortOrderValue()
		switch {
		case lok && rok && li != ri:
			return li < ri
		case lok != rok:
			return lok
		}
		return compareNames(tasks[i].Name, tasks[j].Name) < 0
	})
}
