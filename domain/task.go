package domain

// Task represents a single agenda item.
type Task struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Date        string    `json:"date"`
	SortOrder   *int64    `json:"sortOrder,omitempty"`
	CategoryIDs []string  `json:"categoryIds,omitempty"`
	Done        bool      `json:"done,omitempty"`
	Link        string    `json:"link,omitempty"`
	Location    string    `json:"location,omitempty"`
	Description string    `json:"description,omitempty"`
	Subtasks    []Subtask `json:"subtasks,omitempty"`
}

// Subtask is a checklist entry nested under a task.
type Subtask struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Done bool   `json:"done,omitempty"`
}

// CategoryID returns the task's effective category. The field is list-typed
// for storage compatibility but only the first entry is ever meaningful; an
// empty result means "no category".
func (t Task) CategoryID() string {
	if len(t.CategoryIDs) == 0 {
		return ""
	}
	return t.CategoryIDs[0]
}

// SortOrderValue returns the task's manual ordering key and whether one has
// been assigned. The key only carries meaning relative to other tasks in the
// same rendered view.
func (t Task) SortOrderValue() (int64, bool) {
	if t.SortOrder == nil {
		return 0, false
	}
	return *t.SortOrder, true
}
