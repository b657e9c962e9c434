package agenda

// ViewMode selects which projection of the task collection is rendered.
// Switching modes is a pure view change and never mutates task data.
type ViewMode int

const (
	// ModeAllCategoriesAgenda is the initial mode: the rolling day-section
	// feed over every category.
	ModeAllCategoriesAgenda ViewMode = iota
	// ModeSingleCategoryList is the flat date-agnostic list shown while
	// exactly one category filter is active.
	ModeSingleCategoryList
)

func (m ViewMode) String() string {
	if m == ModeSingleCategoryList {
		return "single-category-list"
	}
	return "all-categories-agenda"
}

// ViewModeFor maps the active category selection to a view mode. Zero
// selected categories, or more than one should the UI ever expose that,
// count as "no single-category selection".
func ViewModeFor(selected []string) ViewMode {
	if len(selected) == 1 && selected[0] != "" {
		return ModeSingleCategoryList
	}
	return ModeAllCategoriesAgenda
}
