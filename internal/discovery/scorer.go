package discovery

func (c *Category) computeProgress() float64 {
	total := len(c.current) + len(c.future)
	if total == 0 {
		return 0
	}
	filled := 0
	for _, v := range c.current {
		if isFilled(v) {
			filled++
		}
	}
	for _, v := range c.future {
		if isFilled(v) {
			filled++
		}
	}
	return float64(filled) / float64(total)
}

func statusFor(progress float64) CompletionStatus {
	switch {
	case progress <= 0:
		return StatusNotStarted
	case progress < 1:
		return StatusInProgress
	default:
		return StatusComplete
	}
}

// CategoryProgress recomputes a category's filled/total ratio and brings
// its completion status up to date. Unknown ids score 0.
func (d *CollectedBusinessData) CategoryProgress(id CategoryID) float64 {
	c, ok := d.categories[id]
	if !ok {
		return 0
	}
	c.progress = c.computeProgress()
	c.status = statusFor(c.progress)
	return c.progress
}

// OverallCompleteness is the unweighted mean of the five category scores.
func (d *CollectedBusinessData) OverallCompleteness() float64 {
	sum := 0.0
	for _, id := range CategoryOrder {
		sum += d.CategoryProgress(id)
	}
	return sum / float64(len(CategoryOrder))
}

// MissingCategories lists categories below half progress, in declaration order.
func (d *CollectedBusinessData) MissingCategories() []CategoryID {
	missing := make([]CategoryID, 0, len(CategoryOrder))
	for _, id := range CategoryOrder {
		if d.CategoryProgress(id) < 0.5 {
			missing = append(missing, id)
		}
	}
	return missing
}

// StartedCategories counts categories with any progress.
func (d *CollectedBusinessData) StartedCategories() int {
	n := 0
	for _, id := range CategoryOrder {
		if d.CategoryProgress(id) > 0 {
			n++
		}
	}
	return n
}

// CategorySnapshot is the display form of one category.
type CategorySnapshot struct {
	Name         string           `json:"name"`
	Progress     float64          `json:"progress"`
	Status       CompletionStatus `json:"status"`
	Summary      string           `json:"summary"`
	CurrentState map[string]any   `json:"current_state"`
	FutureState  map[string]any   `json:"future_state"`
}

// Summary is the complete discovery digest shown to callers.
type Summary struct {
	OverallProgress float64                     `json:"overall_progress"`
	Categories      map[string]CategorySnapshot `json:"categories"`
}

// DiscoverySummary returns progress, status and contents for every category.
func (d *CollectedBusinessData) DiscoverySummary() Summary {
	s := Summary{
		OverallProgress: d.OverallCompleteness(),
		Categories:      make(map[string]CategorySnapshot, len(CategoryOrder)),
	}
	for _, c := range d.Categories() {
		s.Categories[string(c.id)] = CategorySnapshot{
			Name:         c.name,
			Progress:     c.progress,
			Status:       c.status,
			Summary:      c.summary,
			CurrentState: copyMap(c.current),
			FutureState:  copyMap(c.future),
		}
	}
	return s
}
