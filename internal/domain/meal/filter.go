package meal

// Filter narrows a meal list. Zero-valued fields match everything.
type Filter struct {
	Goal    Goal
	Cuisine Cuisine
	Season  Season
}

// Matches reports whether m passes the filter
func (f Filter) Matches(m *Meal) bool {
	if f.Goal != "" && m.goal != f.Goal {
		return false
	}
	if f.Cuisine != "" && m.cuisine != f.Cuisine {
		return false
	}
	if f.Season != "" && m.season != f.Season {
		return false
	}
	return true
}

// Apply returns the matching meals, preserving order
func (f Filter) Apply(meals []*Meal) []*Meal {
	out := make([]*Meal, 0, len(meals))
	for _, m := range meals {
		if f.Matches(m) {
			out = append(out, m)
		}
	}
	return out
}
