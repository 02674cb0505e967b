package meal

import "strings"

// Draft is the user's ingredient selection before enrichment. Fields may hold
// blank entries until Normalize is called.
type Draft struct {
	Proteins   []string
	Starchies  []string
	Vegetables []string
	Cuisine    Cuisine
	Season     Season
}

// Normalize trims every ingredient, drops blanks and fills in default tags
func (d Draft) Normalize() Draft {
	out := Draft{
		Proteins:   cleanIngredients(d.Proteins),
		Starchies:  cleanIngredients(d.Starchies),
		Vegetables: cleanIngredients(d.Vegetables),
		Cuisine:    d.Cuisine,
		Season:     d.Season,
	}
	if out.Cuisine == "" {
		out.Cuisine = CuisineStandard
	}
	if out.Season == "" {
		out.Season = SeasonAll
	}
	return out
}

// Validate checks a normalized draft
func (d Draft) Validate() error {
	if len(d.Proteins)+len(d.Starchies)+len(d.Vegetables) == 0 {
		return ErrNoIngredients
	}
	if !d.Cuisine.Valid() {
		return ErrInvalidCuisine
	}
	if !d.Season.Valid() {
		return ErrInvalidSeason
	}
	return nil
}

// Ingredients returns all ingredients in protein, starchy, vegetable order
func (d Draft) Ingredients() []string {
	all := make([]string, 0, len(d.Proteins)+len(d.Starchies)+len(d.Vegetables))
	all = append(all, d.Proteins...)
	all = append(all, d.Starchies...)
	return append(all, d.Vegetables...)
}

func cleanIngredients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
