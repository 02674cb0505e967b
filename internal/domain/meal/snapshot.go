package meal

import (
	"errors"
	"time"
)

// Snapshot is the canonical serialized form of a Meal, written to and read
// back from the document store.
type Snapshot struct {
	ID                   string         `json:"id"`
	DisplayID            int            `json:"mealId"`
	Proteins             []string       `json:"proteins"`
	Starchies            []string       `json:"starchies"`
	Vegetables           []string       `json:"vegetables"`
	Name                 string         `json:"name"`
	Goal                 string         `json:"goal"`
	Cuisine              string         `json:"cuisine,omitempty"`
	Season               string         `json:"season,omitempty"`
	ImageURL             string         `json:"imageURL,omitempty"`
	Calories             *float64       `json:"calories,omitempty"`
	ProteinsGrams        *float64       `json:"proteinsGrams,omitempty"`
	Carbs                *float64       `json:"carbs,omitempty"`
	Fats                 *float64       `json:"fats,omitempty"`
	IngredientQuantities map[string]int `json:"ingredientQuantities,omitempty"`
	CreatedAt            time.Time      `json:"createdAt"`
}

// ErrMalformedSnapshot is returned by Rehydrate for records missing required fields
var ErrMalformedSnapshot = errors.New("malformed meal record")

// Snapshot serializes the meal
func (m *Meal) Snapshot() Snapshot {
	s := Snapshot{
		ID:         m.id,
		DisplayID:  m.displayID,
		Proteins:   copyStrings(m.proteins),
		Starchies:  copyStrings(m.starchies),
		Vegetables: copyStrings(m.vegetables),
		Name:       m.name,
		Goal:       string(m.goal),
		Cuisine:    string(m.cuisine),
		Season:     string(m.season),
		ImageURL:   m.imageURL,
		CreatedAt:  m.createdAt,
	}
	if n := m.nutrition; n != nil {
		s.Calories = &n.Calories
		s.ProteinsGrams = &n.ProteinsGrams
		s.Carbs = &n.Carbs
		s.Fats = &n.Fats
		s.IngredientQuantities = n.IngredientQuantities
	}
	return s
}

// Rehydrate rebuilds a persisted meal. Records without an id, a name or a
// recognizable goal are rejected with ErrMalformedSnapshot. Legacy records
// that stored display labels instead of tokens are accepted.
func Rehydrate(s Snapshot) (*Meal, error) {
	if s.ID == "" {
		return nil, ErrMalformedSnapshot
	}
	name, err := validateName(s.Name)
	if err != nil {
		return nil, ErrMalformedSnapshot
	}
	goal, ok := ParseGoal(s.Goal)
	if !ok {
		return nil, ErrMalformedSnapshot
	}
	cuisine, ok := ParseCuisine(s.Cuisine)
	if !ok {
		cuisine = CuisineStandard
	}
	season, ok := ParseSeason(s.Season)
	if !ok {
		season = SeasonAll
	}

	m := &Meal{
		id:         s.ID,
		displayID:  s.DisplayID,
		proteins:   cleanIngredients(s.Proteins),
		starchies:  cleanIngredients(s.Starchies),
		vegetables: cleanIngredients(s.Vegetables),
		name:       name,
		goal:       goal,
		cuisine:    cuisine,
		season:     season,
		imageURL:   s.ImageURL,
		createdAt:  s.CreatedAt,
	}
	if s.Calories != nil {
		m.nutrition = &Nutrition{
			Calories:             *s.Calories,
			ProteinsGrams:        deref(s.ProteinsGrams),
			Carbs:                deref(s.Carbs),
			Fats:                 deref(s.Fats),
			IngredientQuantities: s.IngredientQuantities,
		}
	}
	return m, nil
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
