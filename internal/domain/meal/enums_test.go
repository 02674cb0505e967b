package meal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseGoal(t *testing.T) {
	cases := []struct {
		in   string
		want Goal
		ok   bool
	}{
		{"WeightLoss", GoalWeightLoss, true},
		{"  weightloss.\n", GoalWeightLoss, true},
		{"🥗 Perte de poids", GoalWeightLoss, true},
		{"🥗", GoalWeightLoss, true},
		{"💪", GoalBulking, true},
		{"prise de masse", GoalBulking, true},
		{"Kids", GoalKids, true},
		{"🏡", GoalDaily, true},
		{"", "", false},
		{"Keto", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseGoal(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestParseSeason_WithoutVariationSelector(t *testing.T) {
	got, ok := ParseSeason("❄ Hiver")
	assert.True(t, ok)
	assert.Equal(t, SeasonWinter, got)
}

func TestLabels(t *testing.T) {
	for _, g := range AllGoals() {
		assert.True(t, g.Valid())
		assert.NotEqual(t, string(g), g.Label())
	}
	for _, c := range AllCuisines() {
		assert.True(t, c.Valid())
		assert.Contains(t, c.Label(), " ")
	}
	for _, s := range AllSeasons() {
		assert.True(t, s.Valid())
	}

	assert.Equal(t, "🍜 Asiatique", CuisineAsian.Label())
	assert.Equal(t, "Keto", Goal("Keto").Label())
	assert.False(t, Goal("Keto").Valid())
}

func TestDraft_NormalizeAndValidate(t *testing.T) {
	d := Draft{
		Proteins:   []string{" Poulet ", ""},
		Starchies:  nil,
		Vegetables: []string{"  "},
	}.Normalize()

	assert.Equal(t, []string{"Poulet"}, d.Proteins)
	assert.Empty(t, d.Vegetables)
	assert.Equal(t, CuisineStandard, d.Cuisine)
	assert.Equal(t, SeasonAll, d.Season)
	assert.NoError(t, d.Validate())
	assert.Equal(t, []string{"Poulet"}, d.Ingredients())

	assert.ErrorIs(t, Draft{Proteins: []string{"x"}, Cuisine: "Thai", Season: SeasonAll}.Validate(), ErrInvalidCuisine)
	assert.ErrorIs(t, Draft{Proteins: []string{"x"}, Cuisine: CuisineFrench, Season: "Spring"}.Validate(), ErrInvalidSeason)
}

func TestFilter(t *testing.T) {
	mk := func(g Goal, c Cuisine, s Season) *Meal {
		m, err := NewMeal(Draft{Proteins: []string{"x"}, Cuisine: c, Season: s}, "n", g)
		assert.NoError(t, err)
		return m
	}
	meals := []*Meal{
		mk(GoalDaily, CuisineFrench, SeasonWinter),
		mk(GoalKids, CuisineFrench, SeasonSummer),
		mk(GoalDaily, CuisineAsian, SeasonSummer),
	}

	assert.Len(t, Filter{}.Apply(meals), 3)
	assert.Equal(t, []*Meal{meals[0], meals[2]}, Filter{Goal: GoalDaily}.Apply(meals))
	assert.Equal(t, []*Meal{meals[1]}, Filter{Cuisine: CuisineFrench, Season: SeasonSummer}.Apply(meals))
	assert.Empty(t, Filter{Goal: GoalBulking}.Apply(meals))
}
