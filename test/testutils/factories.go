package testutils

import (
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/omq/mealsync/internal/domain/meal"
)

// MealFactory builds meal fixtures from seeded fake data
type MealFactory struct {
	faker *gofakeit.Faker
}

// NewMealFactory creates a new meal factory with seeded faker
func NewMealFactory(seed int64) *MealFactory {
	return &MealFactory{faker: gofakeit.New(seed)}
}

// Draft returns a valid normalized draft with one ingredient per role
func (f *MealFactory) Draft() meal.Draft {
	return meal.Draft{
		Proteins:   []string{f.faker.RandomString([]string{"Poulet", "Saumon", "Tofu", "Boeuf", "Oeufs"})},
		Starchies:  []string{f.faker.RandomString([]string{"Riz", "Pâtes", "Quinoa", "Pommes de terre"})},
		Vegetables: []string{f.faker.Vegetable()},
		Cuisine:    meal.AllCuisines()[f.faker.Number(0, len(meal.AllCuisines())-1)],
		Season:     meal.AllSeasons()[f.faker.Number(0, len(meal.AllSeasons())-1)],
	}.Normalize()
}

// Persisted returns a stored meal created at the given time
func (f *MealFactory) Persisted(ownerID string, createdAt time.Time) *meal.Meal {
	m, err := meal.NewMeal(f.Draft(), f.faker.Noun()+" "+f.faker.Adjective(), meal.AllGoals()[f.faker.Number(0, 3)])
	if err != nil {
		panic(err)
	}
	if err := m.AttachImage("https://storage.example/mealImages/" + f.faker.UUID() + ".png"); err != nil {
		panic(err)
	}
	m.MarkPersisted(ownerID, f.faker.Number(1, 1000), createdAt)
	m.Events()
	return m
}
