package meal

import "time"

// MealCreatedEvent is raised once a meal has been persisted
type MealCreatedEvent struct {
	MealID    string
	OwnerID   string
	Goal      Goal
	CreatedAt time.Time
}

func (e MealCreatedEvent) EventName() string {
	return "meal.created"
}

func (e MealCreatedEvent) OccurredAt() time.Time {
	return e.CreatedAt
}

// MealRenamedEvent is raised when the user edits a meal name
type MealRenamedEvent struct {
	MealID    string
	OldName   string
	NewName   string
	RenamedAt time.Time
}

func (e MealRenamedEvent) EventName() string {
	return "meal.renamed"
}

func (e MealRenamedEvent) OccurredAt() time.Time {
	return e.RenamedAt
}
