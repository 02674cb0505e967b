// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
package inbound

import (
	"context"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/domain/shopping"
)

// MealSync is the per-session meal controller used by driving adapters
type MealSync interface {
	EnsureLoaded(ctx context.Context)
	ForceRefresh(ctx context.Context)
	CreateMeal(ctx context.Context, draft meal.Draft) (*meal.Meal, error)
	RenameMeal(ctx context.Context, mealID, name string) error
	DeleteMeal(ctx context.Context, mealID string) error
	Meals() []*meal.Meal
	Filter(f meal.Filter) []*meal.Meal
	Loaded() bool
}

// ShoppingService manages the per-user shopping checklist
type ShoppingService interface {
	Get(ctx context.Context, s session.Session) (*shopping.List, error)
	AddItem(ctx context.Context, s session.Session, name string) (shopping.Item, error)
	UpdateItem(ctx context.Context, s session.Session, id string, cmd UpdateItemCommand) (shopping.Item, error)
	RemoveItem(ctx context.Context, s session.Session, id string) error
	Clear(ctx context.Context, s session.Session) error
}

// UpdateItemCommand carries the optional fields of an item update
type UpdateItemCommand struct {
	Name    *string
	Checked *bool
}
