// Package outbound defines the interfaces for outbound ports (secondary/driven adapters)
// These are the interfaces that the application uses to interact with external systems
package outbound

import (
	"context"
	"errors"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/domain/shopping"
)

// MealRepository persists meals in the signed-in user's private collection.
// Every call fails with an UNAUTHENTICATED AppError when s has no user.
type MealRepository interface {
	// Create writes the full record. The store assigns the creation time and
	// display id and reports them back through m.MarkPersisted. Meals without
	// a published image are rejected with STORAGE_URL_MISSING.
	Create(ctx context.Context, s session.Session, m *meal.Meal) error

	// List returns the user's meals, newest first. Malformed records are skipped.
	List(ctx context.Context, s session.Session) ([]*meal.Meal, error)

	UpdateName(ctx context.Context, s session.Session, mealID, name string) error
	Delete(ctx context.Context, s session.Session, mealID string) error
}

// ShoppingRepository persists the user's shopping checklist
type ShoppingRepository interface {
	Load(ctx context.Context, s session.Session) (*shopping.List, error)
	Save(ctx context.Context, s session.Session, list *shopping.List) error
}

// ErrCacheMiss is returned by CacheRepository.Get for absent keys
var ErrCacheMiss = errors.New("cache miss")

// CacheRepository defines the interface for key/value caching
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
