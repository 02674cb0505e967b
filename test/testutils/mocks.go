// Package testutils provides mock implementations and fixtures for testing
package testutils

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/domain/shopping"
	"github.com/omq/mealsync/internal/ports/outbound"
	"github.com/omq/mealsync/pkg/errors"
	"github.com/stretchr/testify/mock"
)

// MockMealRepository is a mock.Mock MealRepository. When no expectation is
// registered for Create it behaves as an in-memory store so tests can
// focus on the calls they care about.
type MockMealRepository struct {
	mock.Mock

	mu    sync.Mutex
	meals map[string][]*meal.Meal
	clock func() time.Time
}

// NewMockMealRepository creates a new mock meal repository
func NewMockMealRepository() *MockMealRepository {
	return &MockMealRepository{
		meals: make(map[string][]*meal.Meal),
		clock: time.Now,
	}
}

func (m *MockMealRepository) Create(ctx context.Context, s session.Session, ml *meal.Meal) error {
	args := m.Called(ctx, s, ml)
	if err := args.Error(0); err != nil {
		return err
	}
	if !s.Authenticated() {
		return errors.NewUnauthenticatedError()
	}
	if !ml.HasImage() {
		return errors.NewStorageURLMissingError()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	ml.MarkPersisted(s.UserID(), len(m.meals[s.UserID()])+1, m.clock())
	m.meals[s.UserID()] = append(m.meals[s.UserID()], ml.Clone())
	return nil
}

func (m *MockMealRepository) List(ctx context.Context, s session.Session) ([]*meal.Meal, error) {
	args := m.Called(ctx, s)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	if list, ok := args.Get(0).([]*meal.Meal); ok && list != nil {
		return list, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*meal.Meal, 0, len(m.meals[s.UserID()]))
	for _, ml := range m.meals[s.UserID()] {
		out = append(out, ml.Clone())
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt().After(out[j].CreatedAt()) })
	return out, nil
}

func (m *MockMealRepository) UpdateName(ctx context.Context, s session.Session, mealID, name string) error {
	args := m.Called(ctx, s, mealID, name)
	return args.Error(0)
}

func (m *MockMealRepository) Delete(ctx context.Context, s session.Session, mealID string) error {
	args := m.Called(ctx, s, mealID)
	return args.Error(0)
}

// MockShoppingRepository is a mock.Mock ShoppingRepository backed by an
// in-memory store
type MockShoppingRepository struct {
	mock.Mock

	mu    sync.Mutex
	items map[string][]shopping.Item
}

// NewMockShoppingRepository creates a new mock shopping repository
func NewMockShoppingRepository() *MockShoppingRepository {
	return &MockShoppingRepository{items: make(map[string][]shopping.Item)}
}

func (m *MockShoppingRepository) Load(ctx context.Context, s session.Session) (*shopping.List, error) {
	args := m.Called(ctx, s)
	if err := args.Error(0); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return shopping.NewList(s.UserID(), m.items[s.UserID()]), nil
}

func (m *MockShoppingRepository) Save(ctx context.Context, s session.Session, list *shopping.List) error {
	args := m.Called(ctx, s, list)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[s.UserID()] = list.Items()
	return nil
}

// MockClassifier is a mock Classifier
type MockClassifier struct {
	mock.Mock
}

func (m *MockClassifier) Classify(ctx context.Context, proteins, starchies, vegetables []string) (meal.Goal, error) {
	args := m.Called(ctx, proteins, starchies, vegetables)
	return args.Get(0).(meal.Goal), args.Error(1)
}

// MockNamer is a mock Namer
type MockNamer struct {
	mock.Mock
}

func (m *MockNamer) GenerateName(ctx context.Context, proteins, starchies, vegetables []string, goal meal.Goal) (string, error) {
	args := m.Called(ctx, proteins, starchies, vegetables, goal)
	return args.String(0), args.Error(1)
}

// MockImageSynthesizer is a mock ImageSynthesizer
type MockImageSynthesizer struct {
	mock.Mock
}

func (m *MockImageSynthesizer) SynthesizeImage(ctx context.Context, description string) (string, error) {
	args := m.Called(ctx, description)
	return args.String(0), args.Error(1)
}

// MockNutritionEstimator is a mock NutritionEstimator
type MockNutritionEstimator struct {
	mock.Mock
}

func (m *MockNutritionEstimator) EstimateNutrition(ctx context.Context, ingredients []string) (meal.Nutrition, error) {
	args := m.Called(ctx, ingredients)
	return args.Get(0).(meal.Nutrition), args.Error(1)
}

// MockAssetMaterializer is a mock AssetMaterializer
type MockAssetMaterializer struct {
	mock.Mock
}

func (m *MockAssetMaterializer) Materialize(ctx context.Context, remoteURL string) (*outbound.StagedAsset, error) {
	args := m.Called(ctx, remoteURL)
	asset, _ := args.Get(0).(*outbound.StagedAsset)
	return asset, args.Error(1)
}

func (m *MockAssetMaterializer) Publish(ctx context.Context, asset *outbound.StagedAsset) (string, error) {
	args := m.Called(ctx, asset)
	return args.String(0), args.Error(1)
}

func (m *MockAssetMaterializer) Discard(asset *outbound.StagedAsset) {
	m.Called(asset)
}

// MockCacheRepository is an in-memory CacheRepository that records calls
type MockCacheRepository struct {
	mock.Mock
	mu   sync.Mutex
	data map[string][]byte
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{data: make(map[string][]byte)}
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	m.Called(ctx, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, outbound.ErrCacheMiss
	}
	return v, nil
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	return nil
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	m.Called(ctx, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *MockCacheRepository) Exists(ctx context.Context, key string) (bool, error) {
	m.Called(ctx, key)
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok, nil
}
