package cache_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/infrastructure/cache"
	"github.com/omq/mealsync/internal/infrastructure/persistence/memory"
	"github.com/omq/mealsync/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type lookups struct {
	mu      sync.Mutex
	results []string
}

func (l *lookups) CacheLookup(name, result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.results = append(l.results, name+":"+result)
}

func TestClassifierCache(t *testing.T) {
	ctx := context.Background()
	inner := new(testutils.MockClassifier)
	inner.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(meal.GoalBulking, nil).Once()
	rec := &lookups{}
	store := memory.NewCacheRepository(0)
	c := cache.NewClassifierCache(inner, store, time.Hour, rec, zap.NewNop())

	goal, err := c.Classify(ctx, []string{"Boeuf", "Oeufs"}, []string{"Pâtes"}, nil)
	require.NoError(t, err)
	assert.Equal(t, meal.GoalBulking, goal)

	goal, err = c.Classify(ctx, []string{" oeufs", "BOEUF"}, []string{"pâtes"}, []string{""})
	require.NoError(t, err)
	assert.Equal(t, meal.GoalBulking, goal)

	inner.AssertNumberOfCalls(t, "Classify", 1)
	assert.Equal(t, []string{"classifier:miss", "classifier:hit"}, rec.results)
}

func TestClassifierCache_ErrorsAreNotCached(t *testing.T) {
	ctx := context.Background()
	inner := new(testutils.MockClassifier)
	inner.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(meal.Goal(""), stderrors.New("provider down")).Once()
	inner.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(meal.GoalKids, nil).Once()
	c := cache.NewClassifierCache(inner, memory.NewCacheRepository(0), time.Hour, nil, zap.NewNop())

	_, err := c.Classify(ctx, []string{"Poisson"}, nil, nil)
	require.Error(t, err)

	goal, err := c.Classify(ctx, []string{"Poisson"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, meal.GoalKids, goal)
}

func TestClassifierCache_StoreFailureFallsThrough(t *testing.T) {
	ctx := context.Background()
	inner := new(testutils.MockClassifier)
	inner.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(meal.GoalDaily, nil)
	store := testutils.NewMockCacheRepository()
	store.On("Get", mock.Anything, mock.Anything)
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("read-only"))
	c := cache.NewClassifierCache(inner, store, time.Hour, nil, zap.NewNop())

	goal, err := c.Classify(ctx, []string{"Tofu"}, nil, nil)

	require.NoError(t, err)
	assert.Equal(t, meal.GoalDaily, goal)
	store.AssertCalled(t, "Set", mock.Anything, mock.Anything, []byte("Daily"), time.Hour)
}

func TestClassifierKey(t *testing.T) {
	a := cache.ClassifierKey([]string{"Poulet"}, []string{"Riz"}, nil)
	b := cache.ClassifierKey([]string{"poulet "}, []string{"RIZ"}, []string{})
	swapped := cache.ClassifierKey([]string{"Riz"}, []string{"Poulet"}, nil)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, swapped)
	assert.Contains(t, a, "mealsync:classify:v1:")
}
