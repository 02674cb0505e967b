//go:build integration

package postgres_test

import (
	"context"
	"testing"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/infrastructure/config"
	gormrepo "github.com/omq/mealsync/internal/infrastructure/persistence/gorm"
	"github.com/omq/mealsync/internal/infrastructure/persistence/postgres"
	"github.com/omq/mealsync/pkg/errors"
	"github.com/omq/mealsync/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestConnectionManager_Postgres(t *testing.T) {
	db := testutils.SetupTestDatabase(t)
	ctx := context.Background()

	cm, err := postgres.NewConnectionManager(&config.Config{Database: db.Config}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = cm.Close() })
	require.NoError(t, cm.HealthCheck(ctx))

	alice := session.New("alice", "alice@example.com")
	meals := gormrepo.NewMealRepository(cm.GetDB(), zap.NewNop())

	m, err := meal.NewMeal(testutils.NewMealFactory(7).Draft(), "Bol du soir", meal.GoalBulking)
	require.NoError(t, err)
	require.NoError(t, m.AttachImage("https://storage.example/mealImages/"+m.ID()+".png"))

	require.NoError(t, meals.Create(ctx, alice, m))
	assert.Equal(t, 1, m.DisplayID())

	listed, err := meals.List(ctx, alice)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, m.ID(), listed[0].ID())
	assert.Equal(t, meal.GoalBulking, listed[0].Goal())

	require.NoError(t, meals.UpdateName(ctx, alice, m.ID(), "Bol du matin"))
	listed, err = meals.List(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "Bol du matin", listed[0].Name())

	err = meals.Delete(ctx, session.New("bob", ""), m.ID())
	assert.True(t, errors.Is(err, errors.CodeMealNotFound))
	require.NoError(t, meals.Delete(ctx, alice, m.ID()))

	shopping := gormrepo.NewShoppingRepository(cm.GetDB())
	list, err := shopping.Load(ctx, alice)
	require.NoError(t, err)
	list.Add("Riz")
	list.Add("Poulet")
	require.NoError(t, shopping.Save(ctx, alice, list))

	list, err = shopping.Load(ctx, alice)
	require.NoError(t, err)
	items := list.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "Riz", items[0].Name)
	assert.Equal(t, "Poulet", items[1].Name)
}
