package shopping_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/omq/mealsync/internal/application/shopping"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/ports/inbound"
	"github.com/omq/mealsync/pkg/errors"
	"github.com/omq/mealsync/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type ServiceTestSuite struct {
	suite.Suite
	repo    *testutils.MockShoppingRepository
	service *shopping.Service
	alice   session.Session
	ctx     context.Context
}

func (suite *ServiceTestSuite) SetupTest() {
	suite.repo = testutils.NewMockShoppingRepository()
	suite.service = shopping.NewService(suite.repo, zap.NewNop())
	suite.alice = session.New("alice", "")
	suite.ctx = context.Background()
}

func (suite *ServiceTestSuite) allowStore() {
	suite.repo.On("Load", mock.Anything, mock.Anything).Return(nil)
	suite.repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)
}

func (suite *ServiceTestSuite) TestAddUpdateRemove() {
	suite.allowStore()

	milk, err := suite.service.AddItem(suite.ctx, suite.alice, "  Lait ")
	require.NoError(suite.T(), err)
	_, err = suite.service.AddItem(suite.ctx, suite.alice, "")
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Lait", milk.Name)

	name, checked := "Lait entier", true
	updated, err := suite.service.UpdateItem(suite.ctx, suite.alice, milk.ID, inbound.UpdateItemCommand{Name: &name, Checked: &checked})
	require.NoError(suite.T(), err)
	assert.Equal(suite.T(), "Lait entier", updated.Name)
	assert.True(suite.T(), updated.Checked)

	list, err := suite.service.Get(suite.ctx, suite.alice)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list.Items(), 2)
	assert.False(suite.T(), list.AllChecked())

	require.NoError(suite.T(), suite.service.RemoveItem(suite.ctx, suite.alice, milk.ID))
	list, err = suite.service.Get(suite.ctx, suite.alice)
	require.NoError(suite.T(), err)
	require.Len(suite.T(), list.Items(), 1)
	assert.Equal(suite.T(), 0, list.Items()[0].Position)

	require.NoError(suite.T(), suite.service.Clear(suite.ctx, suite.alice))
	list, err = suite.service.Get(suite.ctx, suite.alice)
	require.NoError(suite.T(), err)
	assert.Empty(suite.T(), list.Items())
}

func (suite *ServiceTestSuite) TestUnknownItem_ShouldReturnNotFound() {
	suite.allowStore()
	checked := true

	_, err := suite.service.UpdateItem(suite.ctx, suite.alice, "missing", inbound.UpdateItemCommand{Checked: &checked})
	assert.True(suite.T(), errors.Is(err, errors.CodeNotFound))

	_, err = suite.service.UpdateItem(suite.ctx, suite.alice, "missing", inbound.UpdateItemCommand{})
	assert.True(suite.T(), errors.Is(err, errors.CodeNotFound))

	err = suite.service.RemoveItem(suite.ctx, suite.alice, "missing")
	assert.True(suite.T(), errors.Is(err, errors.CodeNotFound))
	suite.repo.AssertNotCalled(suite.T(), "Save", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ServiceTestSuite) TestAnonymous_ShouldBeRejected() {
	_, err := suite.service.Get(suite.ctx, session.Anonymous())
	assert.True(suite.T(), errors.Is(err, errors.CodeUnauthenticated))

	_, err = suite.service.AddItem(suite.ctx, session.Anonymous(), "x")
	assert.True(suite.T(), errors.Is(err, errors.CodeUnauthenticated))
	suite.repo.AssertNotCalled(suite.T(), "Load", mock.Anything, mock.Anything)
}

func (suite *ServiceTestSuite) TestSaveFailure_ShouldPropagate() {
	boom := errors.NewDatabaseError("save shopping list", stderrors.New("disk full"))
	suite.repo.On("Load", mock.Anything, mock.Anything).Return(nil)
	suite.repo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(boom)

	_, err := suite.service.AddItem(suite.ctx, suite.alice, "Pain")

	assert.True(suite.T(), errors.Is(err, errors.CodeDatabaseError))
}

func (suite *ServiceTestSuite) TestConcurrentAdds_ShouldAllBeKept() {
	suite.allowStore()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = suite.service.AddItem(suite.ctx, suite.alice, "item")
		}()
	}
	wg.Wait()

	list, err := suite.service.Get(suite.ctx, suite.alice)
	require.NoError(suite.T(), err)
	assert.Len(suite.T(), list.Items(), 20)
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}
