package apiserver_test

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/omq/mealsync/internal/application/mealsync"
	"github.com/omq/mealsync/internal/application/shopping"
	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/infrastructure/config"
	"github.com/omq/mealsync/internal/infrastructure/http/apiserver"
	"github.com/omq/mealsync/internal/infrastructure/monitoring"
	"github.com/omq/mealsync/internal/infrastructure/persistence/memory"
	"github.com/omq/mealsync/internal/infrastructure/security"
	"github.com/omq/mealsync/internal/ports/outbound"
	"github.com/omq/mealsync/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   struct {
		Code     string                 `json:"code"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"error"`
	Message string `json:"message"`
}

type ServerTestSuite struct {
	suite.Suite

	repo         *testutils.MockMealRepository
	classifier   *testutils.MockClassifier
	namer        *testutils.MockNamer
	images       *testutils.MockImageSynthesizer
	materializer *testutils.MockAssetMaterializer
	shoppingRepo *testutils.MockShoppingRepository
	revoked      *memory.CacheRepository

	handler http.Handler
	token   string
}

func (suite *ServerTestSuite) SetupTest() {
	logger := zap.NewNop()
	suite.repo = testutils.NewMockMealRepository()
	suite.classifier = new(testutils.MockClassifier)
	suite.namer = new(testutils.MockNamer)
	suite.images = new(testutils.MockImageSynthesizer)
	suite.materializer = new(testutils.MockAssetMaterializer)
	suite.shoppingRepo = testutils.NewMockShoppingRepository()
	suite.revoked = memory.NewCacheRepository(0)

	cfg := &config.Config{
		App: config.AppConfig{Name: "mealsync", Version: "test"},
		Server: config.ServerConfig{
			EnableCORS:        true,
			EnableCompression: true,
			EnableMetrics:     true,
		},
		Auth: config.AuthConfig{
			JWTSecret:      "server-test-secret",
			JWTExpiration:  time.Hour,
			Issuer:         "mealsync",
			AllowDevTokens: true,
		},
	}

	auth, err := security.NewAuthService(cfg.Auth, suite.revoked, logger)
	require.NoError(suite.T(), err)

	registry := mealsync.NewRegistry(mealsync.Dependencies{
		Repository:   suite.repo,
		Classifier:   suite.classifier,
		Namer:        suite.namer,
		Images:       suite.images,
		Materializer: suite.materializer,
	}, mealsync.Options{StageTimeout: time.Second}, logger)

	server := apiserver.NewServer(cfg, apiserver.Dependencies{
		Registry: registry,
		Shopping: shopping.NewService(suite.shoppingRepo, logger),
		Auth:     auth,
		Metrics:  monitoring.NewMetrics(logger),
		Health: map[string]apiserver.HealthCheck{
			"database": func(context.Context) error { return nil },
		},
	}, logger)
	suite.handler = server.Handler()

	rec := suite.do(http.MethodPost, "/api/v1/session", map[string]string{"userId": "alice"}, "")
	require.Equal(suite.T(), http.StatusCreated, rec.Code)
	var issued security.IssuedToken
	suite.decodeData(rec, &issued)
	suite.token = issued.Token
}

func (suite *ServerTestSuite) TearDownTest() {
	suite.revoked.Close()
}

func (suite *ServerTestSuite) do(method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(suite.T(), json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	suite.handler.ServeHTTP(rec, req)
	return rec
}

func (suite *ServerTestSuite) decode(rec *httptest.ResponseRecorder) envelope {
	var env envelope
	require.NoError(suite.T(), json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func (suite *ServerTestSuite) decodeData(rec *httptest.ResponseRecorder, dst interface{}) {
	env := suite.decode(rec)
	require.NoError(suite.T(), json.Unmarshal(env.Data, dst))
}

func (suite *ServerTestSuite) expectPipeline(synthErr error) {
	suite.classifier.On("Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(meal.GoalWeightLoss, nil)
	suite.namer.On("GenerateName", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("Poulet Léger", nil)
	if synthErr != nil {
		suite.images.On("SynthesizeImage", mock.Anything, mock.Anything).Return("", synthErr).Once()
	}
	suite.images.On("SynthesizeImage", mock.Anything, mock.Anything).Return("https://ai.example/tmp.png", nil)
	asset := &outbound.StagedAsset{Path: "/tmp/x.png", ContentType: "image/png", Size: 3}
	suite.materializer.On("Materialize", mock.Anything, mock.Anything).Return(asset, nil)
	suite.materializer.On("Publish", mock.Anything, asset).Return("https://storage.example/mealImages/abc.png", nil)
	suite.repo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	suite.repo.On("List", mock.Anything, mock.Anything).Return(nil, nil)
}

func (suite *ServerTestSuite) TestMealsRequireToken() {
	rec := suite.do(http.MethodGet, "/api/v1/meals", nil, "")
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/meals", nil, "garbage")
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func (suite *ServerTestSuite) TestMealLifecycle() {
	suite.expectPipeline(stderrors.New("provider down"))
	draft := map[string]interface{}{
		"proteins":   []string{"Poulet"},
		"starchies":  []string{"Riz"},
		"vegetables": []string{"Brocoli"},
		"cuisine":    "French",
	}

	// First attempt aborts at the image stage.
	rec := suite.do(http.MethodPost, "/api/v1/meals", draft, suite.token)
	require.Equal(suite.T(), http.StatusBadGateway, rec.Code)
	env := suite.decode(rec)
	assert.False(suite.T(), env.Success)
	assert.Equal(suite.T(), "PIPELINE_ABORTED", env.Error.Code)
	assert.Equal(suite.T(), "synthesize", env.Error.Metadata["stage"])

	rec = suite.do(http.MethodPost, "/api/v1/meals", draft, suite.token)
	require.Equal(suite.T(), http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Goal     string `json:"goal"`
		Cuisine  string `json:"cuisine"`
		ImageURL string `json:"imageUrl"`
	}
	suite.decodeData(rec, &created)
	assert.Equal(suite.T(), "Poulet Léger", created.Name)
	assert.Equal(suite.T(), "WeightLoss", created.Goal)
	assert.Equal(suite.T(), "French", created.Cuisine)
	assert.Equal(suite.T(), "https://storage.example/mealImages/abc.png", created.ImageURL)

	rec = suite.do(http.MethodGet, "/api/v1/meals?goal=WeightLoss", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var list struct {
		Count  int  `json:"count"`
		Loaded bool `json:"loaded"`
	}
	suite.decodeData(rec, &list)
	assert.Equal(suite.T(), 1, list.Count)
	assert.True(suite.T(), list.Loaded)

	rec = suite.do(http.MethodGet, "/api/v1/meals?goal=Kids", nil, suite.token)
	suite.decodeData(rec, &list)
	assert.Equal(suite.T(), 0, list.Count)

	suite.repo.On("UpdateName", mock.Anything, mock.Anything, created.ID, "Bol du soir").Return(nil)
	rec = suite.do(http.MethodPatch, "/api/v1/meals/"+created.ID, map[string]string{"name": "Bol du soir"}, suite.token)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	suite.repo.On("Delete", mock.Anything, mock.Anything, created.ID).Return(nil)
	rec = suite.do(http.MethodDelete, "/api/v1/meals/"+created.ID, nil, suite.token)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	suite.repo.AssertNumberOfCalls(suite.T(), "List", 1)
}

func (suite *ServerTestSuite) TestMealValidation() {
	rec := suite.do(http.MethodPost, "/api/v1/meals", map[string]interface{}{"proteins": []string{" "}}, suite.token)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = suite.do(http.MethodPost, "/api/v1/meals", map[string]interface{}{"proteins": []string{"x"}, "season": "Spring"}, suite.token)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = suite.do(http.MethodPatch, "/api/v1/meals/abc", map[string]string{"name": ""}, suite.token)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/meals?goal=Keto", nil, suite.token)
	assert.Equal(suite.T(), http.StatusUnprocessableEntity, rec.Code)

	rec = suite.do(http.MethodPost, "/api/v1/meals", map[string]interface{}{"unknown": true}, suite.token)
	assert.Equal(suite.T(), http.StatusBadRequest, rec.Code)
	suite.classifier.AssertNotCalled(suite.T(), "Classify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func (suite *ServerTestSuite) TestShopping() {
	suite.shoppingRepo.On("Load", mock.Anything, mock.Anything).Return(nil)
	suite.shoppingRepo.On("Save", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	rec := suite.do(http.MethodPost, "/api/v1/shopping/items", map[string]string{"name": "Lait"}, suite.token)
	require.Equal(suite.T(), http.StatusCreated, rec.Code)
	var item struct {
		ID string `json:"id"`
	}
	suite.decodeData(rec, &item)

	rec = suite.do(http.MethodPatch, "/api/v1/shopping/items/"+item.ID, map[string]bool{"checked": true}, suite.token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/shopping", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var list struct {
		Items      []map[string]interface{} `json:"items"`
		AllChecked bool                     `json:"allChecked"`
	}
	suite.decodeData(rec, &list)
	assert.Len(suite.T(), list.Items, 1)
	assert.True(suite.T(), list.AllChecked)

	rec = suite.do(http.MethodDelete, "/api/v1/shopping/items/missing", nil, suite.token)
	assert.Equal(suite.T(), http.StatusNotFound, rec.Code)

	rec = suite.do(http.MethodDelete, "/api/v1/shopping/items", nil, suite.token)
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
}

func (suite *ServerTestSuite) TestCategoriesAndHealth() {
	rec := suite.do(http.MethodGet, "/api/v1/meta/categories", nil, "")
	require.Equal(suite.T(), http.StatusOK, rec.Code)
	var cats struct {
		Goals   []map[string]string `json:"goals"`
		Seasons []map[string]string `json:"seasons"`
	}
	suite.decodeData(rec, &cats)
	assert.Len(suite.T(), cats.Goals, 4)
	assert.Len(suite.T(), cats.Seasons, 3)

	rec = suite.do(http.MethodGet, "/health", nil, "")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)

	rec = suite.do(http.MethodGet, "/metrics", nil, "")
	assert.Equal(suite.T(), http.StatusOK, rec.Code)
	assert.Contains(suite.T(), rec.Body.String(), `route="/api/v1/meta/categories"`)
}

func (suite *ServerTestSuite) TestEndSession_RevokesToken() {
	rec := suite.do(http.MethodGet, "/api/v1/session", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)

	rec = suite.do(http.MethodDelete, "/api/v1/session", nil, suite.token)
	require.Equal(suite.T(), http.StatusOK, rec.Code)

	rec = suite.do(http.MethodGet, "/api/v1/session", nil, suite.token)
	assert.Equal(suite.T(), http.StatusUnauthorized, rec.Code)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
