package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

type recordedCall struct {
	Path  string
	Auth  string
	Chat  ChatCompletionRequest
	Image ImageGenerationRequest
}

type fakeProvider struct {
	mu       sync.Mutex
	calls    []recordedCall
	status   int
	chat     string
	imageURL string
	raw      string
}

func (f *fakeProvider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	call := recordedCall{Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	switch r.URL.Path {
	case "/v1/chat/completions":
		_ = json.NewDecoder(r.Body).Decode(&call.Chat)
	case "/v1/images/generations":
		_ = json.NewDecoder(r.Body).Decode(&call.Image)
	}
	f.calls = append(f.calls, call)

	if f.status != 0 && f.status != http.StatusOK {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"error":{"message":"boom"}}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if f.raw != "" {
		_, _ = w.Write([]byte(f.raw))
		return
	}
	if r.URL.Path == "/v1/images/generations" {
		_ = json.NewEncoder(w).Encode(ImageGenerationResponse{Data: []ImageData{{URL: f.imageURL}}})
		return
	}
	_ = json.NewEncoder(w).Encode(ChatCompletionResponse{
		Choices: []Choice{{Message: Message{Role: "assistant", Content: f.chat}}},
	})
}

type ClientTestSuite struct {
	suite.Suite
	provider *fakeProvider
	server   *httptest.Server
	client   *Client
	metrics  *stubRecorder
}

type stubRecorder struct {
	mu       sync.Mutex
	statuses []string
}

func (s *stubRecorder) AIRequest(provider, model, status string, _ time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.statuses = append(s.statuses, provider+"/"+model+"/"+status)
}

func (suite *ClientTestSuite) SetupTest() {
	suite.provider = &fakeProvider{}
	suite.server = httptest.NewServer(suite.provider)
	suite.metrics = &stubRecorder{}
	suite.client = NewClient(Config{
		APIKey:  "sk-test",
		BaseURL: suite.server.URL + "/v1/",
		Timeout: 5 * time.Second,
	}, suite.metrics, zap.NewNop())
}

func (suite *ClientTestSuite) TearDownTest() {
	suite.server.Close()
}

func (suite *ClientTestSuite) TestClassify() {
	suite.Run("EmojiReply_ShouldMapToGoal", func() {
		suite.provider.chat = " 🥗 WeightLoss \n"

		goal, err := NewClassifier(suite.client).Classify(context.Background(),
			[]string{"Poulet"}, []string{"Riz", ""}, []string{"Brocoli"})

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), meal.GoalWeightLoss, goal)

		last := suite.provider.calls[len(suite.provider.calls)-1]
		assert.Equal(suite.T(), "Bearer sk-test", last.Auth)
		assert.Equal(suite.T(), "gpt-4o", last.Chat.Model)
		assert.Equal(suite.T(), 10, last.Chat.MaxTokens)
		assert.InDelta(suite.T(), 0.7, last.Chat.Temperature, 0.001)
		require.Len(suite.T(), last.Chat.Messages, 2)
		assert.Contains(suite.T(), last.Chat.Messages[1].Content, "Starchy foods: Riz\n")
	})

	suite.Run("TokenAtEnd_ShouldMapToGoal", func() {
		suite.provider.chat = "Goal: Kids"

		goal, err := NewClassifier(suite.client).Classify(context.Background(), []string{"x"}, nil, nil)

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), meal.GoalKids, goal)
	})

	suite.Run("UnknownReply_ShouldFail", func() {
		suite.provider.chat = "Keto"

		_, err := NewClassifier(suite.client).Classify(context.Background(), []string{"x"}, nil, nil)

		assert.ErrorIs(suite.T(), err, ErrUnknownGoal)
	})
}

func (suite *ClientTestSuite) TestGenerateName() {
	suite.Run("MultiLineReply_ShouldKeepFirstLine", func() {
		suite.provider.chat = "Poulet Léger\nA light chicken bowl."

		name, err := NewNamer(suite.client).GenerateName(context.Background(),
			[]string{"Poulet"}, []string{"Riz"}, []string{"Brocoli"}, meal.GoalWeightLoss)

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "Poulet Léger", name)
		last := suite.provider.calls[len(suite.provider.calls)-1]
		assert.Equal(suite.T(), 15, last.Chat.MaxTokens)
		assert.Contains(suite.T(), last.Chat.Messages[1].Content, "Perte de poids")
	})

	suite.Run("BlankReply_ShouldFail", func() {
		suite.provider.chat = "   "

		_, err := NewNamer(suite.client).GenerateName(context.Background(), []string{"x"}, nil, nil, meal.GoalDaily)

		assert.ErrorIs(suite.T(), err, ErrEmptyContent)
	})

	suite.Run("ServerError_ShouldReturnAPIError", func() {
		suite.provider.status = http.StatusInternalServerError
		defer func() { suite.provider.status = 0 }()

		_, err := NewNamer(suite.client).GenerateName(context.Background(), []string{"x"}, nil, nil, meal.GoalDaily)

		var apiErr *APIError
		require.ErrorAs(suite.T(), err, &apiErr)
		assert.Equal(suite.T(), http.StatusInternalServerError, apiErr.StatusCode)
		assert.Contains(suite.T(), suite.metrics.statuses, "openai/gpt-4o/error")
	})
}

func (suite *ClientTestSuite) TestSynthesizeImage() {
	suite.Run("Success_ShouldReturnFirstURL", func() {
		suite.provider.imageURL = "https://ai.example/tmp123.png"

		url, err := NewImageSynthesizer(suite.client).SynthesizeImage(context.Background(), "a bowl")

		require.NoError(suite.T(), err)
		assert.Equal(suite.T(), "https://ai.example/tmp123.png", url)
		last := suite.provider.calls[len(suite.provider.calls)-1]
		assert.Equal(suite.T(), ImageGenerationRequest{Model: "dall-e-3", Prompt: "a bowl", N: 1, Size: "1024x1024"}, last.Image)
	})

	suite.Run("EmptyData_ShouldFail", func() {
		suite.provider.raw = `{"data":[]}`
		defer func() { suite.provider.raw = "" }()

		_, err := NewImageSynthesizer(suite.client).SynthesizeImage(context.Background(), "a bowl")

		assert.ErrorIs(suite.T(), err, ErrNoImage)
	})

	suite.Run("MalformedBody_ShouldFail", func() {
		suite.provider.raw = `not json`
		defer func() { suite.provider.raw = "" }()

		_, err := NewImageSynthesizer(suite.client).SynthesizeImage(context.Background(), "a bowl")

		assert.Error(suite.T(), err)
	})
}

func (suite *ClientTestSuite) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := suite.client.Complete(ctx, "s", "u", 10, 0.5)

	assert.ErrorIs(suite.T(), err, context.Canceled)
}

func (suite *ClientTestSuite) TestMissingAPIKey() {
	c := NewClient(Config{BaseURL: suite.server.URL}, nil, zap.NewNop())

	_, err := c.GenerateImage(context.Background(), "x")

	assert.ErrorIs(suite.T(), err, ErrMissingAPIKey)
	assert.Empty(suite.T(), suite.provider.calls)
	assert.ErrorIs(suite.T(), c.HealthCheck(context.Background()), ErrMissingAPIKey)
	assert.NoError(suite.T(), suite.client.HealthCheck(context.Background()))
}

func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func TestParseNutrition(t *testing.T) {
	reply := "```json\n{\"calories\": 640, \"proteins\": 42.5, \"carbs\": 70, \"fats\": 18,\n" +
		"\"ingredientQuantities\": {\"Poulet\": 150.4, \"Riz\": 120}}\n```"

	n, err := parseNutrition(reply)

	require.NoError(t, err)
	assert.Equal(t, 640.0, n.Calories)
	assert.Equal(t, 42.5, n.ProteinsGrams)
	assert.Equal(t, map[string]int{"Poulet": 150, "Riz": 120}, n.IngredientQuantities)

	_, err = parseNutrition("I cannot estimate that.")
	assert.ErrorIs(t, err, ErrNoJSONObject)

	_, err = parseNutrition(`{"calories": 100}`)
	assert.ErrorIs(t, err, ErrNutritionIncomplete)

	_, err = parseNutrition(`{"calories": -1, "proteins": 1, "carbs": 1, "fats": 1}`)
	assert.ErrorIs(t, err, meal.ErrInvalidNutrition)
}
