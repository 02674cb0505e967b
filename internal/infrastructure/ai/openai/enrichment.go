package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/omq/mealsync/internal/domain/meal"
)

var (
	ErrUnknownGoal         = errors.New("openai: reply is not a known goal")
	ErrNoJSONObject        = errors.New("openai: reply contains no JSON object")
	ErrNutritionIncomplete = errors.New("openai: nutrition reply is incomplete")
)

const (
	classifySystem = "You are a nutrition expert who categorizes home-cooked meals."
	classifyPrompt = `Here is a meal made of the following ingredients:
- Proteins: %s
- Starchy foods: %s
- Vegetables: %s

Classify this meal under exactly one of these goals:
%s

Answer only with the matching emoji and token, for example "%s". No explanation.`

	nameSystem = "You are a culinary assistant who names dishes."
	namePrompt = `Suggest a simple, appetizing and memorable meal name (2 words maximum) for a dish made of: %s, %s, %s. ` +
		`The goal of the meal is: %s. The name must be understood by everyone, make people hungry and be easy to remember. ` +
		`Answer with the name only.`

	nutritionSystem = "You are a dietitian specialised in home-cooked meals."
	nutritionPrompt = `Here is a meal made of the following ingredients:
%s.

For a standard adult serving, give a realistic estimate of:
- total calories (kcal)
- proteins (g)
- carbohydrates (g)
- fats (g)

Also give a standard quantity in grams for each ingredient.

Answer only in this JSON format:
{
  "calories": number,
  "proteins": number,
  "carbs": number,
  "fats": number,
  "ingredientQuantities": {
    "ingredient_name_1": number,
    "ingredient_name_2": number
  }
}`
)

// Classifier implements outbound.Classifier
type Classifier struct {
	client *Client
}

func NewClassifier(client *Client) *Classifier {
	return &Classifier{client: client}
}

// Classify asks the model for one goal token and maps the reply onto the closed set
func (c *Classifier) Classify(ctx context.Context, proteins, starchies, vegetables []string) (meal.Goal, error) {
	choices := make([]string, 0, len(meal.AllGoals()))
	for _, g := range meal.AllGoals() {
		choices = append(choices, g.Emoji()+" "+string(g))
	}
	prompt := fmt.Sprintf(classifyPrompt,
		joinIngredients(proteins), joinIngredients(starchies), joinIngredients(vegetables),
		strings.Join(choices, ", "), choices[1])

	reply, err := c.client.Complete(ctx, classifySystem, prompt, 10, 0.7)
	if err != nil {
		return "", err
	}
	goal, ok := meal.ParseGoal(reply)
	if !ok {
		// Replies such as "Goal: Kids" carry the token last.
		fields := strings.Fields(reply)
		if len(fields) > 1 {
			goal, ok = meal.ParseGoal(fields[len(fields)-1])
		}
	}
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownGoal, reply)
	}
	return goal, nil
}

// Namer implements outbound.Namer
type Namer struct {
	client *Client
}

func NewNamer(client *Client) *Namer {
	return &Namer{client: client}
}

// GenerateName returns the first line of the model's reply
func (n *Namer) GenerateName(ctx context.Context, proteins, starchies, vegetables []string, goal meal.Goal) (string, error) {
	prompt := fmt.Sprintf(namePrompt,
		joinIngredients(proteins), joinIngredients(starchies), joinIngredients(vegetables), goal.Label())

	reply, err := n.client.Complete(ctx, nameSystem, prompt, 15, 0.8)
	if err != nil {
		return "", err
	}
	name := firstLine(reply)
	if name == "" {
		return "", ErrEmptyContent
	}
	return name, nil
}

// ImageSynthesizer implements outbound.ImageSynthesizer
type ImageSynthesizer struct {
	client *Client
}

func NewImageSynthesizer(client *Client) *ImageSynthesizer {
	return &ImageSynthesizer{client: client}
}

func (s *ImageSynthesizer) SynthesizeImage(ctx context.Context, description string) (string, error) {
	return s.client.GenerateImage(ctx, description)
}

// NutritionEstimator implements outbound.NutritionEstimator
type NutritionEstimator struct {
	client *Client
}

func NewNutritionEstimator(client *Client) *NutritionEstimator {
	return &NutritionEstimator{client: client}
}

type nutritionReply struct {
	Calories             *float64           `json:"calories"`
	Proteins             *float64           `json:"proteins"`
	Carbs                *float64           `json:"carbs"`
	Fats                 *float64           `json:"fats"`
	IngredientQuantities map[string]float64 `json:"ingredientQuantities"`
}

func (e *NutritionEstimator) EstimateNutrition(ctx context.Context, ingredients []string) (meal.Nutrition, error) {
	reply, err := e.client.Complete(ctx, nutritionSystem, fmt.Sprintf(nutritionPrompt, joinIngredients(ingredients)), 300, 0.7)
	if err != nil {
		return meal.Nutrition{}, err
	}
	return parseNutrition(reply)
}

func parseNutrition(reply string) (meal.Nutrition, error) {
	cleaned := strings.ReplaceAll(reply, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start == -1 || end <= start {
		return meal.Nutrition{}, ErrNoJSONObject
	}

	var r nutritionReply
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &r); err != nil {
		return meal.Nutrition{}, fmt.Errorf("failed to decode nutrition: %w", err)
	}
	if r.Calories == nil || r.Proteins == nil || r.Carbs == nil || r.Fats == nil {
		return meal.Nutrition{}, ErrNutritionIncomplete
	}

	n := meal.Nutrition{
		Calories:             *r.Calories,
		ProteinsGrams:        *r.Proteins,
		Carbs:                *r.Carbs,
		Fats:                 *r.Fats,
		IngredientQuantities: make(map[string]int, len(r.IngredientQuantities)),
	}
	for name, grams := range r.IngredientQuantities {
		n.IngredientQuantities[name] = int(math.Round(grams))
	}
	return n, n.Validate()
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
