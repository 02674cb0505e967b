package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/omq/mealsync/internal/application/mealsync"
	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/pkg/errors"
	"go.uber.org/zap"
)

// MealHandlers serves the meal journal of the signed-in user
type MealHandlers struct {
	responder
	registry *mealsync.Registry
}

// NewMealHandlers creates meal handlers backed by the controller registry
func NewMealHandlers(registry *mealsync.Registry, logger *zap.Logger) *MealHandlers {
	return &MealHandlers{
		responder: newResponder(logger.Named("meal-handlers")),
		registry:  registry,
	}
}

// CreateMealRequest is the ingredient selection submitted by the user
type CreateMealRequest struct {
	Proteins   []string `json:"proteins" validate:"max=20,dive,max=100"`
	Starchies  []string `json:"starchies" validate:"max=20,dive,max=100"`
	Vegetables []string `json:"vegetables" validate:"max=20,dive,max=100"`
	Cuisine    string   `json:"cuisine,omitempty" validate:"omitempty,max=40"`
	Season     string   `json:"season,omitempty" validate:"omitempty,max=40"`
}

// RenameMealRequest carries a new meal name
type RenameMealRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

// NutritionDTO is the nutrition estimate of a meal
type NutritionDTO struct {
	Calories             float64        `json:"calories"`
	ProteinsGrams        float64        `json:"proteinsGrams"`
	Carbs                float64        `json:"carbs"`
	Fats                 float64        `json:"fats"`
	IngredientQuantities map[string]int `json:"ingredientQuantities,omitempty"`
}

// MealDTO represents a meal in API responses
type MealDTO struct {
	ID         string        `json:"id"`
	DisplayID  int           `json:"displayId"`
	Name       string        `json:"name"`
	Goal       string        `json:"goal"`
	GoalLabel  string        `json:"goalLabel"`
	Cuisine    string        `json:"cuisine"`
	Season     string        `json:"season"`
	Proteins   []string      `json:"proteins"`
	Starchies  []string      `json:"starchies"`
	Vegetables []string      `json:"vegetables"`
	ImageURL   string        `json:"imageUrl"`
	Nutrition  *NutritionDTO `json:"nutrition,omitempty"`
	CreatedAt  time.Time     `json:"createdAt"`
}

// MealListDTO is the cached meal list
type MealListDTO struct {
	Meals  []MealDTO `json:"meals"`
	Count  int       `json:"count"`
	Loaded bool      `json:"loaded"`
	State  string    `json:"state"`
}

// ListMeals handles GET /api/v1/meals
func (h *MealHandlers) ListMeals(w http.ResponseWriter, r *http.Request) {
	c, err := h.controller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	filter, err := parseFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	if refresh {
		c.ForceRefresh(r.Context())
	} else {
		c.EnsureLoaded(r.Context())
	}

	meals := c.Filter(filter)
	h.ok(w, http.StatusOK, MealListDTO{
		Meals:  toMealDTOs(meals),
		Count:  len(meals),
		Loaded: c.Loaded(),
		State:  c.State().String(),
	}, "")
}

// CreateMeal handles POST /api/v1/meals
func (h *MealHandlers) CreateMeal(w http.ResponseWriter, r *http.Request) {
	c, err := h.controller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req CreateMealRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		h.fail(w, r, err)
		return
	}

	m, err := c.CreateMeal(r.Context(), draft)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, toMealDTO(m), "Meal created")
}

// RenameMeal handles PATCH /api/v1/meals/{id}
func (h *MealHandlers) RenameMeal(w http.ResponseWriter, r *http.Request) {
	c, err := h.controller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	var req RenameMealRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := c.RenameMeal(r.Context(), id, req.Name); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, map[string]string{"id": id}, "Meal renamed")
}

// DeleteMeal handles DELETE /api/v1/meals/{id}
func (h *MealHandlers) DeleteMeal(w http.ResponseWriter, r *http.Request) {
	c, err := h.controller(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	id := chi.URLParam(r, "id")
	if err := c.DeleteMeal(r.Context(), id); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, map[string]string{"id": id}, "Meal deleted")
}

func (h *MealHandlers) controller(r *http.Request) (*mealsync.SyncController, error) {
	return h.registry.ForSession(session.FromContext(r.Context()))
}

func (req CreateMealRequest) toDraft() (meal.Draft, error) {
	draft := meal.Draft{
		Proteins:   req.Proteins,
		Starchies:  req.Starchies,
		Vegetables: req.Vegetables,
	}
	if req.Cuisine != "" {
		c, ok := meal.ParseCuisine(req.Cuisine)
		if !ok {
			return meal.Draft{}, errors.NewValidationError("unknown cuisine " + strconv.Quote(req.Cuisine))
		}
		draft.Cuisine = c
	}
	if req.Season != "" {
		s, ok := meal.ParseSeason(req.Season)
		if !ok {
			return meal.Draft{}, errors.NewValidationError("unknown season " + strconv.Quote(req.Season))
		}
		draft.Season = s
	}
	return draft, nil
}

func parseFilter(r *http.Request) (meal.Filter, error) {
	q := r.URL.Query()
	var f meal.Filter
	if v := q.Get("goal"); v != "" {
		g, ok := meal.ParseGoal(v)
		if !ok {
			return f, errors.NewValidationError("unknown goal " + strconv.Quote(v))
		}
		f.Goal = g
	}
	if v := q.Get("cuisine"); v != "" {
		c, ok := meal.ParseCuisine(v)
		if !ok {
			return f, errors.NewValidationError("unknown cuisine " + strconv.Quote(v))
		}
		f.Cuisine = c
	}
	if v := q.Get("season"); v != "" {
		s, ok := meal.ParseSeason(v)
		if !ok {
			return f, errors.NewValidationError("unknown season " + strconv.Quote(v))
		}
		f.Season = s
	}
	return f, nil
}

func toMealDTO(m *meal.Meal) MealDTO {
	dto := MealDTO{
		ID:         m.ID(),
		DisplayID:  m.DisplayID(),
		Name:       m.Name(),
		Goal:       string(m.Goal()),
		GoalLabel:  m.Goal().Label(),
		Cuisine:    string(m.Cuisine()),
		Season:     string(m.Season()),
		Proteins:   m.Proteins(),
		Starchies:  m.Starchies(),
		Vegetables: m.Vegetables(),
		ImageURL:   m.ImageURL(),
		CreatedAt:  m.CreatedAt(),
	}
	if n := m.Nutrition(); n != nil {
		dto.Nutrition = &NutritionDTO{
			Calories:             n.Calories,
			ProteinsGrams:        n.ProteinsGrams,
			Carbs:                n.Carbs,
			Fats:                 n.Fats,
			IngredientQuantities: n.IngredientQuantities,
		}
	}
	return dto
}

func toMealDTOs(meals []*meal.Meal) []MealDTO {
	out := make([]MealDTO, len(meals))
	for i, m := range meals {
		out[i] = toMealDTO(m)
	}
	return out
}
