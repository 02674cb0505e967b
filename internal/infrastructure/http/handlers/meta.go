package handlers

import (
	"net/http"

	"github.com/omq/mealsync/internal/domain/meal"
	"go.uber.org/zap"
)

// MetaHandlers serves static reference data
type MetaHandlers struct {
	responder
}

// NewMetaHandlers creates meta handlers
func NewMetaHandlers(logger *zap.Logger) *MetaHandlers {
	return &MetaHandlers{responder: newResponder(logger.Named("meta-handlers"))}
}

// CategoryDTO pairs a wire token with its display label
type CategoryDTO struct {
	Token string `json:"token"`
	Label string `json:"label"`
}

// CategoriesDTO lists every goal, cuisine and season
type CategoriesDTO struct {
	Goals    []CategoryDTO `json:"goals"`
	Cuisines []CategoryDTO `json:"cuisines"`
	Seasons  []CategoryDTO `json:"seasons"`
}

// Categories handles GET /api/v1/meta/categories
func (h *MetaHandlers) Categories(w http.ResponseWriter, r *http.Request) {
	var out CategoriesDTO
	for _, g := range meal.AllGoals() {
		out.Goals = append(out.Goals, CategoryDTO{Token: string(g), Label: g.Label()})
	}
	for _, c := range meal.AllCuisines() {
		out.Cuisines = append(out.Cuisines, CategoryDTO{Token: string(c), Label: c.Label()})
	}
	for _, s := range meal.AllSeasons() {
		out.Seasons = append(out.Seasons, CategoryDTO{Token: string(s), Label: s.Label()})
	}
	h.ok(w, http.StatusOK, out, "")
}
