package meal

import "errors"

// Domain errors for meal operations

var (
	ErrNoIngredients    = errors.New("meal must have at least one ingredient")
	ErrInvalidCuisine   = errors.New("unknown cuisine")
	ErrInvalidSeason    = errors.New("unknown season")
	ErrInvalidGoal      = errors.New("unknown goal")
	ErrEmptyName        = errors.New("meal name is required")
	ErrNameTooLong      = errors.New("meal name must not exceed 80 characters")
	ErrInvalidImageURL  = errors.New("image URL must be absolute")
	ErrMissingID        = errors.New("meal id is required")
	ErrInvalidNutrition = errors.New("nutrition values cannot be negative")
)
