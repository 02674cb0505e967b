package meal

// Nutrition is an estimate for one adult serving
type Nutrition struct {
	Calories             float64
	ProteinsGrams        float64
	Carbs                float64
	Fats                 float64
	IngredientQuantities map[string]int
}

// Validate validates the nutrition estimate
func (n Nutrition) Validate() error {
	if n.Calories < 0 || n.ProteinsGrams < 0 || n.Carbs < 0 || n.Fats < 0 {
		return ErrInvalidNutrition
	}
	for _, grams := range n.IngredientQuantities {
		if grams < 0 {
			return ErrInvalidNutrition
		}
	}
	return nil
}
