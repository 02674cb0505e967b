package gorm

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/shopping"
	"gorm.io/datatypes"
)

// MealToDocument converts a meal to its stored document. The id, display id
// and creation time are taken from the arguments rather than the meal, since
// the store assigns them.
func MealToDocument(userID string, m *meal.Meal, displayID int, createdAt time.Time) (*MealDocument, error) {
	snap := m.Snapshot()
	snap.DisplayID = displayID
	snap.CreatedAt = createdAt

	body, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to encode meal %s: %w", m.ID(), err)
	}
	return &MealDocument{
		ID:        m.ID(),
		UserID:    userID,
		DisplayID: displayID,
		Name:      m.Name(),
		Body:      datatypes.JSON(body),
		CreatedAt: createdAt,
	}, nil
}

// DocumentToMeal decodes a stored document. The row's columns win over the
// body for id, display id and creation time.
func DocumentToMeal(doc *MealDocument) (*meal.Meal, error) {
	var snap meal.Snapshot
	if err := json.Unmarshal(doc.Body, &snap); err != nil {
		return nil, fmt.Errorf("%w: %v", meal.ErrMalformedSnapshot, err)
	}
	snap.ID = doc.ID
	snap.DisplayID = doc.DisplayID
	if !doc.CreatedAt.IsZero() {
		snap.CreatedAt = doc.CreatedAt
	}
	return meal.Rehydrate(snap)
}

func renameDocumentBody(body datatypes.JSON, name string) (datatypes.JSON, error) {
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", meal.ErrMalformedSnapshot, err)
	}
	doc["name"] = name
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(out), nil
}

// ItemsToModels converts checklist items to rows
func ItemsToModels(userID string, items []shopping.Item) []ShoppingItemModel {
	models := make([]ShoppingItemModel, len(items))
	for i, it := range items {
		models[i] = ShoppingItemModel{
			ID:       it.ID,
			UserID:   userID,
			Name:     it.Name,
			Checked:  it.Checked,
			Position: it.Position,
		}
	}
	return models
}

// ModelsToItems converts rows back to checklist items
func ModelsToItems(models []ShoppingItemModel) []shopping.Item {
	items := make([]shopping.Item, len(models))
	for i, m := range models {
		items[i] = shopping.Item{
			ID:       m.ID,
			Name:     m.Name,
			Checked:  m.Checked,
			Position: m.Position,
		}
	}
	return items
}
