package gorm

import (
	"context"

	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/domain/shopping"
	"github.com/omq/mealsync/internal/ports/outbound"
	"github.com/omq/mealsync/pkg/errors"
	"gorm.io/gorm"
)

// ShoppingRepository implements the shopping list repository using GORM
type ShoppingRepository struct {
	db *gorm.DB
}

// NewShoppingRepository creates a new shopping repository
func NewShoppingRepository(db *gorm.DB) *ShoppingRepository {
	return &ShoppingRepository{db: db}
}

var _ outbound.ShoppingRepository = (*ShoppingRepository)(nil)

// Load returns the user's checklist ordered by position
func (r *ShoppingRepository) Load(ctx context.Context, s session.Session) (*shopping.List, error) {
	if !s.Authenticated() {
		return nil, errors.NewUnauthenticatedError()
	}

	var models []ShoppingItemModel
	result := r.db.WithContext(ctx).
		Where("user_id = ?", s.UserID()).
		Order("position ASC").
		Find(&models)
	if result.Error != nil {
		return nil, errors.NewDatabaseError("load shopping list", result.Error)
	}
	return shopping.NewList(s.UserID(), ModelsToItems(models)), nil
}

// Save replaces the user's stored checklist with list
func (r *ShoppingRepository) Save(ctx context.Context, s session.Session, list *shopping.List) error {
	if !s.Authenticated() {
		return errors.NewUnauthenticatedError()
	}

	models := ItemsToModels(s.UserID(), list.Items())
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", s.UserID()).Delete(&ShoppingItemModel{}).Error; err != nil {
			return err
		}
		if len(models) == 0 {
			return nil
		}
		return tx.Create(&models).Error
	})
	if err != nil {
		return errors.NewDatabaseError("save shopping list", err)
	}
	return nil
}
