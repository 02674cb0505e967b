// Package gorm provides GORM model definitions and repositories
package gorm

import (
	"time"

	"gorm.io/datatypes"
)

// MealDocument is one meal record in a user's private collection. Body holds
// the full meal snapshot; the scalar columns mirror the fields queried on.
type MealDocument struct {
	ID        string         `gorm:"type:varchar(36);primaryKey"`
	UserID    string         `gorm:"type:varchar(128);not null;index:idx_meal_documents_user_created,priority:1"`
	DisplayID int            `gorm:"not null;default:0"`
	Name      string         `gorm:"type:varchar(255);not null"`
	Body      datatypes.JSON `gorm:"not null"`
	CreatedAt time.Time      `gorm:"not null;index:idx_meal_documents_user_created,priority:2,sort:desc"`
}

// TableName specifies the table name
func (MealDocument) TableName() string {
	return "meal_documents"
}

// ShoppingItemModel is one row of a user's shopping checklist
type ShoppingItemModel struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	UserID    string `gorm:"type:varchar(128);not null;index"`
	Name      string `gorm:"type:varchar(255);not null;default:''"`
	Checked   bool   `gorm:"not null;default:false"`
	Position  int    `gorm:"not null;default:0"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name
func (ShoppingItemModel) TableName() string {
	return "shopping_items"
}

// AllModels lists the models managed by AutoMigrate
func AllModels() []interface{} {
	return []interface{}{
		&MealDocument{},
		&ShoppingItemModel{},
	}
}
