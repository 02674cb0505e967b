package gorm

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/ports/outbound"
	"github.com/omq/mealsync/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MealRepository implements the meal repository interface using GORM
type MealRepository struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewMealRepository creates a new meal repository
func NewMealRepository(db *gorm.DB, logger *zap.Logger) *MealRepository {
	return &MealRepository{
		db:     db,
		logger: logger.Named("meal-repository"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

var _ outbound.MealRepository = (*MealRepository)(nil)

// Create stores the meal and stamps it with the store-assigned creation
// time and display id
func (r *MealRepository) Create(ctx context.Context, s session.Session, m *meal.Meal) error {
	if !s.Authenticated() {
		return errors.NewUnauthenticatedError()
	}
	if !m.HasImage() {
		return errors.NewStorageURLMissingError()
	}

	createdAt := r.now()
	var displayID int

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&MealDocument{}).Where("user_id = ?", s.UserID()).Count(&count).Error; err != nil {
			return err
		}
		displayID = int(count) + 1

		doc, err := MealToDocument(s.UserID(), m, displayID, createdAt)
		if err != nil {
			return err
		}
		return tx.Create(doc).Error
	})
	if err != nil {
		return errors.NewDatabaseError("create meal", err)
	}

	m.MarkPersisted(s.UserID(), displayID, createdAt)
	return nil
}

// List returns the user's meals newest first. Records that cannot be decoded
// are logged and skipped.
func (r *MealRepository) List(ctx context.Context, s session.Session) ([]*meal.Meal, error) {
	if !s.Authenticated() {
		return nil, errors.NewUnauthenticatedError()
	}

	var docs []MealDocument
	result := r.db.WithContext(ctx).
		Where("user_id = ?", s.UserID()).
		Order("created_at DESC").
		Find(&docs)
	if result.Error != nil {
		return nil, errors.NewDatabaseError("list meals", result.Error)
	}

	meals := make([]*meal.Meal, 0, len(docs))
	for i := range docs {
		m, err := DocumentToMeal(&docs[i])
		if err != nil {
			r.logger.Warn("Skipping malformed meal record",
				zap.String("meal_id", docs[i].ID),
				zap.String("user_id", s.UserID()),
				zap.Error(err),
			)
			continue
		}
		meals = append(meals, m)
	}
	return meals, nil
}

// UpdateName renames a meal in both the name column and the stored body
func (r *MealRepository) UpdateName(ctx context.Context, s session.Session, mealID, name string) error {
	if !s.Authenticated() {
		return errors.NewUnauthenticatedError()
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var doc MealDocument
		if err := tx.Where("id = ? AND user_id = ?", mealID, s.UserID()).First(&doc).Error; err != nil {
			return err
		}
		body, err := renameDocumentBody(doc.Body, name)
		if err != nil {
			return err
		}
		return tx.Model(&MealDocument{}).
			Where("id = ? AND user_id = ?", mealID, s.UserID()).
			Updates(map[string]interface{}{"name": name, "body": body}).Error
	})
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return errors.NewMealNotFoundError(mealID)
	}
	if err != nil {
		return errors.NewDatabaseError("rename meal", err)
	}
	return nil
}

// Delete removes a meal record. The image it points at is not touched.
func (r *MealRepository) Delete(ctx context.Context, s session.Session, mealID string) error {
	if !s.Authenticated() {
		return errors.NewUnauthenticatedError()
	}

	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", mealID, s.UserID()).
		Delete(&MealDocument{})
	if result.Error != nil {
		return errors.NewDatabaseError("delete meal", result.Error)
	}
	if result.RowsAffected == 0 {
		return errors.NewMealNotFoundError(mealID)
	}
	return nil
}
