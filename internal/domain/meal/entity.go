// Package meal contains the core domain model for journaled meals.
package meal

import (
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/omq/mealsync/internal/domain/shared"
)

const maxNameLength = 80

// Meal is one journaled meal: the ingredients the user picked plus the
// name, goal, image and nutrition produced by the enrichment pipeline.
type Meal struct {
	shared.AggregateRoot

	id        string
	displayID int

	proteins   []string
	starchies  []string
	vegetables []string

	name    string
	goal    Goal
	cuisine Cuisine
	season  Season

	imageURL  string
	nutrition *Nutrition

	createdAt time.Time
}

// NewMeal builds an unpersisted meal from a normalized draft and the
// enrichment results. The image is attached separately once published.
func NewMeal(draft Draft, name string, goal Goal) (*Meal, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if !goal.Valid() {
		return nil, ErrInvalidGoal
	}

	return &Meal{
		id:         uuid.NewString(),
		proteins:   copyStrings(draft.Proteins),
		starchies:  copyStrings(draft.Starchies),
		vegetables: copyStrings(draft.Vegetables),
		name:       name,
		goal:       goal,
		cuisine:    draft.Cuisine,
		season:     draft.Season,
	}, nil
}

// ID returns the meal's unique identifier
func (m *Meal) ID() string {
	return m.id
}

// DisplayID returns the legacy numeric identifier. It is not unique.
func (m *Meal) DisplayID() int {
	return m.displayID
}

func (m *Meal) Proteins() []string {
	return copyStrings(m.proteins)
}

func (m *Meal) Starchies() []string {
	return copyStrings(m.starchies)
}

func (m *Meal) Vegetables() []string {
	return copyStrings(m.vegetables)
}

func (m *Meal) Name() string {
	return m.name
}

func (m *Meal) Goal() Goal {
	return m.goal
}

func (m *Meal) Cuisine() Cuisine {
	return m.cuisine
}

func (m *Meal) Season() Season {
	return m.season
}

// ImageURL returns the durable storage URL, empty until published
func (m *Meal) ImageURL() string {
	return m.imageURL
}

// CreatedAt returns the store-assigned creation time
func (m *Meal) CreatedAt() time.Time {
	return m.createdAt
}

func (m *Meal) HasImage() bool {
	return m.imageURL != ""
}

func (m *Meal) IsPersisted() bool {
	return !m.createdAt.IsZero()
}

// Nutrition returns the estimate, or nil when none was produced
func (m *Meal) Nutrition() *Nutrition {
	return m.nutrition
}

// AttachImage sets the durable image URL. Only absolute URLs are accepted.
func (m *Meal) AttachImage(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return ErrInvalidImageURL
	}
	m.imageURL = rawURL
	return nil
}

// AttachNutrition stores a nutrition estimate
func (m *Meal) AttachNutrition(n Nutrition) error {
	if err := n.Validate(); err != nil {
		return err
	}
	m.nutrition = &n
	return nil
}

// Rename replaces the meal name
func (m *Meal) Rename(name string) error {
	name, err := validateName(name)
	if err != nil {
		return err
	}
	if name == m.name {
		return nil
	}

	old := m.name
	m.name = name
	m.AddEvent(MealRenamedEvent{
		MealID:    m.id,
		OldName:   old,
		NewName:   name,
		RenamedAt: time.Now(),
	})
	return nil
}

// MarkPersisted records the store-assigned creation time and display id
func (m *Meal) MarkPersisted(ownerID string, displayID int, createdAt time.Time) {
	m.displayID = displayID
	m.createdAt = createdAt
	m.AddEvent(MealCreatedEvent{
		MealID:    m.id,
		OwnerID:   ownerID,
		Goal:      m.goal,
		CreatedAt: createdAt,
	})
}

// Clone returns an independent copy without pending events
func (m *Meal) Clone() *Meal {
	c := &Meal{
		id:         m.id,
		displayID:  m.displayID,
		proteins:   copyStrings(m.proteins),
		starchies:  copyStrings(m.starchies),
		vegetables: copyStrings(m.vegetables),
		name:       m.name,
		goal:       m.goal,
		cuisine:    m.cuisine,
		season:     m.season,
		imageURL:   m.imageURL,
		createdAt:  m.createdAt,
	}
	if m.nutrition != nil {
		n := *m.nutrition
		n.IngredientQuantities = make(map[string]int, len(m.nutrition.IngredientQuantities))
		for k, v := range m.nutrition.IngredientQuantities {
			n.IngredientQuantities[k] = v
		}
		c.nutrition = &n
	}
	return c
}

// NormalizeName trims name and checks it is usable as a meal name
func NormalizeName(name string) (string, error) {
	return validateName(name)
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", ErrNameTooLong
	}
	return name, nil
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
