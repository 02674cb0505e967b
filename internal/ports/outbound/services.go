package outbound

import (
	"context"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
)

// Classifier assigns a goal to a set of ingredients. Input slices may hold
// blank entries.
type Classifier interface {
	Classify(ctx context.Context, proteins, starchies, vegetables []string) (meal.Goal, error)
}

// Namer proposes a short display name for a meal
type Namer interface {
	GenerateName(ctx context.Context, proteins, starchies, vegetables []string, goal meal.Goal) (string, error)
}

// ImageSynthesizer renders a description and returns the provider-hosted,
// short-lived image URL
type ImageSynthesizer interface {
	SynthesizeImage(ctx context.Context, description string) (string, error)
}

// NutritionEstimator estimates macronutrients for one adult serving
type NutritionEstimator interface {
	EstimateNutrition(ctx context.Context, ingredients []string) (meal.Nutrition, error)
}

// StagedAsset is a downloaded image waiting to be published
type StagedAsset struct {
	Path        string
	ContentType string
	Size        int64
	SourceURL   string
}

// AssetMaterializer turns a transient remote image into a durable one
type AssetMaterializer interface {
	// Materialize downloads remoteURL to transient local storage
	Materialize(ctx context.Context, remoteURL string) (*StagedAsset, error)
	// Publish uploads the staged bytes under a fresh key and returns the
	// public URL. The staged file is removed whether or not it succeeds.
	Publish(ctx context.Context, asset *StagedAsset) (string, error)
	// Discard removes a staged file that will not be published
	Discard(asset *StagedAsset)
}

// ObjectStore is durable blob storage with public URLs
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	PublicURL(ctx context.Context, key string) (string, error)
}

// PipelineMetrics records creation pipeline and cache activity
type PipelineMetrics interface {
	ObserveStage(stage, outcome string, duration time.Duration)
	ObserveCreation(outcome string, duration time.Duration)
	ObserveListLoad(outcome string, duration time.Duration)
	RecordEvent(name string)
}
