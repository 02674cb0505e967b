// Package mealsync orchestrates meal creation and owns the per-session meal
// list cache.
package mealsync

import (
	"context"
	"sync"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/ports/outbound"
	"github.com/omq/mealsync/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/omq/mealsync/internal/application/mealsync"

// State is the controller's position in its load/create state machine
type State int

const (
	StateIdle State = iota
	StateLoading
	StateLoaded
	StateCreating
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateLoading:
		return "loading"
	case StateLoaded:
		return "loaded"
	case StateCreating:
		return "creating"
	default:
		return "unknown"
	}
}

// Dependencies are the outbound ports the controller drives. Nutrition and
// Metrics may be nil.
type Dependencies struct {
	Repository   outbound.MealRepository
	Classifier   outbound.Classifier
	Namer        outbound.Namer
	Images       outbound.ImageSynthesizer
	Materializer outbound.AssetMaterializer
	Nutrition    outbound.NutritionEstimator
	Metrics      outbound.PipelineMetrics
}

// Options tune the creation pipeline
type Options struct {
	StageTimeout      time.Duration
	EstimateNutrition bool
}

// SyncController owns one user's meal cache. It is long-lived: create one per
// session through a Registry, never per request.
type SyncController struct {
	session session.Session
	deps    Dependencies
	opts    Options
	metrics outbound.PipelineMetrics
	tracer  trace.Tracer
	logger  *zap.Logger

	mu       sync.Mutex
	meals    []*meal.Meal
	loaded   bool
	loading  chan struct{}
	creating int
	// meals appended while a list call is in flight, kept if the list misses them
	appendedDuringLoad []*meal.Meal
}

// NewSyncController creates a controller bound to s
func NewSyncController(s session.Session, deps Dependencies, opts Options, logger *zap.Logger) *SyncController {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &SyncController{
		session: s,
		deps:    deps,
		opts:    opts,
		metrics: metrics,
		tracer:  otel.Tracer(tracerName),
		logger:  logger.Named("meal-sync").With(zap.String("user_id", s.UserID())),
	}
}

// Session returns the session the controller is bound to
func (c *SyncController) Session() session.Session {
	return c.session
}

// State reports Creating while any creation is in flight, otherwise the load state
func (c *SyncController) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stateLocked()
}

func (c *SyncController) stateLocked() State {
	switch {
	case c.creating > 0:
		return StateCreating
	case c.loading != nil:
		return StateLoading
	case c.loaded:
		return StateLoaded
	default:
		return StateIdle
	}
}

// Loaded reports whether the cache has been populated
func (c *SyncController) Loaded() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded
}

// Meals returns a copy of the cached meals, newest first
func (c *SyncController) Meals() []*meal.Meal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(c.meals)
}

// Filter returns the cached meals matching f, preserving order
func (c *SyncController) Filter(f meal.Filter) []*meal.Meal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneAll(f.Apply(c.meals))
}

// EnsureLoaded lists the user's meals unless the cache is already loaded.
// Concurrent callers share one list call. A failed list is logged and still
// marks the cache loaded, keeping whatever it held before. A list aborted by
// the caller's own cancellation leaves the cache unloaded so the next call
// fetches again.
func (c *SyncController) EnsureLoaded(ctx context.Context) {
	c.mu.Lock()
	for {
		if c.loaded {
			c.mu.Unlock()
			c.metrics.ObserveListLoad("cached", 0)
			return
		}
		wait := c.loading
		if wait == nil {
			break
		}
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return
		}
		c.mu.Lock()
	}
	done := make(chan struct{})
	c.loading = done
	c.appendedDuringLoad = nil
	c.mu.Unlock()

	ctx, span := c.tracer.Start(ctx, "mealsync.list")
	defer span.End()

	start := time.Now()
	meals, err := c.deps.Repository.List(ctx, c.session)
	d := time.Since(start)

	c.mu.Lock()
	switch {
	case err != nil && ctx.Err() != nil:
		span.RecordError(err)
		c.logger.Debug("Meal load cancelled", zap.Error(err), zap.Duration("duration", d))
		c.metrics.ObserveListLoad("cancelled", d)
	case err != nil:
		span.RecordError(err)
		c.logger.Error("Failed to load meals", zap.Error(err), zap.Duration("duration", d))
		c.metrics.ObserveListLoad("error", d)
		c.loaded = true
	default:
		c.meals = mergeAppended(meals, c.appendedDuringLoad)
		c.logger.Debug("Meals loaded", zap.Int("count", len(c.meals)), zap.Duration("duration", d))
		c.metrics.ObserveListLoad("fetched", d)
		c.loaded = true
	}
	c.appendedDuringLoad = nil
	c.loading = nil
	c.mu.Unlock()
	close(done)
}

// ForceRefresh clears the loaded flag and lists again. A list already in
// flight may predate the request, so it is awaited and a new one is started.
func (c *SyncController) ForceRefresh(ctx context.Context) {
	c.mu.Lock()
	for c.loading != nil {
		wait := c.loading
		c.mu.Unlock()
		select {
		case <-wait:
		case <-ctx.Done():
			return
		}
		c.mu.Lock()
	}
	c.loaded = false
	c.mu.Unlock()
	c.EnsureLoaded(ctx)
}

// CreateMeal runs the enrichment pipeline for draft and persists the result.
// On success the meal is added to the front of the cache without a re-fetch.
// On failure nothing is written and the cache is untouched.
func (c *SyncController) CreateMeal(ctx context.Context, draft meal.Draft) (*meal.Meal, error) {
	if !c.session.Authenticated() {
		return nil, errors.NewUnauthenticatedError()
	}
	draft = draft.Normalize()
	if err := draft.Validate(); err != nil {
		return nil, errors.NewValidationError(err.Error()).WithCause(err)
	}

	c.mu.Lock()
	c.creating++
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.creating--
		c.mu.Unlock()
	}()

	ctx, span := c.tracer.Start(ctx, "mealsync.create")
	defer span.End()

	start := time.Now()
	cr := c.newCreation(draft)
	m, err := cr.run(ctx)
	d := time.Since(start)

	if err != nil {
		span.RecordError(err)
		stage := ""
		if se, ok := err.(*StageError); ok {
			stage = string(se.Stage)
		}
		c.logger.Error("Meal creation aborted",
			zap.String("stage", stage),
			zap.Duration("duration", d),
			zap.Error(err),
		)
		c.metrics.ObserveCreation(OutcomeFailed, d)
		return nil, errors.NewPipelineAbortedError(stage, err)
	}

	// m is shared with the cache from here on; RenameMeal mutates it under mu.
	c.mu.Lock()
	events := m.Events()
	out := m.Clone()
	c.insertLocked(m)
	if c.loading != nil {
		c.appendedDuringLoad = append(c.appendedDuringLoad, m)
	}
	c.mu.Unlock()

	for _, e := range events {
		c.metrics.RecordEvent(e.EventName())
	}
	c.metrics.ObserveCreation(OutcomeOK, d)
	c.logger.Info("Meal created",
		zap.String("meal_id", out.ID()),
		zap.String("name", out.Name()),
		zap.String("goal", string(out.Goal())),
		zap.Duration("duration", d),
	)
	return out, nil
}

// RenameMeal updates the stored name of the meal with mealID
func (c *SyncController) RenameMeal(ctx context.Context, mealID, name string) error {
	if !c.session.Authenticated() {
		return errors.NewUnauthenticatedError()
	}
	if mealID == "" {
		return errors.NewValidationError(meal.ErrMissingID.Error())
	}
	name, err := meal.NormalizeName(name)
	if err != nil {
		return errors.NewValidationError(err.Error()).WithCause(err)
	}

	if err := c.deps.Repository.UpdateName(ctx, c.session, mealID, name); err != nil {
		c.logger.Error("Failed to rename meal", zap.String("meal_id", mealID), zap.Error(err))
		return err
	}

	c.mu.Lock()
	for _, m := range c.meals {
		if m.ID() == mealID {
			_ = m.Rename(name)
			for _, e := range m.Events() {
				c.metrics.RecordEvent(e.EventName())
			}
			break
		}
	}
	c.mu.Unlock()
	return nil
}

// DeleteMeal removes the meal with mealID from the store and the cache.
// The stored image is left in object storage.
func (c *SyncController) DeleteMeal(ctx context.Context, mealID string) error {
	if !c.session.Authenticated() {
		return errors.NewUnauthenticatedError()
	}
	if mealID == "" {
		return errors.NewValidationError(meal.ErrMissingID.Error())
	}

	if err := c.deps.Repository.Delete(ctx, c.session, mealID); err != nil {
		c.logger.Error("Failed to delete meal", zap.String("meal_id", mealID), zap.Error(err))
		return err
	}

	c.mu.Lock()
	for i, m := range c.meals {
		if m.ID() == mealID {
			c.logger.Info("Meal deleted, image not reclaimed",
				zap.String("meal_id", mealID),
				zap.String("image_url", m.ImageURL()),
			)
			c.meals = append(c.meals[:i:i], c.meals[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	c.metrics.RecordEvent("meal.deleted")
	return nil
}

func (c *SyncController) insertLocked(m *meal.Meal) {
	for _, existing := range c.meals {
		if existing.ID() == m.ID() {
			return
		}
	}
	c.meals = append([]*meal.Meal{m}, c.meals...)
}

func mergeAppended(fetched, appended []*meal.Meal) []*meal.Meal {
	if len(appended) == 0 {
		return fetched
	}
	seen := make(map[string]struct{}, len(fetched))
	for _, m := range fetched {
		seen[m.ID()] = struct{}{}
	}
	out := make([]*meal.Meal, 0, len(fetched)+len(appended))
	for i := len(appended) - 1; i >= 0; i-- {
		if _, ok := seen[appended[i].ID()]; !ok {
			out = append(out, appended[i])
		}
	}
	return append(out, fetched...)
}

func cloneAll(in []*meal.Meal) []*meal.Meal {
	out := make([]*meal.Meal, len(in))
	for i, m := range in {
		out[i] = m.Clone()
	}
	return out
}

type noopMetrics struct{}

func (noopMetrics) ObserveStage(string, string, time.Duration) {}
func (noopMetrics) ObserveCreation(string, time.Duration)      {}
func (noopMetrics) ObserveListLoad(string, time.Duration)      {}
func (noopMetrics) RecordEvent(string)                         {}
