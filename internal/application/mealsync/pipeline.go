package mealsync

import (
	"context"
	"fmt"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/ports/outbound"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// CreationStage names one step of the meal creation saga
type CreationStage string

const (
	StageClassify    CreationStage = "classify"
	StageName        CreationStage = "name"
	StageSynthesize  CreationStage = "synthesize"
	StageMaterialize CreationStage = "materialize"
	StagePublish     CreationStage = "publish"
	StageEstimate    CreationStage = "estimate"
	StagePersist     CreationStage = "persist"
)

// Stage outcomes
const (
	OutcomeOK        = "ok"
	OutcomeFailed    = "failed"
	OutcomeDefaulted = "defaulted"
	OutcomeSkipped   = "skipped"
)

// StageRecord is the saga's log entry for one stage
type StageRecord struct {
	Stage    CreationStage
	Outcome  string
	Duration time.Duration
	Err      error
}

// StageError reports the hard stage that aborted a creation
type StageError struct {
	Stage CreationStage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// creation carries the data flowing between stages. Each stage consumes the
// previous stage's output, so they run strictly in order.
type creation struct {
	c     *SyncController
	draft meal.Draft

	goal      meal.Goal
	name      string
	meal      *meal.Meal
	remoteURL string
	asset     *outbound.StagedAsset
	imageURL  string

	records []StageRecord
}

func (c *SyncController) newCreation(draft meal.Draft) *creation {
	return &creation{c: c, draft: draft}
}

// run executes the saga. On any hard failure nothing has been written, so
// the only compensation is dropping a staged download.
func (cr *creation) run(ctx context.Context) (*meal.Meal, error) {
	steps := []struct {
		stage    CreationStage
		optional bool
		fn       func(context.Context) (string, error)
	}{
		{StageClassify, true, cr.classify},
		{StageName, false, cr.nameMeal},
		{StageSynthesize, false, cr.synthesize},
		{StageMaterialize, false, cr.materialize},
		{StagePublish, false, cr.publish},
		{StageEstimate, true, cr.estimate},
		{StagePersist, false, cr.persist},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			cr.compensate()
			return nil, &StageError{Stage: step.stage, Err: err}
		}
		outcome, err := cr.exec(ctx, step.stage, step.fn)
		if err != nil && !step.optional {
			cr.compensate()
			return nil, &StageError{Stage: step.stage, Err: err}
		}
		if err != nil {
			cr.c.logger.Warn("Optional stage failed, continuing",
				zap.String("stage", string(step.stage)),
				zap.String("outcome", outcome),
				zap.Error(err),
			)
		}
	}
	return cr.meal, nil
}

func (cr *creation) exec(ctx context.Context, stage CreationStage, fn func(context.Context) (string, error)) (string, error) {
	ctx, span := cr.c.tracer.Start(ctx, "mealsync."+string(stage))
	defer span.End()

	if cr.c.opts.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cr.c.opts.StageTimeout)
		defer cancel()
	}

	start := time.Now()
	outcome, err := fn(ctx)
	d := time.Since(start)

	span.SetAttributes(attribute.String("mealsync.outcome", outcome))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}

	cr.records = append(cr.records, StageRecord{Stage: stage, Outcome: outcome, Duration: d, Err: err})
	cr.c.metrics.ObserveStage(string(stage), outcome, d)
	return outcome, err
}

func (cr *creation) compensate() {
	if cr.asset != nil {
		cr.c.deps.Materializer.Discard(cr.asset)
		cr.asset = nil
	}
}

func (cr *creation) classify(ctx context.Context) (string, error) {
	goal, err := cr.c.deps.Classifier.Classify(ctx, cr.draft.Proteins, cr.draft.Starchies, cr.draft.Vegetables)
	if err != nil || !goal.Valid() {
		cr.goal = meal.GoalDaily
		if err == nil {
			err = meal.ErrInvalidGoal
		}
		return OutcomeDefaulted, err
	}
	cr.goal = goal
	return OutcomeOK, nil
}

func (cr *creation) nameMeal(ctx context.Context) (string, error) {
	name, err := cr.c.deps.Namer.GenerateName(ctx, cr.draft.Proteins, cr.draft.Starchies, cr.draft.Vegetables, cr.goal)
	if err != nil {
		return OutcomeFailed, err
	}
	m, err := meal.NewMeal(cr.draft, name, cr.goal)
	if err != nil {
		return OutcomeFailed, err
	}
	cr.name = m.Name()
	cr.meal = m
	return OutcomeOK, nil
}

func (cr *creation) synthesize(ctx context.Context) (string, error) {
	url, err := cr.c.deps.Images.SynthesizeImage(ctx, DescribeMeal(cr.draft, cr.name))
	if err != nil {
		return OutcomeFailed, err
	}
	if url == "" {
		return OutcomeFailed, fmt.Errorf("image provider returned no URL")
	}
	cr.remoteURL = url
	return OutcomeOK, nil
}

func (cr *creation) materialize(ctx context.Context) (string, error) {
	asset, err := cr.c.deps.Materializer.Materialize(ctx, cr.remoteURL)
	if err != nil {
		return OutcomeFailed, err
	}
	cr.asset = asset
	return OutcomeOK, nil
}

func (cr *creation) publish(ctx context.Context) (string, error) {
	asset := cr.asset
	cr.asset = nil // Publish consumes the staged file either way.

	url, err := cr.c.deps.Materializer.Publish(ctx, asset)
	if err != nil {
		return OutcomeFailed, err
	}
	if err := cr.meal.AttachImage(url); err != nil {
		return OutcomeFailed, err
	}
	cr.imageURL = url
	return OutcomeOK, nil
}

func (cr *creation) estimate(ctx context.Context) (string, error) {
	if !cr.c.opts.EstimateNutrition || cr.c.deps.Nutrition == nil {
		return OutcomeSkipped, nil
	}
	n, err := cr.c.deps.Nutrition.EstimateNutrition(ctx, cr.draft.Ingredients())
	if err != nil {
		return OutcomeSkipped, err
	}
	if err := cr.meal.AttachNutrition(n); err != nil {
		return OutcomeSkipped, err
	}
	return OutcomeOK, nil
}

func (cr *creation) persist(ctx context.Context) (string, error) {
	if err := cr.c.deps.Repository.Create(ctx, cr.c.session, cr.meal); err != nil {
		return OutcomeFailed, err
	}
	return OutcomeOK, nil
}
