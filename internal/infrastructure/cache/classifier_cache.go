package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"sort"
	"strings"
	"time"

	"github.com/omq/mealsync/internal/domain/meal"
	"github.com/omq/mealsync/internal/ports/outbound"
	"go.uber.org/zap"
)

const classifierKeyPrefix = "mealsync:classify:v1:"

// LookupRecorder receives cache hit/miss observations
type LookupRecorder interface {
	CacheLookup(cache, result string)
}

// ClassifierCache memoizes goal classification by ingredient set. Cache
// failures never fail a classification; they fall through to the provider.
type ClassifierCache struct {
	next    outbound.Classifier
	store   outbound.CacheRepository
	ttl     time.Duration
	metrics LookupRecorder
	logger  *zap.Logger
}

// NewClassifierCache wraps next with a cache backed by store
func NewClassifierCache(next outbound.Classifier, store outbound.CacheRepository, ttl time.Duration, metrics LookupRecorder, logger *zap.Logger) *ClassifierCache {
	return &ClassifierCache{
		next:    next,
		store:   store,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger.Named("classifier-cache"),
	}
}

var _ outbound.Classifier = (*ClassifierCache)(nil)

// Classify returns the cached goal for the ingredient set or asks the provider
func (c *ClassifierCache) Classify(ctx context.Context, proteins, starchies, vegetables []string) (meal.Goal, error) {
	key := ClassifierKey(proteins, starchies, vegetables)

	raw, err := c.store.Get(ctx, key)
	switch {
	case err == nil:
		if goal, ok := meal.ParseGoal(string(raw)); ok {
			c.record("hit")
			return goal, nil
		}
		c.logger.Warn("Dropping unreadable cached goal", zap.String("key", key))
		_ = c.store.Delete(ctx, key)
	case !stderrors.Is(err, outbound.ErrCacheMiss):
		c.logger.Warn("Classifier cache read failed", zap.String("key", key), zap.Error(err))
	}
	c.record("miss")

	goal, err := c.next.Classify(ctx, proteins, starchies, vegetables)
	if err != nil {
		return goal, err
	}

	if err := c.store.Set(ctx, key, []byte(goal), c.ttl); err != nil {
		c.logger.Warn("Classifier cache write failed", zap.String("key", key), zap.Error(err))
	}
	return goal, nil
}

func (c *ClassifierCache) record(result string) {
	if c.metrics != nil {
		c.metrics.CacheLookup("classifier", result)
	}
}

// ClassifierKey derives a cache key from the ingredient set. Order and case
// within a role do not matter; the role an ingredient is listed under does.
func ClassifierKey(proteins, starchies, vegetables []string) string {
	h := sha256.New()
	for _, group := range [][]string{proteins, starchies, vegetables} {
		norm := make([]string, 0, len(group))
		for _, s := range group {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				norm = append(norm, s)
			}
		}
		sort.Strings(norm)
		h.Write([]byte(strings.Join(norm, "\x1f")))
		h.Write([]byte{0x1e})
	}
	return classifierKeyPrefix + hex.EncodeToString(h.Sum(nil))
}
