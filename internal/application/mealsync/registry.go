package mealsync

import (
	"sync"

	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/pkg/errors"
	"go.uber.org/zap"
)

// Registry hands out one long-lived SyncController per signed-in user. It is
// created once by the application root so a user's cache survives across
// requests.
type Registry struct {
	deps   Dependencies
	opts   Options
	logger *zap.Logger

	mu          sync.Mutex
	controllers map[string]*SyncController
}

// NewRegistry creates an empty registry
func NewRegistry(deps Dependencies, opts Options, logger *zap.Logger) *Registry {
	return &Registry{
		deps:        deps,
		opts:        opts,
		logger:      logger,
		controllers: make(map[string]*SyncController),
	}
}

// ForSession returns the controller for s, creating it on first use
func (r *Registry) ForSession(s session.Session) (*SyncController, error) {
	if !s.Authenticated() {
		return nil, errors.NewUnauthenticatedError()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.controllers[s.UserID()]; ok {
		return c, nil
	}
	c := NewSyncController(s, r.deps, r.opts, r.logger)
	r.controllers[s.UserID()] = c
	r.logger.Debug("Meal sync controller created", zap.String("user_id", s.UserID()))
	return c, nil
}

// End drops the controller of a user whose session is over
func (r *Registry) End(userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.controllers, userID)
}

// Len returns the number of live controllers
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controllers)
}
