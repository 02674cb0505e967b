// Package shopping provides the application layer for the shopping checklist
package shopping

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/domain/shopping"
	"github.com/omq/mealsync/internal/ports/inbound"
	"github.com/omq/mealsync/internal/ports/outbound"
	"github.com/omq/mealsync/pkg/errors"
	"go.uber.org/zap"
)

var _ inbound.ShoppingService = (*Service)(nil)

// Service implements the shopping checklist use cases. Each mutation loads
// the list, applies the change and saves it back under a per-user lock.
type Service struct {
	repo   outbound.ShoppingRepository
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a new shopping service
func NewService(repo outbound.ShoppingRepository, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.Named("shopping-service"),
		locks:  make(map[string]*sync.Mutex),
	}
}

// Get returns the user's checklist
func (s *Service) Get(ctx context.Context, sess session.Session) (*shopping.List, error) {
	if !sess.Authenticated() {
		return nil, errors.NewUnauthenticatedError()
	}
	return s.repo.Load(ctx, sess)
}

// AddItem appends an item. The name may be blank.
func (s *Service) AddItem(ctx context.Context, sess session.Session, name string) (shopping.Item, error) {
	var added shopping.Item
	err := s.mutate(ctx, sess, func(l *shopping.List) error {
		added = l.Add(name)
		return nil
	})
	if err != nil {
		return shopping.Item{}, err
	}
	s.logger.Debug("Shopping item added", zap.String("user_id", sess.UserID()), zap.String("item_id", added.ID))
	return added, nil
}

// UpdateItem applies the fields set in cmd
func (s *Service) UpdateItem(ctx context.Context, sess session.Session, id string, cmd inbound.UpdateItemCommand) (shopping.Item, error) {
	var updated shopping.Item
	err := s.mutate(ctx, sess, func(l *shopping.List) error {
		var err error
		if cmd.Name != nil {
			if updated, err = l.Rename(id, *cmd.Name); err != nil {
				return err
			}
		}
		if cmd.Checked != nil {
			if updated, err = l.SetChecked(id, *cmd.Checked); err != nil {
				return err
			}
		}
		if cmd.Name == nil && cmd.Checked == nil {
			// Nothing to change, but an unknown id is still an error.
			for _, it := range l.Items() {
				if it.ID == id {
					updated = it
					return nil
				}
			}
			return shopping.ErrItemNotFound
		}
		return nil
	})
	if err != nil {
		return shopping.Item{}, err
	}
	return updated, nil
}

// RemoveItem deletes one item
func (s *Service) RemoveItem(ctx context.Context, sess session.Session, id string) error {
	return s.mutate(ctx, sess, func(l *shopping.List) error {
		return l.Remove(id)
	})
}

// Clear removes every item
func (s *Service) Clear(ctx context.Context, sess session.Session) error {
	err := s.mutate(ctx, sess, func(l *shopping.List) error {
		l.Clear()
		return nil
	})
	if err == nil {
		s.logger.Info("Shopping list cleared", zap.String("user_id", sess.UserID()))
	}
	return err
}

func (s *Service) mutate(ctx context.Context, sess session.Session, fn func(*shopping.List) error) error {
	if !sess.Authenticated() {
		return errors.NewUnauthenticatedError()
	}

	lock := s.userLock(sess.UserID())
	lock.Lock()
	defer lock.Unlock()

	list, err := s.repo.Load(ctx, sess)
	if err != nil {
		return err
	}
	if err := fn(list); err != nil {
		if stderrors.Is(err, shopping.ErrItemNotFound) {
			return errors.NewNotFoundError("Shopping item").WithCause(err)
		}
		return err
	}
	if err := s.repo.Save(ctx, sess, list); err != nil {
		s.logger.Error("Failed to save shopping list", zap.String("user_id", sess.UserID()), zap.Error(err))
		return err
	}
	return nil
}

func (s *Service) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[userID] = l
	}
	return l
}
