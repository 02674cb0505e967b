package handlers

import (
	"net/http"

	"github.com/omq/mealsync/internal/application/mealsync"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/infrastructure/http/middleware"
	"github.com/omq/mealsync/internal/infrastructure/security"
	"github.com/omq/mealsync/pkg/errors"
	"go.uber.org/zap"
)

// SessionHandlers issues and ends session tokens
type SessionHandlers struct {
	responder
	auth      *security.AuthService
	registry  *mealsync.Registry
	devTokens bool
}

// NewSessionHandlers creates session handlers. Token issuance is only
// served when devTokens is set.
func NewSessionHandlers(auth *security.AuthService, registry *mealsync.Registry, devTokens bool, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{
		responder: newResponder(logger.Named("session-handlers")),
		auth:      auth,
		registry:  registry,
		devTokens: devTokens,
	}
}

// IssueSessionRequest names the user a development token is issued for
type IssueSessionRequest struct {
	UserID string `json:"userId" validate:"required,max=128"`
	Email  string `json:"email,omitempty" validate:"omitempty,email"`
}

// Issue handles POST /api/v1/session
func (h *SessionHandlers) Issue(w http.ResponseWriter, r *http.Request) {
	if !h.devTokens {
		h.fail(w, r, errors.NewNotFoundError("Route"))
		return
	}

	var req IssueSessionRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	token, err := h.auth.IssueToken(req.UserID, req.Email)
	if err != nil {
		h.fail(w, r, errors.NewValidationError(err.Error()))
		return
	}
	h.logger.Info("Development token issued", zap.String("user_id", req.UserID))
	h.ok(w, http.StatusCreated, token, "Session created")
}

// Current handles GET /api/v1/session
func (h *SessionHandlers) Current(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	h.ok(w, http.StatusOK, map[string]string{"userId": s.UserID(), "email": s.Email()}, "")
}

// End handles DELETE /api/v1/session. The token is revoked and the user's
// meal cache is dropped.
func (h *SessionHandlers) End(w http.ResponseWriter, r *http.Request) {
	s := session.FromContext(r.Context())
	if claims, ok := middleware.ClaimsFromContext(r.Context()); ok {
		if err := h.auth.Revoke(r.Context(), claims); err != nil {
			h.fail(w, r, errors.NewInternalError("Failed to end session").WithCause(err))
			return
		}
	}
	h.registry.End(s.UserID())
	h.ok(w, http.StatusOK, nil, "Session ended")
}
