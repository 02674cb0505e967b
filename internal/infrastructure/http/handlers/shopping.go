package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/omq/mealsync/internal/domain/session"
	"github.com/omq/mealsync/internal/domain/shopping"
	"github.com/omq/mealsync/internal/ports/inbound"
	"go.uber.org/zap"
)

// ShoppingHandlers serves the shopping checklist
type ShoppingHandlers struct {
	responder
	service inbound.ShoppingService
}

// NewShoppingHandlers creates shopping handlers
func NewShoppingHandlers(service inbound.ShoppingService, logger *zap.Logger) *ShoppingHandlers {
	return &ShoppingHandlers{
		responder: newResponder(logger.Named("shopping-handlers")),
		service:   service,
	}
}

// AddItemRequest carries a new item. The name may be blank.
type AddItemRequest struct {
	Name string `json:"name" validate:"max=200"`
}

// UpdateItemRequest carries the fields to change on an item
type UpdateItemRequest struct {
	Name    *string `json:"name,omitempty" validate:"omitempty,max=200"`
	Checked *bool   `json:"checked,omitempty"`
}

// ShoppingItemDTO represents a checklist item
type ShoppingItemDTO struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Checked  bool   `json:"checked"`
	Position int    `json:"position"`
}

// ShoppingListDTO represents the checklist
type ShoppingListDTO struct {
	Items      []ShoppingItemDTO `json:"items"`
	AllChecked bool              `json:"allChecked"`
}

// GetList handles GET /api/v1/shopping
func (h *ShoppingHandlers) GetList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Get(r.Context(), session.FromContext(r.Context()))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toShoppingListDTO(list), "")
}

// AddItem handles POST /api/v1/shopping/items
func (h *ShoppingHandlers) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.service.AddItem(r.Context(), session.FromContext(r.Context()), req.Name)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusCreated, toShoppingItemDTO(item), "Item added")
}

// UpdateItem handles PATCH /api/v1/shopping/items/{id}
func (h *ShoppingHandlers) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req UpdateItemRequest
	if err := h.decode(w, r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	item, err := h.service.UpdateItem(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id"),
		inbound.UpdateItemCommand{Name: req.Name, Checked: req.Checked})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, toShoppingItemDTO(item), "Item updated")
}

// RemoveItem handles DELETE /api/v1/shopping/items/{id}
func (h *ShoppingHandlers) RemoveItem(w http.ResponseWriter, r *http.Request) {
	if err := h.service.RemoveItem(r.Context(), session.FromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, nil, "Item removed")
}

// Clear handles DELETE /api/v1/shopping/items
func (h *ShoppingHandlers) Clear(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Clear(r.Context(), session.FromContext(r.Context())); err != nil {
		h.fail(w, r, err)
		return
	}
	h.ok(w, http.StatusOK, nil, "Shopping list cleared")
}

func toShoppingItemDTO(it shopping.Item) ShoppingItemDTO {
	return ShoppingItemDTO{ID: it.ID, Name: it.Name, Checked: it.Checked, Position: it.Position}
}

func toShoppingListDTO(l *shopping.List) ShoppingListDTO {
	items := l.Items()
	out := ShoppingListDTO{Items: make([]ShoppingItemDTO, len(items)), AllChecked: l.AllChecked()}
	for i, it := range items {
		out.Items[i] = toShoppingItemDTO(it)
	}
	return out
}
