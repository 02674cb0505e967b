// Package shopping models the per-user shopping checklist.
package shopping

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

var ErrItemNotFound = errors.New("shopping item not found")

// Item is one checklist entry
type Item struct {
	ID       string
	Name     string
	Checked  bool
	Position int
}

// List is the ordered checklist of one user
type List struct {
	ownerID string
	items   []Item
}

// NewList restores a list from stored items, which must already be ordered
func NewList(ownerID string, items []Item) *List {
	l := &List{ownerID: ownerID, items: make([]Item, len(items))}
	copy(l.items, items)
	l.renumber()
	return l
}

func (l *List) OwnerID() string {
	return l.ownerID
}

// Items returns a copy of the items in display order
func (l *List) Items() []Item {
	out := make([]Item, len(l.items))
	copy(out, l.items)
	return out
}

// AllChecked is true only for a non-empty list whose items are all checked
func (l *List) AllChecked() bool {
	if len(l.items) == 0 {
		return false
	}
	for _, it := range l.items {
		if !it.Checked {
			return false
		}
	}
	return true
}

// Add appends an item. Blank names are allowed so the user can type later.
func (l *List) Add(name string) Item {
	it := Item{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(name),
		Position: len(l.items),
	}
	l.items = append(l.items, it)
	return it
}

// Rename changes the item's name
func (l *List) Rename(id, name string) (Item, error) {
	i, err := l.index(id)
	if err != nil {
		return Item{}, err
	}
	l.items[i].Name = strings.TrimSpace(name)
	return l.items[i], nil
}

// SetChecked sets the checked state of an item
func (l *List) SetChecked(id string, checked bool) (Item, error) {
	i, err := l.index(id)
	if err != nil {
		return Item{}, err
	}
	l.items[i].Checked = checked
	return l.items[i], nil
}

// Toggle flips the checked state of an item
func (l *List) Toggle(id string) (Item, error) {
	i, err := l.index(id)
	if err != nil {
		return Item{}, err
	}
	return l.SetChecked(id, !l.items[i].Checked)
}

// Remove deletes an item and closes the gap in positions
func (l *List) Remove(id string) error {
	i, err := l.index(id)
	if err != nil {
		return err
	}
	l.items = append(l.items[:i], l.items[i+1:]...)
	l.renumber()
	return nil
}

// Clear removes every item
func (l *List) Clear() {
	l.items = nil
}

func (l *List) index(id string) (int, error) {
	for i, it := range l.items {
		if it.ID == id {
			return i, nil
		}
	}
	return -1, ErrItemNotFound
}

func (l *List) renumber() {
	for i := range l.items {
		l.items[i].Position = i
	}
}
