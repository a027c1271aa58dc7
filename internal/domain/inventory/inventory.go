// Package inventory models the ingredient catalog. Stock levels are
// informational: placing an order does not reserve or decrement stock.
package inventory

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when no matching catalog item exists.
var ErrNotFound = errors.New("inventory item not found")

// Type categorizes an ingredient. Item names are unique within a type.
type Type string

const (
	TypeBase      Type = "base"
	TypeSauce     Type = "sauce"
	TypeCheese    Type = "cheese"
	TypeVegetable Type = "vegetable"
	TypeMeat      Type = "meat"
)

// Valid reports whether t is a recognized ingredient type.
func (t Type) Valid() bool {
	switch t {
	case TypeBase, TypeSauce, TypeCheese, TypeVegetable, TypeMeat:
		return true
	}
	return false
}

// Item is a single catalog entry.
type Item struct {
	ID          string
	Type        Type
	Name        string
	Stock       int
	Threshold   int
	Price       decimal.Decimal
	Active      bool
	Description string
}

// LowStock reports whether the item has fallen to or below its threshold.
func (i Item) LowStock() bool {
	return i.Stock <= i.Threshold
}

// OutOfStock reports whether the item is fully depleted.
func (i Item) OutOfStock() bool {
	return i.Stock == 0
}

// UpdatePatch holds the staff-editable item fields. Nil pointers leave the
// corresponding field untouched.
type UpdatePatch struct {
	Stock     *int
	Threshold *int
	Price     *decimal.Decimal
	Active    *bool
}

// Repository defines persistence operations for the catalog.
type Repository interface {
	List(ctx context.Context) ([]Item, error)
	ListByType(ctx context.Context, t Type) ([]Item, error)
	// GetActive returns the active item with the given type and name, or
	// ErrNotFound when it does not exist or is inactive.
	GetActive(ctx context.Context, t Type, name string) (*Item, error)
	Create(ctx context.Context, item *Item) error
	Update(ctx context.Context, id string, patch UpdatePatch) (*Item, error)
}
