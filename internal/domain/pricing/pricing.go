// Package pricing computes pizza prices from the ingredient catalog.
// Prices are additive per ingredient, scaled by a size multiplier, rounded
// half-up to the nearest integer currency unit, then multiplied by quantity.
package pricing

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/pizzatrack/internal/domain/inventory"
)

// UnknownIngredientError indicates a named ingredient is missing from the
// catalog or inactive. Unknown ingredients are a hard error rather than a
// silent zero-price contribution, so a typo cannot produce a cheaper pizza.
type UnknownIngredientError struct {
	Type inventory.Type
	Name string
}

func (e *UnknownIngredientError) Error() string {
	return fmt.Sprintf("unknown or inactive %s %q", e.Type, e.Name)
}

// Selection is the input to a price quote. Duplicate toppings are tolerated
// and each occurrence is charged.
type Selection struct {
	Base       string
	Sauce      string
	Cheese     string
	Vegetables []string
	Meats      []string
	Size       string
	Quantity   int
}

// Quote is the result of a price calculation. BasePrice is the rounded
// per-unit price before quantity.
type Quote struct {
	BasePrice  decimal.Decimal
	Multiplier decimal.Decimal
	TotalPrice decimal.Decimal
}

var (
	multiplierSmall      = decimal.NewFromFloat(1.0)
	multiplierMedium     = decimal.NewFromFloat(1.3)
	multiplierLarge      = decimal.NewFromFloat(1.6)
	multiplierExtraLarge = decimal.NewFromFloat(2.0)
)

// SizeMultiplier returns the price multiplier for a size. Unrecognized
// sizes fall back to the medium multiplier.
func SizeMultiplier(size string) decimal.Decimal {
	switch size {
	case "small":
		return multiplierSmall
	case "medium":
		return multiplierMedium
	case "large":
		return multiplierLarge
	case "extra-large":
		return multiplierExtraLarge
	}
	return multiplierMedium
}

// Calculator prices selections against a catalog.
type Calculator struct {
	catalog inventory.Repository
}

// NewCalculator creates a Calculator backed by the given catalog.
func NewCalculator(catalog inventory.Repository) *Calculator {
	return &Calculator{catalog: catalog}
}

// Quote computes the price for a selection. Every named ingredient must
// exist and be active; otherwise an UnknownIngredientError is returned.
func (c *Calculator) Quote(ctx context.Context, sel Selection) (*Quote, error) {
	quantity := sel.Quantity
	if quantity < 1 {
		quantity = 1
	}

	subtotal := decimal.Zero
	add := func(t inventory.Type, name string) error {
		item, err := c.catalog.GetActive(ctx, t, name)
		if err != nil {
			if errors.Is(err, inventory.ErrNotFound) {
				return &UnknownIngredientError{Type: t, Name: name}
			}
			return errors.Wrapf(err, "look up %s %q", t, name)
		}
		subtotal = subtotal.Add(item.Price)
		return nil
	}

	if err := add(inventory.TypeBase, sel.Base); err != nil {
		return nil, err
	}
	if err := add(inventory.TypeSauce, sel.Sauce); err != nil {
		return nil, err
	}
	if err := add(inventory.TypeCheese, sel.Cheese); err != nil {
		return nil, err
	}
	for _, v := range sel.Vegetables {
		if err := add(inventory.TypeVegetable, v); err != nil {
			return nil, err
		}
	}
	for _, m := range sel.Meats {
		if err := add(inventory.TypeMeat, m); err != nil {
			return nil, err
		}
	}

	multiplier := SizeMultiplier(sel.Size)
	// Round(0) rounds half away from zero, so 474.5 becomes 475.
	unitPrice := subtotal.Mul(multiplier).Round(0)

	return &Quote{
		BasePrice:  unitPrice,
		Multiplier: multiplier,
		TotalPrice: unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}, nil
}
