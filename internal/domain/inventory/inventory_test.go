package inventory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestType_Valid(t *testing.T) {
	for _, typ := range []Type{TypeBase, TypeSauce, TypeCheese, TypeVegetable, TypeMeat} {
		assert.True(t, typ.Valid(), "type %q", typ)
	}
	assert.False(t, Type("dessert").Valid())
	assert.False(t, Type("").Valid())
}

func TestItem_StockFlags(t *testing.T) {
	tests := []struct {
		name       string
		stock      int
		threshold  int
		low        bool
		outOfStock bool
	}{
		{"well stocked", 50, 10, false, false},
		{"at threshold", 10, 10, true, false},
		{"below threshold", 3, 10, true, false},
		{"depleted", 0, 10, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := Item{Stock: tt.stock, Threshold: tt.threshold}
			assert.Equal(t, tt.low, item.LowStock())
			assert.Equal(t, tt.outOfStock, item.OutOfStock())
		})
	}
}
