package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/ovenlight/pizzatrack/internal/domain/inventory"
	"github.com/ovenlight/pizzatrack/internal/domain/pricing"
)

type itemResponse struct {
	ID          string          `json:"id"`
	Type        inventory.Type  `json:"item_type"`
	Name        string          `json:"item_name"`
	Stock       int             `json:"stock"`
	Threshold   int             `json:"threshold"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"is_active"`
	LowStock    bool            `json:"low_stock"`
	OutOfStock  bool            `json:"out_of_stock"`
	Description string          `json:"description,omitempty"`
}

func toItemResponse(i inventory.Item) itemResponse {
	return itemResponse{
		ID:          i.ID,
		Type:        i.Type,
		Name:        i.Name,
		Stock:       i.Stock,
		Threshold:   i.Threshold,
		Price:       i.Price,
		Active:      i.Active,
		LowStock:    i.LowStock(),
		OutOfStock:  i.OutOfStock(),
		Description: i.Description,
	}
}

func toItemList(items []inventory.Item) []itemResponse {
	out := make([]itemResponse, len(items))
	for i, item := range items {
		out[i] = toItemResponse(item)
	}
	return out
}

// ListInventory returns the full active catalog.
func (h *Handler) ListInventory(w http.ResponseWriter, r *http.Request) {
	items, err := h.inventory.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemList(items))
}

// ListInventoryByType returns the active catalog items of one type.
func (h *Handler) ListInventoryByType(w http.ResponseWriter, r *http.Request) {
	t := inventory.Type(chi.URLParam(r, "itemType"))
	if !t.Valid() {
		writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: "unknown item type"})
		return
	}

	items, err := h.inventory.ListByType(r.Context(), t)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemList(items))
}

// QuotePrice prices a pizza selection without placing an order.
func (h *Handler) QuotePrice(w http.ResponseWriter, r *http.Request) {
	var sel struct {
		Base       string   `json:"base"`
		Sauce      string   `json:"sauce"`
		Cheese     string   `json:"cheese"`
		Vegetables []string `json:"vegetables"`
		Meats      []string `json:"meats"`
		Size       string   `json:"size"`
		Quantity   int      `json:"quantity"`
	}
	if !decodeBody(w, r, &sel) {
		return
	}

	quote, err := h.quoter.Quote(r.Context(), pricing.Selection{
		Base:       sel.Base,
		Sauce:      sel.Sauce,
		Cheese:     sel.Cheese,
		Vegetables: sel.Vegetables,
		Meats:      sel.Meats,
		Size:       sel.Size,
		Quantity:   sel.Quantity,
	})
	if err != nil {
		var unknown *pricing.UnknownIngredientError
		if errors.As(err, &unknown) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Code: 400, Message: unknown.Error()})
			return
		}
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		BasePrice  decimal.Decimal `json:"base_price"`
		Multiplier decimal.Decimal `json:"size_multiplier"`
		TotalPrice decimal.Decimal `json:"total_price"`
	}{
		BasePrice:  quote.BasePrice,
		Multiplier: quote.Multiplier,
		TotalPrice: quote.TotalPrice,
	})
}

// UpdateInventory applies a staff patch to one catalog item.
func (h *Handler) UpdateInventory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Stock     *int             `json:"stock"`
		Threshold *int             `json:"threshold"`
		Price     *decimal.Decimal `json:"price"`
		Active    *bool            `json:"is_active"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	item, err := h.inventory.Update(r.Context(), chi.URLParam(r, "itemID"), inventory.UpdatePatch{
		Stock:     req.Stock,
		Threshold: req.Threshold,
		Price:     req.Price,
		Active:    req.Active,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(*item))
}
