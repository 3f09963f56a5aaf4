package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/services/checkout/internal/cart"
	"github.com/Skotchmaster/marketplace/services/checkout/internal/repo"
)

type StockValidationItem struct {
	VariantID uuid.UUID `json:"variant_id"`
	Name      string    `json:"name"`
	Requested int       `json:"requested"`
	Available int       `json:"available"`
	Valid     bool      `json:"valid"`
	Message   string    `json:"message,omitempty"`
}

type StockValidationResult struct {
	IsValid      bool                  `json:"is_valid"`
	InvalidItems []StockValidationItem `json:"invalid_items"`
}

// line is one distinct variant of a checkout with the summed quantity.
type line struct {
	item     cart.CartItem
	quantity int
}

// distinctLines merges duplicate variant ids, keeping first-seen order.
func distinctLines(items []cart.CartItem) []line {
	idx := make(map[uuid.UUID]int, len(items))
	out := make([]line, 0, len(items))
	for _, it := range items {
		if i, ok := idx[it.VariantID]; ok {
			out[i].quantity += it.Quantity
			continue
		}
		idx[it.VariantID] = len(out)
		out = append(out, line{item: it, quantity: it.Quantity})
	}
	return out
}

func variantIDs(lines []line) []uuid.UUID {
	ids := make([]uuid.UUID, len(lines))
	for i, l := range lines {
		ids[i] = l.item.VariantID
	}
	return ids
}

// ValidateCheckout compares every line with live stock and reports all
// shortfalls at once. It is advisory: CreateOrders checks again under the
// transaction.
func (s *CheckoutService) ValidateCheckout(ctx context.Context, items []cart.CartItem) (StockValidationResult, error) {
	lines := distinctLines(items)
	res := StockValidationResult{IsValid: true, InvalidItems: []StockValidationItem{}}
	if len(lines) == 0 {
		return res, nil
	}

	stock, err := s.Repo.StockByVariant(ctx, variantIDs(lines))
	if err != nil {
		return StockValidationResult{}, fmt.Errorf("load stock: %w", err)
	}

	for _, l := range lines {
		if v := checkLine(l, stock); !v.Valid {
			res.InvalidItems = append(res.InvalidItems, v)
		}
	}
	res.IsValid = len(res.InvalidItems) == 0
	return res, nil
}

func checkLine(l line, stock map[uuid.UUID]repo.VariantStock) StockValidationItem {
	out := StockValidationItem{
		VariantID: l.item.VariantID,
		Name:      l.item.DisplayName(),
		Requested: l.quantity,
		Valid:     true,
	}

	v, ok := stock[l.item.VariantID]
	if !ok {
		out.Valid = false
		out.Message = fmt.Sprintf("%s is no longer available", out.Name)
		return out
	}

	out.Name = v.DisplayName()
	out.Available = v.Stock
	if v.Stock < l.quantity {
		out.Valid = false
		if v.Stock == 0 {
			out.Message = fmt.Sprintf("%s is out of stock", out.Name)
		} else {
			out.Message = fmt.Sprintf("only %d of %s left", v.Stock, out.Name)
		}
	}
	return out
}

// LiveStock returns the current ceiling for each variant; missing variants
// map to zero.
func (s *CheckoutService) LiveStock(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]int, error) {
	stock, err := s.Repo.StockByVariant(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(map[uuid.UUID]int, len(ids))
	for _, id := range ids {
		out[id] = stock[id].Stock
	}
	return out, nil
}

func sortedByVariant(lines []line) []line {
	out := make([]line, len(lines))
	copy(out, lines)
	sort.Slice(out, func(i, j int) bool {
		return out[i].item.VariantID.String() < out[j].item.VariantID.String()
	})
	return out
}
