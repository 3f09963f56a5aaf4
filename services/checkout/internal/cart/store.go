package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/Skotchmaster/marketplace/pkg/logging"
)

var (
	ErrInvalidItem     = errors.New("invalid cart item")
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	ErrExceedsStock    = errors.New("quantity exceeds available stock")
	ErrItemNotFound    = errors.New("item not in cart")
	ErrNoSnapshot      = errors.New("no cart snapshot")
)

// CeilingError reports the stock ceiling that caused a rejected mutation.
type CeilingError struct {
	VariantID uuid.UUID
	Requested int
	Ceiling   int
}

func (e *CeilingError) Error() string {
	return fmt.Sprintf("%s: variant %s requested %d, ceiling %d", ErrExceedsStock, e.VariantID, e.Requested, e.Ceiling)
}

func (e *CeilingError) Unwrap() error { return ErrExceedsStock }

// Persister receives a snapshot after every mutation. An empty snapshot means
// the cart was emptied.
type Persister interface {
	Save(ctx context.Context, owner uuid.UUID, items []CartItem) error
}

type entry struct {
	item CartItem
	seq  uint64
}

// Store is one shopper's cart. It is not safe for concurrent use; one Store is
// built per session (or per request from the persisted snapshot).
type Store struct {
	owner   uuid.UUID
	items   map[uuid.UUID]entry
	nextSeq uint64
	persist Persister
}

// New builds a store for owner, restoring items in the given order.
func New(owner uuid.UUID, p Persister, snapshot ...CartItem) *Store {
	s := &Store{
		owner:   owner,
		items:   make(map[uuid.UUID]entry, len(snapshot)),
		persist: p,
	}
	for _, it := range snapshot {
		if it.VariantID == uuid.Nil || it.Quantity < 1 {
			continue
		}
		s.put(it)
	}
	return s
}

func (s *Store) Owner() uuid.UUID { return s.owner }

func (s *Store) Len() int { return len(s.items) }

func (s *Store) Get(variantID uuid.UUID) (CartItem, bool) {
	e, ok := s.items[variantID]
	return e.item, ok
}

// Items returns the lines in the order they were first added.
func (s *Store) Items() []CartItem {
	entries := make([]entry, 0, len(s.items))
	for _, e := range s.items {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].seq < entries[j].seq })

	out := make([]CartItem, len(entries))
	for i, e := range entries {
		out[i] = e.item
	}
	return out
}

// AddItem merges item into the cart. The whole increase is rejected with a
// *CeilingError when it would take the line past the item's stock ceiling.
func (s *Store) AddItem(ctx context.Context, item CartItem) (CartItem, error) {
	if item.VariantID == uuid.Nil || item.VendorID == uuid.Nil {
		return CartItem{}, fmt.Errorf("%w: variant and vendor are required", ErrInvalidItem)
	}
	if item.Price < 0 {
		return CartItem{}, fmt.Errorf("%w: price must be >= 0", ErrInvalidItem)
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	if e, ok := s.items[item.VariantID]; ok {
		ceiling := item.Stock
		want := e.item.Quantity + item.Quantity
		if want > ceiling {
			return e.item, &CeilingError{VariantID: item.VariantID, Requested: want, Ceiling: ceiling}
		}
		e.item.Quantity = want
		e.item.Stock = ceiling
		s.items[item.VariantID] = e
		s.save(ctx)
		return e.item, nil
	}

	if item.Quantity > item.Stock {
		return CartItem{}, &CeilingError{VariantID: item.VariantID, Requested: item.Quantity, Ceiling: item.Stock}
	}
	s.put(item)
	s.save(ctx)
	return item, nil
}

// UpdateQuantity sets an absolute quantity. An absent variant is a no-op that
// reports ErrItemNotFound; out-of-range quantities leave the line unchanged.
func (s *Store) UpdateQuantity(ctx context.Context, variantID uuid.UUID, quantity int) (CartItem, error) {
	e, ok := s.items[variantID]
	if !ok {
		return CartItem{}, ErrItemNotFound
	}
	if quantity <= 0 {
		return e.item, ErrInvalidQuantity
	}
	if quantity > e.item.Stock {
		return e.item, &CeilingError{VariantID: variantID, Requested: quantity, Ceiling: e.item.Stock}
	}

	e.item.Quantity = quantity
	s.items[variantID] = e
	s.save(ctx)
	return e.item, nil
}

func (s *Store) RemoveItem(ctx context.Context, variantID uuid.UUID) bool {
	if _, ok := s.items[variantID]; !ok {
		return false
	}
	delete(s.items, variantID)
	s.save(ctx)
	return true
}

func (s *Store) Clear(ctx context.Context) {
	s.items = make(map[uuid.UUID]entry)
	s.nextSeq = 0
	s.save(ctx)
}

// StockChange describes a line whose stock ceiling or quantity was changed by
// SyncStock. Capped is set when the quantity had to be lowered.
type StockChange struct {
	VariantID        uuid.UUID `json:"variant_id"`
	Name             string    `json:"name"`
	PreviousQuantity int       `json:"previous_quantity"`
	Quantity         int       `json:"quantity"`
	PreviousStock    int       `json:"previous_stock"`
	Stock            int       `json:"stock"`
	Capped           bool      `json:"capped"`
}

// SyncStock records fresh ceilings for the variants present in stock and caps
// quantities that now exceed them. Every line whose ceiling or quantity moved
// is reported. Lines are never removed: a line whose stock dropped to zero
// keeps quantity 1 so the shopper can act on it.
func (s *Store) SyncStock(ctx context.Context, stock map[uuid.UUID]int) []StockChange {
	var changes []StockChange

	for _, it := range s.Items() {
		avail, ok := stock[it.VariantID]
		if !ok {
			continue
		}
		if avail < 0 {
			avail = 0
		}

		e := s.items[it.VariantID]
		qty := e.item.Quantity
		if qty > avail {
			qty = avail
			if qty < 1 {
				qty = 1
			}
		}
		if avail == e.item.Stock && qty == e.item.Quantity {
			continue
		}

		changes = append(changes, StockChange{
			VariantID:        it.VariantID,
			Name:             it.DisplayName(),
			PreviousQuantity: e.item.Quantity,
			Quantity:         qty,
			PreviousStock:    e.item.Stock,
			Stock:            avail,
			Capped:           qty < e.item.Quantity,
		})
		e.item.Stock = avail
		e.item.Quantity = qty
		s.items[it.VariantID] = e
	}

	if len(changes) > 0 {
		s.save(ctx)
	}
	return changes
}

// Tentative applies mutate at once and then asks confirm about the result. If
// either step fails the cart is restored to its exact prior contents.
func (s *Store) Tentative(ctx context.Context, mutate func(*Store) error, confirm func(context.Context, []CartItem) error) error {
	prevItems := make(map[uuid.UUID]entry, len(s.items))
	for k, v := range s.items {
		prevItems[k] = v
	}
	prevSeq := s.nextSeq

	restore := func() {
		s.items = prevItems
		s.nextSeq = prevSeq
		s.save(ctx)
	}

	if err := mutate(s); err != nil {
		restore()
		return err
	}
	if err := confirm(ctx, s.Items()); err != nil {
		restore()
		return err
	}
	return nil
}

func (s *Store) put(it CartItem) {
	s.items[it.VariantID] = entry{item: it, seq: s.nextSeq}
	s.nextSeq++
}

func (s *Store) save(ctx context.Context) {
	if s.persist == nil {
		return
	}
	if err := s.persist.Save(ctx, s.owner, s.Items()); err != nil {
		logging.FromContext(ctx).Warn("cart_snapshot_failed", "owner", s.owner.String(), "items", len(s.items), "error", err)
	}
}
