package store

import (
	"fmt"
	"slices"

	"storefront-api/internal/models"
	"storefront-api/pkg/utils"
)

const (
	freeShippingOver = 50.0
	flatShipping     = 9.99
	taxRate          = 0.08
)

// AddToCart adds quantity of product. A product already in the cart has its
// quantity increased; its captured prices are kept. quantity must be > 0.
func (s *Store) AddToCart(product models.CatalogProduct, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.cartIndexLocked(product.ID); i >= 0 {
		s.cart[i].Quantity += quantity
	} else {
		s.cart = append(s.cart, lineItemFrom(product, quantity))
	}
	s.recalculateLocked()
	s.persistLocked()
	return nil
}

func lineItemFrom(p models.CatalogProduct, quantity int) models.CartLineItem {
	it := models.CartLineItem{
		ProductID: p.ID,
		Name:      p.Title,
		UnitPrice: p.Price,
		Thumbnail: p.Thumbnail,
		Category:  p.Category,
		Quantity:  quantity,
	}
	if p.DiscountPercent != nil {
		d := *p.DiscountPercent
		discounted := p.EffectivePrice
		it.DiscountPercent = &d
		it.DiscountedUnitPrice = &discounted
	}
	return it
}

// UpdateQuantity sets the quantity of productID's line. quantity <= 0
// removes the line. Unknown ids leave the cart unchanged.
func (s *Store) UpdateQuantity(productID, quantity int) {
	if quantity <= 0 {
		s.RemoveFromCart(productID)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if i := s.cartIndexLocked(productID); i >= 0 {
		s.cart[i].Quantity = quantity
	}
	s.recalculateLocked()
	s.persistLocked()
}

// RemoveFromCart drops productID's line if present.
func (s *Store) RemoveFromCart(productID int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = slices.DeleteFunc(s.cart, func(it models.CartLineItem) bool {
		return it.ProductID == productID
	})
	s.recalculateLocked()
	s.persistLocked()
}

func (s *Store) ClearCart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cart = make([]models.CartLineItem, 0)
	s.cartTotal = 0
	s.persistLocked()
}

func (s *Store) cartIndexLocked(productID int) int {
	return slices.IndexFunc(s.cart, func(it models.CartLineItem) bool {
		return it.ProductID == productID
	})
}

// recalculateLocked recomputes cartTotal from the line items. The total is
// never rounded here.
func (s *Store) recalculateLocked() {
	total := 0.0
	for _, it := range s.cart {
		total += it.LineTotal()
	}
	s.cartTotal = total
}

func (s *Store) cartViewLocked() models.CartView {
	count := 0
	for _, it := range s.cart {
		count += it.Quantity
	}
	return models.CartView{
		Items:     slices.Clone(s.cart),
		Total:     s.cartTotal,
		ItemCount: count,
	}
}

// Cart returns the line items in insertion order with the total and item count.
func (s *Store) Cart() models.CartView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartViewLocked()
}

func (s *Store) CartTotal() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartTotal
}

// ItemCount is the sum of quantities across all lines.
func (s *Store) ItemCount() int {
	return s.Cart().ItemCount
}

// CartSummary prices the cart for checkout display: free shipping over 50,
// otherwise a flat 9.99, plus 8% tax on the subtotal. Amounts are rounded to
// cents here and only here.
func (s *Store) CartSummary() models.CartSummary {
	view := s.Cart()
	subtotal := view.Total

	shipping := 0.0
	remaining := 0.0
	if view.ItemCount > 0 && subtotal <= freeShippingOver {
		shipping = flatShipping
		if subtotal < freeShippingOver {
			remaining = freeShippingOver - subtotal
		}
	}
	tax := subtotal * taxRate

	return models.CartSummary{
		ItemCount:            view.ItemCount,
		Subtotal:             utils.RoundMoney(subtotal),
		Shipping:             utils.RoundMoney(shipping),
		FreeShipping:         view.ItemCount > 0 && shipping == 0,
		RemainingForFreeShip: utils.RoundMoney(remaining),
		Tax:                  utils.RoundMoney(tax),
		Total:                utils.RoundMoney(subtotal + shipping + tax),
		SubtotalDisplay:      utils.FormatMoney(subtotal),
		TotalDisplay:         utils.FormatMoney(subtotal + shipping + tax),
	}
}
