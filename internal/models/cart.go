package models

// CartLineItem is a cart entry. Name, prices, thumbnail and category are a
// snapshot taken when the product was first added.
type CartLineItem struct {
	ProductID           int      `json:"id"`
	Name                string   `json:"name"`
	UnitPrice           float64  `json:"price"`
	DiscountPercent     *float64 `json:"discount,omitempty"`
	DiscountedUnitPrice *float64 `json:"discountedPrice,omitempty"`
	Thumbnail           string   `json:"image"`
	Category            string   `json:"category"`
	Quantity            int      `json:"quantity"`
}

// PayablePrice is the discounted unit price when one was captured, else the unit price.
func (it CartLineItem) PayablePrice() float64 {
	if it.DiscountedUnitPrice != nil {
		return *it.DiscountedUnitPrice
	}
	return it.UnitPrice
}

// LineTotal is PayablePrice times quantity, unrounded.
func (it CartLineItem) LineTotal() float64 {
	return it.PayablePrice() * float64(it.Quantity)
}

type CartView struct {
	Items     []CartLineItem `json:"items"`
	Total     float64        `json:"total"`
	ItemCount int            `json:"item_count"`
}

// CartSummary is the checkout presentation of the cart. All amounts are
// rounded to cents.
type CartSummary struct {
	ItemCount            int     `json:"item_count"`
	Subtotal             float64 `json:"subtotal"`
	Shipping             float64 `json:"shipping"`
	FreeShipping         bool    `json:"free_shipping"`
	RemainingForFreeShip float64 `json:"remaining_for_free_shipping"`
	Tax                  float64 `json:"tax"`
	Total                float64 `json:"total"`
	SubtotalDisplay      string  `json:"subtotal_display"`
	TotalDisplay         string  `json:"total_display"`
}
