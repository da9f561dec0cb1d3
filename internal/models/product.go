package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"

	"storefront-api/pkg/utils"
)

// RawProduct is a product record as the remote catalog returns it. Every
// field is optional at decode time; normalization decides what is required.
type RawProduct struct {
	ID                 FlexInt   `json:"id"`
	Title              *string   `json:"title"`
	Name               *string   `json:"name"`
	Price              FlexFloat `json:"price"`
	DiscountPercentage FlexFloat `json:"discountPercentage"`
	Category           *string   `json:"category"`
	Description        *string   `json:"description"`
	Thumbnail          *string   `json:"thumbnail"`
	Images             []string  `json:"images"`
	Brand              *string   `json:"brand"`
	Stock              FlexInt   `json:"stock"`
	Rating             FlexFloat `json:"rating"`
}

// CatalogProduct is a normalized product.
type CatalogProduct struct {
	ID              int      `json:"id"`
	Title           string   `json:"title"`
	Price           float64  `json:"price"`
	DiscountPercent *float64 `json:"discount_percent,omitempty"`
	EffectivePrice  float64  `json:"effective_price"`
	Category        string   `json:"category"`
	Description     string   `json:"description"`
	Thumbnail       string   `json:"thumbnail,omitempty"`
	Images          []string `json:"images,omitempty"`
	Brand           string   `json:"brand,omitempty"`
	Stock           *int     `json:"stock,omitempty"`
	Rating          *float64 `json:"rating,omitempty"`
}

// RatingValue returns the rating, or 0 when the product has none.
func (p CatalogProduct) RatingValue() float64 {
	if p.Rating == nil {
		return 0
	}
	return *p.Rating
}

// FlexFloat decodes a JSON number or a string holding a number ("$1,299.00",
// "4.5 out of 5"). Absent, null and unparseable values leave it unset rather
// than failing the whole response.
type FlexFloat struct {
	value float64
	set   bool
}

// NewFlexFloat returns a set FlexFloat.
func NewFlexFloat(v float64) FlexFloat {
	return FlexFloat{value: v, set: true}
}

func (f *FlexFloat) UnmarshalJSON(data []byte) error {
	*f = FlexFloat{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		if v, ok := utils.ParsePrice(s); ok {
			*f = NewFlexFloat(v)
		}
		return nil
	}

	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*f = NewFlexFloat(v)
	}
	return nil
}

func (f FlexFloat) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// Float returns the value, or nil when unset.
func (f FlexFloat) Float() *float64 {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

// FlexInt decodes a whole JSON number or a string holding one. Anything else
// (fractions, objects, garbage) leaves it unset.
type FlexInt struct {
	value int
	set   bool
}

func NewFlexInt(v int) FlexInt {
	return FlexInt{value: v, set: true}
}

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	*f = FlexInt{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		data = []byte(strings.TrimSpace(s))
	}

	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return nil
	}
	if v != math.Trunc(v) || math.Abs(v) > math.MaxInt32 {
		return nil
	}
	*f = NewFlexInt(int(v))
	return nil
}

func (f FlexInt) MarshalJSON() ([]byte, error) {
	if !f.set {
		return []byte("null"), nil
	}
	return json.Marshal(f.value)
}

// Int returns the value, or nil when unset.
func (f FlexInt) Int() *int {
	if !f.set {
		return nil
	}
	v := f.value
	return &v
}

type SortField string

const (
	SortByName   SortField = "name"
	SortByPrice  SortField = "price"
	SortByRating SortField = "rating"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

type Sort struct {
	Field SortField `json:"field"` // name, price, rating
	Order SortOrder `json:"order"` // asc, desc
}

// Valid reports whether both field and order are known values.
func (s Sort) Valid() bool {
	switch s.Field {
	case SortByName, SortByPrice, SortByRating:
	default:
		return false
	}
	return s.Order == SortAsc || s.Order == SortDesc
}

type PageResult struct {
	Products   []CatalogProduct `json:"products"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
	Sort       Sort             `json:"sort"`
	Category   string           `json:"category"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
