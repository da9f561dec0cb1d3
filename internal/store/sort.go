package store

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"storefront-api/internal/models"
)

const (
	defaultPageLimit = 10
	maxPageLimit     = 100
)

// SetSorting changes the sort used by FilteredProducts. Unknown fields or
// orders are rejected and leave the current sort in place.
func (s *Store) SetSorting(field models.SortField, order models.SortOrder) error {
	by := models.Sort{Field: field, Order: order}
	if !by.Valid() {
		return fmt.Errorf("%w: field %q order %q (fields: name, price, rating; orders: asc, desc)",
			ErrInvalidSort, field, order)
	}

	s.mu.Lock()
	s.sort = by
	s.mu.Unlock()
	return nil
}

func (s *Store) Sorting() models.Sort {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sort
}

// FilteredProducts returns the current products ordered by the active sort.
func (s *Store) FilteredProducts() []models.CatalogProduct {
	s.mu.RLock()
	products := slices.Clone(s.products)
	by := s.sort
	s.mu.RUnlock()

	sortProducts(products, by)
	return products
}

// sortProducts sorts in place. Ascending is a stable sort; descending is the
// exact reverse of the ascending result, ties included.
func sortProducts(products []models.CatalogProduct, by models.Sort) {
	switch by.Field {
	case models.SortByName:
		// Collators keep scratch buffers and are not safe for concurrent use.
		col := collate.New(language.English)
		slices.SortStableFunc(products, func(a, b models.CatalogProduct) int {
			return col.CompareString(a.Title, b.Title)
		})
	case models.SortByPrice:
		slices.SortStableFunc(products, func(a, b models.CatalogProduct) int {
			return cmp.Compare(a.Price, b.Price)
		})
	case models.SortByRating:
		slices.SortStableFunc(products, func(a, b models.CatalogProduct) int {
			return cmp.Compare(a.RatingValue(), b.RatingValue())
		})
	}

	if by.Order == models.SortDesc {
		slices.Reverse(products)
	}
}

// Page returns one page of FilteredProducts. page <= 0 means 1, limit <= 0
// means 10 and limit is capped at 100. Pages past the end are empty.
func (s *Store) Page(page, limit int) models.PageResult {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}

	s.mu.RLock()
	products := slices.Clone(s.products)
	by := s.sort
	category := s.selectedCategory
	s.mu.RUnlock()

	sortProducts(products, by)

	total := len(products)
	totalPages := int(math.Ceil(float64(total) / float64(limit)))

	result := models.PageResult{
		Products:   make([]models.CatalogProduct, 0),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Sort:       by,
		Category:   category,
	}

	start := (page - 1) * limit
	if start >= total {
		return result
	}
	end := min(start+limit, total)
	result.Products = products[start:end]
	return result
}
