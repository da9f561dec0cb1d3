package catalog

import (
	"storefront-api/internal/models"
	"storefront-api/pkg/utils"
)

// Drop reasons reported in NormalizeResult.
const (
	DropMissingID          = "missing_id"
	DropMissingPrice       = "missing_price"
	DropNegativePrice      = "negative_price"
	DropMissingCategory    = "missing_category"
	DropMissingDescription = "missing_description"
	DropDuplicateID        = "duplicate_id"
)

// NormalizeResult holds the normalized products in response order and a
// count of every excluded record by reason.
type NormalizeResult struct {
	Products []models.CatalogProduct
	Dropped  map[string]int
}

// DroppedTotal is the number of raw records that did not make it into Products.
func (r NormalizeResult) DroppedTotal() int {
	n := 0
	for _, c := range r.Dropped {
		n += c
	}
	return n
}

// Normalize maps raw upstream records onto CatalogProduct. Records missing
// id, price, category or description are excluded, as are later records
// reusing an id already seen.
func Normalize(raw []models.RawProduct) NormalizeResult {
	res := NormalizeResult{
		Products: make([]models.CatalogProduct, 0, len(raw)),
		Dropped:  make(map[string]int),
	}
	seen := make(map[int]struct{}, len(raw))

	for _, r := range raw {
		p, reason := normalizeOne(r)
		if reason != "" {
			res.Dropped[reason]++
			continue
		}
		if _, dup := seen[p.ID]; dup {
			res.Dropped[DropDuplicateID]++
			continue
		}
		seen[p.ID] = struct{}{}
		res.Products = append(res.Products, p)
	}

	return res
}

func normalizeOne(r models.RawProduct) (models.CatalogProduct, string) {
	id := r.ID.Int()
	price := r.Price.Float()
	switch {
	case id == nil:
		return models.CatalogProduct{}, DropMissingID
	case price == nil:
		return models.CatalogProduct{}, DropMissingPrice
	case *price < 0:
		return models.CatalogProduct{}, DropNegativePrice
	case r.Category == nil || *r.Category == "":
		return models.CatalogProduct{}, DropMissingCategory
	case r.Description == nil:
		return models.CatalogProduct{}, DropMissingDescription
	}

	p := models.CatalogProduct{
		ID:          *id,
		Title:       firstNonNil(r.Title, r.Name),
		Price:       *price,
		Category:    *r.Category,
		Description: *r.Description,
		Brand:       deref(r.Brand),
		Stock:       r.Stock.Int(),
		Rating:      r.Rating.Float(),
	}

	if d := r.DiscountPercentage.Float(); d != nil && *d != 0 {
		clamped := utils.ClampPercent(*d)
		p.DiscountPercent = &clamped
	}
	p.EffectivePrice = utils.EffectivePrice(p.Price, p.DiscountPercent)

	p.Thumbnail = deref(r.Thumbnail)
	for _, img := range r.Images {
		if img != "" {
			p.Images = append(p.Images, img)
		}
	}
	if p.Thumbnail == "" && len(p.Images) > 0 {
		p.Thumbnail = p.Images[0]
	}
	if len(p.Images) == 0 && p.Thumbnail != "" {
		p.Images = []string{p.Thumbnail}
	}

	return p, ""
}

func firstNonNil(vals ...*string) string {
	for _, v := range vals {
		if v != nil {
			return *v
		}
	}
	return ""
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
