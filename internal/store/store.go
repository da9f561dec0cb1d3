// Package store holds the storefront state: the fetched catalog, the
// category/sort selection and the shopping cart. It is the only writer of
// that state; readers get copies.
package store

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"storefront-api/internal/catalog"
	"storefront-api/internal/models"
	"storefront-api/pkg/persist"
)

// AllCategories is the category sentinel meaning "no server-side filter".
const AllCategories = "All"

const (
	featuredMinRating = 4.5
	featuredLimit     = 6
)

var fallbackCategories = []string{
	AllCategories,
	"mens-shirts",
	"fragrances",
	"skincare",
	"smartphones",
	"laptops",
	"groceries",
}

var (
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	ErrInvalidSort     = errors.New("invalid sort")
)

// Catalog is the remote product source.
type Catalog interface {
	FetchAll(ctx context.Context) ([]models.RawProduct, error)
	FetchByCategory(ctx context.Context, category string) ([]models.RawProduct, error)
	FetchCategories(ctx context.Context) ([]string, error)
}

// State is a point-in-time copy of everything the UI reads.
type State struct {
	Products         []models.CatalogProduct `json:"products"`
	FeaturedProducts []models.CatalogProduct `json:"featured_products"`
	Categories       []string                `json:"categories"`
	IsLoading        bool                    `json:"is_loading"`
	Error            string                  `json:"error,omitempty"`
	SelectedCategory string                  `json:"selected_category"`
	Sort             models.Sort             `json:"sort"`
	Cart             models.CartView         `json:"cart"`
}

type Store struct {
	catalog   Catalog
	persister persist.Persister
	logger    *zap.Logger

	mu               sync.RWMutex
	products         []models.CatalogProduct
	featured         []models.CatalogProduct
	categories       []string
	isLoading        bool
	errMsg           string
	cart             []models.CartLineItem
	cartTotal        float64
	selectedCategory string
	sort             models.Sort
	// fetchSeq is the token of the most recently started fetch.
	fetchSeq uint64
	closed   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New builds a store and restores the persisted cart and category. A missing
// or unreadable blob leaves an empty cart and the "All" category.
func New(ctx context.Context, cat Catalog, p persist.Persister, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if p == nil {
		p = persist.NewMemory(nil)
	}

	lifecycle, cancel := context.WithCancel(context.Background())
	s := &Store{
		catalog:          cat,
		persister:        p,
		logger:           logger,
		products:         make([]models.CatalogProduct, 0),
		featured:         make([]models.CatalogProduct, 0),
		categories:       make([]string, 0),
		cart:             make([]models.CartLineItem, 0),
		selectedCategory: AllCategories,
		sort:             models.Sort{Field: models.SortByName, Order: models.SortAsc},
		ctx:              lifecycle,
		cancel:           cancel,
	}
	s.restore(ctx)
	return s
}

func isAll(category string) bool {
	return strings.EqualFold(category, AllCategories)
}

// FetchAllProducts loads the full catalog page, replacing products and
// featured products. Failures are recorded in State.Error.
func (s *Store) FetchAllProducts(ctx context.Context) {
	s.mu.Lock()
	token := s.beginFetchLocked()
	s.mu.Unlock()
	s.runFetch(ctx, token, AllCategories)
}

// FetchProductsByCategory loads one category from the catalog, replacing
// products. "All" (any case) behaves as FetchAllProducts.
func (s *Store) FetchProductsByCategory(ctx context.Context, category string) {
	s.mu.Lock()
	token := s.beginFetchLocked()
	s.mu.Unlock()
	s.runFetch(ctx, token, category)
}

// SetSelectedCategory records the selection, persists it and starts a
// background fetch for that category. It does not wait for the fetch.
func (s *Store) SetSelectedCategory(category string) {
	s.mu.Lock()
	s.selectedCategory = category
	s.persistLocked()
	if s.closed {
		s.mu.Unlock()
		return
	}
	token := s.beginFetchLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.dispatch(func(ctx context.Context) {
		s.runFetch(ctx, token, category)
	})
}

// RefreshCatalog re-fetches the selected category in the background.
func (s *Store) RefreshCatalog() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	category := s.selectedCategory
	token := s.beginFetchLocked()
	s.wg.Add(1)
	s.mu.Unlock()

	s.dispatch(func(ctx context.Context) {
		s.runFetch(ctx, token, category)
	})
}

// FetchCategories loads the category list, prefixed with "All". On failure
// a fixed fallback list is used.
func (s *Store) FetchCategories(ctx context.Context) {
	cats, err := s.catalog.FetchCategories(ctx)
	if err != nil {
		s.logger.Warn("failed to fetch categories, using fallback", zap.Error(err))
		s.mu.Lock()
		s.categories = slices.Clone(fallbackCategories)
		s.mu.Unlock()
		return
	}

	list := make([]string, 0, len(cats)+1)
	list = append(list, AllCategories)
	for _, c := range cats {
		if c == "" || isAll(c) {
			continue
		}
		list = append(list, c)
	}

	s.mu.Lock()
	s.categories = list
	s.mu.Unlock()
}

func (s *Store) beginFetchLocked() uint64 {
	s.fetchSeq++
	s.isLoading = true
	s.errMsg = ""
	return s.fetchSeq
}

func (s *Store) runFetch(ctx context.Context, token uint64, category string) {
	all := isAll(category)

	var (
		raw []models.RawProduct
		err error
	)
	if all {
		raw, err = s.catalog.FetchAll(ctx)
	} else {
		raw, err = s.catalog.FetchByCategory(ctx, category)
	}

	var (
		res      catalog.NormalizeResult
		featured []models.CatalogProduct
	)
	if err == nil {
		res = catalog.Normalize(raw)
		if n := res.DroppedTotal(); n > 0 {
			s.logger.Warn("dropped incomplete catalog records",
				zap.String("category", category),
				zap.Int("dropped", n),
				zap.Any("reasons", res.Dropped))
		}
		if all {
			featured = pickFeatured(res.Products)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.fetchSeq {
		s.logger.Debug("discarding superseded fetch",
			zap.String("category", category),
			zap.Uint64("token", token),
			zap.Uint64("latest", s.fetchSeq))
		return
	}

	s.isLoading = false
	if err != nil {
		s.errMsg = "failed to fetch products: " + err.Error()
		s.logger.Warn("product fetch failed", zap.String("category", category), zap.Error(err))
		return
	}

	s.products = res.Products
	if all {
		s.featured = featured
	}
	s.logger.Info("products loaded",
		zap.String("category", category),
		zap.Int("count", len(res.Products)))
}

func pickFeatured(products []models.CatalogProduct) []models.CatalogProduct {
	featured := make([]models.CatalogProduct, 0, featuredLimit)
	for _, p := range products {
		if len(featured) == featuredLimit {
			break
		}
		if p.RatingValue() >= featuredMinRating {
			featured = append(featured, p)
		}
	}
	return featured
}

// dispatch runs fn in the background. The caller must already have done
// wg.Add(1) while holding mu and seeing closed == false, so Close cannot
// finish waiting before the goroutine is counted.
func (s *Store) dispatch(fn func(ctx context.Context)) {
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("background fetch panic recovered", zap.Any("panic", r))
			}
		}()
		fn(s.ctx)
	}()
}

// Wait blocks until every background fetch started so far has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

// ProductByID looks id up in the current products. A miss is not an error;
// callers should check State.IsLoading to tell "not yet loaded" from "absent".
func (s *Store) ProductByID(id int) (models.CatalogProduct, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.CatalogProduct{}, false
}

// RelatedProducts returns up to limit other products sharing id's category.
func (s *Store) RelatedProducts(id, limit int) []models.CatalogProduct {
	if limit <= 0 {
		limit = 4
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	related := make([]models.CatalogProduct, 0, limit)
	var category string
	found := false
	for _, p := range s.products {
		if p.ID == id {
			category, found = p.Category, true
			break
		}
	}
	if !found {
		return related
	}
	for _, p := range s.products {
		if len(related) == limit {
			break
		}
		if p.ID != id && strings.EqualFold(p.Category, category) {
			related = append(related, p)
		}
	}
	return related
}

func (s *Store) FeaturedProducts() []models.CatalogProduct {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.featured)
}

func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

func (s *Store) SelectedCategory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectedCategory
}

// Snapshot copies the whole read surface.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return State{
		Products:         slices.Clone(s.products),
		FeaturedProducts: slices.Clone(s.featured),
		Categories:       slices.Clone(s.categories),
		IsLoading:        s.isLoading,
		Error:            s.errMsg,
		SelectedCategory: s.selectedCategory,
		Sort:             s.sort,
		Cart:             s.cartViewLocked(),
	}
}

// Close stops background fetches, waits for them up to ctx, flushes the
// persisted blob and closes the persister.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		s.logger.Warn("store close: background fetches still running", zap.Error(ctx.Err()))
	}

	s.mu.Lock()
	flushErr := s.persistLocked()
	s.mu.Unlock()

	closeErr := s.persister.Close()
	return errors.Join(flushErr, closeErr)
}

// persistTimeout bounds each blob write.
const persistTimeout = 3 * time.Second
