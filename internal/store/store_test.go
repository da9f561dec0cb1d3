package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"storefront-api/internal/models"
	"storefront-api/pkg/persist"
)

// fakeCatalog serves canned products per category. A category with a gate
// blocks until the gate is closed.
type fakeCatalog struct {
	mu         sync.Mutex
	byCategory map[string][]models.RawProduct
	gates      map[string]chan struct{}
	started    map[string]chan struct{}
	err        error
	categories []string
	catErr     error
	calls      []string
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		byCategory: make(map[string][]models.RawProduct),
		gates:      make(map[string]chan struct{}),
		started:    make(map[string]chan struct{}),
	}
}

// hold makes fetches of category block until the returned func is called.
// started is closed once such a fetch has begun.
func (f *fakeCatalog) hold(category string) (release func(), started <-chan struct{}) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gate := make(chan struct{})
	st := make(chan struct{})
	f.gates[category] = gate
	f.started[category] = st
	return func() { close(gate) }, st
}

func (f *fakeCatalog) serve(ctx context.Context, category string) ([]models.RawProduct, error) {
	f.mu.Lock()
	f.calls = append(f.calls, category)
	gate := f.gates[category]
	st := f.started[category]
	products := f.byCategory[category]
	f.mu.Unlock()

	if gate != nil {
		close(st)
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	err := f.err
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return products, nil
}

func (f *fakeCatalog) FetchAll(ctx context.Context) ([]models.RawProduct, error) {
	return f.serve(ctx, AllCategories)
}

func (f *fakeCatalog) FetchByCategory(ctx context.Context, category string) ([]models.RawProduct, error) {
	return f.serve(ctx, category)
}

func (f *fakeCatalog) FetchCategories(context.Context) ([]string, error) {
	return f.categories, f.catErr
}

func (f *fakeCatalog) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func raw(id int, title string, price, discount, rating float64, category string) models.RawProduct {
	desc := title + " description"
	r := models.RawProduct{
		ID:          models.NewFlexInt(id),
		Title:       &title,
		Price:       models.NewFlexFloat(price),
		Category:    &category,
		Description: &desc,
	}
	if discount > 0 {
		r.DiscountPercentage = models.NewFlexFloat(discount)
	}
	if rating > 0 {
		r.Rating = models.NewFlexFloat(rating)
	}
	return r
}

func newTestStore(t *testing.T, cat Catalog, p persist.Persister) *Store {
	t.Helper()
	s := New(context.Background(), cat, p, zaptest.NewLogger(t))
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func ids(products []models.CatalogProduct) []int {
	out := make([]int, len(products))
	for i, p := range products {
		out[i] = p.ID
	}
	return out
}

func TestNewStoreDefaults(t *testing.T) {
	s := newTestStore(t, newFakeCatalog(), nil)
	st := s.Snapshot()
	assert.Empty(t, st.Products)
	assert.Empty(t, st.Cart.Items)
	assert.False(t, st.IsLoading)
	assert.Equal(t, "", st.Error)
	assert.Equal(t, AllCategories, st.SelectedCategory)
	assert.Equal(t, models.Sort{Field: models.SortByName, Order: models.SortAsc}, st.Sort)
}

func TestFetchAllProductsPopulatesAndPicksFeatured(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory[AllCategories] = []models.RawProduct{
		raw(1, "a", 10, 0, 4.9, "x"),
		raw(2, "b", 10, 0, 3.0, "x"),
		raw(3, "c", 10, 0, 4.5, "x"),
		raw(4, "d", 10, 0, 4.6, "y"),
		raw(5, "e", 10, 0, 4.7, "y"),
		raw(6, "f", 10, 0, 0, "y"),
		raw(7, "g", 10, 0, 5.0, "z"),
		raw(8, "h", 10, 0, 4.8, "z"),
		raw(9, "i", 10, 0, 4.99, "z"),
		{Title: ptr("broken")},
	}
	s := newTestStore(t, cat, nil)

	s.FetchAllProducts(context.Background())

	st := s.Snapshot()
	assert.False(t, st.IsLoading)
	assert.Empty(t, st.Error)
	assert.Len(t, st.Products, 9, "record without required fields is excluded")
	assert.Equal(t, []int{1, 3, 4, 5, 7, 8}, ids(st.FeaturedProducts))
}

func TestFetchFailureKeepsProductsAndClearsLoading(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory[AllCategories] = []models.RawProduct{raw(1, "a", 10, 0, 0, "x")}
	s := newTestStore(t, cat, nil)
	s.FetchAllProducts(context.Background())

	cat.setErr(errors.New("connection refused"))
	s.FetchProductsByCategory(context.Background(), "laptops")

	st := s.Snapshot()
	assert.False(t, st.IsLoading)
	assert.Contains(t, st.Error, "failed to fetch products")
	assert.Contains(t, st.Error, "connection refused")
	assert.Equal(t, []int{1}, ids(st.Products))

	cat.setErr(nil)
	s.FetchAllProducts(context.Background())
	assert.Empty(t, s.Snapshot().Error, "retry clears the error")
}

func TestFetchByCategoryReplacesProducts(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory[AllCategories] = []models.RawProduct{raw(1, "a", 10, 0, 4.9, "x"), raw(2, "b", 10, 0, 0, "laptops")}
	cat.byCategory["laptops"] = []models.RawProduct{raw(2, "b", 10, 0, 0, "laptops")}
	s := newTestStore(t, cat, nil)

	s.FetchAllProducts(context.Background())
	s.FetchProductsByCategory(context.Background(), "laptops")

	st := s.Snapshot()
	assert.Equal(t, []int{2}, ids(st.Products))
	assert.Equal(t, []int{1}, ids(st.FeaturedProducts), "featured only changes on a full fetch")
}

func TestFetchByCategoryAllIsCaseInsensitive(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory[AllCategories] = []models.RawProduct{raw(1, "a", 10, 0, 0, "x")}
	s := newTestStore(t, cat, nil)

	s.FetchProductsByCategory(context.Background(), "aLL")
	assert.Equal(t, []int{1}, ids(s.Snapshot().Products))
	assert.Equal(t, []string{AllCategories}, cat.calls)
}

func TestFetchRaceLaterRequestWins(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory["a"] = []models.RawProduct{raw(1, "from a", 10, 0, 0, "a")}
	cat.byCategory["b"] = []models.RawProduct{raw(2, "from b", 10, 0, 0, "b")}
	releaseA, startedA := cat.hold("a")
	s := newTestStore(t, cat, nil)

	s.SetSelectedCategory("a")
	<-startedA
	s.SetSelectedCategory("b")

	// Let b land first, then the slow a response.
	require.Eventually(t, func() bool {
		st := s.Snapshot()
		return len(st.Products) == 1 && st.Products[0].ID == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.False(t, s.Snapshot().IsLoading)

	releaseA()
	s.Wait()

	st := s.Snapshot()
	assert.Equal(t, []int{2}, ids(st.Products))
	assert.False(t, st.IsLoading)
	assert.Equal(t, "b", st.SelectedCategory)
}

func TestFetchRaceStaleErrorIgnored(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory["b"] = []models.RawProduct{raw(2, "from b", 10, 0, 0, "b")}
	releaseA, startedA := cat.hold("a")
	s := newTestStore(t, cat, nil)

	s.SetSelectedCategory("a")
	<-startedA
	s.FetchProductsByCategory(context.Background(), "b")
	cat.setErr(errors.New("late failure"))
	releaseA()
	s.Wait()

	st := s.Snapshot()
	assert.Empty(t, st.Error)
	assert.Equal(t, []int{2}, ids(st.Products))
}

func TestSetSelectedCategoryMarksLoadingImmediately(t *testing.T) {
	cat := newFakeCatalog()
	release, started := cat.hold("laptops")
	s := newTestStore(t, cat, nil)

	s.SetSelectedCategory("laptops")
	st := s.Snapshot()
	assert.True(t, st.IsLoading)
	assert.Equal(t, "laptops", st.SelectedCategory)

	<-started
	_, ok := s.ProductByID(1)
	assert.False(t, ok, "lookup miss while loading is reported separately from IsLoading")

	release()
	s.Wait()
	assert.False(t, s.Snapshot().IsLoading)
}

func TestRefreshCatalogRefetchesSelection(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory["laptops"] = []models.RawProduct{raw(5, "l", 10, 0, 0, "laptops")}
	s := newTestStore(t, cat, nil)
	s.SetSelectedCategory("laptops")
	s.Wait()
	s.RefreshCatalog()
	s.Wait()
	assert.Equal(t, []string{"laptops", "laptops"}, cat.calls)
}

func TestFetchCategories(t *testing.T) {
	cat := newFakeCatalog()
	cat.categories = []string{"beauty", "all", "laptops"}
	s := newTestStore(t, cat, nil)

	s.FetchCategories(context.Background())
	assert.Equal(t, []string{"All", "beauty", "laptops"}, s.Categories())

	cat.catErr = errors.New("down")
	s.FetchCategories(context.Background())
	assert.Equal(t, fallbackCategories, s.Categories())
}

func TestProductByIDAndRelated(t *testing.T) {
	cat := newFakeCatalog()
	cat.byCategory[AllCategories] = []models.RawProduct{
		raw(1, "a", 10, 0, 0, "Laptops"),
		raw(2, "b", 10, 0, 0, "laptops"),
		raw(3, "c", 10, 0, 0, "phones"),
		raw(4, "d", 10, 0, 0, "laptops"),
	}
	s := newTestStore(t, cat, nil)
	s.FetchAllProducts(context.Background())

	p, ok := s.ProductByID(3)
	require.True(t, ok)
	assert.Equal(t, "c", p.Title)

	_, ok = s.ProductByID(42)
	assert.False(t, ok)

	assert.Equal(t, []int{2, 4}, ids(s.RelatedProducts(1, 4)))
	assert.Equal(t, []int{2}, ids(s.RelatedProducts(1, 1)))
	assert.Empty(t, s.RelatedProducts(42, 4))
}

func TestCloseWaitsForDispatchedFetches(t *testing.T) {
	cat := newFakeCatalog()
	_, started := cat.hold("slow")
	mem := persist.NewMemory(nil)
	s := New(context.Background(), cat, mem, zaptest.NewLogger(t))

	s.SetSelectedCategory("slow")
	<-started

	require.NoError(t, s.Close(context.Background()), "close cancels the in-flight fetch")
	assert.JSONEq(t, `{"state":{"cartItems":[],"cartTotal":0,"selectedCategory":"slow"},"version":1}`, string(mem.Blob()))

	s.SetSelectedCategory("after-close")
	s.Wait()
	assert.NoError(t, s.Close(context.Background()))
}

func TestCloseRacingSelectionLeavesNoFetchBehind(t *testing.T) {
	for i := 0; i < 100; i++ {
		cat := newFakeCatalog()
		s := New(context.Background(), cat, nil, nil)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			s.SetSelectedCategory("laptops")
		}()
		go func() {
			defer wg.Done()
			s.RefreshCatalog()
		}()
		require.NoError(t, s.Close(context.Background()))

		cat.mu.Lock()
		afterClose := len(cat.calls)
		cat.mu.Unlock()

		wg.Wait()
		s.Wait()

		cat.mu.Lock()
		assert.Equal(t, afterClose, len(cat.calls), "no catalog call may start after Close returns")
		cat.mu.Unlock()
	}
}

func ptr[T any](v T) *T { return &v }
