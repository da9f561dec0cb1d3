package store

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"storefront-api/internal/models"
)

// blobVersion is bumped whenever persistedState changes incompatibly.
// Blobs with any other version are ignored.
const blobVersion = 1

// persistedBlob is the on-disk shape:
//
//	{"state":{"cartItems":[...],"cartTotal":0,"selectedCategory":"All"},"version":1}
type persistedBlob struct {
	State   persistedState `json:"state"`
	Version int            `json:"version"`
}

type persistedState struct {
	CartItems        []models.CartLineItem `json:"cartItems"`
	CartTotal        float64               `json:"cartTotal"`
	SelectedCategory string                `json:"selectedCategory"`
}

func (s *Store) restore(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	data, err := s.persister.Load(ctx)
	if err != nil {
		s.logger.Warn("could not read persisted state, starting empty", zap.Error(err))
		return
	}
	if len(data) == 0 {
		return
	}

	var blob persistedBlob
	if err := json.Unmarshal(data, &blob); err != nil {
		s.logger.Warn("persisted state is corrupt, starting empty", zap.Error(err))
		return
	}
	if blob.Version != blobVersion {
		s.logger.Warn("persisted state has unknown version, starting empty",
			zap.Int("version", blob.Version))
		return
	}

	items, skipped := sanitizeCart(blob.State.CartItems)
	if skipped > 0 {
		s.logger.Warn("skipped invalid persisted cart items", zap.Int("skipped", skipped))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart = items
	s.recalculateLocked()
	if blob.State.SelectedCategory != "" {
		s.selectedCategory = blob.State.SelectedCategory
	}
	s.logger.Info("restored persisted state",
		zap.Int("cart_items", len(s.cart)),
		zap.String("selected_category", s.selectedCategory))
}

// sanitizeCart drops non-positive quantities and repeated product ids so a
// hand-edited blob cannot break the cart rules.
func sanitizeCart(items []models.CartLineItem) ([]models.CartLineItem, int) {
	out := make([]models.CartLineItem, 0, len(items))
	seen := make(map[int]struct{}, len(items))
	skipped := 0
	for _, it := range items {
		if it.Quantity <= 0 || it.UnitPrice < 0 {
			skipped++
			continue
		}
		if _, dup := seen[it.ProductID]; dup {
			skipped++
			continue
		}
		seen[it.ProductID] = struct{}{}
		out = append(out, it)
	}
	return out, skipped
}

// persistLocked writes the cart and selected category. Failures are logged
// and returned; callers holding only a mutation do not act on them.
func (s *Store) persistLocked() error {
	blob := persistedBlob{
		State: persistedState{
			CartItems:        s.cart,
			CartTotal:        s.cartTotal,
			SelectedCategory: s.selectedCategory,
		},
		Version: blobVersion,
	}
	data, err := json.Marshal(blob)
	if err != nil {
		s.logger.Error("encode persisted state", zap.Error(err))
		return fmt.Errorf("encode state: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.persister.Save(ctx, data); err != nil {
		s.logger.Warn("persist state failed", zap.Error(err))
		return err
	}
	return nil
}
