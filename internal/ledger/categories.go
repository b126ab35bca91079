package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"fintrack/internal/core"
	"fintrack/internal/log"
)

const categoriesCacheKey = "registry"

// ListCategories returns the registry, seeding the default categories the
// first time it is found empty.
func (s *Service) ListCategories(ctx context.Context) ([]core.Category, error) {
	if s.cats != nil {
		if cats, ok := s.cats.Get(categoriesCacheKey); ok {
			return cloneCategories(cats), nil
		}
	}

	cats, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	if len(cats) == 0 {
		cats, err = s.seedCategories(ctx)
		if err != nil {
			return nil, err
		}
	}

	if s.cats != nil {
		s.cats.Set(categoriesCacheKey, cloneCategories(cats))
	}
	return cats, nil
}

// seedCategories inserts the defaults unless a concurrent caller already did.
func (s *Service) seedCategories(ctx context.Context) ([]core.Category, error) {
	var seeded []core.Category
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx Store) error {
		existing, err := tx.ListCategories(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			seeded = existing
			return nil
		}
		defaults := core.DefaultCategories()
		for i := range defaults {
			defaults[i].ID = uuid.NewString()
		}
		if err := tx.InsertCategories(ctx, defaults); err != nil {
			return err
		}
		seeded = defaults
		s.logger.InfoContext(ctx, "Seeded default categories",
			log.FieldOperation, log.OpSeed, "count", len(defaults))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("seed categories: %w", err)
	}
	return seeded, nil
}

func cloneCategories(in []core.Category) []core.Category {
	out := make([]core.Category, len(in))
	copy(out, in)
	return out
}
