package service

import (
	"context"
	"fmt"

	"github.com/horyu/NiconiCompare-sub000/internal/adapters/repository"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/category"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/ledger"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/model"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/rating"
	"github.com/horyu/NiconiCompare-sub000/internal/domain/recent"
	"github.com/horyu/NiconiCompare-sub000/pkg/logger"
)

// GetCategories returns the normalized categories collection. Storage
// failures degrade to the default collection so reads never error out.
func (s *Service) GetCategories(ctx context.Context) model.Categories {
	snap, err := s.store.Get(ctx, repository.KeyCategories)
	if err != nil {
		s.logger.Warn(ctx, "categories unavailable, serving defaults", logger.Error(err))
		return category.Normalize(nil)
	}
	return category.Normalize(snap.Categories)
}

// CreateCategory validates the name and appends a new category to the end
// of the display order.
func (s *Service) CreateCategory(ctx context.Context, name string) (model.Category, error) {
	if err := category.ValidateName(name); err != nil {
		return model.Category{}, err
	}
	st, err := s.load(ctx)
	if err != nil {
		return model.Category{}, fmt.Errorf("loading state: %w", err)
	}

	c := category.New(name, s.nowMillis())
	st.categories.Items[c.ID] = c
	st.categories.Order = append(st.categories.Order, c.ID)
	st.categories = category.Normalize(&st.categories)

	if err := s.store.Set(ctx, repository.Changes{Categories: &st.categories}); err != nil {
		return model.Category{}, fmt.Errorf("persisting category: %w", err)
	}
	st.updateScaleGauges()
	s.logger.Info(ctx, "category created", logger.String("categoryID", c.ID))
	return c, nil
}

// RenameCategory changes a category's display name.
func (s *Service) RenameCategory(ctx context.Context, id, name string) error {
	if err := category.ValidateName(name); err != nil {
		return err
	}
	st, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	c, ok := st.categories.Items[id]
	if !ok {
		return category.ErrNotFound
	}
	c.Name = name
	st.categories.Items[id] = c

	if err := s.store.Set(ctx, repository.Changes{Categories: &st.categories}); err != nil {
		return fmt.Errorf("persisting rename: %w", err)
	}
	s.logger.Info(ctx, "category renamed", logger.String("categoryID", id))
	return nil
}

// DeleteCategory removes a non-default category. When moveTo is non-empty
// the category's events are reassigned there; otherwise they are dropped
// from the ledger outright. Rating tables are rebuilt for the survivors.
func (s *Service) DeleteCategory(ctx context.Context, id, moveTo string) error {
	if id == model.DefaultCategoryID {
		return category.ErrDeleteDefault
	}
	st, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if _, ok := st.categories.Items[id]; !ok {
		return category.ErrNotFound
	}
	if moveTo != "" {
		if moveTo == id {
			return category.ErrNotFound
		}
		if _, ok := st.categories.Items[moveTo]; !ok {
			return category.ErrNotFound
		}
		ledger.MoveCategory(&st.events, id, moveTo)
	} else {
		ledger.DropCategory(&st.events, id)
	}

	delete(st.categories.Items, id)
	st.categories = category.Normalize(&st.categories)
	if st.settings.ActiveCategoryID == id {
		if moveTo != "" {
			st.settings.ActiveCategoryID = moveTo
		} else {
			st.settings.ActiveCategoryID = st.categories.DefaultID
		}
	}

	st.ratings = rating.RebuildAll(st.events.Items, st.settings.Glicko)
	st.session.RecentWindow = recent.RebuildFromEvents(st.events.Items, st.settings.RecentWindowSize, st.videoExists)

	changes := repository.Changes{
		Categories: &st.categories,
		Settings:   &st.settings,
		Events:     &st.events,
		Ratings:    st.ratings,
		State:      &st.session,
	}
	if err := s.store.Set(ctx, changes); err != nil {
		return fmt.Errorf("persisting category delete: %w", err)
	}
	st.updateScaleGauges()
	s.logger.Info(ctx, "category deleted",
		logger.String("categoryID", id),
		logger.String("movedTo", moveTo),
	)
	return nil
}

// ReorderCategories replaces the display order. Unknown ids are pruned and
// missing categories re-appended by the normalizer.
func (s *Service) ReorderCategories(ctx context.Context, order []string) (model.Categories, error) {
	st, err := s.load(ctx)
	if err != nil {
		return model.Categories{}, fmt.Errorf("loading state: %w", err)
	}
	st.categories.Order = order
	st.categories = category.Normalize(&st.categories)

	if err := s.store.Set(ctx, repository.Changes{Categories: &st.categories}); err != nil {
		return model.Categories{}, fmt.Errorf("persisting reorder: %w", err)
	}
	return st.categories, nil
}

// SetOverlayVisible replaces the set of categories shown on the overlay.
func (s *Service) SetOverlayVisible(ctx context.Context, ids []string) (model.Categories, error) {
	st, err := s.load(ctx)
	if err != nil {
		return model.Categories{}, fmt.Errorf("loading state: %w", err)
	}
	st.categories.OverlayVisibleIDs = ids
	st.categories = category.Normalize(&st.categories)

	if err := s.store.Set(ctx, repository.Changes{Categories: &st.categories}); err != nil {
		return model.Categories{}, fmt.Errorf("persisting overlay visibility: %w", err)
	}
	return st.categories, nil
}

// SetActiveCategory switches which category new verdicts land in.
func (s *Service) SetActiveCategory(ctx context.Context, id string) error {
	st, err := s.load(ctx)
	if err != nil {
		return fmt.Errorf("loading state: %w", err)
	}
	if _, ok := st.categories.Items[id]; !ok {
		return category.ErrNotFound
	}
	st.settings.ActiveCategoryID = id

	if err := s.store.Set(ctx, repository.Changes{Settings: &st.settings}); err != nil {
		return fmt.Errorf("persisting active category: %w", err)
	}
	s.logger.Info(ctx, "active category switched", logger.String("categoryID", id))
	return nil
}
