// Package menu manages the catalog (categories and menu items) and the restaurant's
// settings and locations. Item changes are announced on the notification bus.
package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/notify"
	"github.com/fjod/go_restaurant/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	menu      store.MenuRepository
	settings  store.SettingsRepository
	locations store.LocationRepository
	publisher notify.Publisher
	sfg       singleflight.Group // coalesces concurrent list reads
	log       *zap.Logger
}

func NewService(menu store.MenuRepository, settings store.SettingsRepository, locations store.LocationRepository,
	publisher notify.Publisher, log *zap.Logger) *Service {
	if publisher == nil {
		publisher = notify.Discard{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{menu: menu, settings: settings, locations: locations, publisher: publisher, log: log}
}

func requireAdmin(id *domain.Identity) error {
	if id == nil {
		return domain.ErrAuthenticationRequired
	}
	if !id.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

func (s *Service) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	v, err, _ := s.sfg.Do("categories", func() (any, error) {
		return s.menu.ListCategories(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.Category), nil
}

func (s *Service) GetCategory(ctx context.Context, categoryID int64) (*domain.Category, error) {
	return s.menu.GetCategory(ctx, categoryID)
}

func validCategoryName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", domain.NewValidationError("name", "name is required")
	}
	return name, nil
}

func categoryErr(err error) error {
	if errors.Is(err, store.ErrCategoryExists) {
		return domain.NewValidationError("name", "category already exists")
	}
	return err
}

func (s *Service) CreateCategory(ctx context.Context, name string, id *domain.Identity) (*domain.Category, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	name, err := validCategoryName(name)
	if err != nil {
		return nil, err
	}
	c, err := s.menu.CreateCategory(ctx, &domain.Category{Name: name})
	if err != nil {
		return nil, categoryErr(err)
	}
	s.log.Info("category created", zap.Int64("category_id", c.ID))
	return c, nil
}

func (s *Service) UpdateCategory(ctx context.Context, categoryID int64, name string, id *domain.Identity) (*domain.Category, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	name, err := validCategoryName(name)
	if err != nil {
		return nil, err
	}
	c, err := s.menu.UpdateCategory(ctx, &domain.Category{ID: categoryID, Name: name})
	if err != nil {
		return nil, categoryErr(err)
	}
	return c, nil
}

func (s *Service) DeleteCategory(ctx context.Context, categoryID int64, id *domain.Identity) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if err := s.menu.DeleteCategory(ctx, categoryID); err != nil {
		return fmt.Errorf("delete category %d: %w", categoryID, err)
	}
	s.log.Info("category deleted", zap.Int64("category_id", categoryID))
	return nil
}
