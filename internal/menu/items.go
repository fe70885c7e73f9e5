package menu

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type ItemInput struct {
	Name        string
	Description string
	Price       decimal.Decimal
	ImageURL    *string
	CategoryID  int64
	Available   bool
}

// ItemPatch holds the fields to change; nil leaves the current value.
type ItemPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	ImageURL    *string
	CategoryID  *int64
	Available   *bool
}

type DeletedItem struct {
	ID int64 `json:"id"`
}

func (s *Service) ListMenuItems(ctx context.Context) ([]*domain.MenuItem, error) {
	v, err, _ := s.sfg.Do("menu-items", func() (any, error) {
		return s.menu.ListMenuItems(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.MenuItem), nil
}

func (s *Service) ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]*domain.MenuItem, error) {
	v, err, _ := s.sfg.Do("category-items:"+strconv.FormatInt(categoryID, 10), func() (any, error) {
		return s.menu.ListMenuItemsByCategory(ctx, categoryID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]*domain.MenuItem), nil
}

func (s *Service) GetMenuItem(ctx context.Context, itemID int64) (*domain.MenuItem, error) {
	return s.menu.GetMenuItem(ctx, itemID)
}

func (s *Service) validateItem(ctx context.Context, m *domain.MenuItem) error {
	v := &domain.ValidationError{}
	if strings.TrimSpace(m.Name) == "" {
		v.Add("name", "name is required")
	}
	if strings.TrimSpace(m.Description) == "" {
		v.Add("description", "description is required")
	}
	if m.Price.IsNegative() {
		v.Add("price", "price must not be negative")
	}
	if m.CategoryID <= 0 {
		v.Add("categoryId", "category is required")
	} else if _, err := s.menu.GetCategory(ctx, m.CategoryID); err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("look up category: %w", err)
		}
		v.Add("categoryId", "category does not exist")
	}
	return v.OrNil()
}

func (s *Service) CreateMenuItem(ctx context.Context, in ItemInput, id *domain.Identity) (*domain.MenuItem, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	m := &domain.MenuItem{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Price:       domain.Money(in.Price),
		ImageURL:    in.ImageURL,
		CategoryID:  in.CategoryID,
		Available:   in.Available,
	}
	if err := s.validateItem(ctx, m); err != nil {
		return nil, err
	}

	created, err := s.menu.CreateMenuItem(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("create menu item: %w", err)
	}
	logger.Info(ctx, s.log, "menu item created", zap.Int64("menu_item_id", created.ID))
	s.publisher.Publish(ctx, domain.NewEvent(domain.EventMenuItemCreated, created))
	return created, nil
}

func (s *Service) UpdateMenuItem(ctx context.Context, itemID int64, p ItemPatch, id *domain.Identity) (*domain.MenuItem, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	m, err := s.menu.GetMenuItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	p.apply(m)
	if err := s.validateItem(ctx, m); err != nil {
		return nil, err
	}

	updated, err := s.menu.UpdateMenuItem(ctx, m)
	if err != nil {
		return nil, fmt.Errorf("update menu item %d: %w", itemID, err)
	}
	logger.Info(ctx, s.log, "menu item updated", zap.Int64("menu_item_id", updated.ID))
	s.publisher.Publish(ctx, domain.NewEvent(domain.EventMenuItemUpdated, updated))
	return updated, nil
}

func (p ItemPatch) apply(m *domain.MenuItem) {
	if p.Name != nil {
		m.Name = strings.TrimSpace(*p.Name)
	}
	if p.Description != nil {
		m.Description = strings.TrimSpace(*p.Description)
	}
	if p.Price != nil {
		m.Price = domain.Money(*p.Price)
	}
	if p.ImageURL != nil {
		m.ImageURL = p.ImageURL
	}
	if p.CategoryID != nil {
		m.CategoryID = *p.CategoryID
	}
	if p.Available != nil {
		m.Available = *p.Available
	}
}

// DeleteMenuItem removes the item. Orders keep their own price snapshot of it.
func (s *Service) DeleteMenuItem(ctx context.Context, itemID int64, id *domain.Identity) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	if err := s.menu.DeleteMenuItem(ctx, itemID); err != nil {
		return err
	}
	logger.Info(ctx, s.log, "menu item deleted", zap.Int64("menu_item_id", itemID))
	s.publisher.Publish(ctx, domain.NewEvent(domain.EventMenuItemDeleted, DeletedItem{ID: itemID}))
	return nil
}
