package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/fjod/go_restaurant/internal/domain"
)

const (
	DefaultRestaurantName = "Paul's Restaurant"
	DefaultPrimaryColor   = "#8D4E00"
	AdminUsername         = "admin"
	AdminEmail            = "admin@paulsrestaurant.com"
)

// Catalog groups the repositories that Seed fills.
type Catalog interface {
	UserRepository
	MenuRepository
	SettingsRepository
	LocationRepository
}

// Seed installs the admin account, starter menu, settings and locations.
// It is a no-op on a catalog that already has categories.
func Seed(ctx context.Context, c Catalog, adminPasswordHash string) error {
	if _, err := c.GetUserByUsername(ctx, AdminUsername); errors.Is(err, ErrUserNotFound) {
		if _, err := c.CreateUser(ctx, &domain.User{
			Username:     AdminUsername,
			PasswordHash: adminPasswordHash,
			Email:        AdminEmail,
			FullName:     "Admin User",
			Role:         domain.RoleAdmin,
		}); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("look up admin: %w", err)
	}

	existing, err := c.ListCategories(ctx)
	if err != nil {
		return fmt.Errorf("list categories: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	ids := make(map[string]int64)
	for _, name := range []string{"Starters", "Main Courses", "Desserts", "Drinks"} {
		cat, err := c.CreateCategory(ctx, &domain.Category{Name: name})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", name, err)
		}
		ids[name] = cat.ID
	}

	items := []domain.MenuItem{
		{Name: "Grilled Salmon", Description: "Fresh Atlantic salmon with asparagus and lemon butter", Price: domain.MustPrice("24.99")},
		{Name: "Pasta Pomodoro", Description: "Homemade pasta with cherry tomatoes, basil and parmesan", Price: domain.MustPrice("18.50")},
		{Name: "Filet Mignon", Description: "Premium cut steak with roasted vegetables and red wine sauce", Price: domain.MustPrice("32.99")},
	}
	for _, it := range items {
		it.CategoryID = ids["Main Courses"]
		it.Available = true
		if _, err := c.CreateMenuItem(ctx, &it); err != nil {
			return fmt.Errorf("seed menu item %q: %w", it.Name, err)
		}
	}

	if _, err := c.UpdateSettings(ctx, func(s *domain.Settings) error {
		s.Name = DefaultRestaurantName
		color, logo := DefaultPrimaryColor, ""
		s.PrimaryColor = &color
		s.LogoURL = &logo
		s.ThemeSettings = []byte(`{}`)
		return nil
	}); err != nil {
		return fmt.Errorf("seed settings: %w", err)
	}

	locations := []domain.Location{
		{Name: "Downtown", Address: "123 Main Street, City Center", Phone: "(123) 456-7890", OpeningHours: "11:00 AM - 10:00 PM"},
		{Name: "Uptown", Address: "456 Park Avenue, Uptown District", Phone: "(123) 456-7891", OpeningHours: "11:00 AM - 11:00 PM"},
	}
	for _, l := range locations {
		if _, err := c.CreateLocation(ctx, &l); err != nil {
			return fmt.Errorf("seed location %q: %w", l.Name, err)
		}
	}
	return nil
}
