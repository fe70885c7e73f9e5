package menu

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/fjod/go_restaurant/internal/domain"
)

type SettingsPatch struct {
	Name          *string
	LogoURL       *string
	PrimaryColor  *string
	ThemeSettings json.RawMessage
}

func (s *Service) GetSettings(ctx context.Context) (*domain.Settings, error) {
	return s.settings.GetSettings(ctx)
}

func (s *Service) UpdateSettings(ctx context.Context, p SettingsPatch, id *domain.Identity) (*domain.Settings, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	if len(p.ThemeSettings) > 0 && !json.Valid(p.ThemeSettings) {
		return nil, domain.NewValidationError("themeSettings", "must be valid JSON")
	}
	return s.settings.UpdateSettings(ctx, func(st *domain.Settings) error {
		if p.Name != nil {
			name := strings.TrimSpace(*p.Name)
			if name == "" {
				return domain.NewValidationError("name", "name must not be empty")
			}
			st.Name = name
		}
		if p.LogoURL != nil {
			st.LogoURL = p.LogoURL
		}
		if p.PrimaryColor != nil {
			st.PrimaryColor = p.PrimaryColor
		}
		if len(p.ThemeSettings) > 0 {
			st.ThemeSettings = p.ThemeSettings
		}
		return nil
	})
}

type LocationInput struct {
	Name         string
	Address      string
	Phone        string
	OpeningHours string
}

func (in LocationInput) location(id int64) (*domain.Location, error) {
	l := &domain.Location{
		ID:           id,
		Name:         strings.TrimSpace(in.Name),
		Address:      strings.TrimSpace(in.Address),
		Phone:        strings.TrimSpace(in.Phone),
		OpeningHours: strings.TrimSpace(in.OpeningHours),
	}
	v := &domain.ValidationError{}
	for field, value := range map[string]string{
		"name": l.Name, "address": l.Address, "phone": l.Phone, "openingHours": l.OpeningHours,
	} {
		if value == "" {
			v.Add(field, field+" is required")
		}
	}
	return l, v.OrNil()
}

func (s *Service) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	return s.locations.ListLocations(ctx)
}

func (s *Service) GetLocation(ctx context.Context, locationID int64) (*domain.Location, error) {
	return s.locations.GetLocation(ctx, locationID)
}

func (s *Service) CreateLocation(ctx context.Context, in LocationInput, id *domain.Identity) (*domain.Location, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	l, err := in.location(0)
	if err != nil {
		return nil, err
	}
	return s.locations.CreateLocation(ctx, l)
}

func (s *Service) UpdateLocation(ctx context.Context, locationID int64, in LocationInput, id *domain.Identity) (*domain.Location, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	l, err := in.location(locationID)
	if err != nil {
		return nil, err
	}
	return s.locations.UpdateLocation(ctx, l)
}

func (s *Service) DeleteLocation(ctx context.Context, locationID int64, id *domain.Identity) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	return s.locations.DeleteLocation(ctx, locationID)
}
