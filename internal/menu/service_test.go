package menu

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	admin    = &domain.Identity{UserID: 1, Role: domain.RoleAdmin}
	customer = &domain.Identity{UserID: 2, Role: domain.RoleCustomer}
)

type recordingPublisher struct {
	events []domain.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev domain.Event) {
	p.events = append(p.events, ev)
}

func setup(t *testing.T) (*Service, *recordingPublisher, *domain.Category) {
	t.Helper()
	s := store.NewMemoryStore()
	pub := &recordingPublisher{}
	svc := NewService(s, s, s, pub, zaptest.NewLogger(t))

	cat, err := svc.CreateCategory(context.Background(), "Main Courses", admin)
	require.NoError(t, err)
	return svc, pub, cat
}

func ptr[T any](v T) *T { return &v }

func TestCategories(t *testing.T) {
	svc, _, cat := setup(t)
	ctx := context.Background()

	_, err := svc.CreateCategory(ctx, "Main Courses", admin)
	v, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Contains(t, v.Fields, "name")

	_, err = svc.CreateCategory(ctx, "  ", admin)
	_, ok = domain.AsValidationError(err)
	assert.True(t, ok)

	_, err = svc.CreateCategory(ctx, "Drinks", customer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = svc.CreateCategory(ctx, "Drinks", nil)
	assert.ErrorIs(t, err, domain.ErrAuthenticationRequired)

	renamed, err := svc.UpdateCategory(ctx, cat.ID, "Mains", admin)
	require.NoError(t, err)
	assert.Equal(t, "Mains", renamed.Name)

	list, err := svc.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, svc.DeleteCategory(ctx, cat.ID, admin))
	assert.ErrorIs(t, svc.DeleteCategory(ctx, cat.ID, admin), domain.ErrNotFound)
}

func TestMenuItemLifecyclePublishesEvents(t *testing.T) {
	svc, pub, cat := setup(t)
	ctx := context.Background()

	item, err := svc.CreateMenuItem(ctx, ItemInput{
		Name: "Grilled Salmon", Description: "Fresh", Price: domain.MustPrice("24.99"),
		CategoryID: cat.ID, Available: true,
	}, admin)
	require.NoError(t, err)

	updated, err := svc.UpdateMenuItem(ctx, item.ID, ItemPatch{Price: ptr(domain.MustPrice("26.50")), Available: ptr(false)}, admin)
	require.NoError(t, err)
	assert.Equal(t, "26.50", updated.Price.StringFixed(2))
	assert.False(t, updated.Available)
	assert.Equal(t, "Grilled Salmon", updated.Name)

	require.NoError(t, svc.DeleteMenuItem(ctx, item.ID, admin))

	require.Len(t, pub.events, 3)
	assert.Equal(t, domain.EventMenuItemCreated, pub.events[0].Type)
	assert.Equal(t, domain.EventMenuItemUpdated, pub.events[1].Type)
	assert.Equal(t, domain.EventMenuItemDeleted, pub.events[2].Type)

	payload, err := json.Marshal(pub.events[2])
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"menu-item-deleted","data":{"id":1}}`, string(payload))
}

func TestMenuItemValidation(t *testing.T) {
	svc, pub, _ := setup(t)
	ctx := context.Background()

	_, err := svc.CreateMenuItem(ctx, ItemInput{Price: domain.MustPrice("-1"), CategoryID: 99}, admin)
	v, ok := domain.AsValidationError(err)
	require.True(t, ok)
	for _, f := range []string{"name", "description", "price", "categoryId"} {
		assert.Contains(t, v.Fields, f)
	}

	_, err = svc.CreateMenuItem(ctx, ItemInput{Name: "x", Description: "y", CategoryID: 1}, customer)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = svc.UpdateMenuItem(ctx, 404, ItemPatch{}, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteMenuItem(ctx, 404, admin), domain.ErrNotFound)
	assert.Empty(t, pub.events)
}

func TestListMenuItemsByCategory(t *testing.T) {
	svc, _, cat := setup(t)
	ctx := context.Background()
	drinks, err := svc.CreateCategory(ctx, "Drinks", admin)
	require.NoError(t, err)

	for _, in := range []ItemInput{
		{Name: "Pasta", Description: "d", Price: domain.MustPrice("18.50"), CategoryID: cat.ID, Available: true},
		{Name: "Lemonade", Description: "d", Price: domain.MustPrice("3.00"), CategoryID: drinks.ID, Available: true},
	} {
		_, err := svc.CreateMenuItem(ctx, in, admin)
		require.NoError(t, err)
	}

	all, err := svc.ListMenuItems(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := svc.ListMenuItemsByCategory(ctx, drinks.ID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Lemonade", got[0].Name)

	none, err := svc.ListMenuItemsByCategory(ctx, 77)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestSettings(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	st, err := svc.GetSettings(ctx)
	require.NoError(t, err)
	assert.Equal(t, store.DefaultRestaurantName, st.Name)

	updated, err := svc.UpdateSettings(ctx, SettingsPatch{
		Name:          ptr("Paul's Bistro"),
		PrimaryColor:  ptr("#000000"),
		ThemeSettings: json.RawMessage(`{"dark":true}`),
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, "Paul's Bistro", updated.Name)
	assert.JSONEq(t, `{"dark":true}`, string(updated.ThemeSettings))

	_, err = svc.UpdateSettings(ctx, SettingsPatch{ThemeSettings: json.RawMessage(`{bad`)}, admin)
	_, ok := domain.AsValidationError(err)
	assert.True(t, ok)

	_, err = svc.UpdateSettings(ctx, SettingsPatch{Name: ptr("")}, admin)
	_, ok = domain.AsValidationError(err)
	assert.True(t, ok)

	_, err = svc.UpdateSettings(ctx, SettingsPatch{}, customer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestLocations(t *testing.T) {
	svc, _, _ := setup(t)
	ctx := context.Background()

	in := LocationInput{Name: "Downtown", Address: "123 Main St", Phone: "555-1234", OpeningHours: "9-5"}
	l, err := svc.CreateLocation(ctx, in, admin)
	require.NoError(t, err)

	in.Name = "Downtown East"
	updated, err := svc.UpdateLocation(ctx, l.ID, in, admin)
	require.NoError(t, err)
	assert.Equal(t, "Downtown East", updated.Name)

	_, err = svc.CreateLocation(ctx, LocationInput{Name: "Nowhere"}, admin)
	v, ok := domain.AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, v.Fields, 3)

	_, err = svc.CreateLocation(ctx, in, customer)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, svc.DeleteLocation(ctx, l.ID, admin))
	_, err = svc.GetLocation(ctx, l.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
