package store

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fjod/go_restaurant/internal/domain"
)

// MemoryStore implements every repository with process-local maps.
// Ids come from per-entity counters that only ever increase.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[int64]*domain.User
	categories   map[int64]*domain.Category
	menuItems    map[int64]*domain.MenuItem
	orders       map[int64]*domain.Order
	reservations map[int64]*domain.Reservation
	locations    map[int64]*domain.Location
	settings     *domain.Settings

	nextUser, nextCategory, nextMenuItem int64
	nextOrder, nextOrderLine             int64
	nextReservation, nextLocation        int64

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]*domain.User),
		categories:   make(map[int64]*domain.Category),
		menuItems:    make(map[int64]*domain.MenuItem),
		orders:       make(map[int64]*domain.Order),
		reservations: make(map[int64]*domain.Reservation),
		locations:    make(map[int64]*domain.Location),
		settings:     &domain.Settings{ID: 1, Name: DefaultRestaurantName},
		now:          time.Now,
	}
}

// --- users ---

func (s *MemoryStore) CreateUser(_ context.Context, u *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Username == u.Username {
			return nil, ErrUsernameTaken
		}
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, ErrEmailTaken
		}
	}

	s.nextUser++
	created := *u
	created.ID = s.nextUser
	created.Phone = cloneString(u.Phone)
	s.users[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStore) GetUser(_ context.Context, id int64) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	out := *u
	return &out, nil
}

func (s *MemoryStore) GetUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, ErrUserNotFound
}

// --- categories ---

func (s *MemoryStore) ListCategories(_ context.Context) ([]*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Category, 0, len(s.categories))
	for _, c := range s.categories {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetCategory(_ context.Context, id int64) (*domain.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.categories[id]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	out := *c
	return &out, nil
}

func (s *MemoryStore) CreateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.categoryNameTaken(c.Name, 0) {
		return nil, ErrCategoryExists
	}
	s.nextCategory++
	created := domain.Category{ID: s.nextCategory, Name: c.Name}
	s.categories[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStore) UpdateCategory(_ context.Context, c *domain.Category) (*domain.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.categories[c.ID]
	if !ok {
		return nil, ErrCategoryNotFound
	}
	if s.categoryNameTaken(c.Name, c.ID) {
		return nil, ErrCategoryExists
	}
	existing.Name = c.Name

	out := *existing
	return &out, nil
}

func (s *MemoryStore) DeleteCategory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.categories[id]; !ok {
		return ErrCategoryNotFound
	}
	delete(s.categories, id)
	return nil
}

func (s *MemoryStore) categoryNameTaken(name string, exceptID int64) bool {
	for id, c := range s.categories {
		if id != exceptID && strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

// --- menu items ---

func (s *MemoryStore) ListMenuItems(_ context.Context) ([]*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterMenuItems(func(*domain.MenuItem) bool { return true }), nil
}

func (s *MemoryStore) ListMenuItemsByCategory(_ context.Context, categoryID int64) ([]*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.filterMenuItems(func(m *domain.MenuItem) bool { return m.CategoryID == categoryID }), nil
}

func (s *MemoryStore) GetMenuItem(_ context.Context, id int64) (*domain.MenuItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.menuItems[id]
	if !ok {
		return nil, ErrMenuItemNotFound
	}
	return cloneMenuItem(m), nil
}

func (s *MemoryStore) CreateMenuItem(_ context.Context, m *domain.MenuItem) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextMenuItem++
	created := cloneMenuItem(m)
	created.ID = s.nextMenuItem
	s.menuItems[created.ID] = created
	return cloneMenuItem(created), nil
}

func (s *MemoryStore) UpdateMenuItem(_ context.Context, m *domain.MenuItem) (*domain.MenuItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.menuItems[m.ID]; !ok {
		return nil, ErrMenuItemNotFound
	}
	s.menuItems[m.ID] = cloneMenuItem(m)
	return cloneMenuItem(m), nil
}

func (s *MemoryStore) DeleteMenuItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.menuItems[id]; !ok {
		return ErrMenuItemNotFound
	}
	delete(s.menuItems, id)
	return nil
}

func (s *MemoryStore) filterMenuItems(keep func(*domain.MenuItem) bool) []*domain.MenuItem {
	out := make([]*domain.MenuItem, 0)
	for _, m := range s.menuItems {
		if keep(m) {
			out = append(out, cloneMenuItem(m))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- orders ---

func (s *MemoryStore) CreateOrder(_ context.Context, o *domain.Order) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextOrder++
	created := cloneOrder(o)
	created.ID = s.nextOrder
	if created.CreatedAt.IsZero() {
		created.CreatedAt = s.now().UTC()
	}
	for i := range created.Items {
		s.nextOrderLine++
		created.Items[i].ID = s.nextOrderLine
		created.Items[i].OrderID = created.ID
	}
	s.orders[created.ID] = created
	return cloneOrder(created), nil
}

func (s *MemoryStore) GetOrder(_ context.Context, id int64) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return cloneOrder(o), nil
}

func (s *MemoryStore) ListOrders(_ context.Context) ([]*domain.Order, error) {
	return s.filterOrders(func(*domain.Order) bool { return true }), nil
}

func (s *MemoryStore) ListOrdersByUser(_ context.Context, userID int64) ([]*domain.Order, error) {
	return s.filterOrders(func(o *domain.Order) bool { return o.UserID == userID }), nil
}

func (s *MemoryStore) ListActiveOrders(_ context.Context) ([]*domain.Order, error) {
	return s.filterOrders((*domain.Order).Active), nil
}

func (s *MemoryStore) UpdateOrder(_ context.Context, id int64, fn UpdateFunc[domain.Order]) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	working := cloneOrder(existing)
	if err := fn(working); err != nil {
		return nil, err
	}
	// Identity, creation time, total and lines are fixed at submission.
	working.ID = existing.ID
	working.UserID = existing.UserID
	working.CreatedAt = existing.CreatedAt
	working.Total = existing.Total
	working.Items = cloneOrder(existing).Items

	s.orders[id] = working
	return cloneOrder(working), nil
}

func (s *MemoryStore) filterOrders(keep func(*domain.Order) bool) []*domain.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Order, 0)
	for _, o := range s.orders {
		if keep(o) {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- reservations ---

func (s *MemoryStore) CreateReservation(_ context.Context, r *domain.Reservation) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextReservation++
	created := cloneReservation(r)
	created.ID = s.nextReservation
	if created.Status == "" {
		created.Status = domain.ReservationStatusPending
	}
	s.reservations[created.ID] = created
	return cloneReservation(created), nil
}

func (s *MemoryStore) GetReservation(_ context.Context, id int64) (*domain.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	return cloneReservation(r), nil
}

func (s *MemoryStore) ListReservations(_ context.Context) ([]*domain.Reservation, error) {
	return s.filterReservations(func(*domain.Reservation) bool { return true }), nil
}

func (s *MemoryStore) ListReservationsByUser(_ context.Context, userID int64) ([]*domain.Reservation, error) {
	return s.filterReservations(func(r *domain.Reservation) bool { return r.UserID == userID }), nil
}

func (s *MemoryStore) ListActiveReservations(_ context.Context) ([]*domain.Reservation, error) {
	return s.filterReservations((*domain.Reservation).Active), nil
}

func (s *MemoryStore) UpdateReservation(_ context.Context, id int64, fn UpdateFunc[domain.Reservation]) (*domain.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.reservations[id]
	if !ok {
		return nil, ErrReservationNotFound
	}
	working := cloneReservation(existing)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = existing.ID
	working.UserID = existing.UserID

	s.reservations[id] = working
	return cloneReservation(working), nil
}

func (s *MemoryStore) filterReservations(keep func(*domain.Reservation) bool) []*domain.Reservation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Reservation, 0)
	for _, r := range s.reservations {
		if keep(r) {
			out = append(out, cloneReservation(r))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// --- settings ---

func (s *MemoryStore) GetSettings(_ context.Context) (*domain.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSettings(s.settings), nil
}

func (s *MemoryStore) UpdateSettings(_ context.Context, fn UpdateFunc[domain.Settings]) (*domain.Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	working := cloneSettings(s.settings)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.ID = s.settings.ID
	s.settings = working
	return cloneSettings(working), nil
}

// --- locations ---

func (s *MemoryStore) ListLocations(_ context.Context) ([]*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Location, 0, len(s.locations))
	for _, l := range s.locations {
		cp := *l
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) GetLocation(_ context.Context, id int64) (*domain.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locations[id]
	if !ok {
		return nil, ErrLocationNotFound
	}
	out := *l
	return &out, nil
}

func (s *MemoryStore) CreateLocation(_ context.Context, l *domain.Location) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextLocation++
	created := *l
	created.ID = s.nextLocation
	s.locations[created.ID] = &created

	out := created
	return &out, nil
}

func (s *MemoryStore) UpdateLocation(_ context.Context, l *domain.Location) (*domain.Location, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[l.ID]; !ok {
		return nil, ErrLocationNotFound
	}
	updated := *l
	s.locations[l.ID] = &updated

	out := updated
	return &out, nil
}

func (s *MemoryStore) DeleteLocation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.locations[id]; !ok {
		return ErrLocationNotFound
	}
	delete(s.locations, id)
	return nil
}

// --- copies ---

func cloneString(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneMenuItem(m *domain.MenuItem) *domain.MenuItem {
	out := *m
	out.ImageURL = cloneString(m.ImageURL)
	return &out
}

func cloneOrder(o *domain.Order) *domain.Order {
	out := *o
	out.DeliveryAddress = cloneString(o.DeliveryAddress)
	out.PaymentID = cloneString(o.PaymentID)
	out.Items = make([]domain.OrderLine, len(o.Items))
	copy(out.Items, o.Items)
	return &out
}

func cloneReservation(r *domain.Reservation) *domain.Reservation {
	out := *r
	out.SpecialRequests = cloneString(r.SpecialRequests)
	return &out
}

func cloneSettings(st *domain.Settings) *domain.Settings {
	out := *st
	out.LogoURL = cloneString(st.LogoURL)
	out.PrimaryColor = cloneString(st.PrimaryColor)
	out.ThemeSettings = bytes.Clone(st.ThemeSettings)
	return &out
}
