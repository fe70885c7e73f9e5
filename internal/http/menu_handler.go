package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/domain"
	"github.com/fjod/go_restaurant/internal/menu"
	"github.com/shopspring/decimal"
)

type MenuService interface {
	ListCategories(ctx context.Context) ([]*domain.Category, error)
	GetCategory(ctx context.Context, categoryID int64) (*domain.Category, error)
	CreateCategory(ctx context.Context, name string, id *domain.Identity) (*domain.Category, error)
	UpdateCategory(ctx context.Context, categoryID int64, name string, id *domain.Identity) (*domain.Category, error)
	DeleteCategory(ctx context.Context, categoryID int64, id *domain.Identity) error

	ListMenuItems(ctx context.Context) ([]*domain.MenuItem, error)
	ListMenuItemsByCategory(ctx context.Context, categoryID int64) ([]*domain.MenuItem, error)
	GetMenuItem(ctx context.Context, itemID int64) (*domain.MenuItem, error)
	CreateMenuItem(ctx context.Context, in menu.ItemInput, id *domain.Identity) (*domain.MenuItem, error)
	UpdateMenuItem(ctx context.Context, itemID int64, p menu.ItemPatch, id *domain.Identity) (*domain.MenuItem, error)
	DeleteMenuItem(ctx context.Context, itemID int64, id *domain.Identity) error

	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, p menu.SettingsPatch, id *domain.Identity) (*domain.Settings, error)

	ListLocations(ctx context.Context) ([]*domain.Location, error)
	GetLocation(ctx context.Context, locationID int64) (*domain.Location, error)
	CreateLocation(ctx context.Context, in menu.LocationInput, id *domain.Identity) (*domain.Location, error)
	UpdateLocation(ctx context.Context, locationID int64, in menu.LocationInput, id *domain.Identity) (*domain.Location, error)
	DeleteLocation(ctx context.Context, locationID int64, id *domain.Identity) error
}

// Uploader stores an uploaded image and returns the URL it is served from.
type Uploader interface {
	SaveImage(r io.Reader, field string) (string, error)
}

type MenuHandler struct {
	svc       MenuService
	uploads   Uploader
	maxUpload int64
	timeout   time.Duration
}

func NewMenuHandler(svc MenuService, uploads Uploader, maxUpload int64, timeout time.Duration) *MenuHandler {
	return &MenuHandler{svc: svc, uploads: uploads, maxUpload: maxUpload, timeout: timeout}
}

type CategoryRequestDTO struct {
	Name string `json:"name" validate:"required"`
}

type MenuItemRequestDTO struct {
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	CategoryID  *int64           `json:"categoryId" validate:"omitempty,gt=0"`
	Available   *bool            `json:"available"`
	ImageURL    *string          `json:"imageUrl"`
}

type SettingsRequestDTO struct {
	Name          *string         `json:"name"`
	LogoURL       *string         `json:"logoUrl"`
	PrimaryColor  *string         `json:"primaryColor"`
	ThemeSettings json.RawMessage `json:"themeSettings"`
}

type LocationRequestDTO struct {
	Name         string `json:"name" validate:"required"`
	Address      string `json:"address" validate:"required"`
	Phone        string `json:"phone" validate:"required"`
	OpeningHours string `json:"openingHours" validate:"required"`
}

// --- categories ---

// GET /api/categories
func (h *MenuHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.ListCategories(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/categories/{id}
func (h *MenuHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categoryID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "category id must be a positive integer")
		return
	}
	c, err := h.svc.GetCategory(ctx, categoryID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// POST /api/categories
func (h *MenuHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req CategoryRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, err := h.svc.CreateCategory(ctx, req.Name, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// PUT /api/categories/{id}
func (h *MenuHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categoryID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "category id must be a positive integer")
		return
	}
	var req CategoryRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	c, err := h.svc.UpdateCategory(ctx, categoryID, req.Name, auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DELETE /api/categories/{id}
func (h *MenuHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categoryID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "category id must be a positive integer")
		return
	}
	if err := h.svc.DeleteCategory(ctx, categoryID, auth.IdentityFrom(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "category deleted"})
}

// GET /api/categories/{id}/menu-items
func (h *MenuHandler) ListCategoryItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	categoryID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_category_id", "category id must be a positive integer")
		return
	}
	items, err := h.svc.ListMenuItemsByCategory(ctx, categoryID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// --- menu items ---

// GET /api/menu-items
func (h *MenuHandler) ListMenuItems(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	items, err := h.svc.ListMenuItems(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// GET /api/menu-items/{id}
func (h *MenuHandler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu item id must be a positive integer")
		return
	}
	item, err := h.svc.GetMenuItem(ctx, itemID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// POST /api/menu-items (JSON or multipart with an "image" file)
func (h *MenuHandler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := auth.IdentityFrom(r.Context())
	if !id.IsAdmin() {
		handleServiceError(w, r, adminError(id))
		return
	}
	req, err := h.readMenuItem(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	v := &domain.ValidationError{}
	if req.Name == nil {
		v.Add("name", "name is required")
	}
	if req.Description == nil {
		v.Add("description", "description is required")
	}
	if req.Price == nil {
		v.Add("price", "price is required")
	}
	if req.CategoryID == nil {
		v.Add("categoryId", "categoryId is required")
	}
	if err := v.OrNil(); err != nil {
		handleServiceError(w, r, err)
		return
	}

	in := menu.ItemInput{
		Name:        *req.Name,
		Description: *req.Description,
		Price:       *req.Price,
		CategoryID:  *req.CategoryID,
		ImageURL:    req.ImageURL,
		Available:   req.Available == nil || *req.Available,
	}
	item, err := h.svc.CreateMenuItem(ctx, in, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// PUT /api/menu-items/{id} (JSON or multipart with an "image" file)
func (h *MenuHandler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu item id must be a positive integer")
		return
	}
	id := auth.IdentityFrom(r.Context())
	if !id.IsAdmin() {
		handleServiceError(w, r, adminError(id))
		return
	}
	req, err := h.readMenuItem(r)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	item, err := h.svc.UpdateMenuItem(ctx, itemID, menu.ItemPatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		Available:   req.Available,
	}, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DELETE /api/menu-items/{id}
func (h *MenuHandler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	itemID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_menu_item_id", "menu item id must be a positive integer")
		return
	}
	if err := h.svc.DeleteMenuItem(ctx, itemID, auth.IdentityFrom(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "menu item deleted"})
}

// --- settings ---

// GET /api/settings
func (h *MenuHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	s, err := h.svc.GetSettings(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// PUT /api/settings (JSON or multipart with a "logo" file)
func (h *MenuHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := auth.IdentityFrom(r.Context())
	if !id.IsAdmin() {
		handleServiceError(w, r, adminError(id))
		return
	}

	var req SettingsRequestDTO
	if isMultipart(r) {
		if err := r.ParseMultipartForm(h.maxUpload); err != nil {
			handleServiceError(w, r, domain.NewValidationError("body", "invalid multipart form"))
			return
		}
		req.Name = formValue(r, "name")
		req.PrimaryColor = formValue(r, "primaryColor")
		if theme := formValue(r, "themeSettings"); theme != nil {
			req.ThemeSettings = json.RawMessage(*theme)
		}
		url, err := h.saveUpload(r, "logo")
		if err != nil {
			handleServiceError(w, r, err)
			return
		}
		req.LogoURL = url
	} else if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	s, err := h.svc.UpdateSettings(ctx, menu.SettingsPatch{
		Name:          req.Name,
		LogoURL:       req.LogoURL,
		PrimaryColor:  req.PrimaryColor,
		ThemeSettings: req.ThemeSettings,
	}, id)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, s)
}

// --- locations ---

// GET /api/locations
func (h *MenuHandler) ListLocations(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.ListLocations(ctx)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, list)
}

// GET /api/locations/{id}
func (h *MenuHandler) GetLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	locationID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_location_id", "location id must be a positive integer")
		return
	}
	l, err := h.svc.GetLocation(ctx, locationID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// POST /api/locations
func (h *MenuHandler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LocationRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	l, err := h.svc.CreateLocation(ctx, menu.LocationInput(req), auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, l)
}

// PUT /api/locations/{id}
func (h *MenuHandler) UpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	locationID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_location_id", "location id must be a positive integer")
		return
	}
	var req LocationRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}
	l, err := h.svc.UpdateLocation(ctx, locationID, menu.LocationInput(req), auth.IdentityFrom(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, l)
}

// DELETE /api/locations/{id}
func (h *MenuHandler) DeleteLocation(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	locationID, ok := pathID(r, "id")
	if !ok {
		respondError(w, http.StatusBadRequest, "invalid_location_id", "location id must be a positive integer")
		return
	}
	if err := h.svc.DeleteLocation(ctx, locationID, auth.IdentityFrom(r.Context())); err != nil {
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, MessageResponse{Message: "location deleted"})
}

// --- form helpers ---

// adminError is checked before touching uploads so anonymous callers cannot write files.
func adminError(id *domain.Identity) error {
	if id == nil {
		return domain.ErrAuthenticationRequired
	}
	return domain.ErrForbidden
}

func isMultipart(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "multipart/form-data"
}

// formValue returns nil when the field was not sent at all.
func formValue(r *http.Request, name string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	vs, ok := r.MultipartForm.Value[name]
	if !ok || len(vs) == 0 {
		return nil
	}
	return &vs[0]
}

func (h *MenuHandler) saveUpload(r *http.Request, field string) (*string, error) {
	f, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.NewValidationError(field, "invalid file upload")
	}
	defer f.Close()

	url, err := h.uploads.SaveImage(f, field)
	if err != nil {
		return nil, err
	}
	return &url, nil
}

func (h *MenuHandler) readMenuItem(r *http.Request) (*MenuItemRequestDTO, error) {
	var req MenuItemRequestDTO
	if !isMultipart(r) {
		if err := decodeJSON(r, &req); err != nil {
			return nil, err
		}
		return &req, nil
	}

	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, domain.NewValidationError("body", "invalid multipart form")
	}
	v := &domain.ValidationError{}
	req.Name = formValue(r, "name")
	req.Description = formValue(r, "description")
	if s := formValue(r, "price"); s != nil {
		p, err := decimal.NewFromString(*s)
		if err != nil {
			v.Add("price", "price must be a number")
		}
		req.Price = &p
	}
	if s := formValue(r, "categoryId"); s != nil {
		cid, err := strconv.ParseInt(*s, 10, 64)
		if err != nil {
			v.Add("categoryId", "categoryId must be an integer")
		}
		req.CategoryID = &cid
	}
	if s := formValue(r, "available"); s != nil {
		avail := *s == "true"
		req.Available = &avail
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	url, err := h.saveUpload(r, "image")
	if err != nil {
		return nil, err
	}
	if url != nil {
		req.ImageURL = url
	}
	return &req, nil
}
