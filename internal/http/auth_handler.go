package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/domain"
)

type AuthService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Session, error)
	Login(ctx context.Context, username, password string) (*auth.Session, error)
	Logout(ctx context.Context, token string) error
	CurrentUser(ctx context.Context, id *domain.Identity) (*domain.User, error)
}

type CookieConfig struct {
	Name   string
	Secure bool
}

type AuthHandler struct {
	svc     AuthService
	cookie  CookieConfig
	timeout time.Duration
}

func NewAuthHandler(svc AuthService, cookie CookieConfig, timeout time.Duration) *AuthHandler {
	return &AuthHandler{svc: svc, cookie: cookie, timeout: timeout}
}

type RegisterRequestDTO struct {
	Username string  `json:"username" validate:"required,min=3"`
	Password string  `json:"password" validate:"required,min=6"`
	Email    string  `json:"email" validate:"required,email"`
	FullName string  `json:"fullName" validate:"required"`
	Phone    *string `json:"phone"`
}

type LoginRequestDTO struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AuthStatusDTO struct {
	Authenticated bool         `json:"authenticated"`
	User          *domain.User `json:"user,omitempty"`
}

// POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req RegisterRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	sess, err := h.svc.Register(ctx, auth.RegisterInput{
		Username: req.Username,
		Password: req.Password,
		Email:    req.Email,
		FullName: req.FullName,
		Phone:    req.Phone,
	})
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setSession(w, sess)
	respondJSON(w, http.StatusCreated, sess.User)
}

// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req LoginRequestDTO
	if err := decodeJSON(r, &req); err != nil {
		handleServiceError(w, r, err)
		return
	}

	sess, err := h.svc.Login(ctx, req.Username, req.Password)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	h.setSession(w, sess)
	respondJSON(w, http.StatusOK, sess.User)
}

// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if c, err := r.Cookie(h.cookie.Name); err == nil {
		if err := h.svc.Logout(ctx, c.Value); err != nil {
			handleServiceError(w, r, err)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	respondJSON(w, http.StatusOK, MessageResponse{Message: "logged out"})
}

// GET /api/auth/status
func (h *AuthHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	id := auth.IdentityFrom(r.Context())
	if id == nil {
		respondJSON(w, http.StatusOK, AuthStatusDTO{Authenticated: false})
		return
	}

	u, err := h.svc.CurrentUser(ctx, id)
	if err != nil {
		// The account behind a still-valid token is gone.
		if domain.IsNotFound(err) {
			respondJSON(w, http.StatusOK, AuthStatusDTO{Authenticated: false})
			return
		}
		handleServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, AuthStatusDTO{Authenticated: true, User: u})
}

func (h *AuthHandler) setSession(w http.ResponseWriter, sess *auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
