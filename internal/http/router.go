package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	SessionCookie      string
	CartCookie         string
	SecureCookies      bool
	UploadsDir         string
	UploadsPrefix      string
}

type Handlers struct {
	Auth         *AuthHandler
	Menu         *MenuHandler
	Orders       *OrdersHandler
	Reservations *ReservationsHandler
	Cart         *CartHandler
	PayPal       *PayPalHandler
	WS           *WSHandler
}

// NewRouter wires every route. /ws is kept outside the timeout and compression
// middleware because it holds the connection open.
func NewRouter(cfg RouterConfig, authn Authenticator, h Handlers, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(SessionAuth(authn, cfg.SessionCookie, log))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Method(http.MethodGet, "/ws", h.WS)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(middleware.Compress(5))

		r.Handle(cfg.UploadsPrefix+"*", http.StripPrefix(cfg.UploadsPrefix, http.FileServer(http.Dir(cfg.UploadsDir))))

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))

			r.Route("/api", func(r chi.Router) {
				r.Route("/auth", func(r chi.Router) {
					r.Post("/register", h.Auth.Register)
					r.Post("/login", h.Auth.Login)
					r.Post("/logout", h.Auth.Logout)
					r.Get("/status", h.Auth.Status)
				})

				r.Route("/categories", func(r chi.Router) {
					r.Get("/", h.Menu.ListCategories)
					r.Post("/", h.Menu.CreateCategory)
					r.Get("/{id}", h.Menu.GetCategory)
					r.Put("/{id}", h.Menu.UpdateCategory)
					r.Delete("/{id}", h.Menu.DeleteCategory)
					r.Get("/{id}/menu-items", h.Menu.ListCategoryItems)
				})

				r.Route("/menu-items", func(r chi.Router) {
					r.Get("/", h.Menu.ListMenuItems)
					r.Post("/", h.Menu.CreateMenuItem)
					r.Get("/{id}", h.Menu.GetMenuItem)
					r.Put("/{id}", h.Menu.UpdateMenuItem)
					r.Delete("/{id}", h.Menu.DeleteMenuItem)
				})

				r.Route("/orders", func(r chi.Router) {
					r.Get("/", h.Orders.ListOrders)
					r.Post("/", h.Orders.CreateOrder)
					r.Get("/active", h.Orders.ListActiveOrders)
					r.Get("/{id}", h.Orders.GetOrder)
					r.Put("/{id}", h.Orders.UpdateOrder)
				})

				r.Route("/reservations", func(r chi.Router) {
					r.Get("/", h.Reservations.ListReservations)
					r.Post("/", h.Reservations.CreateReservation)
					r.Get("/active", h.Reservations.ListActiveReservations)
					r.Get("/{id}", h.Reservations.GetReservation)
					r.Put("/{id}", h.Reservations.UpdateReservation)
				})

				r.Get("/settings", h.Menu.GetSettings)
				r.Put("/settings", h.Menu.UpdateSettings)

				r.Route("/locations", func(r chi.Router) {
					r.Get("/", h.Menu.ListLocations)
					r.Post("/", h.Menu.CreateLocation)
					r.Get("/{id}", h.Menu.GetLocation)
					r.Put("/{id}", h.Menu.UpdateLocation)
					r.Delete("/{id}", h.Menu.DeleteLocation)
				})

				r.Route("/cart", func(r chi.Router) {
					r.Use(CartSession(cfg.CartCookie, cfg.SecureCookies))
					r.Get("/", h.Cart.GetCart)
					r.Delete("/", h.Cart.Clear)
					r.Post("/items", h.Cart.AddItem)
					r.Put("/items/{menuItemId}", h.Cart.UpdateItem)
					r.Delete("/items/{menuItemId}", h.Cart.RemoveItem)
					r.Put("/delivery", h.Cart.SetDeliveryMethod)
					r.Put("/payment", h.Cart.SetPaymentMethod)
					r.Put("/address", h.Cart.SetDeliveryAddress)
					r.Post("/checkout", h.Cart.Checkout)
				})
			})

			r.Route("/paypal", func(r chi.Router) {
				r.Get("/setup", h.PayPal.Setup)
				r.Post("/order", h.PayPal.CreateOrder)
				r.Post("/order/{id}/capture", h.PayPal.CaptureOrder)
			})
		})
	})

	return otelhttp.NewHandler(r, "restaurant")
}
