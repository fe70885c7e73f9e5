package http

import (
	"net/http"

	"github.com/fjod/go_restaurant/internal/auth"
	"github.com/fjod/go_restaurant/internal/logger"
	"github.com/fjod/go_restaurant/internal/notify"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler upgrades dashboard connections and hands them to the hub.
type WSHandler struct {
	hub       *notify.Hub
	opts      notify.Options
	adminOnly bool
	upgrader  websocket.Upgrader
	log       *zap.Logger
}

func NewWSHandler(hub *notify.Hub, opts notify.Options, adminOnly bool, log *zap.Logger) *WSHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &WSHandler{
		hub:       hub,
		opts:      opts,
		adminOnly: adminOnly,
		log:       log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// GET /ws
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := auth.IdentityFrom(r.Context())
	if id == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "authentication required")
		return
	}
	if h.adminOnly && !id.IsAdmin() {
		respondError(w, http.StatusForbidden, "forbidden", "admin role required")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the error response.
		logger.Warn(r.Context(), h.log, "websocket upgrade failed", zap.Error(err))
		return
	}
	logger.Debug(r.Context(), h.log, "websocket connected", zap.Int64("user_id", id.UserID))
	h.hub.Serve(conn, h.opts)
}
