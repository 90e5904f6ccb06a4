package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/ikkim/storefront-backend/internal/middleware"
	ws "github.com/ikkim/storefront-backend/internal/websocket"
)

type LiveFeedController struct {
	hub      *ws.Hub
	upgrader websocket.Upgrader
}

// NewLiveFeedController accepts upgrades from allowedOrigins only. Requests
// without an Origin header (non-browser clients) are allowed.
func NewLiveFeedController(hub *ws.Hub, allowedOrigins []string) *LiveFeedController {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[o] = true
	}
	return &LiveFeedController{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origins[origin]
			},
		},
	}
}

// Connect upgrades an admin session to the live feed. The token is read
// from the query string by the auth middleware and is never logged.
// GET /api/v1/admin/ws?token=
func (ctrl *LiveFeedController) Connect(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	userID, ok := requireUser(c)
	if !ok {
		return
	}

	conn, err := ctrl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error("Failed to upgrade to WebSocket", err)
		return
	}

	ws.Serve(ctrl.hub, conn, userID)

	log.Info("Live feed connection established", map[string]interface{}{
		"user_id": userID,
	})
}
