package socket

import (
	"context"
	"net/http"
	"strings"

	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
)

// Authenticator resolves an access token to the member it was issued for.
type Authenticator interface {
	ValidateToken(token string) (*jwt.Token, error)
	ClaimsFromToken(token *jwt.Token) (*service.Claims, error)
	ResolveActor(ctx context.Context, claims *service.Claims) (service.Actor, error)
}

// Handler upgrades authenticated requests to WebSocket connections
type Handler struct {
	hub      *Hub
	auth     Authenticator
	upgrader websocket.Upgrader
}

// NewHandler creates a WebSocket handler. An empty allowedOrigins accepts
// every origin.
func NewHandler(hub *Hub, auth Authenticator, allowedOrigins []string) *Handler {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		origins[strings.TrimSpace(o)] = true
	}
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				if len(origins) == 0 || origins["*"] {
					return true
				}
				return origins[r.Header.Get("Origin")]
			},
		},
	}
}

// HandleWebSocket reads the token from the query string since browsers
// cannot set headers on WebSocket requests.
func (h *Handler) HandleWebSocket(c *gin.Context) {
	tokenString := c.Query("token")
	if tokenString == "" {
		if authHeader := c.GetHeader("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}
	if tokenString == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "No token provided"})
		return
	}

	token, err := h.auth.ValidateToken(tokenString)
	if err != nil {
		h.hub.log.WithError(err).Debug("websocket token rejected")
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Invalid token"})
		return
	}
	claims, err := h.auth.ClaimsFromToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Invalid token claims"})
		return
	}
	actor, err := h.auth.ResolveActor(c.Request.Context(), claims)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"status": "fail", "message": "Invalid token"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.hub.log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	client := NewClient(h.hub, actor.MemberID, actor.FamilyID, conn)
	if !h.hub.Register(client) {
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
