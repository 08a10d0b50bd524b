package socket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Marga-Ghale/ora-family-backend/internal/logger"
	"github.com/Marga-Ghale/ora-family-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAuth accepts tokens of the form "<family>:<member>".
type fakeAuth struct{}

func (fakeAuth) ValidateToken(token string) (*jwt.Token, error) {
	parts := strings.SplitN(token, ":", 2)
	if len(parts) != 2 {
		return nil, errors.New("bad token")
	}
	return &jwt.Token{Claims: jwt.MapClaims{"fam": parts[0], "sub": parts[1]}, Valid: true}, nil
}

func (fakeAuth) ClaimsFromToken(token *jwt.Token) (*service.Claims, error) {
	claims := token.Claims.(jwt.MapClaims)
	return &service.Claims{FamilyID: claims["fam"].(string), MemberID: claims["sub"].(string)}, nil
}

func (fakeAuth) ResolveActor(ctx context.Context, claims *service.Claims) (service.Actor, error) {
	return service.Actor{FamilyID: claims.FamilyID, MemberID: claims.MemberID}, nil
}

func newTestServer(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(logger.Discard().Component("WebSocket"))
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	r := gin.New()
	r.GET("/ws", NewHandler(hub, fakeAuth{}, nil).HandleWebSocket)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHandler_RejectsMissingToken(t *testing.T) {
	_, srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestBroadcaster_FamilyRoomIsolation(t *testing.T) {
	hub, srv := newTestServer(t)
	b := NewBroadcaster(hub)

	mine := dial(t, srv, "fam-1:kid")
	other := dial(t, srv, "fam-2:stranger")
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 2 }, 2*time.Second, 10*time.Millisecond)

	b.PublishToFamily("fam-1", "points_updated", map[string]interface{}{"balance": 50})

	msg := readMessage(t, mine)
	assert.Equal(t, MessagePointsUpdated, msg.Type)
	assert.EqualValues(t, 50, msg.Payload["balance"])

	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, _, err := other.ReadMessage()
	assert.Error(t, err)
}

func TestBroadcaster_MemberMessage(t *testing.T) {
	hub, srv := newTestServer(t)
	b := NewBroadcaster(hub)

	conn := dial(t, srv, "fam-1:kid")
	require.Eventually(t, func() bool { return hub.IsMemberOnline("kid") }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"kid"}, hub.OnlineMembers("fam-1"))
	assert.Equal(t, 1, hub.RoomSize(MemberRoom("kid")))

	b.PublishToMember("kid", "task_assigned", map[string]interface{}{"task": "Dishes"})

	msg := readMessage(t, conn)
	assert.Equal(t, MessageTaskAssigned, msg.Type)
	assert.Equal(t, "Dishes", msg.Payload["task"])
}

func TestClient_PingPong(t *testing.T) {
	hub, srv := newTestServer(t)

	conn := dial(t, srv, "fam-1:kid")
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: "ping"}))
	msg := readMessage(t, conn)
	assert.Equal(t, MessagePong, msg.Type)
}

func TestHub_UnregisterOnDisconnect(t *testing.T) {
	hub, srv := newTestServer(t)

	conn := dial(t, srv, "fam-1:kid")
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 1 }, 2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ConnectedClients() == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, hub.IsMemberOnline("kid"))
	assert.Zero(t, hub.RoomSize(FamilyRoom("fam-1")))
}
