// Package socket pushes family events to connected clients over WebSocket.
package socket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Points
	MessagePointsUpdated MessageType = "points_updated"

	// Tasks
	MessageTaskAssigned       MessageType = "task_assigned"
	MessageAssignmentApproved MessageType = "assignment_approved"
	MessageAssignmentRejected MessageType = "assignment_rejected"
	MessageTaskCompleted      MessageType = "task_completed"
	MessageTaskReviewed       MessageType = "task_reviewed"

	// Redemptions
	MessageRedeemRequested MessageType = "redeem_requested"
	MessageRedeemReviewed  MessageType = "redeem_reviewed"
	MessageRedeemResponded MessageType = "redeem_responded"

	// Members
	MessageMemberAdded   MessageType = "member_added"
	MessageMemberRemoved MessageType = "member_removed"
	MessageMemberOnline  MessageType = "member_online"
	MessageMemberOffline MessageType = "member_offline"

	// System
	MessagePing MessageType = "ping"
	MessagePong MessageType = "pong"
	MessageAck  MessageType = "ack"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID       string
	MemberID string
	FamilyID string
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte
	Rooms    map[string]bool
	mu       sync.Mutex
	lastPing time.Time
}

// Hub maintains the set of active clients and routes messages to rooms
type Hub struct {
	clients       map[*Client]bool
	memberClients map[string]map[*Client]bool
	roomClients   map[string]map[*Client]bool

	register      chan *Client
	unregister    chan *Client
	roomBroadcast chan *RoomMessage
	directMessage chan *DirectMessage
	done          chan struct{}

	log *logrus.Entry
	mu  sync.RWMutex
}

// RoomMessage represents a message to be sent to a specific room
type RoomMessage struct {
	Room    string
	Message []byte
	Exclude string // member ID skipped by the broadcast
}

// DirectMessage represents a message to be sent to one member's connections
type DirectMessage struct {
	MemberID string
	Message  []byte
}

func FamilyRoom(familyID string) string { return "family:" + familyID }

func MemberRoom(memberID string) string { return "member:" + memberID }

// NewHub creates a new Hub
func NewHub(log *logrus.Entry) *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		memberClients: make(map[string]map[*Client]bool),
		roomClients:   make(map[string]map[*Client]bool),
		register:      make(chan *Client),
		unregister:    make(chan *Client),
		roomBroadcast: make(chan *RoomMessage, 256),
		directMessage: make(chan *DirectMessage, 256),
		done:          make(chan struct{}),
		log:           log,
	}
}

// Run routes messages until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	h.log.Info("WebSocket hub started")

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			close(h.done)
			h.closeAll()
			h.log.Info("WebSocket hub stopped")
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case rm := <-h.roomBroadcast:
			h.broadcastToRoom(rm)

		case dm := <-h.directMessage:
			h.sendToMember(dm)

		case <-pingTicker.C:
			h.pingClients()
		}
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	if h.memberClients[client.MemberID] == nil {
		h.memberClients[client.MemberID] = make(map[*Client]bool)
	}
	first := len(h.memberClients[client.MemberID]) == 0
	h.memberClients[client.MemberID][client] = true

	// Every connection listens on its family room and its own member room.
	for _, room := range []string{FamilyRoom(client.FamilyID), MemberRoom(client.MemberID)} {
		h.joinLocked(client, room)
	}
	total := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"member": client.MemberID,
		"client": client.ID,
		"total":  total,
	}).Info("client registered")

	if first {
		h.broadcastPresence(client, MessageMemberOnline)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)

	last := false
	if clients, ok := h.memberClients[client.MemberID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.memberClients, client.MemberID)
			last = true
		}
	}

	client.mu.Lock()
	for room := range client.Rooms {
		h.removeFromRoomLocked(client, room)
	}
	client.mu.Unlock()

	close(client.Send)
	total := len(h.clients)
	h.mu.Unlock()

	h.log.WithFields(logrus.Fields{
		"member": client.MemberID,
		"client": client.ID,
		"total":  total,
	}).Info("client disconnected")

	if last {
		h.broadcastPresence(client, MessageMemberOffline)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for client := range h.clients {
		close(client.Send)
		delete(h.clients, client)
	}
	h.memberClients = make(map[string]map[*Client]bool)
	h.roomClients = make(map[string]map[*Client]bool)
}

// deliver queues data on client without blocking the hub. Slow clients are
// dropped.
func (h *Hub) deliver(client *Client, data []byte) bool {
	select {
	case client.Send <- data:
		return true
	default:
		go h.remove(client)
		return false
	}
}

// Register adds a client to the hub. It reports false once the hub stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// remove hands client to the hub for unregistering, unless the hub stopped.
func (h *Hub) remove(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) broadcastToRoom(rm *RoomMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients, ok := h.roomClients[rm.Room]
	if !ok {
		return
	}

	sent := 0
	for client := range clients {
		if rm.Exclude != "" && client.MemberID == rm.Exclude {
			continue
		}
		if h.deliver(client, rm.Message) {
			sent++
		}
	}
	h.log.WithFields(logrus.Fields{"room": rm.Room, "sent": sent}).Debug("room broadcast")
}

func (h *Hub) sendToMember(dm *DirectMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.memberClients[dm.MemberID] {
		h.deliver(client, dm.Message)
	}
}

func (h *Hub) pingClients() {
	data, _ := json.Marshal(Message{Type: MessagePing, Timestamp: time.Now()})

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.clients {
		h.deliver(client, data)
	}
}

func (h *Hub) broadcastPresence(client *Client, msgType MessageType) {
	h.SendToRoom(FamilyRoom(client.FamilyID), msgType, map[string]interface{}{
		"member_id": client.MemberID,
	}, client.MemberID)
}

// ============================================
// Room Management
// ============================================

func (h *Hub) joinLocked(client *Client, room string) {
	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true
}

func (h *Hub) removeFromRoomLocked(client *Client, room string) {
	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}
}

// JoinRoom adds a client to a room
func (h *Hub) JoinRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.joinLocked(client, room)
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()

	h.removeFromRoomLocked(client, room)
}

// ============================================
// Sending
// ============================================

func (h *Hub) encode(msgType MessageType, payload map[string]interface{}) ([]byte, bool) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		h.log.WithError(err).Error("failed to marshal message")
		return nil, false
	}
	return data, true
}

// SendToMember sends a message to every connection of one member. It never
// blocks; the message is dropped when the hub queue is full.
func (h *Hub) SendToMember(memberID string, msgType MessageType, payload map[string]interface{}) {
	data, ok := h.encode(msgType, payload)
	if !ok {
		return
	}
	select {
	case h.directMessage <- &DirectMessage{MemberID: memberID, Message: data}:
	default:
		h.log.WithFields(logrus.Fields{"member": memberID, "type": msgType}).Warn("hub queue full, message dropped")
	}
}

// SendToRoom broadcasts a message to all clients in a room. Same drop
// semantics as SendToMember.
func (h *Hub) SendToRoom(room string, msgType MessageType, payload map[string]interface{}, excludeMemberID string) {
	data, ok := h.encode(msgType, payload)
	if !ok {
		return
	}
	select {
	case h.roomBroadcast <- &RoomMessage{Room: room, Message: data, Exclude: excludeMemberID}:
	default:
		h.log.WithFields(logrus.Fields{"room": room, "type": msgType}).Warn("hub queue full, message dropped")
	}
}

// ============================================
// Queries
// ============================================

// IsMemberOnline checks if a member has at least one open connection
func (h *Hub) IsMemberOnline(memberID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.memberClients[memberID]
	return ok
}

// OnlineMembers returns the connected member IDs of one family
func (h *Hub) OnlineMembers(familyID string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	seen := make(map[string]bool)
	members := []string{}
	for client := range h.roomClients[FamilyRoom(familyID)] {
		if !seen[client.MemberID] {
			seen[client.MemberID] = true
			members = append(members, client.MemberID)
		}
	}
	return members
}

// RoomSize returns the number of clients in a room
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomClients[room])
}

// ConnectedClients returns total connected clients
func (h *Hub) ConnectedClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
