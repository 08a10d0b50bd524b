package socket

// Broadcaster publishes service events onto the hub's family and member rooms.
type Broadcaster struct {
	hub *Hub
}

// NewBroadcaster creates a new Broadcaster
func NewBroadcaster(hub *Hub) *Broadcaster {
	return &Broadcaster{hub: hub}
}

// PublishToFamily sends event to every connected member of a family.
func (b *Broadcaster) PublishToFamily(familyID string, event string, payload map[string]interface{}) {
	b.hub.SendToRoom(FamilyRoom(familyID), MessageType(event), payload, "")
}

// PublishToMember sends event to one member's connections.
func (b *Broadcaster) PublishToMember(memberID string, event string, payload map[string]interface{}) {
	b.hub.SendToMember(memberID, MessageType(event), payload)
}
