package syncchannel

import "encoding/json"

// MessageType identifies a broker message delivered on the kiosk topic.
type MessageType string

const (
	// MessageConnected acknowledges a successful channel registration.
	MessageConnected MessageType = "CONNECTED"
	// MessageHeartbeatAck confirms receipt of a status heartbeat.
	MessageHeartbeatAck MessageType = "HEARTBEAT_ACK"
	// MessageSyncRequest asks the kiosk to start a sync pass soon.
	MessageSyncRequest MessageType = "SYNC_REQUEST"
	// MessageSyncCommand orders an immediate sync pass.
	MessageSyncCommand MessageType = "SYNC_COMMAND"
	// MessageConfigUpdate signals that an admin changed this kiosk's
	// configuration; the next sync pass will pick it up.
	MessageConfigUpdate MessageType = "CONFIG_UPDATE"
	// MessageSyncResponse carries the server's view after a sync.
	MessageSyncResponse MessageType = "SYNC_RESPONSE"
)

// Message is the JSON body of one MESSAGE frame on the kiosk topic.
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TriggersSync reports whether the message should start a sync pass.
func (m *Message) TriggersSync() bool {
	return m.Type == MessageSyncRequest || m.Type == MessageSyncCommand
}
