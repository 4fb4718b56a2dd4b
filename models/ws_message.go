package models

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// DropEvent è il payload WebSocket per gli eventi del monitor
// (drop_created, drop_resubmitted, drop_rejected)
type DropEvent struct {
	EventID    string `json:"eventId"`
	DropNumber string `json:"dropNumber"`
	Project    string `json:"project"`
	GroupJID   string `json:"groupJid"`
	Sender     string `json:"sender"`
	Timestamp  string `json:"timestamp"`
}
