// Package notify is the fire-and-forget user feedback surface. Notifications
// never block and never affect control flow; failures to deliver are
// logging-only.
package notify

import (
	"encoding/json"
	"log"
	"time"
)

// Notification kinds
const (
	KindSuccess = "success"
	KindError   = "error"
)

// Notification is one user-facing message.
type Notification struct {
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Notifier delivers user-facing feedback. Implementations must not block.
type Notifier interface {
	Notify(kind, title, message string)
}

// Broadcaster is the subset of the websocket hub the notifier needs.
type Broadcaster interface {
	Broadcast(message []byte)
}

// HubNotifier pushes notifications to every connected websocket client.
type HubNotifier struct {
	hub Broadcaster
}

func NewHubNotifier(hub Broadcaster) *HubNotifier {
	return &HubNotifier{hub: hub}
}

func (n *HubNotifier) Notify(kind, title, message string) {
	payload, err := json.Marshal(Notification{
		Kind:      kind,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if err != nil {
		log.Printf("notify: failed to marshal notification: %v", err)
		return
	}
	n.hub.Broadcast(payload)
}

// LogNotifier writes notifications to the process log. Used when no hub is
// wired (CLI tooling, degraded startup).
type LogNotifier struct{}

func (LogNotifier) Notify(kind, title, message string) {
	log.Printf("notify [%s] %s: %s", kind, title, message)
}
