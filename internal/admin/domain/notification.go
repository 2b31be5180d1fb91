package domain

import (
	"sync"
	"time"
)

type NotificationLevel string

const (
	NotificationSuccess NotificationLevel = "success"
	NotificationError   NotificationLevel = "error"
)

type Notification struct {
	ID        string            `json:"id"`
	Level     NotificationLevel `json:"level"`
	Message   string            `json:"message"`
	CreatedAt time.Time         `json:"created_at"`
}

// Notifications keeps the most recent messages, newest last.
type Notifications struct {
	mu    sync.RWMutex
	items []Notification
	limit int
}

func NewNotifications(limit int) *Notifications {
	if limit <= 0 {
		limit = 50
	}
	return &Notifications{limit: limit}
}

func (n *Notifications) Push(notification Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, notification)
	if len(n.items) > n.limit {
		n.items = append([]Notification(nil), n.items[len(n.items)-n.limit:]...)
	}
}

func (n *Notifications) List() []Notification {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return append(make([]Notification, 0, len(n.items)), n.items...)
}
