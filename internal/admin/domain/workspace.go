package domain

import (
	"sync"
	"time"
)

// Workspace is one admin session's view: the company directory and its notifications.
type Workspace struct {
	Directory     *Directory
	Notifications *Notifications
}

type workspaceEntry struct {
	space    *Workspace
	lastUsed time.Time
}

// Workspaces hands out one Workspace per admin session. With an idle expiry
// set, workspaces untouched for that long are dropped; sessions never outlive
// it, so those workspaces belong to expired sessions.
type Workspaces struct {
	mu     sync.Mutex
	spaces map[string]*workspaceEntry
	limit  int
	idle   time.Duration
	now    func() time.Time
}

type WorkspaceOption func(*Workspaces)

func WithIdleExpiry(idle time.Duration) WorkspaceOption {
	return func(w *Workspaces) {
		w.idle = idle
	}
}

func WithWorkspaceClock(now func() time.Time) WorkspaceOption {
	return func(w *Workspaces) {
		if now != nil {
			w.now = now
		}
	}
}

func NewWorkspaces(notificationLimit int, opts ...WorkspaceOption) *Workspaces {
	w := &Workspaces{
		spaces: make(map[string]*workspaceEntry),
		limit:  notificationLimit,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *Workspaces) Get(sessionID string) *Workspace {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	w.evictIdle(now)

	entry, ok := w.spaces[sessionID]
	if !ok {
		entry = &workspaceEntry{space: &Workspace{
			Directory:     NewDirectory(nil),
			Notifications: NewNotifications(w.limit),
		}}
		w.spaces[sessionID] = entry
	}
	entry.lastUsed = now
	return entry.space
}

// evictIdle runs with w.mu held.
func (w *Workspaces) evictIdle(now time.Time) {
	if w.idle <= 0 {
		return
	}
	for id, entry := range w.spaces {
		if now.Sub(entry.lastUsed) >= w.idle {
			delete(w.spaces, id)
		}
	}
}

func (w *Workspaces) Drop(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.spaces, sessionID)
}

func (w *Workspaces) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.spaces)
}
