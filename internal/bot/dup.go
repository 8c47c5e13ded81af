package bot

import (
	"sync"
	"time"
)

// dupWindow is how long an identical message from the same owner is
// treated as an accidental resend.
const dupWindow = 15 * time.Second

type dupGuard struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]dupEntry
}

type dupEntry struct {
	text string
	at   time.Time
}

func newDupGuard(window time.Duration) *dupGuard {
	return &dupGuard{window: window, last: make(map[string]dupEntry)}
}

// isDup reports whether text repeats the owner's previous message
// inside the window, and records the message either way.
func (g *dupGuard) isDup(ownerID, text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := time.Now()
	prev, ok := g.last[ownerID]
	g.last[ownerID] = dupEntry{text: text, at: now}
	return ok && prev.text == text && now.Sub(prev.at) <= g.window
}
