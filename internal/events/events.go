// Package events is the Event Emitter of spec.md §4.H: it fans out
// progress and status-transition snapshots to external subscribers on a
// best-effort, lossy basis.
package events

import "sync"

// Update is the payload of a "download-update" event: a snapshot of one
// download carrying every Download Record field except the auth context
// (cookies, referrer and user_agent are not included).
type Update struct {
	ID             string
	URL            string
	FilePath       string
	FileName       string
	TotalSize      *int64
	DownloadedSize int64
	Status         string
	FailureReason  string
	CreatedAt      int64
	UpdatedAt      int64
}

// Emitter publishes Updates. Implementations must not block the caller
// indefinitely — delivery is best-effort per spec.md §4.H.
type Emitter interface {
	Emit(Update)
}

// Broadcaster is an in-process Emitter that fans out to any number of
// subscriber channels. A full subscriber channel drops the update rather
// than blocking the publisher, matching the "lossy, not guaranteed
// ordered cross-id" delivery contract.
type Broadcaster struct {
	mu   sync.Mutex
	subs map[chan Update]struct{}
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[chan Update]struct{})}
}

// Subscribe registers a new channel of the given buffer size and returns
// it along with an unsubscribe function.
func (b *Broadcaster) Subscribe(buffer int) (<-chan Update, func()) {
	ch := make(chan Update, buffer)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[ch]; ok {
			delete(b.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe
}

// Emit delivers update to every current subscriber, dropping it for any
// subscriber whose channel is full.
func (b *Broadcaster) Emit(update Update) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs {
		select {
		case ch <- update:
		default:
		}
	}
}
