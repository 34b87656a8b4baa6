// Package sse implements a Server-Sent Events broker for vault change
// notifications.
package sse

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Event types.
const (
	TypeFileCreated   = "file.created"
	TypeFileUpdated   = "file.updated"
	TypeFileDeleted   = "file.deleted"
	TypeVaultChanged  = "vault.changed"
	TypeSyncCompleted = "sync.completed"
)

// Event represents an SSE event to broadcast.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// FileEvent is the payload of the file.* events.
type FileEvent struct {
	Namespace string `json:"namespace"`
	Path      string `json:"path"`
}

// SyncEvent is the payload of sync.completed.
type SyncEvent struct {
	Kind    string `json:"kind"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

type fileChange struct {
	kind string
	FileEvent
}

// Broker manages SSE client connections and broadcasts events.
//
// A single event loop owns the client set and the vault.changed throttle
// timestamp; public methods talk to it over channels.
type Broker struct {
	changeMin time.Duration

	subscribeCh   chan chan []byte
	unsubscribeCh chan chan []byte
	publishCh     chan Event
	fileCh        chan fileChange
	countReqCh    chan chan int

	stopCh  chan struct{}
	stopped chan struct{}
	closed  atomic.Bool
}

// NewBroker creates a broker that emits vault.changed at most once per
// changeThrottle.
func NewBroker(changeThrottle time.Duration) *Broker {
	if changeThrottle <= 0 {
		changeThrottle = 2 * time.Second
	}

	b := &Broker{
		changeMin:     changeThrottle,
		subscribeCh:   make(chan chan []byte),
		unsubscribeCh: make(chan chan []byte),
		publishCh:     make(chan Event, 256),
		fileCh:        make(chan fileChange, 256),
		countReqCh:    make(chan chan int),
		stopCh:        make(chan struct{}),
		stopped:       make(chan struct{}),
	}

	go b.run()
	return b
}

func (b *Broker) run() {
	defer close(b.stopped)

	clients := make(map[chan []byte]struct{})
	var lastChange time.Time

	broadcast := func(event Event) {
		payload, err := json.Marshal(event.Data)
		if err != nil {
			slog.Warn("sse: marshal event failed", slog.String("type", event.Type), slog.String("error", err.Error()))
			return
		}
		raw := []byte(fmt.Sprintf("event: %s\ndata: %s\n\n", event.Type, payload))

		for ch := range clients {
			select {
			case ch <- raw:
			default:
				// Slow client; drop rather than block the loop.
			}
		}
	}

	for {
		select {
		case <-b.stopCh:
			for ch := range clients {
				close(ch)
			}
			return

		case ch := <-b.subscribeCh:
			clients[ch] = struct{}{}

		case ch := <-b.unsubscribeCh:
			if _, ok := clients[ch]; ok {
				delete(clients, ch)
				close(ch)
			}

		case event := <-b.publishCh:
			broadcast(event)

		case c := <-b.fileCh:
			switch c.kind {
			case "created":
				broadcast(Event{Type: TypeFileCreated, Data: c.FileEvent})
			case "updated":
				broadcast(Event{Type: TypeFileUpdated, Data: c.FileEvent})
			case "deleted":
				broadcast(Event{Type: TypeFileDeleted, Data: c.FileEvent})
			default:
				continue
			}

			now := time.Now()
			if now.Sub(lastChange) >= b.changeMin {
				lastChange = now
				broadcast(Event{Type: TypeVaultChanged, Data: map[string]string{"namespace": c.Namespace}})
			}

		case resp := <-b.countReqCh:
			resp <- len(clients)
		}
	}
}

// Close gracefully stops broker loop and closes all client channels.
func (b *Broker) Close() {
	if b.closed.CompareAndSwap(false, true) {
		close(b.stopCh)
	}
	<-b.stopped
}

// Subscribe adds a new client and returns its channel.
func (b *Broker) Subscribe() chan []byte {
	ch := make(chan []byte, 64)
	if b.closed.Load() {
		close(ch)
		return ch
	}

	select {
	case b.subscribeCh <- ch:
	case <-b.stopped:
		close(ch)
	}

	return ch
}

// Unsubscribe removes a client and closes its channel.
func (b *Broker) Unsubscribe(ch chan []byte) {
	if b.closed.Load() {
		return
	}
	select {
	case b.unsubscribeCh <- ch:
	case <-b.stopped:
	}
}

// ClientCount returns the number of connected clients.
func (b *Broker) ClientCount() int {
	if b.closed.Load() {
		return 0
	}

	resp := make(chan int, 1)
	select {
	case b.countReqCh <- resp:
	case <-b.stopped:
		return 0
	}

	select {
	case n := <-resp:
		return n
	case <-b.stopped:
		return 0
	}
}

// Publish sends an event to all connected clients.
func (b *Broker) Publish(event Event) {
	if b.closed.Load() {
		return
	}
	select {
	case b.publishCh <- event:
	case <-b.stopped:
	}
}

// PublishFileEvent publishes a file change (kind is created, updated or
// deleted) and a throttled vault.changed.
func (b *Broker) PublishFileEvent(kind, namespace, path string) {
	if b.closed.Load() {
		return
	}
	select {
	case b.fileCh <- fileChange{kind: kind, FileEvent: FileEvent{Namespace: namespace, Path: path}}:
	case <-b.stopped:
	}
}

// PublishSync publishes the outcome of a background pull or push.
func (b *Broker) PublishSync(kind string, ok bool, message string) {
	b.Publish(Event{Type: TypeSyncCompleted, Data: SyncEvent{Kind: kind, OK: ok, Message: message}})
}

// ServeHTTP is the SSE endpoint handler (GET /api/events).
func (b *Broker) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			_, _ = w.Write(msg)
			flusher.Flush()
		}
	}
}
