package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alfredjeanlab/dealdesk/internal/events"
)

const (
	// sseReplaySize bounds how many events a reconnecting client can catch up on.
	sseReplaySize = 1000

	sseKeepaliveInterval = 15 * time.Second

	// sseRetryMillis is the reconnection delay suggested to browsers.
	sseRetryMillis = 3000
)

type sseEvent struct {
	ID    uint64
	Topic string
	Data  []byte
}

// eventRing keeps the last sseReplaySize events in publication order.
type eventRing struct {
	mu   sync.RWMutex
	buf  []sseEvent
	next int
	full bool
}

func newEventRing(size int) *eventRing {
	return &eventRing{buf: make([]sseEvent, size)}
}

func (r *eventRing) push(evt sseEvent) {
	r.mu.Lock()
	r.buf[r.next] = evt
	r.next = (r.next + 1) % len(r.buf)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()
}

// since returns the retained events with an ID greater than lastID, oldest first.
func (r *eventRing) since(lastID uint64) []sseEvent {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var ordered []sseEvent
	if r.full {
		ordered = append(ordered, r.buf[r.next:]...)
	}
	ordered = append(ordered, r.buf[:r.next]...)

	var out []sseEvent
	for _, evt := range ordered {
		if evt.ID > lastID {
			out = append(out, evt)
		}
	}
	return out
}

// sseHub fans mutation events out to connected SSE clients.
type sseHub struct {
	mu      sync.RWMutex
	clients map[*sseClient]struct{}
	nextID  atomic.Uint64
	replay  *eventRing
}

type sseClient struct {
	topics []string // patterns; empty = all
	ch     chan sseEvent
}

func newSSEHub() *sseHub {
	return &sseHub{
		clients: make(map[*sseClient]struct{}),
		replay:  newEventRing(sseReplaySize),
	}
}

// broadcast assigns the next sequence number to the event and delivers it to
// every matching client. Clients with a full buffer miss the event.
func (h *sseHub) broadcast(topic string, payload []byte) {
	evt := sseEvent{ID: h.nextID.Add(1), Topic: topic, Data: payload}
	h.replay.push(evt)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		if !c.matchesTopic(topic) {
			continue
		}
		select {
		case c.ch <- evt:
		default:
		}
	}
}

func (h *sseHub) subscribe(topics []string) *sseClient {
	c := &sseClient{topics: topics, ch: make(chan sseEvent, 64)}
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *sseHub) unsubscribe(c *sseClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *sseHub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// matchesTopic reports whether the client's filters accept topic. An empty
// filter list accepts everything.
func (c *sseClient) matchesTopic(topic string) bool {
	if len(c.topics) == 0 {
		return true
	}
	for _, pattern := range c.topics {
		if events.MatchTopic(pattern, topic) {
			return true
		}
	}
	return false
}

// handleEventStream handles GET /api/events/stream. Clients may pass
// comma-separated topic patterns in ?topics= and resume with Last-Event-ID.
func (s *DealServer) handleEventStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	client := s.sseHub.subscribe(parseTopics(r.URL.Query().Get("topics")))
	defer s.sseHub.unsubscribe(client)

	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "retry:%d\n\n", sseRetryMillis)

	if lastID, err := strconv.ParseUint(r.Header.Get("Last-Event-ID"), 10, 64); err == nil {
		for _, evt := range s.sseHub.replay.since(lastID) {
			if client.matchesTopic(evt.Topic) {
				writeSSEEvent(w, evt)
			}
		}
	}
	flusher.Flush()

	keepalive := time.NewTicker(sseKeepaliveInterval)
	defer keepalive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case evt := <-client.ch:
			writeSSEEvent(w, evt)
			flusher.Flush()
		case <-keepalive.C:
			fmt.Fprint(w, ":keepalive\n\n")
			flusher.Flush()
		}
	}
}

func parseTopics(q string) []string {
	var topics []string
	for _, t := range strings.Split(q, ",") {
		if t = strings.TrimSpace(t); t != "" {
			topics = append(topics, t)
		}
	}
	return topics
}

func writeSSEEvent(w http.ResponseWriter, evt sseEvent) {
	fmt.Fprintf(w, "id:%d\nevent:%s\ndata:%s\n\n", evt.ID, evt.Topic, evt.Data)
}
