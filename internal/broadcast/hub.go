package broadcast

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/contrib/websocket"

	"github.com/clipvibe/api/internal/model"
)

// Publisher is the side of the hub the pipeline sees. It never holds a
// reference to individual observers.
type Publisher interface {
	Publish(event model.ProgressEvent)
}

// subscriber receives events for a single job id.
type subscriber struct {
	jobID  string
	events chan model.ProgressEvent
}

// Hub fans progress events out to subscribers keyed by job id. A single
// goroutine owns the subscriber map, so events for one job are delivered
// in emission order. Delivery is best-effort: a subscriber that cannot
// keep up is evicted, and subscribers connected after an event was
// published never see it retroactively.
type Hub struct {
	subs map[string]map[*subscriber]bool

	register   chan *subscriber
	unregister chan *subscriber
	publish    chan model.ProgressEvent

	mu sync.RWMutex
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		subs:       make(map[string]map[*subscriber]bool),
		register:   make(chan *subscriber),
		unregister: make(chan *subscriber),
		publish:    make(chan model.ProgressEvent, 256),
	}
}

// Run starts the hub's main loop
func (h *Hub) Run() {
	for {
		select {
		case sub := <-h.register:
			h.mu.Lock()
			if h.subs[sub.jobID] == nil {
				h.subs[sub.jobID] = make(map[*subscriber]bool)
			}
			h.subs[sub.jobID][sub] = true
			h.mu.Unlock()

		case sub := <-h.unregister:
			h.mu.Lock()
			if subs, ok := h.subs[sub.jobID]; ok {
				if _, ok := subs[sub]; ok {
					delete(subs, sub)
					close(sub.events)
					if len(subs) == 0 {
						delete(h.subs, sub.jobID)
					}
				}
			}
			h.mu.Unlock()

		case event := <-h.publish:
			h.mu.Lock()
			if subs, ok := h.subs[event.JobID]; ok {
				for sub := range subs {
					select {
					case sub.events <- event:
					default:
						close(sub.events)
						delete(subs, sub)
					}
				}
				if len(subs) == 0 {
					delete(h.subs, event.JobID)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Publish queues an event for delivery to the job's subscribers.
func (h *Hub) Publish(event model.ProgressEvent) {
	h.publish <- event
}

// Subscribe returns an ordered stream of events for one job id and a
// cancel function that releases the subscription.
func (h *Hub) Subscribe(jobID string) (<-chan model.ProgressEvent, func()) {
	sub := &subscriber{
		jobID:  jobID,
		events: make(chan model.ProgressEvent, 64),
	}
	h.register <- sub

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			h.unregister <- sub
		})
	}
	return sub.events, cancel
}

// HandleConnection streams a job's progress events over a WebSocket
// connection until either side closes. All writes to the conn happen on
// the writer goroutine; the reader loop hands pong replies to it through
// the send channel, since the conn does not allow concurrent writers.
func (h *Hub) HandleConnection(c *websocket.Conn, jobID string) {
	events, cancel := h.Subscribe(jobID)
	defer cancel()

	send := make(chan []byte, 4)

	// Writer goroutine: progress events, pong replies, keep-alive pings.
	done := make(chan struct{})
	go func() {
		defer close(done)
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-events:
				if !ok {
					c.WriteMessage(websocket.CloseMessage, []byte{})
					return
				}
				msg := model.WSProgressMessage{
					Type:  model.WSMessageTypeProgress,
					Event: event,
				}
				data, err := json.Marshal(msg)
				if err != nil {
					log.Printf("Failed to marshal progress message: %v", err)
					continue
				}
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}

			case data := <-send:
				if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
					return
				}

			case <-ticker.C:
				if err := c.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}
			}
		}
	}()

	// Reader loop
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg model.WSMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			continue
		}
		if msg.Type == model.WSMessageTypePing {
			pong, _ := json.Marshal(model.WSMessage{Type: model.WSMessageTypePong})
			select {
			case send <- pong:
			default:
				// client is flooding pings faster than we write; drop
			}
		}
	}

	cancel()
	<-done
}
