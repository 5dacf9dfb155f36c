package realtime

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// EventAnnouncementCreated is the only event kind pushed to clients.
const EventAnnouncementCreated = "announcement:created"

// Event is the wire shape pushed to every connected subscriber.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Metrics receives connection and delivery observations. All methods
// must be safe on a nil implementation value.
type Metrics interface {
	ClientConnected()
	ClientDisconnected()
	ObserveBroadcast()
	ObserveDroppedMessage()
}

// Options tunes hub behaviour. Zero values fall back to defaults.
type Options struct {
	WriteTimeout   time.Duration
	PongTimeout    time.Duration
	SendBufferSize int
}

func (o Options) withDefaults() Options {
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 10 * time.Second
	}
	if o.PongTimeout <= 0 {
		o.PongTimeout = 60 * time.Second
	}
	if o.SendBufferSize <= 0 {
		o.SendBufferSize = 16
	}
	return o
}

// Hub fans events out to every currently connected client. Delivery is
// best-effort: nothing is retried, persisted or replayed, and a client
// that cannot keep up is disconnected rather than allowed to block the
// rest.
type Hub struct {
	logger  *zap.Logger
	metrics Metrics
	opts    Options

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	clients    map[*Client]struct{}
}

// NewHub constructs a hub. Run must be called before clients connect.
func NewHub(logger *zap.Logger, metrics Metrics, opts Options) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		logger:     logger,
		metrics:    metrics,
		opts:       opts.withDefaults(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan []byte, 64),
		clients:    make(map[*Client]struct{}),
	}
}

// Run owns the client set until ctx is cancelled. All registration and
// delivery happens on this single goroutine.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = struct{}{}
			if h.metrics != nil {
				h.metrics.ClientConnected()
			}
			h.logger.Info("websocket client connected", zap.String("remote_addr", client.remoteAddr))
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
				h.logger.Info("websocket client disconnected", zap.String("remote_addr", client.remoteAddr))
			}
		case message := <-h.broadcast:
			if h.metrics != nil {
				h.metrics.ObserveBroadcast()
			}
			for client := range h.clients {
				select {
				case client.send <- message:
				default:
					// Slow consumer; cut it loose instead of blocking the hub.
					if h.metrics != nil {
						h.metrics.ObserveDroppedMessage()
					}
					h.drop(client)
				}
			}
		}
	}
}

// Broadcast queues an event for delivery to all connected clients and
// returns immediately. Failures are logged and swallowed; they must
// never propagate to the operation that triggered the event.
func (h *Hub) Broadcast(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("failed to encode event", zap.String("event", event.Event), zap.Error(err))
		return
	}
	select {
	case h.broadcast <- payload:
	default:
		h.logger.Warn("broadcast queue full, dropping event", zap.String("event", event.Event))
	}
}

func (h *Hub) drop(client *Client) {
	delete(h.clients, client)
	close(client.send)
	if h.metrics != nil {
		h.metrics.ClientDisconnected()
	}
}
