package api

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"

	"github.com/curatorr/curatorr/internal/httputil"
)

// Event names broadcast by the curation engine.
const (
	EventDiscoveryStart    = "discovery:start"
	EventDiscoveryComplete = "discovery:complete"
	EventDiscoveryFailed   = "discovery:failed"
	EventAssetsReplaced    = "assets:replaced"
	EventAssetsReset       = "assets:reset"
)

type eventEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// EventHub fans curation events out to connected clients. Discovery is the
// only long-running operation in the engine, so the hub additionally keeps
// the set of in-flight scans per entity and replays their start events to
// clients that connect mid-scan.
type EventHub struct {
	mu      sync.RWMutex
	clients map[*eventClient]struct{}

	runsMu   sync.Mutex
	inFlight map[string][]byte // "{entityType}/{entityID}" → discovery:start event
}

type eventClient struct {
	username string
	send     chan []byte
}

func NewEventHub() *EventHub {
	return &EventHub{
		clients:  make(map[*eventClient]struct{}),
		inFlight: make(map[string][]byte),
	}
}

// Broadcast sends one event to every connected client. A slow client drops
// messages rather than blocking the engine.
func (h *EventHub) Broadcast(event string, data interface{}) {
	msg, err := json.Marshal(eventEnvelope{Event: event, Data: data})
	if err != nil {
		log.Printf("WS: dropping unmarshalable %s event: %v", event, err)
		return
	}

	h.trackDiscovery(event, data, msg)

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// trackDiscovery remembers scans between their start and terminal events.
func (h *EventHub) trackDiscovery(event string, data interface{}, raw []byte) {
	switch event {
	case EventDiscoveryStart, EventDiscoveryComplete, EventDiscoveryFailed:
	default:
		return
	}
	key := entityKey(data)
	if key == "" {
		return
	}

	h.runsMu.Lock()
	defer h.runsMu.Unlock()
	if event == EventDiscoveryStart {
		h.inFlight[key] = raw
	} else {
		delete(h.inFlight, key)
	}
}

// entityKey extracts the entity identity common to all discovery payloads.
func entityKey(data interface{}) string {
	m, ok := data.(map[string]interface{})
	if !ok {
		return ""
	}
	entityType, ok := m["entity_type"]
	if !ok {
		return ""
	}
	entityID, ok := m["entity_id"]
	if !ok {
		return ""
	}
	return fmt.Sprintf("%v/%v", entityType, entityID)
}

// replayInFlight catches a fresh client up on scans still running.
func (h *EventHub) replayInFlight(c *eventClient) {
	h.runsMu.Lock()
	defer h.runsMu.Unlock()
	for _, msg := range h.inFlight {
		select {
		case c.send <- msg:
		default:
		}
	}
}

func (h *EventHub) add(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *EventHub) remove(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		close(c.send)
		delete(h.clients, c)
	}
}

// ──────────────────── WebSocket Handler ────────────────────

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	claims, err := s.auth.ValidateToken(token)
	if err != nil {
		s.respondError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "invalid token")
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		log.Printf("WS: accept failed for %s: %v", claims.Username, err)
		return
	}

	client := &eventClient{
		username: claims.Username,
		send:     make(chan []byte, 64),
	}
	s.events.add(client)
	s.events.replayInFlight(client)
	log.Printf("WS: client connected: %s", claims.Username)

	ctx := r.Context()

	go func() {
		defer conn.Close(websocket.StatusNormalClosure, "")
		for msg := range client.send {
			if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		}
	}()

	// Drain reads to notice disconnects; clients never send payloads.
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			break
		}
	}

	s.events.remove(client)
	log.Printf("WS: client disconnected: %s", claims.Username)
}
