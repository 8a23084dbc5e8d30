package stream

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const liveChannel = "tracker:live"

// frame is the pub/sub wire envelope. Origin identifies the publishing hub
// so a hub can ignore its own publishes; it delivers those locally already.
type frame struct {
	Origin  string `json:"origin"`
	Payload []byte `json:"payload"`
}

// Hub fans live metric snapshots out to stream subscribers. Only one session
// is ever active, so there is a single broadcast group. When a Redis client
// is present, snapshots are also published so sibling processes can relay
// them.
type Hub struct {
	id      string
	redis   *redis.Client
	clients map[*Client]struct{}
	mu      sync.RWMutex
}

type Client struct {
	Send chan []byte
}

func NewHub(redisClient *redis.Client) *Hub {
	h := &Hub{
		id:      uuid.NewString(),
		redis:   redisClient,
		clients: map[*Client]struct{}{},
	}

	if redisClient != nil {
		go h.subscribeRedis()
	}
	return h
}

func (h *Hub) Register() *Client {
	client := &Client{Send: make(chan []byte, 64)}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[client] = struct{}{}
	return client
}

func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.Send)
	}
}

// Broadcast delivers a snapshot to every connected client; slow clients drop
// frames rather than block the session loop.
func (h *Hub) Broadcast(payload []byte) {
	h.deliver(payload)

	if h.redis != nil {
		wire, err := json.Marshal(frame{Origin: h.id, Payload: payload})
		if err != nil {
			log.Printf("stream frame encode error: %v", err)
			return
		}
		if err := h.redis.Publish(context.Background(), liveChannel, wire).Err(); err != nil {
			log.Printf("redis publish error: %v", err)
		}
	}
}

func (h *Hub) deliver(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.clients {
		select {
		case client.Send <- payload:
		default:
		}
	}
}

func (h *Hub) subscribeRedis() {
	pubsub := h.redis.Subscribe(context.Background(), liveChannel)
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var f frame
		if err := json.Unmarshal([]byte(msg.Payload), &f); err != nil {
			log.Printf("stream frame decode error: %v", err)
			continue
		}
		if f.Origin == h.id {
			continue
		}
		h.deliver(f.Payload)
	}
}
