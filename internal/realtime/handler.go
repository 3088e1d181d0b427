package realtime

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"livechat-backend/internal/env"
	"livechat-backend/internal/model"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	upgrader    websocket.Upgrader
	redisClient *redis.Client
)

func init() {
	upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
	}
	redisClient = redis.NewClient(&redis.Options{
		Addr:     env.Get(env.ChatRedisURL),
		Password: env.Get(env.ChatRedisPass),
		DB:       0,
	})
}

// Binder turns first-frame credentials into a thread id. Guests present
// the website id and thread secret; members present an access token.
type Binder interface {
	BindGuest(ctx context.Context, websiteID, threadSecret string) (string, error)
	BindMember(ctx context.Context, accessToken, threadID string) (string, error)
}

// TypingSink receives typing signals read from connected sockets.
type TypingSink interface {
	Typing(ctx context.Context, threadID string, side model.Side)
}

// bindFrame is the first and only credential frame a socket sends. The
// union of both shapes; the endpoint decides which fields matter.
type bindFrame struct {
	WebsiteID    string `json:"websiteId"`
	ThreadSecret string `json:"threadSecret"`
	AccessToken  string `json:"accessToken"`
	ThreadID     string `json:"threadId"`
}

const bindDeadline = 5 * time.Second

type Handler struct {
	hub         *Hub
	binder      Binder
	typing      TypingSink
	redisClient *redis.Client
}

func NewHandler(h *Hub, binder Binder, typing TypingSink) *Handler {
	return &Handler{
		hub:         h,
		binder:      binder,
		typing:      typing,
		redisClient: redisClient,
	}
}

func (h *Handler) subscribeToThreadChannel(threadID string) {
	if _, exists := h.hub.room(threadID); !exists {
		log.Printf("Thread room %s not found for subscription", threadID)
		return
	}

	subscriber := h.redisClient.Subscribe(context.Background(), threadID)
	defer subscriber.Close()

	ch := subscriber.Channel()
	for msg := range ch {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			log.Printf("Dropping malformed event on channel %s: %v", threadID, err)
			continue
		}
		event.ThreadID = threadID
		h.hub.Broadcast <- &event
	}
}

// EnsureRoom creates the room for a thread and wires its Redis
// subscription exactly once.
func (h *Handler) EnsureRoom(threadID string) {
	if !h.hub.EnsureRoom(threadID) {
		return
	}
	go h.subscribeToThreadChannel(threadID)
}

// ServeGuest upgrades and waits for one binding frame carrying the
// website id and thread secret. An invalid or late frame closes the
// socket; nothing is ever delivered to an unbound connection.
func (h *Handler) ServeGuest(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, model.SideGuest, func(ctx context.Context, frame bindFrame) (string, error) {
		return h.binder.BindGuest(ctx, frame.WebsiteID, frame.ThreadSecret)
	})
}

// ServeMember is the dashboard side: the binding frame carries the
// member's access token and the thread to watch.
func (h *Handler) ServeMember(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, model.SideMember, func(ctx context.Context, frame bindFrame) (string, error) {
		return h.binder.BindMember(ctx, frame.AccessToken, frame.ThreadID)
	})
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, side model.Side, bind func(context.Context, bindFrame) (string, error)) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn.SetReadDeadline(time.Now().Add(bindDeadline))
	conn.SetReadLimit(4 * 1024)

	_, payload, err := conn.ReadMessage()
	if err != nil {
		log.Printf("Closing socket before binding: %v", err)
		conn.Close()
		return
	}

	var frame bindFrame
	if err := json.Unmarshal(payload, &frame); err != nil {
		log.Printf("Closing socket, malformed binding frame: %v", err)
		conn.Close()
		return
	}

	threadID, err := bind(r.Context(), frame)
	if err != nil {
		log.Printf("Closing socket, binding rejected: %v", err)
		conn.Close()
		return
	}

	conn.SetReadDeadline(time.Time{})

	h.EnsureRoom(threadID)

	cl := &Client{
		Conn:     conn,
		Message:  make(chan *Frame, 10),
		ID:       uuid.NewString(),
		ThreadID: threadID,
		Side:     side,
		done:     make(chan struct{}),
	}
	if h.typing != nil {
		cl.onTyping = func() {
			h.typing.Typing(context.Background(), threadID, side)
		}
	}

	h.hub.Register <- cl

	go cl.keepAlive()
	go cl.writeFrames()
	go cl.readFrames(h.hub)
}
