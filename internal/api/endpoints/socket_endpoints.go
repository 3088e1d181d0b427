package endpoints

import (
	"context"
	"fmt"
	"net/http"

	"livechat-backend/internal/model"
	"livechat-backend/internal/realtime"
	threadservice "livechat-backend/internal/service/thread"
)

type SocketEndpoints interface {
	GuestSocket(http.ResponseWriter, *http.Request) error
	MemberSocket(http.ResponseWriter, *http.Request) error
}

type socketEndpoints struct {
	handler *realtime.Handler
}

func NewSocketEndpoints(handler *realtime.Handler) SocketEndpoints {
	return &socketEndpoints{handler: handler}
}

func (h *socketEndpoints) GuestSocket(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("realtime handler missing"),
		}
	}
	h.handler.ServeGuest(w, r)
	return nil
}

func (h *socketEndpoints) MemberSocket(w http.ResponseWriter, r *http.Request) error {
	if h.handler == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Websocket not available",
			ErrorLog:   fmt.Errorf("realtime handler missing"),
		}
	}
	h.handler.ServeMember(w, r)
	return nil
}

// ThreadBinder resolves socket binding frames through the thread store:
// guests by website id + secret, members by access token + ownership.
type ThreadBinder struct {
	Threads *threadservice.Service
}

func (b *ThreadBinder) BindGuest(ctx context.Context, websiteID, threadSecret string) (string, error) {
	resolved, err := b.Threads.ResolveThreadBySecret(ctx, websiteID, threadSecret)
	if err != nil {
		return "", err
	}
	return resolved.ThreadID, nil
}

func (b *ThreadBinder) BindMember(ctx context.Context, accessToken, threadID string) (string, error) {
	identity, err := b.Threads.IdentityFromToken(accessToken)
	if err != nil {
		return "", err
	}
	resolved, err := b.Threads.ResolveThreadForMember(ctx, identity, threadID)
	if err != nil {
		return "", err
	}
	return resolved.ThreadID, nil
}

// TypingRelay persists typing markers coming in over sockets and pokes
// the opposite side.
type TypingRelay struct {
	Threads *threadservice.Service
	Notify  func(event *realtime.Event)
}

func (t *TypingRelay) Typing(ctx context.Context, threadID string, side model.Side) {
	if err := t.Threads.SetTyping(ctx, threadID, side); err != nil {
		return
	}

	notify := t.Notify
	if notify == nil {
		notify = publishEvent
	}
	notify(&realtime.Event{
		ThreadID:   threadID,
		Kind:       realtime.EventTyping,
		TargetSide: side.Opposite(),
	})
}
