package realtime

import "livechat-backend/internal/model"

const (
	EventUnseen = "unseen"
	EventTyping = "typing"
)

// Event is the cross-process fan-out unit. It carries no message body;
// receivers re-fetch over HTTP, so a lost frame costs a refresh and
// nothing else.
type Event struct {
	ThreadID   string     `json:"threadId"`
	Kind       string     `json:"kind"`
	TargetSide model.Side `json:"targetSide"`
}

// Frame is what a connected socket receives: the thread id keyed by
// event kind, nothing more.
type Frame struct {
	Unseen string `json:"unseen,omitempty"`
	Typing string `json:"typing,omitempty"`
}

func frameFor(event *Event) *Frame {
	switch event.Kind {
	case EventTyping:
		return &Frame{Typing: event.ThreadID}
	default:
		return &Frame{Unseen: event.ThreadID}
	}
}

type Room struct {
	ThreadID string
	Clients  map[string]*Client
}
