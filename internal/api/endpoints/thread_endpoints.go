package endpoints

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"livechat-backend/internal/dto"
	"livechat-backend/internal/model"
	"livechat-backend/internal/realtime"
	messageservice "livechat-backend/internal/service/message"
	threadservice "livechat-backend/internal/service/thread"
	"livechat-backend/utils"
)

type ThreadEndpoints interface {
	PublicThreads(http.ResponseWriter, *http.Request) error
	PublicThreadActions(http.ResponseWriter, *http.Request) error
	MemberThread(http.ResponseWriter, *http.Request) error
	MemberThreadList(http.ResponseWriter, *http.Request) error
}

type ThreadPaths struct {
	PublicThreadsPath      string
	PublicThreadPrefix     string
	MemberThreadPrefix     string
	MemberThreadListPrefix string
}

type threadEndpoints struct {
	threads  *threadservice.Service
	messages *messageservice.Service
	paths    ThreadPaths
	notify   func(event *realtime.Event)
}

func NewThreadEndpoints(threads *threadservice.Service, messages *messageservice.Service, paths ThreadPaths) ThreadEndpoints {
	return &threadEndpoints{
		threads:  threads,
		messages: messages,
		paths:    paths,
		notify:   publishEvent,
	}
}

func publishEvent(event *realtime.Event) {
	if err := realtime.Publish(event); err != nil {
		log.Printf("failed to publish %s event for thread %s: %v", event.Kind, event.ThreadID, err)
	}
}

func (h *threadEndpoints) PublicThreads(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleCreateThread,
	})
}

func (h *threadEndpoints) PublicThreadActions(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleGuestTyping,
	})
}

func (h *threadEndpoints) MemberThread(w http.ResponseWriter, r *http.Request) error {
	threadID, action, err := h.extractMemberThreadPath(r.URL.Path)
	if err != nil {
		return err
	}

	switch action {
	case "":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodGet: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleThreadInfo(w, r, threadID)
			},
			http.MethodDelete: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleDeleteThread(w, r, threadID)
			},
		})
	case "typing":
		return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
			http.MethodPost: func(w http.ResponseWriter, r *http.Request) error {
				return h.handleMemberTyping(w, r, threadID)
			},
		})
	default:
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("unknown thread action: %s", action),
		}
	}
}

func (h *threadEndpoints) MemberThreadList(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleListThreads,
	})
}

func (h *threadEndpoints) handleCreateThread(w http.ResponseWriter, r *http.Request) error {
	var req dto.CreateThreadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode create thread request: %w", err),
		}
	}

	result, err := h.threads.CreateThread(r.Context(), threadservice.CreateThreadParams{
		WebsiteID:  req.WebsiteID,
		GuestName:  req.Name,
		GuestEmail: req.Email,
		Message:    req.Message,
		GuestIP:    utils.RealClientIP(r),
	})
	if err != nil {
		return threadServiceError(err)
	}

	h.notify(&realtime.Event{
		ThreadID:   result.Thread.ThreadID,
		Kind:       realtime.EventUnseen,
		TargetSide: model.SideMember,
	})

	return WriteJSON(w, http.StatusCreated, dto.CreateThreadResponse{
		Success: true,
		Thread:  toThreadResponse(result.Thread, true),
	})
}

// handleGuestTyping refreshes the guest's typing marker and pokes the
// member side.
func (h *threadEndpoints) handleGuestTyping(w http.ResponseWriter, r *http.Request) error {
	websiteID, secret, err := h.extractPublicThreadAction(r.URL.Path, "typing")
	if err != nil {
		return err
	}

	resolved, err := h.threads.ResolveThreadBySecret(r.Context(), websiteID, secret)
	if err != nil {
		return threadServiceError(err)
	}

	if err := h.threads.SetTyping(r.Context(), resolved.ThreadID, model.SideGuest); err != nil {
		return threadServiceError(err)
	}

	h.notify(&realtime.Event{
		ThreadID:   resolved.ThreadID,
		Kind:       realtime.EventTyping,
		TargetSide: model.SideMember,
	})

	return writeResult(w, http.StatusOK, nil)
}

func (h *threadEndpoints) handleMemberTyping(w http.ResponseWriter, r *http.Request, threadID string) error {
	identity, err := h.threads.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return threadServiceError(err)
	}

	resolved, err := h.threads.ResolveThreadForMember(r.Context(), identity, threadID)
	if err != nil {
		return threadServiceError(err)
	}

	if err := h.threads.SetTyping(r.Context(), resolved.ThreadID, model.SideMember); err != nil {
		return threadServiceError(err)
	}

	h.notify(&realtime.Event{
		ThreadID:   resolved.ThreadID,
		Kind:       realtime.EventTyping,
		TargetSide: model.SideGuest,
	})

	return writeResult(w, http.StatusOK, nil)
}

// handleThreadInfo returns the thread, its guest and the guest's live
// typing state. Opening the thread counts as reading it, so guest
// messages get their seen flag here.
func (h *threadEndpoints) handleThreadInfo(w http.ResponseWriter, r *http.Request, threadID string) error {
	identity, err := h.threads.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return threadServiceError(err)
	}

	info, err := h.threads.GetThreadInfo(r.Context(), identity, threadID)
	if err != nil {
		return threadServiceError(err)
	}

	typing, err := h.threads.IsTypingRecently(r.Context(), threadID, model.SideGuest, threadservice.TypingWindowSeconds)
	if err != nil {
		return threadServiceError(err)
	}

	if err := h.messages.MarkSeenForReader(r.Context(), threadID, model.SideMember); err != nil {
		return messageServiceError(err)
	}

	return writeResult(w, http.StatusOK, dto.ThreadInfoResponse{
		Thread: toThreadResponse(info.Thread, false),
		Guest:  toGuestResponse(info.Guest),
		Typing: typing,
	})
}

func (h *threadEndpoints) handleDeleteThread(w http.ResponseWriter, r *http.Request, threadID string) error {
	identity, err := h.threads.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return threadServiceError(err)
	}

	if err := h.threads.DeleteThread(r.Context(), identity, threadID); err != nil {
		return threadServiceError(err)
	}

	return writeResult(w, http.StatusOK, nil)
}

func (h *threadEndpoints) handleListThreads(w http.ResponseWriter, r *http.Request) error {
	websiteID, err := h.extractMemberListPath(r.URL.Path)
	if err != nil {
		return err
	}

	identity, err := h.threads.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return threadServiceError(err)
	}

	var req dto.ListThreadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode list threads request: %w", err),
		}
	}

	page, err := h.threads.ListThreads(r.Context(), identity, websiteID, req.Search, req.Page, req.PageSize)
	if err != nil {
		return threadServiceError(err)
	}

	elements := make([]dto.ThreadListElement, 0, len(page.Elements))
	for _, element := range page.Elements {
		elements = append(elements, dto.ThreadListElement{
			ThreadID:   element.Thread.ThreadID,
			GuestName:  element.Guest.Name,
			GuestEmail: element.Guest.Email,
			Created:    element.Thread.Created,
		})
	}

	return writeResult(w, http.StatusOK, dto.PageResult{
		Elements: elements,
		Total:    page.Total,
		Page:     page.Page,
	})
}

// extractPublicThreadAction parses {websiteId}/{secret}/{action} after
// the public thread prefix.
func (h *threadEndpoints) extractPublicThreadAction(path, action string) (string, string, error) {
	prefix := h.paths.PublicThreadPrefix
	if prefix == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("public thread route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("public thread path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 3 || parts[2] != action {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid public thread %s path: %s", action, path)}
	}
	return parts[0], parts[1], nil
}

func (h *threadEndpoints) extractMemberThreadPath(path string) (string, string, error) {
	prefix := h.paths.MemberThreadPrefix
	if prefix == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("member thread route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("member thread path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	switch len(parts) {
	case 1:
		if parts[0] == "" {
			break
		}
		return parts[0], "", nil
	case 2:
		return parts[0], parts[1], nil
	}
	return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid member thread path: %s", path)}
}

func (h *threadEndpoints) extractMemberListPath(path string) (string, error) {
	prefix := h.paths.MemberThreadListPrefix
	if prefix == "" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("thread list route not configured")}
	}
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid thread list path: %s", path)}
	}
	return trimmed, nil
}
