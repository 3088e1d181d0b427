package endpoints

import (
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"livechat-backend/internal/dto"
	"livechat-backend/internal/model"
	"livechat-backend/internal/realtime"
	messageservice "livechat-backend/internal/service/message"
	threadservice "livechat-backend/internal/service/thread"
	"livechat-backend/internal/storage"

	"github.com/google/uuid"
)

const maxUploadBytes = 32 << 20

type MessageEndpoints interface {
	PublicMessages(http.ResponseWriter, *http.Request) error
	PublicMessagesList(http.ResponseWriter, *http.Request) error
	PublicAttachments(http.ResponseWriter, *http.Request) error
	MemberMessages(http.ResponseWriter, *http.Request) error
	MemberMessagesList(http.ResponseWriter, *http.Request) error
	MemberAttachments(http.ResponseWriter, *http.Request) error
}

type MessagePaths struct {
	PublicMessagesPath       string
	PublicMessagesListPath   string
	PublicAttachmentsPrefix  string
	MemberMessagesPath       string
	MemberMessagesListPrefix string
	MemberAttachmentsPrefix  string
}

type messageEndpoints struct {
	threads  *threadservice.Service
	messages *messageservice.Service
	storage  storage.Storage
	paths    MessagePaths
	notify   func(event *realtime.Event)
}

func NewMessageEndpoints(threads *threadservice.Service, messages *messageservice.Service, store storage.Storage, paths MessagePaths) MessageEndpoints {
	return &messageEndpoints{
		threads:  threads,
		messages: messages,
		storage:  store,
		paths:    paths,
		notify:   publishEvent,
	}
}

func (h *messageEndpoints) PublicMessages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handlePostGuestMessage,
	})
}

func (h *messageEndpoints) PublicMessagesList(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleListGuestMessages,
	})
}

func (h *messageEndpoints) PublicAttachments(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleGuestAttachments,
	})
}

func (h *messageEndpoints) MemberMessages(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handlePostMemberMessage,
	})
}

func (h *messageEndpoints) MemberMessagesList(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleListMemberMessages,
	})
}

func (h *messageEndpoints) MemberAttachments(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodPost: h.handleMemberAttachments,
	})
}

func (h *messageEndpoints) handlePostGuestMessage(w http.ResponseWriter, r *http.Request) error {
	var req dto.PostGuestMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode guest message request: %w", err),
		}
	}

	resolved, err := h.threads.ResolveThreadBySecret(r.Context(), req.WebsiteID, req.ThreadSecret)
	if err != nil {
		return threadServiceError(err)
	}

	view, err := h.messages.PostMessage(r.Context(), resolved, 0, req.Message, req.Attachments)
	if err != nil {
		return messageServiceError(err)
	}

	h.notify(&realtime.Event{
		ThreadID:   resolved.ThreadID,
		Kind:       realtime.EventUnseen,
		TargetSide: model.SideMember,
	})

	return WriteJSON(w, http.StatusCreated, dto.APIResponse{
		Success: true,
		Result:  toMessageResponse(view),
	})
}

// handleListGuestMessages pages through the thread newest first. Pulling
// a page is how the widget reads, so member messages get their seen flag
// here.
func (h *messageEndpoints) handleListGuestMessages(w http.ResponseWriter, r *http.Request) error {
	var req dto.ListGuestMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode guest message list request: %w", err),
		}
	}

	resolved, err := h.threads.ResolveThreadBySecret(r.Context(), req.WebsiteID, req.ThreadSecret)
	if err != nil {
		return threadServiceError(err)
	}

	page, err := h.messages.ListMessages(r.Context(), resolved.ThreadID, req.Page, messageservice.DefaultPageSize)
	if err != nil {
		return messageServiceError(err)
	}

	if err := h.messages.MarkSeenForReader(r.Context(), resolved.ThreadID, model.SideGuest); err != nil {
		return messageServiceError(err)
	}

	return writeResult(w, http.StatusOK, toMessagePage(page))
}

func (h *messageEndpoints) handlePostMemberMessage(w http.ResponseWriter, r *http.Request) error {
	identity, err := h.threads.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return threadServiceError(err)
	}

	var req dto.PostMemberMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode member message request: %w", err),
		}
	}

	resolved, err := h.threads.ResolveThreadForMember(r.Context(), identity, req.ThreadID)
	if err != nil {
		return threadServiceError(err)
	}

	authorID := identity.MemberID
	if authorID == 0 {
		authorID = resolved.MemberID
	}

	view, err := h.messages.PostMessage(r.Context(), resolved, authorID, req.Message, req.Attachments)
	if err != nil {
		return messageServiceError(err)
	}

	h.notify(&realtime.Event{
		ThreadID:   resolved.ThreadID,
		Kind:       realtime.EventUnseen,
		TargetSide: model.SideGuest,
	})

	return WriteJSON(w, http.StatusCreated, dto.APIResponse{
		Success: true,
		Result:  toMessageResponse(view),
	})
}

func (h *messageEndpoints) handleListMemberMessages(w http.ResponseWriter, r *http.Request) error {
	threadID, err := extractSingleSegment(r.URL.Path, h.paths.MemberMessagesListPrefix)
	if err != nil {
		return err
	}

	identity, err := h.threads.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return threadServiceError(err)
	}

	resolved, err := h.threads.ResolveThreadForMember(r.Context(), identity, threadID)
	if err != nil {
		return threadServiceError(err)
	}

	var req dto.ListMemberMessagesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid request payload",
			ErrorLog:   fmt.Errorf("decode member message list request: %w", err),
		}
	}

	page, err := h.messages.ListMessages(r.Context(), resolved.ThreadID, req.Page, messageservice.DefaultPageSize)
	if err != nil {
		return messageServiceError(err)
	}

	if err := h.messages.MarkSeenForReader(r.Context(), resolved.ThreadID, model.SideMember); err != nil {
		return messageServiceError(err)
	}

	return writeResult(w, http.StatusOK, toMessagePage(page))
}

// handleGuestAttachments stores widget uploads. The file count is
// checked before anything touches storage, so an oversized batch leaves
// no partial files behind.
func (h *messageEndpoints) handleGuestAttachments(w http.ResponseWriter, r *http.Request) error {
	websiteID, secret, err := extractTwoSegments(r.URL.Path, h.paths.PublicAttachmentsPrefix)
	if err != nil {
		return err
	}

	if _, err := h.threads.ResolveThreadBySecret(r.Context(), websiteID, secret); err != nil {
		return threadServiceError(err)
	}

	return h.uploadAttachments(w, r)
}

func (h *messageEndpoints) handleMemberAttachments(w http.ResponseWriter, r *http.Request) error {
	threadID, err := extractSingleSegment(r.URL.Path, h.paths.MemberAttachmentsPrefix)
	if err != nil {
		return err
	}

	identity, err := h.threads.IdentityFromAuthorizationHeader(r.Header.Get("Authorization"))
	if err != nil {
		return threadServiceError(err)
	}

	if _, err := h.threads.ResolveThreadForMember(r.Context(), identity, threadID); err != nil {
		return threadServiceError(err)
	}

	return h.uploadAttachments(w, r)
}

func (h *messageEndpoints) uploadAttachments(w http.ResponseWriter, r *http.Request) error {
	if h.storage == nil {
		return &HTTPError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    "Uploads are not available",
			ErrorLog:   fmt.Errorf("attachment storage not configured"),
		}
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Invalid upload payload",
			ErrorLog:   fmt.Errorf("parse multipart form: %w", err),
		}
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "No files provided",
			ErrorLog:   fmt.Errorf("upload without files"),
		}
	}
	if len(files) > messageservice.MaxAttachmentsPerMessage {
		return &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Too many files",
			ErrorLog:   fmt.Errorf("upload of %d files exceeds limit", len(files)),
		}
	}

	links := make([]string, 0, len(files))
	for _, header := range files {
		link, err := h.uploadOne(r, header)
		if err != nil {
			return err
		}
		links = append(links, link)
	}

	return writeResult(w, http.StatusOK, dto.AttachmentUploadResult{Links: links})
}

func (h *messageEndpoints) uploadOne(r *http.Request, header *multipart.FileHeader) (string, error) {
	file, err := header.Open()
	if err != nil {
		return "", &HTTPError{
			StatusCode: http.StatusBadRequest,
			Message:    "Unreadable file",
			ErrorLog:   fmt.Errorf("open uploaded file %s: %w", header.Filename, err),
		}
	}
	defer file.Close()

	name := uuid.NewString() + strings.ToLower(filepath.Ext(header.Filename))
	contentType := header.Header.Get("Content-Type")

	link, err := h.storage.Upload(r.Context(), name, contentType, file)
	if err != nil {
		return "", &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Upload failed",
			ErrorLog:   fmt.Errorf("store uploaded file %s: %w", header.Filename, err),
		}
	}
	return link, nil
}

func toMessagePage(page messageservice.MessagePage) dto.PageResult {
	elements := make([]dto.MessageResponse, 0, len(page.Elements))
	for _, view := range page.Elements {
		elements = append(elements, toMessageResponse(view))
	}
	return dto.PageResult{
		Elements: elements,
		Total:    page.Total,
		Page:     page.Page,
	}
}

func extractSingleSegment(path, prefix string) (string, error) {
	if prefix == "" {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("route not configured")}
	}
	trimmed := strings.Trim(strings.TrimPrefix(path, prefix), "/")
	if trimmed == "" || strings.Contains(trimmed, "/") {
		return "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid path: %s", path)}
	}
	return trimmed, nil
}

func extractTwoSegments(path, prefix string) (string, string, error) {
	if prefix == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("route not configured")}
	}
	trimmed := strings.TrimPrefix(path, prefix)
	if trimmed == path {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("path mismatch: %s", path)}
	}
	parts := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", &HTTPError{StatusCode: http.StatusNotFound, Message: "Not found", ErrorLog: fmt.Errorf("invalid path: %s", path)}
	}
	return parts[0], parts[1], nil
}
