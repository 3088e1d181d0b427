package endpoints

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"livechat-backend/internal/dto"
	"livechat-backend/internal/model"
	"livechat-backend/internal/realtime"
)

type pageEnvelope struct {
	Success bool `json:"success"`
	Result  struct {
		Elements []dto.MessageResponse `json:"elements"`
		Total    int                   `json:"total"`
		Page     int                   `json:"page"`
	} `json:"result"`
}

func listGuestMessages(t *testing.T, env *testEnv, secret string, page int) pageEnvelope {
	t.Helper()

	rec := doJSON(t, env.mux, http.MethodPost, "/api/public/v1/messages/list", dto.ListGuestMessagesRequest{
		WebsiteID:    "site-1",
		ThreadSecret: secret,
		Page:         page,
	}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from guest list, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp pageEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode guest list response: %v", err)
	}
	return resp
}

func TestConversationFlowKeepsOrder(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)
	token := memberToken(t, 7)

	rec := doJSON(t, env.mux, http.MethodPost, "/api/client/v1/user/messages", dto.PostMemberMessageRequest{
		ThreadID: created.Thread.ThreadID,
		Message:  "hi Jordan, happy to help",
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from member post, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, env.mux, http.MethodPost, "/api/public/v1/messages", dto.PostGuestMessageRequest{
		WebsiteID:    "site-1",
		ThreadSecret: created.Thread.ThreadSecret,
		Message:      "thanks, here is the problem",
	}, "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from guest post, got %d: %s", rec.Code, rec.Body.String())
	}

	page := listGuestMessages(t, env, created.Thread.ThreadSecret, 1)
	if page.Result.Total != 3 {
		t.Fatalf("expected 3 messages, got %d", page.Result.Total)
	}

	// Newest first, and the member reply sits between the two guest messages.
	got := page.Result.Elements
	if got[0].Message != "thanks, here is the problem" || got[0].MemberID != 0 {
		t.Errorf("unexpected newest message: %+v", got[0])
	}
	if got[1].Message != "hi Jordan, happy to help" || got[1].MemberID != 7 {
		t.Errorf("unexpected middle message: %+v", got[1])
	}
	if got[2].Message != "hello, I need a hand" {
		t.Errorf("unexpected oldest message: %+v", got[2])
	}
	for i := 1; i < len(got); i++ {
		if got[i].MessageID >= got[i-1].MessageID {
			t.Errorf("messages must be strictly descending by id, got %d then %d", got[i-1].MessageID, got[i].MessageID)
		}
	}
}

func TestGuestListMarksMemberMessagesSeen(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)
	token := memberToken(t, 7)

	rec := doJSON(t, env.mux, http.MethodPost, "/api/client/v1/user/messages", dto.PostMemberMessageRequest{
		ThreadID: created.Thread.ThreadID,
		Message:  "any update?",
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	listGuestMessages(t, env, created.Thread.ThreadSecret, 1)

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	for _, msg := range env.store.messages {
		if msg.MemberID != 0 && !msg.Seen {
			t.Error("member message should be seen after the guest listed the thread")
		}
		if msg.MemberID == 0 && msg.Seen {
			t.Error("guest message must stay unseen until the member reads it")
		}
	}
}

func TestPostMemberMessagePublishesGuestEvent(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)
	token := memberToken(t, 7)

	before := len(env.events.kinds())
	rec := doJSON(t, env.mux, http.MethodPost, "/api/client/v1/user/messages", dto.PostMemberMessageRequest{
		ThreadID: created.Thread.ThreadID,
		Message:  "checking in",
	}, token)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	env.events.mu.Lock()
	defer env.events.mu.Unlock()
	if len(env.events.events) != before+1 {
		t.Fatalf("expected one new event, got %d", len(env.events.events)-before)
	}
	event := env.events.events[len(env.events.events)-1]
	if event.Kind != realtime.EventUnseen || event.TargetSide != model.SideGuest || event.ThreadID != created.Thread.ThreadID {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestPostGuestMessageRejectsEmpty(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)

	rec := doJSON(t, env.mux, http.MethodPost, "/api/public/v1/messages", dto.PostGuestMessageRequest{
		WebsiteID:    "site-1",
		ThreadSecret: created.Thread.ThreadSecret,
		Message:      "   ",
	}, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "EmptyMessage" {
		t.Errorf("expected EmptyMessage, got %q", resp.Message)
	}
}

func multipartUpload(t *testing.T, fileCount int) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for i := 0; i < fileCount; i++ {
		part, err := writer.CreateFormFile("files", fmt.Sprintf("screenshot-%d.png", i))
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("png-bytes")); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return body, writer.FormDataContentType()
}

func TestGuestAttachmentUpload(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)

	body, contentType := multipartUpload(t, 3)
	req := httptest.NewRequest(http.MethodPost,
		"/api/public/v1/messages/attachments/site-1/"+created.Thread.ThreadSecret, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                       `json:"success"`
		Result  dto.AttachmentUploadResult `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Result.Links) != 3 {
		t.Fatalf("expected 3 links, got %d", len(resp.Result.Links))
	}
	if len(env.storage.uploads) != 3 {
		t.Errorf("expected 3 stored files, got %d", len(env.storage.uploads))
	}
}

func TestAttachmentUploadRejectsTooManyFiles(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)

	body, contentType := multipartUpload(t, 4)
	req := httptest.NewRequest(http.MethodPost,
		"/api/public/v1/messages/attachments/site-1/"+created.Thread.ThreadSecret, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Message != "Too many files" {
		t.Errorf("expected Too many files, got %q", resp.Message)
	}
	if len(env.storage.uploads) != 0 {
		t.Errorf("oversized batch must not touch storage, got %d uploads", len(env.storage.uploads))
	}
}

func TestMemberAttachmentUploadRequiresOwnership(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)

	body, contentType := multipartUpload(t, 1)
	req := httptest.NewRequest(http.MethodPost,
		"/api/client/v1/user/messages/attachments/"+created.Thread.ThreadID, body)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Authorization", "Bearer "+memberToken(t, 99))
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.storage.uploads) != 0 {
		t.Errorf("forbidden upload must not touch storage, got %d uploads", len(env.storage.uploads))
	}
}

func TestMemberListMarksGuestMessagesSeen(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)
	token := memberToken(t, 7)

	rec := doJSON(t, env.mux, http.MethodPost,
		"/api/client/v1/user/messages/list/"+created.Thread.ThreadID,
		dto.ListMemberMessagesRequest{Page: 1}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp pageEnvelope
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Total != 1 {
		t.Fatalf("expected the opening message, got total %d", resp.Result.Total)
	}

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	for _, msg := range env.store.messages {
		if msg.MemberID == 0 && !msg.Seen {
			t.Error("guest message should be seen after the member listed the thread")
		}
	}
}
