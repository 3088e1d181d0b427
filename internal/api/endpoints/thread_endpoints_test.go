package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/middleware"
	"livechat-backend/internal/dto"
	"livechat-backend/internal/geo"
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/model"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/realtime"
	messageservice "livechat-backend/internal/service/message"
	threadservice "livechat-backend/internal/service/thread"
	websiteservice "livechat-backend/internal/service/website"
)

// store backs all repository fakes so endpoint flows share one dataset.
type store struct {
	mu          sync.Mutex
	websites    map[string]model.WebsiteItem
	guests      map[string]model.GuestItem
	threads     map[string]model.ThreadItem
	messages    map[int64]model.MessageItem
	attachments map[int64][]model.AttachmentItem
	typing      map[string]model.TypingItem

	conversationWrites int
	cascades           []string
}

func newStore() *store {
	return &store{
		websites:    map[string]model.WebsiteItem{},
		guests:      map[string]model.GuestItem{},
		threads:     map[string]model.ThreadItem{},
		messages:    map[int64]model.MessageItem{},
		attachments: map[int64][]model.AttachmentItem{},
		typing:      map[string]model.TypingItem{},
	}
}

type threadRepo struct{ s *store }

func (r *threadRepo) GetWebsite(_ context.Context, websiteID string) (model.WebsiteItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	website, ok := r.s.websites[websiteID]
	if !ok {
		return model.WebsiteItem{}, threadservice.ErrNotFound
	}
	return website, nil
}

func (r *threadRepo) CreateConversation(_ context.Context, guest model.GuestItem, thread model.ThreadItem, first model.MessageItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.conversationWrites++
	r.s.guests[guest.GuestID] = guest
	r.s.threads[thread.ThreadID] = thread
	r.s.messages[first.MessageID] = first
	return nil
}

func (r *threadRepo) GetThread(_ context.Context, threadID string) (model.ThreadItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	thread, ok := r.s.threads[threadID]
	if !ok {
		return model.ThreadItem{}, threadservice.ErrNotFound
	}
	return thread, nil
}

func (r *threadRepo) GetThreadBySecret(_ context.Context, secret string) (model.ThreadItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, thread := range r.s.threads {
		if thread.ThreadSecret == secret {
			return thread, nil
		}
	}
	return model.ThreadItem{}, threadservice.ErrNotFound
}

func (r *threadRepo) ListThreadsByWebsite(_ context.Context, websiteID string) ([]model.ThreadItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var threads []model.ThreadItem
	for _, thread := range r.s.threads {
		if thread.WebsiteID == websiteID {
			threads = append(threads, thread)
		}
	}
	return threads, nil
}

func (r *threadRepo) GetGuest(_ context.Context, guestID string) (model.GuestItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	guest, ok := r.s.guests[guestID]
	if !ok {
		return model.GuestItem{}, threadservice.ErrNotFound
	}
	return guest, nil
}

func (r *threadRepo) GetGuests(_ context.Context, guestIDs []string) (map[string]model.GuestItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	guests := make(map[string]model.GuestItem, len(guestIDs))
	for _, id := range guestIDs {
		if guest, ok := r.s.guests[id]; ok {
			guests[id] = guest
		}
	}
	return guests, nil
}

func (r *threadRepo) DeleteThreadCascade(_ context.Context, threadID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.cascades = append(r.s.cascades, threadID)
	delete(r.s.threads, threadID)
	for id, msg := range r.s.messages {
		if msg.ThreadID == threadID {
			delete(r.s.messages, id)
			delete(r.s.attachments, id)
		}
	}
	return nil
}

func (r *threadRepo) PutTyping(_ context.Context, marker model.TypingItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.typing[marker.PK] = marker
	return nil
}

func (r *threadRepo) GetTyping(_ context.Context, threadID string, side model.Side) (model.TypingItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	marker, ok := r.s.typing[model.TypingPK(threadID, side)]
	if !ok {
		return model.TypingItem{}, threadservice.ErrNotFound
	}
	return marker, nil
}

type messageRepo struct{ s *store }

func (r *messageRepo) CreateMessageWithAttachments(_ context.Context, msg model.MessageItem, attachments []model.AttachmentItem) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.messages[msg.MessageID] = msg
	r.s.attachments[msg.MessageID] = attachments
	return nil
}

func (r *messageRepo) ListMessagesByThread(_ context.Context, threadID string) ([]model.MessageItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.MessageItem
	for _, msg := range r.s.messages {
		if msg.ThreadID == threadID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *messageRepo) ListAttachmentsForMessage(_ context.Context, messageID int64) ([]model.AttachmentItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.s.attachments[messageID], nil
}

func (r *messageRepo) MarkSeen(_ context.Context, messageID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	msg, ok := r.s.messages[messageID]
	if !ok {
		return messageservice.ErrNotFound
	}
	msg.Seen = true
	r.s.messages[messageID] = msg
	return nil
}

func (r *messageRepo) ListUnseenGuestMessages(_ context.Context) ([]model.MessageItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []model.MessageItem
	for _, msg := range r.s.messages {
		if !msg.Seen && msg.MemberID == 0 {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (r *messageRepo) GetThread(_ context.Context, threadID string) (model.ThreadItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	thread, ok := r.s.threads[threadID]
	if !ok {
		return model.ThreadItem{}, messageservice.ErrNotFound
	}
	return thread, nil
}

func (r *messageRepo) GetWebsite(_ context.Context, websiteID string) (model.WebsiteItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	website, ok := r.s.websites[websiteID]
	if !ok {
		return model.WebsiteItem{}, messageservice.ErrNotFound
	}
	return website, nil
}

type websiteRepo struct{ s *store }

func (r *websiteRepo) GetWebsite(_ context.Context, websiteID string) (model.WebsiteItem, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	website, ok := r.s.websites[websiteID]
	if !ok {
		return model.WebsiteItem{}, websiteservice.ErrNotFound
	}
	return website, nil
}

type stubResolver struct{}

func (stubResolver) Resolve(context.Context, string) (geo.Location, bool) {
	return geo.Location{}, false
}

// fakeStorage records uploads instead of writing anywhere.
type fakeStorage struct {
	mu      sync.Mutex
	uploads []string
}

func (f *fakeStorage) Upload(_ context.Context, name string, _ string, r io.Reader) (string, error) {
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, name)
	return "https://cdn.example.com/" + name, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*realtime.Event
}

func (e *eventRecorder) record(event *realtime.Event) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.events = append(e.events, event)
}

func (e *eventRecorder) kinds() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.events))
	for _, event := range e.events {
		out = append(out, event.Kind)
	}
	return out
}

// Per-setup listen addrs keep the Prometheus registrations distinct.
var testServerSeq int64

type testEnv struct {
	mux      *http.ServeMux
	store    *store
	storage  *fakeStorage
	events   *eventRecorder
	threads  *threadservice.Service
	messages *messageservice.Service
}

func setupTestHandler(t *testing.T) *testEnv {
	t.Helper()

	s := newStore()

	clockMu := sync.Mutex{}
	current := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		current = current.Add(time.Millisecond)
		return current
	}

	threads := threadservice.NewWithRepository(&threadRepo{s: s}, stubResolver{}, clock)
	messages := messageservice.NewWithRepository(&messageRepo{s: s}, clock)
	websites := websiteservice.NewWithRepository(&websiteRepo{s: s})
	uploads := &fakeStorage{}
	events := &eventRecorder{}

	originalUser := internaljwt.RoleSecrets[internaljwt.RoleUser]
	originalAdmin := internaljwt.RoleSecrets[internaljwt.RoleAdmin]
	internaljwt.RoleSecrets[internaljwt.RoleUser] = "jwt-test-secret"
	internaljwt.RoleSecrets[internaljwt.RoleAdmin] = "jwt-admin-secret"
	t.Cleanup(func() {
		internaljwt.RoleSecrets[internaljwt.RoleUser] = originalUser
		internaljwt.RoleSecrets[internaljwt.RoleAdmin] = originalAdmin
	})

	queueManager := queue.NewRequestQueueManager(10, 1)
	t.Cleanup(queueManager.Shutdown)

	addr := fmt.Sprintf(":%d", 20000+atomic.AddInt64(&testServerSeq, 1))
	server := api.NewAPIServer(addr, queueManager, nil, nil, api.Services{
		Threads:  threads,
		Messages: messages,
		Websites: websites,
		Storage:  uploads,
	})

	publicThreads := NewThreadEndpoints(threads, messages, ThreadPaths{
		PublicThreadsPath:  "/api/public/v1/threads",
		PublicThreadPrefix: "/api/public/v1/threads/",
	}).(*threadEndpoints)
	publicThreads.notify = events.record

	memberThreads := NewThreadEndpoints(threads, messages, ThreadPaths{
		MemberThreadPrefix:     "/api/client/v1/user/threads/",
		MemberThreadListPrefix: "/api/client/v1/user/threads/list/",
	}).(*threadEndpoints)
	memberThreads.notify = events.record

	publicMessages := NewMessageEndpoints(threads, messages, uploads, MessagePaths{
		PublicMessagesPath:      "/api/public/v1/messages",
		PublicMessagesListPath:  "/api/public/v1/messages/list",
		PublicAttachmentsPrefix: "/api/public/v1/messages/attachments/",
	}).(*messageEndpoints)
	publicMessages.notify = events.record

	memberMessages := NewMessageEndpoints(threads, messages, uploads, MessagePaths{
		MemberMessagesPath:       "/api/client/v1/user/messages",
		MemberMessagesListPrefix: "/api/client/v1/user/messages/list/",
		MemberAttachmentsPrefix:  "/api/client/v1/user/messages/attachments/",
	}).(*messageEndpoints)
	memberMessages.notify = events.record

	widget := NewWidgetEndpoints(websites, "/api/public/v1/widget/")

	mux := http.NewServeMux()
	mux.HandleFunc("/api/public/v1/threads", server.MakeHTTPHandleFunc(publicThreads.PublicThreads))
	mux.HandleFunc("/api/public/v1/threads/", server.MakeHTTPHandleFunc(publicThreads.PublicThreadActions))
	mux.HandleFunc("/api/public/v1/messages", server.MakeHTTPHandleFunc(publicMessages.PublicMessages))
	mux.HandleFunc("/api/public/v1/messages/list", server.MakeHTTPHandleFunc(publicMessages.PublicMessagesList))
	mux.HandleFunc("/api/public/v1/messages/attachments/", server.MakeHTTPHandleFunc(publicMessages.PublicAttachments))
	mux.HandleFunc("/api/public/v1/widget/", server.MakeHTTPHandleFunc(widget.WidgetInfo))
	mux.HandleFunc("/api/client/v1/user/threads/", server.MakeHTTPHandleFunc(memberThreads.MemberThread, middleware.ValidateAnyJWT))
	mux.HandleFunc("/api/client/v1/user/threads/list/", server.MakeHTTPHandleFunc(memberThreads.MemberThreadList, middleware.ValidateAnyJWT))
	mux.HandleFunc("/api/client/v1/user/messages", server.MakeHTTPHandleFunc(memberMessages.MemberMessages, middleware.ValidateAnyJWT))
	mux.HandleFunc("/api/client/v1/user/messages/list/", server.MakeHTTPHandleFunc(memberMessages.MemberMessagesList, middleware.ValidateAnyJWT))
	mux.HandleFunc("/api/client/v1/user/messages/attachments/", server.MakeHTTPHandleFunc(memberMessages.MemberAttachments, middleware.ValidateAnyJWT))

	return &testEnv{
		mux:      mux,
		store:    s,
		storage:  uploads,
		events:   events,
		threads:  threads,
		messages: messages,
	}
}

func seedTestWebsite(env *testEnv, enabled bool) model.WebsiteItem {
	website := model.WebsiteItem{
		WebsiteID:  "site-1",
		MemberID:   7,
		Name:       "Acme Support",
		URL:        "https://acme.example",
		Enabled:    enabled,
		HeaderText: "How can we help?",
		OwnerEmail: "owner@acme.example",
	}
	env.store.websites[website.WebsiteID] = website
	return website
}

func memberToken(t *testing.T, memberID int64) string {
	t.Helper()
	token, err := internaljwt.CreateToken(internaljwt.Member{Id: memberID, Email: "agent@acme.example"}, internaljwt.RoleUser, time.Now().Add(time.Hour).Unix())
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	return token
}

func doJSON(t *testing.T, mux *http.ServeMux, method, path string, payload interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func createTestThread(t *testing.T, env *testEnv) dto.CreateThreadResponse {
	t.Helper()

	rec := doJSON(t, env.mux, http.MethodPost, "/api/public/v1/threads", dto.CreateThreadRequest{
		WebsiteID: "site-1",
		Name:      "Jordan",
		Email:     "jordan@example.com",
		Message:   "hello, I need a hand",
	}, "")

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 from create thread, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp dto.CreateThreadResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode create thread response: %v", err)
	}
	return resp
}

func TestCreateThreadEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)

	resp := createTestThread(t, env)

	if !resp.Success {
		t.Error("expected success=true")
	}
	if len(resp.Thread.ThreadSecret) != threadservice.ThreadSecretLength {
		t.Errorf("expected %d char secret, got %d", threadservice.ThreadSecretLength, len(resp.Thread.ThreadSecret))
	}
	if resp.Thread.ThreadID == "" {
		t.Error("expected thread id")
	}
	if env.store.conversationWrites != 1 {
		t.Errorf("expected one conversation write, got %d", env.store.conversationWrites)
	}

	kinds := env.events.kinds()
	if len(kinds) != 1 || kinds[0] != realtime.EventUnseen {
		t.Errorf("create thread should publish one unseen event, got %v", kinds)
	}
}

func TestCreateThreadChatDisabledEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, false)

	rec := doJSON(t, env.mux, http.MethodPost, "/api/public/v1/threads", dto.CreateThreadRequest{
		WebsiteID: "site-1",
		Name:      "Jordan",
		Email:     "jordan@example.com",
		Message:   "hello",
	}, "")

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", rec.Code)
	}

	var resp dto.APIResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Error("expected success=false")
	}
	if resp.Message != "ChatDisabled" {
		t.Errorf("expected message ChatDisabled, got %q", resp.Message)
	}
	if env.store.conversationWrites != 0 {
		t.Errorf("disabled website must not write rows, got %d", env.store.conversationWrites)
	}
	if len(env.store.threads) != 0 || len(env.store.guests) != 0 || len(env.store.messages) != 0 {
		t.Error("store should stay empty after a rejected create")
	}
}

func TestGuestTypingEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)

	rec := doJSON(t, env.mux, http.MethodPost,
		"/api/public/v1/threads/site-1/"+created.Thread.ThreadSecret+"/typing", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	if _, ok := env.store.typing[model.TypingPK(created.Thread.ThreadID, model.SideGuest)]; !ok {
		t.Error("typing marker should be stored for the guest side")
	}

	// Wrong secret gets the generic not-found.
	rec = doJSON(t, env.mux, http.MethodPost,
		"/api/public/v1/threads/site-1/"+strings.Repeat("0", 64)+"/typing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for bad secret, got %d", rec.Code)
	}
}

func TestMemberThreadInfoEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)
	token := memberToken(t, 7)

	rec := doJSON(t, env.mux, http.MethodGet, "/api/client/v1/user/threads/"+created.Thread.ThreadID, nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                   `json:"success"`
		Result  dto.ThreadInfoResponse `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Guest.Name != "Jordan" {
		t.Errorf("expected guest Jordan, got %q", resp.Result.Guest.Name)
	}
	if resp.Result.Thread.ThreadSecret != "" {
		t.Error("member responses must not leak the thread secret")
	}

	// Opening the thread marks the guest's opening message as read.
	for _, msg := range env.store.messages {
		if msg.MemberID == 0 && !msg.Seen {
			t.Error("guest message should be seen after the member opened the thread")
		}
	}
}

func TestMemberThreadEndpointsRequireAuth(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)

	rec := doJSON(t, env.mux, http.MethodGet, "/api/client/v1/user/threads/"+created.Thread.ThreadID, nil, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	// A token for a member who does not own the website.
	rec = doJSON(t, env.mux, http.MethodGet, "/api/client/v1/user/threads/"+created.Thread.ThreadID, nil, memberToken(t, 99))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-owner, got %d", rec.Code)
	}
}

func TestDeleteThreadEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	created := createTestThread(t, env)
	token := memberToken(t, 7)

	rec := doJSON(t, env.mux, http.MethodDelete, "/api/client/v1/user/threads/"+created.Thread.ThreadID, nil, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.store.cascades) != 1 || env.store.cascades[0] != created.Thread.ThreadID {
		t.Errorf("expected one cascade for the thread, got %v", env.store.cascades)
	}
}

func TestListThreadsEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)
	createTestThread(t, env)
	token := memberToken(t, 7)

	rec := doJSON(t, env.mux, http.MethodPost, "/api/client/v1/user/threads/list/site-1", dto.ListThreadsRequest{Page: 1}, token)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool `json:"success"`
		Result  struct {
			Elements []dto.ThreadListElement `json:"elements"`
			Total    int                     `json:"total"`
			Page     int                     `json:"page"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Total != 1 || len(resp.Result.Elements) != 1 {
		t.Fatalf("expected one thread, got %+v", resp.Result)
	}
	if resp.Result.Elements[0].GuestName != "Jordan" {
		t.Errorf("expected guest name Jordan, got %q", resp.Result.Elements[0].GuestName)
	}
}

func TestWidgetInfoEndpoint(t *testing.T) {
	env := setupTestHandler(t)
	seedTestWebsite(env, true)

	rec := doJSON(t, env.mux, http.MethodGet, "/api/public/v1/widget/site-1", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                   `json:"success"`
		Result  dto.WidgetInfoResponse `json:"result"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Result.Name != "Acme Support" || !resp.Result.Enabled {
		t.Errorf("unexpected widget info: %+v", resp.Result)
	}

	rec = doJSON(t, env.mux, http.MethodGet, "/api/public/v1/widget/unknown-site", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown website, got %d", rec.Code)
	}
}
