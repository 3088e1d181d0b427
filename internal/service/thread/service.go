package thread

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
	"livechat-backend/internal/geo"
	internaljwt "livechat-backend/internal/jwt"
	"livechat-backend/internal/model"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation   ErrorCode = "validation_error"
	ErrorCodeUnauthorized ErrorCode = "unauthorized"
	ErrorCodeForbidden    ErrorCode = "forbidden"
	ErrorCodeNotFound     ErrorCode = "not_found"
	ErrorCodeChatDisabled ErrorCode = "chat_disabled"
	ErrorCodeInternal     ErrorCode = "internal_error"
)

type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Identity is a validated member caller. Admin identities pass every
// ownership check.
type Identity struct {
	MemberID int64
	Email    string
	Admin    bool
}

const (
	maxGuestNameLength  = 100
	maxGuestEmailLength = 200

	// ThreadSecretLength is the hex-encoded length of a thread secret.
	ThreadSecretLength = 64

	TypingWindowSeconds = 3
)

type CreateThreadParams struct {
	WebsiteID string
	GuestName string
	GuestEmail string
	Message   string
	GuestIP   string
}

type ThreadResult struct {
	Thread       model.ThreadItem
	Guest        model.GuestItem
	FirstMessage model.MessageItem
}

type ThreadInfoResult struct {
	Thread model.ThreadItem
	Guest  model.GuestItem
}

type ThreadPage struct {
	Elements []ThreadInfoResult
	Total    int
	Page     int
}

type Service struct {
	repo             Repository
	geo              geo.Resolver
	now              func() time.Time
	maxMessageLength int
}

func New(db *database.Database, c *cache.Cache, resolver geo.Resolver) *Service {
	return &Service{
		repo:             NewDynamoRepository(db, c),
		geo:              resolver,
		now:              time.Now,
		maxMessageLength: 2000,
	}
}

func NewWithRepository(repo Repository, resolver geo.Resolver, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:             repo,
		geo:              resolver,
		now:              now,
		maxMessageLength: 2000,
	}
}

func (s *Service) SetMaxMessageLength(limit int) {
	if limit > 0 {
		s.maxMessageLength = limit
	}
}

// CreateThread validates the target website first; nothing is written
// when the website is missing or has chat turned off.
func (s *Service) CreateThread(ctx context.Context, params CreateThreadParams) (ThreadResult, error) {
	websiteID := strings.TrimSpace(params.WebsiteID)
	name := strings.TrimSpace(params.GuestName)
	email := normalizeEmail(params.GuestEmail)
	messageText := strings.TrimSpace(params.Message)

	if websiteID == "" {
		return ThreadResult{}, newError(ErrorCodeValidation, "websiteId is required", nil)
	}
	if name == "" {
		return ThreadResult{}, newError(ErrorCodeValidation, "name is required", nil)
	}
	if len(name) > maxGuestNameLength {
		return ThreadResult{}, newError(ErrorCodeValidation, "name is too long", nil)
	}
	if !isValidEmail(email) || len(email) > maxGuestEmailLength {
		return ThreadResult{}, newError(ErrorCodeValidation, "a valid email is required", nil)
	}
	if messageText == "" {
		return ThreadResult{}, newError(ErrorCodeValidation, "message is required", nil)
	}
	if len(messageText) > s.maxMessageLength {
		return ThreadResult{}, newError(ErrorCodeValidation, "message is too long", nil)
	}

	website, err := s.repo.GetWebsite(ctx, websiteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ThreadResult{}, newError(ErrorCodeNotFound, "Not found", err)
		}
		return ThreadResult{}, newError(ErrorCodeInternal, "failed to load website", err)
	}
	if !website.Enabled {
		return ThreadResult{}, newError(ErrorCodeChatDisabled, "ChatDisabled", nil)
	}

	now := s.now().UTC()

	guest := model.GuestItem{
		GuestID: uuid.NewString(),
		Name:    name,
		Email:   email,
		IP:      strings.TrimSpace(params.GuestIP),
		Created: now.Unix(),
	}

	// Best effort only. A dead geo endpoint must never block a chat.
	if s.geo != nil {
		if loc, ok := s.geo.Resolve(ctx, guest.IP); ok {
			guest.Latitude = loc.Latitude
			guest.Longitude = loc.Longitude
		}
	}

	secret, err := generateThreadSecret()
	if err != nil {
		return ThreadResult{}, newError(ErrorCodeInternal, "failed to generate thread secret", err)
	}

	thread := model.ThreadItem{
		ThreadID:     uuid.NewString(),
		WebsiteID:    website.WebsiteID,
		GuestID:      guest.GuestID,
		MemberID:     website.MemberID,
		ThreadSecret: secret,
		Created:      now.Unix(),
	}

	first := model.MessageItem{
		MessageID: now.UnixNano(),
		ThreadID:  thread.ThreadID,
		MemberID:  0,
		Text:      messageText,
		Seen:      false,
		Created:   now.Unix(),
	}

	if err := s.repo.CreateConversation(ctx, guest, thread, first); err != nil {
		return ThreadResult{}, newError(ErrorCodeInternal, "failed to create thread", err)
	}

	return ThreadResult{
		Thread:       thread,
		Guest:        guest,
		FirstMessage: first,
	}, nil
}

// ResolveThreadBySecret authorizes every guest-side call. The lookup is
// an exact match on the full secret; the website check afterwards uses a
// constant-time comparison. Any mismatch yields the same generic error.
func (s *Service) ResolveThreadBySecret(ctx context.Context, websiteID, secret string) (model.ThreadItem, error) {
	websiteID = strings.TrimSpace(websiteID)
	secret = strings.TrimSpace(secret)
	if websiteID == "" || len(secret) != ThreadSecretLength {
		return model.ThreadItem{}, newError(ErrorCodeNotFound, "Not found", nil)
	}

	thread, err := s.repo.GetThreadBySecret(ctx, secret)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ThreadItem{}, newError(ErrorCodeNotFound, "Not found", err)
		}
		return model.ThreadItem{}, newError(ErrorCodeInternal, "failed to resolve thread", err)
	}

	if subtle.ConstantTimeCompare([]byte(thread.WebsiteID), []byte(websiteID)) != 1 {
		return model.ThreadItem{}, newError(ErrorCodeNotFound, "Not found", nil)
	}

	return thread, nil
}

// ResolveThreadForMember enforces that the caller owns the thread's
// website, or is an admin.
func (s *Service) ResolveThreadForMember(ctx context.Context, identity Identity, threadID string) (model.ThreadItem, error) {
	if identity.MemberID <= 0 && !identity.Admin {
		return model.ThreadItem{}, newError(ErrorCodeUnauthorized, "invalid member identity", nil)
	}

	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return model.ThreadItem{}, newError(ErrorCodeValidation, "threadId is required", nil)
	}

	thread, err := s.repo.GetThread(ctx, threadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ThreadItem{}, newError(ErrorCodeNotFound, "Not found", err)
		}
		return model.ThreadItem{}, newError(ErrorCodeInternal, "failed to load thread", err)
	}

	if identity.Admin {
		return thread, nil
	}

	website, err := s.repo.GetWebsite(ctx, thread.WebsiteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.ThreadItem{}, newError(ErrorCodeNotFound, "Not found", err)
		}
		return model.ThreadItem{}, newError(ErrorCodeInternal, "failed to load website", err)
	}

	if website.MemberID != identity.MemberID {
		return model.ThreadItem{}, newError(ErrorCodeForbidden, "member does not own this thread", nil)
	}

	return thread, nil
}

func (s *Service) DeleteThread(ctx context.Context, identity Identity, threadID string) error {
	if _, err := s.ResolveThreadForMember(ctx, identity, threadID); err != nil {
		return err
	}

	if err := s.repo.DeleteThreadCascade(ctx, threadID); err != nil {
		return newError(ErrorCodeInternal, "failed to delete thread", err)
	}
	return nil
}

func (s *Service) GetThreadInfo(ctx context.Context, identity Identity, threadID string) (ThreadInfoResult, error) {
	thread, err := s.ResolveThreadForMember(ctx, identity, threadID)
	if err != nil {
		return ThreadInfoResult{}, err
	}

	guest, err := s.repo.GetGuest(ctx, thread.GuestID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return ThreadInfoResult{}, newError(ErrorCodeInternal, "failed to load guest", err)
	}

	return ThreadInfoResult{
		Thread: thread,
		Guest:  guest,
	}, nil
}

// ListThreads powers the dashboard: newest first, optional substring
// search over guest name and email.
func (s *Service) ListThreads(ctx context.Context, identity Identity, websiteID, search string, page, pageSize int) (ThreadPage, error) {
	if identity.MemberID <= 0 && !identity.Admin {
		return ThreadPage{}, newError(ErrorCodeUnauthorized, "invalid member identity", nil)
	}

	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return ThreadPage{}, newError(ErrorCodeValidation, "websiteId is required", nil)
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}

	website, err := s.repo.GetWebsite(ctx, websiteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ThreadPage{}, newError(ErrorCodeNotFound, "Not found", err)
		}
		return ThreadPage{}, newError(ErrorCodeInternal, "failed to load website", err)
	}
	if !identity.Admin && website.MemberID != identity.MemberID {
		return ThreadPage{}, newError(ErrorCodeForbidden, "member does not own this website", nil)
	}

	threads, err := s.repo.ListThreadsByWebsite(ctx, websiteID)
	if err != nil {
		return ThreadPage{}, newError(ErrorCodeInternal, "failed to list threads", err)
	}

	search = strings.ToLower(strings.TrimSpace(search))

	guestIDs := make([]string, 0, len(threads))
	for _, t := range threads {
		guestIDs = append(guestIDs, t.GuestID)
	}
	guests, err := s.repo.GetGuests(ctx, guestIDs)
	if err != nil {
		return ThreadPage{}, newError(ErrorCodeInternal, "failed to load guests", err)
	}

	elements := make([]ThreadInfoResult, 0, len(threads))
	for _, t := range threads {
		guest := guests[t.GuestID]

		if search != "" &&
			!strings.Contains(strings.ToLower(guest.Name), search) &&
			!strings.Contains(strings.ToLower(guest.Email), search) {
			continue
		}

		elements = append(elements, ThreadInfoResult{Thread: t, Guest: guest})
	}

	sort.Slice(elements, func(i, j int) bool {
		if elements[i].Thread.Created != elements[j].Thread.Created {
			return elements[i].Thread.Created > elements[j].Thread.Created
		}
		return elements[i].Thread.ThreadID > elements[j].Thread.ThreadID
	})

	total := len(elements)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	return ThreadPage{
		Elements: elements[start:end],
		Total:    total,
		Page:     page,
	}, nil
}

// SetTyping overwrites the single marker for (thread, side). The client
// throttles itself to one call per window; the server just upserts.
func (s *Service) SetTyping(ctx context.Context, threadID string, side model.Side) error {
	threadID = strings.TrimSpace(threadID)
	if threadID == "" {
		return newError(ErrorCodeValidation, "threadId is required", nil)
	}

	marker := model.TypingItem{
		PK:       model.TypingPK(threadID, side),
		ThreadID: threadID,
		Side:     side,
		Updated:  s.now().UTC().Unix(),
	}

	if err := s.repo.PutTyping(ctx, marker); err != nil {
		return newError(ErrorCodeInternal, "failed to store typing marker", err)
	}
	return nil
}

// IsTypingRecently treats markers older than the window as stale; stale
// markers are ignored, not deleted.
func (s *Service) IsTypingRecently(ctx context.Context, threadID string, side model.Side, windowSeconds int64) (bool, error) {
	if windowSeconds <= 0 {
		windowSeconds = TypingWindowSeconds
	}

	marker, err := s.repo.GetTyping(ctx, threadID, side)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, newError(ErrorCodeInternal, "failed to load typing marker", err)
	}

	return s.now().UTC().Unix()-marker.Updated <= windowSeconds, nil
}

func (s *Service) IdentityFromAuthorizationHeader(header string) (Identity, error) {
	authHeader := strings.TrimSpace(header)
	if authHeader == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "missing authorization header", nil)
	}

	if !strings.HasPrefix(authHeader, "Bearer ") {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid authorization header format", nil)
	}

	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return s.IdentityFromToken(token)
}

// IdentityFromToken accepts a member access token, trying the user role
// first and the admin role second.
func (s *Service) IdentityFromToken(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, newError(ErrorCodeUnauthorized, "empty token", nil)
	}

	if claims, err := internaljwt.ParseToken(token, internaljwt.RoleUser); err == nil {
		member, err := internaljwt.MemberFromClaims(claims)
		if err != nil {
			return Identity{}, newError(ErrorCodeUnauthorized, "token missing identifiers", err)
		}
		return Identity{MemberID: member.Id, Email: member.Email}, nil
	}

	claims, err := internaljwt.ParseToken(token, internaljwt.RoleAdmin)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "invalid token", err)
	}
	member, err := internaljwt.MemberFromClaims(claims)
	if err != nil {
		return Identity{}, newError(ErrorCodeUnauthorized, "token missing identifiers", err)
	}
	return Identity{MemberID: member.Id, Email: member.Email, Admin: true}, nil
}

func generateThreadSecret() (string, error) {
	buf := make([]byte, ThreadSecretLength/2)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func normalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	return strings.ToLower(email)
}

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return false
	}
	local, domain := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if local == "" || domain == "" {
		return false
	}
	if !strings.Contains(domain, ".") {
		return false
	}
	return true
}
