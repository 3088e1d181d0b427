package message

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/google/uuid"
)

type ErrorCode string

const (
	ErrorCodeValidation ErrorCode = "validation_error"
	ErrorCodeNotFound   ErrorCode = "not_found"
	ErrorCodeInternal   ErrorCode = "internal_error"
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

const (
	// MaxAttachmentsPerMessage caps links stored with one message; the
	// upload endpoint enforces the same cap before touching storage.
	MaxAttachmentsPerMessage = 3

	DefaultPageSize = 10
)

type MessageView struct {
	Message     model.MessageItem
	Attachments []string
}

type MessagePage struct {
	Elements []MessageView
	Total    int
	Page     int
}

// UnseenMessage is one notifier work item: an unread guest message joined
// with its thread and website owner.
type UnseenMessage struct {
	MessageID  int64
	ThreadID   string
	WebsiteID  string
	OwnerEmail string
	Created    int64
}

type Service struct {
	repo             Repository
	now              func() time.Time
	maxMessageLength int
}

func New(db *database.Database, c *cache.Cache) *Service {
	return &Service{
		repo:             NewDynamoRepository(db, c),
		now:              time.Now,
		maxMessageLength: 2000,
	}
}

func NewWithRepository(repo Repository, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:             repo,
		now:              now,
		maxMessageLength: 2000,
	}
}

func (s *Service) SetMaxMessageLength(limit int) {
	if limit > 0 {
		s.maxMessageLength = limit
	}
}

// PostMessage stores one message on an already authorized thread. The
// caller resolves the thread (secret or JWT ownership) before calling;
// memberID 0 means the guest side.
func (s *Service) PostMessage(ctx context.Context, thread model.ThreadItem, memberID int64, text string, attachments []string) (MessageView, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(attachments) == 0 {
		return MessageView{}, newError(ErrorCodeValidation, "EmptyMessage", nil)
	}
	if len(text) > s.maxMessageLength {
		return MessageView{}, newError(ErrorCodeValidation, "message is too long", nil)
	}
	if len(attachments) > MaxAttachmentsPerMessage {
		return MessageView{}, newError(ErrorCodeValidation, "too many attachments", nil)
	}
	for _, link := range attachments {
		if strings.TrimSpace(link) == "" {
			return MessageView{}, newError(ErrorCodeValidation, "empty attachment link", nil)
		}
	}

	now := s.now().UTC()

	msg := model.MessageItem{
		MessageID: now.UnixNano(),
		ThreadID:  thread.ThreadID,
		MemberID:  memberID,
		Text:      text,
		Seen:      false,
		Created:   now.Unix(),
	}

	items := make([]model.AttachmentItem, 0, len(attachments))
	var links []string
	for i, link := range attachments {
		link = strings.TrimSpace(link)
		items = append(items, model.AttachmentItem{
			AttachmentID: uuid.NewString(),
			MessageID:    msg.MessageID,
			Position:     i,
			Link:         link,
			Created:      now.Unix(),
		})
		links = append(links, link)
	}

	if err := s.repo.CreateMessageWithAttachments(ctx, msg, items); err != nil {
		return MessageView{}, newError(ErrorCodeInternal, "failed to store message", err)
	}

	return MessageView{Message: msg, Attachments: links}, nil
}

// ListMessages returns one page, newest first. Message ids are creation
// timestamps, so sorting on id keeps equal-second messages in the order
// they were posted.
func (s *Service) ListMessages(ctx context.Context, threadID string, page, pageSize int) (MessagePage, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	messages, err := s.repo.ListMessagesByThread(ctx, threadID)
	if err != nil {
		return MessagePage{}, newError(ErrorCodeInternal, "failed to list messages", err)
	}

	sort.Slice(messages, func(i, j int) bool {
		return messages[i].MessageID > messages[j].MessageID
	})

	total := len(messages)
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}

	elements := make([]MessageView, 0, end-start)
	for _, msg := range messages[start:end] {
		view := MessageView{Message: msg}

		attachments, err := s.repo.ListAttachmentsForMessage(ctx, msg.MessageID)
		if err != nil {
			return MessagePage{}, newError(ErrorCodeInternal, "failed to list attachments", err)
		}
		sort.Slice(attachments, func(i, j int) bool {
			return attachments[i].Position < attachments[j].Position
		})
		for _, attachment := range attachments {
			view.Attachments = append(view.Attachments, attachment.Link)
		}

		elements = append(elements, view)
	}

	return MessagePage{
		Elements: elements,
		Total:    total,
		Page:     page,
	}, nil
}

// MarkSeenForReader marks messages the reader just displayed, i.e. the
// ones authored by the opposite side. Repeated calls are no-ops past the
// first.
func (s *Service) MarkSeenForReader(ctx context.Context, threadID string, reader model.Side) error {
	messages, err := s.repo.ListMessagesByThread(ctx, threadID)
	if err != nil {
		return newError(ErrorCodeInternal, "failed to list messages", err)
	}

	authored := reader.Opposite()
	for _, msg := range messages {
		if msg.Seen || msg.Side() != authored {
			continue
		}
		if err := s.repo.MarkSeen(ctx, msg.MessageID); err != nil {
			return newError(ErrorCodeInternal, "failed to mark message seen", err)
		}
	}
	return nil
}

// HasUnseenFor reports whether the given side has messages waiting from
// the other side.
func (s *Service) HasUnseenFor(ctx context.Context, threadID string, reader model.Side) (bool, error) {
	messages, err := s.repo.ListMessagesByThread(ctx, threadID)
	if err != nil {
		return false, newError(ErrorCodeInternal, "failed to list messages", err)
	}

	authored := reader.Opposite()
	for _, msg := range messages {
		if !msg.Seen && msg.Side() == authored {
			return true, nil
		}
	}
	return false, nil
}

// ListAllUnseen joins every unread guest message with its website owner.
// Messages whose thread or website has vanished mid-sweep are skipped;
// olderThan filters out messages the member may be reading right now.
func (s *Service) ListAllUnseen(ctx context.Context, olderThan time.Duration) ([]UnseenMessage, error) {
	messages, err := s.repo.ListUnseenGuestMessages(ctx)
	if err != nil {
		return nil, newError(ErrorCodeInternal, "failed to list unseen messages", err)
	}

	cutoff := s.now().UTC().Add(-olderThan).Unix()

	threads := map[string]model.ThreadItem{}
	websites := map[string]model.WebsiteItem{}

	var unseen []UnseenMessage
	for _, msg := range messages {
		if olderThan > 0 && msg.Created > cutoff {
			continue
		}

		thread, ok := threads[msg.ThreadID]
		if !ok {
			thread, err = s.repo.GetThread(ctx, msg.ThreadID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return nil, newError(ErrorCodeInternal, "failed to load thread", err)
			}
			threads[msg.ThreadID] = thread
		}

		website, ok := websites[thread.WebsiteID]
		if !ok {
			website, err = s.repo.GetWebsite(ctx, thread.WebsiteID)
			if err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return nil, newError(ErrorCodeInternal, "failed to load website", err)
			}
			websites[thread.WebsiteID] = website
		}

		unseen = append(unseen, UnseenMessage{
			MessageID:  msg.MessageID,
			ThreadID:   msg.ThreadID,
			WebsiteID:  thread.WebsiteID,
			OwnerEmail: website.OwnerEmail,
			Created:    msg.Created,
		})
	}

	sort.Slice(unseen, func(i, j int) bool {
		return unseen[i].MessageID < unseen[j].MessageID
	})

	return unseen, nil
}
