package thread

import (
	"context"
	"errors"
	"strings"

	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("thread repository: not found")

type Repository interface {
	GetWebsite(ctx context.Context, websiteID string) (model.WebsiteItem, error)
	CreateConversation(ctx context.Context, guest model.GuestItem, thread model.ThreadItem, first model.MessageItem) error
	GetThread(ctx context.Context, threadID string) (model.ThreadItem, error)
	GetThreadBySecret(ctx context.Context, secret string) (model.ThreadItem, error)
	ListThreadsByWebsite(ctx context.Context, websiteID string) ([]model.ThreadItem, error)
	GetGuest(ctx context.Context, guestID string) (model.GuestItem, error)
	GetGuests(ctx context.Context, guestIDs []string) (map[string]model.GuestItem, error)
	DeleteThreadCascade(ctx context.Context, threadID string) error
	PutTyping(ctx context.Context, marker model.TypingItem) error
	GetTyping(ctx context.Context, threadID string, side model.Side) (model.TypingItem, error)
}

type DynamoRepository struct {
	db    *database.Database
	cache *cache.Cache
}

func NewDynamoRepository(db *database.Database, c *cache.Cache) Repository {
	return &DynamoRepository{db: db, cache: c}
}

func (r *DynamoRepository) GetWebsite(ctx context.Context, websiteID string) (model.WebsiteItem, error) {
	cacheKey := "website:" + websiteID

	if r.cache != nil {
		if cached, ok := r.cache.Get(cacheKey); ok {
			if website, ok := cached.(model.WebsiteItem); ok {
				return website, nil
			}
		}
	}

	var website model.WebsiteItem
	err := r.db.Client.GetItem(
		ctx,
		model.WebsitesTable,
		map[string]types.AttributeValue{
			"websiteId": &types.AttributeValueMemberS{Value: websiteID},
		},
		&website,
	)
	if err != nil {
		if isNotFound(err) {
			return model.WebsiteItem{}, ErrNotFound
		}
		return model.WebsiteItem{}, err
	}

	if r.cache != nil {
		r.cache.Set(cacheKey, "websites", website)
	}

	return website, nil
}

// CreateConversation writes guest, thread and the opening message in one
// transaction so a disabled website or storage failure never leaves a
// partial conversation behind.
func (r *DynamoRepository) CreateConversation(ctx context.Context, guest model.GuestItem, thread model.ThreadItem, first model.MessageItem) error {
	return r.db.Client.TransactWriteItems(ctx, map[string][]interface{}{
		model.GuestsTable:   {guest},
		model.ThreadsTable:  {thread},
		model.MessagesTable: {first},
	})
}

// GetThread caches the row; thread rows never change after creation, so
// the only eviction point is the delete cascade.
func (r *DynamoRepository) GetThread(ctx context.Context, threadID string) (model.ThreadItem, error) {
	cacheKey := "thread:" + threadID

	if r.cache != nil {
		if cached, ok := r.cache.Get(cacheKey); ok {
			if thread, ok := cached.(model.ThreadItem); ok {
				return thread, nil
			}
		}
	}

	var thread model.ThreadItem
	err := r.db.Client.GetItem(
		ctx,
		model.ThreadsTable,
		map[string]types.AttributeValue{
			"threadId": &types.AttributeValueMemberS{Value: threadID},
		},
		&thread,
	)
	if err != nil {
		if isNotFound(err) {
			return model.ThreadItem{}, ErrNotFound
		}
		return model.ThreadItem{}, err
	}

	if r.cache != nil {
		r.cache.Set(cacheKey, "threads", thread)
	}

	return thread, nil
}

func (r *DynamoRepository) GetThreadBySecret(ctx context.Context, secret string) (model.ThreadItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.ThreadsTable,
		aws.String("bySecret"),
		"threadSecret = :secret",
		map[string]types.AttributeValue{
			":secret": &types.AttributeValueMemberS{Value: secret},
		},
		nil,
		nil,
	)
	if err != nil {
		return model.ThreadItem{}, err
	}
	if len(items) == 0 {
		return model.ThreadItem{}, ErrNotFound
	}

	var thread model.ThreadItem
	if err := attributevalue.UnmarshalMap(items[0], &thread); err != nil {
		return model.ThreadItem{}, err
	}
	return thread, nil
}

func (r *DynamoRepository) ListThreadsByWebsite(ctx context.Context, websiteID string) ([]model.ThreadItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.ThreadsTable,
		aws.String("byWebsite"),
		"websiteId = :websiteId",
		map[string]types.AttributeValue{
			":websiteId": &types.AttributeValueMemberS{Value: websiteID},
		},
	)
	if err != nil {
		return nil, err
	}

	threads := make([]model.ThreadItem, 0, len(items))
	for _, item := range items {
		var thread model.ThreadItem
		if err := attributevalue.UnmarshalMap(item, &thread); err != nil {
			return nil, err
		}
		threads = append(threads, thread)
	}
	return threads, nil
}

func (r *DynamoRepository) GetGuest(ctx context.Context, guestID string) (model.GuestItem, error) {
	var guest model.GuestItem
	err := r.db.Client.GetItem(
		ctx,
		model.GuestsTable,
		map[string]types.AttributeValue{
			"guestId": &types.AttributeValueMemberS{Value: guestID},
		},
		&guest,
	)
	if err != nil {
		if isNotFound(err) {
			return model.GuestItem{}, ErrNotFound
		}
		return model.GuestItem{}, err
	}
	return guest, nil
}

// GetGuests loads many guests in one batch; ids without a row are simply
// absent from the result map.
func (r *DynamoRepository) GetGuests(ctx context.Context, guestIDs []string) (map[string]model.GuestItem, error) {
	items, err := r.db.Client.BatchGetByKeys(ctx, model.GuestsTable, guestIDs, "guestId", 100, nil)
	if err != nil {
		return nil, err
	}

	guests := make(map[string]model.GuestItem, len(items))
	for _, item := range items {
		var guest model.GuestItem
		if err := attributevalue.UnmarshalMap(item, &guest); err != nil {
			return nil, err
		}
		guests[guest.GuestID] = guest
	}
	return guests, nil
}

// DeleteThreadCascade removes the thread row and everything hanging off
// it: messages, their attachments, both typing markers. Guests are kept
// for history.
func (r *DynamoRepository) DeleteThreadCascade(ctx context.Context, threadID string) error {
	messages, err := r.db.Client.QueryAll(
		ctx,
		model.MessagesTable,
		aws.String("byThread"),
		"threadId = :threadId",
		map[string]types.AttributeValue{
			":threadId": &types.AttributeValueMemberS{Value: threadID},
		},
	)
	if err != nil {
		return err
	}

	var messageKeys []map[string]types.AttributeValue
	for _, item := range messages {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return err
		}

		attachments, err := r.db.Client.QueryItems(
			ctx,
			model.AttachmentsTable,
			aws.String("byMessage"),
			"messageId = :messageId",
			map[string]types.AttributeValue{
				":messageId": &types.AttributeValueMemberN{Value: model.MessageIDString(message.MessageID)},
			},
			nil,
			nil,
		)
		if err != nil {
			return err
		}

		var attachmentKeys []map[string]types.AttributeValue
		for _, att := range attachments {
			var attachment model.AttachmentItem
			if err := attributevalue.UnmarshalMap(att, &attachment); err != nil {
				return err
			}
			attachmentKeys = append(attachmentKeys, map[string]types.AttributeValue{
				"attachmentId": &types.AttributeValueMemberS{Value: attachment.AttachmentID},
			})
		}
		if err := r.db.Client.BatchDeleteItems(ctx, model.AttachmentsTable, attachmentKeys); err != nil {
			return err
		}

		messageKeys = append(messageKeys, map[string]types.AttributeValue{
			"messageId": &types.AttributeValueMemberN{Value: model.MessageIDString(message.MessageID)},
		})
	}

	if err := r.db.Client.BatchDeleteItems(ctx, model.MessagesTable, messageKeys); err != nil {
		return err
	}

	for _, side := range []model.Side{model.SideGuest, model.SideMember} {
		err := r.db.Client.DeleteItem(ctx, model.TypingTable, map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.TypingPK(threadID, side)},
		})
		if err != nil {
			return err
		}
	}

	if err := r.db.Client.DeleteItem(ctx, model.ThreadsTable, map[string]types.AttributeValue{
		"threadId": &types.AttributeValueMemberS{Value: threadID},
	}); err != nil {
		return err
	}

	if r.cache != nil {
		r.cache.Delete("thread:" + threadID)
	}
	return nil
}

func (r *DynamoRepository) PutTyping(ctx context.Context, marker model.TypingItem) error {
	return r.db.Client.PutItem(ctx, model.TypingTable, marker)
}

func (r *DynamoRepository) GetTyping(ctx context.Context, threadID string, side model.Side) (model.TypingItem, error) {
	var marker model.TypingItem
	err := r.db.Client.GetItem(
		ctx,
		model.TypingTable,
		map[string]types.AttributeValue{
			"pk": &types.AttributeValueMemberS{Value: model.TypingPK(threadID, side)},
		},
		&marker,
	)
	if err != nil {
		if isNotFound(err) {
			return model.TypingItem{}, ErrNotFound
		}
		return model.TypingItem{}, err
	}
	return marker, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
