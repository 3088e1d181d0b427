package message

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

var ErrNotFound = errors.New("message repository: not found")

type Repository interface {
	CreateMessageWithAttachments(ctx context.Context, msg model.MessageItem, attachments []model.AttachmentItem) error
	ListMessagesByThread(ctx context.Context, threadID string) ([]model.MessageItem, error)
	ListAttachmentsForMessage(ctx context.Context, messageID int64) ([]model.AttachmentItem, error)
	MarkSeen(ctx context.Context, messageID int64) error
	ListUnseenGuestMessages(ctx context.Context) ([]model.MessageItem, error)
	GetThread(ctx context.Context, threadID string) (model.ThreadItem, error)
	GetWebsite(ctx context.Context, websiteID string) (model.WebsiteItem, error)
}

type DynamoRepository struct {
	db    *database.Database
	cache *cache.Cache
}

func NewDynamoRepository(db *database.Database, c *cache.Cache) Repository {
	return &DynamoRepository{db: db, cache: c}
}

// CreateMessageWithAttachments persists the message row and its
// attachment rows in one transaction.
func (r *DynamoRepository) CreateMessageWithAttachments(ctx context.Context, msg model.MessageItem, attachments []model.AttachmentItem) error {
	puts := map[string][]interface{}{
		model.MessagesTable: {msg},
	}
	for _, attachment := range attachments {
		puts[model.AttachmentsTable] = append(puts[model.AttachmentsTable], attachment)
	}
	return r.db.Client.TransactWriteItems(ctx, puts)
}

func (r *DynamoRepository) ListMessagesByThread(ctx context.Context, threadID string) ([]model.MessageItem, error) {
	items, err := r.db.Client.QueryAll(
		ctx,
		model.MessagesTable,
		aws.String("byThread"),
		"threadId = :threadId",
		map[string]types.AttributeValue{
			":threadId": &types.AttributeValueMemberS{Value: threadID},
		},
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (r *DynamoRepository) ListAttachmentsForMessage(ctx context.Context, messageID int64) ([]model.AttachmentItem, error) {
	items, err := r.db.Client.QueryItems(
		ctx,
		model.AttachmentsTable,
		aws.String("byMessage"),
		"messageId = :messageId",
		map[string]types.AttributeValue{
			":messageId": &types.AttributeValueMemberN{Value: model.MessageIDString(messageID)},
		},
		nil,
		nil,
	)
	if err != nil {
		return nil, err
	}

	attachments := make([]model.AttachmentItem, 0, len(items))
	for _, item := range items {
		var attachment model.AttachmentItem
		if err := attributevalue.UnmarshalMap(item, &attachment); err != nil {
			return nil, err
		}
		attachments = append(attachments, attachment)
	}
	return attachments, nil
}

// MarkSeen flips the seen flag; writing true over true is harmless.
func (r *DynamoRepository) MarkSeen(ctx context.Context, messageID int64) error {
	return r.db.Client.UpdateItem(
		ctx,
		model.MessagesTable,
		map[string]types.AttributeValue{
			"messageId": &types.AttributeValueMemberN{Value: model.MessageIDString(messageID)},
		},
		"SET seen = :seen",
		map[string]types.AttributeValue{
			":seen": &types.AttributeValueMemberBOOL{Value: true},
		},
		nil,
		nil,
	)
}

// ListUnseenGuestMessages feeds the notifier sweep. A scan with a filter
// is acceptable at this table size; unseen rows are a small fraction.
func (r *DynamoRepository) ListUnseenGuestMessages(ctx context.Context) ([]model.MessageItem, error) {
	items, err := r.db.Client.ScanAllWithFilter(
		ctx,
		model.MessagesTable,
		"seen = :seen AND memberId = :guest",
		map[string]types.AttributeValue{
			":seen":  &types.AttributeValueMemberBOOL{Value: false},
			":guest": &types.AttributeValueMemberN{Value: "0"},
		},
		nil,
	)
	if err != nil {
		return nil, err
	}

	messages := make([]model.MessageItem, 0, len(items))
	for _, item := range items {
		var message model.MessageItem
		if err := attributevalue.UnmarshalMap(item, &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

func (r *DynamoRepository) GetThread(ctx context.Context, threadID string) (model.ThreadItem, error) {
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
	return thread, nil
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

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
