package website

import (
	"context"
	"errors"
	"strings"

	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
	"livechat-backend/internal/model"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

var ErrNotFound = errors.New("website repository: not found")

const CacheGroup = "websites"

type Repository interface {
	GetWebsite(ctx context.Context, websiteID string) (model.WebsiteItem, error)
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
		r.cache.Set(cacheKey, CacheGroup, website)
	}

	return website, nil
}

func isNotFound(err error) bool {
	return err != nil && strings.Contains(err.Error(), "item not found")
}
