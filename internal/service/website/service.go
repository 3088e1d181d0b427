package website

import (
	"context"
	"errors"
	"strings"

	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
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

type WidgetInfo struct {
	WebsiteID  string
	Name       string
	HeaderText string
	Enabled    bool
}

type Service struct {
	repo Repository
}

func New(db *database.Database, c *cache.Cache) *Service {
	return &Service{repo: NewDynamoRepository(db, c)}
}

func NewWithRepository(repo Repository) *Service {
	return &Service{repo: repo}
}

// GetWidgetInfo is the public widget boot call; it never exposes the
// embed token or the owner contact details.
func (s *Service) GetWidgetInfo(ctx context.Context, websiteID string) (WidgetInfo, error) {
	websiteID = strings.TrimSpace(websiteID)
	if websiteID == "" {
		return WidgetInfo{}, newError(ErrorCodeValidation, "websiteId is required", nil)
	}

	website, err := s.repo.GetWebsite(ctx, websiteID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return WidgetInfo{}, newError(ErrorCodeNotFound, "Not found", err)
		}
		return WidgetInfo{}, newError(ErrorCodeInternal, "failed to load website", err)
	}

	return WidgetInfo{
		WebsiteID:  website.WebsiteID,
		Name:       website.Name,
		HeaderText: website.HeaderText,
		Enabled:    website.Enabled,
	}, nil
}
