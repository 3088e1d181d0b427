package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"livechat-backend/internal/dto"
	websiteservice "livechat-backend/internal/service/website"
)

type WidgetEndpoints interface {
	WidgetInfo(http.ResponseWriter, *http.Request) error
}

type widgetEndpoints struct {
	websites *websiteservice.Service
	prefix   string
}

func NewWidgetEndpoints(websites *websiteservice.Service, prefix string) WidgetEndpoints {
	return &widgetEndpoints{
		websites: websites,
		prefix:   prefix,
	}
}

// WidgetInfo is the widget's boot call: name, header text and whether
// chat is on. Nothing sensitive leaves here.
func (h *widgetEndpoints) WidgetInfo(w http.ResponseWriter, r *http.Request) error {
	return MethodHandler(w, r, map[string]func(http.ResponseWriter, *http.Request) error{
		http.MethodGet: h.handleWidgetInfo,
	})
}

func (h *widgetEndpoints) handleWidgetInfo(w http.ResponseWriter, r *http.Request) error {
	websiteID := strings.Trim(strings.TrimPrefix(r.URL.Path, h.prefix), "/")
	if websiteID == "" || strings.Contains(websiteID, "/") {
		return &HTTPError{
			StatusCode: http.StatusNotFound,
			Message:    "Not found",
			ErrorLog:   fmt.Errorf("invalid widget path: %s", r.URL.Path),
		}
	}

	info, err := h.websites.GetWidgetInfo(r.Context(), websiteID)
	if err != nil {
		return websiteServiceError(err)
	}

	return writeResult(w, http.StatusOK, dto.WidgetInfoResponse{
		WebsiteID:  info.WebsiteID,
		Name:       info.Name,
		HeaderText: info.HeaderText,
		Enabled:    info.Enabled,
	})
}

func websiteServiceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*websiteservice.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("website service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case websiteservice.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case websiteservice.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
