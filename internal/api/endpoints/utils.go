package endpoints

import (
	"fmt"
	"net/http"

	"livechat-backend/internal/api"
	"livechat-backend/internal/dto"
	"livechat-backend/internal/model"
	"livechat-backend/internal/service/message"
	"livechat-backend/internal/service/thread"
)

type HTTPError = api.HTTPError

type ApiMessageResponse struct {
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, status int, v any) error {
	return api.WriteJSON(w, status, v)
}

func writeResult(w http.ResponseWriter, status int, result interface{}) error {
	return WriteJSON(w, status, dto.APIResponse{Success: true, Result: result})
}

func MethodHandler(
	w http.ResponseWriter,
	r *http.Request,
	allowed map[string]func(http.ResponseWriter, *http.Request) error,
) error {
	if handler, ok := allowed[r.Method]; ok {
		return handler(w, r)
	}
	return &HTTPError{
		StatusCode: http.StatusMethodNotAllowed,
		Message:    "Method not allowed.",
		ErrorLog:   fmt.Errorf("method not allowed"),
	}
}

func toThreadResponse(item model.ThreadItem, includeSecret bool) dto.ThreadResponse {
	resp := dto.ThreadResponse{
		ThreadID:  item.ThreadID,
		WebsiteID: item.WebsiteID,
		Created:   item.Created,
	}
	if includeSecret {
		resp.ThreadSecret = item.ThreadSecret
	}
	return resp
}

func toGuestResponse(item model.GuestItem) dto.GuestResponse {
	return dto.GuestResponse{
		Name:      item.Name,
		Email:     item.Email,
		IP:        item.IP,
		Latitude:  item.Latitude,
		Longitude: item.Longitude,
		Created:   item.Created,
	}
}

func toMessageResponse(view message.MessageView) dto.MessageResponse {
	attachments := view.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return dto.MessageResponse{
		MessageID:   view.Message.MessageID,
		MemberID:    view.Message.MemberID,
		Message:     view.Message.Text,
		Created:     view.Message.Created,
		Seen:        view.Message.Seen,
		Attachments: attachments,
	}
}

func threadServiceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*thread.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("thread service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case thread.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case thread.ErrorCodeUnauthorized:
		return &HTTPError{StatusCode: http.StatusUnauthorized, Message: svcErr.Message, ErrorLog: logErr}
	case thread.ErrorCodeForbidden:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	case thread.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	case thread.ErrorCodeChatDisabled:
		return &HTTPError{StatusCode: http.StatusForbidden, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}

func messageServiceError(err error) error {
	if err == nil {
		return nil
	}

	svcErr, ok := err.(*message.Error)
	if !ok {
		return &HTTPError{
			StatusCode: http.StatusInternalServerError,
			Message:    "Internal server error",
			ErrorLog:   fmt.Errorf("message service: %w", err),
		}
	}

	var logErr error
	if svcErr.Err != nil {
		logErr = fmt.Errorf("%s: %w", svcErr.Message, svcErr.Err)
	} else {
		logErr = svcErr
	}

	switch svcErr.Code {
	case message.ErrorCodeValidation:
		return &HTTPError{StatusCode: http.StatusBadRequest, Message: svcErr.Message, ErrorLog: logErr}
	case message.ErrorCodeNotFound:
		return &HTTPError{StatusCode: http.StatusNotFound, Message: svcErr.Message, ErrorLog: logErr}
	default:
		return &HTTPError{StatusCode: http.StatusInternalServerError, Message: "Internal server error", ErrorLog: logErr}
	}
}
