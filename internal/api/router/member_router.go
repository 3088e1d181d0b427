package router

import (
	"net/http"
	"strings"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/api/middleware"
)

// MemberRoutes is the dashboard surface; every route requires a member
// or admin JWT.
func MemberRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")

		threadEndpoints := endpoints.NewThreadEndpoints(s.Threads(), s.Messages(), endpoints.ThreadPaths{
			MemberThreadPrefix:     base + "/user/threads/",
			MemberThreadListPrefix: base + "/user/threads/list/",
		})
		messageEndpoints := endpoints.NewMessageEndpoints(s.Threads(), s.Messages(), s.Storage(), endpoints.MessagePaths{
			MemberMessagesPath:       base + "/user/messages",
			MemberMessagesListPrefix: base + "/user/messages/list/",
			MemberAttachmentsPrefix:  base + "/user/messages/attachments/",
		})

		tokenEndpoints := endpoints.NewTokenEndpoints()

		mux.HandleFunc(base+"/user/token/refresh", s.MakeHTTPHandleFunc(tokenEndpoints.RefreshToken))
		mux.HandleFunc(base+"/user/threads/", s.MakeHTTPHandleFunc(threadEndpoints.MemberThread, middleware.ValidateAnyJWT))
		mux.HandleFunc(base+"/user/threads/list/", s.MakeHTTPHandleFunc(threadEndpoints.MemberThreadList, middleware.ValidateAnyJWT))
		mux.HandleFunc(base+"/user/messages", s.MakeHTTPHandleFunc(messageEndpoints.MemberMessages, middleware.ValidateAnyJWT))
		mux.HandleFunc(base+"/user/messages/list/", s.MakeHTTPHandleFunc(messageEndpoints.MemberMessagesList, middleware.ValidateAnyJWT))
		mux.HandleFunc(base+"/user/messages/attachments/", s.MakeHTTPHandleFunc(messageEndpoints.MemberAttachments, middleware.ValidateAnyJWT))
	}
}
