package router

import (
	"net/http"
	"strings"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
)

// PublicRoutes is the widget-facing surface. Everything here is
// authorized by website id + thread secret, never by JWT.
func PublicRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")

		threadEndpoints := endpoints.NewThreadEndpoints(s.Threads(), s.Messages(), endpoints.ThreadPaths{
			PublicThreadsPath:  base + "/threads",
			PublicThreadPrefix: base + "/threads/",
		})
		messageEndpoints := endpoints.NewMessageEndpoints(s.Threads(), s.Messages(), s.Storage(), endpoints.MessagePaths{
			PublicMessagesPath:      base + "/messages",
			PublicMessagesListPath:  base + "/messages/list",
			PublicAttachmentsPrefix: base + "/messages/attachments/",
		})
		widgetEndpoints := endpoints.NewWidgetEndpoints(s.Websites(), base+"/widget/")

		mux.HandleFunc(base+"/threads", s.MakeHTTPHandleFunc(threadEndpoints.PublicThreads))
		mux.HandleFunc(base+"/threads/", s.MakeHTTPHandleFunc(threadEndpoints.PublicThreadActions))
		mux.HandleFunc(base+"/messages", s.MakeHTTPHandleFunc(messageEndpoints.PublicMessages))
		mux.HandleFunc(base+"/messages/list", s.MakeHTTPHandleFunc(messageEndpoints.PublicMessagesList))
		mux.HandleFunc(base+"/messages/attachments/", s.MakeHTTPHandleFunc(messageEndpoints.PublicAttachments))
		mux.HandleFunc(base+"/widget/", s.MakeHTTPHandleFunc(widgetEndpoints.WidgetInfo))
	}
}
