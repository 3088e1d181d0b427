package router

import (
	"net/http"
	"strings"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
)

// SocketRoutes upgrades websockets. Credentials travel in the first
// frame after the upgrade, not in the URL.
func SocketRoutes(prefix string) api.RouteRegistrar {
	return func(mux *http.ServeMux, s *api.APIServer) {
		base := strings.TrimRight(prefix, "/")

		socketEndpoints := endpoints.NewSocketEndpoints(s.Realtime())

		mux.HandleFunc(base+"/ws/guest", s.MakeHTTPHandleFunc(socketEndpoints.GuestSocket))
		mux.HandleFunc(base+"/ws/member", s.MakeHTTPHandleFunc(socketEndpoints.MemberSocket))
	}
}
