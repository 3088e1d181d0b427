package api

import (
	"fmt"
	"net/http"

	"livechat-backend/internal/database"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/realtime"
	"livechat-backend/internal/service/message"
	"livechat-backend/internal/service/thread"
	"livechat-backend/internal/service/website"
	"livechat-backend/internal/storage"

	"github.com/prometheus/client_golang/prometheus"
)

type RouteRegistrar func(mux *http.ServeMux, s *APIServer)

// Services is everything the endpoints need; the servers share one set.
type Services struct {
	Threads  *thread.Service
	Messages *message.Service
	Websites *website.Service
	Storage  storage.Storage
}

type APIServer struct {
	listenAddr          string
	requestQueueManager *queue.RequestQueueManager
	db                  *database.Database
	routeRegistrars     []RouteRegistrar
	realtime            *realtime.Handler
	services            Services
	metrics             *metrics
}

func NewAPIServer(listenAddr string, rqm *queue.RequestQueueManager, db *database.Database, rt *realtime.Handler, services Services, registrars ...RouteRegistrar) *APIServer {
	return &APIServer{
		listenAddr:          listenAddr,
		requestQueueManager: rqm,
		db:                  db,
		realtime:            rt,
		services:            services,
		routeRegistrars:     registrars,
		metrics:             newMetrics(prometheus.DefaultRegisterer, listenAddr, rqm),
	}
}

func (s *APIServer) Run() {
	mux := http.NewServeMux()

	for _, reg := range s.routeRegistrars {
		reg(mux, s)
	}

	mux.Handle("/metrics", s.metrics.metricsHandler())

	fmt.Printf("Server listening on http://localhost%s\n", s.listenAddr)

	if err := http.ListenAndServe(s.listenAddr, s.metrics.instrument(mux)); err != nil {
		fmt.Printf("server stopped: %v\n", err)
	}
}

func (s *APIServer) Database() *database.Database {
	return s.db
}

func (s *APIServer) Realtime() *realtime.Handler {
	return s.realtime
}

func (s *APIServer) Threads() *thread.Service {
	return s.services.Threads
}

func (s *APIServer) Messages() *message.Service {
	return s.services.Messages
}

func (s *APIServer) Websites() *website.Service {
	return s.services.Websites
}

func (s *APIServer) Storage() storage.Storage {
	return s.services.Storage
}
