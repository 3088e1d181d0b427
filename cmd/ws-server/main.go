package main

import (
	"context"
	"log"
	"time"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/endpoints"
	"livechat-backend/internal/api/router"
	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
	"livechat-backend/internal/geo"
	"livechat-backend/internal/queue"
	"livechat-backend/internal/realtime"
	messageservice "livechat-backend/internal/service/message"
	threadservice "livechat-backend/internal/service/thread"
	websiteservice "livechat-backend/internal/service/website"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	queueManager := queue.NewRequestQueueManager(10, 10)
	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	c := cache.New(5 * time.Minute)
	threads := threadservice.New(db, c, geo.NewResolverFromEnv())

	hub := realtime.NewHub()
	go hub.Run(context.Background())

	handler := realtime.NewHandler(hub,
		&endpoints.ThreadBinder{Threads: threads},
		&endpoints.TypingRelay{Threads: threads},
	)

	server := api.NewAPIServer(
		":83",
		queueManager,
		db,
		handler,
		api.Services{
			Threads:  threads,
			Messages: messageservice.New(db, c),
			Websites: websiteservice.New(db, c),
		},
		router.UtilsRoutes("/api/ws/v1"),
		router.SocketRoutes("/api/ws/v1"),
	)

	server.Run()
}
