package main

import (
	"log"
	"time"

	"livechat-backend/internal/api"
	"livechat-backend/internal/api/router"
	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
	"livechat-backend/internal/geo"
	"livechat-backend/internal/queue"
	messageservice "livechat-backend/internal/service/message"
	threadservice "livechat-backend/internal/service/thread"
	websiteservice "livechat-backend/internal/service/website"
	"livechat-backend/internal/storage"

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
	store, err := storage.FromEnv()
	if err != nil {
		log.Fatalf("storage init failed: %v", err)
	}

	server := api.NewAPIServer(
		":82",
		queueManager,
		db,
		nil,
		api.Services{
			Threads:  threadservice.New(db, c, geo.NewResolverFromEnv()),
			Messages: messageservice.New(db, c),
			Websites: websiteservice.New(db, c),
			Storage:  store,
		},
		router.UtilsRoutes("/api/public/v1"),
		router.PublicRoutes("/api/public/v1"),
	)

	server.Run()
}
