package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"livechat-backend/internal/cache"
	"livechat-backend/internal/database"
	"livechat-backend/internal/env"
	"livechat-backend/internal/mailer"
	"livechat-backend/internal/notifier"
	messageservice "livechat-backend/internal/service/message"

	"github.com/joho/godotenv"
)

func main() {
	godotenv.Load()

	db, err := database.NewDatabase()
	if err != nil {
		log.Fatalf("db init failed: %v", err)
	}

	if !mailer.ConfigFromEnv().Valid() {
		log.Println("SMTP is not configured, notifier will idle until it is")
	}

	interval := time.Duration(env.GetInt(env.NotifyIntervalSeconds, 60)) * time.Second
	messages := messageservice.New(db, cache.New(5*time.Minute))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("unseen message notifier running, interval %s", interval)
	notifier.New(messages, mailer.NewSMTP(), interval).Run(ctx)
}
