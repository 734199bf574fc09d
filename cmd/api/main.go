// server/cmd/api/main.go
package main

import (
	"context"
	"log"
	"time"

	"waste-pickup-api-server/config"
	"waste-pickup-api-server/internal/api/routes"
	"waste-pickup-api-server/internal/auth"
	"waste-pickup-api-server/internal/classifier"
	"waste-pickup-api-server/internal/database"
	"waste-pickup-api-server/internal/notify"
	"waste-pickup-api-server/internal/pickup"
	"waste-pickup-api-server/internal/s3"
	"waste-pickup-api-server/internal/socket"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// 1. Load configuration (.env is optional)
	godotenv.Load()
	cfg, err := config.LoadConfig("./config")
	if err != nil {
		log.Fatalf("Could not load config: %v", err)
	}
	if cfg.JWT.Secret != "" {
		auth.JwtSecret = []byte(cfg.JWT.Secret)
	}

	// 2. Connect to MongoDB
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatalf("Failed to ping MongoDB: %v", err)
	}
	db := client.Database(cfg.Mongo.DBName)

	// 3. Bootstrap indexes and the admin account
	if err := database.EnsureUserIndexes(ctx, db); err != nil {
		log.Fatalf("Failed to create user indexes: %v", err)
	}
	if err := database.SeedAdmin(db); err != nil {
		log.Fatalf("Failed to seed admin: %v", err)
	}

	store := pickup.NewMongoStore(db)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to create pickup indexes: %v", err)
	}

	// 4. Build the collaborators around the pickup core
	uploader, err := s3.NewUploader(cfg.S3)
	if err != nil {
		log.Fatalf("Failed to initialize S3 uploader: %v", err)
	}

	notifier := notify.NewWebhookNotifier(cfg.Notifier)
	scorer := classifier.NewClient(cfg.Classifier, notifier)
	wsHub := socket.NewHub()

	svc := &pickup.Service{
		Store:  store,
		Images: uploader,
		Scorer: scorer,
		Events: wsHub,
	}

	// 5. Wire the router and start serving
	router := routes.SetupRouter(cfg, db, svc, wsHub)

	log.Printf("Starting API server on port %s", cfg.Server.Port)
	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}
