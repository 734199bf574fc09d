// server/internal/database/seeder.go
package database

import (
	"context"
	"log"
	"time"

	"waste-pickup-api-server/internal/auth"
	"waste-pickup-api-server/internal/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// EnsureUserIndexes creates the unique email index backing registration.
func EnsureUserIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

// SeedAdmin creates the default admin account on first start.
func SeedAdmin(db *mongo.Database) error {
	userCollection := db.Collection("users")
	adminEmail := "admin@example.com"

	count, err := userCollection.CountDocuments(context.Background(), bson.M{"email": adminEmail})
	if err != nil {
		return err
	}

	if count > 0 {
		log.Println("Admin already exists. Seeding skipped.")
		return nil
	}

	log.Println("Admin not found. Seeding...")
	hashedPassword, err := auth.HashPassword("adminpassword")
	if err != nil {
		return err
	}

	admin := models.User{
		Email:     adminEmail,
		Name:      "Admin",
		Password:  hashedPassword,
		Role:      models.RoleAdmin,
		Status:    "active",
		CreatedAt: time.Now().UTC(),
	}

	_, err = userCollection.InsertOne(context.Background(), admin)
	if err != nil {
		return err
	}

	log.Println("Admin seeded successfully.")
	return nil
}
