package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"task-service/internal/config"
	"task-service/internal/database"
	"task-service/internal/models"
	"task-service/internal/repositories/postgres"
	"task-service/internal/services"
)

// Seeds local users and prints a session token for each, so a client can
// connect without going through the identity provider
func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	slog.SetDefault(config.NewLogger(cfg.Log, os.Stderr))

	slog.Info("Starting database seeding...")

	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	ctx := context.Background()
	userRepo := postgres.NewUserRepository(db)
	authService := services.NewAuthService(cfg.JWT.Secret, cfg.JWT.ExpirationTime, userRepo)

	seedUsers := []*models.User{
		{ID: "local|alice", Name: "Alice", Email: "alice@tasks.local"},
		{ID: "local|bob", Name: "Bob", Email: "bob@tasks.local"},
	}

	logins := make([]models.LoginResponse, 0, len(seedUsers))
	for _, user := range seedUsers {
		if err := userRepo.Upsert(ctx, user); err != nil {
			log.Fatalf("Failed to seed user %s: %v", user.Email, err)
		}

		token, err := authService.IssueToken(user)
		if err != nil {
			log.Fatalf("Failed to issue token for %s: %v", user.Email, err)
		}
		logins = append(logins, models.LoginResponse{Token: token, User: user.Response()})
		slog.Info("Seeded user", "userID", user.ID)
	}

	out, err := json.MarshalIndent(logins, "", "  ")
	if err != nil {
		log.Fatal("Failed to encode tokens:", err)
	}
	fmt.Println(string(out))

	slog.Info("Database seeding completed successfully!")
}
