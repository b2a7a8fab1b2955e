package main

import (
	"log"

	_ "github.com/lib/pq"

	"bazaar/config"
	"bazaar/internal/database"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.Migrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	sqlDB, err := db.SQL()
	if err != nil {
		log.Fatalf("Failed to get database pool: %v", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			log.Fatal("Error closing database connection")
		}
	}()

	app := InitializeApp(cfg, sqlDB)

	go app.Hub.Run()
	defer app.Hub.Stop()

	log.Printf("Starting chat server on :%s", cfg.Port)
	if err := app.Server.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to serve: %v", err)
	}
}
