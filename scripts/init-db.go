package main

import (
	"context"
	"fmt"
	"log"

	"bakery_tracker/internal/config"
	"bakery_tracker/internal/database"
	"bakery_tracker/internal/migrations"
	"bakery_tracker/internal/repository"
)

func main() {
	fmt.Println("Initializing database...")

	// Load configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database:", err)
	}

	// Create tables, the sequence counter and the default catalog
	if err := migrations.RunMigrations(db); err != nil {
		log.Fatal("Failed to migrate database:", err)
	}

	last, err := repository.NewOrderRepository(db).LastSequence(context.Background())
	if err != nil {
		log.Fatal("Failed to read order sequence:", err)
	}
	fmt.Printf("Order sequence is at %d; the next order will be #%d\n", last, last+1)

	products, err := repository.NewProductRepository(db).GetActive(context.Background())
	if err != nil {
		log.Fatal("Failed to read catalog:", err)
	}
	fmt.Println("Catalog:")
	for _, p := range products {
		fmt.Printf("  %-16s Q%s\n", p.Name, p.UnitPrice.StringFixed(2))
	}

	fmt.Println("Database initialization completed successfully!")
}
