package main

import (
	"context"
	"log"
	"time"

	"bakery_tracker/internal/config"
	"bakery_tracker/internal/database"
	"bakery_tracker/internal/handlers"
	"bakery_tracker/internal/migrations"
	"bakery_tracker/internal/redis"
	"bakery_tracker/internal/repository"
	"bakery_tracker/internal/services"
	"bakery_tracker/pkg/ticket"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize storage
	var orderRepo repository.OrderRepository
	var productRepo repository.ProductRepository
	switch cfg.StoreDriver {
	case "memory":
		log.Println("Using in-memory order store; data is lost on restart")
		store := repository.NewMemoryStore()
		orderRepo = repository.NewMemoryOrders(store)
		productRepo = repository.NewMemoryProducts(store)
		if err := migrations.SeedCatalog(context.Background(), productRepo, services.DefaultCatalog); err != nil {
			log.Fatal("Failed to seed catalog:", err)
		}
	case "postgres":
		db, err := database.Initialize(cfg.DatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database:", err)
		}
		if err := migrations.RunMigrations(db); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		orderRepo = repository.NewOrderRepository(db)
		productRepo = repository.NewProductRepository(db)
	default:
		log.Fatalf("Unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	gated, err := services.ParseActions(cfg.GatedActions)
	if err != nil {
		log.Fatal("Invalid AUTH_GATED_ACTIONS:", err)
	}
	authorizer, err := services.NewPINAuthorizer(cfg.AuthPIN, gated)
	if err != nil {
		log.Fatal("Failed to set up authorization:", err)
	}

	location, err := time.LoadLocation(cfg.DisplayTimezone)
	if err != nil {
		log.Fatal("Invalid DISPLAY_TIMEZONE:", err)
	}

	opts := []services.OrderServiceOption{services.WithLocation(location)}
	var subscriber handlers.OrderSubscriber

	// Initialize Redis
	if cfg.RedisURL != "" {
		redisClient, err := redis.Initialize(cfg.RedisURL, time.Duration(cfg.CacheTTL)*time.Second)
		if err != nil {
			log.Fatal("Failed to connect to Redis:", err)
		}
		defer redisClient.Close()
		opts = append(opts, services.WithFeed(redisClient), services.WithCache(redisClient))
		subscriber = redisClient
	} else {
		log.Println("REDIS_URL not set; live updates and list caching are disabled")
	}

	// Initialize printer
	var printer services.Printer = services.LogPrinter{}
	if cfg.PrinterURL != "" {
		printer = ticket.NewClient(cfg.PrinterURL, cfg.PrinterUsername, cfg.PrinterPassword, cfg.PrinterPath)
	}

	// Initialize services
	orderService := services.NewOrderService(orderRepo, productRepo, authorizer, opts...)
	catalogService := services.NewCatalogService(productRepo)
	printService := services.NewPrintService(orderService, printer)

	apiHandler := handlers.NewAPIHandler(orderService, catalogService, printService, subscriber)
	router := handlers.SetupRouter(apiHandler)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := router.Run(":" + cfg.ServerPort); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
