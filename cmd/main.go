package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"github.com/arzan03/mediavault/internal/archive"
	"github.com/arzan03/mediavault/internal/config"
	"github.com/arzan03/mediavault/internal/db"
	"github.com/arzan03/mediavault/internal/handlers"
	"github.com/arzan03/mediavault/internal/middleware"
	"github.com/arzan03/mediavault/internal/services"
	"github.com/arzan03/mediavault/internal/storage"
	"github.com/arzan03/mediavault/internal/watermark"
)

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found or error loading it, using environment variables")
	}

	cfg := config.MustLoad()
	ctx := context.Background()

	// The watermark logo is a startup requirement: refuse to serve anything
	// without it rather than failing on every preview request.
	engine, err := watermark.New(cfg.Watermark)
	if err != nil {
		log.Fatalf("Watermark engine init failed: %v", err)
	}

	gateway, err := storage.NewMinioGateway(ctx, cfg.Minio)
	if err != nil {
		log.Fatalf("Failed to connect to MinIO: %v", err)
	}

	mongoDB, err := db.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDB)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	store := db.NewMongoUserStore(mongoDB)
	if err := store.EnsureIndexes(ctx); err != nil {
		log.Fatalf("Failed to ensure indexes: %v", err)
	}

	tokenService := services.NewTokenService(store, gateway, cfg.JWTSecret, cfg.TokenTTL)
	fileServer := services.NewFileServer(gateway, engine, tokenService)
	adminService := services.NewAdminService(store, cfg.JWTSecret, cfg.Admin)
	builder := archive.NewBuilder(gateway, engine, cfg.Archive.Concurrency, cfg.Archive.SizeCeiling)

	app := fiber.New(fiber.Config{
		// Streaming archives and downloads must finish inside this window.
		WriteTimeout: cfg.RequestTimeout,
	})
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.AllowedOrigins}))

	handlers.Register(app,
		handlers.NewFileHandler(fileServer, builder, tokenService, cfg.RequestTimeout),
		handlers.NewTokenHandler(tokenService),
		handlers.NewAdminHandler(adminService),
		middleware.Admin([]byte(cfg.JWTSecret)),
	)

	log.Fatal(app.Listen(":" + cfg.Port))
}
