package main

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	config "github.com/tellyousomeday/api/configs"
	"github.com/tellyousomeday/api/database"
	"github.com/tellyousomeday/api/handlers"
	"github.com/tellyousomeday/api/jobs"
	"github.com/tellyousomeday/api/middleware"
	"github.com/tellyousomeday/api/notifications"
	"github.com/tellyousomeday/api/routes"
	"github.com/tellyousomeday/api/services"
)

func main() {
	cfg := config.Load()

	var log *zap.Logger
	var err error
	if cfg.Production() {
		log, err = zap.NewProduction()
	} else {
		log, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := database.Migrate(db); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}
	log.Info("database connected")

	store := database.NewMessageStore(db)

	var notifier services.Notifier
	if es := notifications.NewEmailService(
		cfg.BrevoAPIKey, cfg.EmailSender, cfg.EmailSenderName,
		cfg.NotifyEmail, cfg.FrontendURL, log,
	); es != nil {
		notifier = es
	}

	svc := services.NewMessageService(store, notifier, log)

	sweep := jobs.NewDeliveryJob(svc, cfg.SweepTimeout, log)
	c := cron.New()
	schedule := fmt.Sprintf("@every %s", cfg.SweepInterval)
	if _, err := c.AddJob(schedule, sweep); err != nil {
		log.Fatal("failed to schedule delivery sweep", zap.Error(err))
	}
	c.Start()
	defer c.Stop()
	log.Info("delivery sweep scheduled", zap.Duration("interval", cfg.SweepInterval))

	app := fiber.New(fiber.Config{
		AppName:      "TellYouSomeday",
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			message := "Internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				message = e.Message
			}
			if code == fiber.StatusInternalServerError {
				log.Error("unhandled error",
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
					zap.Error(err))
				if cfg.Production() {
					message = "Internal server error"
				}
			}
			return c.Status(code).JSON(fiber.Map{
				"success": false,
				"error":   "INTERNAL",
				"message": message,
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, POST, OPTIONS",
	}))
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	limiters := routes.Limiters{
		General: middleware.NewIPRateLimiter(cfg.GeneralLimitPerWindow, cfg.GeneralLimitWindow,
			"Too many requests from this IP, please try again later.", log),
		Create: middleware.NewIPRateLimiter(cfg.CreateLimitPerWindow, cfg.CreateLimitWindow,
			"Too many messages created. Please wait before trying again.", log),
		Search: middleware.NewIPRateLimiter(cfg.SearchLimitPerMinute, time.Minute,
			"Please slow down your search requests", log),
		Read: middleware.NewIPRateLimiter(cfg.ReadLimitPerMinute, time.Minute,
			"Please slow down your message reading", log),
	}

	handler := handlers.NewMessageHandler(svc, func(ctx context.Context) error {
		return database.Ping(ctx, db)
	}, log, cfg.Production())

	routes.MessageRoutes(app, handler, limiters, middleware.SpamGate(log))

	log.Info("server starting", zap.String("port", cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatal("server failed to start", zap.Error(err))
	}
}
