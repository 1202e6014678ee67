package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"github.com/wayfare/wayfare/pkg/wayfare/auth"
	"github.com/wayfare/wayfare/pkg/wayfare/availability"
	"github.com/wayfare/wayfare/pkg/wayfare/circles"
	"github.com/wayfare/wayfare/pkg/wayfare/config"
	"github.com/wayfare/wayfare/pkg/wayfare/database"
	"github.com/wayfare/wayfare/pkg/wayfare/models"
	"github.com/wayfare/wayfare/pkg/wayfare/participants"
	"github.com/wayfare/wayfare/pkg/wayfare/stays"
	"github.com/wayfare/wayfare/pkg/wayfare/trips"
	"github.com/wayfare/wayfare/pkg/wayfare/windows"
	"gorm.io/gorm"
)

// @title Wayfare API
// @version 1.0
// @description Collaborative trip scheduling: availability, date windows, consensus and locking.

// @contact.name Wayfare Support
// @contact.url https://github.com/wayfare/wayfare

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := database.Connect(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	// Create default admin user if no admin exists
	if err := ensureAdminExists(db); err != nil {
		log.Fatalf("Failed to ensure admin user exists: %v", err)
	}

	// Set up Gin router
	r := gin.Default()

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	// API routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"service": "wayfare",
			})
		})

		// Auth routes (public)
		authHandler := auth.NewHandler(db)
		authHandler.RegisterRoutes(api.Group("/auth"))

		// Circles routes (protected)
		circlesHandler := circles.NewHandler(db)
		circlesGroup := api.Group("/circles")
		circlesGroup.Use(auth.AuthMiddleware())
		circlesHandler.RegisterRoutes(circlesGroup)
		circlesHandler.RegisterMemberRoutes(circlesGroup)

		// Trip routes (protected). The scheduling feature handlers all hang
		// off the same /trips group.
		tripsGroup := api.Group("/trips")
		tripsGroup.Use(auth.AuthMiddleware())

		trips.NewHandler(db).RegisterRoutes(tripsGroup)
		availability.NewHandler(db).RegisterRoutes(tripsGroup)
		windows.NewHandler(db, cfg.Scheduling).RegisterRoutes(tripsGroup)
		participants.NewHandler(db).RegisterRoutes(tripsGroup)
		stays.NewHandler(db).RegisterRoutes(tripsGroup)
	}

	log.Printf("Starting Wayfare server on :%s", cfg.Server.Port)
	if err := r.Run(":" + cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminExists creates a default admin user if no admin exists in the database.
func ensureAdminExists(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil // Admin already exists
	}

	hashedPassword, err := auth.HashPassword("changeme")
	if err != nil {
		return err
	}

	adminUser := models.User{
		Email:        "admin@wayfare.local",
		Name:         "Admin",
		PasswordHash: hashedPassword,
		SystemRole:   models.SystemRoleAdmin,
	}
	if err := db.Create(&adminUser).Error; err != nil {
		return err
	}

	log.Printf("Created default admin user: admin@wayfare.local (password: changeme)")
	return nil
}
