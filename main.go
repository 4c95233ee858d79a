package main

import (
	"context"
	"net/http"
	"os"
	"time"

	nested "github.com/antonfisher/nested-logrus-formatter"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	appConfig "reon/config"
	"reon/controller"
	"reon/database"
	"reon/handlers"
	"reon/recommend"
	"reon/sentry"
	"reon/spotify"
	"reon/youtube"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Error loading .env file: %v", err)
	}
	appConfig.NewConfig()
	setupLogging()
	sentry.Init()

	if err := run(context.Background()); err != nil {
		log.Fatal(err)
	}
}

func setupLogging() {
	log.SetFormatter(&nested.Formatter{
		HideKeys:    false,
		FieldsOrder: []string{"module", "method"},
	})
	if level, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(level)
	}
}

func run(ctx context.Context) error {
	yt, err := youtube.NewClient(ctx)
	if err != nil {
		log.Fatalf("Error creating youtube client: %v", err)
		return err
	}

	if appConfig.Config.Spotify.IsConfigured() {
		if err := spotify.NewSpotifyClient(); err != nil {
			log.Warnf("spotify unavailable, artist pages disabled: %v", err)
		}
	} else {
		log.Info("spotify credentials not set, artist pages disabled")
	}

	db, err := database.New(appConfig.Config.Options.DBPath)
	if err != nil {
		log.Fatalf("Error opening database: %v", err)
		return err
	}
	defer db.Close()

	ctrl := controller.NewController(yt, recommend.New())

	ttl := time.Duration(appConfig.Config.Options.SessionTTLMinutes) * time.Minute
	stopPruning := ctrl.StartPruning(10*time.Minute, ttl)
	defer stopPruning()

	router := gin.Default()
	router.Use(sentry.GetSentryGin())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ok":       true,
			"sessions": ctrl.SessionCount(),
		})
	})

	manager := handlers.NewManager(ctrl, db, yt)
	manager.RegisterRoutes(router)

	port := appConfig.Config.Options.Port
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting server on :%s", port)
	return http.ListenAndServe(":"+port, router)
}
