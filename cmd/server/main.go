package main

import (
	"context"
	"net/http"

	"github.com/ossdoctor/contribution-service/internal/adapters/api"
	"github.com/ossdoctor/contribution-service/internal/adapters/db"
	routes "github.com/ossdoctor/contribution-service/internal/adapters/http"
	"github.com/ossdoctor/contribution-service/internal/adapters/storage"
	"github.com/ossdoctor/contribution-service/internal/core/service"
	"github.com/ossdoctor/contribution-service/internal/seeder"
	"github.com/ossdoctor/contribution-service/pkg/config"
	"github.com/sirupsen/logrus"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	// Initialize the database
	gormDB := storage.InitDB(cfg)

	// Create the stores
	userStore := db.NewGormUserStore(gormDB)
	contributionStore := db.NewGormContributionStore(gormDB)
	experienceStore := db.NewGormExperienceStore(gormDB)
	levelStore := db.NewGormLevelStore(gormDB)
	repositoryStore := db.NewGormRepositoryStore(gormDB)
	scoreStore := db.NewGormScoreStore(gormDB)

	// Initialize the GitHub client
	client := api.NewGitHubClient(cfg, log)

	// Create the services
	syncEngine := service.NewSyncEngine(userStore, contributionStore, client, cfg.DefaultUser, cfg.LookbackDays, log)
	experienceEngine := service.NewExperienceEngine(userStore, experienceStore, levelStore, service.DefaultExpPolicy(), log)
	scoreService := service.NewScoreService(client, repositoryStore, scoreStore, log)

	// Seed the level ladder if necessary
	if err := seeder.SeedLevels(context.Background(), levelStore); err != nil {
		log.WithError(err).Fatal("failed to seed levels")
	}

	// Set up HTTP routes
	handler := routes.NewHandler(syncEngine, experienceEngine, scoreService, userStore, contributionStore, client, log)
	router := routes.NewRouter(handler, log)

	// Start the background worker
	go syncEngine.StartUserMonitor(context.Background(), cfg.MonitorInterval, experienceEngine.AwardExperience)

	// Start the HTTP server
	log.WithField("port", cfg.ServerPort).Info("server is running")
	if err := http.ListenAndServe(":"+cfg.ServerPort, router); err != nil {
		log.WithError(err).Fatal("could not start server")
	}
}
