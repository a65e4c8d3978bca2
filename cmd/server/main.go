package main

import (
	"fmt"
	"log"
	"os"

	"github.com/pricelens/backend/config"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/cache"
	"github.com/pricelens/backend/internal/infrastructure/crawler"
	"github.com/pricelens/backend/internal/infrastructure/gemini"
	"github.com/pricelens/backend/internal/infrastructure/officeworks"
	"github.com/pricelens/backend/internal/infrastructure/postgres"
	"github.com/pricelens/backend/internal/notify"
	"github.com/pricelens/backend/internal/scheduler"
	"github.com/pricelens/backend/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting PriceLens Backend v1.0.0")
	log.Printf("Environment: %s", cfg.Server.Environment)
	log.Printf("Port: %s", cfg.Server.Port)

	// Database
	db, err := postgres.Open(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := postgres.InitSchema(db); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}

	productRepo := postgres.NewProductRepository(db)
	historyRepo := postgres.NewHistoryRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)

	// Infrastructure clients
	memoryCache := cache.NewMemoryCache()
	stockClient := officeworks.NewClient(cfg.StockAPI.BaseURL)
	crawlerClient := crawler.NewClient(cfg.Crawler.APIKey, cfg.Crawler.BaseURL, cfg.Crawler.Pacing)

	if crawlerClient.Configured() {
		log.Printf("Crawler configured: %s", cfg.Crawler.BaseURL)
	} else {
		log.Printf("WARNING: crawler API key not set - competitor searches will return no results")
	}

	// Structured extraction is selectable: the crawl service's extract
	// endpoint, Gemini, or heuristic-only.
	extractor := selectExtractor(cfg, crawlerClient)

	emailNotifier := notify.NewEmailNotifier(notify.EmailConfig{
		SMTPServer: cfg.Notify.SMTPServer,
		SMTPPort:   cfg.Notify.SMTPPort,
		SMTPUser:   cfg.Notify.SMTPUser,
		SMTPPass:   cfg.Notify.SMTPPass,
		FromEmail:  cfg.Notify.FromEmail,
		ToEmail:    cfg.Notify.ToEmail,
		Enabled:    cfg.Notify.Enabled,
	})

	// Usecase layer
	enableDebug := cfg.Server.Environment == "development" || cfg.Matching.EnableDebugLogging

	matcher := usecase.NewMatchingService(usecase.MatchConfig{
		DefaultThreshold:   cfg.Matching.DefaultThreshold,
		EnableDebugLogging: enableDebug,
	})

	comparisonService := usecase.NewComparisonService(
		config.Retailers(),
		crawlerClient,
		extractor,
		matcher,
		memoryCache,
		usecase.ComparisonConfig{
			MaxRetailers:       cfg.Comparison.MaxRetailers,
			RetailerPacing:     cfg.Comparison.RetailerPacing,
			CacheTTL:           cfg.Cache.TTL,
			EnableDebugLogging: enableDebug,
		},
	)

	trackerService := usecase.NewTrackerService(
		productRepo,
		historyRepo,
		notificationRepo,
		stockClient,
		emailNotifier,
		usecase.TrackerConfig{
			CheckPacing:        cfg.Scheduler.CheckPacing,
			EnableDebugLogging: enableDebug,
		},
	)

	log.Printf("Matching: threshold=%.2f, extractor=%s, debug=%v",
		cfg.Matching.DefaultThreshold, cfg.Crawler.Extractor, enableDebug)

	// Periodic price checks
	priceChecker := scheduler.NewPriceChecker(trackerService, cfg.Scheduler.Interval)
	if err := priceChecker.Start(); err != nil {
		log.Fatalf("Failed to start price checker: %v", err)
	}
	defer priceChecker.Stop()

	// Create HTTP handler with dependencies
	handler := httpDelivery.NewHandler(trackerService, comparisonService, stockClient)

	// Setup router
	router := httpDelivery.SetupRouter(cfg, handler)

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("Server listening on %s", addr)

	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// selectExtractor picks the structured extraction backend. A nil return
// means the comparison service runs heuristic-only.
func selectExtractor(cfg *config.Config, crawlerClient *crawler.Client) domain.StructuredExtractor {
	switch cfg.Crawler.Extractor {
	case "gemini":
		log.Printf("Structured extraction: gemini (%s)", cfg.Gemini.Model)
		return gemini.NewExtractor(cfg.Gemini.APIKey, cfg.Gemini.Model)
	case "off":
		log.Printf("Structured extraction: disabled (heuristic only)")
		return nil
	default:
		log.Printf("Structured extraction: crawler extract endpoint")
		return crawlerClient
	}
}

func init() {
	// Set log flags for better debugging
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	log.SetOutput(os.Stdout)
}
