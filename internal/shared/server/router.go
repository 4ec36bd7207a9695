package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	googleauth "pixelmart-backend/internal/auth"
	"pixelmart-backend/internal/checkout"
	"pixelmart-backend/internal/downloads"
	"pixelmart-backend/internal/items"
	"pixelmart-backend/internal/ledger"
	"pixelmart-backend/internal/payments"
	"pixelmart-backend/internal/settlement"
	"pixelmart-backend/internal/shared/config"
	"pixelmart-backend/internal/shared/metrics"
	"pixelmart-backend/internal/shared/server/middleware"
	"pixelmart-backend/internal/shared/server/respond"
	"pixelmart-backend/internal/shared/storage/db"
	"pixelmart-backend/internal/shared/storage/object"
	localstore "pixelmart-backend/internal/shared/storage/object/local"
	s3store "pixelmart-backend/internal/shared/storage/object/s3"
	"pixelmart-backend/internal/users"
)

// NewRouter constructs the Gin engine with middleware, dependencies and
// routes registered. With no reachable database it falls back to in-memory
// repositories, which is enough for local dev against Stripe test mode.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
	)

	// Dependencies
	store := buildStore(cfg)
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var (
		userRepo  users.Repo
		itemRepo  items.Repo
		tokenRepo downloads.Repo
		eventRepo payments.EventRepo
		pendRepo  ledger.Repo
	)
	if sqlDB != nil {
		userRepo = &users.PGRepo{DB: sqlDB}
		itemRepo = &items.PGRepo{DB: sqlDB}
		tokenRepo = &downloads.PGRepo{DB: sqlDB}
		eventRepo = &payments.PGEventRepo{DB: sqlDB}
		pendRepo = &ledger.PGRepo{DB: sqlDB}
	} else {
		userRepo = users.NewMemoryRepo()
		itemRepo = items.NewMemoryRepo()
		tokenRepo = downloads.NewMemoryRepo()
		eventRepo = payments.NewMemoryEventRepo()
		pendRepo = ledger.NewMemoryRepo()
	}

	var processor payments.Processor
	if sp := payments.NewStripeProcessor(cfg.StripeSecretKey); sp != nil {
		processor = sp
	}

	userSvc := &users.Service{Repo: userRepo}
	sync := &users.Synchronizer{Repo: userRepo, Processor: processor}
	itemSvc := &items.Service{Repo: itemRepo, Store: store, MinPriceCents: cfg.MinPriceCents}
	downloadSvc := downloads.NewService(tokenRepo, itemRepo, store, cfg.SignedURLTTL)

	settler := settlement.NewOrchestrator(
		itemRepo, userRepo, sync, pendRepo, downloadSvc, processor,
		cfg.PlatformFeePercent, cfg.DownloadTokenTTL, cfg.PendingTransferTTL,
	)
	drainer := &ledger.Drainer{Repo: pendRepo, Users: userRepo, Processor: processor}

	itemHandler := items.NewHandler(itemSvc)
	downloadHandler := downloads.NewHandler(downloadSvc)
	webhookHandler := payments.NewWebhookHandler(cfg.StripeWebhookSecret, eventRepo, settler, cfg.ProcessedEventTTL)
	checkoutHandler := &checkout.Handler{
		Items:      itemRepo,
		Users:      userRepo,
		Sync:       sync,
		Processor:  processor,
		Settler:    settler,
		Tokens:     tokenRepo,
		FeePercent: cfg.PlatformFeePercent,
		SuccessURL: cfg.CheckoutSuccessURL,
		CancelURL:  cfg.CheckoutCancelURL,
	}
	userHandler := &users.Handler{
		Repo:       userRepo,
		Processor:  processor,
		Sync:       sync,
		Drainer:    drainer,
		RefreshURL: cfg.ConnectRefreshURL,
		ReturnURL:  cfg.ConnectReturnURL,
	}
	ledgerHandler := &ledger.Handler{Drainer: drainer}
	googleAuthSvc := googleauth.NewGoogleService(
		cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL, cfg.UIRedirectURL, userSvc,
	)

	webhookHandler.RegisterRoutes(r)
	downloadHandler.RegisterRoutes(r)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	googleAuthSvc.RegisterRoutes(api)
	itemHandler.RegisterPublicRoutes(api)
	checkoutHandler.RegisterRoutes(api)

	authed := api.Group("")
	authed.Use(middleware.Auth())
	registerMeRoutes(authed)
	itemHandler.RegisterSellerRoutes(authed)
	userHandler.RegisterRoutes(authed)

	admin := api.Group("/admin")
	admin.Use(middleware.Admin(cfg.AdminSecret))
	itemHandler.RegisterAdminRoutes(admin)
	ledgerHandler.RegisterRoutes(admin)

	return r
}

func buildStore(cfg config.Config) object.ObjectStore {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3store.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			log.Printf("failed to init s3 store, falling back to local: %v", err)
		} else {
			return store
		}
	}
	return localstore.New(cfg.LocalStoreDir)
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
