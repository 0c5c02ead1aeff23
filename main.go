package main

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"printdock.app/api/internal"
	"printdock.app/api/internal/accounts"
	"printdock.app/api/internal/config"
	"printdock.app/api/internal/database"
	"printdock.app/api/internal/events"
	"printdock.app/api/internal/middleware"
	"printdock.app/api/internal/recents"
	"printdock.app/api/internal/storage"
	"printdock.app/api/internal/uploads"
)

// Version tag is populated during build
var Version = "Development"
var logger = logrus.New()

func init() {
	// Enviroment variable
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatalf("Error loading .env file: %s", err)
	}

	isProduction := config.IsProduction()

	logger = &logrus.Logger{
		Out: os.Stderr,
		Formatter: &logrus.TextFormatter{
			DisableTimestamp: isProduction,
			FullTimestamp:    true,
			TimestampFormat:  time.DateTime,
		},
		Hooks:        logger.Hooks,
		Level:        logrus.InfoLevel,
		ExitFunc:     os.Exit,
		ReportCaller: false,
	}
	logger.Info("Loaded env variables")
	if isProduction {
		logger.Info("Enviroment 'Production'")
	} else {
		logger.Info("Enviroment 'Development'")
	}
}

func newObjectStore(ctx context.Context, cfg *config.Config) (storage.ObjectStore, error) {
	if cfg.StorageBackend == "s3" {
		return storage.NewS3(ctx, storage.S3Options{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.S3PublicURL,
		})
	}
	return storage.NewCloudinary(cfg.CloudinaryURL, cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
}

func main() {
	ctx := context.Background()
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Configuration error: %s", err)
	}

	// Database
	sqlDB, err := database.ConnectDB(cfg.DSN())
	if err != nil {
		logger.Fatalf("Database connection error: %s", err)
	}
	defer sqlDB.Close()
	logger.Infof("Connected to %s database", cfg.DBName)
	if err := database.Migrate(sqlDB, logger); err != nil {
		logger.Fatalf("Database migration error: %s", err)
	}
	db, err := database.Open(sqlDB, logger)
	if err != nil {
		logger.Fatalf("ORM initialisation error: %s", err)
	}

	// Object store
	store, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Fatalf("Object store error: %s", err)
	}
	logger.Infof("Using '%s' object store", cfg.StorageBackend)

	// Events and mail
	var publisher events.Publisher = events.Nop{}
	if cfg.AMQPURL != "" {
		publisher = events.NewAMQP(cfg.AMQPURL, logger)
		logger.Info("Publishing domain events to RabbitMQ")
	}
	defer publisher.Close()

	var mailer internal.Mailer
	if cfg.EmailEnabled {
		if mailer, err = internal.NewMailer(cfg); err != nil {
			logger.Fatalf("Mail client error: %s", err)
		}
	}

	// Rate limiting, shared through redis when configured
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatalf("Invalid REDIS_URL: %s", err)
		}
		redisClient = redis.NewClient(opts)
		defer redisClient.Close()
	}
	limiterStore, err := middleware.LimiterStore(redisClient)
	if err != nil {
		logger.Fatalf("Rate limiter store error: %s", err)
	}
	authLimit, err := middleware.RateLimiter(cfg.RateLimitAuth, limiterStore)
	if err != nil {
		logger.Fatalf("Rate limiter error: %s", err)
	}

	sockets := internal.NewSocketHub(logger, cfg.AllowedOrigins)
	go sockets.PingSockets()

	// Initialize HTTP server and routes
	logger.Info("Registering middleware...")
	handler := &internal.Handler{
		Logger:   logger,
		Config:   cfg,
		Accounts: accounts.NewService(db, logger, cfg.BcryptCost),
		Uploads: &uploads.Pipeline{
			DB:               db,
			Store:            store,
			Logger:           logger,
			Notifier:         sockets,
			Events:           publisher,
			Folder:           cfg.UploadFolder,
			MaxBytes:         cfg.UploadMaxBytes,
			ProgressInterval: cfg.UploadProgressInterval,
			StoreTimeout:     cfg.StoreTimeout,
		},
		Recents: &recents.Query{
			DB:            db,
			Store:         store,
			Logger:        logger,
			Folder:        cfg.UploadFolder,
			DefaultSource: cfg.RecentsSource,
		},
		Events:  publisher,
		Mailer:  mailer,
		Sockets: sockets,
	}
	middleware.PrometheusInit(uploads.Collectors()...)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.MaxMultipartMemory = 32 << 20
	router.Use(gin.Recovery())
	router.Use(middleware.LogHandler(logger))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(handler.InitCookieStore())
	router.Use(handler.InitCors())

	// Register routes
	logger.Info("Registering api routes...")
	handler.RegisterRoutes(router, authLimit)

	logger.Infof("PrintDock API (%s) is online '%s'", Version, cfg.ListenAddr)

	// Listen and serve
	err = router.Run(cfg.ListenAddr)
	if err != nil {
		logger.Fatalf("Server fatal error: %s", err)
	}
	logger.Info("Server shutdown successfully")
}
