package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"blog-server/internal/auth"
	"blog-server/internal/config"
	apphttp "blog-server/internal/http"
	"blog-server/internal/repository"
	"blog-server/internal/repository/mongodb"
	"blog-server/internal/repository/sqlite"
	"blog-server/internal/service"
	"blog-server/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	configureLogger(logger, cfg)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		logger.Fatalf("auth jwt secret is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo, postRepo, closeDB, err := openRepositories(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer closeDB()

	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}
	if err := postRepo.Init(ctx); err != nil {
		logger.Fatalf("init post repository: %v", err)
	}

	storageSvc, err := buildStorage(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup storage: %v", err)
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.TokenTTL())
	if err != nil {
		logger.Fatalf("setup tokens: %v", err)
	}

	var revoker auth.Revoker
	if cfg.Redis.Addr != "" {
		rdb, err := auth.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Fatalf("connect redis: %v", err)
		}
		defer rdb.Close()
		revoker = auth.NewRedisRevoker(rdb)
		logger.Infof("token revocation enabled (redis %s)", cfg.Redis.Addr)
	}

	postService := service.NewPostService(postRepo, storageSvc, logger)
	userService := service.NewUserService(userRepo, postRepo, storageSvc, tokens, revoker, logger)

	if cfg.Uploads.SweepInterval > 0 {
		janitor := service.NewJanitor(userRepo, postRepo, storageSvc, service.DefaultOrphanGrace, logger)
		go janitor.Run(ctx, cfg.Uploads.SweepInterval)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(postService, userService, storageSvc, tokens, revoker, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: router,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

func configureLogger(logger *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.Log.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(cfg.Log.Level)
	if err != nil {
		logger.Warnf("unknown log level %q, using info", cfg.Log.Level)
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)
}

func openRepositories(ctx context.Context, cfg config.Config, logger *logrus.Logger) (repository.UserRepository, repository.PostRepository, func(), error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Infof("using sqlite database %s", cfg.Database.Path)
		return sqlite.NewUserRepository(db), sqlite.NewPostRepository(db), func() { db.Close() }, nil
	default:
		client, db, err := mongodb.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, nil, err
		}
		logger.Infof("using mongo database %s", cfg.Mongo.Database)
		closeFn := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				logger.Warnf("mongo disconnect: %v", err)
			}
		}
		return mongodb.NewUserRepository(db), mongodb.NewPostRepository(db), closeFn, nil
	}
}

func buildStorage(ctx context.Context, cfg config.Config, logger *logrus.Logger) (storage.Service, error) {
	if cfg.Uploads.Backend != "s3" {
		logger.Infof("storing uploads in %s", cfg.Uploads.Dir)
		return storage.NewLocalService(cfg.Uploads.Dir, logger)
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Storage.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)
	return storage.NewS3Service(client, cfg.Storage.Bucket, cfg.Storage.KeyPrefix)
}
