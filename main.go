package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/agencysite/config"
	"github.com/cppla/agencysite/controllers"
	"github.com/cppla/agencysite/models"
	"github.com/cppla/agencysite/routes"
	"github.com/cppla/agencysite/storage"
	"github.com/cppla/agencysite/uploads"
	"github.com/cppla/agencysite/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(cfg, models.All()...)
	if err := controllers.EnsureAdmin(db, cfg.AdminUsername, cfg.AdminPassword, cfg.AdminEmail); err != nil {
		utils.Sugar.Fatalf("seed admin user: %v", err)
	}

	rc := utils.NewRedis(cfg)
	cache := utils.NewCache(rc)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, local, err := openStore(ctx, cfg)
	if err != nil {
		utils.Sugar.Fatalf("open upload storage: %v", err)
	}
	svc := uploads.NewService(store, uploads.Options{MaxSize: cfg.UploadMaxBytes()})

	guard := utils.NewLoginGuard(cache, cfg.LoginMaxFailures, time.Duration(cfg.LoginBanMinutes)*time.Minute)
	deps := routes.Deps{
		Config:     cfg,
		DB:         db,
		Cache:      cache,
		Issuer:     utils.NewTokenIssuer(cfg.JWTSecret, 24*time.Hour),
		Blacklist:  utils.NewTokenBlacklist(cache),
		LoginGuard: guard,
		Uploads:    svc,
	}
	if gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress); err == nil {
		deps.AccessLog = gl
	} else {
		utils.Logger.Warn("access log unavailable, using application logger", zap.Error(err))
	}

	closedDone := make(chan struct{})
	close(closedDone)
	var sweeperDone <-chan struct{} = closedDone
	if local != nil {
		deps.UploadsRoot = local.Root()
		sweeperDone = utils.StartPartialUploadSweeper(ctx, local,
			time.Duration(cfg.PartialUploadSweepEveryMins)*time.Minute,
			time.Duration(cfg.PartialUploadMaxAgeMinutes)*time.Minute)
	}

	r := routes.SetupRouter(deps)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	err = utils.GraceServer(":"+cfg.AppPort, r,
		func() {
			cancel()
			<-sweeperDone
		},
		func() {
			if rc != nil {
				_ = rc.Close()
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
		},
	)
	if err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}

// openStore selects the upload backend. The local store is also returned so its
// directory can be mounted and swept; it is nil for remote backends.
func openStore(ctx context.Context, cfg config.AppConfig) (storage.Store, *storage.LocalStore, error) {
	switch strings.ToLower(cfg.StorageDriver) {
	case "", "local":
		local, err := storage.NewLocalStore(cfg.UploadsDir)
		if err != nil {
			return nil, nil, err
		}
		utils.Logger.Info("upload storage ready", zap.String("driver", "local"), zap.String("root", local.Root()))
		return local, local, nil
	case "s3":
		client, err := storage.NewS3Client(ctx, storage.S3Options{
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, nil, err
		}
		s3Store, err := storage.NewS3Store(client, cfg.S3Bucket, cfg.S3Prefix)
		if err != nil {
			return nil, nil, err
		}
		utils.Logger.Info("upload storage ready", zap.String("driver", "s3"), zap.String("bucket", cfg.S3Bucket))
		return s3Store, nil, nil
	default:
		return nil, nil, fmt.Errorf("unsupported storage driver %q", cfg.StorageDriver)
	}
}
