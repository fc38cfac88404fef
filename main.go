package main

import (
	"context"
	"time"

	"github.com/yatube/yatube/config"
	"github.com/yatube/yatube/models"
	"github.com/yatube/yatube/repositories"
	"github.com/yatube/yatube/routes"
	"github.com/yatube/yatube/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)
	store := utils.NewCacheStore(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.MediaSweepMinutes > 0 {
		interval := time.Duration(cfg.MediaSweepMinutes) * time.Minute
		posts := repositories.NewGormPostRepository(db)
		utils.StartImageSweeper(ctx, utils.NewLocalStorage(cfg.MediaRoot, cfg.MediaURL), posts.ImageNames, interval, interval)
	}

	r := routes.SetupRouter(db, store)

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := utils.GraceServer(":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
