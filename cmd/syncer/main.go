package main

import (
	"context"
	"database/sql"
	"sync"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/feeds"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/observability"
	redisad "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/redis"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/app"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/shared"
	mysqlrepo "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/storage/mysql"
)

func main() {
	ctx := context.Background()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	log.Info().
		Int("workers", cfg.SyncWorkers).
		Msg("syncer starting")

	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("db ping ok")

	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	fetcher := feeds.New(cfg.FeedFetchSecs, cfg.FeedRateLimit)
	svc := app.NewSyncService(shared.Catalog(cfg), repo, repo, fetcher, cache, clock.NewSystem())

	feedList, err := repo.ListActive(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("list feeds failed")
	}
	if len(feedList) == 0 {
		log.Info().Msg("no active feeds configured")
		return
	}

	sem := semaphore.NewWeighted(int64(cfg.SyncWorkers))
	var wg sync.WaitGroup

	for _, f := range feedList {
		f := f

		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, int64(1)); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(int64(1))

			report := svc.SyncFeed(ctx, f)
			log.Info().
				Str("feed", f.ID).
				Str("room", f.RoomID).
				Int("imported", report.Imported).
				Int("updated", report.Updated).
				Int("conflicts", report.Conflicts).
				Int("skipped", report.Skipped).
				Msg("feed synced")
		}()
	}

	wg.Wait()
	log.Info().Msg("sync completed")
}
