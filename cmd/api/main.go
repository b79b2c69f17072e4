package main

import (
	"context"
	"database/sql"
	"net/http"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/feeds"
	server "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/http_server"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/observability"
	redisad "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/adapters/redis"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/app"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/clock"
	"github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/shared"
	mysqlrepo "github.com/gonzalo0909/lapa-casa-hostel-sub004/internal/storage/mysql"
)

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv)

	observability.Serve()

	// db
	db, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	log.Info().Msg("database connection ok")

	// deps
	repo := mysqlrepo.New(db)
	cache := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	clk := clock.NewSystem()
	catalog := shared.Catalog(cfg)

	avail := app.NewAvailabilityService(catalog, repo, cache, clk, cfg.CacheTTL, cfg.PastGrace)
	holds := app.NewHoldService(catalog, repo, avail, cache, clk, cfg.HoldTTL)
	quotes := app.NewQuoteService(catalog)
	export := app.NewExportService(catalog, repo, clk)
	fetcher := feeds.New(cfg.FeedFetchSecs, cfg.FeedRateLimit)
	syncSvc := app.NewSyncService(catalog, repo, repo, fetcher, cache, clk)

	// expired holds become durable tombstones in the background
	go holds.RunSweeper(context.Background(), cfg.SweepInterval)

	// http
	srv := server.New()
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(server.NewHandlers(avail, quotes, holds, export, syncSvc))

	log.Info().Str("addr", cfg.HTTPAddr).Msg("API listening")
	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux()}

	if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("http server failed")
	}
}
