package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"backend-antrian-bank/internal/config"
	"backend-antrian-bank/internal/helper"
	"backend-antrian-bank/internal/http/handler"
	"backend-antrian-bank/internal/http/middleware"
	"backend-antrian-bank/internal/logger"
	"backend-antrian-bank/internal/queue"
	"backend-antrian-bank/internal/realtime"
	"backend-antrian-bank/internal/store"
	"backend-antrian-bank/internal/telemetry"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())

	config.LoadEnv()

	log := logger.Must(config.GetEnv("APP_ENV", "development"))
	defer log.Sync()
	zap.ReplaceGlobals(log)

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := telemetry.Init(ctx, telemetry.Config{
		Enabled:       cfg.OTel.Enabled,
		ServiceName:   cfg.App.Name,
		Environment:   cfg.App.Env,
		CollectorAddr: cfg.OTel.CollectorAddr,
	}); err != nil {
		log.Fatal("telemetry init failed", zap.Error(err))
	}

	// ===== STORAGE =====

	var rdb *redis.Client
	if cfg.UsesRedis() {
		if rdb, err = config.InitRedis(ctx, cfg.Redis, log); err != nil {
			log.Fatal("redis unavailable", zap.Error(err))
		}
		defer rdb.Close()
	}

	var db *sql.DB
	var st store.QueueEntryStore
	switch cfg.Store.Driver {
	case config.DriverMySQL, config.DriverPostgres:
		if db, err = config.InitDB(ctx, cfg.Store, log); err != nil {
			log.Fatal("database unavailable", zap.Error(err))
		}
		defer db.Close()

		sqlStore := store.NewSQLStore(db, store.Dialect(cfg.Store.Driver))
		if err := sqlStore.Migrate(ctx); err != nil {
			log.Fatal("migration failed", zap.Error(err))
		}
		st = sqlStore
	case config.DriverRedis:
		st = store.NewRedisStore(rdb)
	default:
		log.Warn("using in-memory store, entries are lost on restart")
		st = store.NewMemoryStore()
	}

	// ===== QUEUE SERVICE AND REALTIME FEED =====

	hub := realtime.NewHub(st.ListOrderedByPosition, log)

	qcfg := queue.Config{
		UniqueNumbers: cfg.Queue.UniqueNumbers,
		NumberRetries: cfg.Queue.NumberRetries,
		OnChange:      hub.BroadcastQueueUpdate,
	}
	if rdb != nil {
		qcfg.Counter = store.NewRedisCounter(rdb)
	}
	if cfg.Branch.Open != "" {
		hours, err := helper.NewOpeningHours(cfg.Branch.Open, cfg.Branch.Close, cfg.Branch.Timezone)
		if err != nil {
			log.Fatal("invalid opening hours", zap.Error(err))
		}
		qcfg.IsOpen = hours.IsOpen
	}

	svc := queue.NewService(st, qcfg, log.Named("queue"))

	// ===== HTTP =====

	app := fiber.New(fiber.Config{
		AppName:       cfg.App.Name,
		Prefork:       false,
		CaseSensitive: true,
		StrictRouting: true,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(telemetry.Middleware())
	app.Use(middleware.Logger(log.Named("http")))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE",
	}))

	handler.New(svc, hub, cfg, log.Named("handler")).Register(app)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")

		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("http shutdown failed", zap.Error(err))
		}
	}()

	log.Info("server listening",
		zap.String("addr", cfg.App.Addr()),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("redis", rdb != nil),
	)
	if err := app.Listen(cfg.App.Addr()); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}

	// the hub reads the store, so it stops before the deferred db/redis Close
	hub.Close()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		log.Error("telemetry shutdown failed", zap.Error(err))
	}
}
