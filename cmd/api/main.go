package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ArowuTest/recyclehub-backend/api/routes"
	"github.com/ArowuTest/recyclehub-backend/internal/config"
	"github.com/ArowuTest/recyclehub-backend/internal/handlers"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories"
	"github.com/ArowuTest/recyclehub-backend/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/recyclehub-backend/internal/repositories/mongodb"
	"github.com/ArowuTest/recyclehub-backend/internal/services"
	"github.com/ArowuTest/recyclehub-backend/pkg/jwt"
	"github.com/ArowuTest/recyclehub-backend/pkg/mongodb"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
)

// stores groups the persistence gateway implementations selected by Storage.Driver
type stores struct {
	users        repositories.UserRepository
	collections  repositories.CollectionRepository
	vouchers     repositories.VoucherRepository
	transactions repositories.PointTransactionRepository
	events       repositories.CollectionEventRepository
	close        func(context.Context) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	setupLogging(cfg.LogLevel)

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s storage: %v", cfg.Storage.Driver, err)
	}
	defer func() {
		if err := st.close(context.Background()); err != nil {
			slog.Error("Error closing storage", "error", err)
		}
	}()

	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to set up %s locks: %v", cfg.Locks.Driver, err)
	}
	defer closeLocker()

	policy, err := services.ParseCollectorPoolPolicy(cfg.Collections.CollectorPoolPolicy)
	if err != nil {
		log.Fatalf("Invalid collector pool policy: %v", err)
	}

	timeout := cfg.Persistence.Timeout
	sessions := services.NewSessionRegistry()
	tokens := jwt.NewTokenService(cfg.JWT.Secret, cfg.TokenTTL())

	authService := services.NewAuthService(st.users, tokens, sessions, timeout)
	ledgerService := services.NewLedgerService(st.users, st.vouchers, st.transactions, locker, sessions, cfg.Vouchers.Catalog, timeout)
	collectionService := services.NewCollectionService(st.collections, ledgerService, locker, policy, timeout).WithHistory(st.events)

	sweeper, err := services.NewVoucherSweeper(ledgerService, cfg.Vouchers.ExpirySweep)
	if err != nil {
		log.Fatalf("Failed to schedule voucher sweep: %v", err)
	}
	sweeper.Start()
	defer sweeper.Stop()

	if strings.EqualFold(cfg.LogLevel, "debug") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := routes.SetupRouter(cfg, routes.HandlerDependencies{
		AuthHandler:       handlers.NewAuthHandler(authService),
		CollectionHandler: handlers.NewCollectionHandler(collectionService),
		LedgerHandler:     handlers.NewLedgerHandler(ledgerService),
		Authenticator:     authService,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Server.Port, "storage", cfg.Storage.Driver, "locks", cfg.Locks.Driver, "collectorPool", policy)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	slog.Info("Server exiting")
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})))
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	if cfg.Storage.Driver == "memory" {
		slog.Warn("Using in-memory storage, data is lost on restart")
		m := memory.New()
		return &stores{
			users:        m.Users(),
			collections:  m.Collections(),
			vouchers:     m.Vouchers(),
			transactions: m.PointTransactions(),
			events:       m.CollectionEvents(),
			close:        func(context.Context) error { return nil },
		}, nil
	}

	client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.Database, 10*time.Second)
	if err != nil {
		return nil, err
	}
	db := client.Database()

	users := mongorepo.NewUserRepository(db)
	collections := mongorepo.NewCollectionRepository(db)
	vouchers := mongorepo.NewVoucherRepository(db)
	transactions := mongorepo.NewPointTransactionRepository(db)
	events := mongorepo.NewEventRepository(db)

	indexCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	for _, ix := range []interface{ EnsureIndexes(context.Context) error }{users, collections, vouchers, transactions, events} {
		if err := ix.EnsureIndexes(indexCtx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
	}

	return &stores{
		users:        users,
		collections:  collections,
		vouchers:     vouchers,
		transactions: transactions,
		events:       events,
		close:        client.Disconnect,
	}, nil
}

func openLocker(ctx context.Context, cfg *config.Config) (services.Locker, func(), error) {
	if cfg.Locks.Driver != "redis" {
		return services.NewKeyedMutex(), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	closeFn := func() {
		if err := client.Close(); err != nil {
			slog.Error("Error closing redis client", "error", err)
		}
	}
	return services.NewRedisLocker(client, cfg.Locks.TTL), closeFn, nil
}
