package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/alpacaswillrule/BlueShark/internal/api"
	"github.com/alpacaswillrule/BlueShark/internal/cache"
	"github.com/alpacaswillrule/BlueShark/internal/external"
	"github.com/alpacaswillrule/BlueShark/internal/refresh"
	"github.com/alpacaswillrule/BlueShark/internal/service"
	"github.com/alpacaswillrule/BlueShark/internal/store"
)

const refreshInterval = 24 * time.Hour

func envOrDefault(key, d string) string {
	v := os.Getenv(key)
	if v == "" {
		return d
	}
	return v
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using process environment")
	}

	dbHost := envOrDefault("DB_HOST", "localhost")
	dbPort := envOrDefault("DB_PORT", "5432")
	dbName := envOrDefault("DB_NAME", "saferoute_db")
	dbUser := envOrDefault("DB_USER", "saferoute_user")
	dbPass := envOrDefault("DB_PASS", "saferoute")
	redisAddr := os.Getenv("REDIS_ADDR")
	csvPath := envOrDefault("POLICE_CSV_PATH", "police_stations.csv")
	port := envOrDefault("PORT", "8000")

	maxRestrooms, err := strconv.Atoi(envOrDefault("MAX_RESTROOMS", "1000"))
	if err != nil {
		log.Fatalf("invalid MAX_RESTROOMS: %v", err)
	}

	pgURL := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, dbPass, dbHost, dbPort, dbName)
	db, err := sql.Open("postgres", pgURL)
	if err != nil {
		log.Fatalf("db open: %v", err)
	}
	// simple ping + wait (db might be starting in docker)
	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		log.Printf("waiting for db: attempt %d, err: %v", i+1, err)
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		log.Fatalf("could not connect to db: %v", err)
	}

	if err := store.RunMigrations(db); err != nil {
		log.Fatalf("migrations: %v", err)
	}

	// shared redis cache when configured, process-local otherwise
	var responseCache cache.Cache = cache.NewMemory()
	if redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Printf("warning: redis ping failed, using in-memory cache: %v", err)
		} else {
			responseCache = cache.NewRedis(rdb)
		}
	}

	repo := store.NewPgStore(db)
	agg := external.NewAggregator(
		external.NewRefugeClient(responseCache),
		external.NewGoWeeWeeSource(),
		external.NewPoliceSource(csvPath),
	)
	svc := service.NewService(repo, agg, maxRestrooms)
	handler := api.NewHandler(svc)

	ctx, cancel := signalContext(context.Background())
	defer cancel()

	// initial load plus a daily refresh of external data
	go svc.RefreshAll(ctx)
	runner := refresh.NewRunner(refreshInterval, svc.RefreshAll)
	runner.Start(ctx)
	defer runner.Stop()

	router := gin.Default()
	router.Use(cors.Default())
	api.RegisterRoutes(router, handler)

	srv := &http.Server{Addr: ":" + port, Handler: router}
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
	}()

	log.Printf("listening on :%s", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server failed: %v", err)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM so the server
// and the refresh runner shut down together.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Println("received termination signal, starting graceful shutdown...")
		cancel()
	}()

	return ctx, cancel
}
