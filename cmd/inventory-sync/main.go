package main

// @title           Inventory Sync API
// @version         1.0
// @description     Local API of the offline-first inventory sync process. Reads fall back to the offline cache and writes are queued while the backend is unreachable.

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description HS256 service token. Format: "Bearer {token}"

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/homeinventory/inventory-sync/internal/adapters/driven/auth"
	"github.com/homeinventory/inventory-sync/internal/adapters/driven/postgres"
	postgresqueue "github.com/homeinventory/inventory-sync/internal/adapters/driven/queue/postgres"
	redisqueue "github.com/homeinventory/inventory-sync/internal/adapters/driven/queue/redis"
	"github.com/homeinventory/inventory-sync/internal/adapters/driven/reachability"
	redisadapter "github.com/homeinventory/inventory-sync/internal/adapters/driven/redis"
	"github.com/homeinventory/inventory-sync/internal/adapters/driven/remote"
	"github.com/homeinventory/inventory-sync/internal/adapters/driving/http"
	"github.com/homeinventory/inventory-sync/internal/core/domain"
	"github.com/homeinventory/inventory-sync/internal/core/ports/driven"
	"github.com/homeinventory/inventory-sync/internal/core/services"
	"github.com/homeinventory/inventory-sync/internal/worker"
)

var version = "dev"

// stores groups the persistence adapters selected at startup.
type stores struct {
	cache   driven.Cache
	queue   driven.OperationQueue
	state   driven.SyncStateStore
	lock    driven.DistributedLock
	pingers map[string]http.Pinger
}

func main() {
	// Get run mode from environment (RUN_MODE) or command line arg
	mode := getEnv("RUN_MODE", "all")
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	log.Printf("inventory-sync %s starting in %s mode", version, mode)

	// Configuration from environment
	port := getEnvInt("PORT", 8080)
	databaseURL := getEnv("DATABASE_URL", "")
	redisURL := getEnv("REDIS_URL", "")
	backendURL := getEnv("BACKEND_URL", "http://localhost:9000/api")
	healthPath := getEnv("BACKEND_HEALTH_PATH", "/health")
	tokenSecret := getEnv("SERVICE_TOKEN_SECRET", "development-secret-change-in-production")
	deviceID := getEnv("DEVICE_ID", hostname())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("Shutdown signal received, stopping...")
		cancel()
	}()

	logger := slog.Default()

	// ===== Persistence (Redis if available, otherwise PostgreSQL) =====
	var st stores
	switch {
	case redisURL != "":
		redisClient := connectRedis(ctx, redisURL)
		defer redisClient.Close()
		st = redisStores(redisClient)
	case databaseURL != "":
		db := connectPostgres(ctx, databaseURL)
		defer db.Close()
		st = postgresStores(db)
	default:
		log.Fatal("Either REDIS_URL or DATABASE_URL must be set")
	}

	// ===== Online backend =====
	tokens, err := auth.NewTokenService(auth.Config{
		Secret:   tokenSecret,
		DeviceID: deviceID,
		TTL:      getEnvDuration("SERVICE_TOKEN_TTL", 5*time.Minute),
	})
	if err != nil {
		log.Fatalf("Failed to create token service: %v", err)
	}

	online, err := remote.NewRepository[domain.Item](remote.Config{
		BaseURL:  backendURL,
		Resource: "items",
		Tokens:   tokens,
		Subject:  deviceID,
	})
	if err != nil {
		log.Fatalf("Failed to create backend client: %v", err)
	}

	probeURL, err := url.JoinPath(strings.TrimRight(backendURL, "/"), healthPath)
	if err != nil {
		log.Fatalf("Invalid BACKEND_HEALTH_PATH: %v", err)
	}
	monitor := reachability.NewMonitor(reachability.Config{
		Prober:         reachability.NewHTTPProber(probeURL),
		Logger:         logger,
		Interval:       getEnvDuration("PROBE_INTERVAL", 5*time.Second),
		DebounceWindow: getEnvDuration("DEBOUNCE_WINDOW", 2*time.Second),
	})
	log.Printf("Probing backend reachability at %s", probeURL)

	// ===== Services =====
	items, err := services.NewOfflineRepository(services.OfflineRepositoryConfig[domain.Item]{
		Online:       online,
		Cache:        st.cache,
		Queue:        st.queue,
		Reachability: monitor,
		CacheKey:     "items",
		Logger:       logger,
	})
	if err != nil {
		log.Fatalf("Failed to create item repository: %v", err)
	}

	coordinator := services.NewSyncCoordinator(services.SyncCoordinatorConfig{
		Queue:        st.queue,
		Reachability: monitor,
		StateStore:   st.state,
		Lock:         st.lock,
		Logger:       logger,
		MaxAttempts:  getEnvInt("SYNC_MAX_ATTEMPTS", 5),
		LockTTL:      getEnvDuration("SYNC_LOCK_TTL", 5*time.Minute),
	})
	if err := coordinator.Register(items); err != nil {
		log.Fatalf("Failed to register item repository: %v", err)
	}
	if err := coordinator.LoadState(ctx); err != nil {
		log.Printf("Warning: failed to load sync state: %v", err)
	}

	retryInterval := getEnvDuration("SYNC_RETRY_INTERVAL", 30*time.Second)

	switch mode {
	case "api":
		// The API still needs live reachability for its repository.
		if err := monitor.Start(ctx); err != nil {
			log.Fatalf("Failed to start reachability monitor: %v", err)
		}
		defer monitor.Stop()
		runAPI(port, items, coordinator, monitor, st.cache, st.pingers)

	case "worker":
		runWorkerMode(ctx, coordinator, monitor, st.queue, retryInterval)

	case "all":
		go runWorkerMode(ctx, coordinator, monitor, st.queue, retryInterval)
		runAPI(port, items, coordinator, monitor, st.cache, st.pingers)

	default:
		log.Fatalf("Unknown mode: %s (use: api, worker, or all)", mode)
	}
}

func connectRedis(ctx context.Context, redisURL string) *redis.Client {
	log.Println("Connecting to Redis...")
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		log.Fatalf("Failed to parse Redis URL: %v", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Redis connected")
	return client
}

func redisStores(client *redis.Client) stores {
	queue, err := redisqueue.NewQueue(client)
	if err != nil {
		log.Fatalf("Failed to create operation queue: %v", err)
	}
	log.Println("Using Redis cache, queue, sync state and lock")
	return stores{
		cache:   redisadapter.NewCache(client),
		queue:   queue,
		state:   redisadapter.NewSyncStateStore(client),
		lock:    redisadapter.NewLock(client),
		pingers: map[string]http.Pinger{"redis": queue},
	}
}

func connectPostgres(ctx context.Context, databaseURL string) *postgres.DB {
	log.Println("Connecting to PostgreSQL...")
	cfg := postgres.DefaultConfig(databaseURL)
	cfg.MaxOpenConns = getEnvInt("DB_MAX_OPEN_CONNS", cfg.MaxOpenConns)
	cfg.MaxIdleConns = getEnvInt("DB_MAX_IDLE_CONNS", cfg.MaxIdleConns)
	db, err := postgres.Connect(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := db.InitSchema(ctx); err != nil {
		log.Fatalf("Failed to initialize schema: %v", err)
	}
	log.Println("PostgreSQL connected and schema initialized")
	return db
}

func postgresStores(db *postgres.DB) stores {
	log.Println("Using PostgreSQL cache, queue, sync state and advisory lock")
	return stores{
		cache:   postgres.NewCache(db),
		queue:   postgresqueue.NewQueue(db),
		state:   postgres.NewSyncStateStore(db),
		lock:    postgres.NewAdvisoryLock(db),
		pingers: map[string]http.Pinger{"postgres": db},
	}
}

func runAPI(
	port int,
	items *services.OfflineRepository[domain.Item],
	coordinator *services.SyncCoordinator,
	monitor *reachability.Monitor,
	cache driven.Cache,
	pingers map[string]http.Pinger,
) {
	cfg := http.DefaultConfig()
	cfg.Port = port
	cfg.Version = version
	cfg.Logger = slog.Default()
	if origins := getEnv("CORS_ALLOWED_ORIGINS", ""); origins != "" {
		cfg.AllowedOrigins = strings.Split(origins, ",")
	}

	var verifier http.TokenVerifier
	if secret := getEnv("API_TOKEN_SECRET", ""); secret != "" {
		tokens, err := auth.NewTokenService(auth.Config{Secret: secret})
		if err != nil {
			log.Fatalf("Failed to create API token verifier: %v", err)
		}
		verifier = tokens
		log.Println("Bearer authentication enabled for /api/v1")
	}

	server := http.NewServer(cfg, items, coordinator, monitor, cache, verifier, pingers)

	log.Printf("API server starting on :%d", port)
	if err := server.Start(); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

// runWorkerMode runs the auto-sync worker until ctx is cancelled.
func runWorkerMode(
	ctx context.Context,
	coordinator *services.SyncCoordinator,
	monitor *reachability.Monitor,
	queue driven.OperationQueue,
	retryInterval time.Duration,
) {
	log.Println("Starting worker mode...")

	w := worker.NewWorker(worker.WorkerConfig{
		Coordinator:   coordinator,
		Reachability:  monitor,
		Queue:         queue,
		Monitor:       monitor,
		Logger:        slog.Default(),
		RetryInterval: retryInterval,
	})

	if err := w.Start(ctx); err != nil {
		log.Fatalf("Failed to start worker: %v", err)
	}
	log.Println("Worker started, syncing queued operations on reconnect")

	<-ctx.Done()

	log.Println("Stopping worker...")
	w.Stop()
	log.Println("Worker stopped")
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func hostname() string {
	name, err := os.Hostname()
	if err != nil || name == "" {
		return "inventory-sync"
	}
	return name
}
