package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/b2cuseradmin/useradmin/handlers"
	"github.com/b2cuseradmin/useradmin/internal/config"
	"github.com/b2cuseradmin/useradmin/internal/database"
	"github.com/b2cuseradmin/useradmin/internal/oidc"
	"github.com/b2cuseradmin/useradmin/internal/storage"
	"github.com/b2cuseradmin/useradmin/internal/users"
	"github.com/b2cuseradmin/useradmin/pkg/logger"
	"github.com/b2cuseradmin/useradmin/pkg/metrics"
	"github.com/b2cuseradmin/useradmin/pkg/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

// deps are the process-wide collaborators built once at startup and shared read-only.
type deps struct {
	users    users.UserService
	redis    *redis.Client
	verifier middleware.Verifier
	exports  handlers.ObjectStore
	// directoryPing reports whether the directory backend is reachable.
	directoryPing func(ctx context.Context) error
	exportsPing   func(ctx context.Context) error
}

func main() {
	logger.Init(os.Getenv("LOG_LEVEL"))
	logger.Debugf("startup: LOG_LEVEL=%s", logger.LevelString())

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: directory=%s oidc=%v redis=%v minio=%v", cfg.Directory.Backend, cfg.OIDC.URL != "", cfg.Redis.Host != "", cfg.MinIO.Endpoint != "")

	ctx := context.Background()
	d := &deps{directoryPing: func(context.Context) error { return nil }}

	if addr := cfg.Redis.Addr(); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s): %v", addr, err)
			_ = client.Close()
		} else {
			logger.Infof("connected to Redis at %s", addr)
			d.redis = client
			defer client.Close()
		}
	}

	repo, cleanup, err := buildRepository(ctx, cfg, d)
	if err != nil {
		logger.Fatalf("failed to initialize user directory: %v", err)
	}
	defer cleanup()
	if d.redis != nil {
		repo = users.NewCachedRepository(repo, d.redis, "user:", cfg.Directory.CacheTTL)
	}
	d.users = users.NewService(repo)

	d.verifier = buildVerifier(ctx, cfg)

	if cfg.MinIO.Endpoint != "" {
		store, err := storage.NewMinIOStorage(ctx, cfg.MinIO)
		if err != nil {
			logger.Warnf("failed to initialize MinIO, exports disabled: %v", err)
		} else {
			d.exports = store
			d.exportsPing = store.Ping
		}
	}

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r := setupRouter(cfg, d)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	go func() {
		logger.Infof("starting useradmin on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("graceful shutdown failed: %v", err)
	}
}

// buildRepository opens the configured directory backend. The returned cleanup is never nil.
func buildRepository(ctx context.Context, cfg *config.Config, d *deps) (users.Repository, func(), error) {
	switch cfg.Directory.Backend {
	case config.BackendMongo:
		client, err := database.ConnectMongoWithRetry(ctx, cfg.MongoDB.URI, cfg.MongoDB.Timeout, 5)
		if err != nil {
			return nil, func() {}, err
		}
		d.directoryPing = func(ctx context.Context) error { return client.Ping(ctx, nil) }
		col := client.Database(cfg.MongoDB.Database).Collection(cfg.MongoDB.Collection)
		logger.Infof("using MongoDB user directory %s.%s", cfg.MongoDB.Database, cfg.MongoDB.Collection)
		return users.NewMongoRepository(col), func() { _ = client.Disconnect(context.Background()) }, nil
	default:
		if cfg.Directory.Fixture == "" {
			logger.Warnf("using empty in-memory user directory")
			return users.NewMemoryRepository(), func() {}, nil
		}
		data, err := users.LoadFixtureFile(cfg.Directory.Fixture)
		if err != nil {
			return nil, func() {}, err
		}
		repo, err := users.NewMemoryRepositoryFromFixture(data)
		if err != nil {
			return nil, func() {}, err
		}
		logger.Infof("using in-memory user directory seeded from %s", cfg.Directory.Fixture)
		return repo, func() {}, nil
	}
}

// buildVerifier returns nil when no token verification is configured.
func buildVerifier(ctx context.Context, cfg *config.Config) middleware.Verifier {
	if cfg.OIDC.URL != "" && cfg.OIDC.ClientID != "" {
		ver, err := oidc.NewVerifier(ctx, oidc.IssuerURL(cfg.OIDC.URL, cfg.OIDC.Realm), cfg.OIDC.ClientID)
		if err == nil {
			return ver
		}
		logger.Warnf("failed to initialize OIDC verifier: %v", err)
	}
	if cfg.OIDC.AllowInsecureToken {
		logger.Warn("enabling insecure token verifier (integration mode)")
		return oidc.NewInsecureVerifier()
	}
	return nil
}

func setupRouter(cfg *config.Config, d *deps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.RequestLogger(), gin.Recovery(), metrics.Middleware())

	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && d.redis != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(d.redis, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win))
		} else {
			r.Use(middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", func(c *gin.Context) { ready(c, cfg, d) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handlers.RegisterSwagger(r, cfg.Server.BasePath)

	api := r.Group(cfg.Server.BasePath)
	if d.verifier != nil {
		api.Use(middleware.AuthMiddleware(d.verifier))
	} else if cfg.OIDC.URL != "" {
		logger.Warnf("OIDC configured but no verifier available; user routes are unauthenticated")
	}
	handlers.NewUserHandler(d.users).Register(api)
	if d.exports != nil {
		handlers.NewExportHandler(d.users, d.exports, cfg.MinIO.PresignTTL).Register(api)
	}
	return r
}

// ready returns 200 only when critical dependencies are available.
func ready(c *gin.Context, cfg *config.Config, d *deps) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	isReady := true
	status := map[string]bool{}

	status["directory"] = d.users != nil && d.directoryPing(ctx) == nil
	isReady = isReady && status["directory"]

	// OIDC: expect a verifier when an issuer was configured
	status["oidc"] = cfg.OIDC.URL == "" || d.verifier != nil
	isReady = isReady && status["oidc"]

	// Redis only matters when the shared rate limiter depends on it
	if cfg.Redis.Host != "" && cfg.RateLimit.UseRedis {
		status["redis"] = d.redis != nil && d.redis.Ping(ctx).Err() == nil
		isReady = isReady && status["redis"]
	} else {
		status["redis"] = true
	}

	// exports are only checked when object storage was configured
	if cfg.MinIO.Endpoint != "" {
		status["exports"] = d.exportsPing != nil && d.exportsPing(ctx) == nil
		isReady = isReady && status["exports"]
	}

	uptime := time.Since(startTime).String()
	if !isReady {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "deps": status, "uptime": uptime})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": status, "uptime": uptime})
}
