package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"taskshare/internal/cache"
	"taskshare/internal/config"
	"taskshare/internal/database"
	"taskshare/internal/server"

	"github.com/spf13/cobra"
)

var skipMigrate bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  "Migrates the schema and serves the task manager over HTTP until SIGINT or SIGTERM",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		pool, err := openDatabase(cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if !skipMigrate {
			if err := database.Migrate(pool.DB); err != nil {
				return err
			}
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		deps := server.Deps{Config: cfg, DB: pool.DB}
		if redisCache := connectCache(ctx, cfg); redisCache != nil {
			defer redisCache.Close()
			deps.Cache = redisCache
		}

		srv := server.New(deps).HTTPServer(cfg)

		go func() {
			log.Printf("HTTP server listening on %s (%s)", srv.Addr, cfg.Server.Environment)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("server stopped: %v", err)
				stop()
			}
		}()

		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("graceful shutdown failed: %v", err)
			return err
		}

		log.Println("HTTP server shut down gracefully")
		return nil
	},
}

// connectCache returns nil when Redis is disabled or unreachable at start-up;
// the server then runs without the stats cache and the session deny-list.
func connectCache(ctx context.Context, cfg *config.Config) *cache.RedisCache {
	if !cfg.Redis.Enabled {
		return nil
	}

	redisCache := cache.NewRedisCache(&cache.CacheConfig{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		KeyPrefix:    "taskshare:",
	})
	if err := redisCache.Health(ctx); err != nil {
		log.Printf("redis at %s unavailable, continuing without cache: %v", cfg.GetRedisAddr(), err)
		redisCache.Close()
		return nil
	}
	log.Printf("connected to redis at %s", cfg.GetRedisAddr())
	return redisCache
}

func init() {
	serveCmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not migrate the schema before serving")
	rootCmd.AddCommand(serveCmd)
}
